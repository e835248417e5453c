package delegation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
)

// List is a persisted set of revoked CIDs. Revocation is append-only in
// effect: there is no un-revoke operation. A revoked CID must never
// authorize, regardless of the structural validity of anything that
// references it.
type List struct {
	mu      sync.RWMutex
	revoked map[canonicalize.CID]struct{}
}

// revocationSnapshot is the persisted JSON form.
type revocationSnapshot struct {
	Revoked []string `json:"revoked"`
	Count   int      `json:"count"`
}

// NewList creates an empty revocation list.
func NewList() *List {
	return &List{revoked: make(map[canonicalize.CID]struct{})}
}

// Revoke marks a CID as no longer trustworthy. Idempotent.
func (l *List) Revoke(cid canonicalize.CID) {
	l.mu.Lock()
	l.revoked[cid] = struct{}{}
	l.mu.Unlock()
}

// IsRevoked reports set membership.
func (l *List) IsRevoked(cid canonicalize.CID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.revoked[cid]
	return ok
}

// Count returns the number of revoked CIDs.
func (l *List) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.revoked)
}

// Save writes the list as JSON to path. The write is atomic (temp file then
// rename) and the file is owner read/write only: the snapshot is
// security-relevant state and must not be world-readable. On platforms
// without POSIX permission bits the chmod is a no-op; deployments there must
// protect the file by other means.
func (l *List) Save(path string) error {
	l.mu.RLock()
	snap := revocationSnapshot{Revoked: make([]string, 0, len(l.revoked))}
	for cid := range l.revoked {
		snap.Revoked = append(snap.Revoked, cid.String())
	}
	l.mu.RUnlock()

	sort.Strings(snap.Revoked)
	snap.Count = len(snap.Revoked)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal revocation snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".revocations-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("restrict snapshot permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load merges the snapshot at path into the list (union, not replace) and
// returns the number of entries read. A missing file is not an error: it
// returns 0. A failed load leaves the in-memory set untouched.
func (l *List) Load(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read revocation snapshot: %w", err)
	}

	var snap revocationSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("parse revocation snapshot: %w", err)
	}

	l.mu.Lock()
	for _, cid := range snap.Revoked {
		l.revoked[canonicalize.CID(cid)] = struct{}{}
	}
	l.mu.Unlock()

	return len(snap.Revoked), nil
}
