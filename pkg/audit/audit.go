// Package audit provides a tamper-evident log of authorization outcomes.
// Every decision the evaluators produce, allow or deny, is appended with
// its human-readable reason, so no decision is ever silent.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
	"github.com/covenant-labs/covenant/pkg/observability"
)

// Entry is a tamper-evident log record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Details   string    `json:"details,omitempty"`

	// PreviousHash links this entry to the preceding one, creating a
	// blockchain-like structure.
	PreviousHash string `json:"previous_hash"`

	// Hash is the SHA-256 digest of this entry (including PreviousHash).
	Hash string `json:"hash"`
}

// Log manages a sequence of audit entries. Safe for concurrent appenders.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	clock   observability.Clock
}

// NewLog creates a new audit log. If clock is nil, wall-clock time is used.
func NewLog(clock observability.Clock) *Log {
	if clock == nil {
		clock = observability.WallClock{}
	}
	return &Log{
		entries: make([]Entry, 0),
		clock:   clock,
	}
}

// Append adds a new entry to the log, linking it to the previous one.
func (l *Log) Append(actor, action, target, details string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash := ""
	if len(l.entries) > 0 {
		prevHash = l.entries[len(l.entries)-1].Hash
	}

	entry := Entry{
		ID:           uuid.NewString(),
		Timestamp:    l.clock.Now().UTC(),
		Actor:        actor,
		Action:       action,
		Target:       target,
		Details:      details,
		PreviousHash: prevHash,
	}

	hash, err := computeEntryHash(&entry)
	if err != nil {
		return nil, err
	}
	entry.Hash = hash

	l.entries = append(l.entries, entry)
	return &entry, nil
}

// Entries returns a snapshot copy of the log.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// VerifyChain checks the integrity of the audit log: each entry's
// PreviousHash must match the actual hash of the preceding entry, and each
// entry's Hash must match its content.
func (l *Log) VerifyChain() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, entry := range l.entries {
		if i > 0 {
			if entry.PreviousHash != l.entries[i-1].Hash {
				return false, fmt.Errorf("chain broken at index %d: previous hash mismatch", i)
			}
		} else if entry.PreviousHash != "" {
			return false, fmt.Errorf("genesis entry has non-empty previous hash")
		}

		computed, err := computeEntryHash(&entry)
		if err != nil {
			return false, fmt.Errorf("failed to recompute hash at index %d: %w", i, err)
		}
		if computed != entry.Hash {
			return false, fmt.Errorf("integrity failure at index %d: computed %s, stored %s", i, computed, entry.Hash)
		}
	}

	return true, nil
}

// computeEntryHash calculates the SHA-256 hash of the entry fields,
// excluding the Hash field itself.
func computeEntryHash(e *Entry) (string, error) {
	data := map[string]interface{}{
		"id":            e.ID,
		"timestamp":     e.Timestamp.Format(time.RFC3339Nano),
		"actor":         e.Actor,
		"action":        e.Action,
		"target":        e.Target,
		"details":       e.Details,
		"previous_hash": e.PreviousHash,
	}

	canonical, err := canonicalize.JCS(data)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
