package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
)

// snapshotSchema validates a registry snapshot before any of it is
// registered: a malformed file must not partially mutate the registry.
const snapshotSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["policy_id", "policy"],
    "properties": {
      "policy_id": {"type": "string", "minLength": 1},
      "policy": {
        "type": "object",
        "required": ["clauses"],
        "properties": {
          "clauses": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["clause_type", "actor", "action"],
              "properties": {
                "clause_type": {"enum": ["permission", "prohibition", "obligation"]},
                "actor": {"type": "string"},
                "action": {"type": "string"}
              }
            }
          },
          "description": {"type": "string"},
          "version": {"type": "string"}
        }
      }
    }
  }
}`

var (
	compileSchemaOnce sync.Once
	compiledSchema    *jsonschema.Schema
)

func registrySchema() *jsonschema.Schema {
	compileSchemaOnce.Do(func() {
		compiledSchema = jsonschema.MustCompileString("registry-snapshot.json", snapshotSchema)
	})
	return compiledSchema
}

// PolicyRef pairs a human-chosen policy identifier with its content address.
type PolicyRef struct {
	PolicyID  string           `json:"policy_id"`
	PolicyCID canonicalize.CID `json:"policy_cid"`
}

// registryEntry is the persisted JSON form of one registered policy.
type registryEntry struct {
	PolicyID string  `json:"policy_id"`
	Policy   *Object `json:"policy"`
}

// Registry maps human-chosen identifiers to registered policy objects over a
// single Evaluator, and persists/restores the whole set as a flat snapshot.
type Registry struct {
	mu        sync.RWMutex
	evaluator *Evaluator
	ids       map[string]canonicalize.CID
}

// NewRegistry wraps an evaluator. A nil evaluator gets a fresh one.
func NewRegistry(evaluator *Evaluator) *Registry {
	if evaluator == nil {
		evaluator = NewEvaluator()
	}
	return &Registry{
		evaluator: evaluator,
		ids:       make(map[string]canonicalize.CID),
	}
}

// Evaluator exposes the wrapped evaluator.
func (r *Registry) Evaluator() *Evaluator { return r.evaluator }

// Register validates and registers a policy under the given identifier and
// returns its CID. Re-registering an id simply rebinds it.
func (r *Registry) Register(policyID string, obj *Object) (canonicalize.CID, error) {
	if policyID == "" {
		return "", fmt.Errorf("policy id must not be empty")
	}
	cid, err := r.evaluator.RegisterPolicy(obj)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.ids[policyID] = cid
	r.mu.Unlock()
	return cid, nil
}

// ListPolicies returns the registered identifier to CID pairs, sorted by id.
func (r *Registry) ListPolicies() []PolicyRef {
	r.mu.RLock()
	refs := make([]PolicyRef, 0, len(r.ids))
	for id, cid := range r.ids {
		refs = append(refs, PolicyRef{PolicyID: id, PolicyCID: cid})
	}
	r.mu.RUnlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].PolicyID < refs[j].PolicyID })
	return refs
}

// Evaluate delegates to the wrapped evaluator.
func (r *Registry) Evaluate(ctx context.Context, req EvalRequest) *Decision {
	return r.evaluator.Evaluate(ctx, req)
}

// EvaluateByID resolves a policy identifier and evaluates against it. An
// unregistered id denies.
func (r *Registry) EvaluateByID(ctx context.Context, policyID string, req EvalRequest) *Decision {
	r.mu.RLock()
	cid, ok := r.ids[policyID]
	r.mu.RUnlock()

	if !ok {
		return mustDecision(EffectDeny, req.Intent.CID(), "",
			fmt.Sprintf("Unknown policy id %q", policyID), nil)
	}
	req.PolicyCID = cid
	return r.evaluator.Evaluate(ctx, req)
}

// Save writes the full set of registered policies as a JSON array of
// {"policy_id", "policy"} objects, atomically (temp file then rename).
func (r *Registry) Save(path string) error {
	r.mu.RLock()
	entries := make([]registryEntry, 0, len(r.ids))
	for id, cid := range r.ids {
		obj, ok := r.evaluator.GetPolicy(cid)
		if !ok {
			r.mu.RUnlock()
			return fmt.Errorf("registry inconsistent: policy %q (%s) missing from evaluator", id, cid)
		}
		entries = append(entries, registryEntry{PolicyID: id, Policy: obj})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].PolicyID < entries[j].PolicyID })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

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

// Load restores policies from a snapshot, validating the whole document
// against the snapshot schema first, and returns the count restored. A
// failed load leaves prior state untouched; restored policies are
// immediately evaluable.
func (r *Registry) Load(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read registry snapshot: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse registry snapshot: %w", err)
	}
	if err := registrySchema().Validate(doc); err != nil {
		return 0, fmt.Errorf("registry snapshot failed schema validation: %w", err)
	}

	var entries []registryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("decode registry snapshot: %w", err)
	}

	// Validate every entry before registering any.
	for _, entry := range entries {
		if err := entry.Policy.Validate(); err != nil {
			return 0, fmt.Errorf("policy %q invalid: %w", entry.PolicyID, err)
		}
	}

	for _, entry := range entries {
		if _, err := r.Register(entry.PolicyID, entry.Policy); err != nil {
			return 0, fmt.Errorf("register policy %q: %w", entry.PolicyID, err)
		}
	}
	return len(entries), nil
}
