package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/covenant-labs/covenant/pkg/audit"
	"github.com/covenant-labs/covenant/pkg/canonicalize"
	"github.com/covenant-labs/covenant/pkg/observability"
)

// RevocationChecker gates policy CIDs before any cache lookup. Satisfied by
// *delegation.List.
type RevocationChecker interface {
	IsRevoked(cid canonicalize.CID) bool
}

// EvalRequest describes one policy evaluation.
type EvalRequest struct {
	Intent    Intent
	PolicyCID canonicalize.CID
	Actor     string
	Resource  string

	// At, when set, evaluates the policy at that instant. Explicit
	// timestamps always bypass the decision cache: they represent
	// deliberate "what would the decision have been at T" queries.
	At *time.Time
}

// cacheKey identifies a memoized decision. Time is deliberately absent:
// cached entries are only served for implicit-"now" evaluations and are
// cleared whenever a new policy is registered.
type cacheKey struct {
	policy canonicalize.CID
	intent canonicalize.CID
	actor  string
}

// Evaluator registers policy objects by CID and evaluates intents against
// them. Decisions are memoized keyed by (policy, intent, actor); the cache
// is cleared atomically whenever a genuinely new policy is registered.
// Construct independent instances for testing and multi-tenant isolation.
type Evaluator struct {
	mu            sync.RWMutex
	policies      map[canonicalize.CID]*Object
	decisionCache map[cacheKey]*Decision

	cacheEnabled bool
	conditions   *conditionEvaluator
	clock        observability.Clock
	revoked      RevocationChecker
	auditLog     *audit.Log
	logger       *slog.Logger
	tracer       trace.Tracer
}

// NewEvaluator creates an evaluator with memoization enabled.
func NewEvaluator() *Evaluator {
	// The CEL environment only fails on conflicting declarations, which are
	// fixed at compile time here; a nil conditions evaluator would make
	// every conditioned clause a no-match (fail closed).
	conditions, _ := newConditionEvaluator()

	return &Evaluator{
		policies:      make(map[canonicalize.CID]*Object),
		decisionCache: make(map[cacheKey]*Decision),
		cacheEnabled:  true,
		conditions:    conditions,
		clock:         observability.WallClock{},
		logger:        slog.Default(),
		tracer:        observability.Tracer("covenant/policy"),
	}
}

// SetCacheEnabled toggles decision memoization.
func (e *Evaluator) SetCacheEnabled(enabled bool) {
	e.mu.Lock()
	e.cacheEnabled = enabled
	if !enabled {
		e.decisionCache = make(map[cacheKey]*Decision)
	}
	e.mu.Unlock()
}

// SetClock injects an authority clock. Nil restores the wall clock.
func (e *Evaluator) SetClock(c observability.Clock) {
	if c == nil {
		c = observability.WallClock{}
	}
	e.clock = c
}

// SetRevocationChecker attaches a revocation gate consulted before the
// decision cache.
func (e *Evaluator) SetRevocationChecker(r RevocationChecker) {
	e.revoked = r
}

// SetAuditLog attaches an audit log; every decision is appended to it.
func (e *Evaluator) SetAuditLog(l *audit.Log) {
	e.auditLog = l
}

// SetLogger injects a structured logger.
func (e *Evaluator) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// RegisterPolicy validates and stores a policy object, returning its CID.
// Re-registering an identical policy is a cache-preserving no-op; a new
// policy CID atomically clears the whole decision cache, since any cached
// tuple may otherwise persist assumptions about the superseded state.
func (e *Evaluator) RegisterPolicy(obj *Object) (canonicalize.CID, error) {
	if err := obj.Validate(); err != nil {
		return "", err
	}
	cid, err := obj.CID()
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if _, exists := e.policies[cid]; !exists {
		e.policies[cid] = obj
		e.decisionCache = make(map[cacheKey]*Decision)
	}
	e.mu.Unlock()

	e.logger.Debug("policy registered", "policy_cid", cid.String(), "clauses", len(obj.Clauses))
	return cid, nil
}

// GetPolicy returns the registered object for a CID.
func (e *Evaluator) GetPolicy(cid canonicalize.CID) (*Object, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	obj, ok := e.policies[cid]
	return obj, ok
}

// Evaluate decides the intent against the policy registered under
// req.PolicyCID. The revocation gate runs before any cache lookup; unknown
// or revoked policies deny. Never returns nil.
func (e *Evaluator) Evaluate(ctx context.Context, req EvalRequest) *Decision {
	_, span := e.tracer.Start(ctx, "policy.Evaluate")
	defer span.End()

	decision := e.evaluate(req)

	span.SetAttributes(
		attribute.String("policy.cid", req.PolicyCID.String()),
		attribute.String("policy.effect", decision.Effect.String()),
		attribute.String("policy.justification", decision.Justification),
	)
	if e.auditLog != nil {
		_, _ = e.auditLog.Append(req.Actor, "POLICY_DECISION", req.PolicyCID.String(),
			fmt.Sprintf("%s: %s", decision.Effect, decision.Justification))
	}
	return decision
}

func (e *Evaluator) evaluate(req EvalRequest) *Decision {
	intentCID := req.Intent.CID()

	if e.revoked != nil && e.revoked.IsRevoked(req.PolicyCID) {
		return mustDecision(EffectDeny, intentCID, req.PolicyCID,
			fmt.Sprintf("Policy revoked: %s", req.PolicyCID), nil)
	}

	e.mu.RLock()
	obj, known := e.policies[req.PolicyCID]
	if !known {
		e.mu.RUnlock()
		return mustDecision(EffectDeny, intentCID, req.PolicyCID, "Unknown policy", nil)
	}

	key := cacheKey{policy: req.PolicyCID, intent: intentCID, actor: req.Actor}
	useCache := e.cacheEnabled && req.At == nil
	if useCache {
		if cached, hit := e.decisionCache[key]; hit {
			e.mu.RUnlock()
			return cached
		}
	}
	e.mu.RUnlock()

	at := e.clock.Now()
	if req.At != nil {
		at = *req.At
	}
	decision := e.scanClauses(obj, req, intentCID, at)

	if useCache {
		e.mu.Lock()
		// The cache may have been cleared by a concurrent registration;
		// storing into the fresh map is still correct, and a racing
		// evaluation of the same key keeps the first stored instance.
		if prior, hit := e.decisionCache[key]; hit {
			decision = prior
		} else {
			e.decisionCache[key] = decision
		}
		e.mu.Unlock()
	}

	return decision
}

// scanClauses applies the conflict/obligation resolution algorithm: any
// matching prohibition forces deny; otherwise a matching permission allows,
// with one Obligation per also-matching obligation clause; no matching
// permission denies (closed world).
func (e *Evaluator) scanClauses(obj *Object, req EvalRequest, intentCID canonicalize.CID, at time.Time) *Decision {
	action := req.Intent.Tool
	permitted := false
	var obligations []Obligation

	for _, clause := range obj.Clauses {
		if !clause.MatchesIntent(req.Actor, action, req.Resource) {
			continue
		}
		if !clause.IsTemporallyValid(at) {
			continue
		}
		if !e.conditionHolds(clause, req, action, at) {
			continue
		}

		switch clause.Type {
		case ClauseProhibition:
			// Prohibitions are absolute and short-circuit.
			return mustDecision(EffectDeny, intentCID, req.PolicyCID,
				fmt.Sprintf("Prohibited: clause forbids actor %q action %q", clause.Actor, clause.Action), nil)
		case ClausePermission:
			permitted = true
		case ClauseObligation:
			obligations = append(obligations, Obligation{
				Actor:    concrete(clause.Actor, req.Actor),
				Action:   concrete(clause.Action, action),
				Resource: concrete(clause.Resource, req.Resource),
				Deadline: clause.ObligationDeadline,
			})
		}
	}

	if !permitted {
		return mustDecision(EffectDeny, intentCID, req.PolicyCID, "No matching permission", nil)
	}
	if len(obligations) > 0 {
		return mustDecision(EffectAllowWithObligations, intentCID, req.PolicyCID,
			fmt.Sprintf("Permitted with %d obligation(s)", len(obligations)), obligations)
	}
	return mustDecision(EffectAllow, intentCID, req.PolicyCID, "Permitted", nil)
}

func (e *Evaluator) conditionHolds(clause Clause, req EvalRequest, action string, at time.Time) bool {
	if clause.Condition == "" {
		return true
	}
	if e.conditions == nil {
		return false
	}
	return e.conditions.eval(clause.Condition, map[string]interface{}{
		"actor":     req.Actor,
		"action":    action,
		"resource":  req.Resource,
		"timestamp": at.Unix(),
	})
}

// concrete resolves a wildcard or empty matcher to the evaluated value.
func concrete(matcher, value string) string {
	if matcher == "" || matcher == "*" {
		return value
	}
	return matcher
}

// mustDecision wraps newDecision for the evaluation path, where the inputs
// are plain strings and the only failure mode is a programming error.
func mustDecision(effect Effect, intentCID, policyCID canonicalize.CID, justification string, obligations []Obligation) *Decision {
	d, err := newDecision(effect, intentCID, policyCID, justification, obligations)
	if err != nil {
		panic(fmt.Sprintf("decision not canonicalizable: %v", err))
	}
	return d
}
