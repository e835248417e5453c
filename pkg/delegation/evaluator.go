// Package delegation implements the delegation-chain evaluator and the
// revocation list. The evaluator stores tokens keyed by CID, assembles
// root-first chains by following proof references, and answers "can this
// principal invoke this capability" queries. All evaluation-path failures
// resolve to a deny verdict with a reason string; the engine fails closed.
package delegation

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
	"github.com/covenant-labs/covenant/pkg/capability"
	"github.com/covenant-labs/covenant/pkg/observability"
)

// Verdict is the outcome of a delegation query. Every denial carries a
// human-readable reason suitable for audit logging.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// InvokeRequest describes one "may principal X use capability Y via leaf
// token Z" query.
type InvokeRequest struct {
	Principal string
	Resource  string
	Ability   string
	LeafCID   canonicalize.CID

	// Actor, when set, must equal the leaf token's audience.
	Actor string

	// At, when set, evaluates validity at that instant instead of now.
	At *time.Time
}

// Evaluator stores delegation tokens and validates chains built from them.
// Construct independent instances for testing and multi-tenant isolation;
// the type carries no global state.
type Evaluator struct {
	mu         sync.RWMutex
	tokens     map[canonicalize.CID]capability.Token
	chainCache map[canonicalize.CID]*capability.Chain

	coverage  capability.CoverageMode
	clock     observability.Clock
	revoked   *List
	auditLog  *audit.Log
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewEvaluator creates an evaluator with an empty token store.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		tokens:     make(map[canonicalize.CID]capability.Token),
		chainCache: make(map[canonicalize.CID]*capability.Chain),
		coverage:   capability.CoverageAnyLink,
		clock:      observability.WallClock{},
		logger:     slog.Default(),
		tracer:     observability.Tracer("covenant/delegation"),
	}
}

// SetClock injects an authority clock. Nil restores the wall clock.
func (e *Evaluator) SetClock(c observability.Clock) {
	if c == nil {
		c = observability.WallClock{}
	}
	e.clock = c
}

// SetCoverageMode selects the chain coverage semantics.
func (e *Evaluator) SetCoverageMode(m capability.CoverageMode) {
	e.coverage = m
}

// SetRevocationList attaches a revocation list consulted before any cached
// or stored token is trusted.
func (e *Evaluator) SetRevocationList(l *List) {
	e.revoked = l
}

// SetAuditLog attaches an audit log; every verdict is appended to it.
func (e *Evaluator) SetAuditLog(l *audit.Log) {
	e.auditLog = l
}

// SetLogger injects a structured logger.
func (e *Evaluator) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// AddToken inserts a token into the store and returns its CID. The whole
// chain cache is invalidated under the same write lock: a new token may be a
// new parent for any existing leaf.
func (e *Evaluator) AddToken(tok capability.Token) (canonicalize.CID, error) {
	cid := tok.CID()
	if cid == "" {
		rehydrated, err := capability.Rehydrate(tok)
		if err != nil {
			return "", err
		}
		tok = rehydrated
		cid = tok.CID()
	}

	e.mu.Lock()
	e.tokens[cid] = tok
	e.chainCache = make(map[canonicalize.CID]*capability.Chain)
	e.mu.Unlock()

	e.logger.Debug("delegation token added", "cid", cid.String(), "issuer", tok.Issuer, "audience", tok.Audience)
	return cid, nil
}

// GetToken returns the stored token for a CID.
func (e *Evaluator) GetToken(cid canonicalize.CID) (capability.Token, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tok, ok := e.tokens[cid]
	return tok, ok
}

// BuildChain assembles the root-first chain ending at the given leaf CID.
// Assembly is a pure structural operation independent of evaluation time,
// so results are cached; a cache hit returns the same chain instance.
func (e *Evaluator) BuildChain(leafCID canonicalize.CID) (*capability.Chain, error) {
	e.mu.RLock()
	if chain, ok := e.chainCache[leafCID]; ok {
		e.mu.RUnlock()
		return chain, nil
	}

	chain, err := e.buildChainLocked(leafCID)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	// Another builder may have raced us; keep the first stored instance so
	// cache hits stay identity-stable.
	if cached, ok := e.chainCache[leafCID]; ok {
		chain = cached
	} else {
		e.chainCache[leafCID] = chain
	}
	e.mu.Unlock()

	return chain, nil
}

// buildChainLocked walks proof references from leaf to root under a held read lock.
func (e *Evaluator) buildChainLocked(leafCID canonicalize.CID) (*capability.Chain, error) {
	var reversed []capability.Token
	seen := make(map[canonicalize.CID]struct{})

	current := leafCID
	for {
		if _, dup := seen[current]; dup {
			return nil, &capability.CycleError{CID: current}
		}
		seen[current] = struct{}{}

		tok, ok := e.tokens[current]
		if !ok {
			return nil, &capability.MissingLinkError{CID: current}
		}
		reversed = append(reversed, tok)

		if tok.ProofCID == nil {
			break // root reached
		}
		current = *tok.ProofCID
	}

	tokens := make([]capability.Token, len(reversed))
	for i, tok := range reversed {
		tokens[len(reversed)-1-i] = tok
	}
	return &capability.Chain{Tokens: tokens}, nil
}

// CanInvoke decides whether the principal may exercise (resource, ability)
// through the delegation chain ending at req.LeafCID. Checks short-circuit
// in order: revocation, unknown token, chain structure, leaf audience,
// temporal validity, capability coverage.
func (e *Evaluator) CanInvoke(ctx context.Context, req InvokeRequest) Verdict {
	_, span := e.tracer.Start(ctx, "delegation.CanInvoke")
	defer span.End()

	verdict := e.canInvoke(req)

	span.SetAttributes(
		attribute.String("delegation.leaf_cid", req.LeafCID.String()),
		attribute.Bool("delegation.allowed", verdict.Allowed),
		attribute.String("delegation.reason", verdict.Reason),
	)
	e.record(req, verdict)
	return verdict
}

func (e *Evaluator) canInvoke(req InvokeRequest) Verdict {
	if e.revoked != nil && e.revoked.IsRevoked(req.LeafCID) {
		return Verdict{Allowed: false, Reason: fmt.Sprintf("Token revoked: %s", req.LeafCID)}
	}

	if _, ok := e.GetToken(req.LeafCID); !ok {
		return Verdict{Allowed: false, Reason: "Unknown token"}
	}

	chain, err := e.BuildChain(req.LeafCID)
	if err != nil {
		return Verdict{Allowed: false, Reason: err.Error()}
	}

	if req.Actor != "" && chain.Leaf().Audience != req.Actor {
		return Verdict{Allowed: false, Reason: fmt.Sprintf(
			"Actor %q is not the leaf audience %q", req.Actor, chain.Leaf().Audience)}
	}

	at := e.clock.Now()
	if req.At != nil {
		at = *req.At
	}
	if err := chain.Validate(at); err != nil {
		return Verdict{Allowed: false, Reason: err.Error()}
	}

	if !chain.Covers(req.Resource, req.Ability, e.coverage) {
		return Verdict{Allowed: false, Reason: fmt.Sprintf(
			"Chain does not cover (%s, %s)", req.Resource, req.Ability)}
	}

	return Verdict{Allowed: true, Reason: fmt.Sprintf(
		"Chain of %d token(s) covers (%s, %s)", chain.Len(), req.Resource, req.Ability)}
}

func (e *Evaluator) record(req InvokeRequest, v Verdict) {
	if e.auditLog == nil {
		return
	}
	actor := req.Actor
	if actor == "" {
		actor = req.Principal
	}
	_, _ = e.auditLog.Append(actor, "DELEGATION_CHECK", req.LeafCID.String(), v.Reason)
}
