package capability

import (
	"errors"
	"fmt"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
)

// Sentinel errors for the delegation model. Typed wrappers below carry the
// offending CID or chain index; all are matchable with errors.Is.
var (
	// ErrInvalidGrant reports a token constructed with zero capabilities.
	// Programmer error, never retried.
	ErrInvalidGrant = errors.New("delegation token must grant at least one capability")

	// ErrEmptyChain: an empty chain can never authorize anything.
	ErrEmptyChain = errors.New("delegation chain is empty")

	// ErrCycleDetected reports a proof reference looping back onto itself. An
	// attacker-influenced store must not inflate authority via a loop.
	ErrCycleDetected = errors.New("cycle detected in delegation chain")

	// ErrMissingLink reports a proof reference to a CID absent from the store.
	ErrMissingLink = errors.New("missing link in delegation chain")

	// ErrChainBroken reports an audience/issuer continuity failure.
	ErrChainBroken = errors.New("delegation chain continuity broken")

	// ErrTokenExpired reports a token in the chain past its expiry.
	ErrTokenExpired = errors.New("delegation token expired")

	// ErrTokenNotYetValid reports a token used before its not-before.
	ErrTokenNotYetValid = errors.New("delegation token not yet valid")
)

// CycleError reports the CID at which chain assembly looped.
type CycleError struct {
	CID canonicalize.CID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected at token %s", e.CID)
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// MissingLinkError reports a proof CID absent from the token store.
type MissingLinkError struct {
	CID canonicalize.CID
}

func (e *MissingLinkError) Error() string {
	return fmt.Sprintf("missing link: token %s not found", e.CID)
}

func (e *MissingLinkError) Unwrap() error { return ErrMissingLink }

// ChainBrokenError reports the index at which audience to issuer continuity
// fails (tokens[Index-1].Audience != tokens[Index].Issuer).
type ChainBrokenError struct {
	Index    int
	Audience string
	Issuer   string
}

func (e *ChainBrokenError) Error() string {
	return fmt.Sprintf("chain broken at index %d: audience %q does not match issuer %q",
		e.Index, e.Audience, e.Issuer)
}

func (e *ChainBrokenError) Unwrap() error { return ErrChainBroken }

// TemporalError reports a token outside its validity window at the
// evaluation time. Kind is ErrTokenExpired or ErrTokenNotYetValid.
type TemporalError struct {
	Index int
	CID   canonicalize.CID
	Kind  error
}

func (e *TemporalError) Error() string {
	return fmt.Sprintf("%v: token %s (index %d)", e.Kind, e.CID, e.Index)
}

func (e *TemporalError) Unwrap() error { return e.Kind }
