package policy

import (
	"github.com/google/uuid"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
)

// Intent is a CID-addressed description of "this actor wants to perform this
// action". Intents are produced by an upstream dispatch layer; this core
// only needs the tool name, the input CID, and a correlation ID.
type Intent struct {
	Tool          string           `json:"tool"`
	InputCID      canonicalize.CID `json:"input_cid"`
	CorrelationID string           `json:"correlation_id,omitempty"`

	cid canonicalize.CID
}

// NewIntent builds an intent and computes its CID. A correlation ID is
// assigned when absent.
func NewIntent(tool string, inputCID canonicalize.CID, correlationID string) (Intent, error) {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	in := Intent{
		Tool:          tool,
		InputCID:      inputCID,
		CorrelationID: correlationID,
	}
	cid, err := canonicalize.ComputeCID(map[string]interface{}{
		"tool":           in.Tool,
		"input_cid":      in.InputCID.String(),
		"correlation_id": in.CorrelationID,
	})
	if err != nil {
		return Intent{}, err
	}
	in.cid = cid
	return in, nil
}

// CID returns the content identifier of the intent.
func (i Intent) CID() canonicalize.CID { return i.cid }
