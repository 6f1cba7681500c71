// Package artifact persists everything a research run produces as a typed,
// append-only JSONL log: one JSON envelope per line, one log file per run.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Type is the closed set of artifact kinds the log accepts.
type Type string

const (
	TypePlanNode    Type = "plan_node"
	TypeQuery       Type = "query"
	TypeResultRaw   Type = "result_raw"
	TypeSummary     Type = "summary"
	TypeFact        Type = "fact"
	TypeEvaluation  Type = "evaluation"
	TypeFinalReport Type = "final_report"
)

// ErrUnknownType is returned when storing an artifact outside the fixed enum.
var ErrUnknownType = fmt.Errorf("artifact: unknown type")

var knownTypes = map[Type]bool{
	TypePlanNode:    true,
	TypeQuery:       true,
	TypeResultRaw:   true,
	TypeSummary:     true,
	TypeFact:        true,
	TypeEvaluation:  true,
	TypeFinalReport: true,
}

// ValidType reports whether t is in the closed enum.
func ValidType(t Type) bool { return knownTypes[t] }

// Artifact is the typed, timestamped envelope for one persisted record.
// Stored records are never mutated; replacement happens by appending.
type Artifact struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// New builds an envelope around data with a content-derived id. The id
// depends only on the type and the serialized data, so identical content
// produced by different passes maps to the same id.
func New(t Type, data any) (*Artifact, error) {
	if !ValidType(t) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("artifact: marshal %s data: %w", t, err)
	}
	return &Artifact{
		ID:        ContentID(string(t), raw),
		Type:      t,
		Data:      raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ContentID derives a stable 16-hex-char id from a kind tag and payload.
func ContentID(kind string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{'\n'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Decode unmarshals the envelope's data into v.
func (a *Artifact) Decode(v any) error {
	return json.Unmarshal(a.Data, v)
}
