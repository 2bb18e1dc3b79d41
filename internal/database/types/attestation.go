package types

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Recognized metadata keys. Everything else in the bag is pass-through.
const (
	MetadataKeyCategory    = "category"
	MetadataKeyWeight      = "weight"
	MetadataKeyDescription = "description"
)

// Metadata is the open key/value bag attached to an attestation. A small set
// of keys is recognized by the reputation engine; unrecognized keys are stored
// and signed but otherwise ignored.
type Metadata map[string]any

// Category returns the recognized category field, or "" when absent.
func (m Metadata) Category() string {
	if s, ok := m[MetadataKeyCategory].(string); ok {
		return s
	}

	return ""
}

// DeclaredWeight returns the numeric weight field when present and positive.
// Missing, malformed, zero, or negative values coerce to 1.
func (m Metadata) DeclaredWeight() float64 {
	v, ok := m[MetadataKeyWeight]
	if !ok {
		return 1
	}

	var w float64
	switch n := v.(type) {
	case float64:
		w = n
	case float32:
		w = float64(n)
	case int:
		w = float64(n)
	case int32:
		w = float64(n)
	case int64:
		w = float64(n)
	case uint64:
		w = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 1
		}
		w = parsed
	default:
		return 1
	}

	if w <= 0 {
		return 1
	}

	return w
}

// Attestation is a non-transferable, issuer-signed claim about a recipient.
// Rows are created exactly once by the issuance authority and never updated;
// IssuerScoreAtMint is a permanent historical record of the issuer's score at
// the moment of issuance and is never recomputed.
type Attestation struct {
	bun.BaseModel `bun:"table:attestations"`

	ID                uuid.UUID `bun:"id,pk,type:uuid"              json:"id"`
	Issuer            string    `bun:"issuer,notnull"               json:"issuer"`
	Recipient         string    `bun:"recipient,notnull"            json:"recipient"`
	TokenID           uint64    `bun:"token_id,notnull"             json:"tokenId"`
	Metadata          Metadata  `bun:"metadata,type:jsonb"          json:"metadata"`
	IssuerScoreAtMint int64     `bun:"issuer_score_at_mint,notnull" json:"issuerScoreAtMint"`
	CreatedAt         time.Time `bun:"created_at,notnull"           json:"createdAt"`
}

// CategoryWeight is an admin-mutable multiplier applied to attestations of a
// category during score aggregation. Unlisted categories default to 1.
type CategoryWeight struct {
	bun.BaseModel `bun:"table:category_weights"`

	Category  string    `bun:"category,pk"        json:"category"`
	Weight    float64   `bun:"weight,notnull"     json:"weight"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}
