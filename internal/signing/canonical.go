package signing

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"golang.org/x/crypto/sha3"
)

// canonicalAPI encodes with sorted map keys so the same logical metadata
// always produces the same bytes regardless of client field order.
var canonicalAPI = sonic.Config{
	SortMapKeys: true,
}.Froze()

// CanonicalMarshal deterministically encodes a value. Map keys are sorted at
// every nesting level; array order is preserved as-is since it is part of the
// logical content.
func CanonicalMarshal(v any) ([]byte, error) {
	data, err := canonicalAPI.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}

	return data, nil
}

// HashMetadata computes the Keccak-256 digest of the canonical encoding of an
// attestation metadata bag.
func HashMetadata(md types.Metadata) ([32]byte, error) {
	var digest [32]byte

	data, err := CanonicalMarshal(map[string]any(md))
	if err != nil {
		return digest, err
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	copy(digest[:], h.Sum(nil))

	return digest, nil
}
