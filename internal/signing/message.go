package signing

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// mintDomainTag namespaces mint signatures so a signature over a mint message
// can never be replayed as any other kind of message.
const mintDomainTag = "guildpoint.mint.v1"

// MintMessage builds the digest an issuer signs to authorize minting an
// attestation. It binds the token id, the recipient identity, and the
// canonical metadata hash under the mint domain tag; each field is
// length-prefixed so adjacent fields cannot be re-partitioned.
func MintMessage(tokenID uint64, recipient string, metadataHash [32]byte) []byte {
	h := sha3.NewLegacyKeccak256()

	writeField := func(field []byte) {
		var n [8]byte

		binary.BigEndian.PutUint64(n[:], uint64(len(field)))
		h.Write(n[:])
		h.Write(field)
	}

	writeField([]byte(mintDomainTag))

	var token [8]byte

	binary.BigEndian.PutUint64(token[:], tokenID)
	writeField(token[:])
	writeField([]byte(recipient))
	writeField(metadataHash[:])

	return h.Sum(nil)
}
