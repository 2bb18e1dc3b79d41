package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var (
	// ErrMalformedIdentity is returned when an identity does not decode to an
	// ed25519 public key.
	ErrMalformedIdentity = errors.New("malformed identity")

	// ErrMalformedSignature is returned when signature bytes have the wrong
	// shape before verification is even attempted.
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrSignatureMismatch is returned when a well-formed signature does not
	// bind the message to the claimed identity.
	ErrSignatureMismatch = errors.New("signature verification failed")
)

// Keypair holds an ed25519 signing key and its base58 identity form.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a fresh ed25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	return &Keypair{Public: pub, Private: priv}, nil
}

// Identity returns the base58 encoding of the public key, the opaque identity
// string used everywhere else in the system.
func (k *Keypair) Identity() string {
	return base58.Encode(k.Public)
}

// Sign signs a digest produced by MintMessage.
func (k *Keypair) Sign(digest []byte) []byte {
	return ed25519.Sign(k.Private, digest)
}

// ParseIdentity decodes a base58 identity into an ed25519 public key.
func ParseIdentity(identity string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedIdentity, err)
	}

	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedIdentity, len(raw), ed25519.PublicKeySize)
	}

	return ed25519.PublicKey(raw), nil
}

// Verify checks that sig is a valid signature over digest by the key the
// identity encodes.
func Verify(identity string, digest, sig []byte) error {
	pub, err := ParseIdentity(identity)
	if err != nil {
		return err
	}

	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedSignature, len(sig), ed25519.SignatureSize)
	}

	if !ed25519.Verify(pub, digest, sig) {
		return ErrSignatureMismatch
	}

	return nil
}
