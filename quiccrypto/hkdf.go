package quiccrypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"golang.org/x/crypto/hkdf"
)

// hashForSuite returns the transcript hash and derived-key size associated
// with suite.
func hashForSuite(suite Suite) (newHash func() hash.Hash, keySize int) {
	switch suite {
	case SuiteAES128GCMSHA256:
		return sha256.New, 16
	case SuiteAES256GCMSHA384:
		return sha512.New384, 32
	case SuiteChaCha20Poly1305SHA256:
		return sha256.New, 32
	default:
		return sha256.New, 16
	}
}

// ExpandLabel implements HKDF-Expand-Label from RFC 8446 §7.1, as reused
// by QUIC's key schedule (RFC 9001 §5.1) with QUIC-specific labels such as
// "quic key", "quic iv", "quic hp", and "quic ku".
func ExpandLabel(newHash func() hash.Hash, secret []byte, label string, context []byte, length int) []byte {
	var hkdfLabel []byte
	hkdfLabel = append(hkdfLabel, byte(length>>8), byte(length))

	full := "tls13 " + label
	hkdfLabel = append(hkdfLabel, byte(len(full)))
	hkdfLabel = append(hkdfLabel, full...)

	hkdfLabel = append(hkdfLabel, byte(len(context)))
	hkdfLabel = append(hkdfLabel, context...)

	out := make([]byte, length)
	n, err := hkdf.Expand(newHash, secret, hkdfLabel).Read(out)
	if err != nil || n != length {
		panic("quiccrypto: HKDF-Expand-Label invocation failed unexpectedly")
	}
	return out
}

// initialSalt is the 20-byte version-1 Initial salt defined by RFC 9001
// §5.2.
var initialSalt = []byte{
	0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3, 0x4d, 0x17,
	0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad, 0xcc, 0xbb, 0x7f, 0x0a,
}

// DeriveInitialSecrets derives the client and server Initial secrets from
// the client's chosen destination connection ID, per RFC 9001 §5.2.
func DeriveInitialSecrets(destConnID []byte) (clientSecret, serverSecret []byte) {
	initialSecret := hkdf.Extract(sha256.New, destConnID, initialSalt)
	clientSecret = ExpandLabel(sha256.New, initialSecret, "client in", nil, sha256.Size)
	serverSecret = ExpandLabel(sha256.New, initialSecret, "server in", nil, sha256.Size)
	return clientSecret, serverSecret
}
