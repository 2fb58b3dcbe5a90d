package quiccrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// AEADOverhead is the difference in size between AEAD output and input;
// every cipher suite QUIC v1 defines has a 16-byte authentication tag.
const AEADOverhead = 16

func newAEAD(suite Suite, key []byte) (cipher.AEAD, error) {
	switch suite {
	case SuiteChaCha20Poly1305SHA256:
		return chacha20poly1305.New(key)
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("quiccrypto: %w", err)
		}
		return cipher.NewGCM(block)
	}
}

// nonce computes the per-packet AEAD nonce: the IV XORed with the packet
// number in big-endian, zero-extended to the IV's length.
func nonce(iv [12]byte, pn uint64) [12]byte {
	var pnBytes [12]byte
	binary.BigEndian.PutUint64(pnBytes[4:], pn)

	var n [12]byte
	for i := range n {
		n[i] = iv[i] ^ pnBytes[i]
	}
	return n
}

// Seal encrypts payload under keys.AEADKey, using header as associated
// data, and appends a 16-byte tag. The nonce is derived from keys.IV and
// pn per RFC 9001 §5.3.
func Seal(dst []byte, keys Keys, pn uint64, header, payload []byte) ([]byte, error) {
	aead, err := newAEAD(keys.Suite, keys.AEADKey)
	if err != nil {
		return nil, err
	}
	n := nonce(keys.IV, pn)
	return aead.Seal(dst, n[:], payload, header), nil
}

// Open verifies and decrypts ciphertext under keys.AEADKey using header as
// associated data. Tag failure returns an error and the packet must be
// silently dropped by the caller.
func Open(dst []byte, keys Keys, pn uint64, header, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(keys.Suite, keys.AEADKey)
	if err != nil {
		return nil, err
	}
	n := nonce(keys.IV, pn)
	out, err := aead.Open(dst, n[:], ciphertext, header)
	if err != nil {
		return nil, fmt.Errorf("quiccrypto: AEAD open failed: %w", err)
	}
	return out, nil
}
