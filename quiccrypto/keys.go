package quiccrypto

import "crypto/subtle"

// Keys holds one direction's (read or write) key material for an
// encryption level: the 32-byte traffic secret it was derived from, the
// AEAD key and 12-byte IV, and the header-protection key.
type Keys struct {
	Suite   Suite
	Secret  []byte
	AEADKey []byte
	IV      [12]byte
	HPKey   []byte
}

// DeriveKeys derives the AEAD key, IV, and header-protection key from a
// traffic secret, per RFC 9001 §5.1's "quic key"/"quic iv"/"quic hp"
// labels.
func DeriveKeys(suite Suite, secret []byte) Keys {
	newHash, keySize := hashForSuite(suite)

	k := Keys{
		Suite:   suite,
		Secret:  append([]byte(nil), secret...),
		AEADKey: ExpandLabel(newHash, secret, "quic key", nil, keySize),
		HPKey:   ExpandLabel(newHash, secret, "quic hp", nil, keySize),
	}
	iv := ExpandLabel(newHash, secret, "quic iv", nil, len(k.IV))
	copy(k.IV[:], iv)
	return k
}

// Valid reports whether k holds non-zero key material.
func (k Keys) Valid() bool {
	return len(k.AEADKey) > 0
}

// Zero overwrites every byte of key material so it does not linger in
// memory after the level is discarded.
func (k *Keys) Zero() {
	zero(k.Secret)
	zero(k.AEADKey)
	zero(k.HPKey)
	for i := range k.IV {
		k.IV[i] = 0
	}
	k.Secret, k.AEADKey, k.HPKey = nil, nil, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// KeyPair holds both directions' keys for one encryption level. The
// connection's keyStore keeps a single KeyPair per level; key updates are
// not handled, so no previous or next Application-level KeyPair is kept.
type KeyPair struct {
	Read  Keys
	Write Keys
}

// Valid reports whether both directions hold key material.
func (p KeyPair) Valid() bool {
	return p.Read.Valid() && p.Write.Valid()
}

// Zero zeroises both directions' key material.
func (p *KeyPair) Zero() {
	p.Read.Zero()
	p.Write.Zero()
}

// ConstantTimeEqual reports whether a and b hold identical bytes, without
// leaking timing information — used when comparing stateless reset tokens
// and similar secret-derived values.
func ConstantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
