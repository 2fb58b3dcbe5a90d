package quic

import "github.com/kcenon/netquic/quiccrypto"

// levelKeys tracks whether a KeyPair has been installed for one
// encryption level, since a freshly constructed Connection has no keys
// at all beyond the Initial level derived directly from the destination
// connection ID.
type levelKeys struct {
	pair      quiccrypto.KeyPair
	installed bool
}

// keyStore holds the independent key state for all four encryption
// levels a connection can carry traffic at.
type keyStore struct {
	levels [4]levelKeys
}

func (ks *keyStore) install(level quiccrypto.Level, pair quiccrypto.KeyPair) {
	ks.levels[level] = levelKeys{pair: pair, installed: true}
}

func (ks *keyStore) get(level quiccrypto.Level) (quiccrypto.KeyPair, bool) {
	l := ks.levels[level]
	return l.pair, l.installed
}

// discard drops the key material for a level once it is no longer
// needed (e.g. Initial and Handshake keys after the handshake confirms).
func (ks *keyStore) discard(level quiccrypto.Level) {
	ks.levels[level].pair.Zero()
	ks.levels[level] = levelKeys{}
}
