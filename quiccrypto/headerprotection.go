package quiccrypto

import (
	"crypto/aes"

	"golang.org/x/crypto/chacha20"
)

// HeaderProtectionSampleSize is the size of the ciphertext sample used for
// header protection (RFC 9001 §5.4.2).
const HeaderProtectionSampleSize = 16

// HeaderProtectionMask runs a ciphertext sample through the
// header-protection cipher associated with keys.Suite, producing the
// 5-byte mask applied to the first header byte's low bits and the
// packet-number bytes (RFC 9001 §5.4.1).
func HeaderProtectionMask(keys Keys, sample []byte) ([5]byte, error) {
	if keys.Suite == SuiteChaCha20Poly1305SHA256 {
		return chaCha20Mask(keys.HPKey, sample)
	}
	return aesMask(keys.HPKey, sample)
}

// aesMask implements AES-ECB header protection: encrypt the sample as a
// single AES block and use the result directly as the mask.
func aesMask(hpKey, sample []byte) ([5]byte, error) {
	var mask [5]byte
	block, err := aes.NewCipher(hpKey)
	if err != nil {
		return mask, err
	}
	var out [aes.BlockSize]byte
	block.Encrypt(out[:], sample)
	copy(mask[:], out[:5])
	return mask, nil
}

// chaCha20Mask implements ChaCha20 counter-mode header protection: the
// first 4 sample bytes are the little-endian block counter, the remaining
// 12 are the nonce; the mask is the first 5 bytes of the keystream.
func chaCha20Mask(hpKey, sample []byte) ([5]byte, error) {
	var mask [5]byte
	counter := uint32(sample[0]) | uint32(sample[1])<<8 | uint32(sample[2])<<16 | uint32(sample[3])<<24
	c, err := chacha20.NewUnauthenticatedCipher(hpKey, sample[4:16])
	if err != nil {
		return mask, err
	}
	c.SetCounter(counter)

	var zeros [5]byte
	c.XORKeyStream(mask[:], zeros[:])
	return mask, nil
}

// ApplyHeaderProtection XORs mask into the protected portions of hdr in
// place: the low 4 bits (long header) or low 5 bits (short header) of the
// first byte, and pnumLen bytes of packet number starting at pnumOff.
func ApplyHeaderProtection(hdr []byte, pnumOff, pnumLen int, mask [5]byte, longHeader bool) {
	if longHeader {
		hdr[0] ^= mask[0] & 0x0f
	} else {
		hdr[0] ^= mask[0] & 0x1f
	}
	for i := 0; i < pnumLen; i++ {
		hdr[pnumOff+i] ^= mask[1+i]
	}
}

// RemoveHeaderProtection reverses ApplyHeaderProtection on a received
// packet, where the packet number length isn't known until after the
// first byte's low bits are unmasked. It unmasks the first byte, reads
// the now-recovered length out of it, then unmasks exactly that many
// packet-number bytes, and returns the recovered length.
func RemoveHeaderProtection(hdr []byte, pnumOff int, mask [5]byte, longHeader bool) int {
	if longHeader {
		hdr[0] ^= mask[0] & 0x0f
	} else {
		hdr[0] ^= mask[0] & 0x1f
	}
	pnumLen := int(hdr[0]&0x03) + 1
	for i := 0; i < pnumLen; i++ {
		hdr[pnumOff+i] ^= mask[1+i]
	}
	return pnumLen
}
