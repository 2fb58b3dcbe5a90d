package quicpacket

import (
	"fmt"

	"github.com/kcenon/netquic/quiccrypto"
)

// SealAndProtect seals payload under keys and applies header protection,
// producing the final on-wire packet. header is the unprotected header
// (first byte through the truncated packet number, as returned by
// BuildLongHeader/BuildShortHeader), pnOffset is its packet-number offset,
// and pnLen is the number of packet-number bytes it contains.
func SealAndProtect(header []byte, pnOffset, pnLen int, payload []byte, keys quiccrypto.Keys, pn uint64, longHeader bool) ([]byte, error) {
	sealed, err := quiccrypto.Seal(nil, keys, pn, header, payload)
	if err != nil {
		return nil, err
	}

	pkt := append(append([]byte(nil), header...), sealed...)

	sampleOffset := pnOffset + 4
	if len(pkt) < sampleOffset+quiccrypto.HeaderProtectionSampleSize {
		return nil, fmt.Errorf("quicpacket: packet too short to sample for header protection")
	}
	sample := pkt[sampleOffset : sampleOffset+quiccrypto.HeaderProtectionSampleSize]

	mask, err := quiccrypto.HeaderProtectionMask(keys, sample)
	if err != nil {
		return nil, err
	}
	quiccrypto.ApplyHeaderProtection(pkt, pnOffset, pnLen, mask, longHeader)

	return pkt, nil
}

// RemoveHeaderProtectionAndOpen removes header protection from pkt in
// place starting at pnOffset, decodes and expands the packet number using
// largestAcked as the reference, and opens the AEAD payload. It returns
// the full packet number and the decrypted plaintext.
func RemoveHeaderProtectionAndOpen(pkt []byte, pnOffset int, keys quiccrypto.Keys, largestAcked int64, longHeader bool) (pn uint64, plaintext []byte, err error) {
	sampleOffset := pnOffset + 4
	if len(pkt) < sampleOffset+quiccrypto.HeaderProtectionSampleSize {
		return 0, nil, fmt.Errorf("quicpacket: packet too short to sample for header protection")
	}
	sample := pkt[sampleOffset : sampleOffset+quiccrypto.HeaderProtectionSampleSize]

	mask, err := quiccrypto.HeaderProtectionMask(keys, sample)
	if err != nil {
		return 0, nil, err
	}

	// Unmasking the first byte with the full mask length before the real
	// pnLen is known is safe: the mask only ever affects the low 4 or 5
	// bits, which fully determine pnLen once removed.
	var firstByteMask byte
	if longHeader {
		firstByteMask = mask[0] & 0x0f
	} else {
		firstByteMask = mask[0] & 0x1f
	}
	pkt[0] ^= firstByteMask
	pnLen := int(pkt[0]&0x03) + 1

	if len(pkt) < pnOffset+pnLen {
		return 0, nil, fmt.Errorf("quicpacket: truncated packet number")
	}
	for i := 0; i < pnLen; i++ {
		pkt[pnOffset+i] ^= mask[1+i]
	}

	truncated := uint64(0)
	for i := 0; i < pnLen; i++ {
		truncated = truncated<<8 | uint64(pkt[pnOffset+i])
	}
	pn = DecodePacketNumber(largestAcked, truncated, pnLen)

	header := pkt[:pnOffset+pnLen]
	ciphertext := pkt[pnOffset+pnLen:]

	plaintext, err = quiccrypto.Open(nil, keys, pn, header, ciphertext)
	if err != nil {
		return pn, nil, err
	}
	return pn, plaintext, nil
}
