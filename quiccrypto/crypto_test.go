package quiccrypto

import (
	"bytes"
	"testing"
)

func TestDeriveInitialSecretsAreDeterministic(t *testing.T) {
	cid := []byte{0x83, 0x94, 0xc8, 0xf0, 0x3e, 0x51, 0x57, 0x08}
	c1, s1 := DeriveInitialSecrets(cid)
	c2, s2 := DeriveInitialSecrets(cid)
	if !bytes.Equal(c1, c2) || !bytes.Equal(s1, s2) {
		t.Fatal("DeriveInitialSecrets is not deterministic for a fixed connection ID")
	}
	if bytes.Equal(c1, s1) {
		t.Fatal("client and server Initial secrets must differ")
	}
}

func TestDeriveKeysProducesNonZeroMaterial(t *testing.T) {
	_, serverSecret := DeriveInitialSecrets([]byte{1, 2, 3, 4})
	keys := DeriveKeys(SuiteAES128GCMSHA256, serverSecret)
	if !keys.Valid() {
		t.Fatal("DeriveKeys produced an invalid (zero) key")
	}
	if len(keys.AEADKey) != 16 {
		t.Fatalf("AEADKey length = %d, want 16", len(keys.AEADKey))
	}
}

func TestKeysZeroClearsMaterial(t *testing.T) {
	_, serverSecret := DeriveInitialSecrets([]byte{1, 2, 3, 4})
	keys := DeriveKeys(SuiteAES128GCMSHA256, serverSecret)
	keys.Zero()
	if keys.Valid() {
		t.Fatal("Zero() left the key pair looking valid")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	clientSecret, _ := DeriveInitialSecrets([]byte{0xde, 0xad, 0xbe, 0xef})
	keys := DeriveKeys(SuiteAES128GCMSHA256, clientSecret)

	header := []byte{0xc3, 0x00, 0x00, 0x00, 0x01}
	payload := []byte("client hello bytes")

	sealed, err := Seal(nil, keys, 1, header, payload)
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}

	opened, err := Open(nil, keys, 1, header, sealed)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if !bytes.Equal(opened, payload) {
		t.Fatalf("Open() = %q, want %q", opened, payload)
	}
}

func TestOpenFailsOnTamperedCiphertext(t *testing.T) {
	clientSecret, _ := DeriveInitialSecrets([]byte{1})
	keys := DeriveKeys(SuiteAES128GCMSHA256, clientSecret)

	header := []byte{0xc3, 0, 0, 0, 1}
	sealed, err := Seal(nil, keys, 1, header, []byte("payload"))
	if err != nil {
		t.Fatalf("Seal returned error: %v", err)
	}

	tampered := append([]byte(nil), sealed...)
	tampered[0] ^= 0xff
	if _, err := Open(nil, keys, 1, header, tampered); err == nil {
		t.Fatal("Open succeeded on tampered ciphertext")
	}

	tamperedHeader := append([]byte(nil), header...)
	tamperedHeader[0] ^= 0xff
	if _, err := Open(nil, keys, 1, tamperedHeader, sealed); err == nil {
		t.Fatal("Open succeeded on tampered header (AAD)")
	}
}

func TestHeaderProtectionMaskAESAndChaCha(t *testing.T) {
	clientSecret, _ := DeriveInitialSecrets([]byte{7, 7, 7})
	sample := make([]byte, HeaderProtectionSampleSize)
	for i := range sample {
		sample[i] = byte(i)
	}

	aesKeys := DeriveKeys(SuiteAES128GCMSHA256, clientSecret)
	aesMask1, err := HeaderProtectionMask(aesKeys, sample)
	if err != nil {
		t.Fatalf("HeaderProtectionMask (AES) returned error: %v", err)
	}
	aesMask2, err := HeaderProtectionMask(aesKeys, sample)
	if err != nil {
		t.Fatalf("HeaderProtectionMask (AES) returned error: %v", err)
	}
	if aesMask1 != aesMask2 {
		t.Fatal("AES header protection mask is not deterministic")
	}

	chachaKeys := DeriveKeys(SuiteChaCha20Poly1305SHA256, clientSecret)
	chachaMask, err := HeaderProtectionMask(chachaKeys, sample)
	if err != nil {
		t.Fatalf("HeaderProtectionMask (ChaCha20) returned error: %v", err)
	}
	if chachaMask == aesMask1 {
		t.Fatal("AES and ChaCha20 masks unexpectedly matched")
	}
}

func TestApplyHeaderProtectionIsInvolution(t *testing.T) {
	hdr := []byte{0xc3, 0xaa, 0xbb, 0xcc, 0xdd}
	mask := [5]byte{1, 2, 3, 4, 5}
	original := append([]byte(nil), hdr...)

	ApplyHeaderProtection(hdr, 1, 4, mask, true)
	if bytes.Equal(hdr, original) {
		t.Fatal("ApplyHeaderProtection did not modify the header")
	}
	ApplyHeaderProtection(hdr, 1, 4, mask, true)
	if !bytes.Equal(hdr, original) {
		t.Fatal("applying the mask twice did not restore the original header")
	}
}

func TestRemoveHeaderProtectionRecoversAppliedState(t *testing.T) {
	mask := [5]byte{1, 2, 3, 4, 5}

	for _, pnumLen := range []int{1, 2, 3, 4} {
		hdr := []byte{0xc3, 0xaa, 0xbb, 0xcc, 0xdd}
		hdr[0] = 0xc0 | byte(pnumLen-1)
		protected := append([]byte(nil), hdr...)
		ApplyHeaderProtection(protected, 1, pnumLen, mask, true)

		got := append([]byte(nil), protected...)
		gotLen := RemoveHeaderProtection(got, 1, mask, true)
		if gotLen != pnumLen {
			t.Fatalf("pnumLen = %d, want %d", gotLen, pnumLen)
		}
		if !bytes.Equal(got, hdr) {
			t.Fatalf("RemoveHeaderProtection = %x, want %x", got, hdr)
		}
	}
}

func TestConstantTimeEqual(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{1, 2, 3}
	c := []byte{1, 2, 4}
	if !ConstantTimeEqual(a, b) {
		t.Fatal("identical slices reported unequal")
	}
	if ConstantTimeEqual(a, c) {
		t.Fatal("distinct slices reported equal")
	}
}
