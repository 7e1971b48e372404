package identity

import (
	"math/big"
	"path/filepath"
	"testing"
)

func TestBridgeIDFormatting(t *testing.T) {
	mac := [6]byte{0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}
	got := BridgeID(mac)
	want := "abcdeffffe123456"
	if got != want {
		t.Fatalf("BridgeID = %q, want %q", got, want)
	}
}

func TestLoadGeneratesAndPersists(t *testing.T) {
	mac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	path := filepath.Join(t.TempDir(), "bifrost.pem")

	id, err := Load(path, mac)
	if err != nil {
		t.Fatalf("Load (generate): %v", err)
	}
	wantID := BridgeID(mac)
	if id.Certificate.Subject.CommonName != wantID {
		t.Fatalf("CN = %q, want %q", id.Certificate.Subject.CommonName, wantID)
	}
	if !id.Certificate.NotBefore.Equal(notBefore) || !id.Certificate.NotAfter.Equal(notAfter) {
		t.Fatalf("validity window mismatch: %v .. %v", id.Certificate.NotBefore, id.Certificate.NotAfter)
	}

	raw := BridgeIDRaw(mac)
	if id.Certificate.SerialNumber.Cmp(new(big.Int).SetBytes(raw[:])) != 0 {
		t.Fatalf("serial mismatch")
	}

	reloaded, err := Load(path, mac)
	if err != nil {
		t.Fatalf("Load (reload): %v", err)
	}
	if reloaded.Certificate.Subject.CommonName != wantID {
		t.Fatalf("reloaded CN = %q, want %q", reloaded.Certificate.Subject.CommonName, wantID)
	}
}

func TestLoadRejectsMismatchedCN(t *testing.T) {
	mac1 := [6]byte{1, 2, 3, 4, 5, 6}
	mac2 := [6]byte{9, 9, 9, 9, 9, 9}
	path := filepath.Join(t.TempDir(), "bifrost.pem")

	if _, err := Load(path, mac1); err != nil {
		t.Fatalf("initial generate: %v", err)
	}
	if _, err := Load(path, mac2); err == nil {
		t.Fatal("expected CertificateInvalid for mismatched MAC, got nil")
	}
}
