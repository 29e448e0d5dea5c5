package pdfstamp

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSelfSigned(t *testing.T) {
	signer, err := SelfSigned("Docsign", time.Now())
	if err != nil {
		t.Fatalf("self signed: %v", err)
	}
	if signer.Certificate.Subject.CommonName != "Docsign" {
		t.Fatalf("unexpected subject %q", signer.Certificate.Subject.CommonName)
	}
	if signer.Certificate.KeyUsage&x509.KeyUsageDigitalSignature == 0 {
		t.Fatal("expected digital signature key usage")
	}
}

func TestLoadSignerFromPEM(t *testing.T) {
	generated, err := SelfSigned("From Disk", time.Now())
	if err != nil {
		t.Fatalf("self signed: %v", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(generated.Key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	writePEM(t, certPath, "CERTIFICATE", generated.Certificate.Raw)
	writePEM(t, keyPath, "PRIVATE KEY", keyDER)

	signer, err := LoadSigner(certPath, keyPath, "")
	if err != nil {
		t.Fatalf("load signer: %v", err)
	}
	if signer.Name != "From Disk" {
		t.Fatalf("expected name from certificate, got %q", signer.Name)
	}
	if !signer.Certificate.Equal(generated.Certificate) {
		t.Fatal("certificate mismatch")
	}
}

func TestLoadSignerRequiresBothFiles(t *testing.T) {
	if _, err := LoadSigner("cert.pem", "", ""); err == nil {
		t.Fatal("expected error when key file is missing")
	}
}

func writePEM(t *testing.T, path, kind string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: kind, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
