package trust

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/heyu-project/heyud/internal/config"
)

func TestLoadInsecureReturnsNil(t *testing.T) {
	cfg, err := Load(config.CertProfile{}, ModeServer, true)
	if err != nil {
		t.Fatalf("Load insecure: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil tls.Config in insecure mode, got %+v", cfg)
	}
}

func TestLoadServerConfig(t *testing.T) {
	dir := t.TempDir()
	caPath, certPath, keyPath := writeSelfSignedPair(t, dir)

	profile := config.CertProfile{CABundle: caPath, Cert: certPath, Key: keyPath}
	cfg, err := Load(profile, ModeServer, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil tls.Config")
	}
	if cfg.ClientAuth != 4 /* tls.RequireAndVerifyClientCert */ {
		t.Errorf("expected mutual auth required, got %v", cfg.ClientAuth)
	}
	if cfg.ClientCAs == nil {
		t.Error("expected ClientCAs pool to be populated")
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("expected one local certificate, got %d", len(cfg.Certificates))
	}
}

func TestLoadMissingFiles(t *testing.T) {
	profile := config.CertProfile{CABundle: "/nonexistent/ca.pem", Cert: "/nonexistent/cert.pem", Key: "/nonexistent/key.pem"}
	if _, err := Load(profile, ModeClient, false); err == nil {
		t.Error("expected error for unreadable certificate files")
	}
}

// writeSelfSignedPair writes a minimal self-signed EC certificate/key
// pair and returns it as the CA bundle and the identity pair alike —
// sufficient to exercise the parsing and pooling logic, not to validate
// a real chain.
func writeSelfSignedPair(t *testing.T, dir string) (ca, cert, key string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "heyu-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	caPath := filepath.Join(dir, "ca.pem")
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")

	if err := os.WriteFile(caPath, certPEM, 0o644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	return caPath, certPath, keyPath
}
