// Package trust resolves a certificate profile (CA bundle, certificate,
// key) into a mutually-authenticating *tls.Config shared by every
// connection a role makes for its lifetime.
package trust

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/heyu-project/heyud/internal/config"
)

// Mode selects whether a resolved Config is used for a listening
// endpoint or an outbound connection.
type Mode int

const (
	// ModeServer configures a tls.Config for Listen/NewListener use.
	ModeServer Mode = iota
	// ModeClient configures a tls.Config for Dial use.
	ModeClient
)

// Load reads profile's three files from disk and builds a *tls.Config
// requiring mutual authentication, pinned to TLS 1.2 as a floor. It
// returns nil, nil when insecure is true, signalling that the caller
// should use a bare, unwrapped connection (local testing only, per
// spec §4.2).
func Load(profile config.CertProfile, mode Mode, insecure bool) (*tls.Config, error) {
	if insecure {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(profile.Cert, profile.Key)
	if err != nil {
		return nil, fmt.Errorf("trust: loading certificate/key pair: %w", err)
	}

	caPEM, err := os.ReadFile(profile.CABundle)
	if err != nil {
		return nil, fmt.Errorf("trust: reading CA bundle %s: %w", profile.CABundle, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("trust: no certificates found in CA bundle %s", profile.CABundle)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	switch mode {
	case ModeServer:
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	case ModeClient:
		cfg.RootCAs = pool
	}

	return cfg, nil
}
