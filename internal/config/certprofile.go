package config

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// CertRef names a certificate-profile file and the profile section
// within it to use, as parsed from a "--cert-conf PATH[PROFILE]"
// argument.
type CertRef struct {
	Path    string
	Profile string
}

// ParseCertRef parses "path" or "path[profile]" into a CertRef. When the
// bracketed override is absent, defaultProfile is used.
func ParseCertRef(spec, defaultProfile string) (CertRef, error) {
	if spec == "" {
		return CertRef{}, fmt.Errorf("config: empty certificate profile reference")
	}

	open := strings.IndexByte(spec, '[')
	if open == -1 {
		return CertRef{Path: spec, Profile: defaultProfile}, nil
	}
	if !strings.HasSuffix(spec, "]") {
		return CertRef{}, fmt.Errorf("config: malformed certificate profile reference %q: unterminated '['", spec)
	}
	profile := spec[open+1 : len(spec)-1]
	if profile == "" {
		return CertRef{}, fmt.Errorf("config: malformed certificate profile reference %q: empty profile name", spec)
	}
	return CertRef{Path: spec[:open], Profile: profile}, nil
}

// CertProfile names the three files that make up one TLS identity: the
// CA bundle used as trust anchor, and the local certificate/key pair.
type CertProfile struct {
	CABundle string `toml:"ca"`
	Cert     string `toml:"cert"`
	Key      string `toml:"key"`
}

// Validate checks that every field of the profile is populated.
func (p CertProfile) Validate() error {
	var missing []string
	if p.CABundle == "" {
		missing = append(missing, "ca")
	}
	if p.Cert == "" {
		missing = append(missing, "cert")
	}
	if p.Key == "" {
		missing = append(missing, "key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: certificate profile missing field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoadCertProfile reads ref.Path as a TOML file mapping profile names to
// CertProfile sections, and returns the section named by ref.Profile.
func LoadCertProfile(ref CertRef) (CertProfile, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return CertProfile{}, fmt.Errorf("config: reading certificate profile file %s: %w", ref.Path, err)
	}

	var profiles map[string]CertProfile
	if err := toml.Unmarshal(data, &profiles); err != nil {
		return CertProfile{}, fmt.Errorf("config: parsing certificate profile file %s: %w", ref.Path, err)
	}

	profile, ok := profiles[ref.Profile]
	if !ok {
		return CertProfile{}, fmt.Errorf("config: certificate profile file %s has no section %q", ref.Path, ref.Profile)
	}
	if err := profile.Validate(); err != nil {
		return CertProfile{}, fmt.Errorf("config: profile %q in %s: %w", ref.Profile, ref.Path, err)
	}
	return profile, nil
}
