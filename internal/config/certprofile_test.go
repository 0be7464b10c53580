package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCertRef(t *testing.T) {
	tests := []struct {
		spec        string
		defProfile  string
		wantPath    string
		wantProfile string
		wantErr     bool
	}{
		{"~/.heyu.cert", "hub", "~/.heyu.cert", "hub", false},
		{"~/.heyu.cert[notifier]", "hub", "~/.heyu.cert", "notifier", false},
		{"certs.toml[]", "hub", "", "", true},
		{"certs.toml[unterminated", "hub", "", "", true},
		{"", "hub", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			ref, err := ParseCertRef(tt.spec, tt.defProfile)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCertRef(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ref.Path != tt.wantPath || ref.Profile != tt.wantProfile {
				t.Errorf("ParseCertRef(%q) = %+v, want path=%q profile=%q", tt.spec, ref, tt.wantPath, tt.wantProfile)
			}
		})
	}
}

func TestLoadCertProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "certs.toml")
	contents := `
[hub]
ca = "ca.pem"
cert = "hub-cert.pem"
key = "hub-key.pem"

[notifier]
ca = "ca.pem"
cert = "notifier-cert.pem"
key = "notifier-key.pem"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write cert profile file: %v", err)
	}

	profile, err := LoadCertProfile(CertRef{Path: path, Profile: "notifier"})
	if err != nil {
		t.Fatalf("LoadCertProfile: %v", err)
	}
	if profile.Cert != "notifier-cert.pem" || profile.Key != "notifier-key.pem" || profile.CABundle != "ca.pem" {
		t.Errorf("unexpected profile contents: %+v", profile)
	}

	if _, err := LoadCertProfile(CertRef{Path: path, Profile: "absent"}); err == nil {
		t.Error("expected error for unknown profile section")
	}
}

func TestLoadCertProfileIncomplete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "certs.toml")
	if err := os.WriteFile(path, []byte("[hub]\nca = \"ca.pem\"\n"), 0o644); err != nil {
		t.Fatalf("write cert profile file: %v", err)
	}

	if _, err := LoadCertProfile(CertRef{Path: path, Profile: "hub"}); err == nil {
		t.Error("expected error for a profile missing cert/key")
	}
}
