package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/backoffice/internal/model"
)

// IssuerOverride customizes how one certificate type is produced.
type IssuerOverride struct {
	// Stub forces the placeholder renderer on or off for this type,
	// overriding CERT_ISSUER_STUB.
	Stub *bool `yaml:"stub"`
	// AgentPath is the path on the remote automation agent that issues
	// this type, relative to ISSUER_AGENT_URL.
	AgentPath string `yaml:"agent_path"`
	// Disabled leaves the type without a renderer, so every emission fails
	// as an unsupported type.
	Disabled bool `yaml:"disabled"`
}

// IssuersFile is the on-disk shape of CERT_ISSUERS_FILE.
//
//	issuers:
//	  federal_police:
//	    stub: false
//	    agent_path: /v1/federal-police
//	  state_court:
//	    disabled: true
type IssuersFile struct {
	Issuers map[model.CertificateType]IssuerOverride `yaml:"issuers"`
}

// LoadIssuers reads per-type overrides. An empty path yields no overrides.
func (c *Config) LoadIssuers() (map[model.CertificateType]IssuerOverride, error) {
	if c.IssuersFile == "" {
		return map[model.CertificateType]IssuerOverride{}, nil
	}

	data, err := os.ReadFile(c.IssuersFile)
	if err != nil {
		return nil, fmt.Errorf("read issuers file: %w", err)
	}
	return ParseIssuers(data)
}

// ParseIssuers decodes an issuers file and rejects unknown certificate types.
func ParseIssuers(data []byte) (map[model.CertificateType]IssuerOverride, error) {
	var f IssuersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse issuers file: %w", err)
	}

	out := make(map[model.CertificateType]IssuerOverride, len(f.Issuers))
	for t, o := range f.Issuers {
		if !t.Valid() {
			return nil, fmt.Errorf("issuers file: unknown certificate type %q", t)
		}
		out[t] = o
	}
	return out, nil
}

// UseStub reports whether the placeholder renderer serves the given type.
func (c *Config) UseStub(t model.CertificateType, overrides map[model.CertificateType]IssuerOverride) bool {
	if o, ok := overrides[t]; ok && o.Stub != nil {
		return *o.Stub
	}
	return c.IssuerStub
}
