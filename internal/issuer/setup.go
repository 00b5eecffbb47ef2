package issuer

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/backoffice/internal/config"
	"github.com/edvin/backoffice/internal/model"
)

// FromConfig builds the registry used by the emission pipeline. Each type
// gets the stub or the agent renderer according to CERT_ISSUER_STUB and the
// per-type overrides. Disabled types stay unregistered.
func FromConfig(cfg *config.Config, overrides map[model.CertificateType]config.IssuerOverride, logger zerolog.Logger) (*Registry, error) {
	reg := NewRegistry()
	stub := NewStubRenderer()

	var agent *AgentClient
	for _, t := range model.CertificateTypes {
		o := overrides[t]
		if o.Disabled {
			logger.Warn().Str("type", string(t)).Msg("issuer disabled, emissions will fail as unsupported")
			continue
		}

		if cfg.UseStub(t, overrides) {
			if err := reg.Register(t, stub); err != nil {
				return nil, err
			}
			logger.Info().Str("type", string(t)).Str("issuer", "stub").Msg("issuer registered")
			continue
		}

		if cfg.IssuerAgentURL == "" {
			return nil, fmt.Errorf("issuer %s: ISSUER_AGENT_URL is required when stub mode is off", t)
		}
		if agent == nil {
			agent = NewAgentClient(cfg.IssuerAgentURL, cfg.IssuerAgentToken, cfg.IssuerAgentTimeout, logger)
		}
		if err := reg.Register(t, agent.Renderer(t, o.AgentPath)); err != nil {
			return nil, err
		}
		logger.Info().Str("type", string(t)).Str("issuer", "agent").Msg("issuer registered")
	}

	var registered, unsupported []string
	for _, t := range reg.Types() {
		registered = append(registered, string(t))
	}
	for _, t := range model.CertificateTypes {
		if !reg.Supports(t) {
			unsupported = append(unsupported, string(t))
		}
	}
	logger.Info().Strs("types", registered).Strs("unsupported", unsupported).Msg("issuer registry ready")
	return reg, nil
}
