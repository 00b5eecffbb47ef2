package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// BrokerTLS builds the client TLS config for the Temporal broker connection.
// Returns nil, nil when no client cert is configured (plaintext).
func (c *Config) BrokerTLS() (*tls.Config, error) {
	if c.TemporalTLSCert == "" && c.TemporalTLSKey == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.TemporalTLSCert, c.TemporalTLSKey)
	if err != nil {
		return nil, fmt.Errorf("load broker client cert: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		ServerName:   c.TemporalTLSServerName,
	}

	if c.TemporalTLSCACert == "" {
		return tlsConfig, nil
	}

	caPEM, err := os.ReadFile(c.TemporalTLSCACert)
	if err != nil {
		return nil, fmt.Errorf("read broker CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("parse broker CA cert: no certificates found in %s", c.TemporalTLSCACert)
	}
	tlsConfig.RootCAs = pool

	return tlsConfig, nil
}
