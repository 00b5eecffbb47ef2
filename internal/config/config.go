package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName     string
	CoreDatabaseURL string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string

	// Broker (Temporal) connection. An unreachable broker at startup puts
	// the job runner into synchronous mode for the lifetime of the process.
	TemporalAddress       string
	TemporalNamespace     string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string
	BrokerProbeTimeout    time.Duration

	EmissionTaskQueue    string
	EmissionMaxAttempts  int
	EmissionAttemptLease time.Duration
	WorkerConcurrency    int

	// ReclaimCron schedules the sweep that re-emits records left pending or
	// stuck in_progress past the attempt lease. Empty disables it.
	ReclaimCron  string
	ReclaimBatch int

	CertValidityDays int
	CertNotesMaxLen  int

	// IssuerStub selects the placeholder renderer for every certificate type
	// unless IssuersFile overrides a specific type.
	IssuerStub         bool
	IssuersFile        string
	IssuerAgentURL     string
	IssuerAgentToken   string
	IssuerAgentTimeout time.Duration

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:     getEnv("SERVICE_NAME", ""),
		CoreDatabaseURL: getEnv("CORE_DATABASE_URL", ""),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
		BrokerProbeTimeout:    getEnvDuration("BROKER_PROBE_TIMEOUT", 5*time.Second),

		EmissionTaskQueue:    getEnv("EMISSION_TASK_QUEUE", "certificate-emission"),
		EmissionMaxAttempts:  getEnvInt("EMISSION_MAX_ATTEMPTS", 3),
		EmissionAttemptLease: getEnvDuration("EMISSION_ATTEMPT_LEASE", 10*time.Minute),
		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 4),

		ReclaimCron:  getEnv("EMISSION_RECLAIM_CRON", "*/15 * * * *"),
		ReclaimBatch: getEnvInt("EMISSION_RECLAIM_BATCH", 100),

		CertValidityDays: getEnvInt("CERT_VALIDITY_DAYS", 30),
		CertNotesMaxLen:  getEnvInt("CERT_NOTES_MAX_LEN", 500),

		IssuerStub:         getEnvBool("CERT_ISSUER_STUB", true),
		IssuersFile:        getEnv("CERT_ISSUERS_FILE", ""),
		IssuerAgentURL:     getEnv("ISSUER_AGENT_URL", ""),
		IssuerAgentToken:   getEnv("ISSUER_AGENT_TOKEN", ""),
		IssuerAgentTimeout: getEnvDuration("ISSUER_AGENT_TIMEOUT", 60*time.Second),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "certificates"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
	}

	return cfg, nil
}

// Validate checks that the fields required by the given binary are set.
// All missing fields are reported together.
func (c *Config) Validate(role string) error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch role {
	case "core-api":
		require("CORE_DATABASE_URL", c.CoreDatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
		require("S3_BUCKET", c.S3Bucket)
	case "worker":
		require("CORE_DATABASE_URL", c.CoreDatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("EMISSION_TASK_QUEUE", c.EmissionTaskQueue)
		require("S3_BUCKET", c.S3Bucket)
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	// ISSUER_AGENT_URL depends on the per-type overrides and is checked when
	// the issuer registry is built.

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}
	if c.EmissionMaxAttempts < 1 {
		return fmt.Errorf("EMISSION_MAX_ATTEMPTS must be at least 1")
	}
	if c.CertValidityDays < 1 {
		return fmt.Errorf("CERT_VALIDITY_DAYS must be at least 1")
	}
	if c.CertNotesMaxLen < 1 {
		return fmt.Errorf("CERT_NOTES_MAX_LEN must be at least 1")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
