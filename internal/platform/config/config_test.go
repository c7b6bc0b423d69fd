package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.MaxAuditDuration != 300*time.Second {
		t.Errorf("MaxAuditDuration = %s, want 300s", cfg.MaxAuditDuration)
	}
	if cfg.FetchMinDelay != time.Second || cfg.FetchMaxDelay != 3*time.Second {
		t.Errorf("fetch delay = %s-%s, want 1s-3s", cfg.FetchMinDelay, cfg.FetchMaxDelay)
	}
	if cfg.S3.Enabled() {
		t.Error("archive should be disabled without S3_ENDPOINT")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_AUDIT_DURATION", "120")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("ALLOW_PRIVATE_TARGETS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.MaxAuditDuration != 120*time.Second {
		t.Errorf("MaxAuditDuration = %s, want 2m0s", cfg.MaxAuditDuration)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("FetchTimeout = %s, want 15s", cfg.FetchTimeout)
	}
	if !cfg.AllowPrivateTargets {
		t.Error("AllowPrivateTargets = false, want true")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{name: "bad port", env: map[string]string{"PORT": "abc"}, wantErr: errInvalidPort},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}, wantErr: errInvalidPort},
		{name: "zero workers", env: map[string]string{"AUDIT_WORKERS": "0"}, wantErr: errWorkersOutOfRange},
		{name: "too many probes", env: map[string]string{"PROBE_CONCURRENCY": "50"}, wantErr: errProbeConcurrencyRange},
		{name: "negative timeout", env: map[string]string{"FETCH_TIMEOUT": "-1s"}, wantErr: errNonPositiveDuration},
		{name: "inverted delay", env: map[string]string{"FETCH_MIN_DELAY": "5s", "FETCH_MAX_DELAY": "1s"}, wantErr: errDelayRange},
		{name: "partial s3", env: map[string]string{"S3_ENDPOINT": "minio:9000"}, wantErr: errIncompleteObjectStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
