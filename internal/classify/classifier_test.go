package classify

import (
	"testing"

	"github.com/rendinam/logparse/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.InfrastructureHosts = []string{"10.1.0.5", "10.1.0.6"}
	cfg.InternalHostSpecs = []string{`10\.1\.`, `192\.168\.`}
	return cfg
}

func TestClassify(t *testing.T) {
	cls, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	tests := []struct {
		ip   string
		want Origin
	}{
		{"10.1.0.5", Infrastructure},
		{"10.1.0.6", Infrastructure},
		{"10.1.42.7", Internal},
		{"192.168.3.4", Internal},
		{"8.8.8.8", External},
		// Internal specs anchor at the start of the address.
		{"88.10.1.1", External},
	}

	for _, tt := range tests {
		if got := cls.Classify(tt.ip); got != tt.want {
			t.Errorf("Classify(%s) = %s, want %s", tt.ip, got, tt.want)
		}
	}
}

func TestNew_BadSpec(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.InternalHostSpecs = []string{"10.1.("}
	if _, err := New(cfg); err == nil {
		t.Error("expected error for invalid internal host spec")
	}
}
