package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name   string
		check  func(*Config) bool
		expect string
	}{
		{
			name:   "default host is 0.0.0.0",
			check:  func(c *Config) bool { return c.Host == "0.0.0.0" },
			expect: "0.0.0.0",
		},
		{
			name:   "default port is 8080",
			check:  func(c *Config) bool { return c.Port == 8080 },
			expect: "8080",
		},
		{
			name:   "default log level is info",
			check:  func(c *Config) bool { return c.LogLevel == "info" },
			expect: "info",
		},
		{
			name:   "default log format is json",
			check:  func(c *Config) bool { return c.LogFormat == "json" },
			expect: "json",
		},
		{
			name:   "default schema cache ttl",
			check:  func(c *Config) bool { return c.SchemaCacheTTL == "5m" },
			expect: "5m",
		},
		{
			name:   "default pattern cache ttl",
			check:  func(c *Config) bool { return c.PatternCacheTTL == "30m" },
			expect: "30m",
		},
		{
			name:   "default adapter timeout",
			check:  func(c *Config) bool { return c.AdapterTimeout == "30s" },
			expect: "30s",
		},
		{
			name:   "model name reuse disallowed by default",
			check:  func(c *Config) bool { return c.ModelNameReuseAllowed == false },
			expect: "false",
		},
		{
			name:   "listen addr format",
			check:  func(c *Config) bool { return c.ListenAddr() == "0.0.0.0:8080" },
			expect: "0.0.0.0:8080",
		},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("expected %s", tt.expect)
			}
		})
	}
}
