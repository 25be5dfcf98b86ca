package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func d(sec int) time.Duration { return time.Duration(sec) * time.Second }

var agentEnvKeys = []string{
	"ADDRESS", "REDIS_ADDRESS", "REDIS_STREAM", "PROM_ADDRESS", "KEY",
	"AUDIT_FILE", "AUDIT_URL", "INITIAL_DELAY", "REPORT_INTERVAL",
	"POLL_INTERVAL", "STOP_TIMEOUT", "RATE_LIMIT", "CONFIG",
}

func TestLoadAgentConfig(t *testing.T) {
	tests := []struct {
		env       map[string]string
		name      string
		file      string
		wantError string
		args      []string
		want      AgentConfig
	}{
		{
			name: "defaults",
			args: []string{},
			env:  map[string]string{},
			want: AgentConfig{
				ReportInterval: d(defaultReportInterval),
				PollInterval:   d(defaultPollInterval),
				StopTimeout:    d(defaultStopTimeout),
				RateLimit:      defaultRateLimit,
			},
		},
		{
			name: "env override flags",
			args: []string{"-a", "https://srv.example.com:9090", "-s", "flag-host:1", "-r", "7", "-p", "4", "-k", "hello", "-l", "5"},
			env: map[string]string{
				"ADDRESS":         "https://env-ignored:1234",
				"REDIS_ADDRESS":   "localhost:6379",
				"REPORT_INTERVAL": "99s",
				"POLL_INTERVAL":   "77s",
				"INITIAL_DELAY":   "1",
				"STOP_TIMEOUT":    "9",
				"KEY":             "world",
				"RATE_LIMIT":      "3",
			},
			want: AgentConfig{
				Address:        "https://env-ignored:1234",
				RedisAddr:      "localhost:6379",
				Key:            "world",
				InitialDelay:   1 * time.Second,
				ReportInterval: 99 * time.Second,
				PollInterval:   77 * time.Second,
				StopTimeout:    9 * time.Second,
				RateLimit:      3,
			},
		},
		{
			name: "only flags",
			args: []string{"-a", "https://srv.example.com:9090", "-s", "localhost:6380", "-m", ":9100", "-r", "7", "-p", "4", "-k", "hello", "-l", "5"},
			env:  map[string]string{},
			want: AgentConfig{
				Address:        "https://srv.example.com:9090",
				RedisAddr:      "localhost:6380",
				PromAddr:       ":9100",
				Key:            "hello",
				ReportInterval: 7 * time.Second,
				PollInterval:   4 * time.Second,
				StopTimeout:    d(defaultStopTimeout),
				RateLimit:      5,
			},
		},
		{
			name: "env fallback",
			args: []string{},
			env: map[string]string{
				"ADDRESS":         "https://api.example.com:1234",
				"REDIS_STREAM":    "custom:stream",
				"PROM_ADDRESS":    "127.0.0.1:9216",
				"AUDIT_FILE":      "/tmp/audit.log",
				"AUDIT_URL":       "http://audit.example.com/events",
				"INITIAL_DELAY":   "3",
				"REPORT_INTERVAL": "15s",
				"POLL_INTERVAL":   "3s",
			},
			want: AgentConfig{
				Address:        "https://api.example.com:1234",
				RedisStream:    "custom:stream",
				PromAddr:       "127.0.0.1:9216",
				AuditFile:      "/tmp/audit.log",
				AuditURL:       "http://audit.example.com/events",
				InitialDelay:   3 * time.Second,
				ReportInterval: 15 * time.Second,
				PollInterval:   3 * time.Second,
				StopTimeout:    d(defaultStopTimeout),
				RateLimit:      defaultRateLimit,
			},
		},
		{
			name: "config file only",
			args: []string{},
			env:  map[string]string{},
			file: `address: cfg.example.com:8088
redis_addr: localhost:6379
redis_stream: custom:stream
prom_addr: ":9101"
key: file-key
audit_file: /tmp/a.log
initial_delay: 2
report_interval: 30
poll_interval: 5s
stop_timeout: 7s
rate_limit: 4
`,
			want: AgentConfig{
				Address:        "http://cfg.example.com:8088",
				RedisAddr:      "localhost:6379",
				RedisStream:    "custom:stream",
				PromAddr:       ":9101",
				Key:            "file-key",
				AuditFile:      "/tmp/a.log",
				InitialDelay:   2 * time.Second,
				ReportInterval: 30 * time.Second,
				PollInterval:   5 * time.Second,
				StopTimeout:    7 * time.Second,
				RateLimit:      4,
			},
		},
		{
			name: "flags override config file",
			args: []string{"-a", "flags.example.com:9001", "-r", "12"},
			env:  map[string]string{},
			file: `address: cfg.example.com:8088
report_interval: 30
`,
			want: AgentConfig{
				Address:        "http://flags.example.com:9001",
				ReportInterval: 12 * time.Second,
				PollInterval:   d(defaultPollInterval),
				StopTimeout:    d(defaultStopTimeout),
				RateLimit:      defaultRateLimit,
			},
		},
		{
			name: "invalid report interval from env",
			args: []string{},
			env: map[string]string{
				"REPORT_INTERVAL": "-1s",
				"POLL_INTERVAL":   "2s",
			},
			wantError: "report interval must be > 0",
		},
		{
			name: "invalid poll interval from env",
			args: []string{},
			env: map[string]string{
				"REPORT_INTERVAL": "1s",
				"POLL_INTERVAL":   "0s",
			},
			wantError: "poll interval must be > 0",
		},
		{
			name: "invalid stop timeout from env",
			args: []string{},
			env: map[string]string{
				"STOP_TIMEOUT": "0",
			},
			wantError: "stop timeout must be > 0",
		},
		{
			name:      "invalid redis address",
			args:      []string{"-s", "noport"},
			env:       map[string]string{},
			wantError: "invalid redis address",
		},
		{
			name:      "invalid prometheus address",
			args:      []string{"-m", "9100"},
			env:       map[string]string{},
			wantError: "invalid prometheus address",
		},
		{
			name: "invalid audit url",
			args: []string{},
			env: map[string]string{
				"AUDIT_URL": "::bad",
			},
			wantError: "invalid audit url",
		},
		{
			name:      "invalid duration in config file",
			args:      []string{},
			env:       map[string]string{},
			file:      "report_interval: bogus\n",
			wantError: "config file report_interval",
		},
		{
			name:      "malformed config file",
			args:      []string{},
			env:       map[string]string{},
			file:      "address: [\n",
			wantError: "parse config file",
		},
		{
			name:      "flag parse error",
			args:      []string{"-r", "oops"},
			env:       map[string]string{},
			wantError: "invalid value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range agentEnvKeys {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			args := tt.args
			if tt.file != "" {
				path := filepath.Join(t.TempDir(), "agent.yaml")
				if err := os.WriteFile(path, []byte(tt.file), 0o600); err != nil {
					t.Fatalf("write config: %v", err)
				}
				args = append(append([]string{}, args...), "-c", path)
			}

			got, err := LoadAgentConfig(args, os.Stderr)
			if tt.wantError != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tt.wantError)
				}
				if !strings.Contains(err.Error(), tt.wantError) {
					t.Fatalf("expected error %q, got %v", tt.wantError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("config mismatch:\n got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestLoadAgentConfig_ConfigEnvVar(t *testing.T) {
	for _, k := range agentEnvKeys {
		t.Setenv(k, "")
	}

	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("key: from-env-config\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG", path)

	got, err := LoadAgentConfig(nil, os.Stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Key != "from-env-config" {
		t.Fatalf("Key = %q, want %q", got.Key, "from-env-config")
	}
}

func TestLoadAgentConfig_MissingConfigFile(t *testing.T) {
	for _, k := range agentEnvKeys {
		t.Setenv(k, "")
	}

	_, err := LoadAgentConfig([]string{"-c", filepath.Join(t.TempDir(), "nope.yaml")}, os.Stderr)
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestNormalizeAddressURL(t *testing.T) {
	cases := map[string]string{
		"":                   "http://localhost:8080",
		"   ":                "http://localhost:8080",
		"example.com:9999":   "http://example.com:9999",
		"localhost:8000":     "http://localhost:8000",
		":8081":              "http://localhost:8081",
		"  :8081  ":          "http://localhost:8081",
		"http://ex.com:80":   "http://ex.com:80",
		"https://ex.com:443": "https://ex.com:443",
		"://bad":             "http://localhost://bad",
	}
	for in, want := range cases {
		if got := normalizeAddressURL(in); got != want {
			t.Errorf("normalizeAddressURL(%q): want %q, got %q", in, want, got)
		}
	}
}
