package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	defaultServerAddr     = "http://localhost:8080"
	defaultReportInterval = 10
	defaultPollInterval   = 2
	defaultStopTimeout    = 5
	defaultRateLimit      = 1
)

// AgentConfig carries the resolved agent settings. Address, RedisAddr, and
// PromAddr default to empty, meaning the corresponding sink is disabled.
type AgentConfig struct {
	Address        string
	RedisAddr      string
	RedisStream    string
	PromAddr       string
	Key            string
	AuditFile      string
	AuditURL       string
	InitialDelay   time.Duration
	ReportInterval time.Duration
	PollInterval   time.Duration
	StopTimeout    time.Duration
	RateLimit      int
}

// ENV > CLI > config file > defaults
func LoadAgentConfig(args []string, out io.Writer) (AgentConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt string
	var redisOpt string
	var promOpt string
	var keyOpt string
	var reportOpt int
	var pollOpt int
	var limitOpt int
	var fileOpt string

	fs.StringVar(&addrOpt, "a", "", "server address (host:port or URL) for the HTTP sink, empty disables it")
	fs.StringVar(&redisOpt, "s", "", "redis address (host:port) for the stream sink, empty disables it")
	fs.StringVar(&promOpt, "m", "", "prometheus exporter listen address (host:port), empty disables it")
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 header")
	fs.IntVar(&reportOpt, "r", 0, fmt.Sprintf("report interval in seconds, default: %d", defaultReportInterval))
	fs.IntVar(&pollOpt, "p", 0, fmt.Sprintf("poll interval in seconds, default: %d", defaultPollInterval))
	fs.IntVar(&limitOpt, "l", 0, fmt.Sprintf("rate limit (max concurrent publishes), default: %d", defaultRateLimit))
	fs.StringVar(&fileOpt, "c", "", "path to a YAML config file")

	if err := fs.Parse(args); err != nil {
		return AgentConfig{}, err
	}

	fc, err := loadFileConfig(resolveString("CONFIG", fileOpt, "", ""))
	if err != nil {
		return AgentConfig{}, err
	}

	addr := resolveString("ADDRESS", addrOpt, fc.Address, "")
	if addr != "" {
		addr = normalizeAddressURL(addr)
		if _, err := url.ParseRequestURI(addr); err != nil {
			return AgentConfig{}, fmt.Errorf("invalid server address: %q", addr)
		}
	}

	redisAddr := resolveString("REDIS_ADDRESS", redisOpt, fc.RedisAddr, "")
	if redisAddr != "" {
		if _, _, err := net.SplitHostPort(redisAddr); err != nil {
			return AgentConfig{}, fmt.Errorf("invalid redis address: %q", redisAddr)
		}
	}

	promAddr := resolveString("PROM_ADDRESS", promOpt, fc.PromAddr, "")
	if promAddr != "" {
		if _, _, err := net.SplitHostPort(promAddr); err != nil {
			return AgentConfig{}, fmt.Errorf("invalid prometheus address: %q", promAddr)
		}
	}

	auditURL := resolveString("AUDIT_URL", "", fc.AuditURL, "")
	if auditURL != "" {
		if _, err := url.ParseRequestURI(auditURL); err != nil {
			return AgentConfig{}, fmt.Errorf("invalid audit url: %q", auditURL)
		}
	}

	report, err := resolveDuration("REPORT_INTERVAL", reportOpt, fc.ReportInterval, time.Duration(defaultReportInterval)*time.Second)
	if err != nil {
		return AgentConfig{}, err
	}
	if report <= 0 {
		return AgentConfig{}, fmt.Errorf("report interval must be > 0, got %v", report)
	}

	poll, err := resolveDuration("POLL_INTERVAL", pollOpt, fc.PollInterval, time.Duration(defaultPollInterval)*time.Second)
	if err != nil {
		return AgentConfig{}, err
	}
	if poll <= 0 {
		return AgentConfig{}, fmt.Errorf("poll interval must be > 0, got %v", poll)
	}

	initial, err := resolveDuration("INITIAL_DELAY", 0, fc.InitialDelay, 0)
	if err != nil {
		return AgentConfig{}, err
	}
	if initial < 0 {
		initial = 0
	}

	stop, err := resolveDuration("STOP_TIMEOUT", 0, fc.StopTimeout, time.Duration(defaultStopTimeout)*time.Second)
	if err != nil {
		return AgentConfig{}, err
	}
	if stop <= 0 {
		return AgentConfig{}, fmt.Errorf("stop timeout must be > 0, got %v", stop)
	}

	return AgentConfig{
		Address:        addr,
		RedisAddr:      redisAddr,
		RedisStream:    resolveString("REDIS_STREAM", "", fc.RedisStream, ""),
		PromAddr:       promAddr,
		Key:            resolveString("KEY", keyOpt, fc.Key, ""),
		AuditFile:      resolveString("AUDIT_FILE", "", fc.AuditFile, ""),
		AuditURL:       auditURL,
		InitialDelay:   initial,
		ReportInterval: report,
		PollInterval:   poll,
		StopTimeout:    stop,
		RateLimit:      resolveInt("RATE_LIMIT", limitOpt, fc.RateLimit, defaultRateLimit, 1),
	}, nil
}

func normalizeAddressURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultServerAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + s
}
