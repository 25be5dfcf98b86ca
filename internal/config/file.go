package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors AgentConfig in the optional YAML config file. Duration
// fields accept integer seconds or Go duration syntax.
type fileConfig struct {
	Address        string `yaml:"address"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisStream    string `yaml:"redis_stream"`
	PromAddr       string `yaml:"prom_addr"`
	Key            string `yaml:"key"`
	AuditFile      string `yaml:"audit_file"`
	AuditURL       string `yaml:"audit_url"`
	InitialDelay   string `yaml:"initial_delay"`
	ReportInterval string `yaml:"report_interval"`
	PollInterval   string `yaml:"poll_interval"`
	StopTimeout    string `yaml:"stop_timeout"`
	RateLimit      int    `yaml:"rate_limit"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}
