package main

import "github.com/BurntSushi/toml"

// operatorConfig is ubicctl's own configuration: operator conveniences
// for the CLI binary, not a service-definition format. Targets are
// still built from flags on each invocation.
type operatorConfig struct {
	PidfileDir string `toml:"pidfile_dir"`
	LogDir     string `toml:"log_dir"`
	Color      string `toml:"color"` // "auto", "always", "never"
}

func defaultOperatorConfig() operatorConfig {
	return operatorConfig{
		PidfileDir: "/var/run",
		LogDir:     "/var/log",
		Color:      "auto",
	}
}

func loadOperatorConfig(path string) (operatorConfig, error) {
	cfg := defaultOperatorConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
