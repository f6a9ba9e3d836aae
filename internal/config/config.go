// Package config loads and saves the tallied.yaml project configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level tallied.yaml configuration.
type Config struct {
	Business Business `yaml:"business"`
	HMRC     HMRC     `yaml:"hmrc"`
	Tax      Tax      `yaml:"tax"`
	Data     Data     `yaml:"data"`
}

// Business identifies the business entity.
type Business struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
	Currency   string `yaml:"currency"`
}

// HMRC holds the authority registration: the application credentials from
// the developer hub and the taxpayer references.
type HMRC struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Endpoint     string `yaml:"endpoint"`
	RedirectURI  string `yaml:"redirect_uri"`
	VRN          string `yaml:"vrn"`           // VAT registration number
	UTR          string `yaml:"utr,omitempty"` // unique taxpayer reference
}

// Tax pins the statutory configuration version used for computation.
type Tax struct {
	ConfigVersion string `yaml:"config_version"`
}

// Data locates the document store.
type Data struct {
	Path string `yaml:"path"`
}

// Default returns the starting configuration for a new books directory.
func Default(name string) *Config {
	return &Config{
		Business: Business{Name: name, EntityType: "ltd", Currency: "GBP"},
		HMRC: HMRC{
			Endpoint:    "https://test-api.service.hmrc.gov.uk",
			RedirectURI: "http://localhost:8000/callback",
		},
		Tax:  Tax{ConfigVersion: "uk-2022-23"},
		Data: Data{Path: "tallied.db"},
	}
}

// Load reads a tallied.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a config to disk as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
