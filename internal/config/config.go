package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"rakshak/internal/kb"
)

// MaxShelterResults caps nearest_shelter_count regardless of config.
const MaxShelterResults = 5

type Config struct {
	ConfidenceFloor        float64  `mapstructure:"confidence_floor"`
	MaxUtteranceLength     int      `mapstructure:"max_utterance_length"`
	NearestShelterCount    int      `mapstructure:"nearest_shelter_count"`
	SuggestOnLowConfidence bool     `mapstructure:"suggest_on_low_confidence"`
	HistoryDisplayCap      int      `mapstructure:"history_display_cap"`
	DataDir                string   `mapstructure:"data_dir"`
	SocketPath             string   `mapstructure:"socket_path"`
	BusURL                 string   `mapstructure:"bus_url"`
	ReferenceLatitude      float64  `mapstructure:"reference_latitude"`
	ReferenceLongitude     float64  `mapstructure:"reference_longitude"`
	SMSEnabled             bool     `mapstructure:"sms_enabled"`
	SMSContacts            []string `mapstructure:"sms_contacts"`
}

func (c *Config) ReferenceLocation() kb.Coordinate {
	return kb.Coordinate{Latitude: c.ReferenceLatitude, Longitude: c.ReferenceLongitude}
}

// Load layers defaults, an optional YAML file and RAKSHAK_* environment
// variables. path == "" means "use ./rakshak.yaml if present".
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("confidence_floor", 0.6)
	v.SetDefault("max_utterance_length", 256)
	v.SetDefault("nearest_shelter_count", 2)
	v.SetDefault("suggest_on_low_confidence", true)
	v.SetDefault("history_display_cap", 100)
	v.SetDefault("data_dir", "data")
	v.SetDefault("socket_path", "/tmp/rakshak.sock")
	v.SetDefault("bus_url", "")
	v.SetDefault("reference_latitude", 28.6139)
	v.SetDefault("reference_longitude", 77.2090)
	v.SetDefault("sms_enabled", true)
	v.SetDefault("sms_contacts", []string{})

	v.SetEnvPrefix("RAKSHAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else {
		v.SetConfigName("rakshak")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// Optional: defaults and env are enough on their own.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// A zero floor would accept any nonzero similarity, and the matcher
	// treats zero as "use the default"; require an explicit positive value.
	if c.ConfidenceFloor <= 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("config: confidence_floor %v outside (0,1]", c.ConfidenceFloor)
	}
	if c.MaxUtteranceLength <= 0 {
		return fmt.Errorf("config: max_utterance_length must be positive")
	}
	if c.NearestShelterCount <= 0 {
		return fmt.Errorf("config: nearest_shelter_count must be positive")
	}
	if c.NearestShelterCount > MaxShelterResults {
		c.NearestShelterCount = MaxShelterResults
	}
	if !c.ReferenceLocation().Valid() {
		return fmt.Errorf("config: invalid reference location (%f, %f)",
			c.ReferenceLatitude, c.ReferenceLongitude)
	}
	return nil
}
