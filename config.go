package tideline

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config tunes a Paginator.
//
// Example YAML:
//
//	max_limit: 100
//	max_count_new_limit: 500
//	anchor_miss: nearest
type Config struct {
	// AnchorMiss decides how an emulated window is positioned when the anchor
	// matches no row. Defaults to AnchorMissNewest.
	AnchorMiss AnchorMissPolicy `yaml:"anchor_miss" json:"anchor_miss"`

	// Logger receives debug traces of each resolution. The zero value is silent.
	Logger zerolog.Logger `yaml:"-" json:"-"`

	// MaxCountNewLimit rejects requests whose count-new lookahead exceeds it. Zero disables the check.
	MaxCountNewLimit int `yaml:"max_count_new_limit" json:"max_count_new_limit"`

	// MaxLimit rejects requests whose page size exceeds it. Zero disables the check.
	MaxLimit int `yaml:"max_limit" json:"max_limit"`
}

func (config Config) Validate() error {
	switch config.AnchorMiss {
	case "", AnchorMissNewest, AnchorMissNearest, AnchorMissError:
	default:
		return fmt.Errorf("tideline: invalid anchor_miss '%s'. Must be one of: newest, nearest, error", config.AnchorMiss)
	}
	if config.MaxLimit < 0 {
		return fmt.Errorf("tideline: max_limit must not be negative")
	}
	if config.MaxCountNewLimit < 0 {
		return fmt.Errorf("tideline: max_count_new_limit must not be negative")
	}
	return nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tideline: reading config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("tideline: parsing config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
