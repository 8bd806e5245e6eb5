package config

import (
	"os"

	"codeberg.org/mutker/powerhintd/internal/errors"
	"github.com/spf13/viper"
)

// Properties is a flat key/value store persisted across restarts, keyed by
// dotted names such as "vendor.powerhal.state".
type Properties map[string]string

// Get returns the value stored under key, or def when absent.
func (p Properties) Get(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}

	return def
}

// LoadProperties reads a TOML file of quoted dotted keys. A missing file
// yields an empty set.
func LoadProperties(path string) (Properties, error) {
	errFactory := errors.New()
	props := Properties{}

	if path == "" {
		return props, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return props, nil
	}

	// Dotted property names must not be split into nested tables.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadProperties, err)
	}

	for _, key := range v.AllKeys() {
		props[key] = v.GetString(key)
	}

	return props, nil
}
