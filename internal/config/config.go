package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// OutputDir is the directory that owns the run's CSV, assets and archive
	OutputDir string
	// RequestInterval is the minimum spacing between outbound requests
	RequestInterval time.Duration
	// UserAgent is sent on every catalog request
	UserAgent string
)

// InitConfig initializes the global configuration
func InitConfig() {
	viper.SetDefault("OutputDir", "./books")
	viper.SetDefault("RequestInterval", "200ms")
	viper.SetDefault("UserAgent", "alexandria/1.0 (+https://github.com/lepinkainen/alexandria)")

	OutputDir = viper.GetString("OutputDir")
	RequestInterval = viper.GetDuration("RequestInterval")
	UserAgent = viper.GetString("UserAgent")
}

// SetOutputDir sets the output directory, overriding the config file value
func SetOutputDir(dir string) {
	if dir != "" {
		OutputDir = dir
	}
}

// ParseLanguages splits a comma-separated language list into a set.
// An empty input means no filtering.
func ParseLanguages(value string) map[string]bool {
	langs := make(map[string]bool)
	for _, lang := range strings.Split(value, ",") {
		lang = strings.TrimSpace(strings.ToLower(lang))
		if lang != "" {
			langs[lang] = true
		}
	}
	if len(langs) == 0 {
		return nil
	}
	return langs
}
