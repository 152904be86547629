// Package config loads application configuration into an explicit struct.
//
// Nothing in the engine reads ambient process state: the holiday country,
// grade list, leave types and retention window are all resolved here once
// and handed to constructors.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the engine needs at construction time.
type Config struct {
	// HTTP
	Port string

	// SQLite database path. ":memory:" for ephemeral.
	DatabasePath string

	// HolidayCountry selects the statutory holiday rules ("MA", "FR", ...).
	HolidayCountry string

	// Grades an agent may hold. The first entry is the default.
	Grades []string

	// RetentionYears is how many fiscal years (counted back from the
	// current exercise, inclusive) stay Active before expiry.
	RetentionYears int

	// CertificatesDir stores sick-leave certificates referenced by leaves.
	CertificatesDir string

	// DecisionsDir stores generated leave-decision PDFs.
	DecisionsDir string

	LogLevel string
}

// Load reads an optional conges.yaml plus CONGES_* env vars.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("conges")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CONGES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("database_path", "conges.db")
	v.SetDefault("holiday_country", "MA")
	v.SetDefault("grades", []string{"Administrateur", "Technicien", "Ingénieur", "Rédacteur"})
	v.SetDefault("retention_years", 3)
	v.SetDefault("certificates_dir", "storage/certificats")
	v.SetDefault("decisions_dir", "storage/decisions")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		// Missing file is fine, defaults and env carry the day.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, err
		}
	}

	return &Config{
		Port:            v.GetString("port"),
		DatabasePath:    v.GetString("database_path"),
		HolidayCountry:  v.GetString("holiday_country"),
		Grades:          v.GetStringSlice("grades"),
		RetentionYears:  v.GetInt("retention_years"),
		CertificatesDir: v.GetString("certificates_dir"),
		DecisionsDir:    v.GetString("decisions_dir"),
		LogLevel:        v.GetString("log_level"),
	}, nil
}

// DefaultGrade returns the grade applied when an import row omits one.
func (c *Config) DefaultGrade() string {
	if len(c.Grades) == 0 {
		return "Administrateur"
	}
	return c.Grades[0]
}

// ValidGrade reports whether g is one of the configured grades.
func (c *Config) ValidGrade(g string) bool {
	for _, grade := range c.Grades {
		if grade == g {
			return true
		}
	}
	return false
}
