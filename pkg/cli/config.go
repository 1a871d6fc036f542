package cli

import (
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"

	"github.com/Fepozopo/subsize/pkg/editor"
	"github.com/Fepozopo/subsize/pkg/sizes"
	"github.com/Fepozopo/subsize/pkg/subsize"
)

const (
	envConfig         = "SUBSIZE_CONFIG"
	envBackend        = "SUBSIZE_BACKEND"
	envThreshold      = "SUBSIZE_THRESHOLD"
	envQuality        = "SUBSIZE_QUALITY"
	envLogLevel       = "SUBSIZE_LOG_LEVEL"
	envForceIdentical = "SUBSIZE_FORCE_IDENTICAL"
)

// Config holds settings gathered from .env, the environment and the sizes
// file. Command line flags are applied on top by each command.
type Config struct {
	SizesFile      string
	Backend        string
	Threshold      int
	Quality        int
	LogLevel       hclog.Level
	ForceIdentical bool
}

// LoadDotEnv loads .env from the working directory. A missing file is not
// an error.
func LoadDotEnv() error {
	err := godotenv.Load()
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// LogLevel returns the level named by SUBSIZE_LOG_LEVEL, or Info.
func LogLevel() hclog.Level {
	if l := hclog.LevelFromString(os.Getenv(envLogLevel)); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}

// ConfigFromEnv reads the SUBSIZE_* variables. Invalid values are logged
// and replaced by their defaults.
func ConfigFromEnv(logger hclog.Logger) Config {
	cfg := Config{
		SizesFile: strings.TrimSpace(os.Getenv(envConfig)),
		Backend:   strings.TrimSpace(os.Getenv(envBackend)),
		Threshold: subsize.DefaultThreshold,
		Quality:   editor.DefaultQuality,
		LogLevel:  LogLevel(),
	}
	if v := os.Getenv(envThreshold); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("Invalid value, using default", "key", envThreshold, "value", v, "default", cfg.Threshold)
		} else {
			cfg.Threshold = n
		}
	}
	if v := os.Getenv(envQuality); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			logger.Warn("Invalid value, using default", "key", envQuality, "value", v, "default", cfg.Quality)
		} else {
			cfg.Quality = n
		}
	}
	if v := os.Getenv(envForceIdentical); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("Invalid value, using default", "key", envForceIdentical, "value", v, "default", false)
		} else {
			cfg.ForceIdentical = b
		}
	}
	return cfg
}

// Registry loads the sizes file, if any, and returns the registry it
// describes. Settings in the file override the environment.
func (c *Config) Registry() (*sizes.Registry, error) {
	if c.SizesFile == "" {
		return sizes.Default(), nil
	}
	file, err := sizes.LoadFile(c.SizesFile)
	if err != nil {
		return nil, err
	}
	if file.BigImageThreshold != nil {
		c.Threshold = *file.BigImageThreshold
	}
	if file.ForceIdentical {
		c.ForceIdentical = true
	}
	return file.Registry()
}
