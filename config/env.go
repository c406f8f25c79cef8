package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sarchlab/netsim/units"
)

// Environment variables that override the configuration file.
const (
	EnvSeed        = "NETSIM_SEED"
	EnvParallelism = "NETSIM_PARALLELISM"
	EnvStopTime    = "NETSIM_STOP_TIME"
	EnvLogLevel    = "NETSIM_LOG_LEVEL"
)

// LoadEnv loads environment files into the process environment. Variables
// already set take precedence. Without files, a .env file in the working
// directory is loaded if there is one.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		err := godotenv.Load()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}

	return godotenv.Load(files...)
}

// ApplyEnv overrides options with the NETSIM_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}

		c.General.Seed = &seed
	}

	if v, ok := os.LookupEnv(EnvParallelism); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvParallelism, err)
		}

		c.General.Parallelism = n
	}

	if v, ok := os.LookupEnv(EnvStopTime); ok {
		t, err := units.ParseInterval(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStopTime, err)
		}

		c.General.StopTime = units.Interval(t)
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.General.LogLevel = v
	}

	return nil
}
