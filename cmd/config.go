package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/webscan/internal/application"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	History HistoryConfig
	Scan    ScanRuntimeConfig
}

// HistoryConfig selects the history backend.
type HistoryConfig struct {
	Backend string
	Path    string
	DSN     string
}

// ScanRuntimeConfig consolidates flag-driven settings for the scan command.
type ScanRuntimeConfig struct {
	Concurrency      int
	RateLimit        int
	Timeout          time.Duration
	RobotsTimeout    time.Duration
	TelemetryEnabled bool
	ProgressEnabled  bool
}

type defaultOverrides struct {
	Concurrency      *int
	RateLimit        *int
	Timeout          *time.Duration
	RobotsTimeout    *time.Duration
	TelemetryEnabled *bool
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		History: HistoryConfig{
			Backend: application.BackendCSV,
		},
		Scan: ScanRuntimeConfig{
			Concurrency:   consts.DefaultConcurrency,
			RateLimit:     0,
			Timeout:       consts.PrimaryProbeTimeout,
			RobotsTimeout: consts.RobotsProbeTimeout,
		},
	}
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{}

	if viper.IsSet("scan.concurrency") {
		val := viper.GetInt("scan.concurrency")
		overrides.Concurrency = &val
	}

	if viper.IsSet("scan.rate_limit") {
		val := viper.GetInt("scan.rate_limit")
		overrides.RateLimit = &val
	}

	if viper.IsSet("probe.timeout") {
		val := viper.GetDuration("probe.timeout")
		overrides.Timeout = &val
	}

	if viper.IsSet("probe.robots_timeout") {
		val := viper.GetDuration("probe.robots_timeout")
		overrides.RobotsTimeout = &val
	}

	if viper.IsSet("telemetry") {
		val := viper.GetBool("telemetry")
		overrides.TelemetryEnabled = &val
	}

	return overrides
}

// applyConfigDefaults merges config file and environment values into the runtime config
// when the user did not explicitly set the corresponding flag.
func applyConfigDefaults(flags *pflag.FlagSet) {
	if v := viper.GetString("history.backend"); v != "" {
		applyStringDefault(flags, "history-backend", v, func(v string) {
			cliConfig.History.Backend = v
		})
	}
	if v := viper.GetString("history.path"); v != "" {
		cliConfig.History.Path = v
	}
	if v := viper.GetString("history.dsn"); v != "" {
		cliConfig.History.DSN = v
	}

	overrides := loadDefaultOverrides()

	if overrides.Concurrency != nil {
		applyIntDefault(flags, "concurrency", *overrides.Concurrency, func(v int) {
			cliConfig.Scan.Concurrency = v
		})
	}

	if overrides.RateLimit != nil {
		applyIntDefault(flags, "rate-limit", *overrides.RateLimit, func(v int) {
			cliConfig.Scan.RateLimit = v
		})
	}

	if overrides.Timeout != nil {
		applyDurationDefault(flags, "timeout", *overrides.Timeout, func(v time.Duration) {
			cliConfig.Scan.Timeout = v
		})
	}

	if overrides.RobotsTimeout != nil {
		cliConfig.Scan.RobotsTimeout = *overrides.RobotsTimeout
	}

	if overrides.TelemetryEnabled != nil {
		applyBoolDefault(flags, "telemetry", *overrides.TelemetryEnabled, func(v bool) {
			cliConfig.Scan.TelemetryEnabled = v
		})
	}
}

// containerConfig maps the CLI view of configuration onto the application container.
func (c *CLIConfig) containerConfig(dataDir string) application.Config {
	return application.Config{
		DataDir:       dataDir,
		Backend:       c.History.Backend,
		HistoryPath:   c.History.Path,
		DSN:           c.History.DSN,
		Concurrency:   c.Scan.Concurrency,
		RateLimit:     c.Scan.RateLimit,
		Timeout:       c.Scan.Timeout,
		RobotsTimeout: c.Scan.RobotsTimeout,
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyDurationDefault(flags *pflag.FlagSet, name string, value time.Duration, setter func(time.Duration)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
