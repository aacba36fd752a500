package config

const (
	defaultConfigPath              = "~/.config/ttm/config.toml"
	defaultDataDir                 = "~/.local/share/ttm"
	defaultAPIBind                 = "127.0.0.1:7491"
	defaultTickIntervalMS          = 1000
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultNotifyRequestTimeout    = 10
	minTickIntervalMS              = 50
	maxTickIntervalMS              = 60_000
	defaultStopOnExit              = false
	defaultCloseConflictingEntries = false
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			APIBind: defaultAPIBind,
		},
		Tracker: Tracker{
			TickIntervalMS:          defaultTickIntervalMS,
			StopOnExit:              defaultStopOnExit,
			CloseConflictingEntries: defaultCloseConflictingEntries,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			TimerStarted:   true,
			TimerStopped:   true,
		},
	}
}
