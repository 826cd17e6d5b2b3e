package config

const (
	defaultDeviceName        = "CoolLEDX"
	defaultAnimationsDir     = "~/.local/share/marquee/animations"
	defaultBlankAnimation    = "blank"
	defaultHelperBinary      = "coolledx-send"
	defaultConnectTimeout    = 10
	defaultConnectRetries    = 5
	defaultReconnectDelay    = 5
	defaultSendTimeout       = 60
	defaultStopTimeout       = 5
	defaultDataDir           = "~/.local/share/marquee"
	defaultLogDir            = "~/.local/share/marquee/logs"
	defaultAPIBind           = "127.0.0.1:7770"
	defaultPresetsFile       = "~/.config/marquee/presets.yaml"
	defaultHistoryKeep       = 500
	defaultNotifyTimeout     = 10
	defaultNotifyDedupWindow = 600
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Sign: Sign{
			DeviceName:     defaultDeviceName,
			AnimationsDir:  defaultAnimationsDir,
			BlankAnimation: defaultBlankAnimation,
			HelperBinary:   defaultHelperBinary,
			ConnectTimeout: defaultConnectTimeout,
			ConnectRetries: defaultConnectRetries,
			ReconnectDelay: defaultReconnectDelay,
			SendTimeout:    defaultSendTimeout,
			QueueLimit:     0,
			StopTimeout:    defaultStopTimeout,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Presets: Presets{
			File: defaultPresetsFile,
		},
		History: History{
			Enabled: true,
			Keep:    defaultHistoryKeep,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Connection:     true,
			Errors:         true,
			DedupWindow:    defaultNotifyDedupWindow,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
