package config

const (
	defaultLogDir      = "~/.local/share/qbridge/logs"
	defaultRuntimeDir  = "~/.local/state/qbridge"
	defaultBus         = BusAddress
	defaultAddress     = "unix:path=/run/agama/bus"
	defaultService     = "org.opensuse.Agama1"
	defaultRootPath    = "/org/opensuse/Agama1/Questions"
	defaultAPIBind     = "127.0.0.1:3000"
	defaultNtfyTimeout = 10
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Bus selectors accepted by dbus.bus.
const (
	BusAddress = "address"
	BusSystem  = "system"
	BusSession = "session"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			RuntimeDir: defaultRuntimeDir,
		},
		DBus: DBus{
			Bus:      defaultBus,
			Address:  defaultAddress,
			Service:  defaultService,
			RootPath: defaultRootPath,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
