package config

// DefaultPort is the port the persistence server listens on unless
// configured otherwise.
const DefaultPort = 8980

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:8980",
		Database:  "flowcanvas.db",
		Server: ServerConfig{
			Port:            DefaultPort,
			AllowAllOrigins: false,
		},
		Editor: EditorConfig{
			AutosaveDelayMS: 2000,
			ConfirmDelete:   true,
		},
	}
}
