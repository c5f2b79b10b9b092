package config

// Config is the top-level flowcanvas configuration, corresponding to
// .flowcanvas.yml.
type Config struct {
	// ServerURL is the base URL the CLI and editor sync layer talk to.
	ServerURL string       `yaml:"server_url" koanf:"server_url"`
	Database  string       `yaml:"database" koanf:"database"`
	Server    ServerConfig `yaml:"server" koanf:"server"`
	Editor    EditorConfig `yaml:"editor" koanf:"editor"`
}

// ServerConfig holds settings for the persistence server.
type ServerConfig struct {
	Port int `yaml:"port" koanf:"port"`
	// AllowAllOrigins opens CORS to any origin. Dev mode only.
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// EditorConfig holds client-side editing defaults.
type EditorConfig struct {
	// AutosaveDelayMS is the debounce window for config-edit autosave,
	// in milliseconds.
	AutosaveDelayMS int `yaml:"autosave_delay_ms" koanf:"autosave_delay_ms"`
	// ConfirmDelete gates node deletion behind a confirmation prompt.
	ConfirmDelete bool `yaml:"confirm_delete" koanf:"confirm_delete"`
}
