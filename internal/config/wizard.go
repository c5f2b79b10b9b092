package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .flowcanvas.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to flowcanvas! Let's configure your project.")
	fmt.Println()

	defaults := DefaultConfig()

	// 1. Server port.
	portPrompt := promptui.Prompt{
		Label:   "Port for the persistence server",
		Default: strconv.Itoa(defaults.Server.Port),
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p < 1 || p > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 2. Database path.
	dbPrompt := promptui.Prompt{
		Label:   "SQLite database file",
		Default: defaults.Database,
	}
	database, err := dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	// 3. Server URL the editor syncs against.
	urlPrompt := promptui.Prompt{
		Label:   "Server URL for the editor and CLI",
		Default: fmt.Sprintf("http://localhost:%d", port),
	}
	serverURL, err := urlPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}

	// 4. CORS policy.
	corsPrompt := promptui.Select{
		Label: "CORS origins",
		Items: []string{
			"localhost only (recommended)",
			"allow all origins (dev mode)",
		},
	}
	corsIdx, _, err := corsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("cors policy: %w", err)
	}

	// 5. Node delete confirmation.
	confirmPrompt := promptui.Select{
		Label: "Ask before deleting nodes",
		Items: []string{"yes", "no"},
	}
	confirmIdx, _, err := confirmPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("delete confirmation: %w", err)
	}

	cfg := &Config{
		ServerURL: serverURL,
		Database:  database,
		Server: ServerConfig{
			Port:            port,
			AllowAllOrigins: corsIdx == 1,
		},
		Editor: EditorConfig{
			AutosaveDelayMS: defaults.Editor.AutosaveDelayMS,
			ConfirmDelete:   confirmIdx == 0,
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}
