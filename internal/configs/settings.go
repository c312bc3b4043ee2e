package configs

import (
	"log"
	"os"
	"path/filepath"
)

type UserSettings struct {
	UserConfigPath string
	UserDataPath   string
}

var UserVaultSettings *UserSettings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	// Independent of which vault is in use, so it is ok to init here.
	UserVaultSettings = &UserSettings{
		UserConfigPath: filepath.Join(configDir, "tmvault"),
		UserDataPath:   filepath.Join(dataDir, "tmvault"),
	}
}

// ConfigFilePath returns the path of the user's config.toml.
func ConfigFilePath() string {
	return filepath.Join(UserVaultSettings.UserConfigPath, "config.toml")
}
