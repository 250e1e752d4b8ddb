package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/uscensus/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Census configuration",
	Long: `Manage Census configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CENSUS_*, also read from ./.env)
3. Config file (~/.census/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, env vars and flags. API keys are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		configFile := viper.ConfigFileUsed()
		if configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		cfg.APIKey = mask(cfg.APIKey)
		cfg.CongressAPIKey = mask(cfg.CongressAPIKey)

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		fmt.Println(string(yamlData))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.census/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := filepath.Join(home, ".census")
		configPath := filepath.Join(configDir, "config.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'census config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close config file: %w", closeErr)
			}
		}()

		if err := writeDefaultConfig(f.Name(), f); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nSet your API key in the file, or export it:\n")
		fmt.Printf("  export CENSUS_API_KEY=...\n")
		fmt.Printf("\n")
		return nil
	},
}

// writeDefaultConfig writes the commented default configuration
func writeDefaultConfig(name string, f *os.File) (err error) {
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# Census Configuration File\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (CENSUS_*, e.g. CENSUS_API_KEY, CENSUS_CACHE_DIR)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")

	yamlData, mErr := yaml.Marshal(model.DefaultConfig())
	if mErr != nil {
		return fmt.Errorf("error marshaling config: %w", mErr)
	}
	printf("%s", yamlData)

	printf("\n# API keys (recommended to use environment variables instead):\n")
	printf("#   api_key: <census key from https://api.census.gov/data/key_signup.html>\n")
	printf("#   congress_api_key: <ProPublica Congress API key>\n")

	if err != nil {
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	return nil
}

// mask hides all but the last four characters of a secret
func mask(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
