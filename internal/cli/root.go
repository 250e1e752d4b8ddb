package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ppiankov/uscensus/internal/census"
	"github.com/ppiankov/uscensus/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is overridden at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	outFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "census",
	Short: "Census - query the American Community Survey API as tables",
	Long: `Census queries the U.S. Census Bureau's American Community Survey API
and prints the results as CSV.

Discovery (groups, variables, supported geographies) is cached on disk
per dataset; statistics are always fetched live.

An API key is required: set CENSUS_API_KEY (a .env file works too) or
api_key in ~/.census/config.yaml.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("census %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.census/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log API requests to stderr")
	flags.StringVarP(&outFile, "out", "o", "", "write CSV to this file instead of stdout")
	flags.Int("year", 0, "dataset year (default 2019)")
	flags.String("dataset", "", "dataset type (default acs)")
	flags.String("survey", "", "survey type (default acs1)")
	flags.String("cache-dir", "", "cache directory (default ./cache)")
	flags.Bool("no-cache", false, "do not read or write the on-disk cache")
	flags.Bool("fresh", false, "purge the on-disk cache before running")
	flags.Int("workers", 0, "concurrent stats requests (default 1)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("dataset.year", flags.Lookup("year"))
	_ = viper.BindPFlag("dataset.dataset_type", flags.Lookup("dataset"))
	_ = viper.BindPFlag("dataset.survey_type", flags.Lookup("survey"))
	_ = viper.BindPFlag("cache.dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("concurrency.workers", flags.Lookup("workers"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	setDefaults(model.DefaultConfig())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".census"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CENSUS_*, e.g. CENSUS_API_KEY
	// or CENSUS_CACHE_DIR for cache.dir
	viper.SetEnvPrefix("CENSUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so env vars and unmarshal see them
func setDefaults(cfg *model.Config) {
	viper.SetDefault("dataset.year", cfg.Dataset.Year)
	viper.SetDefault("dataset.dataset_type", cfg.Dataset.DatasetType)
	viper.SetDefault("dataset.survey_type", cfg.Dataset.SurveyType)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("cache.on_disk", cfg.Cache.OnDisk)
	viper.SetDefault("cache.load_existing", cfg.Cache.LoadExisting)
	viper.SetDefault("http.base_url", cfg.HTTP.BaseURL)
	viper.SetDefault("http.congress_base_url", cfg.HTTP.CongressBaseURL)
	viper.SetDefault("http.timeout", cfg.HTTP.Timeout)
	viper.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	viper.SetDefault("http.max_body_bytes", cfg.HTTP.MaxBodyBytes)
	viper.SetDefault("http.http_proxy", cfg.HTTP.HTTPProxy)
	viper.SetDefault("http.https_proxy", cfg.HTTP.HTTPSProxy)
	viper.SetDefault("http.no_proxy", cfg.HTTP.NoProxy)
	viper.SetDefault("rate_limiting.requests_per_second", cfg.RateLimiting.RequestsPerSecond)
	viper.SetDefault("rate_limiting.burst_size", cfg.RateLimiting.BurstSize)
	viper.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	viper.SetDefault("api_key", cfg.APIKey)
	viper.SetDefault("congress_api_key", cfg.CongressAPIKey)
	viper.SetDefault("verbose", cfg.Verbose)
}

// loadConfig merges defaults, config file, env and flags
func loadConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	flags := cmd.Flags()
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Cache.OnDisk = false
	}
	if fresh, _ := flags.GetBool("fresh"); fresh {
		cfg.Cache.LoadExisting = false
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// newClient builds a census client from the merged configuration
func newClient(cmd *cobra.Command) (*census.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	client, err := census.New(cfg)
	if err != nil {
		return nil, err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Dataset: %s\n", cfg.Dataset)
		fmt.Fprintf(os.Stderr, "Cache:   %s (on disk: %v, load existing: %v)\n", client.CacheDir(), cfg.Cache.OnDisk, cfg.Cache.LoadExisting)
		fmt.Fprintln(os.Stderr)
	}
	return client, nil
}
