package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/internal/discover"
	"github.com/huangsam/buildwatch/internal/repostore"
	"github.com/huangsam/buildwatch/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// finder is the on-disk Makefile discovery used by analysis commands.
var finder contract.MakefileFinder = discover.NewFinder()

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "buildwatch",
	Short:              "Track and reconcile Makefile compilation outcomes across repositories.",
	Long:               `buildwatch reads compilation logs, finds repositories whose outcomes fluctuate, samples failing ones and checks them against the recorded successes.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in .env, config file and ENV variables if set.
func initConfig() {
	// A missing .env is the normal case
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		contract.LogWarn("Cannot load .env file", err)
	}

	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("BUILDWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("repos-dir", contract.DefaultReposDir)
	viper.SetDefault("sample-size", contract.DefaultSampleSize)
	viper.SetDefault("max-makefiles", contract.DefaultMaxMakefiles)
	viper.SetDefault("seed", contract.DefaultSeed)
	viper.SetDefault("prefix-segments", contract.DefaultPrefixSegments)
	viper.SetDefault("output", schema.CSVOut)
	viper.SetDefault("db-config", contract.DefaultDBConfigPath)
	viper.SetDefault("color", "yes")
}

// setConfigFile points viper at --config or the default .buildwatch.yaml lookup paths.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".buildwatch") // Name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// loadConfigFile reads the config file if present.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.LogFile = ""
	if len(args) == 1 {
		input.LogFile = args[0]
	}

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	if !cfg.UseColors {
		color.NoColor = true
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// storeSetup validates config and connects to the repository store named by --db-config.
func storeSetup(cmd *cobra.Command, args []string) error {
	if err := sharedSetup(rootCtx, cmd, args); err != nil {
		return err
	}
	if cfg.NoStore {
		return nil
	}

	sc, err := contract.LoadStoreConfig(cfg.DBConfigPath)
	if err != nil {
		return err
	}
	return repostore.InitStore(rootCtx, sc)
}

// requireStore returns the connected store, or an error under --no-store.
func requireStore() (contract.RepoStore, error) {
	store := repostore.Manager.GetStore()
	if store == nil {
		return nil, errors.New("this command needs a repository store; drop --no-store")
	}
	return store, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// Shutdown releases the repository store connection.
func Shutdown() {
	repostore.CloseStore()
}
