package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/viant/jobrunner"
	"github.com/viant/jobrunner/internal/logging"
)

// ConfigEnv names the environment variable holding the default config location.
const ConfigEnv = "JOBRUNNER_CONFIG"

var (
	config *jobrunner.Config

	flagConfig     string
	flagVerbose    bool
	flagSpecs      string
	flagWorkDir    string
	flagMaxRunning int
)

var rootCmd = &cobra.Command{
	Use:          "jobrunner",
	Short:        "Runs published command specs as local jobs",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the jobrunner version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(jobrunner.Version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (YAML), defaults to $"+ConfigEnv)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&flagSpecs, "specs", "", "spec directory URL, overrides specs.url")
	rootCmd.PersistentFlags().StringVar(&flagWorkDir, "workdir", "", "job working directory root, overrides executor.workDir")
	rootCmd.PersistentFlags().IntVar(&flagMaxRunning, "max-running", 0, "concurrent job limit, overrides scheduler.maxRunning")
	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initRunner

	rootCmd.AddCommand(runCmd(), validateCmd(), specsCmd(), exampleCmd(), versionCmd)

	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		slog.Error("jobrunner failed", "error", err)
		os.Exit(1)
	}
}

func initRunner(cmd *cobra.Command, _ []string) error {
	loadDotEnv()
	location := flagConfig
	if location == "" {
		location = os.Getenv(ConfigEnv)
	}
	var err error
	if location != "" {
		if config, err = jobrunner.LoadConfig(cmd.Context(), location); err != nil {
			return err
		}
	} else {
		config = jobrunner.DefaultConfig()
	}
	if flagVerbose {
		config.Log.Verbose = true
	}
	if flagSpecs != "" {
		config.Specs.URL = flagSpecs
	}
	if flagWorkDir != "" {
		config.Executor.WorkDir = flagWorkDir
	}
	if flagMaxRunning > 0 {
		config.Scheduler.MaxRunning = flagMaxRunning
	}
	slog.SetDefault(logging.New(config.Log.Verbose))
	return config.Validate()
}

func newRunner(cmd *cobra.Command, options ...jobrunner.Option) (*jobrunner.Service, error) {
	if config.Specs.URL == "" {
		return nil, errors.New("no spec directory configured, use --specs or specs.url")
	}
	options = append([]jobrunner.Option{jobrunner.WithLogger(slog.Default())}, options...)
	return jobrunner.NewFromConfig(cmd.Context(), config, options...)
}

// loadDotEnv loads the nearest .env walking up from the working directory.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return "job exited with code " + strconv.Itoa(e.code)
}
