package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gauntlet-run/gauntlet/internal/config"
	"github.com/gauntlet-run/gauntlet/internal/logging"
)

var (
	cfg        *config.Config
	projectDir string
	appVersion = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gauntlet",
	Short: "Gauntlet - exploratory web application testing",
	Long: `Gauntlet runs exploratory functional tests against a live web
application: it synthesizes candidate test cases, ranks them, drives a
headless browser through their steps, captures artifacts, and checks that
verdicts are reproducible.

Use 'gauntlet run' for a one-shot batch or 'gauntlet serve' to expose the
pipeline stages over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// SetVersion sets the version shown by the version command.
func SetVersion(v string) {
	appVersion = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", ".", "project directory")
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "verbose output")
}

// initConfig sets up logging and loads configuration.
func initConfig() {
	if err := logging.Initialize(projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	} else {
		logging.RedirectStandardLog()
	}

	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		logging.GetLogger().SetLevel(logging.DEBUG)
	}

	loaded, err := config.Load(projectDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		loaded = config.Default()
	}
	cfg = loaded
}
