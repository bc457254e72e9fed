// Command kkitchen runs the K-Kitchen feed: an HTTP server that generates
// persona posts, plus one-shot generation and catalog checks from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbourn/k-kitchen/internal/config"
	"github.com/tbourn/k-kitchen/internal/sysutil"
)

// buildVersion is set with -ldflags "-X main.buildVersion=...".
var buildVersion string

var (
	// Global flags
	envFile string
	pretty  bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kkitchen",
	Short: "K-Kitchen persona feed generator",
	Long: `kkitchen generates social posts for a fixed pool of AI cooking personas.

Every generation tick picks a persona and a meal scenario, renders the
scene, tags the products in it against the shoppable catalog and writes
the post copy.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		usePretty := cfg.LogPretty || pretty
		if sysutil.IsTruthy(os.Getenv("NO_COLOR")) {
			usePretty = false
		}
		sysutil.SetupLogger(os.Stderr, cfg.LogLevel, usePretty)
		return nil
	},
}

func version() string {
	return sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), buildVersion, "dev")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human readable console logs")

	rootCmd.AddCommand(serveCmd, generateCmd, catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
