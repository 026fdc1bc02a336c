package commands

import (
	"fmt"

	"github.com/dyluth/bandstand/internal/config"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bandstand",
	Short: "Bandstand - live shared instrument list over Redis",
	Long: `Bandstand keeps a local mirror of a shared instrument table in sync with a
Redis-backed store. Every connected viewer sees inserts, updates and deletes as
they are committed, along with who is online and what they last did.

Bandstand can run its own Redis container per instance (bandstand up) or use an
existing server via redis.url or BANDSTAND_REDIS_URL.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", config.DefaultFileName, "Path to bandstand.yml")
}
