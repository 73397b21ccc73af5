package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"jobsync-engine/internal/ingest"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, ingest.ErrRunInProgress) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	dataDir    string
	logLevel   string
	logJSON    bool
}

func newRootCommand() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:           "jobsync",
		Short:         "Scrape job listing sites and reconcile postings into a database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&f.configPath, "config", "", "Path to config.yml (default <data-dir>/config.yml)")
	cmd.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "Directory for config, database and run lock")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&f.logJSON, "log-json", false, "Log as JSON")

	cmd.AddCommand(newRunCommand(&f))
	cmd.AddCommand(newServeCommand(&f))
	cmd.AddCommand(newMigrateCommand(&f))
	return cmd
}
