// Command pimdb queries an in-memory database described by a schema file.
//
// The database only lives for the duration of one command: the schema and
// its seed documents are loaded, the query runs and the result is printed as
// JSON.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/meavi1994/go-pimdb"
	"github.com/meavi1994/go-pimdb/internal/config"
)

var (
	schemaPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:           "pimdb",
		Short:         "Query an in-memory multi-index document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pimdb: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "pimdb.yaml", "Schema file declaring collections, indexes and documents")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func setupLogging(level string) error {
	ll := &slog.LevelVar{}
	if err := ll.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
	return nil
}

// openDatabase loads the schema file and builds the database it describes.
func openDatabase() (*pimdb.Database, error) {
	cfg, err := config.Load(schemaPath)
	if err != nil {
		return nil, err
	}
	return config.Build(cfg, slog.Default())
}
