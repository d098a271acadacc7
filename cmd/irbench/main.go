// @title           irbench pipeline API
// @version         1.0
// @description     Queues dataset builds, query generation and retrieval evaluation as background jobs.
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/akolanti/irbench/internal/config"
	"github.com/akolanti/irbench/internal/data/sqliteStore"
	"github.com/akolanti/irbench/pkg/logger_i"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

type rootOptions struct {
	configFiles []string
	logLevel    string
	logJSON     bool
	outDir      string

	cfg       *config.Config
	logCloser io.Closer
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "irbench",
		Short:         "Build and evaluate IR benchmarks from K-12 lesson plans and textbooks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFiles...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = opts.logLevel
			}
			if opts.logJSON {
				cfg.Log.JSON = true
			}
			if opts.outDir != "" {
				if cfg.Paths.DBPath == config.Default().Paths.DBPath {
					cfg.Paths.DBPath = filepath.Join(opts.outDir, config.DefaultDBFile)
				}
				cfg.Paths.OutputDir = opts.outDir
			}
			closer, err := logger_i.Init(logger_i.Options{
				Level:  cfg.Log.Level,
				JSON:   cfg.Log.JSON,
				Dir:    cfg.Log.Dir,
				Stderr: cmd.Name() == "mcp",
			})
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logCloser = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logCloser != nil {
				_ = opts.logCloser.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringArrayVar(&opts.configFiles, "config", nil, "YAML config file, repeatable; later files win")
	pf.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	pf.BoolVar(&opts.logJSON, "log-json", false, "emit JSON log lines")
	pf.StringVar(&opts.outDir, "out", "", "output root, overrides paths.output_dir")

	root.AddCommand(
		newSeedCmd(opts),
		newDownloadCmd(opts),
		newSupplementCmd(opts),
		newProcessCmd(opts),
		newBuildCmd(opts),
		newQueriesCmd(opts),
		newQueryGenCmd(opts),
		newRemapCmd(opts),
		newEvalCmd(opts),
		newStatsCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func (o *rootOptions) openStore(ctx context.Context) (*sqliteStore.Store, error) {
	return sqliteStore.Open(ctx, o.cfg.Paths.DBPath)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
