// Command smartsearch is a terminal client for the smart product search API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/smartsearch"
	"github.com/kailas-cloud/smartsearch/internal/config"
	logpkg "github.com/kailas-cloud/smartsearch/internal/logger"
)

var (
	jsonOutput bool
	configPath string
	envName    string
)

var rootCmd = &cobra.Command{
	Use:   "smartsearch",
	Short: "Smart product search client",
	Long: `smartsearch submits text or image queries, follows results,
records relevance feedback and manages the product catalog
against a smart search backend or the built-in demo backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "Environment name (default: $ENV or local)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if jsonOutput {
			printJSON(os.Stderr, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}

// loadConfig reads --config when given, the environment config otherwise.
func loadConfig() (config.Config, string, error) {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		return cfg, env, err
	}
	cfg, err := config.Load(env)
	return cfg, env, err
}

// withClient builds a client from the loaded config, runs fn and waits for
// background telemetry before closing.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *smartsearch.Client) error) error {
	cfg, env, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	opts, err := clientOptions(cfg, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := smartsearch.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Debug("client ready",
		zap.String("transport", cfg.Client.Transport),
		zap.String("telemetry_store", cfg.Telemetry.Store),
	)
	return fn(ctx, client)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
