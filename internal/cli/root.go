package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-storefront/config"
	"github.com/goliatone/go-storefront/pkg/di"
	"github.com/goliatone/go-storefront/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront catalog, lifecycle and activation service",
	Long:          "Storefront serves a cached product catalog, soft deletes catalog and user records and verifies account activation links",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load (default .env when present)")
}

// Execute runs the CLI
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

type runtime struct {
	config    *config.Config
	logger    *slog.Logger
	container *di.Container
}

func (r *runtime) Close() error {
	return r.container.Close()
}

// bootstrap loads configuration and opens the database backed container.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath, envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	container, err := di.NewDatabaseContainer(ctx, cfg, di.Dependencies{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to build container: %w", err)
	}

	return &runtime{config: cfg, logger: log, container: container}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
