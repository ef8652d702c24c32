package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shortlink/pkg/config"
	"shortlink/pkg/logging"
	"shortlink/pkg/migrations"
	"shortlink/pkg/server"
	"shortlink/pkg/service"
	"shortlink/pkg/storage"

	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "linkctl",
	Short: "Operate a shortlink store",
	Long: `linkctl talks to the configured store directly, using the same
environment and CONFIG_FILE as the servers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		level := logging.LevelError
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = logging.LevelDebug
		}
		logger = logging.New(os.Stderr, level)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the links schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch cfg.Store.Driver {
		case storage.DriverPostgres:
		case storage.DriverSQLite, storage.DriverLibSQL:
			// Opening a SQL store creates the table.
			store, err := server.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema ready")
			return store.Close()
		default:
			return fmt.Errorf("store driver %q has no schema to migrate", cfg.Store.Driver)
		}
		m, err := migrations.New(cfg.Store.DatabaseURL, logger.Logger)
		if err != nil {
			return err
		}
		defer m.Close()
		if err := m.Up(); err != nil {
			return err
		}
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (dirty=%t)\n", version, dirty)
		return nil
	},
}

var shortenCmd = &cobra.Command{
	Use:   "shorten [url]",
	Short: "Create a short link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(links *service.LinkService) error {
			link, err := links.CreateLink(cmd.Context(), &service.CreateLinkRequest{URL: args[0]})
			if err != nil {
				return err
			}
			if cfg.Server.BaseURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s -> %s\n", cfg.Server.BaseURL, link.ID, link.URL)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", link.ID, link.URL)
			}
			return nil
		})
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [id]",
	Short: "Show a short link without counting a click",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(links *service.LinkService) error {
			link, err := links.GetLink(cmd.Context(), args[0])
			if errors.Is(err, service.ErrNotFound) {
				return fmt.Errorf("no link with id %q", args[0])
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %s\n", "ID:", link.ID)
			fmt.Fprintf(out, "%-10s %s\n", "URL:", link.URL)
			fmt.Fprintf(out, "%-10s %d\n", "Clicks:", link.Clicks)
			fmt.Fprintf(out, "%-10s %s\n", "Created:", link.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"))
			return nil
		})
	},
}

func withService(ctx context.Context, fn func(*service.LinkService) error) error {
	store, err := server.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	links := service.NewLinkService(store, logger, service.Options{
		ClickTimeout:   cfg.Links.ClickTimeout,
		InsertAttempts: cfg.Links.InsertAttempts,
	})
	defer links.Drain()
	return fn(links)
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")
	rootCmd.AddCommand(migrateCmd, shortenCmd, inspectCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
