package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/DukeRupert/shopdesk/internal"
)

var rootCmd = &cobra.Command{
	Use:   "shopdesk",
	Short: "Admin dashboard for the shop REST API",
	Long: `shopdesk serves the operator dashboard: product, customer and order
management on top of the shop REST API, plus the login proxy that turns
the API's access token into an HttpOnly cookie.

Run without a sub-command to start the server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status|version|redo|reset]",
	Short: "Run draft store migrations against DATABASE_URL",
	Example: `
shopdesk migrate
shopdesk migrate status
shopdesk migrate down
`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down", "status", "version", "redo", "reset"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}
		return migrate(cmd.Context(), command)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func migrate(ctx context.Context, command string) error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if cfg.DatabaseUrl == "" {
		return fmt.Errorf("DATABASE_URL is required to run migrations")
	}

	db, err := openDB(ctx, cfg.DatabaseUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	return internal.MigrateCommand(db, command)
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
