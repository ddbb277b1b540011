package main

import (
	"context"
	"fmt"
	"os"

	roomchat "github.com/putto11262002/roomchat/app"
	"github.com/putto11262002/roomchat/pkg/kv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roomchat",
	Short: "Multi-room chat demo server",
	// serve when no subcommand is given
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

Configuration is read from config.yaml, a .env file and the environment,
in increasing order of precedence.`,
	RunE: runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the SQLite storage migrations and exit",
	RunE:  runMigrate,
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := roomchat.New(nil, nil)
	if err != nil {
		return err
	}
	app.Start()
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	config, err := roomchat.LoadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config:\n%s", roomchat.FormatValidationErrors(err))
	}
	if config.Storage.Driver != kv.DriverSQLite {
		return fmt.Errorf("nothing to migrate for the %s driver", config.Storage.Driver)
	}
	store, err := kv.Open(context.Background(), config.StorageConfig())
	if err != nil {
		return err
	}
	defer store.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", config.Storage.SQLite.File)
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
