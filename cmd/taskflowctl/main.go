// Package main provides taskflowctl, the operator CLI for a TaskFlow database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the connection flags shared by every subcommand.
type globals struct {
	mongoURI string
	database string
	verbose  bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func rootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "taskflowctl",
		Short:         "Maintenance commands for a TaskFlow database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.mongoURI, "mongo-uri", envOr("TASKFLOW_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	cmd.PersistentFlags().StringVar(&g.database, "database", envOr("TASKFLOW_MONGO_DATABASE", "taskflow"), "MongoDB database name")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(schemaCmd(g), adminCmd(g), versionCmd())
	return cmd
}

func (g *globals) logger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !g.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
