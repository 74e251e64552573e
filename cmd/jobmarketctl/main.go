// Command jobmarketctl runs operator tasks against a jobmarket deployment:
// schema migrations, the stale application sweep and dependency checks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobmarketctl",
	Short: "Operator commands for the jobmarket service",
	Long: `Operator commands for the jobmarket service.

Configuration is read from the same environment variables as the server
(DATABASE_URL, REDIS_URL, ...), with a .env file in the working directory
loaded first when present.

Examples:
  jobmarketctl migrate                  # Apply pending schema migrations
  jobmarketctl expire-stale             # Reject pending applications older than EXPIRY_WINDOW
  jobmarketctl expire-stale --window 72h
  jobmarketctl healthcheck              # Exit non-zero if Postgres or Redis is unreachable`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(expireStaleCmd)
	rootCmd.AddCommand(healthcheckCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
