package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegrep/internal/config"
	"github.com/kozaktomas/facegrep/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only reports API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to listen on")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	host := mustGetString(cmd, "host")
	port := mustGetInt(cmd, "port")

	pool, identities, reports, err := openRepositories(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	server := web.NewServer(identities, reports, host, port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return server.Start()
}
