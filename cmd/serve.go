package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-keeper/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Keeper web server.
The web server provides a browser-based dashboard and a JSON API for adding,
deleting and listing faces and for watching live recognition.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("no-camera", false, "Serve the face database without camera and face models")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, cmd, !mustGetBool(cmd, "no-camera"))
	if err != nil {
		return err
	}
	defer a.Close()

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}

	server := web.NewServer(ctx, a.cfg, a.svc)

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.logger.Warn("sd_notify failed", "error", err)
	}

	fmt.Printf("Starting Face Keeper on http://%s\n", a.cfg.Web.Addr())
	fmt.Printf("Known faces: %d\n", a.svc.Count())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	if s := a.svc.Session(); s != nil && s.Running() {
		_ = s.Stop()
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Store.SaveTimeout)
	defer cancel()
	if err := a.store.Flush(flushCtx); err != nil {
		return fmt.Errorf("saving face database: %w", err)
	}
	fmt.Println("Face database saved")
	return nil
}
