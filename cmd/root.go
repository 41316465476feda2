package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-keeper",
	Short: "Recognize faces from a webcam against a local face database",
	Long: `Face Keeper captures frames from a webcam, detects faces and labels them
with names from a small local face database. Faces can be added from the
camera or from image files, deleted and listed.

Configuration is read from the embedded defaults, the YAML file named by
FACES_CONFIG and environment variables (a .env file is loaded if present).`,
	SilenceUsage: true,
}

func Execute() {
	// Interrupts cancel the command context so running captures release the camera.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("store", "", "Face database file (overrides FACES_STORE_PATH)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
