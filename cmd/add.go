package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-keeper/internal/capture"
)

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a face from the camera or an image",
	Long: `Capture one frame from the camera and add the most prominent face to the
face database. Without a name the face is stored as Person_N.

A face that matches an already known face within the tolerance is rejected.

Example:
  face-keeper add "Jane Doe"
  face-keeper add --image jane.jpg "Jane Doe"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().String("image", "", "Read the face from an image file instead of the camera")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := strings.TrimSpace(strings.Join(args, " "))
	imagePath := mustGetString(cmd, "image")

	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if imagePath == "" {
		fmt.Println("Look at the camera...")
		return printResult(a.svc.Add(ctx, name))
	}

	img, err := capture.LoadImage(imagePath, a.cfg.Recognizer.MaxImageSize)
	if err != nil {
		return err
	}
	return printResult(a.svc.AddImage(ctx, img, name))
}
