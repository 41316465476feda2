package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-keeper/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Recognize faces from the camera until interrupted",
	Long: `Start live recognition: every frame is checked for faces, known faces are
labelled with their name and unknown faces with "Unknown". Press Ctrl+C to
stop; the camera is released before the command exits.

With --frame the latest annotated frame is written to a JPEG file.`,
	Args: cobra.NoArgs,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	recognizeCmd.Flags().String("frame", "", "Write the latest annotated frame to this JPEG file")
	recognizeCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	framePath := mustGetString(cmd, "frame")
	if d := mustGetDuration(cmd, "duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	session := a.svc.Session()
	events := session.Events.AddListener()
	defer session.Events.RemoveListener(events)

	// The session is stopped explicitly below so the final result is reported.
	if r := a.svc.StartRecognition(context.WithoutCancel(ctx)); !r.OK {
		return printResult(r)
	}
	fmt.Printf("Known faces: %d\n", a.svc.Count())
	fmt.Println("Press Ctrl+C to stop")

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			r := a.svc.StopRecognition()
			writeLatestFrame(session, framePath, &lastSeq)
			if !r.OK {
				return errors.New(r.Message)
			}
			fmt.Println()
			fmt.Println(r.Message)
			return nil
		case event := <-events:
			switch event.Type {
			case recognition.EventFaces:
				labels, _ := event.Data.([]recognition.Label)
				fmt.Println(describeFaces(labels))
				writeLatestFrame(session, framePath, &lastSeq)
			case recognition.EventError:
				fmt.Fprintf(os.Stderr, "Error: %s\n", event.Message)
			case recognition.EventStopped:
				return session.Err()
			}
		}
	}
}

// describeFaces formats the faces currently in view.
func describeFaces(labels []recognition.Label) string {
	if len(labels) == 0 {
		return "No faces in view"
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		if l.Known {
			names[i] = fmt.Sprintf("%s (%.2f)", l.Name, l.Distance)
		} else {
			names[i] = l.Name
		}
	}
	return "In view: " + strings.Join(names, ", ")
}

// writeLatestFrame stores the newest annotated frame at path if it has not
// been written yet.
func writeLatestFrame(session *recognition.Session, path string, lastSeq *uint64) {
	if path == "" {
		return
	}
	frame := session.Latest()
	if frame == nil || frame.Seq == *lastSeq {
		return
	}
	if err := renameio.WriteFile(path, frame.JPEG, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: writing frame: %v\n", err)
		return
	}
	*lastSeq = frame.Seq
}
