package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-keeper/internal/capture"
	"github.com/kozaktomas/face-keeper/internal/facematch"
)

var importCmd = &cobra.Command{
	Use:   "import <folder-path>",
	Short: "Add faces from a folder of images",
	Long: `Add the most prominent face of every image in a folder. The name is taken
from the file name: "jane-doe.jpg" is stored as "Jane Doe".

Images without a face and faces that are already known are skipped.
Supported formats: jpg, jpeg, png, gif, bmp, webp

Example:
  face-keeper import /path/to/portraits
  face-keeper import -r --skip-known /path/to/portraits`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolP("recursive", "r", false, "Search for images recursively in subdirectories")
	importCmd.Flags().Bool("skip-known", false, "Skip files whose name matches an already known person")
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp":
		return true
	}
	return false
}

// collectImages lists the image files in folderPath.
func collectImages(folderPath string, recursive bool) ([]string, error) {
	info, err := os.Stat(folderPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access folder %s: %w", folderPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", folderPath)
	}

	var filePaths []string
	if recursive {
		err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isImageFile(d.Name()) {
				filePaths = append(filePaths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot walk folder %s: %w", folderPath, err)
		}
		return filePaths, nil
	}

	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read folder %s: %w", folderPath, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			filePaths = append(filePaths, filepath.Join(folderPath, entry.Name()))
		}
	}
	return filePaths, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	recursive := mustGetBool(cmd, "recursive")
	skipKnown := mustGetBool(cmd, "skip-known")

	filePaths, err := collectImages(args[0], recursive)
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified folder.")
		return nil
	}

	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	known := make(map[string]bool)
	if skipKnown {
		for _, name := range a.svc.List() {
			known[facematch.NormalizePersonName(name)] = true
		}
	}

	fmt.Printf("Found %d image(s) to import\n", len(filePaths))
	bar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	var (
		added    int
		skipped  []string
		failures []string
	)
	for _, filePath := range filePaths {
		if ctx.Err() != nil {
			break
		}
		fileName := filepath.Base(filePath)
		name := facematch.DisplayNameFromFile(filePath)

		if known[facematch.NormalizePersonName(name)] {
			skipped = append(skipped, fmt.Sprintf("%s: '%s' is already known", fileName, name))
			bar.Add(1)
			continue
		}

		img, err := capture.LoadImage(filePath, a.cfg.Recognizer.MaxImageSize)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", fileName, err))
			bar.Add(1)
			continue
		}

		r := a.svc.AddImage(ctx, img, name)
		if !r.OK {
			skipped = append(skipped, fmt.Sprintf("%s: %s", fileName, r.Message))
		} else {
			added++
			if skipKnown {
				known[facematch.NormalizePersonName(r.Name)] = true
			}
		}
		bar.Add(1)
	}
	fmt.Println()

	for _, msg := range skipped {
		fmt.Printf("Skipped: %s\n", msg)
	}
	for _, msg := range failures {
		fmt.Printf("Failed: %s\n", msg)
	}
	fmt.Printf("\nAdded %d face(s), skipped %d, failed %d\n", added, len(skipped), len(failures))
	fmt.Printf("Known faces: %d\n", a.svc.Count())

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}
	return nil
}
