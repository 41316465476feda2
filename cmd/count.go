package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the number of known faces",
	Args:  cobra.NoArgs,
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Known faces: %d\n", a.svc.Count())
	return nil
}
