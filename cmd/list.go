package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known faces",
	Long:  `List the names in the face database in the order they were added.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolP("long", "l", false, "Show IDs and creation times")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if !mustGetBool(cmd, "long") {
		names := a.svc.List()
		if len(names) == 0 {
			fmt.Println("No known faces.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	records := a.store.Records()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tID\tADDED")
	for i, rec := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, rec.Name, rec.ID, rec.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nKnown faces: %d\n", len(records))
	return nil
}
