package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"a2ui-backend/internal/styles"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List content styles and their composed prompt sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := styles.New(styles.DefaultStyle)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBYTES\tDESCRIPTION")
		for _, s := range r.List() {
			flag := ""
			if s.PromptBytes > styles.SoftLimitBytes {
				flag = " (over soft limit)"
			}
			fmt.Fprintf(w, "%s\t%s\t%d%s\t%s\n", s.ID, s.Name, s.PromptBytes, flag, s.Description)
		}
		return w.Flush()
	},
}
