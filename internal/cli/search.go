package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search facts and conversations",
		Long:  "Case-insensitive substring search. Facts are listed before conversation turns.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	hits := a.mem.Search(cmd.Context(), strings.Join(args, " "))
	if textOutput() {
		for _, h := range hits {
			fmt.Printf("[%s] %s\n", h.Type, h.Content)
		}
		return
	}
	if len(hits) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(hits)
}
