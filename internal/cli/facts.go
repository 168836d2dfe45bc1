package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "List remembered facts",
		Args:  cobra.NoArgs,
		Run:   runFacts,
	}
	cmd.Flags().IntP("limit", "l", 0, "Show only the most recent N facts (0 = all)")

	RootCmd.AddCommand(cmd)
}

func runFacts(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	facts := a.mem.Facts(cmd.Context())
	if limit > 0 && len(facts) > limit {
		facts = facts[len(facts)-limit:]
	}
	if textOutput() {
		for i, f := range facts {
			fmt.Printf("%d. %s [%s] (%s)\n", i+1, f.Content, f.Category, f.Timestamp.Format("2006-01-02"))
		}
		return
	}
	if facts == nil {
		facts = []model.Fact{}
	}
	printJSON(facts)
}
