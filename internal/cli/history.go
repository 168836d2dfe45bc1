package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversation turns",
		Args:  cobra.NoArgs,
		Run:   runHistory,
	}
	cmd.Flags().IntP("limit", "l", 10, "Number of turns (0 = all)")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	turns := a.mem.RecentConversations(cmd.Context(), limit)
	if textOutput() {
		for _, t := range turns {
			fmt.Printf("[%s]\nUser: %s\nAssistant: %s\n\n", t.Timestamp.Format("2006-01-02 15:04"), t.User, t.Assistant)
		}
		return
	}
	if turns == nil {
		turns = []model.ConversationTurn{}
	}
	printJSON(turns)
}
