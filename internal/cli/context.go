package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/llm"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the memory context sent to the model",
		Long:  "Print the memory block built from recent turns and facts. With --system, print the full system prompt.",
		Args:  cobra.NoArgs,
		Run:   runContext,
	}

	cmd.Flags().IntP("limit", "l", 0, "Turns to consider (default from config)")
	cmd.Flags().Bool("system", false, "Print the full system prompt")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	system, _ := cmd.Flags().GetBool("system")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	if limit <= 0 {
		limit = a.cfg.Memory.ContextLimit
	}
	out := a.mem.ContextForPrompt(cmd.Context(), limit)
	if system {
		out = llm.SystemPrompt(a.gate.OwnerName(), out)
	}
	fmt.Println(out)
}
