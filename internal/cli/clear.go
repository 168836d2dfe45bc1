package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear memory",
		Args:  cobra.NoArgs,
		Run:   runClear,
	}
	cmd.Flags().String("scope", "all", "What to clear: short, long or all")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	raw, _ := cmd.Flags().GetString("scope")
	scope, err := memory.ParseScope(raw)
	if err != nil {
		exitErr("clear", err)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	if err := a.mem.Clear(cmd.Context(), scope); err != nil {
		exitErr("clear", err)
	}
	fmt.Printf(`{"ok":true,"scope":%q}`+"\n", scope)
}
