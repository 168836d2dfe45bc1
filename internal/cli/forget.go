package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget [keyword]",
		Short: "Forget every fact containing keyword",
		Long:  "Forget every fact whose content contains keyword, ignoring case.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runForget,
	}

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	keyword := strings.Join(args, " ")
	n, err := a.mem.ForgetFact(cmd.Context(), keyword)
	if err != nil {
		exitErr("forget", err)
	}
	if textOutput() {
		fmt.Printf("Forgot %d fact(s) containing '%s'\n", n, keyword)
		return
	}
	fmt.Printf(`{"ok":true,"removed":%d}`+"\n", n)
}
