package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/model"
)

// The memory commands operate on the local store directly. They are owner
// tooling and do not pass through the authorization gate.

func init() {
	cmd := &cobra.Command{
		Use:   "remember [fact]",
		Short: "Remember a fact",
		Long:  "Remember a fact. Content can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}
	cmd.Flags().String("category", model.DefaultCategory, "Category: general, preference, personal, work, file")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	if !model.ValidCategories[category] {
		exitErr("remember", fmt.Errorf("invalid category %q", category))
	}

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	fact, err := a.mem.RememberFact(cmd.Context(), content, category)
	if err != nil {
		exitErr("remember", err)
	}
	if textOutput() {
		fmt.Println("Remembered: " + fact.Content)
		return
	}
	printJSON(fact)
}
