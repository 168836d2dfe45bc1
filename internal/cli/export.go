package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export facts as JSON",
		Long:  "Export every remembered fact as a JSON array, in the format accepted by import.",
		Args:  cobra.NoArgs,
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	facts := a.mem.Facts(cmd.Context())
	if facts == nil {
		facts = []model.Fact{}
	}
	printJSON(facts)
}
