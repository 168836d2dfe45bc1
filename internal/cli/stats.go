package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics and configured models",
		Args:  cobra.NoArgs,
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsReport struct {
	memory.Stats
	ShortTermLimit int           `json:"short_term_limit"`
	Models         []modelReport `json:"models"`
}

type modelReport struct {
	Kind  string `json:"kind"`
	Model string `json:"model"`
}

func runStats(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	report := buildStats(cmd.Context(), a)
	if textOutput() {
		fmt.Print(report.String())
		return
	}
	printJSON(report)
}

func buildStats(ctx context.Context, a *app) statsReport {
	r := statsReport{
		Stats:          a.mem.Stats(ctx),
		ShortTermLimit: a.mem.ShortTermLimit(),
		Models:         []modelReport{},
	}
	for _, b := range a.models.Backends() {
		r.Models = append(r.Models, modelReport{Kind: string(b.Kind()), Model: b.Model()})
	}
	return r
}

func (r statsReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Memory: %d short-term (limit %d), %d long-term (%d total)\n",
		r.ShortTermCount, r.ShortTermLimit, r.LongTermCount, r.Total)
	if len(r.Models) == 0 {
		b.WriteString("Models: none configured\n")
		return b.String()
	}
	names := make([]string, len(r.Models))
	for i, m := range r.Models {
		names[i] = fmt.Sprintf("%s (%s)", m.Kind, m.Model)
	}
	fmt.Fprintf(&b, "Models: %s\n", strings.Join(names, ", "))
	return b.String()
}
