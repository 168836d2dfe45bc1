package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/sorma/internal/llm"
	"github.com/rcliao/sorma/internal/memory"
)

// Status is a snapshot of the assistant's state.
type Status struct {
	Memory         memory.Stats      `json:"memory"`
	ShortTermLimit int               `json:"short_term_limit"`
	Models         map[llm.Kind]bool `json:"models"`
	Owner          string            `json:"owner"`
}

// Status reports memory counts, backend availability and the owner.
func (a *Assistant) Status(ctx context.Context) Status {
	return Status{
		Memory:         a.mem.Stats(ctx),
		ShortTermLimit: a.mem.ShortTermLimit(),
		Models:         a.models.Availability(ctx),
		Owner:          a.gate.OwnerName(),
	}
}

func (s Status) String() string {
	mark := func(ok bool) string {
		if ok {
			return "available"
		}
		return "unavailable"
	}
	var b strings.Builder
	b.WriteString("SYSTEM STATUS\n")
	fmt.Fprintf(&b, "Memory: %d short-term, %d long-term\n", s.Memory.ShortTermCount, s.Memory.LongTermCount)
	fmt.Fprintf(&b, "Conversation window: %d turns\n", s.ShortTermLimit)
	fmt.Fprintf(&b, "Local model: %s\n", mark(s.Models[llm.KindLocal]))
	fmt.Fprintf(&b, "Cloud model: %s\n", mark(s.Models[llm.KindCloud]))
	fmt.Fprintf(&b, "Owner: %s", s.Owner)
	return b.String()
}
