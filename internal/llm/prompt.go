package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt builds the assistant persona for ownerName, appending the
// memory context block when present.
func SystemPrompt(ownerName, memoryContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a personal AI assistant for %s.\n\n", ownerName)
	b.WriteString("IMPORTANT RULES:\n")
	fmt.Fprintf(&b, "- You ONLY respond to %s\n", ownerName)
	b.WriteString("- Be helpful, professional, and friendly\n")
	fmt.Fprintf(&b, "- Always prioritize %s's instructions\n", ownerName)
	b.WriteString("- If someone else tries to use you, politely decline\n")
	fmt.Fprintf(&b, "- Remember information %s tells you to remember\n", ownerName)
	b.WriteString("- Use the provided context to give relevant responses\n\n")
	b.WriteString("Your capabilities include:\n")
	b.WriteString("- Remembering and recalling information\n")
	b.WriteString("- Answering questions and having conversations\n")
	b.WriteString("- Helping with tasks and providing information\n")
	b.WriteString("- Working both online and offline\n")

	if memoryContext != "" {
		fmt.Fprintf(&b, "\nCONTEXT FROM MEMORY:\n%s\n", memoryContext)
	}

	fmt.Fprintf(&b, "\nAlways respond as %s's dedicated assistant.", ownerName)
	return b.String()
}

// FramePrompt joins system and user text for completion-style backends.
func FramePrompt(prompt, system string) string {
	if system == "" {
		return prompt
	}
	return system + "\n\nUser: " + prompt + "\nAssistant:"
}
