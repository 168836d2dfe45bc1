// Package command classifies raw assistant input into built-in commands.
//
// Classification walks an ordered rule list and stops at the first match.
// Order matters: several phrases are prefixes or substrings of others.
package command

import "strings"

// Kind is the command discriminator.
type Kind string

const (
	Remember    Kind = "remember"
	Forget      Kind = "forget"
	Recall      Kind = "recall"
	ClearMemory Kind = "clear_memory"
	Status      Kind = "status"
	Help        Kind = "help"
)

// Command is a classified input.
type Command struct {
	Kind    Kind   `json:"type"`
	Content string `json:"content"`
}

// Rule pairs a match predicate with an argument extractor. Match receives
// the trimmed, lower-cased text; Extract receives the trimmed original.
type Rule struct {
	Name    string
	Kind    Kind
	Match   func(lower string) bool
	Extract func(original string) string
}

var (
	recallPhrases = []string{"what do you remember", "recall", "show memory"}
	clearPhrases  = []string{"clear memory", "reset memory", "forget everything"}
	statusPhrases = []string{"status", "how are you", "what's your status"}
	helpPhrases   = []string{"help", "what can you do", "commands"}
)

// defaultRules is the classification order.
//
// "forget everything" is pinned to clear_memory ahead of the forget prefix;
// anything longer ("forget everything about bob") stays a keyword forget.
var defaultRules = []Rule{
	{Name: "remember-prefix", Kind: Remember, Match: hasPrefix("remember "), Extract: afterPrefix("remember ")},
	{Name: "forget-everything", Kind: ClearMemory, Match: equalsAny([]string{"forget everything"}), Extract: none},
	{Name: "forget-prefix", Kind: Forget, Match: hasPrefix("forget "), Extract: afterPrefix("forget ")},
	{Name: "recall-phrase", Kind: Recall, Match: containsAny(recallPhrases), Extract: none},
	{Name: "clear-phrase", Kind: ClearMemory, Match: containsAny(clearPhrases), Extract: none},
	{Name: "status-exact", Kind: Status, Match: equalsAny(statusPhrases), Extract: none},
	{Name: "help-exact", Kind: Help, Match: equalsAny(helpPhrases), Extract: none},
}

// Router classifies text against an ordered rule list.
type Router struct {
	rules []Rule
}

// NewRouter returns a router using the default rule order.
func NewRouter() *Router {
	return &Router{rules: defaultRules}
}

// NewRouterWithRules returns a router evaluating rules in the given order.
func NewRouterWithRules(rules []Rule) *Router {
	return &Router{rules: rules}
}

// Rules returns a copy of the default rule list, in evaluation order.
func Rules() []Rule {
	return append([]Rule(nil), defaultRules...)
}

// Classify returns the first matching command. ok is false when the text
// is free-form chat.
func (r *Router) Classify(text string) (cmd Command, ok bool) {
	original := strings.TrimSpace(text)
	lower := strings.ToLower(original)

	for _, rule := range r.rules {
		if rule.Match(lower) {
			return Command{Kind: rule.Kind, Content: rule.Extract(original)}, true
		}
	}
	return Command{}, false
}

func hasPrefix(prefix string) func(string) bool {
	return func(lower string) bool { return strings.HasPrefix(lower, prefix) }
}

func afterPrefix(prefix string) func(string) string {
	return func(original string) string {
		if len(original) < len(prefix) || !strings.EqualFold(original[:len(prefix)], prefix) {
			return ""
		}
		return strings.TrimSpace(original[len(prefix):])
	}
}

func containsAny(phrases []string) func(string) bool {
	return func(lower string) bool {
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}
}

func equalsAny(phrases []string) func(string) bool {
	return func(lower string) bool {
		for _, p := range phrases {
			if lower == p {
				return true
			}
		}
		return false
	}
}

func none(string) string { return "" }
