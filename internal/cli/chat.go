package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/sorma/internal/assistant"
	"github.com/rcliao/sorma/internal/auth"
)

func init() {
	chat := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long: "Start an interactive session. The first message must contain your authorization phrase, " +
			"name or wake word. Type 'lock' to lock the session and 'quit', 'exit' or 'bye' to leave.",
		Args: cobra.NoArgs,
		Run:  runChat,
	}
	ask := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message and print the reply",
		Long:  "Send one message in a fresh session. The message must itself authorize, e.g. `sorma ask \"sorma, what's on my list?\"`.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	}

	RootCmd.AddCommand(chat, ask)
}

func runChat(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	repl(cmd.Context(), a.asst, os.Stdin, cmd.OutOrStdout())
}

// repl reads lines from in until EOF or a quit word, answering each with
// the assistant in a single session.
func repl(ctx context.Context, asst *assistant.Assistant, in io.Reader, out io.Writer) {
	sess := auth.NewSession()
	fmt.Fprintln(out, "sorma chat. Type 'help' for commands, 'quit' to exit.")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "bye":
			fmt.Fprintln(out, "Goodbye!")
			return
		case "lock":
			sess.Deactivate()
			fmt.Fprintln(out, "Locked.")
			continue
		}

		reply := asst.Process(ctx, sess, line)
		fmt.Fprintln(out, formatReply(reply))
	}
}

func runAsk(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	reply := a.asst.Process(cmd.Context(), auth.NewSession(), strings.Join(args, " "))
	if textOutput() {
		fmt.Println(formatReply(reply))
	} else {
		printJSON(reply)
	}
	if reply.Denied {
		a.Close()
		os.Exit(2)
	}
}

func formatReply(r assistant.Reply) string {
	if r.Model != "" {
		return fmt.Sprintf("%s\n[%s - %s]", r.Text, r.Model, r.Backend)
	}
	return r.Text
}
