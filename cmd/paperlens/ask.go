package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paperlens/paperlens/internal/session"
	"github.com/paperlens/paperlens/internal/ui"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask FILE",
		Short: "Analyze a paper, then answer follow-up questions interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := readDocument(args)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := analyze(ctx, a, document)
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Println(ui.RenderResult(res, ui.DefaultWidth))

			return runAskREPL(ctx, a)
		},
	}
}

// runAskREPL loops on questions until EOF, "exit", or interrupt. Answers are
// printed wrapped; transport failures show the apology that the session
// already recorded in the transcript.
func runAskREPL(ctx context.Context, a *app) error {
	rl, err := readline.New("ask> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("\nAsk questions about the paper ('transcript' shows the chat so far, 'exit' quits).")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}
		if question == "transcript" {
			fmt.Println(ui.RenderChat(a.sess.Chat(), ui.DefaultWidth))
			continue
		}

		s := newSpinner("Thinking...")
		s.Start()
		answer, err := a.sess.AskQuestion(ctx, question)
		s.Stop()
		if errors.Is(err, session.ErrBusy) {
			printWarn("Still working on the previous question.")
			continue
		}
		if err != nil {
			// The apology is already in the transcript; show it with the cause.
			printWarn(err.Error())
		}
		color.New(color.FgCyan).Print("ai:  ")
		fmt.Println(ui.Wrap(answer, ui.DefaultWidth-5))
		if ctx.Err() != nil {
			return nil
		}
	}
}
