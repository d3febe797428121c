package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepagents/deepagents/internal/threads"
)

// ralphCommand runs the same prompt in a loop, each iteration on a fresh
// thread, until the iteration cap is hit or the user interrupts. Useful for
// brute-force "keep going until it works" workflows.
func ralphCommand(opts *options) *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "ralph <prompt>",
		Short: "Run a prompt repeatedly, one fresh thread per iteration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			return runRalph(opts, prompt, iterations)
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "Iteration cap (0 for unlimited)")
	return cmd
}

func runRalph(opts *options, prompt string, iterations int) error {
	rt, err := buildRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	banner := color.New(color.Bold, color.FgCyan)
	for i := 1; iterations == 0 || i <= iterations; i++ {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "Interrupted.")
			return nil
		}
		banner.Printf("=== Iteration %d ===\n", i)

		// Each iteration starts clean: fresh thread, no carried history.
		threadID := threads.NewThreadID()
		agentName := ""
		if rt.profile != nil {
			agentName = rt.profile.Name
		}
		if err := rt.threads.Create(ctx, threadID, agentName); err != nil {
			return err
		}

		if err := runPrint(ctx, rt, threadID, nil, prompt); err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(os.Stderr, "Interrupted.")
				return nil
			}
			fmt.Fprintf(os.Stderr, "iteration %d failed: %v\n", i, err)
		}
	}
	return nil
}
