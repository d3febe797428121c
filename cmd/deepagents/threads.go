package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepagents/deepagents/internal/config"
	"github.com/deepagents/deepagents/internal/threads"
)

func threadsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Manage stored conversation threads",
	}
	cmd.AddCommand(threadsListCommand(opts))
	cmd.AddCommand(threadsDeleteCommand(opts))
	return cmd
}

func openThreadStore(opts *options) (*threads.Store, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	return threads.Open(filepath.Join(cfg.DataDir, "threads.db"))
}

func threadsListCommand(opts *options) *cobra.Command {
	var limit int
	var agentFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openThreadStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(cmd.Context(), limit, agentFilter)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No threads.")
				return nil
			}

			bold := color.New(color.Bold)
			dim := color.New(color.FgHiBlack)
			for _, t := range list {
				bold.Printf("%s", t.ID)
				if t.Agent != "" {
					fmt.Printf("  [%s]", t.Agent)
				}
				dim.Printf("  %s  %d messages\n", threads.FormatTimestamp(t.UpdatedAt), t.MessageCount)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of threads to show (0 for all)")
	cmd.Flags().StringVar(&agentFilter, "agent", "", "Only show threads for this agent")
	return cmd
}

func threadsDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete a thread and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openThreadStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			id := args[0]
			exists, err := store.Exists(ctx, id)
			if err != nil {
				return err
			}
			if !exists {
				similar, err := store.FindSimilar(ctx, id)
				if err != nil {
					return err
				}
				if len(similar) == 1 {
					id = similar[0]
				} else if len(similar) > 1 {
					return fmt.Errorf("ambiguous thread %q: matches %s", args[0], strings.Join(similar, ", "))
				} else {
					return fmt.Errorf("no thread matching %q", args[0])
				}
			}
			if err := store.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Deleted thread %s\n", id)
			return nil
		},
	}
}
