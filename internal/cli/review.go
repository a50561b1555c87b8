package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// suggestionWaitTimeout は初回スナップショットの到着を待つ上限です。
const suggestionWaitTimeout = 10 * time.Second

func newReviewCommand(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review step suggestions",
	}
	cmd.AddCommand(
		newReviewListCommand(cfgPath),
		newReviewApproveCommand(cfgPath),
		newReviewRejectCommand(cfgPath),
	)
	return cmd
}

func newReviewListCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := openSuggestions(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()
			defer release()

			view := app.Store.Suggestions.View()
			if len(view.Suggestions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no suggestions")
				return nil
			}
			for _, s := range view.Suggestions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s step=%d status=%s author=%s %q\n",
					s.ID, s.StepID, s.Status, s.Author, s.Text)
			}
			return nil
		},
	}
}

func newReviewApproveCommand(cfgPath *string) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "approve <suggestion-id>",
		Short: "Approve a suggestion and mark it implemented",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := openSuggestions(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()
			defer release()

			if err := app.Review.Approve(cmd.Context(), args[0], reviewer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "approved %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer display name")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func newReviewRejectCommand(cfgPath *string) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "reject <suggestion-id>",
		Short: "Reject and delete a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, release, err := openSuggestions(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()
			defer release()

			if err := app.Review.Reject(cmd.Context(), args[0], reviewer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "reviewer display name")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

// openSuggestions はアプリを組み立てて提案スライスを購読し、初回スナップ
// ショットの到着まで待ちます。
func openSuggestions(ctx context.Context, cfgPath string) (*App, func(), error) {
	app, err := NewApp(ctx, cfgPath)
	if err != nil {
		return nil, nil, err
	}

	changed := make(chan struct{}, 1)
	removeWatch := app.Store.Suggestions.Watch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	release := app.Store.Suggestions.Subscribe()
	cleanup := func() {
		removeWatch()
		release()
	}

	deadline := time.NewTimer(suggestionWaitTimeout)
	defer deadline.Stop()
	for {
		view := app.Store.Suggestions.View()
		if view.Err != nil {
			cleanup()
			app.Close()
			return nil, nil, view.Err
		}
		if !view.Loading {
			return app, cleanup, nil
		}
		select {
		case <-ctx.Done():
			cleanup()
			app.Close()
			return nil, nil, ctx.Err()
		case <-deadline.C:
			cleanup()
			app.Close()
			return nil, nil, fmt.Errorf("timed out waiting for suggestions snapshot")
		case <-changed:
		}
	}
}
