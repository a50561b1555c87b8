package cli

import (
	"errors"
	"fmt"

	"github.com/ogurasousui/onboard-sync/internal/core/identity"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/spf13/cobra"
)

func newWatchCommand(cfgPath *string) *cobra.Command {
	var roleName string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to the store and print snapshots as they change",
		Long: "Subscribes the slices appropriate for the session role and prints a " +
			"one-line summary whenever any slice publishes new state. Runs until " +
			"interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			r := role.Role(roleName)
			if r == "" {
				ident, err := app.Session.Current(ctx)
				switch {
				case err == nil:
					r = ident.Role
				case errors.Is(err, identity.ErrNotSignedIn):
					r = role.Employee
				default:
					return err
				}
			}

			changed := make(chan struct{}, 1)
			notify := func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			}
			removeWatchers := []func(){
				app.Store.Instances.Watch(notify),
				app.Store.Activities.Watch(notify),
				app.Store.Users.Watch(notify),
				app.Store.Suggestions.Watch(notify),
			}
			defer func() {
				for _, remove := range removeWatchers {
					remove()
				}
			}()

			go func() {
				if err := app.RunGateway(ctx); err != nil {
					app.Logger.Error("gateway runner stopped", "error", err)
				}
			}()

			release := app.Store.SubscribeForRole(r)
			defer release()

			printSummary(cmd, app)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-changed:
					printSummary(cmd, app)
				}
			}
		},
	}
	cmd.Flags().StringVar(&roleName, "role", "", "subscribe as this role instead of the session role")
	return cmd
}

func printSummary(cmd *cobra.Command, app *App) {
	instances := app.Store.Instances.View()
	users := app.Store.Users.View()
	suggestions := app.Store.Suggestions.View()
	activities := app.Store.Activities.View()

	fmt.Fprintf(cmd.OutOrStdout(), "instances=%d users=%d suggestions=%d activities=%d\n",
		len(instances.Instances), len(users.Users), len(suggestions.Suggestions), len(activities.Activities))
}
