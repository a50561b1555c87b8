package cli

import (
	"fmt"
	"time"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/spf13/cobra"
)

func newCreateCommand(cfgPath *string) *cobra.Command {
	var (
		templateID string
		name       string
		email      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start an onboarding instance from a template",
		Long: "Looks up the given template, copies its steps into a fresh instance " +
			"for the employee (all steps pending), and persists it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			tpl, err := app.Gateway.FindTemplateByID(cmd.Context(), templateID)
			if err != nil {
				return err
			}

			created, err := app.Gateway.CreateInstance(cmd.Context(),
				instance.NewFromTemplate(tpl, name, email, time.Now().UTC()))
			if err != nil {
				return err
			}
			app.Store.Instances.Add(created)

			fmt.Fprintf(cmd.OutOrStdout(), "created instance %s for %s (%d steps, progress %d%%)\n",
				created.ID, created.EmployeeEmail, len(created.Steps), created.Progress)
			return nil
		},
	}
	cmd.Flags().StringVar(&templateID, "template", "", "template id to instantiate")
	cmd.Flags().StringVar(&name, "name", "", "employee display name")
	cmd.Flags().StringVar(&email, "email", "", "employee email")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
