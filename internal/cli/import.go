package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/ogurasousui/onboard-sync/internal/core/stepdraft"
	"github.com/spf13/cobra"
)

func newImportCommand(cfgPath *string) *cobra.Command {
	var (
		name       string
		roleName   string
		department string
		linksPath  string
	)

	cmd := &cobra.Command{
		Use:   "import <text-file>",
		Short: "Parse pasted step text into a new onboarding template",
		Long: "Reads free-form bullet or numbered step text from a file, extracts " +
			"step drafts from it, and creates an onboarding template. An optional " +
			"links file carries URL annotations that are matched to steps by keyword.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read step text: %w", err)
			}

			var links []stepdraft.LinkAnnotation
			if linksPath != "" {
				linksRaw, err := os.ReadFile(linksPath)
				if err != nil {
					return fmt.Errorf("read links file: %w", err)
				}
				if err := json.Unmarshal(linksRaw, &links); err != nil {
					return fmt.Errorf("decode links file: %w", err)
				}
			}

			drafts := stepdraft.Parse(string(raw), links)
			if len(drafts) == 0 {
				return fmt.Errorf("no step drafts found in %s", args[0])
			}

			app, err := NewApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			steps := make([]instance.Step, len(drafts))
			for idx, d := range drafts {
				steps[idx] = instance.Step{
					ID:          idx + 1,
					Title:       d.Title,
					Description: d.Description,
					Role:        role.Role(roleName),
					Department:  department,
					Status:      instance.StepPending,
					Link:        d.Link,
				}
			}

			created, err := app.Gateway.CreateTemplate(cmd.Context(), &instance.Template{
				Name:       name,
				Role:       role.Role(roleName),
				Department: department,
				Steps:      steps,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created template %s with %d steps\n", created.ID, len(created.Steps))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "template name")
	cmd.Flags().StringVar(&roleName, "role", "", "target role")
	cmd.Flags().StringVar(&department, "department", "", "target department")
	cmd.Flags().StringVar(&linksPath, "links", "", "JSON file with URL annotations")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
