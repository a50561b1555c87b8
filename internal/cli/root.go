package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand は onboardctl のルートコマンドを構築します。
func NewRootCommand() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "onboardctl",
		Short:         "Employee onboarding state synchronization client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to config file")

	root.AddCommand(
		newSignInCommand(&cfgPath),
		newSignOutCommand(&cfgPath),
		newWhoAmICommand(&cfgPath),
		newWatchCommand(&cfgPath),
		newImportCommand(&cfgPath),
		newCreateCommand(&cfgPath),
		newReviewCommand(&cfgPath),
		newMigrateCommand(&cfgPath),
	)
	return root
}

func defaultConfigPath() string {
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}
