// Package command wires the engine into a cobra CLI.
package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "weave"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Weave - threaded channel messaging",
		Long:          "Weave is a threaded channel messaging engine with a CLI front.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("as", "", "act as this user id (overrides config)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewInitCmd(),
		NewChannelsCmd(),
		NewSendCmd(),
		NewHistoryCmd(),
		NewThreadCmd(),
		NewReactCmd(),
		NewPinCmd(),
		NewUnpinCmd(),
		NewSaveCmd(),
		NewUnsaveCmd(),
		NewSavesCmd(),
		NewImportCmd(),
		NewWatchCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
