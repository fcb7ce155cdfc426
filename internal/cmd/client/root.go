package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the battlelog client.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "battlelog",
		Short: "battlelog client commands",
	}
	AddCommands(root)
	return root
}

// AddCommands registers the client command groups on root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(
		newSubmitCommand(),
		newBattlesCommand(),
		newReportsCommand(),
		newEventsCommand(),
		newAuditCommand(),
	)
}
