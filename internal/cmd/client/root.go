package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs the root Cobra command for rtstream.
// It registers the tail, send and replay commands.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "rtstream",
		Short:         "Real-time stream client",
		Long:          "rtstream connects to WebSocket, SSE and gRPC streams with automatic reconnect.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTailCommand(), newSendCommand(), newReplayCommand())
	return root
}
