package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root spigot command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "spigot",
		Short: "Rate limiting and response caching for API callers",
		Long: `Spigot throttles outbound API calls per key, caches responses with a
bounded TTL cache and relays streamed completions.

Run it as a server, test limiter behavior against a virtual clock, or
replay recorded traffic to see what would have been admitted.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServerCmd(),
		newTestCmd(),
		newReplayCmd(),
		newStreamCmd(),
		newGenerateCmd(),
		newConfigCmd(),
	)

	return root
}
