package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/Spigot/internal/stream"
)

func newStreamCmd() *cobra.Command {
	var (
		server  string
		key     string
		prompt  string
		outFile string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream a completion from a running Spigot server",
		Long: `Requests /api/stream/:key from a Spigot server and prints tokens as
they arrive. With --out the tokens are also written to a file.`,
		Example: `  spigot stream --key alice --prompt "hello there"
  spigot stream --server http://localhost:9090 --key bob --prompt "hi" --out reply.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return fmt.Errorf("--key is required")
			}

			u := strings.TrimRight(server, "/") + "/api/stream/" + url.PathEscape(key) + "?prompt=" + url.QueryEscape(prompt)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "text/event-stream")

			client := &http.Client{Timeout: timeout}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("requesting stream: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests {
				return fmt.Errorf("rate limited, retry after %ss", resp.Header.Get("Retry-After"))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("stream request failed: %s", resp.Status)
			}

			cbs := []stream.Callbacks{stream.Writer(cmd.OutOrStdout())}
			if outFile != "" {
				cbs = append(cbs, stream.File(outFile, func(err error) {
					slog.Warn("writing stream output", "file", outFile, "error", err)
				}))
			}
			_, err = stream.Relay(stream.DecodeSSE(resp.Body), stream.Multi(cbs...))
			return err
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Spigot server base URL")
	cmd.Flags().StringVar(&key, "key", "", "rate limit key to stream as (required)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt to send")
	cmd.Flags().StringVar(&outFile, "out", "", "also write the streamed text to this file")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall request timeout")

	return cmd
}
