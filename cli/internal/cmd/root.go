package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/you-humble/sttqueue/cli/internal/client"

	"github.com/spf13/cobra"
)

const defaultAPI = "http://localhost:5010"

// NewRootCommand builds the sttctl command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	var (
		apiURL string
		api    *client.Client
	)

	root := &cobra.Command{
		Use:           "sttctl",
		Short:         "Submit media for transcription and track jobs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if api != nil {
				return nil
			}
			api = client.New(apiURL, nil)
			return nil
		},
	}
	root.SetOut(out)

	env := os.Getenv("STT_API")
	if env == "" {
		env = defaultAPI
	}
	root.PersistentFlags().StringVar(&apiURL, "api", env, "API base URL (env STT_API)")

	root.AddCommand(
		&cobra.Command{
			Use:   "submit <file>",
			Short: "Upload a local media file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := api.SubmitFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			},
		},
		&cobra.Command{
			Use:   "submit-url <url>",
			Short: "Ask the API to download media from a URL",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := api.SubmitURL(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			},
		},
		&cobra.Command{
			Use:   "status <job-id>",
			Short: "Print the current status of a job",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := api.Status(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			},
		},
		newWaitCommand(&api),
	)

	return root
}

func newWaitCommand(api **client.Client) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "wait <job-id>",
		Short: "Poll a job until it succeeds or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}
			resp, err := (*api).Wait(cmd.Context(), args[0], interval)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if resp.Error != "" {
				return fmt.Errorf("job %s failed: %s", resp.JobID, resp.Error)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
