package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runpod/flash/internal/controlplane"
	"github.com/runpod/flash/internal/credentials"
	"github.com/runpod/flash/internal/output"
)

const authPollInterval = 2 * time.Second

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate flash with your RunPod account",
	Long: `Start the browser-based login flow: flash asks the control plane for
an authorization URL, prints it for you to open and approve, and polls
until the request is approved (or denied/expired), saving the issued API
key locally. The URL is not opened in a browser automatically.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := controlplane.New(controlplane.ResolveBaseURL(), controlplane.ModeShort, false)

	requestID, authURL, err := client.CreateAuthRequest(ctx)
	if err != nil {
		return err
	}

	output.Printf("Open the following URL to approve this login:\n\n  %s\n\n", authURL)
	output.Print("Waiting for approval...")

	for {
		status, err := client.PollAuthRequest(ctx, requestID)
		if err != nil {
			return err
		}
		switch status.Status {
		case "approved":
			path, err := credentials.SaveAPIKey(projectPath, status.APIKey)
			if err != nil {
				return err
			}
			output.Success("logged in, credentials saved to %s", path)
			return nil
		case "denied":
			return fmt.Errorf("login request was denied")
		case "expired":
			return fmt.Errorf("login request expired, run `flash login` again")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(authPollInterval):
		}
	}
}
