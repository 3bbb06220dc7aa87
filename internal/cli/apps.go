package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/runpod/flash/internal/controlplane"
	"github.com/runpod/flash/internal/credentials"
	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/output"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage RunPod apps",
}

var appCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new app",
	Args:  cobra.ExactArgs(1),
	RunE: withAppClient(func(ctx context.Context, client *controlplane.Client, args []string) error {
		app, err := client.CreateApp(ctx, args[0])
		if err != nil {
			return err
		}
		output.Success("created app %s (%s)", app.Name, app.ID)
		return nil
	}),
}

var appListCmd = &cobra.Command{
	Use:   "list",
	Short: "List apps",
	Args:  cobra.NoArgs,
	RunE: withAppClient(func(ctx context.Context, client *controlplane.Client, args []string) error {
		apps, err := client.ListApps(ctx)
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.JSON(apps)
		}
		t := output.NewTable(output.Global().Writer(), []string{"ID", "NAME"})
		for _, a := range apps {
			t.AddRow(a.ID, a.Name)
		}
		return t.Render()
	}),
}

var appGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show an app",
	Args:  cobra.ExactArgs(1),
	RunE: withAppClient(func(ctx context.Context, client *controlplane.Client, args []string) error {
		app, err := client.GetApp(ctx, args[0])
		if err != nil {
			return err
		}
		return output.JSON(app)
	}),
}

var appDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an app",
	Args:  cobra.ExactArgs(1),
	RunE: withAppClient(func(ctx context.Context, client *controlplane.Client, args []string) error {
		if err := client.DeleteApp(ctx, args[0]); err != nil {
			return err
		}
		output.Success("deleted app %s", args[0])
		return nil
	}),
}

func init() {
	appCmd.AddCommand(appCreateCmd, appListCmd, appGetCmd, appDeleteCmd)
	rootCmd.AddCommand(appCmd)
}

// withAppClient builds an authenticated control-plane client and hands
// it to fn, the shared shape every app/env subcommand needs.
func withAppClient(fn func(ctx context.Context, client *controlplane.Client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		key, err := credentials.GetAPIKey(projectPath)
		if err != nil {
			return err
		}
		if key == "" {
			return flasherrors.Auth(flasherrors.CodeAuthMissingKey, "no API key available", "")
		}
		client := controlplane.New(controlplane.ResolveBaseURL(), controlplane.ModeShort, true, controlplane.WithAPIKey(key))
		return fn(ctx, client, args)
	}
}
