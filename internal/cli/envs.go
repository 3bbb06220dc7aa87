package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/runpod/flash/internal/controlplane"
	"github.com/runpod/flash/internal/output"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage environments within an app",
}

var envCreateCmd = &cobra.Command{
	Use:   "create APP_ID NAME",
	Short: "Create a new environment under an app",
	Args:  cobra.ExactArgs(2),
	RunE: withAppClient(func(ctx context.Context, client *controlplane.Client, args []string) error {
		env, err := client.CreateEnvironment(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		output.Success("created environment %s (%s)", env.Name, env.ID)
		return nil
	}),
}

var envListCmd = &cobra.Command{
	Use:   "list APP_ID",
	Short: "List environments under an app",
	Args:  cobra.ExactArgs(1),
	RunE: withAppClient(func(ctx context.Context, client *controlplane.Client, args []string) error {
		envs, err := client.ListEnvironments(ctx, args[0])
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.JSON(envs)
		}
		t := output.NewTable(output.Global().Writer(), []string{"ID", "NAME", "APP ID"})
		for _, e := range envs {
			t.AddRow(e.ID, e.Name, e.AppID)
		}
		return t.Render()
	}),
}

var envGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show an environment",
	Args:  cobra.ExactArgs(1),
	RunE: withAppClient(func(ctx context.Context, client *controlplane.Client, args []string) error {
		env, err := client.GetEnvironment(ctx, args[0])
		if err != nil {
			return err
		}
		return output.JSON(env)
	}),
}

var envDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an environment",
	Args:  cobra.ExactArgs(1),
	RunE: withAppClient(func(ctx context.Context, client *controlplane.Client, args []string) error {
		if err := client.DeleteEnvironment(ctx, args[0]); err != nil {
			return err
		}
		output.Success("deleted environment %s", args[0])
		return nil
	}),
}

func init() {
	envCmd.AddCommand(envCreateCmd, envListCmd, envGetCmd, envDeleteCmd)
	rootCmd.AddCommand(envCmd)
}
