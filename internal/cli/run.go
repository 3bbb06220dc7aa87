package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/deployconfig"
	"github.com/runpod/flash/internal/output"
	"github.com/runpod/flash/internal/preview"
)

var runHostPort int

var runCmd = &cobra.Command{
	Use:   "run RESOURCE",
	Short: "Run a single resource's built image locally",
	Long: `Start one resource's container on this machine using the image
built for it, the way "flash build" left it. Reruns after an edit detect
the changed configuration and recreate the container instead of reusing
a stale one.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runHostPort, "port", 8000, "host port to publish the resource on")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	resourceName := args[0]

	doc, err := deployconfig.Load(filepath.Join(projectPath, buildResourcesFile))
	if err != nil {
		return err
	}
	descriptors, err := doc.Descriptors()
	if err != nil {
		return err
	}
	desc, ok := descriptors[resourceName]
	if !ok {
		return flasherrors.Configuration(flasherrors.CodeConfigMissingField,
			fmt.Sprintf("resource %q is not declared in %s", resourceName, buildResourcesFile))
	}

	runner, err := preview.NewRunner()
	if err != nil {
		return err
	}
	defer runner.Docker.Close()

	projectName := filepath.Base(projectPath)
	info, err := runner.Up(ctx, desc, preview.RunOptions{
		ProjectName: projectName,
		ProjectPath: projectPath,
		HostPort:    runHostPort,
	})
	if err != nil {
		return err
	}

	output.Success("%s is running (container %s)", resourceName, info.Name)
	if runHostPort > 0 {
		output.Info("listening at http://localhost:%d", runHostPort)
	}
	return nil
}
