package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/runpod/flash/internal/deployconfig"
	"github.com/runpod/flash/internal/output"
	"github.com/runpod/flash/internal/preview"
)

var previewDown bool

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Run every locally buildable resource as a compose stack",
	Long: `Assemble every declared resource with a built image_ref into an
in-memory compose project and bring it up as one local stack, so
resources that call each other can be exercised together the way they
will be once deployed. Live (already-deployed) resources are skipped
since there is nothing local to run for them.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewDown, "down", false, "tear down the local preview stack instead of starting it")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	doc, err := deployconfig.Load(filepath.Join(projectPath, buildResourcesFile))
	if err != nil {
		return err
	}
	descriptors, err := doc.Descriptors()
	if err != nil {
		return err
	}

	projectName := filepath.Base(projectPath)
	project, err := preview.BuildProject(projectName, descriptors)
	if err != nil {
		return err
	}
	if len(project.Services) == 0 {
		output.Warning("no resource in %s has a local image_ref; nothing to preview", buildResourcesFile)
		return nil
	}

	if !preview.IsComposeAvailable(ctx) {
		return fmt.Errorf("docker compose is not available; install the compose CLI plugin to use flash preview")
	}

	orch := preview.NewOrchestrator(projectPath)

	if previewDown {
		if err := orch.Down(ctx, preview.DownOptions{Project: project, Stdout: os.Stdout, Stderr: os.Stderr}); err != nil {
			return err
		}
		output.Success("preview stack %s stopped", project.Name)
		return nil
	}

	if err := orch.Up(ctx, preview.UpOptions{Project: project, RemoveOrphans: true, Stdout: os.Stdout, Stderr: os.Stderr}); err != nil {
		return err
	}

	output.Success("preview stack %s is up with %d service(s):", project.Name, len(project.Services))
	for _, name := range preview.ServiceNames(project) {
		output.Info("  %s -> %s", name, project.Services[name].Image)
	}
	return nil
}
