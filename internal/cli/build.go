package cli

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/runpod/flash/internal/config"
	"github.com/runpod/flash/internal/deployconfig"
	"github.com/runpod/flash/internal/discovery"
	"github.com/runpod/flash/internal/handlergen"
	"github.com/runpod/flash/internal/manifest"
	"github.com/runpod/flash/internal/output"
)

var (
	buildResourcesFile string
	buildSourcePackage string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan the project and generate the deployment manifest and handlers",
	Long: `Scan the project for registered callables, build the deployment
manifest from them, and generate one dispatch handler file per resource
into .runpod/build.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildResourcesFile, "resources", "resources.yaml",
		"path (relative to --project) to the per-resource deployment declarations")
	buildCmd.Flags().StringVar(&buildSourcePackage, "source-package", "",
		"import path of the package defining the discovered functions (default: the project directory name)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	m, paths, err := build()
	if err != nil {
		return err
	}
	output.Success("build complete: %d resource(s), manifest written to %s", len(m.Resources), paths.ManifestFile)
	return nil
}

// build is factored out of runBuild so `flash deploy` can invoke the same
// pipeline without shelling out to the `build` command.
func build() (*manifest.Manifest, config.FlashPaths, error) {
	paths, err := config.GetPaths(projectPath)
	if err != nil {
		return nil, paths, err
	}
	if err := paths.EnsureFlashDir(); err != nil {
		return nil, paths, err
	}

	functions, err := discovery.Scan(projectPath)
	if err != nil {
		return nil, paths, err
	}

	doc, err := deployconfig.Load(filepath.Join(projectPath, buildResourcesFile))
	if err != nil {
		return nil, paths, err
	}
	descriptors, err := doc.Descriptors()
	if err != nil {
		return nil, paths, err
	}

	projectName := filepath.Base(projectPath)
	m, err := manifest.Build(projectName, time.Now().UTC().Format(time.RFC3339), functions, descriptors)
	if err != nil {
		return nil, paths, err
	}

	buildDir := filepath.Join(paths.FlashDir, "build")
	sourcePkg := buildSourcePackage
	if sourcePkg == "" {
		sourcePkg = projectName
	}
	if _, err := handlergen.Generate(m, handlergen.Options{BuildDir: buildDir, SourcePackage: sourcePkg}); err != nil {
		return nil, paths, err
	}

	if err := manifest.Write(paths.ManifestFile, m); err != nil {
		return nil, paths, err
	}
	return m, paths, nil
}
