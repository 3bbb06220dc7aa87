package preview

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// Orchestrator drives a multi-resource local stack through the docker
// compose CLI. compose-go/v2's types.Project is used purely as an
// in-memory model here: the compose v2 Go engine needs the full docker
// CLI's command.Cli plumbing to run anything, so actual execution always
// shells out to `docker compose`, the same split the teacher made.
type Orchestrator struct {
	WorkingDir string
}

// NewOrchestrator returns an Orchestrator rooted at dir, used to resolve
// any relative paths the underlying compose CLI invocation needs.
func NewOrchestrator(dir string) *Orchestrator {
	return &Orchestrator{WorkingDir: dir}
}

// composeFile is the on-disk shape docker compose reads; it is
// marshaled from an in-memory types.Project rather than generated by
// hand, so the fields previewed containers get come from the same
// resource descriptors that drove BuildProject.
type composeFile struct {
	Name     string                    `yaml:"name,omitempty"`
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image       string            `yaml:"image"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
}

// writeComposeFile renders project to a temp compose YAML file. The
// caller is responsible for removing the file once the CLI invocation
// that needs it has finished.
func writeComposeFile(project *types.Project) (string, error) {
	cf := composeFile{Name: project.Name, Services: map[string]composeService{}}
	for name, svc := range project.Services {
		env := map[string]string{}
		for k, v := range svc.Environment {
			if v != nil {
				env[k] = *v
			}
		}
		labels := map[string]string{}
		for k, v := range svc.Labels {
			labels[k] = v
		}
		var ports []string
		for _, p := range svc.Ports {
			ports = append(ports, fmt.Sprintf("%s:%d", p.Published, p.Target))
		}
		cf.Services[name] = composeService{
			Image:       svc.Image,
			Labels:      labels,
			Environment: env,
			Ports:       ports,
		}
	}

	data, err := yaml.Marshal(cf)
	if err != nil {
		return "", fmt.Errorf("marshal compose project: %w", err)
	}

	tmp, err := os.CreateTemp("", "flash-preview-*.yml")
	if err != nil {
		return "", fmt.Errorf("create compose temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write compose temp file: %w", err)
	}
	tmp.Close()
	return tmp.Name(), nil
}

// UpOptions configures a compose-driven stack start.
type UpOptions struct {
	Project       *types.Project
	RemoveOrphans bool
	Stdout        io.Writer
	Stderr        io.Writer
}

// Up writes project out and brings the stack up detached.
func (o *Orchestrator) Up(ctx context.Context, opts UpOptions) error {
	path, err := writeComposeFile(opts.Project)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	args := []string{"-p", opts.Project.Name, "-f", path, "up", "-d"}
	if opts.RemoveOrphans {
		args = append(args, "--remove-orphans")
	}
	return o.runCompose(ctx, args, opts.Stdout, opts.Stderr)
}

// DownOptions configures a compose-driven stack teardown.
type DownOptions struct {
	Project *types.Project
	Volumes bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// Down tears down the named project. It re-renders the compose file
// from project so `docker compose down` can resolve the same service
// set even if the original temp file from Up has since been removed.
func (o *Orchestrator) Down(ctx context.Context, opts DownOptions) error {
	path, err := writeComposeFile(opts.Project)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	args := []string{"-p", opts.Project.Name, "-f", path, "down"}
	if opts.Volumes {
		args = append(args, "-v")
	}
	return o.runCompose(ctx, args, opts.Stdout, opts.Stderr)
}

// Status runs `docker compose ps` for project and returns its raw output.
func (o *Orchestrator) Status(ctx context.Context, project *types.Project) (string, error) {
	path, err := writeComposeFile(project)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, "docker", "compose", "-p", project.Name, "-f", path, "ps")
	cmd.Dir = o.WorkingDir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (o *Orchestrator) runCompose(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, "docker", append([]string{"compose"}, args...)...)
	if o.WorkingDir != "" {
		cmd.Dir = o.WorkingDir
	}
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		cmd.Stdout = os.Stdout
	}
	if stderr != nil {
		cmd.Stderr = stderr
	} else {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// IsComposeAvailable reports whether the docker compose CLI plugin is
// installed, the way flash checks before attempting a multi-resource preview.
func IsComposeAvailable(ctx context.Context) bool {
	return exec.CommandContext(ctx, "docker", "compose", "version", "--short").Run() == nil
}
