package noderunner

import (
	"context"
	"fmt"
)

// DockerNodeRunner drives a node running inside an already-existing
// container instead of a bare process, adapting the teacher's
// discovery/docker client and injection/container/restart.go sequencing
// (spec §11.5). The container's config path must be bind-mounted to a
// host-visible path so the Verdict engine's Commit step (spec §4.5 step 1)
// still writes a file the node process inside the container can read after
// restart.
type DockerNodeRunner struct {
	client          *dockerClient
	containerName   string
	containerID     string
	stopTimeoutSecs int
	logPath         string
}

// NewDockerNodeRunner resolves containerName to its current container ID
// and constructs a DockerNodeRunner.
func NewDockerNodeRunner(ctx context.Context, containerName, logPath string, stopTimeoutSecs int) (*DockerNodeRunner, error) {
	cli, err := newDockerClient()
	if err != nil {
		return nil, err
	}
	id, err := cli.containerIDByName(ctx, containerName)
	if err != nil {
		return nil, err
	}
	return &DockerNodeRunner{
		client:          cli,
		containerName:   containerName,
		containerID:     id,
		stopTimeoutSecs: stopTimeoutSecs,
		logPath:         logPath,
	}, nil
}

func (r *DockerNodeRunner) Start(ctx context.Context) error {
	if err := r.client.start(ctx, r.containerID); err != nil {
		return fmt.Errorf("noderunner: starting container %s: %w", r.containerName, err)
	}
	return nil
}

func (r *DockerNodeRunner) Stop(ctx context.Context) error {
	timeout := r.stopTimeoutSecs
	if err := r.client.stop(ctx, r.containerID, &timeout); err != nil {
		return fmt.Errorf("noderunner: stopping container %s: %w", r.containerName, err)
	}
	return nil
}

// Restart implements spec §4.4's fixed stop -> sleep(3) -> start sequence,
// the same quiescence ScriptNodeRunner uses, via the shared helper.
func (r *DockerNodeRunner) Restart(ctx context.Context) error {
	return restartSequence(ctx, r.Stop, r.Start)
}

// IsAlive is ContainerInspect(...).State.Running, the container-native
// analogue of ScriptNodeRunner's ps-ef-grep liveness selector.
func (r *DockerNodeRunner) IsAlive(ctx context.Context) (bool, error) {
	info, err := r.client.inspect(ctx, r.containerID)
	if err != nil {
		// A container that has disappeared entirely (e.g. removed under
		// --rm) is not alive, not an error the worker needs to see.
		return false, nil
	}
	return info.State != nil && info.State.Running, nil
}

func (r *DockerNodeRunner) PanicLogPath() string { return r.logPath }

// Close releases the underlying Docker API client connection.
func (r *DockerNodeRunner) Close() error { return r.client.Close() }

var _ Runner = (*DockerNodeRunner)(nil)
