package noderunner

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// dockerClient is a narrow adaptation of the teacher's
// pkg/discovery/docker/client.go, trimmed to exactly the calls
// DockerNodeRunner needs: looking up an already-running container by name
// and starting/stopping/inspecting it. The teacher's ContainerCreate (the
// only method needing opencontainers/image-spec) is deliberately not
// ported — this runner only drives containers that already exist.
type dockerClient struct {
	cli *client.Client
}

func newDockerClient() (*dockerClient, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("noderunner: creating docker client: %w", err)
	}
	return &dockerClient{cli: cli}, nil
}

func (c *dockerClient) Close() error {
	if c.cli == nil {
		return nil
	}
	return c.cli.Close()
}

// containerIDByName mirrors the teacher's GetContainerByName lookup loop,
// minus the discovery.Service conversion this runner has no use for.
func (c *dockerClient) containerIDByName(ctx context.Context, name string) (string, error) {
	containers, err := c.cli.ContainerList(ctx, types.ContainerListOptions{All: true})
	if err != nil {
		return "", fmt.Errorf("noderunner: listing containers: %w", err)
	}
	for _, ctr := range containers {
		for _, ctrName := range ctr.Names {
			if ctrName == "/"+name || ctrName == name {
				return ctr.ID, nil
			}
		}
	}
	return "", fmt.Errorf("noderunner: container not found: %s", name)
}

func (c *dockerClient) start(ctx context.Context, containerID string) error {
	return c.cli.ContainerStart(ctx, containerID, types.ContainerStartOptions{})
}

// stop mirrors the teacher's ContainerStop wrapper, including its
// nil-timeout default-to-engine-default behavior.
func (c *dockerClient) stop(ctx context.Context, containerID string, timeoutSeconds *int) error {
	var options container.StopOptions
	if timeoutSeconds != nil {
		options.Timeout = timeoutSeconds
	}
	return c.cli.ContainerStop(ctx, containerID, options)
}

func (c *dockerClient) inspect(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	return c.cli.ContainerInspect(ctx, containerID)
}
