package instance

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	dockerpkg "github.com/dyluth/bandstand/internal/docker"
)

// stopTimeoutSeconds is the graceful stop period given to containers on removal.
const stopTimeoutSeconds = 10

// GetRedisHost returns the appropriate Redis hostname for the current environment.
// In Docker-in-Docker scenarios, it returns "host.docker.internal" to access
// the host's published ports. Otherwise, it returns "localhost".
func GetRedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// GetRedisURL constructs the full Redis URL for a given port.
func GetRedisURL(port int) string {
	return fmt.Sprintf("redis://%s:%d", GetRedisHost(), port)
}

// StartSpec describes the managed Redis of a new instance.
type StartSpec struct {
	InstanceName string
	Image        string
	Port         int
	RunID        string
	ConfigPath   string
}

// Progress receives one line per completed step. May be nil.
type Progress func(format string, a ...any)

// StartRedis creates the instance network and starts its Redis container with the
// port published on 127.0.0.1. The image is pulled if it is not present locally.
// On failure, resources created so far are left for Remove to clean up.
func StartRedis(ctx context.Context, cli dockerpkg.API, spec StartSpec, progress Progress) error {
	if progress == nil {
		progress = func(string, ...any) {}
	}

	networkName := dockerpkg.NetworkName(spec.InstanceName)
	_, err := cli.NetworkCreate(ctx, networkName, types.NetworkCreate{
		Driver: "bridge",
		Labels: dockerpkg.BuildLabels(spec.InstanceName, spec.RunID, spec.ConfigPath, ""),
	})
	if err != nil {
		return fmt.Errorf("failed to create network '%s': %w", networkName, err)
	}
	progress("Created network: %s\n", networkName)

	if err := ensureImage(ctx, cli, spec.Image); err != nil {
		return err
	}

	redisName := dockerpkg.RedisContainerName(spec.InstanceName)
	labels := dockerpkg.BuildLabels(spec.InstanceName, spec.RunID, spec.ConfigPath, dockerpkg.ComponentRedis)
	labels[dockerpkg.LabelRedisPort] = strconv.Itoa(spec.Port)

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:  spec.Image,
		Labels: labels,
		ExposedPorts: nat.PortSet{
			"6379/tcp": struct{}{},
		},
	}, &container.HostConfig{
		NetworkMode: container.NetworkMode(networkName),
		PortBindings: nat.PortMap{
			"6379/tcp": []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: strconv.Itoa(spec.Port),
				},
			},
		},
	}, nil, nil, redisName)
	if err != nil {
		return fmt.Errorf("failed to create Redis container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start Redis container: %w", err)
	}
	progress("Started Redis container: %s (port %d)\n", redisName, spec.Port)

	return nil
}

func ensureImage(ctx context.Context, cli dockerpkg.API, image string) error {
	if _, _, err := cli.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	}

	reader, err := cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	defer reader.Close()

	// Wait for pull to complete
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to complete image pull %s: %w", image, err)
	}
	return nil
}

// Remove stops and removes every container and network of an instance. It reports
// whether anything was found. Stop failures are tolerated; removal failures are not.
func Remove(ctx context.Context, cli dockerpkg.API, instanceName string, progress Progress) (bool, error) {
	if progress == nil {
		progress = func(string, ...any) {}
	}

	filter := dockerpkg.InstanceFilter(instanceName, "")

	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true, Filters: filter})
	if err != nil {
		return false, fmt.Errorf("failed to list containers: %w", err)
	}

	networks, err := cli.NetworkList(ctx, types.NetworkListOptions{Filters: filter})
	if err != nil {
		return false, fmt.Errorf("failed to list networks: %w", err)
	}

	if len(containers) == 0 && len(networks) == 0 {
		return false, nil
	}

	timeout := stopTimeoutSeconds
	for _, c := range containers {
		name := containerName(c)
		progress("Stopping %s...\n", name)
		// Might already be stopped
		_ = cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout})

		progress("Removing %s...\n", name)
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			return true, fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	for _, n := range networks {
		progress("Removing network %s...\n", n.Name)
		if err := cli.NetworkRemove(ctx, n.ID); err != nil {
			return true, fmt.Errorf("failed to remove network %s: %w", n.Name, err)
		}
	}

	return true, nil
}

func containerName(c types.Container) string {
	if len(c.Names) > 0 {
		return c.Names[0]
	}
	return c.ID
}
