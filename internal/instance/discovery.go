package instance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/docker/docker/api/types/container"
	dockerpkg "github.com/dyluth/bandstand/internal/docker"
)

// GetInstanceRedisPort retrieves the Redis port for the given instance from Docker labels.
// Returns an error if the Redis container is not found or the port label is missing.
func GetInstanceRedisPort(ctx context.Context, cli dockerpkg.API, instanceName string) (int, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: dockerpkg.InstanceFilter(instanceName, dockerpkg.ComponentRedis),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return 0, fmt.Errorf("Redis container not found for instance '%s'", instanceName)
	}

	redisContainer := containers[0]
	if redisContainer.State != "running" {
		return 0, fmt.Errorf("instance '%s' is not running (redis is %s)", instanceName, redisContainer.State)
	}

	portStr, ok := redisContainer.Labels[dockerpkg.LabelRedisPort]
	if !ok {
		return 0, fmt.Errorf("Redis port label missing for instance '%s'", instanceName)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid Redis port '%s': %w", portStr, err)
	}

	return port, nil
}

// DiscoverRedisURL returns the URL of a running instance's managed Redis.
func DiscoverRedisURL(ctx context.Context, cli dockerpkg.API, instanceName string) (string, error) {
	port, err := GetInstanceRedisPort(ctx, cli, instanceName)
	if err != nil {
		return "", err
	}
	return GetRedisURL(port), nil
}

// CanonicalPath resolves symlinks and returns the absolute form of path, so the
// config path label is stable across working directories.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	return resolved, nil
}
