package instance

import (
	"context"
	"fmt"
	"regexp"

	"github.com/docker/docker/api/types/container"
	dockerpkg "github.com/dyluth/bandstand/internal/docker"
)

const (
	// MaxNameLength is the maximum length for an instance name (DNS-compatible)
	MaxNameLength = 63
)

var (
	// NamePattern is the regex pattern for valid instance names
	// Must be DNS-compatible: lowercase alphanumeric, hyphens allowed (but not at start/end)
	NamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
)

// ValidateName checks if an instance name is valid according to DNS naming rules.
// The name doubles as the Redis key namespace.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}

// CheckNameCollision checks if an instance with the given name already exists.
// Returns true if a collision exists (name is in use).
func CheckNameCollision(ctx context.Context, cli dockerpkg.API, instanceName string) (bool, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: dockerpkg.InstanceFilter(instanceName, ""),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check for name collision: %w", err)
	}

	return len(containers) > 0, nil
}
