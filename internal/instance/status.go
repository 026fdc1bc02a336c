package instance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	dockerpkg "github.com/dyluth/bandstand/internal/docker"
)

// Status represents the health status of a Bandstand instance
type Status string

const (
	// StatusRunning indicates all containers are running
	StatusRunning Status = "Running"

	// StatusDegraded indicates some containers are stopped or missing
	StatusDegraded Status = "Degraded"

	// StatusStopped indicates all containers exist but are stopped
	StatusStopped Status = "Stopped"
)

// DetermineStatus analyzes a set of containers and determines the overall instance status.
func DetermineStatus(containers []types.Container) Status {
	if len(containers) == 0 {
		return StatusStopped
	}

	runningCount := 0
	for _, c := range containers {
		if c.State == "running" {
			runningCount++
		}
	}

	switch {
	case runningCount == len(containers):
		return StatusRunning
	case runningCount > 0:
		return StatusDegraded
	default:
		return StatusStopped
	}
}

// InstanceInfo holds information about a Bandstand instance
type InstanceInfo struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	RedisPort  int    `json:"redis_port,omitempty"`
	ConfigPath string `json:"config_path,omitempty"`
	Uptime     string `json:"uptime"`
}

// List returns every Bandstand instance known to Docker, sorted by name.
func List(ctx context.Context, cli dockerpkg.API, now time.Time) ([]InstanceInfo, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: dockerpkg.ProjectFilter(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	instances := make(map[string][]types.Container)
	for _, c := range containers {
		name := c.Labels[dockerpkg.LabelInstanceName]
		instances[name] = append(instances[name], c)
	}

	infos := make([]InstanceInfo, 0, len(instances))
	for name, group := range instances {
		info := InstanceInfo{
			Name:       name,
			Status:     DetermineStatus(group),
			ConfigPath: group[0].Labels[dockerpkg.LabelConfigPath],
			Uptime:     "-",
		}

		for _, c := range group {
			if portStr, ok := c.Labels[dockerpkg.LabelRedisPort]; ok {
				if port, err := strconv.Atoi(portStr); err == nil {
					info.RedisPort = port
				}
			}
		}

		if info.Status == StatusRunning {
			info.Uptime = FormatDuration(now.Sub(time.Unix(group[0].Created, 0)))
		}

		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})

	return infos, nil
}

// FormatDuration renders an uptime as "1h 2m", "3m 4s" or "5s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	hours := d / time.Hour
	d -= hours * time.Hour

	minutes := d / time.Minute
	d -= minutes * time.Minute

	seconds := d / time.Second

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
