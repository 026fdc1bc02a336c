package docker

import (
	"fmt"

	"github.com/docker/docker/api/types/filters"
	"github.com/google/uuid"
)

// Label keys used for Bandstand resources
const (
	LabelProject       = "bandstand.project"
	LabelInstanceName  = "bandstand.instance.name"
	LabelInstanceRunID = "bandstand.instance.run_id"
	LabelConfigPath    = "bandstand.config.path"
	LabelComponent     = "bandstand.component"
	LabelRedisPort     = "bandstand.redis.port"
)

// ComponentRedis is the component label value of an instance's Redis container
const ComponentRedis = "redis"

// BuildLabels creates the standard label set for all Bandstand resources.
// component and configPath may be empty.
func BuildLabels(instanceName, runID, configPath, component string) map[string]string {
	labels := map[string]string{
		LabelProject:       "true",
		LabelInstanceName:  instanceName,
		LabelInstanceRunID: runID,
	}

	if configPath != "" {
		labels[LabelConfigPath] = configPath
	}
	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for an instance run.
// Each invocation of `bandstand up` gets a unique run ID.
func GenerateRunID() string {
	return uuid.New().String()
}

// ProjectFilter matches every Bandstand resource.
func ProjectFilter() filters.Args {
	return filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=true", LabelProject)))
}

// InstanceFilter matches the resources of one instance, optionally narrowed to a component.
func InstanceFilter(instanceName, component string) filters.Args {
	args := filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=%s", LabelInstanceName, instanceName)))
	if component != "" {
		args.Add("label", fmt.Sprintf("%s=%s", LabelComponent, component))
	}
	return args
}

// NetworkName returns the Docker network name for an instance
func NetworkName(instanceName string) string {
	return fmt.Sprintf("bandstand-network-%s", instanceName)
}

// RedisContainerName returns the Redis container name for an instance
func RedisContainerName(instanceName string) string {
	return fmt.Sprintf("bandstand-redis-%s", instanceName)
}
