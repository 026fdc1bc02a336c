package docker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("prod", "test-run-123", "/home/user/project/bandstand.yml", ComponentRedis)

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "prod", labels[LabelInstanceName])
	assert.Equal(t, "test-run-123", labels[LabelInstanceRunID])
	assert.Equal(t, "/home/user/project/bandstand.yml", labels[LabelConfigPath])
	assert.Equal(t, "redis", labels[LabelComponent])
	assert.Len(t, labels, 5)
}

func TestBuildLabels_OptionalFieldsOmitted(t *testing.T) {
	labels := BuildLabels("dev", "test-run-456", "", "")

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "dev", labels[LabelInstanceName])
	assert.NotContains(t, labels, LabelComponent)
	assert.NotContains(t, labels, LabelConfigPath)
	assert.Len(t, labels, 3)
}

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	_, err := uuid.Parse(id1)
	assert.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestFilters(t *testing.T) {
	project := ProjectFilter()
	assert.Equal(t, []string{"bandstand.project=true"}, project.Get("label"))

	instance := InstanceFilter("prod", "")
	assert.Equal(t, []string{"bandstand.instance.name=prod"}, instance.Get("label"))

	redis := InstanceFilter("prod", ComponentRedis)
	assert.ElementsMatch(t, []string{"bandstand.instance.name=prod", "bandstand.component=redis"}, redis.Get("label"))
}

func TestResourceNames(t *testing.T) {
	assert.Equal(t, "bandstand-network-prod", NetworkName("prod"))
	assert.Equal(t, "bandstand-redis-prod", RedisContainerName("prod"))
}
