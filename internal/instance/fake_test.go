package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// fakeDocker is an in-memory stand-in for the Docker Engine API.
type fakeDocker struct {
	containers []types.Container
	networks   []types.NetworkResource
	images     map[string]bool

	configs     map[string]*container.Config
	hostConfigs map[string]*container.HostConfig
	pulled      []string
	stopped     []string

	listErr   error
	createErr error
	removeErr error
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{
		images:      make(map[string]bool),
		configs:     make(map[string]*container.Config),
		hostConfigs: make(map[string]*container.HostConfig),
	}
}

func matchLabels(labels map[string]string, args filters.Args) bool {
	for _, want := range args.Get("label") {
		key, value, _ := strings.Cut(want, "=")
		if labels[key] != value {
			return false
		}
	}
	return true
}

func (f *fakeDocker) ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []types.Container
	for _, c := range f.containers {
		if matchLabels(c.Labels, options.Filters) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeDocker) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	id := fmt.Sprintf("c-%d", len(f.containers)+1)
	f.containers = append(f.containers, types.Container{
		ID:     id,
		Names:  []string{"/" + containerName},
		Image:  config.Image,
		Labels: config.Labels,
		State:  "created",
	})
	f.configs[id] = config
	f.hostConfigs[id] = hostConfig
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeDocker) find(id string) *types.Container {
	for i := range f.containers {
		if f.containers[i].ID == id {
			return &f.containers[i]
		}
	}
	return nil
}

func (f *fakeDocker) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	c := f.find(containerID)
	if c == nil {
		return errors.New("no such container")
	}
	c.State = "running"
	return nil
}

func (f *fakeDocker) ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error {
	f.stopped = append(f.stopped, containerID)
	if c := f.find(containerID); c != nil {
		c.State = "exited"
	}
	return nil
}

func (f *fakeDocker) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	kept := f.containers[:0]
	for _, c := range f.containers {
		if c.ID != containerID {
			kept = append(kept, c)
		}
	}
	f.containers = kept
	return nil
}

func (f *fakeDocker) ImageInspectWithRaw(ctx context.Context, image string) (types.ImageInspect, []byte, error) {
	if f.images[image] {
		return types.ImageInspect{ID: image}, nil, nil
	}
	return types.ImageInspect{}, nil, errors.New("no such image")
}

func (f *fakeDocker) ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error) {
	f.pulled = append(f.pulled, ref)
	f.images[ref] = true
	return io.NopCloser(strings.NewReader(`{"status":"done"}`)), nil
}

func (f *fakeDocker) NetworkCreate(ctx context.Context, name string, options types.NetworkCreate) (types.NetworkCreateResponse, error) {
	id := fmt.Sprintf("n-%d", len(f.networks)+1)
	f.networks = append(f.networks, types.NetworkResource{ID: id, Name: name, Labels: options.Labels})
	return types.NetworkCreateResponse{ID: id}, nil
}

func (f *fakeDocker) NetworkList(ctx context.Context, options types.NetworkListOptions) ([]types.NetworkResource, error) {
	var out []types.NetworkResource
	for _, n := range f.networks {
		if matchLabels(n.Labels, options.Filters) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeDocker) NetworkRemove(ctx context.Context, networkID string) error {
	kept := f.networks[:0]
	for _, n := range f.networks {
		if n.ID != networkID {
			kept = append(kept, n)
		}
	}
	f.networks = kept
	return nil
}
