// Package discovery locates a containerized mur daemon through Docker labels and derives
// the base URL the backend client should use to reach it.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"
)

// Label keys and values identifying mur containers
const (
	LabelComponent = "murdash.component"
	LabelInstance  = "murdash.instance"
	ComponentServe = "mur-serve"
)

// ServePort is the container port the mur daemon listens on
const ServePort nat.Port = "3847/tcp"

// ErrNoDaemon is returned when no running mur daemon container publishes ServePort.
var ErrNoDaemon = errors.New("no running mur daemon container found")

// ContainerLister is the subset of the Docker API used for discovery.
// *client.Client satisfies it.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// Daemon describes one mur daemon container.
type Daemon struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Instance string `json:"instance,omitempty"`
	State    string `json:"state"`
	URL      string `json:"url,omitempty"` // Empty when ServePort is not published
}

// Running reports whether the container is running and reachable from the host.
func (d Daemon) Running() bool {
	return d.State == "running" && d.URL != ""
}

// FindDaemons lists every container labelled as a mur daemon, running or not.
// Results are ordered with reachable daemons first, then by name.
func FindDaemons(ctx context.Context, cli ContainerLister) ([]Daemon, error) {
	filter := filters.NewArgs()
	filter.Add("label", fmt.Sprintf("%s=%s", LabelComponent, ComponentServe))

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	host := GetHost()
	daemons := make([]Daemon, 0, len(containers))
	for _, c := range containers {
		d := Daemon{
			ID:       c.ID,
			Name:     containerName(c),
			Instance: c.Labels[LabelInstance],
			State:    c.State,
		}
		if port, ok := publishedPort(c.Ports); ok {
			d.URL = fmt.Sprintf("http://%s:%d", host, port)
		}
		daemons = append(daemons, d)
	}

	slices.SortStableFunc(daemons, func(a, b Daemon) int {
		if a.Running() != b.Running() {
			if a.Running() {
				return -1
			}
			return 1
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})

	return daemons, nil
}

// LocalURL returns the base URL of the first reachable mur daemon container.
// Returns ErrNoDaemon if none is running with ServePort published.
func LocalURL(ctx context.Context, cli ContainerLister) (string, error) {
	daemons, err := FindDaemons(ctx, cli)
	if err != nil {
		return "", err
	}
	if len(daemons) == 0 || !daemons[0].Running() {
		return "", ErrNoDaemon
	}
	return daemons[0].URL, nil
}

// GetHost returns the hostname under which published container ports are reachable.
// Inside a container it returns "host.docker.internal" to reach the host's published
// ports. Otherwise, it returns "localhost".
func GetHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// publishedPort finds the host port bound to ServePort.
func publishedPort(ports []types.Port) (uint16, bool) {
	for _, p := range ports {
		if p.PublicPort == 0 {
			continue
		}
		port, err := nat.NewPort(p.Type, strconv.Itoa(int(p.PrivatePort)))
		if err != nil {
			continue
		}
		if port == ServePort {
			return p.PublicPort, true
		}
	}
	return 0, false
}

func containerName(c types.Container) string {
	if len(c.Names) == 0 {
		return c.ID
	}
	name := c.Names[0]
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	return name
}
