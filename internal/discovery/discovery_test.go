package discovery

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	containers []types.Container
	err        error
	lastOpts   container.ListOptions
}

func (f *fakeLister) ContainerList(_ context.Context, opts container.ListOptions) ([]types.Container, error) {
	f.lastOpts = opts
	return f.containers, f.err
}

func serveContainer(name, state string, ports ...types.Port) types.Container {
	return types.Container{
		ID:     name + "-id",
		Names:  []string{"/" + name},
		State:  state,
		Ports:  ports,
		Labels: map[string]string{LabelComponent: ComponentServe, LabelInstance: "default"},
	}
}

func expectedURL(port string) string {
	return "http://" + GetHost() + ":" + port
}

func TestFindDaemons(t *testing.T) {
	t.Run("filters by component label", func(t *testing.T) {
		lister := &fakeLister{}
		_, err := FindDaemons(context.Background(), lister)
		require.NoError(t, err)

		assert.True(t, lister.lastOpts.All)
		assert.True(t, lister.lastOpts.Filters.ExactMatch("label", "murdash.component=mur-serve"))
	})

	t.Run("derives URL from published serve port", func(t *testing.T) {
		lister := &fakeLister{containers: []types.Container{
			serveContainer("mur", "running",
				types.Port{PrivatePort: 9090, PublicPort: 19090, Type: "tcp"},
				types.Port{PrivatePort: 3847, PublicPort: 13847, Type: "tcp"},
			),
		}}

		daemons, err := FindDaemons(context.Background(), lister)
		require.NoError(t, err)
		require.Len(t, daemons, 1)
		assert.Equal(t, "mur", daemons[0].Name)
		assert.Equal(t, "default", daemons[0].Instance)
		assert.Equal(t, expectedURL("13847"), daemons[0].URL)
		assert.True(t, daemons[0].Running())
	})

	t.Run("unpublished or udp port yields no URL", func(t *testing.T) {
		lister := &fakeLister{containers: []types.Container{
			serveContainer("unpublished", "running", types.Port{PrivatePort: 3847, Type: "tcp"}),
			serveContainer("udp", "running", types.Port{PrivatePort: 3847, PublicPort: 3847, Type: "udp"}),
		}}

		daemons, err := FindDaemons(context.Background(), lister)
		require.NoError(t, err)
		for _, d := range daemons {
			assert.Empty(t, d.URL, d.Name)
			assert.False(t, d.Running())
		}
	})

	t.Run("reachable daemons sort first", func(t *testing.T) {
		lister := &fakeLister{containers: []types.Container{
			serveContainer("a-stopped", "exited", types.Port{PrivatePort: 3847, PublicPort: 1, Type: "tcp"}),
			serveContainer("z-running", "running", types.Port{PrivatePort: 3847, PublicPort: 2, Type: "tcp"}),
		}}

		daemons, err := FindDaemons(context.Background(), lister)
		require.NoError(t, err)
		assert.Equal(t, "z-running", daemons[0].Name)
		assert.Equal(t, "a-stopped", daemons[1].Name)
	})

	t.Run("list failure is wrapped", func(t *testing.T) {
		_, err := FindDaemons(context.Background(), &fakeLister{err: errors.New("boom")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list containers")
	})
}

func TestLocalURL(t *testing.T) {
	t.Run("first running daemon", func(t *testing.T) {
		lister := &fakeLister{containers: []types.Container{
			serveContainer("mur", "running", types.Port{PrivatePort: 3847, PublicPort: 3847, Type: "tcp"}),
		}}
		url, err := LocalURL(context.Background(), lister)
		require.NoError(t, err)
		assert.Equal(t, expectedURL("3847"), url)
	})

	t.Run("none running", func(t *testing.T) {
		lister := &fakeLister{containers: []types.Container{serveContainer("mur", "exited")}}
		_, err := LocalURL(context.Background(), lister)
		assert.ErrorIs(t, err, ErrNoDaemon)
	})

	t.Run("none at all", func(t *testing.T) {
		_, err := LocalURL(context.Background(), &fakeLister{})
		assert.ErrorIs(t, err, ErrNoDaemon)
	})
}

func TestGetHost(t *testing.T) {
	_, err := os.Stat("/.dockerenv")
	if err == nil {
		assert.Equal(t, "host.docker.internal", GetHost())
	} else {
		assert.Equal(t, "localhost", GetHost())
	}
}

func TestDetermineStatus(t *testing.T) {
	up := Daemon{State: "running", URL: "http://localhost:3847"}
	down := Daemon{State: "exited"}

	tests := []struct {
		name     string
		daemons  []Daemon
		expected Status
	}{
		{name: "no daemons", daemons: nil, expected: StatusStopped},
		{name: "all running", daemons: []Daemon{up, up}, expected: StatusRunning},
		{name: "some running", daemons: []Daemon{up, down}, expected: StatusDegraded},
		{name: "none running", daemons: []Daemon{down}, expected: StatusStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineStatus(tt.daemons))
		})
	}
}
