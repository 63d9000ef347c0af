package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/javanstorm/dockhand/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindLocalSocket(t *testing.T) {
	sock := testutil.FakeEngine(t, testutil.EngineInfo{Version: "28.5.1", APIVersion: "1.47", OSType: "linux"})
	c := New(sock, t.TempDir())
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Bind(ctx, "localhost", "default"))
	require.NotNil(t, c.Client())

	ep := c.Endpoint()
	assert.Equal(t, "unix://"+sock, ep.Host)
	assert.Equal(t, "1.47", ep.APIVersion)
	assert.Equal(t, "linux", ep.OSType)
	assert.Empty(t, ep.CertPath)
	assert.Equal(t, []string{"DOCKER_HOST=unix://" + sock}, ep.Env())

	version, err := c.ServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "28.5.1", version)
}

func TestBindMissingSocket(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "none.sock"), t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Bind(ctx, "docker.local", "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping unix://")
	assert.Nil(t, c.Client(), "failed bind keeps no client")

	_, err = c.ServerVersion(ctx)
	assert.Error(t, err)
}

func TestEndpointForMachine(t *testing.T) {
	c := New("", "/home/me/.docker/machine")
	ep := c.endpointFor("192.168.99.100", "default")

	assert.Equal(t, "tcp://192.168.99.100:2376", ep.Host)
	assert.Equal(t, "/home/me/.docker/machine/machines/default", ep.CertPath)
	assert.Equal(t, []string{
		"DOCKER_HOST=tcp://192.168.99.100:2376",
		"DOCKER_TLS_VERIFY=1",
		"DOCKER_CERT_PATH=/home/me/.docker/machine/machines/default",
		"DOCKER_MACHINE_NAME=default",
	}, ep.Env())
}

func TestCloseWithoutBind(t *testing.T) {
	assert.NoError(t, New("", "").Close())
}
