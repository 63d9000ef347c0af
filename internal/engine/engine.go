// Package engine connects to a Docker engine either through the host socket
// or over TLS to a Docker Machine VM.
package engine

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/docker/docker/client"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/sirupsen/logrus"
)

// DefaultTLSPort is the port docker-machine exposes the engine on.
const DefaultTLSPort = 2376

var log = logrus.WithField("component", "engine")

// Hosts that mean "the engine on this machine".
var localHosts = map[string]bool{
	"localhost":    true,
	"docker.local": true,
}

// Endpoint describes how a bound engine is reached.
type Endpoint struct {
	Host        string // DOCKER_HOST value
	CertPath    string // empty for the local socket
	MachineName string
	APIVersion  string
	OSType      string
}

// Env returns the environment a docker CLI needs to reach the endpoint.
func (e Endpoint) Env() []string {
	env := []string{"DOCKER_HOST=" + e.Host}
	if e.CertPath != "" {
		env = append(env,
			"DOCKER_TLS_VERIFY=1",
			"DOCKER_CERT_PATH="+e.CertPath,
			"DOCKER_MACHINE_NAME="+e.MachineName,
		)
	}
	return env
}

// Connector implements setup.Engine with the Docker SDK.
type Connector struct {
	socket    string
	storePath string
	port      int

	mu       sync.Mutex
	client   *client.Client
	endpoint Endpoint
}

// New returns a Connector. socket is the local engine socket and storePath
// is the docker-machine storage directory holding per-machine certificates.
func New(socket, storePath string) *Connector {
	if socket == "" {
		socket = setup.DefaultNativeSocket
	}
	return &Connector{socket: socket, storePath: storePath, port: DefaultTLSPort}
}

// Bind connects to the engine at host and pings it. A previous binding is
// replaced only when the new one answers.
func (c *Connector) Bind(ctx context.Context, host, machineName string) error {
	ep := c.endpointFor(host, machineName)

	opts := []client.Opt{
		client.WithHost(ep.Host),
		client.WithAPIVersionNegotiation(),
	}
	if ep.CertPath != "" {
		opts = append(opts, client.WithTLSClientConfig(
			filepath.Join(ep.CertPath, "ca.pem"),
			filepath.Join(ep.CertPath, "cert.pem"),
			filepath.Join(ep.CertPath, "key.pem"),
		))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return fmt.Errorf("create docker client: %w", err)
	}

	ping, err := cli.Ping(ctx)
	if err != nil {
		cli.Close()
		return fmt.Errorf("ping %s: %w", ep.Host, err)
	}
	ep.APIVersion = ping.APIVersion
	ep.OSType = ping.OSType

	c.mu.Lock()
	old := c.client
	c.client = cli
	c.endpoint = ep
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	log.WithFields(logrus.Fields{"host": ep.Host, "api": ep.APIVersion}).Info("engine bound")
	return nil
}

func (c *Connector) endpointFor(host, machineName string) Endpoint {
	if localHosts[host] {
		return Endpoint{Host: "unix://" + c.socket, MachineName: machineName}
	}
	return Endpoint{
		Host:        "tcp://" + net.JoinHostPort(host, strconv.Itoa(c.port)),
		CertPath:    filepath.Join(c.storePath, "machines", machineName),
		MachineName: machineName,
	}
}

// Client returns the bound client, or nil before a successful Bind.
func (c *Connector) Client() *client.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// Endpoint returns the current binding.
func (c *Connector) Endpoint() Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// ServerVersion asks the bound engine for its version.
func (c *Connector) ServerVersion(ctx context.Context) (string, error) {
	cli := c.Client()
	if cli == nil {
		return "", fmt.Errorf("engine: not bound")
	}
	v, err := cli.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("query server version: %w", err)
	}
	return v.Version, nil
}

// Close releases the bound client.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

var _ setup.Engine = (*Connector)(nil)
