// Package kernelrpc lets one kerneld instance probe a peer kerneld's health
// over gRPC. It exists for multi-kernel deployments where a supervisor (or a
// sibling kernel acting as a standby) needs to know whether a remote Core is
// still serving, without speaking its IPC wire protocol directly.
package kernelrpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/GriffinCanCode/AgentOS/backend/internal/resilience"
)

// Client dials a remote kerneld's gRPC listener and probes its built-in
// health service, guarded by a circuit breaker so a wedged peer can't stall
// every caller that depends on it.
type Client struct {
	conn    *grpc.ClientConn
	health  grpc_health_v1.HealthClient
	addr    string
	breaker *resilience.Breaker
}

// Dial connects to addr without blocking; connection failures surface on the
// first Probe call instead.
func Dial(addr string) (*Client, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial kernel peer %s: %w", addr, err)
	}

	breaker := resilience.New("kernel-peer:"+addr, resilience.Settings{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		conn:    conn,
		health:  grpc_health_v1.NewHealthClient(conn),
		addr:    addr,
		breaker: breaker,
	}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Addr returns the dialed address.
func (c *Client) Addr() string {
	return c.addr
}

// BreakerState reports the circuit breaker's current state, for
// introspection.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Probe asks the peer's health service whether service (empty string means
// the overall server) is serving. resilience.ErrCircuitOpen is returned
// without contacting the peer at all once the breaker has tripped.
func (c *Client) Probe(ctx context.Context, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			return nil, err
		}
		if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
			return resp.Status, fmt.Errorf("peer reports status %s", resp.Status)
		}
		return resp.Status, nil
	})
	if err != nil {
		if status, ok := result.(grpc_health_v1.HealthCheckResponse_ServingStatus); ok {
			return status, err
		}
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return result.(grpc_health_v1.HealthCheckResponse_ServingStatus), nil
}
