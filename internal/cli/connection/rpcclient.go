package connection

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

// defaultCallTimeout bounds a single CLI-initiated RPC, independent of
// the dispatcher's own retry/backoff budget.
const defaultCallTimeout = 30 * time.Second

// RPCClient is the CLI's connection to the placement center: it
// dispatches Envelopes over internal/rpcpool the same way a broker
// node would, rather than speaking a separate admin-HTTP dialect.
type RPCClient struct {
	dispatcher *rpcpool.Dispatcher
	addrs      []string
}

// NewRPCClient builds a client that dispatches to addrs.
func NewRPCClient(addrs []string, tlsConfig *tls.Config) *RPCClient {
	httpClient := rpcpool.NewHTTPClient(tlsConfig)
	pool := rpcpool.NewPool(httpClient, tlsConfig)
	return &RPCClient{dispatcher: rpcpool.NewDispatcher(pool), addrs: addrs}
}

// Addrs returns the configured placement center addresses.
func (c *RPCClient) Addrs() []string { return c.addrs }

// Call encodes req, dispatches it to service/iface, and decodes the
// reply payload into reply (if non-nil).
func (c *RPCClient) Call(ctx context.Context, service rpcpool.Service, iface rpcpool.Interface, req, reply any) error {
	payload, err := rpcpool.EncodePayload(req)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	resp, err := c.dispatcher.Call(ctx, service, iface, c.addrs, &rpcpool.Envelope{
		Service:   service,
		Interface: iface,
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	return rpcpool.DecodePayload(resp.Payload, reply)
}
