package rpcpool

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
)

// callProcedure is the single connect procedure every placement center
// RPC travels over. There is no generated service descriptor in this
// tree, so the path is a literal rather than a constant derived from a
// .proto file.
const callProcedure = "/robustmq.placement.v1.PlacementService/Call"

// CallClient is the client side of callProcedure.
type CallClient = connect.Client[Envelope, Envelope]

// NewHTTPClient builds the http.Client used to reach a placement center
// node, with mTLS when tlsConfig is non-nil and a plain warning-worthy
// cleartext transport otherwise (development only).
func NewHTTPClient(tlsConfig *tls.Config) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     tlsConfig,
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// NewCallClient builds a connect client bound to addr, using jsonCodec
// so Envelope travels as JSON instead of requiring generated protobuf
// message types.
func NewCallClient(httpClient *http.Client, addr string, tlsConfig *tls.Config, opts ...connect.ClientOption) *CallClient {
	scheme := "http"
	if tlsConfig != nil {
		scheme = "https"
	}
	baseURL := fmt.Sprintf("%s://%s", scheme, addr)
	allOpts := append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return connect.NewClient[Envelope, Envelope](httpClient, baseURL+callProcedure, allOpts...)
}

// Handler dispatches an incoming Envelope to the registered service
// implementation and builds the reply Envelope.
type Handler func(ctx context.Context, req *Envelope) (*Envelope, error)

// NewCallHandler wraps fn as the connect unary handler for callProcedure.
func NewCallHandler(fn Handler, opts ...connect.HandlerOption) (string, http.Handler) {
	allOpts := append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	return callProcedure, connect.NewUnaryHandler(callProcedure,
		func(ctx context.Context, req *connect.Request[Envelope]) (*connect.Response[Envelope], error) {
			reply, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, err
			}
			return connect.NewResponse(reply), nil
		}, allOpts...)
}
