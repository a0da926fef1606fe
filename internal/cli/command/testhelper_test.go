package command

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/robustmq/robustmq-go/internal/cli/connection"
	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

// mockPlacementServer is a stand-in placement center: it answers the
// single Call procedure every RPC goes through, dispatching by
// (Service, Interface) to a test-registered function.
type mockPlacementServer struct {
	*httptest.Server
	handlers map[string]rpcpool.Handler
}

func handlerKey(service rpcpool.Service, iface rpcpool.Interface) string {
	return string(service) + "/" + string(iface)
}

// newMockPlacementServer creates a server with no handlers registered;
// register them with handle before issuing requests.
func newMockPlacementServer() *mockPlacementServer {
	m := &mockPlacementServer{handlers: make(map[string]rpcpool.Handler)}

	path, httpHandler := rpcpool.NewCallHandler(func(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
		h, ok := m.handlers[handlerKey(req.Service, req.Interface)]
		if !ok {
			return nil, fmt.Errorf("no handler registered for %s", handlerKey(req.Service, req.Interface))
		}
		return h(ctx, req)
	})

	mux := http.NewServeMux()
	mux.Handle(path, httpHandler)
	m.Server = httptest.NewServer(mux)
	return m
}

// handle registers a reply function for one (service, interface) pair.
func (m *mockPlacementServer) handle(service rpcpool.Service, iface rpcpool.Interface, fn func(req *rpcpool.Envelope) (any, error)) {
	m.handlers[handlerKey(service, iface)] = func(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
		v, err := fn(req)
		if err != nil {
			return nil, err
		}
		payload, err := rpcpool.EncodePayload(v)
		if err != nil {
			return nil, err
		}
		return &rpcpool.Envelope{Service: req.Service, Interface: req.Interface, Payload: payload}, nil
	}
}

// testContext creates a CLI context targeting server, with extraFlags
// applied (string/int/bool/time.Duration/[]string) and positional args.
func testContext(server *mockPlacementServer, extraFlags map[string]any, args []string) *cli.Context {
	app := &cli.App{
		Name:  "test",
		Flags: globalFlags(),
		Metadata: map[string]any{
			"connMgr": connection.NewManager(),
		},
	}

	allFlags := append([]cli.Flag{}, globalFlags()...)
	existing := make(map[string]bool)
	for _, f := range allFlags {
		for _, name := range f.Names() {
			existing[name] = true
		}
	}
	for name, val := range extraFlags {
		if existing[name] {
			continue
		}
		switch val.(type) {
		case string:
			allFlags = append(allFlags, &cli.StringFlag{Name: name})
		case int:
			allFlags = append(allFlags, &cli.IntFlag{Name: name})
		case bool:
			allFlags = append(allFlags, &cli.BoolFlag{Name: name})
		case time.Duration:
			allFlags = append(allFlags, &cli.DurationFlag{Name: name})
		case []string:
			allFlags = append(allFlags, &cli.StringSliceFlag{Name: name})
		}
		existing[name] = true
	}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range allFlags {
		f.Apply(set)
	}

	cliArgs := []string{"--placement", server.URL}
	for name, val := range extraFlags {
		switch v := val.(type) {
		case string:
			if v != "" {
				cliArgs = append(cliArgs, "--"+name, v)
			}
		case int:
			if v != 0 {
				cliArgs = append(cliArgs, "--"+name, fmt.Sprintf("%d", v))
			}
		case bool:
			if v {
				cliArgs = append(cliArgs, "--"+name)
			}
		case time.Duration:
			if v != 0 {
				cliArgs = append(cliArgs, "--"+name, v.String())
			}
		case []string:
			for _, s := range v {
				cliArgs = append(cliArgs, "--"+name, s)
			}
		}
	}
	cliArgs = append(cliArgs, args...)

	set.Parse(cliArgs)
	return cli.NewContext(app, set, nil)
}

// Dummy test to avoid unused import warnings on packages only some
// builds exercise directly.
func TestDummy(t *testing.T) {
	_ = flag.ContinueOnError
}
