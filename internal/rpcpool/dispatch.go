package rpcpool

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/robustmq/robustmq-go/internal/errs"
)

// maxRetryTimes bounds the attempt counter; Dispatcher.Call returns the
// last error once it is exceeded.
const maxRetryTimes = 5

// retrySleep returns a monotonic non-decreasing backoff for attempt n,
// capped so a flaky node can't stall a caller for minutes.
func retrySleep(times int) time.Duration {
	d := time.Duration(times) * 500 * time.Millisecond
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// Dispatcher sends an Envelope to one of a Service's addresses, retrying
// on transport errors and following forwardable (not-the-leader)
// responses to their stated leader address, mirroring the source
// client's retry_call loop exactly: round-robin over addrs unless a
// leader redirect is cached, forward-and-retry-immediately on a
// forwardable error, sleep-and-retry on any other error.
type Dispatcher struct {
	pool *Pool
}

// NewDispatcher builds a Dispatcher backed by pool.
func NewDispatcher(pool *Pool) *Dispatcher {
	return &Dispatcher{pool: pool}
}

// Call sends req to one of addrs for (service, iface), retrying per the
// forward/backoff rules above, and returns the reply Envelope.
func (d *Dispatcher) Call(ctx context.Context, service Service, iface Interface, addrs []string, req *Envelope) (*Envelope, error) {
	if len(addrs) == 0 {
		return nil, errs.ErrNoConnection.WithDetails("no addresses configured for " + string(service))
	}

	times := 1
	var lastErr error
	for {
		addr, next := d.calcAddr(service, iface, addrs, times)
		times = next

		client := d.pool.Client(addr)
		resp, err := client.CallUnary(ctx, connect.NewRequest(req))
		if err == nil {
			return resp.Msg, nil
		}
		lastErr = err

		errText := err.Error()
		if errs.IsForwardable(errText) {
			if leaderAddr := errs.ForwardAddr(errText); leaderAddr != "" {
				d.pool.SetLeaderAddr(service, iface, addr, leaderAddr)
			}
		} else {
			d.pool.ForgetLeaderAddr(service, iface, addr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retrySleep(times)):
			}
		}

		if times > maxRetryTimes {
			return nil, lastErr
		}
	}
}

// calcAddr picks the next address to try: round robin over addrs, but
// redirected to the cached leader address when one is known for this
// (service, iface, candidate) triple.
func (d *Dispatcher) calcAddr(service Service, iface Interface, addrs []string, times int) (string, int) {
	addr := addrs[times%len(addrs)]
	if leaderAddr := d.pool.LeaderAddr(service, iface, addr); leaderAddr != "" {
		return leaderAddr, times + 1
	}
	return addr, times + 1
}
