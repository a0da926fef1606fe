package rpcpool

import (
	"crypto/tls"
	"net/http"
	"sync"

	"connectrpc.com/connect"
)

// leaderKey identifies a cached leader redirect for a given node and
// interface: once a node tells us "forward to X", we remember X for
// this (service, interface, original-addr) triple so the next call
// skips straight to the leader instead of re-discovering it.
type leaderKey struct {
	service   Service
	iface     Interface
	fromAddr  string
}

// Pool caches connect clients per address and leader redirects per
// (service, interface, address), mirroring the source client pool's
// get_leader_addr/set_leader_addr bookkeeping.
type Pool struct {
	mu         sync.RWMutex
	clients    map[string]*CallClient
	leaders    map[leaderKey]string
	httpClient *http.Client
	tlsConfig  *tls.Config
	opts       []connect.ClientOption
}

// NewPool creates a client pool using httpClient (built via
// NewHTTPClient) for every connection it opens.
func NewPool(httpClient *http.Client, tlsConfig *tls.Config, opts ...connect.ClientOption) *Pool {
	return &Pool{
		clients:    make(map[string]*CallClient),
		leaders:    make(map[leaderKey]string),
		httpClient: httpClient,
		tlsConfig:  tlsConfig,
		opts:       opts,
	}
}

// Client returns the cached connect client for addr, creating one on
// first use.
func (p *Pool) Client(addr string) *CallClient {
	p.mu.RLock()
	c, ok := p.clients[addr]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[addr]; ok {
		return c
	}
	c = NewCallClient(p.httpClient, addr, p.tlsConfig, p.opts...)
	p.clients[addr] = c
	return c
}

// LeaderAddr returns the cached leader redirect for a call that was
// originally aimed at fromAddr, or "" if none is cached.
func (p *Pool) LeaderAddr(service Service, iface Interface, fromAddr string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.leaders[leaderKey{service, iface, fromAddr}]
}

// SetLeaderAddr records that calls to (service, iface) originally aimed
// at fromAddr should instead go to leaderAddr.
func (p *Pool) SetLeaderAddr(service Service, iface Interface, fromAddr, leaderAddr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leaders[leaderKey{service, iface, fromAddr}] = leaderAddr
}

// ForgetLeaderAddr clears a cached redirect, used when a call to the
// cached leader itself fails so the next attempt falls back to round
// robin over the configured address list.
func (p *Pool) ForgetLeaderAddr(service Service, iface Interface, fromAddr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.leaders, leaderKey{service, iface, fromAddr})
}
