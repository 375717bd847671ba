// Package httpclient provides shared HTTP clients keyed by configuration so
// transports and their connection pools are reused across the process.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// Options selects a shared client. Identical options return the same client.
type Options struct {
	Timeout             time.Duration
	InsecureSkipVerify  bool
	MaxIdleConnsPerHost int
}

var sharedClients sync.Map

// Get returns the shared HTTP client for the given options.
func Get(opts Options) *http.Client {
	key := fmt.Sprintf("%s|%t|%d", opts.Timeout, opts.InsecureSkipVerify, opts.MaxIdleConnsPerHost)
	if cached, ok := sharedClients.Load(key); ok {
		return cached.(*http.Client)
	}

	client := &http.Client{
		Transport: buildTransport(opts),
		Timeout:   opts.Timeout,
	}
	actual, _ := sharedClients.LoadOrStore(key, client)
	return actual.(*http.Client)
}

func buildTransport(opts Options) *http.Transport {
	perHost := opts.MaxIdleConnsPerHost
	if perHost <= 0 {
		perHost = defaultMaxIdleConnsPerHost
	}

	transport := &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: perHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return transport
}
