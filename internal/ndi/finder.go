package ndi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the mDNS service NDI senders advertise.
const ServiceType = "_ndi._tcp"

// Discovery defaults.
const (
	DefaultDiscoveryTimeout = 10 * time.Second
	DefaultSettle           = time.Second
)

// MDNSFinder discovers NDI sources by browsing mDNS.
type MDNSFinder struct {
	// Timeout bounds the whole search.
	Timeout time.Duration
	// Settle ends the search this long after the first source appears.
	Settle time.Duration
}

// NewMDNSFinder creates a finder with the given search timeout.
func NewMDNSFinder(timeout time.Duration) *MDNSFinder {
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}
	return &MDNSFinder{
		Timeout: timeout,
		Settle:  DefaultSettle,
	}
}

// Find browses for NDI senders until the timeout or the settle window expires.
func (f *MDNSFinder) Find(ctx context.Context) ([]SourceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("create mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("browse %s: %w", ServiceType, err)
	}

	found := make(chan *zeroconf.ServiceEntry)
	go func() {
		defer close(found)
		for e := range entries {
			select {
			case found <- e:
			case <-ctx.Done():
			}
		}
	}()

	return collect(ctx, found, f.Settle), nil
}

// collect gathers unique entries until the channel closes, the context ends,
// or settle elapses after the first entry.
func collect(ctx context.Context, entries <-chan *zeroconf.ServiceEntry, settle time.Duration) []SourceInfo {
	var sources []SourceInfo
	seen := make(map[string]bool)
	var settled <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return sources
		case <-settled:
			return sources
		case e, ok := <-entries:
			if !ok {
				return sources
			}
			if e == nil {
				continue
			}
			name := unescapeInstance(e.Instance)
			if seen[name] {
				continue
			}
			seen[name] = true
			sources = append(sources, NewSourceInfo(name, e.HostName, e.Port))

			if settled == nil && settle > 0 {
				settled = time.After(settle)
			}
		}
	}
}

// unescapeInstance removes DNS-SD escaping from an instance name.
func unescapeInstance(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
