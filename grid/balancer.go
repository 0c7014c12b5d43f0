package grid

import (
	"math"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"github.com/mroth/weightedrand"
)

type endpointStatus struct {
	url           string
	lastErrorTime time.Time
}

// Balancer picks a grid endpoint for each new session. Every endpoint
// starts with the same weight, endpoints with recent session failures are
// de-weighted and recover over the following hour.
type Balancer struct {
	clk       clock.Clock
	lock      sync.Mutex
	endpoints []*endpointStatus
}

// NewBalancer creates a balancer over the given endpoint URLs
func NewBalancer(clk clock.Clock, urls ...string) *Balancer {
	endpoints := make([]*endpointStatus, 0, len(urls))

	for _, url := range urls {
		endpoints = append(endpoints, &endpointStatus{
			url:           url,
			lastErrorTime: clk.Now().Add(-time.Hour),
		})
	}

	return &Balancer{clk: clk, endpoints: endpoints}
}

// Pick returns the endpoint for the next session
func (b *Balancer) Pick() string {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.endpoints) == 1 {
		return b.endpoints[0].url
	}

	var choices []weightedrand.Choice

	for _, endpoint := range b.endpoints {
		var weight float64 = 60

		sinceError := b.clk.Now().Sub(endpoint.lastErrorTime)
		if sinceError < time.Hour {
			// reduce weight: consider last error time
			weight = math.Max(1, weight-(60-sinceError.Minutes()))
		}

		choices = append(choices, weightedrand.Choice{
			Item:   endpoint,
			Weight: uint(weight),
		})
	}

	c, _ := weightedrand.NewChooser(choices...)

	return c.Pick().(*endpointStatus).url
}

// ReportFailure de-weights an endpoint after a failed session
func (b *Balancer) ReportFailure(url string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, endpoint := range b.endpoints {
		if endpoint.url == url {
			endpoint.lastErrorTime = b.clk.Now()

			return
		}
	}
}
