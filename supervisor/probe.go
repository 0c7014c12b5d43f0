package supervisor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/miekg/dns"
)

const (
	probeAttempts = uint(2)
	probeCooldown = 100 * time.Millisecond
	probeTimeout  = 2 * time.Second
)

// TCPProbe is satisfied once a TCP connection to addr succeeds
func TCPProbe(addr string) Probe {
	return func(ctx context.Context) error {
		return retry.Do(
			func() error {
				var d net.Dialer

				conn, err := d.DialContext(ctx, "tcp", addr)
				if err != nil {
					return err
				}

				return conn.Close()
			},
			retry.Attempts(probeAttempts),
			retry.Delay(probeCooldown),
			retry.DelayType(retry.FixedDelay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
		)
	}
}

// HTTPProbe is satisfied once a GET to url returns a status below 500
func HTTPProbe(url string) Probe {
	client := &http.Client{Timeout: probeTimeout}

	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}

		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("got status code %d", resp.StatusCode)
		}

		return nil
	}
}

// DNSProbe is satisfied once addr answers an SOA query for name with any
// rcode, which proves the authority is serving.
func DNSProbe(addr, name string) Probe {
	client := &dns.Client{Net: "udp", Timeout: probeTimeout}

	return func(ctx context.Context) error {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(name), dns.TypeSOA)

		_, _, err := client.ExchangeContext(ctx, msg, addr)

		return err
	}
}
