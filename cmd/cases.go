package cmd

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/runner"
	"github.com/0xERR0R/canarynet/target"

	"github.com/miekg/dns"
)

// buildCases derives the suite of a run: one smoke case against the
// application under test and one posture case per declared fixture, in
// declaration order.
func (o *orchestrator) buildCases(targets []*target.Target, roots *x509.CertPool) []runner.Case {
	var cases []runner.Case

	if c := o.appCase(); c != nil {
		cases = append(cases, *c)
	}

	for _, t := range targets {
		cases = append(cases, o.fixtureCase(t, roots))
	}

	return cases
}

// appCase drives the browser against the application under test
func (o *orchestrator) appCase() *runner.Case {
	ref := o.cfg.Tests.AppServiceRef
	if ref == "" {
		return nil
	}

	svc := o.serviceByName(ref)
	if svc == nil || svc.Hostname == "" {
		log.PrefixedLog("runner").Warnf("application service '%s' has no hostname, skipping its case", ref)

		return nil
	}

	host := strings.TrimSuffix(dns.Fqdn(svc.Hostname+"."+svc.ZoneRef), ".")

	url := "http://" + host
	if svc.Probe.Port != 0 {
		url = fmt.Sprintf("http://%s:%d", host, svc.Probe.Port)
	}

	return &runner.Case{
		Name: "app/" + ref,
		Run: func(ctx context.Context, browser runner.Browser) error {
			if err := browser.Navigate(ctx, url); err != nil {
				return runner.Failf("application is not reachable at %s: %v", url, err)
			}

			state, err := browser.Execute(ctx, "return document.readyState")
			if err != nil {
				return err
			}

			if !strings.Contains(string(state), "complete") && !strings.Contains(string(state), "interactive") {
				return runner.Failf("application document never became ready, got %s", state)
			}

			return nil
		},
	}
}

// fixtureCase checks one fixture against its declared profile: the
// capability surface, the trust verdict of its certificate and, for
// fixtures living inside the network, browser reachability.
func (o *orchestrator) fixtureCase(t *target.Target, roots *x509.CertPool) runner.Case {
	name := "fixture/" + t.Fixture.Name

	if !t.Ready() {
		provisionErr := t.Err

		return runner.Case{
			Name: name,
			Run: func(_ context.Context, _ runner.Browser) error {
				return runner.Failf("fixture was not provisioned: %v", provisionErr)
			},
		}
	}

	var (
		host            = strings.TrimSuffix(t.Fixture.Hostname(), ".")
		addr            = t.Addresses(o.cfg.Targets.Port)[0]
		profile         = t.Fixture.Profile
		trusted         = profile.CertState == config.CertStateValid
		containerBacked = t.Fixture.Image != ""
		port            = o.cfg.Targets.Port
	)

	return runner.Case{
		Name: name,
		Run: func(ctx context.Context, browser runner.Browser) error {
			if err := target.VerifyCapabilities(ctx, addr, profile); err != nil {
				return runner.Failf("capability mismatch: %v", err)
			}

			err := trustedHandshake(ctx, addr, host, roots)
			if trusted && err != nil {
				return runner.Failf("certificate should verify against the run's CA: %v", err)
			}

			if !trusted && err == nil {
				return runner.Failf("certificate should be rejected, but verified")
			}

			// the builtin servers live in the orchestrator process, only
			// containerized fixtures are visible to the browsers
			if trusted && containerBacked {
				url := fmt.Sprintf("https://%s:%d/", host, port)
				if err := browser.Navigate(ctx, url); err != nil {
					return runner.Failf("fixture should be reachable at %s: %v", url, err)
				}
			}

			return nil
		},
	}
}

// trustedHandshake connects with full verification against the run's CA.
// Legacy fixtures negotiate down to TLS 1.0, the verdict here is about
// trust, not protocol strength.
func trustedHandshake(ctx context.Context, addr, serverName string, roots *x509.CertPool) error {
	dialer := &tls.Dialer{Config: &tls.Config{
		RootCAs:    roots,
		ServerName: serverName,
		MinVersion: tls.VersionTLS10, //nolint:gosec
	}}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	return conn.Close()
}
