package chain

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/0xERR0R/canarynet/addrpool"
	"github.com/0xERR0R/canarynet/authority"
	"github.com/0xERR0R/canarynet/helpertest"
	"github.com/0xERR0R/canarynet/model"

	"github.com/jmhodges/clock"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Bootstrapper", func() {
	var (
		ctx context.Context
		clk clock.Clock
	)

	BeforeEach(func() {
		ctx = context.Background()
		clk = clock.New()
	})

	// a full chain of trust spread over the loopback range: the root on
	// 127.0.0.1, "test." on 127.0.0.2 and "app.test." on 127.0.0.3, all
	// answering on the same port so referral glue leads to the next hop
	Describe("a three level chain", func() {
		var (
			bootstrapper *Bootstrapper
			rootZone     *authority.Zone
			testZone     *authority.Zone
			appZone      *authority.Zone
			secondary    *authority.Secondary
			port         string
		)

		BeforeEach(func() {
			port = helpertest.GetStringPort(5510)

			rootZone = authority.NewZone(".", clk)
			testZone = authority.NewZone("test.", clk)
			appZone = authority.NewZone("app.test.", clk)

			for name, zone := range map[string]*authority.Zone{
				"127.0.0.1": rootZone,
				"127.0.0.2": testZone,
				"127.0.0.3": appZone,
			} {
				srv := authority.NewServer(zone.Name(), net.JoinHostPort(name, port))
				srv.Serve(zone)
				Expect(srv.Start(ctx)).Should(Succeed())
				DeferCleanup(func() {
					Expect(srv.Stop(context.Background())).Should(Succeed())
				})
			}

			portNum := uint16(helpertest.GetIntPort(5510))
			canaryAddr := addrpool.Pair{
				IPv4: netip.MustParseAddr("192.168.76.20"),
				IPv6: netip.MustParseAddr("fd00:6361:6e61::20"),
			}
			bootstrapper = NewBootstrapper(clk, "canary.app.test.", canaryAddr, portNum, 3, 10*time.Millisecond)

			Expect(bootstrapper.Register(ZoneDecl{
				Name:        ".",
				Zone:        rootZone,
				NSName:      "ns.",
				Addr:        addrpool.Pair{IPv4: netip.MustParseAddr("127.0.0.1")},
				PrimaryAddr: net.JoinHostPort("127.0.0.1", port),
			})).Should(Succeed())

			// the secondary transfers at start, so the primary's apex has
			// to be installed first, which Register takes care of
			secondaryAddr := net.JoinHostPort("127.0.0.2", helpertest.GetStringPort(5610))
			secondary = authority.NewSecondary("test-sec", "test.",
				net.JoinHostPort("127.0.0.2", port), clk, secondaryAddr)

			Expect(bootstrapper.Register(ZoneDecl{
				Name:        "test.",
				Parent:      ".",
				Zone:        testZone,
				NSName:      "ns.test.",
				Addr:        addrpool.Pair{IPv4: netip.MustParseAddr("127.0.0.2")},
				PrimaryAddr: net.JoinHostPort("127.0.0.2", port),
				Secondaries: []*authority.Secondary{secondary},
			})).Should(Succeed())

			Expect(secondary.Start(ctx)).Should(Succeed())
			DeferCleanup(func() {
				Expect(secondary.Stop(context.Background())).Should(Succeed())
			})

			Expect(bootstrapper.Register(ZoneDecl{
				Name:        "app.test.",
				Parent:      "test.",
				Zone:        appZone,
				NSName:      "ns.app.test.",
				Addr:        addrpool.Pair{IPv4: netip.MustParseAddr("127.0.0.3")},
				PrimaryAddr: net.JoinHostPort("127.0.0.3", port),
			})).Should(Succeed())
		})

		It("should reject a child registered before its parent", func() {
			err := bootstrapper.Register(ZoneDecl{Name: "sub.other.", Parent: "other."})
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("not registered"))
		})

		When("the chain is bootstrapped", func() {
			BeforeEach(func() {
				Expect(bootstrapper.Bootstrap(ctx)).Should(Succeed())
			})

			It("should move every zone to verified", func() {
				for zone, phase := range bootstrapper.Phases() {
					Expect(phase).Should(Equal(model.ZonePhaseVerified), "zone %s", zone)
				}
			})

			It("should anchor trust at the root key", func() {
				anchor := bootstrapper.TrustAnchor()
				Expect(anchor).ShouldNot(BeNil())
				Expect(anchor.Hdr.Name).Should(Equal("."))
				Expect(anchor.Flags).Should(Equal(uint16(257)))
			})

			It("should persist the delegations in the parents", func() {
				deleg, ok := rootZone.Delegation("test.")
				Expect(ok).Should(BeTrue())
				Expect(deleg.DS).ShouldNot(BeNil())

				deleg, ok = testZone.Delegation("app.test.")
				Expect(ok).Should(BeTrue())
				Expect(deleg.DS.KeyTag).Should(Equal(appZone.Key().KeyTag()))
			})

			It("should have synchronized the secondary", func() {
				Expect(secondary.Serial()).Should(Equal(testZone.Serial()))
			})

			It("should resolve the canary through the chain", func() {
				answer, err := bootstrapper.ResolveHost(ctx, "canary.app.test.", dns.TypeA)
				Expect(err).Should(Succeed())
				Expect(answer).Should(helpertest.BeDNSRecord("canary.app.test.", helpertest.A, "192.168.76.20"))
			})

			It("should serve the apex glue of every zone", func() {
				answer, err := bootstrapper.ResolveHost(ctx, "ns.app.test.", dns.TypeA)
				Expect(err).Should(Succeed())
				Expect(answer).Should(helpertest.BeDNSRecord("ns.app.test.", helpertest.A, "127.0.0.3"))
			})

			It("should accept a host directly below the root", func() {
				Expect(bootstrapper.RegisterHost(ctx, "direct.", addrpool.Pair{
					IPv4: netip.MustParseAddr("192.168.76.50"),
				})).Should(Succeed())

				answer, err := bootstrapper.ResolveHost(ctx, "direct.", dns.TypeA)
				Expect(err).Should(Succeed())
				Expect(answer).Should(helpertest.BeDNSRecord("direct.", helpertest.A, "192.168.76.50"))
			})

			It("should treat re-publication of an unchanged delegation as a no-op", func() {
				serial := rootZone.Serial()

				Expect(bootstrapper.PublishDelegation(ctx, "test.")).Should(Succeed())
				Expect(rootZone.Serial()).Should(Equal(serial))
			})

			It("should register and resolve a dual stack host per family", func() {
				Expect(bootstrapper.RegisterHost(ctx, "dual.app.test.", addrpool.Pair{
					IPv4: netip.MustParseAddr("192.168.76.30"),
					IPv6: netip.MustParseAddr("fd00:6361:6e61::30"),
				})).Should(Succeed())

				answer, err := bootstrapper.ResolveHost(ctx, "dual.app.test.", dns.TypeA)
				Expect(err).Should(Succeed())
				Expect(answer).Should(helpertest.BeDNSRecord("dual.app.test.", helpertest.A, "192.168.76.30"))

				answer, err = bootstrapper.ResolveHost(ctx, "dual.app.test.", dns.TypeAAAA)
				Expect(err).Should(Succeed())
				Expect(answer).Should(helpertest.BeDNSRecord("dual.app.test.", helpertest.AAAA, "fd00:6361:6e61::30"))
			})

			It("should survive a key rotation of an inner zone", func() {
				oldTag := testZone.Key().KeyTag()

				Expect(bootstrapper.RotateKey(ctx, "test.")).Should(Succeed())

				Expect(testZone.Key().KeyTag()).ShouldNot(Equal(oldTag))
				Expect(bootstrapper.Phase("test.")).Should(Equal(model.ZonePhaseVerified))

				deleg, ok := rootZone.Delegation("test.")
				Expect(ok).Should(BeTrue())
				Expect(deleg.DS.KeyTag).Should(Equal(testZone.Key().KeyTag()))
			})

			It("should survive a root key rotation", func() {
				oldAnchor := bootstrapper.TrustAnchor()

				Expect(bootstrapper.RotateKey(ctx, ".")).Should(Succeed())

				Expect(bootstrapper.TrustAnchor().KeyTag()).ShouldNot(Equal(oldAnchor.KeyTag()))

				_, err := bootstrapper.ResolveHost(ctx, "canary.app.test.", dns.TypeA)
				Expect(err).Should(Succeed())
			})

			It("should fail verification against a foreign anchor", func() {
				foreign, err := GenerateKey(".")
				Expect(err).Should(Succeed())

				verifier := NewVerifier(clk, uint16(helpertest.GetIntPort(5510)))
				err = verifier.Verify(ctx, "canary.app.test.", dns.TypeA,
					net.JoinHostPort("127.0.0.1", port), foreign.Key)

				Expect(err).Should(BeAssignableToTypeOf(&VerificationError{}))
				Expect(err.Error()).Should(ContainSubstring("trust anchor"))
			})
		})

		When("a host is registered before its zone is delegated", func() {
			It("should be rejected", func() {
				err := bootstrapper.RegisterHost(ctx, "early.app.test.", addrpool.Pair{
					IPv4: netip.MustParseAddr("192.168.76.40"),
				})
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("not delegated"))
			})
		})

		When("a host outside every zone is registered", func() {
			It("should be rejected", func() {
				err := bootstrapper.RegisterHost(ctx, "host.example.org.", addrpool.Pair{
					IPv4: netip.MustParseAddr("192.168.76.41"),
				})
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("no zone encloses"))
			})
		})
	})

	Describe("delegation publication against an unreachable parent", func() {
		It("should exhaust its attempts and fail the bootstrap", func() {
			deadZone := authority.NewZone("dead.", clk)
			childZone := authority.NewZone("x.dead.", clk)

			canaryAddr := addrpool.Pair{IPv4: netip.MustParseAddr("192.168.76.60")}
			bootstrapper := NewBootstrapper(clk, "canary.x.dead.", canaryAddr, 53, 2, 5*time.Millisecond)

			Expect(bootstrapper.Register(ZoneDecl{
				Name:        "dead.",
				Zone:        deadZone,
				NSName:      "ns.dead.",
				Addr:        addrpool.Pair{IPv4: netip.MustParseAddr("127.0.0.1")},
				PrimaryAddr: "127.0.0.1:1",
			})).Should(Succeed())

			Expect(bootstrapper.Register(ZoneDecl{
				Name:        "x.dead.",
				Parent:      "dead.",
				Zone:        childZone,
				NSName:      "ns.x.dead.",
				Addr:        addrpool.Pair{IPv4: netip.MustParseAddr("127.0.0.2")},
				PrimaryAddr: "127.0.0.2:1",
			})).Should(Succeed())

			err := bootstrapper.Bootstrap(ctx)

			var pubErr *PublicationError
			Expect(err).Should(BeAssignableToTypeOf(pubErr))
			Expect(err.(*PublicationError).Zone).Should(Equal("x.dead."))
			Expect(err.(*PublicationError).Attempts).Should(Equal(uint(2)))

			Expect(bootstrapper.Phase("x.dead.")).Should(Equal(model.ZonePhasePublished))
		})
	})
})
