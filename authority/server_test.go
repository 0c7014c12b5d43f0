package authority

import (
	"context"
	"crypto/ecdsa"
	"net"
	"net/netip"
	"time"

	"github.com/0xERR0R/canarynet/helpertest"

	"github.com/jmhodges/clock"
	"github.com/miekg/dns"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testKey generates an ECDSA P-256 common signing key for a zone
func testKey(zone string) (*dns.DNSKEY, *ecdsa.PrivateKey) {
	key := &dns.DNSKEY{
		Hdr:       dns.RR_Header{Name: dns.Fqdn(zone), Rrtype: dns.TypeDNSKEY, Class: dns.ClassINET, Ttl: 3600},
		Flags:     257,
		Protocol:  3,
		Algorithm: dns.ECDSAP256SHA256,
	}

	priv, err := key.Generate(256)
	Expect(err).Should(Succeed())

	signer, ok := priv.(*ecdsa.PrivateKey)
	Expect(ok).Should(BeTrue())

	return key, signer
}

func queryAddr(addr, name string, qtype uint16, dnssec bool) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)

	if dnssec {
		msg.SetEdns0(4096, true)
	}

	client := &dns.Client{Net: "udp", Timeout: 2 * time.Second}

	response, _, err := client.Exchange(msg, addr)
	Expect(err).Should(Succeed())

	return response
}

var _ = Describe("Server", func() {
	var (
		zone *Zone
		srv  *Server
		addr string
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		addr = net.JoinHostPort("127.0.0.1", helpertest.GetStringPort(5310))

		zone = NewZone("test.", clock.New())
		Expect(zone.SetApex("ns.test.", netip.MustParseAddr("127.0.0.1"), netip.Addr{})).Should(Succeed())
		Expect(zone.SetHost("canary.test.",
			netip.MustParseAddr("192.168.76.10"), netip.MustParseAddr("fd00:6361:6e61::20"))).Should(Succeed())

		key, signer := testKey("test.")
		Expect(zone.SetKey(key, signer)).Should(Succeed())

		srv = NewServer("test", addr)
		srv.Serve(zone)
		Expect(srv.Start(ctx)).Should(Succeed())

		DeferCleanup(func() {
			Expect(srv.Stop(ctx)).Should(Succeed())
		})
	})

	When("an existing name is queried", func() {
		It("should answer authoritatively per address family", func() {
			response := queryAddr(addr, "canary.test.", dns.TypeA, false)
			Expect(response.Rcode).Should(Equal(dns.RcodeSuccess))
			Expect(response.Authoritative).Should(BeTrue())
			Expect(response.Answer).Should(helpertest.BeDNSRecord("canary.test.", helpertest.A, "192.168.76.10"))

			response = queryAddr(addr, "canary.test.", dns.TypeAAAA, false)
			Expect(response.Answer).Should(helpertest.BeDNSRecord("canary.test.", helpertest.AAAA, "fd00:6361:6e61::20"))
		})

		It("should include signatures only when asked for", func() {
			response := queryAddr(addr, "canary.test.", dns.TypeA, true)
			Expect(response.Answer).Should(HaveLen(2))
			Expect(response.Answer[1]).Should(BeAssignableToTypeOf(&dns.RRSIG{}))

			response = queryAddr(addr, "canary.test.", dns.TypeA, false)
			Expect(response.Answer).Should(HaveLen(1))
		})

		It("should serve the zone key", func() {
			response := queryAddr(addr, "test.", dns.TypeDNSKEY, true)
			Expect(response.Answer).ShouldNot(BeEmpty())
			Expect(response.Answer[0]).Should(BeAssignableToTypeOf(&dns.DNSKEY{}))
		})
	})

	When("an unknown name is queried", func() {
		It("should answer NXDOMAIN with the SOA", func() {
			response := queryAddr(addr, "missing.test.", dns.TypeA, false)
			Expect(response.Rcode).Should(Equal(dns.RcodeNameError))
			Expect(response.Ns).ShouldNot(BeEmpty())
			Expect(response.Ns[0]).Should(BeAssignableToTypeOf(&dns.SOA{}))
		})
	})

	When("a name outside all zones is queried", func() {
		It("should refuse", func() {
			response := queryAddr(addr, "example.org.", dns.TypeA, false)
			Expect(response.Rcode).Should(Equal(dns.RcodeRefused))
		})
	})

	When("a delegation is pushed", func() {
		var childDS *dns.DS

		pushDelegation := func() *dns.Msg {
			childKey, _ := testKey("child.test.")
			childDS = childKey.ToDS(dns.SHA256)

			update := new(dns.Msg)
			update.SetUpdate("test.")
			update.Ns = append(update.Ns,
				&dns.NS{
					Hdr: dns.RR_Header{Name: "child.test.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 3600},
					Ns:  "ns.child.test.",
				},
				&dns.A{
					Hdr: dns.RR_Header{Name: "ns.child.test.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 3600},
					A:   net.ParseIP("127.0.0.2"),
				},
				childDS,
			)

			client := &dns.Client{Net: "tcp", Timeout: 2 * time.Second}
			response, _, err := client.Exchange(update, addr)
			Expect(err).Should(Succeed())

			return response
		}

		It("should acknowledge after persisting", func() {
			response := pushDelegation()
			Expect(response.Rcode).Should(Equal(dns.RcodeSuccess))

			deleg, ok := zone.Delegation("child.test.")
			Expect(ok).Should(BeTrue())
			Expect(deleg.DS.Digest).Should(Equal(childDS.Digest))
		})

		It("should refer queries below the delegation point", func() {
			pushDelegation()

			response := queryAddr(addr, "www.child.test.", dns.TypeA, true)
			Expect(response.Rcode).Should(Equal(dns.RcodeSuccess))
			Expect(response.Authoritative).Should(BeFalse())
			Expect(response.Answer).Should(BeEmpty())
			Expect(response.Ns).Should(ContainElement(BeAssignableToTypeOf(&dns.NS{})))
			Expect(response.Ns).Should(ContainElement(BeAssignableToTypeOf(&dns.DS{})))
			Expect(response.Extra).Should(helpertest.BeDNSRecord("ns.child.test.", helpertest.A, "127.0.0.2"))
		})

		It("should answer the DS query itself", func() {
			pushDelegation()

			response := queryAddr(addr, "child.test.", dns.TypeDS, true)
			Expect(response.Authoritative).Should(BeTrue())
			Expect(response.Answer).Should(ContainElement(BeAssignableToTypeOf(&dns.DS{})))
		})

		It("should treat identical re-publication as a no-op", func() {
			pushDelegation()

			serial := zone.Serial()

			update := new(dns.Msg)
			update.SetUpdate("test.")
			update.Ns = append(update.Ns,
				&dns.NS{
					Hdr: dns.RR_Header{Name: "child.test.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 3600},
					Ns:  "ns.child.test.",
				},
				childDS,
			)

			client := &dns.Client{Net: "tcp", Timeout: 2 * time.Second}
			response, _, err := client.Exchange(update, addr)
			Expect(err).Should(Succeed())
			Expect(response.Rcode).Should(Equal(dns.RcodeSuccess))

			Expect(zone.Serial()).Should(Equal(serial))
		})

		It("should reject updates for zones it does not serve", func() {
			update := new(dns.Msg)
			update.SetUpdate("other.")
			update.Ns = append(update.Ns, &dns.NS{
				Hdr: dns.RR_Header{Name: "child.other.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 3600},
				Ns:  "ns.child.other.",
			})

			client := &dns.Client{Net: "tcp", Timeout: 2 * time.Second}
			response, _, err := client.Exchange(update, addr)
			Expect(err).Should(Succeed())
			Expect(response.Rcode).Should(Equal(dns.RcodeNotAuth))
		})
	})

	When("a secondary synchronizes", func() {
		var (
			secondary *Secondary
			secAddr   string
		)

		BeforeEach(func() {
			secAddr = net.JoinHostPort("127.0.0.1", helpertest.GetStringPort(5410))
			secondary = NewSecondary("test-sec", "test.", addr, clock.New(), secAddr)

			Expect(secondary.Start(ctx)).Should(Succeed())

			DeferCleanup(func() {
				Expect(secondary.Stop(ctx)).Should(Succeed())
			})
		})

		It("should serve the transferred copy with signatures", func() {
			Expect(secondary.Serial()).Should(Equal(zone.Serial()))

			response := queryAddr(secAddr, "canary.test.", dns.TypeA, true)
			Expect(response.Answer).Should(HaveLen(2))
			Expect(response.Answer[0]).Should(helpertest.BeDNSRecord("canary.test.", helpertest.A, "192.168.76.10"))
		})

		It("should catch up with primary mutations on resync", func() {
			Expect(zone.SetHost("late.test.", netip.MustParseAddr("192.168.76.99"), netip.Addr{})).Should(Succeed())
			Expect(secondary.Serial()).ShouldNot(Equal(zone.Serial()))

			Expect(secondary.Sync(ctx)).Should(Succeed())
			Expect(secondary.Serial()).Should(Equal(zone.Serial()))

			response := queryAddr(secAddr, "late.test.", dns.TypeA, false)
			Expect(response.Answer).Should(helpertest.BeDNSRecord("late.test.", helpertest.A, "192.168.76.99"))
		})

		It("should reject dynamic updates", func() {
			update := new(dns.Msg)
			update.SetUpdate("test.")
			update.Ns = append(update.Ns, &dns.NS{
				Hdr: dns.RR_Header{Name: "child.test.", Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 3600},
				Ns:  "ns.child.test.",
			})

			client := &dns.Client{Net: "tcp", Timeout: 2 * time.Second}
			response, _, err := client.Exchange(update, secAddr)
			Expect(err).Should(Succeed())
			Expect(response.Rcode).Should(Equal(dns.RcodeNotAuth))
		})
	})
})
