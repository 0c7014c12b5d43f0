package deploy

import (
	"context"

	"github.com/0xERR0R/canarynet/config"

	"github.com/docker/docker/api/types/network"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Container runner", func() {
	var (
		net *Network
		cfg config.Service
	)

	BeforeEach(func() {
		net = NewNetwork(config.Network{
			Name:     "testnet",
			IPv4CIDR: "192.168.76.0/24",
			IPv6CIDR: "fd00:6361:6e61::/64",
		})

		cfg = config.Service{
			Name:     "app",
			Image:    "app:latest",
			Env:      map[string]string{"MODE": "test"},
			Cmd:      []string{"serve"},
			Hostname: "web",
			ZoneRef:  "test.",
			Probe:    config.Probe{Type: config.ProbeTypeHttp, Target: "/", Port: 8080},
		}
	})

	Describe("Container request", func() {
		It("should join the closed network with name and hostname aliases", func() {
			req := NewContainer(cfg, net).request()

			Expect(req.Image).Should(Equal("app:latest"))
			Expect(req.Networks).Should(ConsistOf(net.Name()))
			Expect(req.NetworkAliases).Should(HaveKeyWithValue(net.Name(), ConsistOf("app", "web")))
			Expect(req.Env).Should(HaveKeyWithValue("MODE", "test"))
			Expect(req.Cmd).Should(Equal([]string{"serve"}))
		})

		It("should expose the probe port", func() {
			req := NewContainer(cfg, net).request()

			Expect(req.ExposedPorts).Should(ConsistOf("8080/tcp"))
		})

		It("should expose nothing without a probe port", func() {
			cfg.Probe.Port = 0

			req := NewContainer(cfg, net).request()

			Expect(req.ExposedPorts).Should(BeEmpty())
		})
	})

	Describe("FQDN", func() {
		It("should compose hostname and zone", func() {
			Expect(NewContainer(cfg, net).FQDN()).Should(Equal("web.test."))
		})

		It("should be empty without a hostname", func() {
			cfg.Hostname = ""
			cfg.ZoneRef = ""

			Expect(NewContainer(cfg, net).FQDN()).Should(BeEmpty())
		})
	})

	Describe("Endpoint addresses", func() {
		It("should extract a dual-stack pair", func() {
			pair, err := pairFromEndpoint(&network.EndpointSettings{
				IPAddress:         "192.168.76.3",
				GlobalIPv6Address: "fd00:6361:6e61::12",
			})

			Expect(err).Should(Succeed())
			Expect(pair.IPv4.String()).Should(Equal("192.168.76.3"))
			Expect(pair.IPv6.String()).Should(Equal("fd00:6361:6e61::12"))
		})

		It("should fail without an IPv4 address", func() {
			_, err := pairFromEndpoint(&network.EndpointSettings{
				GlobalIPv6Address: "fd00:6361:6e61::12",
			})

			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("IPv4"))
		})

		It("should fail without an IPv6 address", func() {
			_, err := pairFromEndpoint(&network.EndpointSettings{
				IPAddress: "192.168.76.3",
			})

			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("IPv6"))
		})
	})

	Describe("Unstarted runners", func() {
		It("should tolerate stopping a never started container", func() {
			Expect(NewContainer(cfg, net).Stop(context.Background())).Should(Succeed())
		})

		It("should refuse an endpoint of a stopped container", func() {
			_, err := NewContainer(cfg, net).Endpoint(context.Background(), 8080)

			Expect(err).Should(HaveOccurred())
		})

		It("should tolerate stopping a never started network", func() {
			Expect(net.Stop(context.Background())).Should(Succeed())
		})
	})
})
