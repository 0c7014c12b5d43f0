package config

import (
	"strings"
	"time"

	"github.com/0xERR0R/canarynet/helpertest"
	"github.com/0xERR0R/canarynet/log"
	"github.com/creasty/defaults"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		cfg Config
		err error
	)

	BeforeEach(func() {
		cfg = Config{}
		err = defaults.Set(&cfg)
		Expect(err).Should(Succeed())
	})

	Describe("LoadConfig", func() {
		var tmpDir *helpertest.TmpFolder

		BeforeEach(func() {
			tmpDir = helpertest.NewTmpFolder("config")
			DeferCleanup(tmpDir.Clean)
		})

		When("the file exists and is valid", func() {
			It("should load with defaults applied", func() {
				cfgFile := tmpDir.CreateStringFile("config.yml",
					"dns:",
					"  zones:",
					"    - name: .",
					"      serviceRef: root-ns",
					"  canary: status.lab.",
					"services:",
					"  - name: root-ns",
					"grid:",
					"  endpoints:",
					"    - http://localhost:4444",
				)

				c, err := LoadConfig(cfgFile.Path, true)
				Expect(err).Should(Succeed())
				Expect(c.HTTPPort).Should(Equal(uint16(4000)))
				Expect(c.DNS.Port).Should(Equal(uint16(53)))
				Expect(c.Network.Name).Should(Equal("canarynet"))
				Expect(c.BringUpTimeout.ToDuration()).Should(Equal(5 * time.Minute))
				Expect(c.Tests.MaxFail).Should(Equal(10))
				Expect(c.Services[0].IsBuiltin()).Should(BeTrue())
				Expect(c.Services[0].StartTimeout.ToDuration()).Should(Equal(150 * time.Second))
			})
		})

		When("the file does not exist", func() {
			It("should fail when mandatory", func() {
				_, err := LoadConfig(tmpDir.JoinPath("missing.yml"), true)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("can't read config file"))
			})

			It("should return defaults when not mandatory", func() {
				c, err := LoadConfig(tmpDir.JoinPath("missing.yml"), false)
				Expect(err).Should(Succeed())
				Expect(c.HTTPPort).Should(Equal(uint16(4000)))
			})
		})

		When("the file contains unknown properties", func() {
			It("should fail", func() {
				cfgFile := tmpDir.CreateStringFile("config.yml",
					"dns:",
					"  zoness: []",
				)

				_, err := LoadConfig(cfgFile.Path, true)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("wrong file structure"))
			})
		})
	})

	Describe("validation", func() {
		validYaml := strings.Join([]string{
			"dns:",
			"  zones:",
			"    - name: .",
			"      serviceRef: root-ns",
			"    - name: lab",
			"      parent: .",
			"      serviceRef: lab-ns",
			"      secondaryRefs:",
			"        - lab-ns2",
			"  canary: status.lab.",
			"ca:",
			"  serviceRef: ca",
			"  hostname: ca",
			"  zoneRef: lab",
			"services:",
			"  - name: root-ns",
			"  - name: lab-ns",
			"  - name: lab-ns2",
			"  - name: ca",
			"  - name: app",
			"    image: example/app:latest",
			"    hostname: app",
			"    zoneRef: lab",
			"    dependsOn:",
			"      - lab-ns",
			"    probe:",
			"      type: http",
			"      target: /health",
			"      port: 8080",
			"targets:",
			"  fixtures:",
			"    - name: good",
			"      zone: lab",
			"    - name: expired",
			"      zone: lab",
			"      profile:",
			"        certState: expired",
			"grid:",
			"  endpoints:",
			"    - http://localhost:4444",
			"tests:",
			"  appServiceRef: app",
		}, "\n")

		When("the configuration is complete", func() {
			It("should validate", func() {
				c, err := unmarshalConfig([]byte(validYaml), &cfg)
				Expect(err).Should(Succeed())
				Expect(c.DNS.Zones).Should(HaveLen(2))
				Expect(c.DNS.Zones[1].FQDN()).Should(Equal("lab."))
				Expect(c.Targets.Fixtures[0].Hostname()).Should(Equal("good.lab."))
				Expect(c.Targets.Fixtures[1].Profile.CertState).Should(Equal(CertStateExpired))
				Expect(c.Targets.Fixtures[1].Profile.Protocols).Should(
					ConsistOf(TLSVersionTls12, TLSVersionTls13))
			})
		})

		When("a service reference is dangling", func() {
			It("should report the zone reference", func() {
				broken := strings.Replace(validYaml, "serviceRef: root-ns", "serviceRef: nosuch", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("references unknown service 'nosuch'"))
			})

			It("should report the dependency", func() {
				broken := strings.Replace(validYaml, "- lab-ns\n", "- nosuch\n", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("unknown"))
			})
		})

		When("the zone tree is malformed", func() {
			It("should require exactly one root", func() {
				broken := strings.Replace(validYaml, "      parent: .\n", "", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("exactly one zone without parent"))
			})

			It("should require the canary inside a zone", func() {
				minimal := strings.Join([]string{
					"dns:",
					"  zones:",
					"    - name: lab",
					"      serviceRef: lab-ns",
					"  canary: status.other.",
					"services:",
					"  - name: lab-ns",
					"grid:",
					"  endpoints:",
					"    - http://localhost:4444",
				}, "\n")

				_, err := unmarshalConfig([]byte(minimal), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("not inside any configured zone"))
			})
		})

		When("fixtures are configured without a ca", func() {
			It("should fail", func() {
				broken := strings.Replace(validYaml, "  serviceRef: ca\n", "", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("no ca section"))
			})
		})

		When("a fixture profile is contradictory", func() {
			It("should reject revoked self-signed certificates", func() {
				broken := strings.Replace(validYaml,
					"        certState: expired",
					"        certState: selfsigned\n        ocsp: revoked", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("can't be CA-revoked"))
			})

			It("should reject protocol sets with a gap", func() {
				broken := strings.Replace(validYaml,
					"        certState: expired",
					"        protocols:\n          - tls10\n          - tls13", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("not a contiguous range"))
			})

			It("should reject renegotiation on in-process fixtures", func() {
				broken := strings.Replace(validYaml,
					"        certState: expired",
					"        renegotiation: true", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("renegotiation"))
			})
		})

		When("a service section is inconsistent", func() {
			It("should require hostname and zoneRef together", func() {
				broken := strings.Replace(validYaml, "    zoneRef: lab\n", "", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("hostname and zoneRef must be set together"))
			})

			It("should reject duplicate service names", func() {
				broken := strings.Replace(validYaml, "- name: lab-ns2", "- name: lab-ns", 1)

				_, err := unmarshalConfig([]byte(broken), &cfg)
				Expect(err).Should(HaveOccurred())
				Expect(err.Error()).Should(ContainSubstring("duplicate service name"))
			})
		})
	})

	Describe("LogConfig", func() {
		It("should log all sections", func() {
			logger, hook := log.NewMockEntry()

			cfg.DNS.Zones = []Zone{{Name: ".", ServiceRef: "root-ns"}}
			cfg.Services = []Service{{Name: "root-ns"}}
			cfg.LogConfig(logger)

			Expect(hook.Calls).ShouldNot(BeEmpty())
			Expect(hook.Messages).Should(ContainElement(ContainSubstring("network:")))
			Expect(hook.Messages).Should(ContainElement(ContainSubstring("report")))
		})
	})
})
