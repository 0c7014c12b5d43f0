package config

import (
	"time"

	"gopkg.in/yaml.v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Duration", func() {
	var d Duration

	BeforeEach(func() {
		d = Duration(0)
	})

	Describe("ToDuration", func() {
		It("should return the wrapped value", func() {
			d = Duration(time.Second)

			Expect(d.ToDuration()).Should(Equal(time.Second))
		})
	})

	Describe("IsAboveZero", func() {
		It("should be false for zero", func() {
			Expect(d.IsAboveZero()).Should(BeFalse())
		})

		It("should be false for negative", func() {
			Expect(Duration(-1).IsAboveZero()).Should(BeFalse())
		})

		It("should be true for positive", func() {
			Expect(Duration(1).IsAboveZero()).Should(BeTrue())
		})
	})

	Describe("Seconds", func() {
		It("should return the seconds", func() {
			d = Duration(90 * time.Second)

			Expect(d.Seconds()).Should(Equal(90.0))
			Expect(d.SecondsU32()).Should(Equal(uint32(90)))
		})
	})

	Describe("String", func() {
		It("should be human readable", func() {
			d = Duration(90 * time.Second)

			Expect(d.String()).Should(Equal("1 minute 30 seconds"))
		})
	})

	Describe("UnmarshalYAML", func() {
		It("should parse duration strings", func() {
			err := yaml.Unmarshal([]byte("1m30s"), &d)

			Expect(err).Should(Succeed())
			Expect(d.ToDuration()).Should(Equal(90 * time.Second))
		})

		It("should fail on garbage", func() {
			err := yaml.Unmarshal([]byte("tomorrow"), &d)

			Expect(err).Should(HaveOccurred())
		})
	})
})
