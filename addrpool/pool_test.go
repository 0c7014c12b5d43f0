package addrpool

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	var (
		pool *Pool
		err  error
	)

	BeforeEach(func() {
		pool, err = New("192.168.76.0/24", "fd00:6361:6e61::/64")
		Expect(err).Should(Succeed())
	})

	When("created with invalid prefixes", func() {
		It("should fail", func() {
			_, err = New("notacidr", "fd00::/64")
			Expect(err).Should(HaveOccurred())

			_, err = New("192.168.76.0/24", "alsowrong")
			Expect(err).Should(HaveOccurred())
		})
	})

	When("owners are assigned", func() {
		It("should hand out addresses inside both prefixes", func() {
			pair, err := pool.Assign("dns-root")
			Expect(err).Should(Succeed())
			Expect(pair.IPv4.String()).Should(HavePrefix("192.168.76."))
			Expect(pair.IPv6.String()).Should(HavePrefix("fd00:6361:6e61::"))
		})

		It("should assign stable pairs per owner", func() {
			first, err := pool.Assign("dns-root")
			Expect(err).Should(Succeed())

			_, err = pool.Assign("dns-tld")
			Expect(err).Should(Succeed())

			again, err := pool.Assign("dns-root")
			Expect(err).Should(Succeed())
			Expect(again).Should(Equal(first))
		})

		It("should assign distinct pairs to distinct owners", func() {
			a, err := pool.Assign("dns-root")
			Expect(err).Should(Succeed())

			b, err := pool.Assign("dns-tld")
			Expect(err).Should(Succeed())

			Expect(a.IPv4).ShouldNot(Equal(b.IPv4))
			Expect(a.IPv6).ShouldNot(Equal(b.IPv6))
		})

		It("should never pair the same host number in both families", func() {
			pair, err := pool.Assign("target-dualstack")
			Expect(err).Should(Succeed())

			v4 := pair.IPv4.As4()
			v6 := pair.IPv6.As16()
			Expect(v6[15]).ShouldNot(Equal(v4[3]))
		})

		It("should keep assignment order", func() {
			_, err = pool.Assign("one")
			Expect(err).Should(Succeed())
			_, err = pool.Assign("two")
			Expect(err).Should(Succeed())
			_, err = pool.Assign("three")
			Expect(err).Should(Succeed())

			Expect(pool.Owners()).Should(Equal([]string{"one", "two", "three"}))
		})
	})

	When("the IPv4 prefix runs out", func() {
		It("should return an exhaustion error", func() {
			pool, err = New("192.168.76.0/30", "fd00:6361:6e61::/64")
			Expect(err).Should(Succeed())

			// /30 holds 4 addresses, 2 are reserved
			_, err = pool.Assign("first")
			Expect(err).Should(Succeed())

			_, err = pool.Assign("second")
			Expect(err).Should(Succeed())

			_, err = pool.Assign("third")
			Expect(err).Should(MatchError(ErrExhausted))
		})
	})

	When("an owner is looked up", func() {
		It("should find assigned owners only", func() {
			pair, err := pool.Assign("known")
			Expect(err).Should(Succeed())

			found, ok := pool.Lookup("known")
			Expect(ok).Should(BeTrue())
			Expect(found).Should(Equal(pair))

			_, ok = pool.Lookup("unknown")
			Expect(ok).Should(BeFalse())
		})
	})
})
