package ca

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"time"

	"github.com/0xERR0R/canarynet/helpertest"
	"github.com/0xERR0R/canarynet/util"

	"github.com/jmhodges/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/ocsp"
)

func parseCertificate(pemBytes []byte) *x509.Certificate {
	block, _ := pem.Decode(pemBytes)
	Expect(block).ShouldNot(BeNil())

	cert, err := x509.ParseCertificate(block.Bytes)
	Expect(err).Should(Succeed())

	return cert
}

var _ = Describe("Issuance service", func() {
	var (
		ctx       context.Context
		clk       clock.Clock
		authority *Authority
		service   *Service
		client    *Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		clk = clock.New()

		var err error
		authority, err = NewAuthority(clk, "canarynet root CA", 72*time.Hour)
		Expect(err).Should(Succeed())

		addr := net.JoinHostPort("127.0.0.1", helpertest.GetStringPort(5710))
		service = NewService("ca", authority, addr)
		Expect(service.Start(ctx)).Should(Succeed())

		DeferCleanup(func() {
			Expect(service.Stop(context.Background())).Should(Succeed())
		})

		client = NewClient(fmt.Sprintf("http://%s", addr))
	})

	When("a certificate is requested", func() {
		It("should issue a leaf trusted by the root", func() {
			issued, err := client.Issue(ctx, IssueRequest{Hostnames: []string{"app.test", "www.app.test"}})
			Expect(err).Should(Succeed())

			cert := parseCertificate(issued.CertificatePEM)
			Expect(cert.Subject.CommonName).Should(Equal("app.test"))
			Expect(cert.DNSNames).Should(ConsistOf("app.test", "www.app.test"))

			pool, err := client.Root(ctx)
			Expect(err).Should(Succeed())

			_, err = cert.Verify(x509.VerifyOptions{Roots: pool, DNSName: "app.test"})
			Expect(err).Should(Succeed())
		})

		It("should honor a notAfter override for expired fixtures", func() {
			issued, err := client.Issue(ctx, IssueRequest{
				Hostnames: []string{"expired.app.test"},
				NotBefore: clk.Now().Add(-48 * time.Hour),
				NotAfter:  clk.Now().Add(-24 * time.Hour),
			})
			Expect(err).Should(Succeed())

			cert := parseCertificate(issued.CertificatePEM)
			Expect(cert.NotAfter).Should(BeTemporally("<", clk.Now()))

			_, err = cert.Verify(x509.VerifyOptions{Roots: authority.CertPool()})
			Expect(err).Should(MatchError(ContainSubstring("expired")))
		})

		It("should embed the requested responder URL", func() {
			issued, err := client.Issue(ctx, IssueRequest{
				Hostnames:    []string{"stapling.app.test"},
				ResponderURL: "http://ca.infra.test/ocsp",
			})
			Expect(err).Should(Succeed())

			cert := parseCertificate(issued.CertificatePEM)
			Expect(cert.OCSPServer).Should(ConsistOf("http://ca.infra.test/ocsp"))
		})

		It("should reject a request without hostnames", func() {
			_, err := client.Issue(ctx, IssueRequest{})

			var issuanceErr *IssuanceError
			Expect(err).Should(BeAssignableToTypeOf(issuanceErr))
		})
	})

	When("status is requested over OCSP", func() {
		var issued *IssuedCertificate

		BeforeEach(func() {
			var err error
			issued, err = client.Issue(ctx, IssueRequest{Hostnames: []string{"ocsp.app.test"}})
			Expect(err).Should(Succeed())
		})

		fetchStatus := func() *ocsp.Response {
			der, err := client.OCSP(ctx, parseCertificate(issued.CertificatePEM), authority.Certificate())
			Expect(err).Should(Succeed())

			response, err := ocsp.ParseResponse(der, authority.Certificate())
			Expect(err).Should(Succeed())

			return response
		}

		It("should answer good for an issued certificate", func() {
			Expect(fetchStatus().Status).Should(Equal(ocsp.Good))
		})

		It("should answer revoked after revocation", func() {
			Expect(client.Revoke(ctx, issued.Serial)).Should(Succeed())
			Expect(fetchStatus().Status).Should(Equal(ocsp.Revoked))
		})

		It("should answer unknown for a foreign certificate", func() {
			foreign, err := util.TLSGenerateSelfSignedCert([]string{"foreign.app.test"})
			Expect(err).Should(Succeed())

			der, err := client.OCSP(ctx, foreign.Leaf, authority.Certificate())
			Expect(err).Should(Succeed())

			response, err := ocsp.ParseResponse(der, authority.Certificate())
			Expect(err).Should(Succeed())
			Expect(response.Status).Should(Equal(ocsp.Unknown))
		})
	})

	When("an unissued serial is revoked", func() {
		It("should fail", func() {
			Expect(client.Revoke(ctx, "12345")).ShouldNot(Succeed())
		})
	})
})
