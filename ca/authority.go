package ca

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"sync"
	"time"

	"github.com/0xERR0R/canarynet/util"

	"github.com/jmhodges/clock"
	"golang.org/x/crypto/ocsp"
)

const caExpiryYears = 1

// IssueRequest asks the authority for one leaf certificate. The first
// hostname becomes the subject, all of them become SANs. A zero NotAfter
// means the authority's configured validity. ResponderURL, when set, is
// embedded as the OCSP responder of the certificate.
type IssueRequest struct {
	Hostnames    []string  `json:"hostnames"`
	NotBefore    time.Time `json:"notBefore,omitempty"`
	NotAfter     time.Time `json:"notAfter,omitempty"`
	ResponderURL string    `json:"responderUrl,omitempty"`
}

// IssuedCertificate is the result of an issuance, PEM encoded
type IssuedCertificate struct {
	CertificatePEM []byte `json:"certificatePem"`
	KeyPEM         []byte `json:"keyPem"`
	Serial         string `json:"serial"`
}

// Authority is the issuing certificate authority of a run. It holds a
// fresh self-signed root, issues leaf certificates on demand, tracks
// revocations and answers OCSP requests for its own serials.
type Authority struct {
	clk      clock.Clock
	key      *ecdsa.PrivateKey
	cert     *x509.Certificate
	certPEM  []byte
	validity time.Duration

	lock    sync.Mutex
	issued  map[string]struct{}
	revoked map[string]time.Time
}

// NewAuthority creates an authority with a fresh self-signed root
func NewAuthority(clk clock.Clock, commonName string, validity time.Duration) (*Authority, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("unable to generate CA key: %w", err)
	}

	serial, err := util.RandomCertSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,

		Subject: pkix.Name{Organization: []string{"canarynet"}, CommonName: commonName},

		NotBefore: clk.Now(),
		NotAfter:  clk.Now().AddDate(caExpiryYears, 0, 0),

		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("CA cert creation failed: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("generated CA cert DER could not be parsed: %w", err)
	}

	return &Authority{
		clk:      clk,
		key:      key,
		cert:     cert,
		certPEM:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		validity: validity,
		issued:   make(map[string]struct{}),
		revoked:  make(map[string]time.Time),
	}, nil
}

// Certificate returns the root certificate
func (a *Authority) Certificate() *x509.Certificate {
	return a.cert
}

// CertificatePEM returns the PEM encoded root certificate
func (a *Authority) CertificatePEM() []byte {
	return a.certPEM
}

// Issue creates and signs one leaf certificate
func (a *Authority) Issue(req IssueRequest) (*IssuedCertificate, error) {
	if len(req.Hostnames) == 0 {
		return nil, fmt.Errorf("issuance needs at least one hostname")
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("unable to generate leaf key: %w", err)
	}

	serial, err := util.RandomCertSerial()
	if err != nil {
		return nil, err
	}

	notBefore := req.NotBefore
	if notBefore.IsZero() {
		notBefore = a.clk.Now()
	}

	notAfter := req.NotAfter
	if notAfter.IsZero() {
		notAfter = a.clk.Now().Add(a.validity)
	}

	template := &x509.Certificate{
		SerialNumber: serial,

		Subject:  pkix.Name{Organization: []string{"canarynet"}, CommonName: req.Hostnames[0]},
		DNSNames: req.Hostnames,

		NotBefore: notBefore,
		NotAfter:  notAfter,

		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	if req.ResponderURL != "" {
		template.OCSPServer = []string{req.ResponderURL}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, a.cert, &key.PublicKey, a.key)
	if err != nil {
		return nil, fmt.Errorf("leaf cert creation failed: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal leaf key: %w", err)
	}

	a.lock.Lock()
	a.issued[serial.String()] = struct{}{}
	a.lock.Unlock()

	return &IssuedCertificate{
		CertificatePEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:         pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
		Serial:         serial.String(),
	}, nil
}

// Revoke marks a serial as revoked. Revoking an unknown serial is an error.
func (a *Authority) Revoke(serial string) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if _, ok := a.issued[serial]; !ok {
		return fmt.Errorf("serial %s was not issued by this authority", serial)
	}

	if _, ok := a.revoked[serial]; !ok {
		a.revoked[serial] = a.clk.Now()
	}

	return nil
}

// OCSPResponse answers one DER encoded OCSP request. Serials the authority
// never issued get status unknown.
func (a *Authority) OCSPResponse(request []byte) ([]byte, error) {
	req, err := ocsp.ParseRequest(request)
	if err != nil {
		return nil, fmt.Errorf("unparsable OCSP request: %w", err)
	}

	template := ocsp.Response{
		SerialNumber: req.SerialNumber,
		ThisUpdate:   a.clk.Now(),
		NextUpdate:   a.clk.Now().Add(a.validity),
	}

	a.lock.Lock()
	serial := req.SerialNumber.String()

	switch {
	case !a.revoked[serial].IsZero():
		template.Status = ocsp.Revoked
		template.RevokedAt = a.revoked[serial]
		template.RevocationReason = ocsp.Unspecified
	case hasSerial(a.issued, serial):
		template.Status = ocsp.Good
	default:
		template.Status = ocsp.Unknown
	}
	a.lock.Unlock()

	response, err := ocsp.CreateResponse(a.cert, a.cert, template, a.key)
	if err != nil {
		return nil, fmt.Errorf("OCSP response creation failed: %w", err)
	}

	return response, nil
}

// Status returns the OCSP status of a serial without going through the
// wire encoding, used by the status API.
func (a *Authority) Status(serial string) int {
	a.lock.Lock()
	defer a.lock.Unlock()

	switch {
	case !a.revoked[serial].IsZero():
		return ocsp.Revoked
	case hasSerial(a.issued, serial):
		return ocsp.Good
	default:
		return ocsp.Unknown
	}
}

func hasSerial(set map[string]struct{}, serial string) bool {
	_, ok := set[serial]

	return ok
}

// CertPool returns a pool trusting only this authority
func (a *Authority) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(a.cert)

	return pool
}
