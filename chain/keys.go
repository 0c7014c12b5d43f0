package chain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/miekg/dns"
)

const (
	// KSK with SEP flag, usable as trust anchor
	cskFlags   = 257
	dnskeyTTL  = 3600
	keyBitSize = 256
)

// KeyMaterial is the signing key of one zone together with the digest a
// parent publishes for it. The DS is derived from the public key, so it is
// only knowable after generation, which is why delegation publication is a
// runtime push and not a config value.
type KeyMaterial struct {
	Key    *dns.DNSKEY
	Signer *ecdsa.PrivateKey
	DS     *dns.DS
}

// GenerateKey creates a fresh ECDSA P-256 common signing key for a zone
func GenerateKey(zone string) (*KeyMaterial, error) {
	key := &dns.DNSKEY{
		Hdr: dns.RR_Header{
			Name:   dns.Fqdn(zone),
			Rrtype: dns.TypeDNSKEY,
			Class:  dns.ClassINET,
			Ttl:    dnskeyTTL,
		},
		Flags:     cskFlags,
		Protocol:  3,
		Algorithm: dns.ECDSAP256SHA256,
	}

	priv, err := key.Generate(keyBitSize)
	if err != nil {
		return nil, fmt.Errorf("can't generate key for zone %s: %w", zone, err)
	}

	signer, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("generated key for zone %s is not an ECDSA key", zone)
	}

	return &KeyMaterial{
		Key:    key,
		Signer: signer,
		DS:     key.ToDS(dns.SHA256),
	}, nil
}
