package chain

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/0xERR0R/canarynet/log"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jmhodges/clock"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const (
	// bounds the referral walk, our deepest chain is root -> tld -> leaf
	maxChainDepth = 10

	keyCacheSize = 64

	queryTimeout = 5 * time.Second

	ednsBufferSize = 4096
)

// Verifier resolves names through the full chain of trust, starting at the
// root authority and following referrals, validating the DS link and every
// signature on the way. It never trusts an AD bit, all validation happens
// locally against the run's trust anchor.
type Verifier struct {
	clk      clock.Clock
	client   *dns.Client
	dnsPort  uint16
	keyCache *lru.Cache
	logger   *logrus.Entry
}

// NewVerifier creates a verifier following referral glue on dnsPort
func NewVerifier(clk clock.Clock, dnsPort uint16) *Verifier {
	cache, _ := lru.New(keyCacheSize)

	return &Verifier{
		clk:      clk,
		client:   &dns.Client{Net: "udp", Timeout: queryTimeout},
		dnsPort:  dnsPort,
		keyCache: cache,
		logger:   log.PrefixedLog("verifier"),
	}
}

// Flush drops all cached zone keys, required after a key rotation
func (v *Verifier) Flush() {
	v.keyCache.Purge()
}

// Verify resolves name through the chain and fails unless the answer and
// every hop validate against the trust anchor.
func (v *Verifier) Verify(ctx context.Context, name string, qtype uint16, rootAddr string, anchor *dns.DNSKEY) error {
	_, err := v.Resolve(ctx, name, qtype, rootAddr, anchor)

	return err
}

// Resolve walks the chain from the root authority down to the owning zone
// and returns the validated answer records.
func (v *Verifier) Resolve(
	ctx context.Context, name string, qtype uint16, rootAddr string, anchor *dns.DNSKEY,
) ([]dns.RR, error) {
	if anchor == nil {
		return nil, &VerificationError{Zone: ".", Reason: "no trust anchor"}
	}

	addr := rootAddr
	zone := anchor.Hdr.Name

	var expectedDS *dns.DS

	for depth := 0; depth < maxChainDepth; depth++ {
		zoneKeys, err := v.zoneKeys(ctx, zone, addr, anchor, expectedDS)
		if err != nil {
			return nil, err
		}

		response, err := v.query(ctx, name, qtype, addr)
		if err != nil {
			return nil, &VerificationError{Zone: zone, Reason: err.Error()}
		}

		if len(response.Answer) > 0 {
			answer, err := v.validateRRset(response.Answer, qtype, zoneKeys, zone)
			if err != nil {
				return nil, err
			}

			v.logger.Debugf("validated %s/%s in zone %s after %d hops",
				name, dns.TypeToString[qtype], zone, depth+1)

			return answer, nil
		}

		next, err := v.followReferral(response, zoneKeys, zone)
		if err != nil {
			return nil, err
		}

		zone = next.zone
		addr = next.addr
		expectedDS = next.ds
	}

	return nil, &VerificationError{Zone: zone, Reason: "referral chain too deep"}
}

type referralHop struct {
	zone string
	addr string
	ds   *dns.DS
}

// followReferral extracts the next hop from a referral response. The DS
// set must be present and validly signed by the current zone, an unsigned
// delegation breaks the chain.
func (v *Verifier) followReferral(response *dns.Msg, zoneKeys []*dns.DNSKEY, zone string) (*referralHop, error) {
	hop := &referralHop{}

	var nsName string

	var dsSet []dns.RR

	for _, rr := range response.Ns {
		switch record := rr.(type) {
		case *dns.NS:
			hop.zone = record.Hdr.Name
			nsName = record.Ns
		case *dns.DS:
			hop.ds = record
			dsSet = append(dsSet, record)
		}
	}

	if hop.zone == "" {
		return nil, &VerificationError{Zone: zone, Reason: "no answer and no referral"}
	}

	if hop.ds == nil {
		return nil, &VerificationError{Zone: zone, Reason: fmt.Sprintf("delegation to %s carries no DS", hop.zone)}
	}

	if _, err := v.validateRRset(append(dsSet, signatureOf(response.Ns, dns.TypeDS)...),
		dns.TypeDS, zoneKeys, zone); err != nil {
		return nil, err
	}

	for _, rr := range response.Extra {
		if a, ok := rr.(*dns.A); ok && a.Hdr.Name == nsName {
			hop.addr = net.JoinHostPort(a.A.String(), fmt.Sprint(v.dnsPort))

			break
		}
	}

	if hop.addr == "" {
		return nil, &VerificationError{Zone: zone, Reason: fmt.Sprintf("referral to %s carries no glue", hop.zone)}
	}

	return hop, nil
}

func signatureOf(records []dns.RR, covered uint16) []dns.RR {
	for _, rr := range records {
		if sig, ok := rr.(*dns.RRSIG); ok && sig.TypeCovered == covered {
			return []dns.RR{sig}
		}
	}

	return nil
}

// zoneKeys fetches and validates the DNSKEY set of a zone. The set must be
// self-signed and anchored, either by the run's trust anchor or by the DS
// the parent delegated with. Validated sets are cached.
func (v *Verifier) zoneKeys(
	ctx context.Context, zone, addr string, anchor *dns.DNSKEY, expectedDS *dns.DS,
) ([]*dns.DNSKEY, error) {
	cacheKey := zone + "@" + addr

	if cached, ok := v.keyCache.Get(cacheKey); ok {
		if keys, ok := cached.([]*dns.DNSKEY); ok {
			return keys, nil
		}
	}

	response, err := v.query(ctx, zone, dns.TypeDNSKEY, addr)
	if err != nil {
		return nil, &VerificationError{Zone: zone, Reason: err.Error()}
	}

	var keys []*dns.DNSKEY

	var keySet []dns.RR

	var keySig *dns.RRSIG

	for _, rr := range response.Answer {
		switch record := rr.(type) {
		case *dns.DNSKEY:
			keys = append(keys, record)
			keySet = append(keySet, record)
		case *dns.RRSIG:
			if record.TypeCovered == dns.TypeDNSKEY {
				keySig = record
			}
		}
	}

	if len(keys) == 0 {
		return nil, &VerificationError{Zone: zone, Reason: "no DNSKEY served"}
	}

	if keySig == nil {
		return nil, &VerificationError{Zone: zone, Reason: "DNSKEY set is not signed"}
	}

	signingKey := keyByTag(keys, keySig.KeyTag)
	if signingKey == nil {
		return nil, &VerificationError{Zone: zone, Reason: "DNSKEY signature by unknown key"}
	}

	if !keySig.ValidityPeriod(v.clk.Now()) {
		return nil, &VerificationError{Zone: zone, Reason: "DNSKEY signature outside validity period"}
	}

	if err := keySig.Verify(signingKey, keySet); err != nil {
		return nil, &VerificationError{Zone: zone, Reason: fmt.Sprintf("DNSKEY self-signature invalid: %v", err)}
	}

	if err := v.anchorKeys(zone, keys, anchor, expectedDS); err != nil {
		return nil, err
	}

	v.keyCache.Add(cacheKey, keys)

	return keys, nil
}

// anchorKeys checks the fetched key set against the trust anchor (for the
// anchor's own zone) or the delegated DS digest (for every child zone).
func (v *Verifier) anchorKeys(zone string, keys []*dns.DNSKEY, anchor *dns.DNSKEY, expectedDS *dns.DS) error {
	if expectedDS == nil {
		for _, key := range keys {
			if key.KeyTag() == anchor.KeyTag() && key.PublicKey == anchor.PublicKey {
				return nil
			}
		}

		return &VerificationError{Zone: zone, Reason: "no DNSKEY matches the trust anchor"}
	}

	for _, key := range keys {
		ds := key.ToDS(expectedDS.DigestType)
		if ds != nil && ds.Digest == expectedDS.Digest && ds.KeyTag == expectedDS.KeyTag {
			return nil
		}
	}

	return &VerificationError{Zone: zone, Reason: "no DNSKEY matches the delegated DS"}
}

// validateRRset verifies the signature over the records of the queried
// type. Signatures by an unknown key tag (a stale signature after a key
// rotation) are rejected.
func (v *Verifier) validateRRset(records []dns.RR, rtype uint16, keys []*dns.DNSKEY, zone string) ([]dns.RR, error) {
	var rrset []dns.RR

	var sig *dns.RRSIG

	for _, rr := range records {
		if rr.Header().Rrtype == rtype {
			rrset = append(rrset, rr)
		}

		if s, ok := rr.(*dns.RRSIG); ok && s.TypeCovered == rtype {
			sig = s
		}
	}

	if len(rrset) == 0 {
		return nil, &VerificationError{Zone: zone, Reason: fmt.Sprintf("no %s records", dns.TypeToString[rtype])}
	}

	if sig == nil {
		return nil, &VerificationError{Zone: zone, Reason: fmt.Sprintf("%s set is not signed", dns.TypeToString[rtype])}
	}

	key := keyByTag(keys, sig.KeyTag)
	if key == nil {
		return nil, &VerificationError{Zone: zone, Reason: "signature by unknown key, possibly stale"}
	}

	if !sig.ValidityPeriod(v.clk.Now()) {
		return nil, &VerificationError{Zone: zone, Reason: "signature outside validity period"}
	}

	if err := sig.Verify(key, rrset); err != nil {
		return nil, &VerificationError{Zone: zone, Reason: fmt.Sprintf("signature invalid: %v", err)}
	}

	return rrset, nil
}

func keyByTag(keys []*dns.DNSKEY, tag uint16) *dns.DNSKEY {
	for _, key := range keys {
		if key.KeyTag() == tag {
			return key
		}
	}

	return nil
}

func (v *Verifier) query(ctx context.Context, name string, qtype uint16, addr string) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.SetEdns0(ednsBufferSize, true)

	response, _, err := v.client.ExchangeContext(ctx, msg, addr)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s against %s failed: %w", name, dns.TypeToString[qtype], addr, err)
	}

	if response.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s/%s against %s returned %s",
			name, dns.TypeToString[qtype], addr, dns.RcodeToString[response.Rcode])
	}

	return response, nil
}
