package authority

import (
	"crypto"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"github.com/miekg/dns"
)

const (
	apexTTL       = 3600
	hostTTL       = 300
	sigValidity   = 30 * 24 * time.Hour
	sigBackdating = time.Hour
)

type rrsetKey struct {
	name  string
	rtype uint16
}

// Delegation is the NS+DS set a parent serves for one child zone
type Delegation struct {
	Child string
	NS    []*dns.NS
	Glue  []dns.RR
	DS    *dns.DS
}

// Zone is the mutable record store of one authoritative zone. Every
// mutation bumps the SOA serial and re-signs the affected record sets, so
// a reader never sees a record without a matching signature.
type Zone struct {
	name string
	clk  clock.Clock

	lock        sync.RWMutex
	serial      uint32
	key         *dns.DNSKEY
	signer      crypto.Signer
	rrsets      map[rrsetKey][]dns.RR
	sigs        map[rrsetKey]*dns.RRSIG
	delegations map[string]*Delegation
}

// NewZone creates an empty zone store
func NewZone(name string, clk clock.Clock) *Zone {
	return &Zone{
		name:        dns.Fqdn(name),
		clk:         clk,
		serial:      1,
		rrsets:      make(map[rrsetKey][]dns.RR),
		sigs:        make(map[rrsetKey]*dns.RRSIG),
		delegations: make(map[string]*Delegation),
	}
}

// Name returns the canonical zone name
func (z *Zone) Name() string {
	return z.name
}

// Serial returns the current SOA serial
func (z *Zone) Serial() uint32 {
	z.lock.RLock()
	defer z.lock.RUnlock()

	return z.serial
}

// SetKey installs the signing key of the zone. All present and future
// record sets are signed with it. Replacing the key re-signs everything
// under a new serial, which is how key rotation reaches secondaries.
func (z *Zone) SetKey(key *dns.DNSKEY, signer crypto.Signer) error {
	z.lock.Lock()
	defer z.lock.Unlock()

	z.key = key
	z.signer = signer

	keyCopy := dns.Copy(key)
	keyCopy.Header().Name = z.name
	z.rrsets[rrsetKey{z.name, dns.TypeDNSKEY}] = []dns.RR{keyCopy}

	return z.mutated()
}

// Key returns the public signing key, nil while unsigned
func (z *Zone) Key() *dns.DNSKEY {
	z.lock.RLock()
	defer z.lock.RUnlock()

	return z.key
}

// SetApex installs SOA, apex NS and the glue address records for the
// authoritative name server of the zone.
func (z *Zone) SetApex(nsName string, v4, v6 netip.Addr) error {
	nsFqdn := dns.Fqdn(nsName)

	// "hostmaster." + "." is no valid name
	mbox := "hostmaster." + z.name
	if z.name == "." {
		mbox = "hostmaster."
	}

	z.lock.Lock()
	defer z.lock.Unlock()

	soa := &dns.SOA{
		Hdr:     dns.RR_Header{Name: z.name, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: apexTTL},
		Ns:      nsFqdn,
		Mbox:    mbox,
		Serial:  z.serial,
		Refresh: 60,
		Retry:   30,
		Expire:  86400,
		Minttl:  hostTTL,
	}

	ns := &dns.NS{
		Hdr: dns.RR_Header{Name: z.name, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: apexTTL},
		Ns:  nsFqdn,
	}

	z.rrsets[rrsetKey{z.name, dns.TypeSOA}] = []dns.RR{soa}
	z.rrsets[rrsetKey{z.name, dns.TypeNS}] = []dns.RR{ns}

	z.setAddrLocked(nsFqdn, v4, v6)

	return z.mutated()
}

// SetHost installs the address records for one name inside the zone. The
// families are independent, an invalid address leaves the family out, so
// dual-stack divergence is expressible.
func (z *Zone) SetHost(name string, v4, v6 netip.Addr) error {
	fqdn := dns.Fqdn(name)

	z.lock.Lock()
	defer z.lock.Unlock()

	z.setAddrLocked(fqdn, v4, v6)

	return z.mutated()
}

// RemoveHost deletes the address records of one name
func (z *Zone) RemoveHost(name string) error {
	fqdn := dns.Fqdn(name)

	z.lock.Lock()
	defer z.lock.Unlock()

	delete(z.rrsets, rrsetKey{fqdn, dns.TypeA})
	delete(z.rrsets, rrsetKey{fqdn, dns.TypeAAAA})

	return z.mutated()
}

func (z *Zone) setAddrLocked(fqdn string, v4, v6 netip.Addr) {
	if v4.IsValid() {
		z.rrsets[rrsetKey{fqdn, dns.TypeA}] = []dns.RR{&dns.A{
			Hdr: dns.RR_Header{Name: fqdn, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: hostTTL},
			A:   v4.AsSlice(),
		}}
	}

	if v6.IsValid() {
		z.rrsets[rrsetKey{fqdn, dns.TypeAAAA}] = []dns.RR{&dns.AAAA{
			Hdr:  dns.RR_Header{Name: fqdn, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: hostTTL},
			AAAA: v6.AsSlice(),
		}}
	}
}

// SetDelegation persists the NS+DS set of a child zone. Re-publishing an
// identical delegation is a no-op, a changed DS (key rotation) replaces
// the old one. The DS set is signed by this zone, that signature is what
// links the chain of trust downwards.
func (z *Zone) SetDelegation(deleg *Delegation) error {
	child := dns.Fqdn(deleg.Child)

	z.lock.Lock()
	defer z.lock.Unlock()

	if existing, ok := z.delegations[child]; ok && existing.DS != nil && deleg.DS != nil {
		if existing.DS.Digest == deleg.DS.Digest && existing.DS.KeyTag == deleg.DS.KeyTag {
			return nil
		}
	}

	z.delegations[child] = deleg

	nsSet := make([]dns.RR, 0, len(deleg.NS))
	for _, ns := range deleg.NS {
		nsSet = append(nsSet, ns)
	}

	z.rrsets[rrsetKey{child, dns.TypeNS}] = nsSet

	if deleg.DS != nil {
		z.rrsets[rrsetKey{child, dns.TypeDS}] = []dns.RR{deleg.DS}
	}

	return z.mutated()
}

// Delegation returns the persisted delegation for a child zone
func (z *Zone) Delegation(child string) (*Delegation, bool) {
	z.lock.RLock()
	defer z.lock.RUnlock()

	deleg, ok := z.delegations[dns.Fqdn(child)]

	return deleg, ok
}

// delegationFor returns the delegation whose child zone encloses name
func (z *Zone) delegationFor(name string) *Delegation {
	z.lock.RLock()
	defer z.lock.RUnlock()

	fqdn := dns.Fqdn(name)

	for child, deleg := range z.delegations {
		if fqdn == child || dns.IsSubDomain(child, fqdn) {
			return deleg
		}
	}

	return nil
}

// mutated bumps the serial and re-signs, caller holds the write lock
func (z *Zone) mutated() error {
	z.serial++

	if soaSet, ok := z.rrsets[rrsetKey{z.name, dns.TypeSOA}]; ok {
		if soa, ok := soaSet[0].(*dns.SOA); ok {
			soa.Serial = z.serial
		}
	}

	return z.resign()
}

// resign recomputes the RRSIG of every record set, caller holds the lock
func (z *Zone) resign() error {
	if z.key == nil {
		return nil
	}

	z.sigs = make(map[rrsetKey]*dns.RRSIG, len(z.rrsets))

	now := z.clk.Now()

	for key, rrset := range z.rrsets {
		sig := &dns.RRSIG{
			Hdr: dns.RR_Header{
				Name:   key.name,
				Rrtype: dns.TypeRRSIG,
				Class:  dns.ClassINET,
				Ttl:    rrset[0].Header().Ttl,
			},
			TypeCovered: key.rtype,
			Algorithm:   z.key.Algorithm,
			Labels:      uint8(dns.CountLabel(key.name)),
			OrigTtl:     rrset[0].Header().Ttl,
			Expiration:  uint32(now.Add(sigValidity).Unix()),
			Inception:   uint32(now.Add(-sigBackdating).Unix()),
			KeyTag:      z.key.KeyTag(),
			SignerName:  z.name,
		}

		if err := sig.Sign(z.signer, rrset); err != nil {
			return fmt.Errorf("signing %s %s: %w", key.name, dns.TypeToString[key.rtype], err)
		}

		z.sigs[key] = sig
	}

	return nil
}

// lookup returns the record set and signature for one name and type
func (z *Zone) lookup(name string, rtype uint16) ([]dns.RR, *dns.RRSIG, bool) {
	z.lock.RLock()
	defer z.lock.RUnlock()

	key := rrsetKey{dns.Fqdn(name), rtype}

	rrset, ok := z.rrsets[key]
	if !ok {
		return nil, nil, false
	}

	return rrset, z.sigs[key], true
}

// hasName reports whether any record set exists for name
func (z *Zone) hasName(name string) bool {
	z.lock.RLock()
	defer z.lock.RUnlock()

	fqdn := dns.Fqdn(name)

	for key := range z.rrsets {
		if key.name == fqdn {
			return true
		}
	}

	return false
}

// AllRecords returns the full zone content including signatures, SOA
// first, in a deterministic order. Used for outbound zone transfers.
func (z *Zone) AllRecords() []dns.RR {
	z.lock.RLock()
	defer z.lock.RUnlock()

	keys := make([]rrsetKey, 0, len(z.rrsets))
	for key := range z.rrsets {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}

		return keys[i].rtype < keys[j].rtype
	})

	records := make([]dns.RR, 0, 2*len(keys))

	soaKey := rrsetKey{z.name, dns.TypeSOA}
	if soa, ok := z.rrsets[soaKey]; ok {
		records = append(records, soa...)

		if sig := z.sigs[soaKey]; sig != nil {
			records = append(records, sig)
		}
	}

	for _, key := range keys {
		if key.name == z.name && key.rtype == dns.TypeSOA {
			continue
		}

		records = append(records, z.rrsets[key]...)

		if sig := z.sigs[key]; sig != nil {
			records = append(records, sig)
		}
	}

	return records
}

// LoadTransfer replaces the zone content with transferred records. The
// zone keeps serving them verbatim, including the primary's signatures,
// and never re-signs since a secondary holds no key.
func (z *Zone) LoadTransfer(records []dns.RR) {
	z.lock.Lock()
	defer z.lock.Unlock()

	z.rrsets = make(map[rrsetKey][]dns.RR)
	z.sigs = make(map[rrsetKey]*dns.RRSIG)
	z.key = nil
	z.signer = nil

	for _, rr := range records {
		hdr := rr.Header()

		if sig, ok := rr.(*dns.RRSIG); ok {
			z.sigs[rrsetKey{hdr.Name, sig.TypeCovered}] = sig

			continue
		}

		if soa, ok := rr.(*dns.SOA); ok {
			z.serial = soa.Serial
		}

		if key, ok := rr.(*dns.DNSKEY); ok && hdr.Name == z.name {
			z.key = key
		}

		k := rrsetKey{hdr.Name, hdr.Rrtype}
		z.rrsets[k] = append(z.rrsets[k], rr)
	}
}
