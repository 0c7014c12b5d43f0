package addrpool

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"github.com/0xERR0R/canarynet/log"

	"github.com/sirupsen/logrus"
)

// ErrExhausted is returned when a prefix has no free addresses left
var ErrExhausted = errors.New("address pool exhausted")

// offsets into the host part where allocation starts. The first addresses
// are left to the container runtime (network address, gateway). The v6
// offset differs from the v4 one so a dual-stack pair never carries the
// same host number in both families.
const (
	v4HostOffset = 2
	v6HostOffset = 0x10
)

// Pair is a stable dual-stack address assignment
type Pair struct {
	IPv4 netip.Addr
	IPv6 netip.Addr
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.IPv4, p.IPv6)
}

// Pool hands out stable address pairs from the closed prefixes of a run.
// Assignments happen before anything starts and never change afterwards:
// the same owner always receives the same pair, and allocation order is
// the declaration order of the owners.
type Pool struct {
	v4, v6         netip.Prefix
	nextV4, nextV6 netip.Addr
	assigned       map[string]Pair
	order          []string
	lock           sync.Mutex
	logger         *logrus.Entry
}

// New creates a pool over the two closed prefixes
func New(v4CIDR, v6CIDR string) (*Pool, error) {
	v4, err := netip.ParsePrefix(v4CIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid IPv4 prefix '%s': %w", v4CIDR, err)
	}

	v6, err := netip.ParsePrefix(v6CIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid IPv6 prefix '%s': %w", v6CIDR, err)
	}

	p := &Pool{
		v4:       v4.Masked(),
		v6:       v6.Masked(),
		assigned: make(map[string]Pair),
		logger:   log.PrefixedLog("addrpool"),
	}

	p.nextV4 = advance(p.v4.Addr(), v4HostOffset)
	p.nextV6 = advance(p.v6.Addr(), v6HostOffset)

	return p, nil
}

func advance(addr netip.Addr, n int) netip.Addr {
	for i := 0; i < n; i++ {
		addr = addr.Next()
	}

	return addr
}

// Assign returns the address pair of owner, allocating one on first use.
func (p *Pool) Assign(owner string) (Pair, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if pair, ok := p.assigned[owner]; ok {
		return pair, nil
	}

	if !p.v4.Contains(p.nextV4) {
		return Pair{}, fmt.Errorf("IPv4 pool %s for '%s': %w", p.v4, owner, ErrExhausted)
	}

	if !p.v6.Contains(p.nextV6) {
		return Pair{}, fmt.Errorf("IPv6 pool %s for '%s': %w", p.v6, owner, ErrExhausted)
	}

	pair := Pair{IPv4: p.nextV4, IPv6: p.nextV6}
	p.nextV4 = p.nextV4.Next()
	p.nextV6 = p.nextV6.Next()

	p.assigned[owner] = pair
	p.order = append(p.order, owner)

	p.logger.Debugf("assigned %s to '%s'", pair, owner)

	return pair, nil
}

// Lookup returns the pair assigned to owner, if any
func (p *Pool) Lookup(owner string) (Pair, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	pair, ok := p.assigned[owner]

	return pair, ok
}

// Owners returns all owners in assignment order
func (p *Pool) Owners() []string {
	p.lock.Lock()
	defer p.lock.Unlock()

	owners := make([]string, len(p.order))
	copy(owners, p.order)

	return owners
}
