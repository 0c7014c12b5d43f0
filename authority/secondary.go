package authority

import (
	"context"
	"fmt"
	"time"

	"github.com/0xERR0R/canarynet/log"

	"github.com/jmhodges/clock"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const transferTimeout = 10 * time.Second

// Secondary serves a zone it transferred from a primary authority. It
// never answers before the initial transfer succeeded, so a query hitting
// it always sees a complete, signed copy. It implements supervisor.Runner.
type Secondary struct {
	zone        *Zone
	primaryAddr string
	server      *Server
	logger      *logrus.Entry
}

// NewSecondary creates a secondary for zoneName syncing from primaryAddr
func NewSecondary(name, zoneName, primaryAddr string, clk clock.Clock, addrs ...string) *Secondary {
	zone := NewZone(zoneName, clk)

	server := NewServer(name, addrs...)
	server.Serve(zone)
	server.setReadonly()

	return &Secondary{
		zone:        zone,
		primaryAddr: primaryAddr,
		server:      server,
		logger:      log.PrefixedLog("authority." + name),
	}
}

// Start transfers the zone and only then brings up the listeners
func (s *Secondary) Start(ctx context.Context) error {
	if err := s.Sync(ctx); err != nil {
		return err
	}

	return s.server.Start(ctx)
}

// Stop shuts the listeners down
func (s *Secondary) Stop(ctx context.Context) error {
	return s.server.Stop(ctx)
}

// Sync performs a full zone transfer from the primary
func (s *Secondary) Sync(_ context.Context) error {
	msg := new(dns.Msg)
	msg.SetAxfr(s.zone.Name())

	transfer := &dns.Transfer{
		DialTimeout:  transferTimeout,
		ReadTimeout:  transferTimeout,
		WriteTimeout: transferTimeout,
	}

	envelopes, err := transfer.In(msg, s.primaryAddr)
	if err != nil {
		return fmt.Errorf("zone transfer of %s from %s failed: %w", s.zone.Name(), s.primaryAddr, err)
	}

	var records []dns.RR

	for envelope := range envelopes {
		if envelope.Error != nil {
			return fmt.Errorf("zone transfer of %s from %s failed: %w", s.zone.Name(), s.primaryAddr, envelope.Error)
		}

		records = append(records, envelope.RR...)
	}

	if len(records) == 0 {
		return fmt.Errorf("zone transfer of %s from %s returned no records", s.zone.Name(), s.primaryAddr)
	}

	// drop the trailing SOA copy that terminates an AXFR
	if len(records) > 1 {
		if _, ok := records[len(records)-1].(*dns.SOA); ok {
			records = records[:len(records)-1]
		}
	}

	s.zone.LoadTransfer(records)

	s.logger.Infof("synchronized %s from %s (serial %d, %d records)",
		s.zone.Name(), s.primaryAddr, s.zone.Serial(), len(records))

	return nil
}

// Serial returns the serial of the transferred copy
func (s *Secondary) Serial() uint32 {
	return s.zone.Serial()
}
