package authority

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/util"
	"github.com/0xERR0R/canarynet/zonetree"

	"github.com/hashicorp/go-multierror"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// Server is an in-process authoritative DNS engine serving one or more
// signed zones over UDP and TCP. It accepts dynamic updates carrying
// child delegations and answers outbound zone transfers. It implements
// supervisor.Runner so it plugs into the service graph directly.
type Server struct {
	addrs  []string
	logger *logrus.Entry

	lock     sync.RWMutex
	tree     *zonetree.Tree[*Zone]
	zones    []*Zone
	readonly bool

	servers []*dns.Server
}

// NewServer creates an authority listening on all given host:port addresses
func NewServer(name string, addrs ...string) *Server {
	return &Server{
		addrs:  addrs,
		logger: log.PrefixedLog("authority." + name),
		tree:   zonetree.New[*Zone](),
	}
}

// Serve registers a zone with this authority
func (s *Server) Serve(zone *Zone) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tree.Insert(zone.Name(), zone)
	s.zones = append(s.zones, zone)
}

// setReadonly makes the authority reject dynamic updates, used by secondaries
func (s *Server) setReadonly() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.readonly = true
}

// Start brings up the UDP and TCP listeners and blocks until all of them
// accept queries or one of them failed.
func (s *Server) Start(_ context.Context) error {
	handler := dns.HandlerFunc(s.handle)

	started := make(chan error, 2*len(s.addrs))

	for _, addr := range s.addrs {
		for _, network := range []string{"udp", "tcp"} {
			srv := &dns.Server{
				Addr:          addr,
				Net:           network,
				Handler:       handler,
				MsgAcceptFunc: acceptMsg,
				NotifyStartedFunc: func() {
					started <- nil
				},
			}

			s.servers = append(s.servers, srv)

			go func(srv *dns.Server) {
				if err := srv.ListenAndServe(); err != nil {
					started <- fmt.Errorf("listening on %s (%s): %w", srv.Addr, srv.Net, err)
				}
			}(srv)
		}
	}

	for range s.servers {
		if err := <-started; err != nil {
			return err
		}
	}

	s.logger.Infof("serving %d zones on %v", len(s.zones), s.addrs)

	return nil
}

// Stop shuts down all listeners
func (s *Server) Stop(ctx context.Context) error {
	var result *multierror.Error

	for _, srv := range s.servers {
		if err := srv.ShutdownContext(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}

	s.servers = nil

	return result.ErrorOrNil()
}

func (s *Server) handle(w dns.ResponseWriter, req *dns.Msg) {
	if len(req.Question) == 0 {
		s.refuse(w, req, dns.RcodeFormatError)

		return
	}

	switch {
	case req.Opcode == dns.OpcodeUpdate:
		s.handleUpdate(w, req)
	case req.Question[0].Qtype == dns.TypeAXFR:
		s.handleTransfer(w, req)
	default:
		s.handleQuery(w, req)
	}
}

func (s *Server) handleQuery(w dns.ResponseWriter, req *dns.Msg) {
	question := req.Question[0]

	s.lock.RLock()
	zone, ok := s.tree.Find(question.Name)
	s.lock.RUnlock()

	if !ok {
		s.refuse(w, req, dns.RcodeRefused)

		return
	}

	response := new(dns.Msg)
	response.SetReply(req)
	response.Authoritative = true

	withSigs := wantsDNSSEC(req)

	// the DS of a child lives in the parent, everything else below a
	// delegation point is referred downwards
	if question.Qtype != dns.TypeDS {
		if deleg := zone.delegationFor(question.Name); deleg != nil {
			s.referral(response, zone, deleg, withSigs)
			s.respond(w, response)

			return
		}
	}

	rrset, sig, found := zone.lookup(question.Name, question.Qtype)
	if found {
		response.Answer = append(response.Answer, rrset...)

		if withSigs && sig != nil {
			response.Answer = append(response.Answer, sig)
		}

		s.respond(w, response)

		return
	}

	if !zone.hasName(question.Name) {
		response.Rcode = dns.RcodeNameError
	}

	if soa, soaSig, ok := zone.lookup(zone.Name(), dns.TypeSOA); ok {
		response.Ns = append(response.Ns, soa...)

		if withSigs && soaSig != nil {
			response.Ns = append(response.Ns, soaSig)
		}
	}

	s.respond(w, response)
}

// referral fills the authority section with the child NS set and, when
// present, the signed DS set that links the trust chain downwards.
func (s *Server) referral(response *dns.Msg, zone *Zone, deleg *Delegation, withSigs bool) {
	response.Authoritative = false

	for _, ns := range deleg.NS {
		response.Ns = append(response.Ns, ns)
	}

	if deleg.DS != nil {
		response.Ns = append(response.Ns, deleg.DS)

		if withSigs {
			if _, sig, ok := zone.lookup(deleg.Child, dns.TypeDS); ok && sig != nil {
				response.Ns = append(response.Ns, sig)
			}
		}
	}

	response.Extra = append(response.Extra, deleg.Glue...)
}

// handleUpdate persists a pushed child delegation. The NOERROR response
// is the acknowledgment the child waits for, it is only sent after the
// delegation is stored and the zone is re-signed.
func (s *Server) handleUpdate(w dns.ResponseWriter, req *dns.Msg) {
	zoneName := req.Question[0].Name

	s.lock.RLock()
	readonly := s.readonly
	zone, ok := s.tree.Exact(zoneName)
	s.lock.RUnlock()

	if !ok || readonly {
		s.refuse(w, req, dns.RcodeNotAuth)

		return
	}

	deleg, err := delegationFromUpdate(req)
	if err != nil {
		s.logger.Warnf("rejecting update for %s: %v", zoneName, err)
		s.refuse(w, req, dns.RcodeFormatError)

		return
	}

	if err := zone.SetDelegation(deleg); err != nil {
		s.logger.Errorf("persisting delegation for %s failed: %v", deleg.Child, err)
		s.refuse(w, req, dns.RcodeServerFailure)

		return
	}

	s.logger.Infof("delegation for %s persisted in %s (serial %d)", deleg.Child, zoneName, zone.Serial())

	response := new(dns.Msg)
	response.SetReply(req)
	s.respond(w, response)
}

func delegationFromUpdate(req *dns.Msg) (*Delegation, error) {
	deleg := &Delegation{}

	for _, rr := range req.Ns {
		switch v := rr.(type) {
		case *dns.NS:
			deleg.Child = v.Hdr.Name
			deleg.NS = append(deleg.NS, v)
		case *dns.DS:
			deleg.Child = v.Hdr.Name
			deleg.DS = v
		case *dns.A, *dns.AAAA:
			deleg.Glue = append(deleg.Glue, rr)
		default:
			return nil, fmt.Errorf("unsupported record type %s in update", dns.TypeToString[rr.Header().Rrtype])
		}
	}

	if deleg.Child == "" || len(deleg.NS) == 0 {
		return nil, fmt.Errorf("update carries no delegation NS set")
	}

	return deleg, nil
}

func (s *Server) handleTransfer(w dns.ResponseWriter, req *dns.Msg) {
	zoneName := req.Question[0].Name

	s.lock.RLock()
	zone, ok := s.tree.Exact(zoneName)
	s.lock.RUnlock()

	if !ok {
		s.refuse(w, req, dns.RcodeNotAuth)

		return
	}

	records := zone.AllRecords()
	if len(records) == 0 {
		s.refuse(w, req, dns.RcodeServerFailure)

		return
	}

	// AXFR ends with a second copy of the SOA
	records = append(records, records[0])

	ch := make(chan *dns.Envelope, 1)
	ch <- &dns.Envelope{RR: records}
	close(ch)

	transfer := new(dns.Transfer)
	if err := transfer.Out(w, req, ch); err != nil {
		s.logger.Errorf("zone transfer of %s failed: %v", zoneName, err)
	}

	s.logger.Debugf("transferred %s (%d records)", zoneName, len(records))
}

func (s *Server) refuse(w dns.ResponseWriter, req *dns.Msg, rcode int) {
	response := new(dns.Msg)
	response.SetRcode(req, rcode)
	s.respond(w, response)
}

func (s *Server) respond(w dns.ResponseWriter, response *dns.Msg) {
	if len(response.Question) > 0 {
		s.logger.Debugf("%s -> %s", util.QuestionToString(response.Question),
			util.AnswerToString(response.Answer))
	}

	util.LogOnError("can't write response: ", w.WriteMsg(response))
}

// acceptMsg widens the default acceptance policy of the dns package,
// which answers NOTIMP to everything but queries and notifies. Dynamic
// updates carry the pushed delegations and have to reach the handler.
func acceptMsg(dh dns.Header) dns.MsgAcceptAction {
	const qrBit = 1 << 15

	if dh.Bits&qrBit != 0 {
		return dns.MsgIgnore
	}

	switch int(dh.Bits>>11) & 0xF {
	case dns.OpcodeQuery, dns.OpcodeNotify, dns.OpcodeUpdate:
	default:
		return dns.MsgRejectNotImplemented
	}

	if dh.Qdcount != 1 {
		return dns.MsgReject
	}

	return dns.MsgAccept
}

func wantsDNSSEC(req *dns.Msg) bool {
	opt := req.IsEdns0()

	return opt != nil && opt.Do()
}
