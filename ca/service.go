package ca

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/0xERR0R/canarynet/log"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// endpoint paths of the issuance service
const (
	PathRoot   = "/ca.pem"
	PathIssue  = "/issue"
	PathRevoke = "/revoke"
	PathOCSP   = "/ocsp"
)

const (
	ocspRequestMimeType  = "application/ocsp-request"
	ocspResponseMimeType = "application/ocsp-response"

	serviceReadHeaderTimeout = 5 * time.Second
)

// Service exposes an Authority over HTTP: root download, issuance,
// revocation and the OCSP responder. It is one service node of the run.
type Service struct {
	name      string
	authority *Authority
	addrs     []string
	logger    *logrus.Entry

	servers   []*http.Server
	listeners []net.Listener
}

// NewService creates the HTTP front of an authority, listening on every
// given address once started.
func NewService(name string, authority *Authority, addrs ...string) *Service {
	return &Service{
		name:      name,
		authority: authority,
		addrs:     addrs,
		logger:    log.PrefixedLog(name),
	}
}

// Start implements `supervisor.Runner`.
func (s *Service) Start(_ context.Context) error {
	router := chi.NewRouter()
	s.registerRoutes(router)

	for _, addr := range s.addrs {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}

		server := &http.Server{
			Handler:           router,
			ReadHeaderTimeout: serviceReadHeaderTimeout,
		}

		s.listeners = append(s.listeners, listener)
		s.servers = append(s.servers, server)

		go func() {
			if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
				s.logger.Errorf("CA service on %s stopped: %v", listener.Addr(), err)
			}
		}()

		s.logger.Infof("issuing on %s", listener.Addr())
	}

	return nil
}

// Stop implements `supervisor.Runner`.
func (s *Service) Stop(ctx context.Context) error {
	var result *multierror.Error

	for _, server := range s.servers {
		if err := server.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}

	s.servers = nil
	s.listeners = nil

	return result.ErrorOrNil()
}

func (s *Service) registerRoutes(router chi.Router) {
	router.Get(PathRoot, s.handleRoot)
	router.Post(PathIssue, s.handleIssue)
	router.Post(PathRevoke, s.handleRevoke)
	router.Post(PathOCSP, s.handleOCSP)
}

func (s *Service) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-pem-file")
	_, _ = w.Write(s.authority.CertificatePEM())
}

func (s *Service) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	cert, err := s.authority.Issue(req)
	if err != nil {
		s.logger.Warnf("issuance for %v failed: %v", req.Hostnames, err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	s.logger.Debugf("issued serial %s for %v", cert.Serial, req.Hostnames)

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(cert); err != nil {
		s.logger.Errorf("unable to encode issuance response: %v", err)
	}
}

type revokeRequest struct {
	Serial string `json:"serial"`
}

func (s *Service) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if err := s.authority.Revoke(req.Serial); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)

		return
	}

	s.logger.Infof("revoked serial %s", req.Serial)
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleOCSP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	response, err := s.authority.OCSPResponse(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	w.Header().Set("Content-Type", ocspResponseMimeType)
	_, _ = w.Write(response)
}
