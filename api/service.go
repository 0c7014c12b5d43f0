package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	corsMaxAge               = 5 * time.Minute
	serviceReadHeaderTimeout = 5 * time.Second
)

// Service is the status HTTP service of a run: run state, the finished
// report, service states, zone phases and prometheus metrics.
type Service struct {
	addrs  []string
	router chi.Router
	logger *logrus.Entry

	servers []*http.Server
}

// NewService creates the status service and registers the endpoints every
// given implementation provides.
func NewService(addrs []string, impls ...interface{}) *Service {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(corsMaxAge.Seconds()),
	}))

	for _, impl := range impls {
		RegisterEndpoint(router, impl)
	}

	router.Handle(PathMetrics, promhttp.InstrumentMetricHandler(metrics.Registry(),
		promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	return &Service{
		addrs:  addrs,
		router: router,
		logger: log.PrefixedLog("api"),
	}
}

// Router returns the configured router, exposed for tests
func (s *Service) Router() chi.Router {
	return s.router
}

// Start implements `supervisor.Runner`.
func (s *Service) Start(_ context.Context) error {
	for _, addr := range s.addrs {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}

		server := &http.Server{
			Handler:           s.router,
			ReadHeaderTimeout: serviceReadHeaderTimeout,
		}

		s.servers = append(s.servers, server)

		go func() {
			if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
				s.logger.Errorf("status API on %s stopped: %v", listener.Addr(), err)
			}
		}()

		s.logger.Infof("status API on %s", listener.Addr())
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

	return result.ErrorOrNil()
}
