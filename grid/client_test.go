package grid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/jmhodges/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeGrid is a minimal WebDriver endpoint recording the requests it saw
type fakeGrid struct {
	server   *httptest.Server
	requests []string
	refuse   bool
}

func newFakeGrid() *fakeGrid {
	f := &fakeGrid{}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)

		w.Header().Set("Content-Type", "application/json")

		if f.refuse {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"value":{"error":"session not created","message":"no slots"}}`))

			return
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/session":
			_, _ = w.Write([]byte(`{"value":{"sessionId":"abc-123","capabilities":{}}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/status":
			_, _ = w.Write([]byte(`{"value":{"ready":true}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/session/abc-123/execute/sync":
			_, _ = w.Write([]byte(`{"value":{"lines":42}}`))
		default:
			_, _ = w.Write([]byte(`{"value":null}`))
		}
	}))

	return f
}

var _ = Describe("WebDriver client", func() {
	var (
		ctx      context.Context
		endpoint *fakeGrid
		client   *Client
	)

	BeforeEach(func() {
		ctx = context.Background()

		endpoint = newFakeGrid()
		DeferCleanup(endpoint.server.Close)

		balancer := NewBalancer(clock.New(), endpoint.server.URL)
		client = NewClient(balancer, "chromium", 10*time.Second)
	})

	It("should run a session through its lifecycle", func() {
		session, err := client.NewSession(ctx)
		Expect(err).Should(Succeed())
		Expect(session.ID).Should(Equal("abc-123"))

		Expect(session.Navigate(ctx, "https://app.test/")).Should(Succeed())

		result, err := session.Execute(ctx, "return window.__coverage__")
		Expect(err).Should(Succeed())

		var coverage map[string]int
		Expect(json.Unmarshal(result, &coverage)).Should(Succeed())
		Expect(coverage).Should(HaveKeyWithValue("lines", 42))

		Expect(session.Close(ctx)).Should(Succeed())

		Expect(endpoint.requests).Should(Equal([]string{
			"POST /session",
			"POST /session/abc-123/url",
			"POST /session/abc-123/execute/sync",
			"DELETE /session/abc-123",
		}))
	})

	It("should report endpoint readiness", func() {
		Expect(client.Ready(ctx, endpoint.server.URL)).Should(Succeed())
	})

	It("should surface the WebDriver error of a refused session", func() {
		endpoint.refuse = true

		_, err := client.NewSession(ctx)

		var sessionErr *SessionError
		Expect(err).Should(BeAssignableToTypeOf(sessionErr))
		Expect(err.Error()).Should(ContainSubstring("session not created"))
	})
})

var _ = Describe("Balancer", func() {
	It("should return the only endpoint without weighing", func() {
		balancer := NewBalancer(clock.New(), "http://grid-1:4444")
		Expect(balancer.Pick()).Should(Equal("http://grid-1:4444"))
	})

	It("should prefer endpoints without recent failures", func() {
		clk := clock.NewFake()
		clk.Set(time.Now())

		balancer := NewBalancer(clk, "http://grid-1:4444", "http://grid-2:4444")
		balancer.ReportFailure("http://grid-2:4444")

		picks := make(map[string]int)
		for i := 0; i < 200; i++ {
			picks[balancer.Pick()]++
		}

		Expect(picks["http://grid-1:4444"]).Should(BeNumerically(">", picks["http://grid-2:4444"]))
	})

	It("should let a failed endpoint recover over time", func() {
		clk := clock.NewFake()
		clk.Set(time.Now())

		balancer := NewBalancer(clk, "http://grid-1:4444", "http://grid-2:4444")
		balancer.ReportFailure("http://grid-2:4444")

		clk.Add(2 * time.Hour)

		picks := make(map[string]int)
		for i := 0; i < 500; i++ {
			picks[balancer.Pick()]++
		}

		// equal weights again, both sides should see picks
		Expect(picks["http://grid-1:4444"]).Should(BeNumerically(">", 100))
		Expect(picks["http://grid-2:4444"]).Should(BeNumerically(">", 100))
	})
})
