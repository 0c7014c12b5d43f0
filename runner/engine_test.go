package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/helpertest"
	"github.com/0xERR0R/canarynet/model"

	"github.com/jmhodges/clock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeBrowser struct {
	lock      sync.Mutex
	navigated []string
	coverage  string
	closed    bool
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.navigated = append(f.navigated, url)

	return nil
}

func (f *fakeBrowser) Execute(_ context.Context, _ string, _ ...interface{}) (json.RawMessage, error) {
	if f.coverage == "" {
		return json.RawMessage("null"), nil
	}

	return json.RawMessage(f.coverage), nil
}

func (f *fakeBrowser) Close(_ context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.closed = true

	return nil
}

type fakeSessions struct {
	lock     sync.Mutex
	browsers []*fakeBrowser
	coverage string
	refuse   bool
}

func (f *fakeSessions) New(_ context.Context) (Browser, error) {
	if f.refuse {
		return nil, fmt.Errorf("no session slot")
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	browser := &fakeBrowser{coverage: f.coverage}
	f.browsers = append(f.browsers, browser)

	return browser, nil
}

func passing(name string) Case {
	return Case{Name: name, Run: func(ctx context.Context, browser Browser) error {
		return browser.Navigate(ctx, "https://app.test/"+name)
	}}
}

func failing(name string) Case {
	return Case{Name: name, Run: func(_ context.Context, _ Browser) error {
		return Failf("expected welcome banner on %s", name)
	}}
}

func erroring(name string) Case {
	return Case{Name: name, Run: func(_ context.Context, _ Browser) error {
		return fmt.Errorf("harness hiccup in %s", name)
	}}
}

var _ = Describe("Engine", func() {
	var (
		ctx      context.Context
		sessions *fakeSessions
	)

	newEngine := func(cfg config.Tests) *Engine {
		if cfg.Selector == "" {
			cfg.Selector = "*"
		}

		if cfg.CaseTimeout.ToDuration() == 0 {
			Expect(cfg.CaseTimeout.UnmarshalText([]byte("30s"))).Should(Succeed())
		}

		return NewEngine(cfg, clock.New(), sessions)
	}

	BeforeEach(func() {
		ctx = context.Background()
		sessions = &fakeSessions{}
	})

	It("should run all cases and report a passed run", func() {
		engine := newEngine(config.Tests{MaxFail: 10, Parallel: 2})

		report := engine.Run(ctx, []Case{passing("login"), passing("checkout"), passing("logout")})

		Expect(report.Status).Should(Equal(model.RunStatusPassed))
		Expect(report.Tally).Should(Equal(model.Tally{Passed: 3}))
		Expect(report.ID).ShouldNot(BeEmpty())

		for _, browser := range sessions.browsers {
			Expect(browser.closed).Should(BeTrue())
		}
	})

	It("should keep results in declaration order", func() {
		engine := newEngine(config.Tests{MaxFail: 10, Parallel: 4})

		report := engine.Run(ctx, []Case{passing("a"), failing("b"), passing("c")})

		Expect(report.Cases).Should(HaveLen(3))
		Expect(report.Cases[0].Name).Should(Equal("a"))
		Expect(report.Cases[1].Name).Should(Equal("b"))
		Expect(report.Cases[2].Name).Should(Equal("c"))
	})

	It("should distinguish failures from harness errors", func() {
		engine := newEngine(config.Tests{MaxFail: 10, Parallel: 1})

		report := engine.Run(ctx, []Case{failing("verdict"), erroring("harness")})

		Expect(report.Cases[0].Outcome).Should(Equal(model.CaseOutcomeFailed))
		Expect(report.Cases[0].Details).Should(ContainSubstring("welcome banner"))
		Expect(report.Cases[1].Outcome).Should(Equal(model.CaseOutcomeError))
		Expect(report.Status).Should(Equal(model.RunStatusFailed))
	})

	It("should report a session refusal as a harness error", func() {
		sessions.refuse = true
		engine := newEngine(config.Tests{MaxFail: 10, Parallel: 1})

		report := engine.Run(ctx, []Case{passing("login")})

		Expect(report.Cases[0].Outcome).Should(Equal(model.CaseOutcomeError))
		Expect(report.Cases[0].Details).Should(ContainSubstring("no session slot"))
	})

	It("should skip cases the selector does not match", func() {
		engine := newEngine(config.Tests{Selector: "login*", MaxFail: 10, Parallel: 1})

		report := engine.Run(ctx, []Case{passing("login-basic"), passing("checkout"), passing("login-sso")})

		Expect(report.Cases[0].Outcome).Should(Equal(model.CaseOutcomePassed))
		Expect(report.Cases[1].Outcome).Should(Equal(model.CaseOutcomeSkipped))
		Expect(report.Cases[1].Details).Should(Equal("not selected"))
		Expect(report.Cases[2].Outcome).Should(Equal(model.CaseOutcomePassed))

		Expect(report.Status).Should(Equal(model.RunStatusPassed))
	})

	It("should stop dispatching once the failure threshold is reached", func() {
		engine := newEngine(config.Tests{MaxFail: 1, Parallel: 1})

		report := engine.Run(ctx, []Case{
			failing("breaks"),
			passing("never-started"),
			passing("never-started-either"),
		})

		Expect(report.Cases[0].Outcome).Should(Equal(model.CaseOutcomeFailed))
		Expect(report.Cases[1].Outcome).Should(Equal(model.CaseOutcomeSkipped))
		Expect(report.Cases[1].Details).Should(ContainSubstring("threshold"))
		Expect(report.Cases[2].Outcome).Should(Equal(model.CaseOutcomeSkipped))

		Expect(report.Status).Should(Equal(model.RunStatusFailed))
		Expect(report.Tally).Should(Equal(model.Tally{Failed: 1, Skipped: 2}))
	})

	It("should let an already dispatched case finish", func() {
		engine := newEngine(config.Tests{MaxFail: 1, Parallel: 2})

		dispatched := make(chan struct{})
		failed := make(chan struct{})

		breaking := Case{Name: "breaks", Run: func(_ context.Context, _ Browser) error {
			// only fail once the second case holds a worker
			<-dispatched
			defer close(failed)

			return Failf("expected welcome banner on breaks")
		}}
		inFlight := Case{Name: "in-flight", Run: func(_ context.Context, _ Browser) error {
			close(dispatched)
			<-failed

			return nil
		}}

		report := engine.Run(ctx, []Case{breaking, inFlight})

		Expect(report.Cases[0].Outcome).Should(Equal(model.CaseOutcomeFailed))
		Expect(report.Cases[1].Outcome).Should(Equal(model.CaseOutcomePassed))
		Expect(report.Tally).Should(Equal(model.Tally{Passed: 1, Failed: 1}))
	})

	It("should count harness errors against the failure threshold", func() {
		engine := newEngine(config.Tests{MaxFail: 1, Parallel: 1})

		report := engine.Run(ctx, []Case{erroring("harness"), passing("never"), passing("never-either")})

		Expect(report.Cases[0].Outcome).Should(Equal(model.CaseOutcomeError))
		Expect(report.Cases[1].Outcome).Should(Equal(model.CaseOutcomeSkipped))
		Expect(report.Cases[2].Outcome).Should(Equal(model.CaseOutcomeSkipped))
	})

	When("coverage is enabled", func() {
		var folder *helpertest.TmpFolder

		BeforeEach(func() {
			folder = helpertest.NewTmpFolder("coverage")
			DeferCleanup(folder.Clean)

			sessions.coverage = `{"app.js":{"s":{"0":1,"1":2}}}`
		})

		It("should store one document per case and merge them", func() {
			engine := newEngine(config.Tests{
				MaxFail:  10,
				Parallel: 2,
				Coverage: config.Coverage{Enabled: true, Dir: folder.Path},
			})

			report := engine.Run(ctx, []Case{passing("login"), passing("checkout")})
			Expect(report.Status).Should(Equal(model.RunStatusPassed))

			merged, err := MergeCoverage(folder.Path)
			Expect(err).Should(Succeed())

			raw, err := os.ReadFile(merged)
			Expect(err).Should(Succeed())

			var document map[string]map[string]map[string]float64
			Expect(json.Unmarshal(raw, &document)).Should(Succeed())
			Expect(document["app.js"]["s"]["0"]).Should(Equal(float64(2)))
			Expect(document["app.js"]["s"]["1"]).Should(Equal(float64(4)))
		})
	})
})
