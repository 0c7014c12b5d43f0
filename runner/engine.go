package runner

import (
	"context"
	"errors"
	"path"
	"sync"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/evt"
	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/model"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"github.com/sirupsen/logrus"
)

// Engine dispatches test cases to a bounded pool of browser sessions.
// Dispatch follows declaration order, the selector decides which cases
// run at all, and once the failure tally reaches the configured maximum
// no further case is dispatched: in-flight cases finish, everything not
// dispatched yet is reported as skipped. Workers pull their next case
// under the same lock that counts failures, so the threshold decision
// is taken exactly at hand-over.
type Engine struct {
	cfg      config.Tests
	clk      clock.Clock
	sessions Sessions
	logger   *logrus.Entry

	lock     sync.Mutex
	failures int
}

// NewEngine creates an engine over a session source
func NewEngine(cfg config.Tests, clk clock.Clock, sessions Sessions) *Engine {
	return &Engine{
		cfg:      cfg,
		clk:      clk,
		sessions: sessions,
		logger:   log.PrefixedLog("runner"),
	}
}

// Run executes the cases and returns the aggregated report
func (e *Engine) Run(ctx context.Context, cases []Case) *model.RunReport {
	report := &model.RunReport{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		Selector:  e.cfg.Selector,
		StartedAt: e.clk.Now(),
	}

	e.lock.Lock()
	e.failures = 0
	e.lock.Unlock()

	results := make([]model.CaseResult, len(cases))

	next := 0

	takeNext := func() (int, bool) {
		e.lock.Lock()
		defer e.lock.Unlock()

		for next < len(cases) {
			i := next
			next++

			if matched, _ := path.Match(e.cfg.Selector, cases[i].Name); !matched {
				results[i] = e.skip(cases[i], "not selected")

				continue
			}

			if e.failures >= e.cfg.MaxFail {
				results[i] = e.skip(cases[i], "failure threshold reached, not dispatched")

				continue
			}

			return i, true
		}

		return 0, false
	}

	var wg sync.WaitGroup

	for worker := uint(0); worker < e.cfg.Parallel; worker++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				i, ok := takeNext()
				if !ok {
					return
				}

				results[i] = e.runCase(ctx, cases[i])
			}
		}()
	}

	wg.Wait()

	report.Cases = results
	report.FinishedAt = e.clk.Now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	for i := range results {
		switch results[i].Outcome {
		case model.CaseOutcomePassed:
			report.Tally.Passed++
		case model.CaseOutcomeFailed:
			report.Tally.Failed++
		case model.CaseOutcomeError:
			report.Tally.Errors++
		case model.CaseOutcomeSkipped:
			report.Tally.Skipped++
		}
	}

	if report.Tally.Failed > 0 || report.Tally.Errors > 0 {
		report.Status = model.RunStatusFailed
	} else {
		report.Status = model.RunStatusPassed
	}

	e.logger.Infof("run %s finished: %d passed, %d failed, %d errors, %d skipped",
		report.ID, report.Tally.Passed, report.Tally.Failed, report.Tally.Errors, report.Tally.Skipped)

	evt.Bus().Publish(evt.RunCompleted, report.Status.String(), report.Duration.Seconds())

	return report
}

func (e *Engine) skip(tcase Case, reason string) model.CaseResult {
	result := model.CaseResult{
		Name:      tcase.Name,
		Outcome:   model.CaseOutcomeSkipped,
		Details:   reason,
		StartedAt: e.clk.Now(),
	}

	evt.Bus().Publish(evt.CaseCompleted, tcase.Name, result.Outcome.String(), float64(0))

	return result
}

func (e *Engine) runCase(ctx context.Context, tcase Case) model.CaseResult {
	result := model.CaseResult{Name: tcase.Name, StartedAt: e.clk.Now()}

	caseCtx, cancel := context.WithTimeout(ctx, e.cfg.CaseTimeout.ToDuration())
	defer cancel()

	result.Outcome, result.Details = e.execute(caseCtx, tcase)
	result.Duration = e.clk.Now().Sub(result.StartedAt)

	if result.Outcome == model.CaseOutcomeFailed || result.Outcome == model.CaseOutcomeError {
		e.lock.Lock()
		e.failures++
		e.lock.Unlock()
	}

	e.logger.Infof("case '%s': %s (%s)", tcase.Name, result.Outcome, result.Duration)
	evt.Bus().Publish(evt.CaseCompleted, tcase.Name, result.Outcome.String(), result.Duration.Seconds())

	return result
}

func (e *Engine) execute(ctx context.Context, tcase Case) (model.CaseOutcome, string) {
	browser, err := e.sessions.New(ctx)
	if err != nil {
		return model.CaseOutcomeError, err.Error()
	}

	defer func() {
		if err := browser.Close(ctx); err != nil {
			e.logger.Warnf("session of case '%s' did not close cleanly: %v", tcase.Name, err)
		}
	}()

	err = tcase.Run(ctx, browser)

	if e.cfg.Coverage.Enabled {
		if coverageErr := e.collectCoverage(ctx, tcase.Name, browser); coverageErr != nil {
			e.logger.Warnf("coverage pull for case '%s' failed: %v", tcase.Name, coverageErr)
		}
	}

	switch {
	case err == nil:
		return model.CaseOutcomePassed, ""
	case isFailure(err):
		return model.CaseOutcomeFailed, err.Error()
	default:
		return model.CaseOutcomeError, err.Error()
	}
}

func isFailure(err error) bool {
	var failure *Failure

	return errors.As(err, &failure)
}
