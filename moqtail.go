// Package moqtail compiles MQTT-style topic selectors and matches them
// against messages, optionally feeding matches through a stage pipeline of
// stateful numeric aggregators.
package moqtail

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/seanwevans/moqtail-go/internal/matcher"
	"github.com/seanwevans/moqtail-go/internal/obs"
	"github.com/seanwevans/moqtail-go/internal/parse"
	"github.com/seanwevans/moqtail-go/internal/pipeline"
	"github.com/seanwevans/moqtail-go/internal/selector"
)

// Selector is the compiled form of a selector-language query string.
type Selector = selector.Selector

// Message is one unit of Matcher evaluation.
type Message = matcher.Message

// Compile parses s into a Selector. Compile is total: it never panics and
// returns exactly one of (*Selector, nil) or (nil, error).
func Compile(s string) (*Selector, error) {
	sel, err := parse.Parse(s)
	if err != nil {
		obs.Logger().Debug().Err(err).Str("selector", s).Msg("moqtail: selector compile failed")
		return nil, err
	}
	return sel, nil
}

// Matcher evaluates a compiled Selector against messages and, when the
// selector carries a stage pipeline, maintains its rolling aggregate
// state. A Matcher is not safe for concurrent use by multiple goroutines
// if its selector has any stages: Process mutates aggregator state.
type Matcher struct {
	core     *matcher.Matcher
	pipeline *pipeline.Pipeline
	metrics  *obs.Metrics
	logger   zerolog.Logger
}

// MatcherOption configures optional cross-cutting behavior on a Matcher.
type MatcherOption func(*Matcher)

// WithMetrics attaches Prometheus instrumentation to a Matcher.
func WithMetrics(metrics *obs.Metrics) MatcherOption {
	return func(m *Matcher) { m.metrics = metrics }
}

// WithLogger attaches a structured logger to a Matcher.
func WithLogger(logger zerolog.Logger) MatcherOption {
	return func(m *Matcher) { m.logger = logger }
}

// NewMatcher builds a Matcher for sel. The same Selector may back any
// number of independent Matchers, each with its own pipeline state.
func NewMatcher(sel *Selector, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		core:     matcher.New(sel),
		pipeline: pipeline.New(sel.Stages),
		logger:   obs.Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Matches reports whether msg's topic and predicates satisfy the selector.
func (m *Matcher) Matches(msg *Message) bool {
	matched := m.core.Matches(msg)
	m.metrics.ObserveMatch(matched)
	return matched
}

// Process evaluates msg and, if it matches, feeds it through the
// selector's stage pipeline. ok is false when msg does not match, the
// selector has no aggregator stage, or the aggregator's field could not be
// extracted from msg.
func (m *Matcher) Process(msg *Message) (float64, bool) {
	start := time.Now()
	defer func() { m.metrics.ObserveProcess(time.Since(start)) }()

	if !m.core.Matches(msg) {
		return 0, false
	}
	return m.pipeline.Process(msg)
}
