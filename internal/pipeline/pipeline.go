// Package pipeline runs a selector's postfix stage pipeline: a sequence of
// stateful aggregators (Window, Sum, Avg, Count) updated once per matched
// message.
package pipeline

import (
	"github.com/seanwevans/moqtail-go/internal/matcher"
	"github.com/seanwevans/moqtail-go/internal/selector"
)

// Pipeline holds the running state of every aggregator stage in a selector.
// It is not safe for concurrent use: Process mutates aggregator state.
type Pipeline struct {
	aggregators []aggregatorState
}

type aggregatorState struct {
	kind     selector.StageKind
	field    selector.Field
	capacity int
	window   []float64
	count    uint64
}

// New builds a Pipeline from a selector's stages. Window stages set the
// sliding-window capacity (default 1) for every aggregator stage that
// follows them; they hold no state of their own.
func New(stages []selector.Stage) *Pipeline {
	p := &Pipeline{}
	capacity := 1
	for _, st := range stages {
		switch st.Kind {
		case selector.WindowStage:
			capacity = st.N
		case selector.SumStage, selector.AvgStage:
			p.aggregators = append(p.aggregators, aggregatorState{
				kind: st.Kind, field: st.Field, capacity: capacity,
			})
		case selector.CountStage:
			p.aggregators = append(p.aggregators, aggregatorState{
				kind: st.Kind, capacity: capacity,
			})
		}
	}
	return p
}

// Process updates every aggregator stage with msg and returns the value of
// the last aggregator that actually processed it. An aggregator that can't
// extract a numeric field from msg is left untouched and contributes no
// result. If the selector has no aggregator stages at all, Process always
// returns (0, false).
func (p *Pipeline) Process(msg *matcher.Message) (float64, bool) {
	var result float64
	var ok bool

	for i := range p.aggregators {
		st := &p.aggregators[i]
		switch st.kind {
		case selector.SumStage, selector.AvgStage:
			v, extracted := matcher.ExtractNumericField(st.field, msg)
			if !extracted {
				continue
			}
			st.window = append(st.window, v)
			if len(st.window) > st.capacity {
				st.window = st.window[len(st.window)-st.capacity:]
			}
			total := sumFloats(st.window)
			if st.kind == selector.AvgStage {
				result = total / float64(len(st.window))
			} else {
				result = total
			}
			ok = true

		case selector.CountStage:
			if st.count < uint64(st.capacity) {
				st.count++
			}
			result = float64(st.count)
			ok = true
		}
	}

	return result, ok
}

func sumFloats(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
