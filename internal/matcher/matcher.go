package matcher

import (
	"strings"

	"github.com/seanwevans/moqtail-go/internal/selector"
)

// Matcher evaluates one compiled Selector against messages. A Matcher holds
// no per-message state; it is safe to share across goroutines and reuse
// across any number of Matches calls.
type Matcher struct {
	sel *selector.Selector
}

// New builds a Matcher from a compiled selector.
func New(sel *selector.Selector) *Matcher {
	return &Matcher{sel: sel}
}

// Selector returns the compiled selector this Matcher evaluates.
func (m *Matcher) Selector() *selector.Selector {
	return m.sel
}

// Matches reports whether msg's topic and attached predicates satisfy the
// selector's path steps.
func (m *Matcher) Matches(msg *Message) bool {
	return matchPath(m.sel.Steps, msg)
}

type pathState struct {
	stepIndex  int
	topicIndex int
}

// matchPath runs the non-recursive backtracking automaton of the path
// language: a step advances (stepIndex, topicIndex) by consuming zero, one,
// or an arbitrary run of topic segments depending on its segment kind and
// axis. The search uses an explicit LIFO work stack rather than program
// recursion so a topic with hundreds of segments never deepens the Go call
// stack, and a visited set expands each of the (steps+1) * (topic length+1)
// states at most once even when Hash/Descendant branching would otherwise
// revisit the same state many times.
func matchPath(steps []selector.Step, msg *Message) bool {
	var topic []string
	if msg.Topic != "" {
		topic = strings.Split(msg.Topic, "/")
	}

	stack := []pathState{{stepIndex: 0, topicIndex: 0}}
	visited := map[pathState]bool{}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[s] {
			continue
		}
		visited[s] = true

		if s.stepIndex == len(steps) {
			if s.topicIndex == len(topic) {
				return true
			}
			continue
		}

		step := steps[s.stepIndex]
		if !evalPredicates(step.Predicates, msg) {
			continue
		}

		stack = appendNextStates(stack, step, s, len(topic))
	}

	return false
}

func appendNextStates(stack []pathState, step selector.Step, s pathState, topicLen int) []pathState {
	switch step.Segment.Kind {
	case selector.Message:
		// Zero-width: a msg segment anchors predicates to the whole
		// message without consuming a topic level. Under the descendant
		// axis it may first skip any number of remaining segments.
		if step.Axis == selector.Descendant {
			for start := s.topicIndex; start <= topicLen; start++ {
				stack = append(stack, pathState{stepIndex: s.stepIndex + 1, topicIndex: start})
			}
			return stack
		}
		return append(stack, pathState{stepIndex: s.stepIndex + 1, topicIndex: s.topicIndex})

	case selector.Hash:
		// Consumes any run of zero or more remaining segments, including
		// none at all (the step's own position).
		for end := s.topicIndex; end <= topicLen; end++ {
			stack = append(stack, pathState{stepIndex: s.stepIndex + 1, topicIndex: end})
		}
		return stack

	default: // Literal, Plus: consume exactly one segment at some start position
		starts := []int{s.topicIndex}
		if step.Axis == selector.Descendant {
			starts = nil
			for start := s.topicIndex; start <= topicLen; start++ {
				starts = append(starts, start)
			}
		}
		for _, start := range starts {
			if start >= topicLen {
				continue
			}
			if step.Segment.Kind == selector.Literal && topic[start] != step.Segment.Text {
				continue
			}
			stack = append(stack, pathState{stepIndex: s.stepIndex + 1, topicIndex: start + 1})
		}
		return stack
	}
}
