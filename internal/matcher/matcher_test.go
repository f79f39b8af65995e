package matcher

import (
	"math"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/seanwevans/moqtail-go/internal/selector"
)

func lit(text string) selector.Segment { return selector.Segment{Kind: selector.Literal, Text: text} }

func step(axis selector.Axis, seg selector.Segment, preds ...selector.Predicate) selector.Step {
	return selector.Step{Axis: axis, Segment: seg, Predicates: preds}
}

func TestMatches_ChildAndPlus(t *testing.T) {
	sel := &selector.Selector{Steps: []selector.Step{
		step(selector.Child, lit("room")),
		step(selector.Child, selector.Segment{Kind: selector.Plus}),
		step(selector.Child, lit("temp")),
	}}
	m := New(sel)

	cases := []struct {
		topic string
		want  bool
	}{
		{"room/kitchen/temp", true},
		{"room/bath/temp", true},
		{"room/temp", false}, // Plus must consume exactly one segment
		{"room/kitchen/bath/temp", false},
		{"room/kitchen/humidity", false},
	}
	for _, tc := range cases {
		got := m.Matches(&Message{Topic: tc.topic})
		if got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.topic, got, tc.want)
		}
	}
}

func TestMatches_DescendantZeroSegments(t *testing.T) {
	sel := &selector.Selector{Steps: []selector.Step{
		step(selector.Descendant, lit("sensor")),
	}}
	m := New(sel)

	if !m.Matches(&Message{Topic: "sensor"}) {
		t.Error("descendant axis should match its own segment with zero skipped segments")
	}
	if !m.Matches(&Message{Topic: "building/floor1/sensor"}) {
		t.Error("descendant axis should match after skipping intermediate segments")
	}
}

func TestMatches_HashZeroOrMore(t *testing.T) {
	sel := &selector.Selector{Steps: []selector.Step{
		step(selector.Child, lit("foo")),
		step(selector.Child, selector.Segment{Kind: selector.Hash}),
	}}
	m := New(sel)

	if !m.Matches(&Message{Topic: "foo"}) {
		t.Error("hash should match zero trailing segments")
	}
	if !m.Matches(&Message{Topic: "foo/bar/baz"}) {
		t.Error("hash should match any number of trailing segments")
	}
	if m.Matches(&Message{Topic: "other"}) {
		t.Error("hash does not relax the preceding literal match")
	}
}

func TestMatches_LongDescendantPath(t *testing.T) {
	segs := make([]string, 200)
	for i := range segs {
		segs[i] = "x"
	}
	topic := strings.Join(segs, "/")

	sel := &selector.Selector{Steps: []selector.Step{
		step(selector.Descendant, lit("x")),
	}}
	m := New(sel)
	if !m.Matches(&Message{Topic: topic}) {
		t.Error("descendant should find a matching segment deep in a long topic")
	}
}

func TestMatches_PredicateGatesPath(t *testing.T) {
	sel := &selector.Selector{Steps: []selector.Step{
		step(selector.Child, lit("sensor"), selector.Predicate{
			Field: selector.Field{Kind: selector.HeaderField, Name: "temp"},
			Op:    selector.Gt,
			Value: selector.Value{Kind: selector.NumberValue, Num: 20},
		}),
	}}
	m := New(sel)

	if !m.Matches(&Message{Topic: "sensor", Headers: map[string]string{"temp": "25"}}) {
		t.Error("predicate over threshold should match")
	}
	if m.Matches(&Message{Topic: "sensor", Headers: map[string]string{"temp": "15"}}) {
		t.Error("predicate under threshold should not match")
	}
	if m.Matches(&Message{Topic: "sensor"}) {
		t.Error("missing header should make the predicate false, not panic")
	}
}

func TestMatches_JSONPredicate(t *testing.T) {
	sel := &selector.Selector{Steps: []selector.Step{
		step(selector.Child, lit("sensor"), selector.Predicate{
			Field: selector.Field{Kind: selector.JSONField, Path: []string{"reading", "value"}},
			Op:    selector.Le,
			Value: selector.Value{Kind: selector.NumberValue, Num: 3},
		}),
	}}
	m := New(sel)

	payload := gjson.Parse(`{"reading":{"value":2.5}}`)
	if !m.Matches(&Message{Topic: "sensor", Payload: &payload}) {
		t.Error("json predicate should match")
	}

	tooHigh := gjson.Parse(`{"reading":{"value":9}}`)
	if m.Matches(&Message{Topic: "sensor", Payload: &tooHigh}) {
		t.Error("json predicate should reject a value above threshold")
	}

	if m.Matches(&Message{Topic: "sensor"}) {
		t.Error("nil payload should make a json predicate false, not panic")
	}
}

func TestCompareNumbers_EpsilonAndSpecialValues(t *testing.T) {
	nan := math.NaN()
	if compareNumbers(nan, nan, selector.Eq) {
		t.Error("NaN must never compare equal, even to itself")
	}
	if compareNumbers(nan, 1, selector.Lt) {
		t.Error("NaN must never compare true for any operator")
	}

	inf := math.Inf(1)
	if !compareNumbers(inf, inf, selector.Eq) {
		t.Error("+Inf should equal +Inf under strict IEEE comparison")
	}
	if compareNumbers(inf, inf, selector.Lt) {
		t.Error("+Inf should not be less than +Inf")
	}

	if !compareNumbers(1.0, 1.0+epsilon/2, selector.Eq) {
		t.Error("values within epsilon of each other should compare equal")
	}
	if !compareNumbers(20.0, 25.0, selector.Lt) {
		t.Error("20 < 25 should hold")
	}
}
