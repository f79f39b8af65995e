package pipeline

import (
	"testing"

	"github.com/seanwevans/moqtail-go/internal/matcher"
	"github.com/seanwevans/moqtail-go/internal/selector"
)

func headerField(name string) selector.Field {
	return selector.Field{Kind: selector.HeaderField, Name: name}
}

func msgWith(value string) *matcher.Message {
	return &matcher.Message{Topic: "temp", Headers: map[string]string{"value": value}}
}

func TestPipeline_SumWithDefaultCapacity(t *testing.T) {
	p := New([]selector.Stage{
		{Kind: selector.SumStage, Field: headerField("value")},
	})

	if _, ok := p.Process(msgWith("not-a-number")); ok {
		t.Error("non-numeric field should not produce a result")
	}

	v, ok := p.Process(msgWith("5"))
	if !ok || v != 5 {
		t.Fatalf("Process = (%v, %v), want (5, true)", v, ok)
	}

	// Default capacity is 1: each new message replaces the prior one.
	v, ok = p.Process(msgWith("7"))
	if !ok || v != 7 {
		t.Fatalf("Process = (%v, %v), want (7, true)", v, ok)
	}
}

func TestPipeline_WindowSetsCapacityForFollowingAggregators(t *testing.T) {
	p := New([]selector.Stage{
		{Kind: selector.WindowStage, N: 3},
		{Kind: selector.SumStage, Field: headerField("value")},
	})

	for _, v := range []string{"1", "2", "3"} {
		p.Process(msgWith(v))
	}
	sum, ok := p.Process(msgWith("4"))
	if !ok {
		t.Fatal("expected a result")
	}
	// Window of 3 means only the last 3 values (2, 3, 4) are summed.
	if sum != 9 {
		t.Errorf("sum = %v, want 9 (window should have evicted the first value)", sum)
	}
}

func TestPipeline_Avg(t *testing.T) {
	p := New([]selector.Stage{
		{Kind: selector.WindowStage, N: 2},
		{Kind: selector.AvgStage, Field: headerField("value")},
	})

	p.Process(msgWith("10"))
	avg, ok := p.Process(msgWith("20"))
	if !ok || avg != 15 {
		t.Fatalf("avg = (%v, %v), want (15, true)", avg, ok)
	}
}

func TestPipeline_CountSaturatesAtDefaultCapacity(t *testing.T) {
	p := New([]selector.Stage{{Kind: selector.CountStage}})

	var last float64
	for i := 0; i < 5; i++ {
		v, ok := p.Process(&matcher.Message{Topic: "temp"})
		if !ok {
			t.Fatal("count should always produce a result")
		}
		last = v
	}
	// Default window capacity is 1, so a bare count() saturates at 1.
	if last != 1 {
		t.Errorf("count = %v, want 1 (bare count() saturates at the default capacity of 1)", last)
	}
}

func TestPipeline_CountSaturatesAtWindowCapacity(t *testing.T) {
	p := New([]selector.Stage{
		{Kind: selector.WindowStage, N: 2},
		{Kind: selector.CountStage},
	})

	var got []float64
	for i := 0; i < 3; i++ {
		v, ok := p.Process(&matcher.Message{Topic: "temp"})
		if !ok {
			t.Fatal("count should always produce a result")
		}
		got = append(got, v)
	}
	want := []float64{1, 2, 2}
	for i, v := range got {
		if v != want[i] {
			t.Errorf("message %d: count = %v, want %v", i, v, want[i])
		}
	}
}

func TestPipeline_LastAggregatorWins(t *testing.T) {
	p := New([]selector.Stage{
		{Kind: selector.SumStage, Field: headerField("value")},
		{Kind: selector.CountStage},
	})

	v, ok := p.Process(msgWith("100"))
	if !ok || v != 1 {
		t.Fatalf("Process = (%v, %v), want (1, true) since count runs after sum", v, ok)
	}
}

func TestPipeline_NoAggregatorNoResult(t *testing.T) {
	p := New([]selector.Stage{{Kind: selector.WindowStage, N: 5}})
	if _, ok := p.Process(msgWith("1")); ok {
		t.Error("a selector with only a window stage and no aggregator should never produce a result")
	}
}
