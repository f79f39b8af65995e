package selector

import (
	"strconv"
	"strings"
)

// String renders the Selector in its canonical textual form, guaranteed to
// re-parse into an equal Selector.
func (s *Selector) String() string {
	var b strings.Builder
	for _, step := range s.Steps {
		writeStep(&b, step)
	}
	for _, stage := range s.Stages {
		writeStage(&b, stage)
	}
	return b.String()
}

// Display is an alias for String kept for parity with the spec's
// Selector::display name.
func (s *Selector) Display() string {
	return s.String()
}

func writeStep(b *strings.Builder, step Step) {
	b.WriteString(step.Axis.String())
	b.WriteString(step.Segment.String())
	for _, p := range step.Predicates {
		b.WriteByte('[')
		b.WriteString(p.Field.String())
		b.WriteString(p.Op.String())
		writeValue(b, p.Value)
		b.WriteByte(']')
	}
}

func writeValue(b *strings.Builder, v Value) {
	switch v.Kind {
	case NumberValue:
		b.WriteString(formatNumber(v.Num))
	case BoolValue:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case StringValue:
		b.WriteString(quoteString(v.Str))
	}
}

func writeStage(b *strings.Builder, stage Stage) {
	b.WriteString(" |> ")
	switch stage.Kind {
	case WindowStage:
		b.WriteString("window(")
		b.WriteString(strconv.Itoa(stage.N))
		b.WriteString("s)")
	case SumStage:
		b.WriteString("sum(")
		b.WriteString(stage.Field.String())
		b.WriteByte(')')
	case AvgStage:
		b.WriteString("avg(")
		b.WriteString(stage.Field.String())
		b.WriteByte(')')
	case CountStage:
		b.WriteString("count()")
	}
}

// formatNumber renders a float in the grammar's plain-decimal form (no
// exponent notation, since the number production has none).
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// quoteString renders s as a double-quoted literal with JSON-style
// backslash/quote escaping.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
