// Package selector defines the typed AST for the moqtail selector
// language: an ordered sequence of path Steps followed by an optional
// pipeline of aggregation Stages.
package selector

import "fmt"

// Axis is the relation between a Step and the current topic cursor.
type Axis int

const (
	// Child matches exactly one topic segment at the current cursor.
	Child Axis = iota
	// Descendant may skip zero or more segments before matching.
	Descendant
)

func (a Axis) String() string {
	if a == Descendant {
		return "//"
	}
	return "/"
}

// SegmentKind discriminates the shape of a Step's segment.
type SegmentKind int

const (
	// Literal matches one topic segment exactly.
	Literal SegmentKind = iota
	// Plus matches exactly one arbitrary segment.
	Plus
	// Hash matches zero or more trailing segments.
	Hash
	// Message is a virtual segment that consumes no topic input.
	Message
)

// Segment is one component of a Step: either a literal topic segment or
// one of the wildcard/virtual forms.
type Segment struct {
	Kind SegmentKind
	Text string // populated only when Kind == Literal
}

func (s Segment) String() string {
	switch s.Kind {
	case Literal:
		return s.Text
	case Plus:
		return "+"
	case Hash:
		return "#"
	case Message:
		return "msg"
	default:
		return fmt.Sprintf("segment(%d)", s.Kind)
	}
}

// FieldKind discriminates a Predicate's left-hand field domain.
type FieldKind int

const (
	// HeaderField looks a key up in the message's header map.
	HeaderField FieldKind = iota
	// JSONField walks a non-empty ordered key path into the JSON payload.
	JSONField
)

// Field identifies the value a Predicate reads from a Message.
type Field struct {
	Kind FieldKind
	Name string   // populated when Kind == HeaderField
	Path []string // populated when Kind == JSONField, always non-empty
}

func (f Field) String() string {
	if f.Kind == HeaderField {
		return f.Name
	}
	out := "json$"
	for _, part := range f.Path {
		out += "." + part
	}
	return out
}

// Op is a predicate comparison operator.
type Op int

const (
	Eq Op = iota
	Lt
	Gt
	Le
	Ge
)

func (o Op) String() string {
	switch o {
	case Eq:
		return "="
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Le:
		return "<="
	case Ge:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", o)
	}
}

// ValueKind discriminates a predicate literal's type.
type ValueKind int

const (
	NumberValue ValueKind = iota
	BoolValue
	StringValue
)

// Value is the typed literal on the right-hand side of a Predicate.
type Value struct {
	Kind ValueKind
	Num  float64
	Bool bool
	Str  string
}

// Predicate is an attribute constraint attached to a Step.
type Predicate struct {
	Field Field
	Op    Op
	Value Value
}

// Step is one element of a Selector's path: an axis, a segment, and the
// (conjunctively evaluated) predicates attached to it.
type Step struct {
	Axis       Axis
	Segment    Segment
	Predicates []Predicate
}

// StageKind discriminates a pipeline Stage.
type StageKind int

const (
	// WindowStage sets the capacity used by aggregators that follow it.
	WindowStage StageKind = iota
	// SumStage accumulates a running sum of an extracted numeric field.
	SumStage
	// AvgStage accumulates a running average of an extracted numeric field.
	AvgStage
	// CountStage counts matched messages, saturating at its capacity.
	CountStage
)

func (k StageKind) String() string {
	switch k {
	case WindowStage:
		return "window"
	case SumStage:
		return "sum"
	case AvgStage:
		return "avg"
	case CountStage:
		return "count"
	default:
		return fmt.Sprintf("stage(%d)", k)
	}
}

// Stage is one element of a Selector's pipeline tail.
type Stage struct {
	Kind  StageKind
	N     int   // window capacity, populated when Kind == WindowStage
	Field Field // aggregated field, populated when Kind == SumStage or AvgStage
}

// Selector is the fully parsed, immutable form of a compiled query: a
// non-empty ordered sequence of Steps followed by an optional ordered
// sequence of Stages.
type Selector struct {
	Steps  []Step
	Stages []Stage
}
