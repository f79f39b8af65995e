package matcher

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/seanwevans/moqtail-go/internal/selector"
)

// epsilon is the tolerance used for approximate float64 comparison,
// matching the machine epsilon for float64 (f64::EPSILON in the original
// selector language's numeric model).
const epsilon = 2.220446049250313e-16

func evalPredicates(preds []selector.Predicate, msg *Message) bool {
	for _, pred := range preds {
		if !evalPredicate(pred, msg) {
			return false
		}
	}
	return true
}

func evalPredicate(pred selector.Predicate, msg *Message) bool {
	actual, ok := extractField(pred.Field, msg)
	if !ok {
		return false
	}
	return compareValues(actual, pred.Op, pred.Value)
}

// ExtractNumericField extracts field's value from msg as a float64. It is
// exported for the stage pipeline, which only ever aggregates numbers.
func ExtractNumericField(field selector.Field, msg *Message) (float64, bool) {
	val, ok := extractField(field, msg)
	if !ok || val.Kind != selector.NumberValue {
		return 0, false
	}
	return val.Num, true
}

func extractField(field selector.Field, msg *Message) (selector.Value, bool) {
	switch field.Kind {
	case selector.HeaderField:
		return extractHeaderValue(msg.Headers, field.Name)
	case selector.JSONField:
		return extractJSONValue(msg.Payload, field.Path)
	default:
		return selector.Value{}, false
	}
}

// extractHeaderValue sniffs a raw header string into a number, then a
// boolean, falling back to the literal string.
func extractHeaderValue(headers map[string]string, name string) (selector.Value, bool) {
	raw, ok := headers[name]
	if !ok {
		return selector.Value{}, false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return selector.Value{Kind: selector.NumberValue, Num: f}, true
	}
	switch raw {
	case "true":
		return selector.Value{Kind: selector.BoolValue, Bool: true}, true
	case "false":
		return selector.Value{Kind: selector.BoolValue, Bool: false}, true
	}
	return selector.Value{Kind: selector.StringValue, Str: raw}, true
}

// extractJSONValue walks a dotted path into the message payload. A missing
// path, a nil payload, or a JSON type with no corresponding Value kind
// (object, array, null) is treated as extraction failure, not a type error.
func extractJSONValue(payload *gjson.Result, path []string) (selector.Value, bool) {
	if payload == nil || len(path) == 0 {
		return selector.Value{}, false
	}
	result := payload.Get(strings.Join(path, "."))
	if !result.Exists() {
		return selector.Value{}, false
	}
	switch result.Type {
	case gjson.Number:
		return selector.Value{Kind: selector.NumberValue, Num: result.Num}, true
	case gjson.True:
		return selector.Value{Kind: selector.BoolValue, Bool: true}, true
	case gjson.False:
		return selector.Value{Kind: selector.BoolValue, Bool: false}, true
	case gjson.String:
		return selector.Value{Kind: selector.StringValue, Str: result.Str}, true
	default:
		return selector.Value{}, false
	}
}

func compareValues(actual selector.Value, op selector.Op, want selector.Value) bool {
	if actual.Kind != want.Kind {
		return false
	}
	switch actual.Kind {
	case selector.NumberValue:
		return compareNumbers(actual.Num, want.Num, op)
	case selector.BoolValue:
		if op != selector.Eq {
			return false
		}
		return actual.Bool == want.Bool
	case selector.StringValue:
		return compareStrings(actual.Str, want.Str, op)
	default:
		return false
	}
}

func compareStrings(a, b string, op selector.Op) bool {
	switch op {
	case selector.Eq:
		return a == b
	case selector.Lt:
		return a < b
	case selector.Gt:
		return a > b
	case selector.Le:
		return a <= b
	case selector.Ge:
		return a >= b
	default:
		return false
	}
}

// compareNumbers applies epsilon-tolerant equality: NaN never compares
// true against anything (including itself), infinities compare by strict
// IEEE rules, and finite values whose absolute difference is at most
// epsilon are treated as equal for every operator.
func compareNumbers(a, b float64, op selector.Op) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	switch op {
	case selector.Eq:
		return approxEqual(a, b)
	case selector.Lt:
		return a < b && !approxEqual(a, b)
	case selector.Gt:
		return a > b && !approxEqual(a, b)
	case selector.Le:
		return a <= b || approxEqual(a, b)
	case selector.Ge:
		return a >= b || approxEqual(a, b)
	default:
		return false
	}
}

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	return math.Abs(a-b) <= epsilon
}
