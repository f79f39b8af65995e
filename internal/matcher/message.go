// Package matcher evaluates a compiled selector against messages: path
// matching over the topic (an explicit-stack backtracking automaton) and
// predicate evaluation over headers/JSON payload.
package matcher

import "github.com/tidwall/gjson"

// Message is one unit of evaluation: a topic string, a flat header map, and
// an optional pre-parsed JSON payload.
type Message struct {
	Topic   string
	Headers map[string]string
	Payload *gjson.Result
}
