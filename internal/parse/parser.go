// Package parse turns selector source text into a selector.Selector,
// following the grammar and error taxonomy of the moqtail selector
// language. Parsing is total: every input yields either a *selector.Selector
// or a single *Error; the parser never panics.
package parse

import (
	"errors"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/seanwevans/moqtail-go/internal/lex"
	"github.com/seanwevans/moqtail-go/internal/selector"
)

var (
	errNotQuoted         = errors.New("not a quoted string")
	errDanglingEscape    = errors.New("dangling escape at end of string")
	errUnsupportedEscape = errors.New("unsupported escape sequence")
	errControlChar       = errors.New("unescaped control character in string")
)

type parser struct {
	tokens []lex.Token
	pos    int
}

// Parse compiles selector source text into a Selector.
func Parse(input string) (*selector.Selector, error) {
	lexer := lex.New(input)
	var tokens []lex.Token
	for {
		tok := lexer.Next()
		tokens = append(tokens, tok)
		if tok.Kind == lex.EOF {
			break
		}
	}

	p := &parser{tokens: tokens}
	return p.parseSelector()
}

func (p *parser) peek() lex.Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() lex.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) parseSelector() (*selector.Selector, error) {
	first := p.peek()
	if first.Kind == lex.EOF {
		return nil, missingSelector()
	}
	if first.Kind != lex.Slash && first.Kind != lex.SlashSlash {
		return nil, missingAxis(first.Pos)
	}

	var steps []selector.Step
	for p.peek().Kind == lex.Slash || p.peek().Kind == lex.SlashSlash {
		step, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil, missingSelector()
	}

	var stages []selector.Stage
	for p.peek().Kind == lex.Arrow {
		p.advance()
		stage, err := p.parseStage()
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	if p.peek().Kind != lex.EOF {
		return nil, grammarError(p.peek().Pos, "end of input")
	}

	return &selector.Selector{Steps: steps, Stages: stages}, nil
}

func (p *parser) parseStep() (selector.Step, error) {
	axisTok := p.advance()
	axis := selector.Child
	if axisTok.Kind == lex.SlashSlash {
		axis = selector.Descendant
	}

	segTok := p.peek()
	var seg selector.Segment
	switch segTok.Kind {
	case lex.Ident:
		p.advance()
		if segTok.Text == "msg" {
			seg = selector.Segment{Kind: selector.Message}
		} else {
			seg = selector.Segment{Kind: selector.Literal, Text: segTok.Text}
		}
	case lex.Plus:
		p.advance()
		seg = selector.Segment{Kind: selector.Plus}
	case lex.Hash:
		p.advance()
		seg = selector.Segment{Kind: selector.Hash}
	case lex.EOF, lex.Slash, lex.SlashSlash, lex.Arrow:
		return selector.Step{}, missingSegment(segTok.Pos)
	case lex.Illegal:
		if isWildcardLookalike(segTok.Text) {
			return selector.Step{}, unknownWildcard(segTok.Pos, segTok.Text)
		}
		return selector.Step{}, invalidSegment(segTok.Pos, segTok.Text)
	default:
		return selector.Step{}, invalidSegment(segTok.Pos, segTok.Text)
	}

	var preds []selector.Predicate
	for p.peek().Kind == lex.LBracket {
		pred, err := p.parsePredicate()
		if err != nil {
			return selector.Step{}, err
		}
		preds = append(preds, pred)
	}

	return selector.Step{Axis: axis, Segment: seg, Predicates: preds}, nil
}

func isWildcardLookalike(text string) bool {
	return text == "*" || text == "%" || text == "?"
}

func (p *parser) parsePredicate() (selector.Predicate, error) {
	p.advance() // consume '['

	field, err := p.parseField()
	if err != nil {
		return selector.Predicate{}, err
	}
	op, err := p.parseOp()
	if err != nil {
		return selector.Predicate{}, err
	}
	val, err := p.parseValue()
	if err != nil {
		return selector.Predicate{}, err
	}
	if p.peek().Kind != lex.RBracket {
		return selector.Predicate{}, grammarError(p.peek().Pos, "]")
	}
	p.advance()

	return selector.Predicate{Field: field, Op: op, Value: val}, nil
}

func (p *parser) parseField() (selector.Field, error) {
	tok := p.peek()
	switch tok.Kind {
	case lex.JSONPrefix:
		p.advance()
		var path []string
		for p.peek().Kind == lex.Dot {
			p.advance()
			idTok := p.peek()
			if idTok.Kind != lex.Ident {
				return selector.Field{}, missingField(tok.Pos)
			}
			p.advance()
			path = append(path, idTok.Text)
		}
		if len(path) == 0 {
			return selector.Field{}, missingField(tok.Pos)
		}
		return selector.Field{Kind: selector.JSONField, Path: path}, nil

	case lex.Ident:
		p.advance()
		return selector.Field{Kind: selector.HeaderField, Name: tok.Text}, nil

	default:
		return selector.Field{}, missingField(tok.Pos)
	}
}

func (p *parser) parseOp() (selector.Op, error) {
	tok := p.peek()
	switch tok.Kind {
	case lex.Eq:
		p.advance()
		return selector.Eq, nil
	case lex.LE:
		p.advance()
		return selector.Le, nil
	case lex.GE:
		p.advance()
		return selector.Ge, nil
	case lex.LT:
		p.advance()
		return selector.Lt, nil
	case lex.GT:
		p.advance()
		return selector.Gt, nil
	case lex.EOF, lex.RBracket:
		return 0, missingOperator(tok.Pos)
	default:
		return 0, unknownOperator(tok.Pos, tok.Text)
	}
}

func (p *parser) parseValue() (selector.Value, error) {
	tok := p.peek()
	switch tok.Kind {
	case lex.Number:
		p.advance()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			cause := oops.Code("NUMBER_PARSE_ERROR").With("text", tok.Text).Wrap(err)
			return selector.Value{}, numberParseError(tok.Pos, tok.Text, cause)
		}
		return selector.Value{Kind: selector.NumberValue, Num: f}, nil

	case lex.String:
		p.advance()
		s, err := unquote(tok.Text)
		if err != nil {
			return selector.Value{}, invalidValue(tok.Pos, tok.Text)
		}
		return selector.Value{Kind: selector.StringValue, Str: s}, nil

	case lex.Ident:
		switch tok.Text {
		case "true":
			p.advance()
			return selector.Value{Kind: selector.BoolValue, Bool: true}, nil
		case "false":
			p.advance()
			return selector.Value{Kind: selector.BoolValue, Bool: false}, nil
		default:
			return selector.Value{}, invalidValue(tok.Pos, tok.Text)
		}

	case lex.EOF, lex.RBracket:
		return selector.Value{}, missingValue(tok.Pos)

	default:
		return selector.Value{}, invalidValue(tok.Pos, tok.Text)
	}
}

func (p *parser) parseStage() (selector.Stage, error) {
	nameTok := p.peek()
	if nameTok.Kind == lex.EOF {
		return selector.Stage{}, missingFunctionName(nameTok.Pos)
	}
	if nameTok.Kind != lex.Ident {
		return selector.Stage{}, missingFunction(nameTok.Pos)
	}
	p.advance()

	if p.peek().Kind != lex.LParen {
		return selector.Stage{}, grammarError(p.peek().Pos, "(")
	}
	p.advance()

	switch nameTok.Text {
	case "window":
		return p.parseWindowStage()
	case "sum":
		return p.parseFieldStage(selector.SumStage, sumRequiresField)
	case "avg":
		return p.parseFieldStage(selector.AvgStage, avgRequiresField)
	case "count":
		if p.peek().Kind != lex.RParen {
			return selector.Stage{}, grammarError(p.peek().Pos, ")")
		}
		p.advance()
		return selector.Stage{Kind: selector.CountStage}, nil
	default:
		return selector.Stage{}, unknownFunction(nameTok.Pos, nameTok.Text)
	}
}

func (p *parser) parseWindowStage() (selector.Stage, error) {
	numTok := p.peek()
	if numTok.Kind != lex.Number {
		return selector.Stage{}, windowRequiresDuration(numTok.Pos)
	}
	p.advance()

	sTok := p.peek()
	if sTok.Kind != lex.Ident || sTok.Text != "s" {
		return selector.Stage{}, windowRequiresDuration(sTok.Pos)
	}
	p.advance()

	f, err := strconv.ParseFloat(numTok.Text, 64)
	if err != nil {
		cause := oops.Code("NUMBER_PARSE_ERROR").With("text", numTok.Text).Wrap(err)
		return selector.Stage{}, numberParseError(numTok.Pos, numTok.Text, cause)
	}
	n := int(f)
	if n < 1 || float64(n) != f {
		return selector.Stage{}, windowRequiresDuration(numTok.Pos)
	}

	if p.peek().Kind != lex.RParen {
		return selector.Stage{}, grammarError(p.peek().Pos, ")")
	}
	p.advance()

	return selector.Stage{Kind: selector.WindowStage, N: n}, nil
}

func (p *parser) parseFieldStage(kind selector.StageKind, onMissing func(int) error) (selector.Stage, error) {
	if p.peek().Kind == lex.RParen {
		return selector.Stage{}, onMissing(p.peek().Pos)
	}
	field, err := p.parseField()
	if err != nil {
		return selector.Stage{}, onMissing(p.peek().Pos)
	}
	if p.peek().Kind != lex.RParen {
		return selector.Stage{}, grammarError(p.peek().Pos, ")")
	}
	p.advance()
	return selector.Stage{Kind: kind, Field: field}, nil
}

// unquote converts a raw `"..."` token (including its surrounding quotes)
// into its string value, interpreting \" and \\ escapes and rejecting
// unescaped control characters.
func unquote(raw string) (string, error) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", errNotQuoted
	}
	body := raw[1 : len(raw)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' {
			if i+1 >= len(body) {
				return "", errDanglingEscape
			}
			next := body[i+1]
			switch next {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				return "", errUnsupportedEscape
			}
			i++
			continue
		}
		if c < 0x20 {
			return "", errControlChar
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}
