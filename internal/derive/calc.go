package derive

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"dropkit/internal/rules"
	"dropkit/internal/schema"
	"dropkit/internal/value"
)

// FormulaError reports why one calculated rule could not be evaluated. The
// rule is skipped; other rules are unaffected.
type FormulaError struct {
	TargetField string
	Reason      string
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("calculated field %s: %s", e.TargetField, e.Reason)
}

// ApplyCalculated evaluates the rule's formula against the record and writes
// the result to the target field with the rule's fixed decimal count. Field
// tokens that are blank or NA substitute as 0; a non-numeric present value
// aborts this rule with a FormulaError.
func ApplyCalculated(rec schema.Record, rule rules.Calculated) error {
	result, err := evalFormula(rule.Formula, rec)
	if err != nil {
		return &FormulaError{TargetField: rule.TargetField, Reason: err.Error()}
	}
	rec[rule.TargetField] = strconv.FormatFloat(result, 'f', rule.Decimals, 64)
	return nil
}

// ApplyAllCalculated runs every calculated rule in document order. Failures
// are collected, not fatal; the returned slice holds one error per skipped
// rule.
func ApplyAllCalculated(rec schema.Record, set *rules.Set) []error {
	if set == nil {
		return nil
	}
	var errs []error
	for _, rule := range set.Calculateds() {
		if err := ApplyCalculated(rec, rule); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// --- fenced arithmetic evaluator ---
//
// grammar:  expr   = term { ("+"|"-") term }
//           term   = factor { ("*"|"/") factor }
//           factor = number | ident | "(" expr ")" | "-" factor

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func evalFormula(formula string, rec schema.Record) (float64, error) {
	tokens, err := tokenize(formula, rec)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty formula")
	}
	p := &parser{tokens: tokens}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("unexpected %q", p.tokens[p.pos].text)
	}
	return result, nil
}

func tokenize(formula string, rec schema.Record) ([]token, error) {
	var tokens []token
	runes := []rune(formula)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case r == '+' || r == '-' || r == '*' || r == '/':
			tokens = append(tokens, token{kind: tokOp, text: string(r)})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: n})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			name := string(runes[start:i])
			n, err := fieldNumber(rec, name)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokNumber, text: name, num: n})
		default:
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}
	return tokens, nil
}

// fieldNumber substitutes a field token: missing or NA reads as 0, anything
// non-numeric is a formula error.
func fieldNumber(rec schema.Record, name string) (float64, error) {
	raw, ok := rec[name]
	if !ok || value.IsNA(raw) {
		return 0, nil
	}
	n, numOK := value.ParseNumber(raw)
	if !numOK {
		return 0, fmt.Errorf("field %s has non-numeric value %q", name, strings.TrimSpace(raw))
	}
	return n, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if tok.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if tok.text == "*" {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

func (p *parser) parseFactor() (float64, error) {
	tok, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("formula ends unexpectedly")
	}
	switch {
	case tok.kind == tokNumber:
		p.pos++
		return tok.num, nil
	case tok.kind == tokOp && tok.text == "-":
		p.pos++
		n, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -n, nil
	case tok.kind == tokLParen:
		p.pos++
		n, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return n, nil
	}
	return 0, fmt.Errorf("unexpected %q", tok.text)
}
