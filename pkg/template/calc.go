package template

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/contractgen/backend/pkg/errors"
)

var (
	calcPattern = regexp.MustCompile(`\{\{calc:(.*?)\}\}`)
	calcFilter  = regexp.MustCompile(`[^0-9+\-*/.() \t]`)
)

// ApplyCalculations replaces {{calc:EXPR}} markers with the grouped result.
// EXPR is reduced to digits, operators, parentheses, dots and blanks before
// parsing. Markers that fail to evaluate are kept verbatim and logged.
func (e *Engine) ApplyCalculations(content string) string {
	return calcPattern.ReplaceAllStringFunc(content, func(match string) string {
		raw := match[len("{{calc:") : len(match)-2]
		value, err := Calculate(raw)
		if err != nil {
			e.logger.Warn("calculation failed, keeping marker",
				zap.String("expression", raw),
				zap.Error(err))
			return match
		}
		return e.formatFloat(value)
	})
}

// Calculate evaluates an arithmetic expression over + - * / and parentheses.
// Characters outside that alphabet are stripped first. Errors are *errors.CalculationError.
func Calculate(expression string) (float64, error) {
	safe := calcFilter.ReplaceAllString(expression, "")
	p := &calcParser{src: safe}
	p.skipBlanks()
	if p.done() {
		return 0, apperrors.NewCalculationError(expression, "empty expression")
	}

	value, err := p.parseExpr()
	if err != nil {
		return 0, apperrors.NewCalculationError(expression, err.Error())
	}
	p.skipBlanks()
	if !p.done() {
		return 0, apperrors.NewCalculationError(expression, "unexpected '"+string(p.src[p.pos])+"'")
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, apperrors.NewCalculationError(expression, "result is not finite")
	}
	return value, nil
}

type calcParser struct {
	src string
	pos int
}

type calcSyntaxError string

func (e calcSyntaxError) Error() string { return string(e) }

func (p *calcParser) done() bool { return p.pos >= len(p.src) }

func (p *calcParser) skipBlanks() {
	for !p.done() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *calcParser) peek() byte {
	p.skipBlanks()
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

// expr := term (('+' | '-') term)*
func (p *calcParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// term := factor (('*' | '/') factor)*
func (p *calcParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			left /= right
		}
	}
}

// factor := ('+' | '-') factor | '(' expr ')' | number
func (p *calcParser) parseFactor() (float64, error) {
	switch c := p.peek(); {
	case c == '+' || c == '-':
		p.pos++
		v, err := p.parseFactor()
		if c == '-' {
			v = -v
		}
		return v, err
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, calcSyntaxError("missing ')'")
		}
		p.pos++
		return v, nil
	case c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case c == 0:
		return 0, calcSyntaxError("unexpected end of expression")
	default:
		return 0, calcSyntaxError("unexpected '" + string(c) + "'")
	}
}

func (p *calcParser) parseNumber() (float64, error) {
	start := p.pos
	for !p.done() && (p.src[p.pos] == '.' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
		p.pos++
	}
	lit := p.src[start:p.pos]
	if strings.Count(lit, ".") > 1 || lit == "." {
		return 0, calcSyntaxError("malformed number '" + lit + "'")
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, calcSyntaxError("malformed number '" + lit + "'")
	}
	return v, nil
}
