package rule

import "fmt"

// Parse compiles a raw rule. An empty or blank rule yields the identity.
// Any character outside the grammar anywhere in raw invalidates the rule.
func Parse(raw string) (Rule, error) {
	p := &parser{scanner: scanner{source: raw}}
	steps, err := p.parseRule()
	if err != nil {
		return Rule{}, err
	}
	return Rule{steps: steps}, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for rules known to be valid.
func MustParse(raw string) Rule {
	r, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return r
}

type parser struct {
	scanner
}

// parseRule parses: ws { term ws } EOF
func (p *parser) parseRule() ([]Step, error) {
	var steps []Step

	p.skipWhitespace()
	for p.peek() != eof {
		step, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
		p.skipWhitespace()
	}

	return steps, nil
}

// parseTerm parses: op ws "(" instrument ")"
func (p *parser) parseTerm() (Step, error) {
	var step Step

	switch r := p.peek(); r {
	case '*':
		step.Op = Multiply
	case '/':
		step.Op = Divide
	default:
		return Step{}, p.errorf("expected '*' or '/', found %q", r)
	}
	p.advance()

	p.skipWhitespace()
	if err := p.expect('('); err != nil {
		return Step{}, err
	}

	if err := p.parseInstrument(&step); err != nil {
		return Step{}, err
	}

	if err := p.expect(')'); err != nil {
		return Step{}, err
	}

	return step, nil
}

// parseInstrument parses: part "/" part [ ":" [ part ] ]
// Whitespace inside and around the parts is dropped.
func (p *parser) parseInstrument(step *Step) error {
	start := p.pos
	step.Symbol = p.scanPart()
	if step.Symbol == "" {
		return p.errorAt(start, "missing symbol")
	}

	if err := p.expect('/'); err != nil {
		return err
	}

	start = p.pos
	step.Currency = p.scanPart()
	if step.Currency == "" {
		return p.errorAt(start, "missing currency")
	}

	if p.peek() == ':' {
		p.advance()
		step.Provider = p.scanPart()
	}

	return nil
}

func (p *parser) expect(want rune) error {
	if got := p.peek(); got != want {
		if got == eof {
			return p.errorf("expected %q, found end of rule", want)
		}
		return p.errorf("expected %q, found %q", want, got)
	}
	p.advance()
	return nil
}

func (p *parser) errorf(format string, args ...any) *SyntaxError {
	return p.errorAt(p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) errorAt(offset int, message string) *SyntaxError {
	return &SyntaxError{Rule: p.source, Offset: offset, Message: message}
}
