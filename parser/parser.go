// Package parser parses records files into syntax trees.
//
// The grammar is line oriented:
//
//	option "precision" "4"
//	include "rates-2020.bean"
//
//	2020-01-01 commodity EUR
//	  convert: "*(EUR/USD:ECB)"
//
//	2020-01-01 price EUR 1.10 USD
//	  source: "ECB"
//
// Indented "key: value" lines attach metadata to the directive above them.
// Everything after a ';' is a comment.
package parser

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/robinvdvleuten/ratebook/ast"
	"github.com/robinvdvleuten/ratebook/date"
	"github.com/robinvdvleuten/ratebook/telemetry"
)

// Parser is a recursive descent parser over the lexer's tokens.
type Parser struct {
	source   []byte
	filename string
	tokens   []Token
	pos      int
	interner *Interner
}

// NewParser creates a parser for already scanned tokens.
func NewParser(source []byte, filename string, tokens []Token) *Parser {
	return &Parser{
		source:   source,
		filename: filename,
		tokens:   tokens,
		interner: NewInterner(64),
	}
}

// ParseBytes parses a records file. The first syntax error aborts parsing and
// is returned as a *ParseError.
func ParseBytes(ctx context.Context, filename string, data []byte) (*ast.File, error) {
	timer := telemetry.FromContext(ctx).Start("parser.parse " + filename)
	defer timer.End()

	lexTimer := timer.Child("parser.lex")
	tokens, err := NewLexer(data, filename).ScanAll()
	lexTimer.End()
	if err != nil {
		return nil, newErrorf(ast.Position{Filename: filename, Line: 1, Column: 1}, "%v", err)
	}

	return NewParser(data, filename, tokens).Parse()
}

// ParseString is ParseBytes for in-memory strings.
func ParseString(ctx context.Context, source string) (*ast.File, error) {
	return ParseBytes(ctx, "", []byte(source))
}

// Parse parses all tokens into a file.
func (p *Parser) Parse() (*ast.File, error) {
	file := &ast.File{Filename: p.filename}

	for !p.isAtEnd() {
		tok := p.peek()

		switch tok.Type {
		case DATE:
			directive, err := p.parseDated()
			if err != nil {
				return nil, err
			}
			file.Directives = append(file.Directives, directive)

		case OPTION:
			option, err := p.parseOption()
			if err != nil {
				return nil, err
			}
			file.Options = append(file.Options, option)

		case INCLUDE:
			include, err := p.parseInclude()
			if err != nil {
				return nil, err
			}
			file.Includes = append(file.Includes, include)

		case ILLEGAL:
			return nil, p.errorAtToken(tok, "unexpected character %q", tok.String(p.source))

		default:
			return nil, p.errorAtToken(tok, "unexpected %s %q", tok.Type, tok.String(p.source))
		}
	}

	return file, nil
}

// parseDated parses: DATE (commodity | price) ...
func (p *Parser) parseDated() (ast.Directive, error) {
	dateTok := p.advance()
	pos := p.position(dateTok)

	on, err := date.Parse(dateTok.String(p.source))
	if err != nil {
		return nil, p.errorAtToken(dateTok, "invalid date %q", dateTok.String(p.source))
	}

	var directive ast.Directive
	switch p.peek().Type {
	case COMMODITY:
		directive, err = p.parseCommodity(pos, on)
	case PRICE:
		directive, err = p.parsePrice(pos, on)
	default:
		tok := p.peek()
		return nil, p.errorAtToken(tok, "expected 'commodity' or 'price' but got %s %q", tok.Type, tok.String(p.source))
	}
	if err != nil {
		return nil, err
	}

	if err := p.expectEndOfLine(); err != nil {
		return nil, err
	}

	metadata, err := p.parseMetadata(dateTok)
	if err != nil {
		return nil, err
	}
	directive.AddMetadata(metadata...)

	return directive, nil
}

// parseCommodity parses: DATE commodity CURRENCY
func (p *Parser) parseCommodity(pos ast.Position, on date.Date) (*ast.Commodity, error) {
	p.advance() // commodity

	currency, err := p.parseIdent("currency")
	if err != nil {
		return nil, err
	}

	return &ast.Commodity{Pos: pos, Date: on, Currency: currency}, nil
}

// parsePrice parses: DATE price SYMBOL NUMBER CURRENCY
func (p *Parser) parsePrice(pos ast.Position, on date.Date) (*ast.Price, error) {
	p.advance() // price

	symbol, err := p.parseIdent("symbol")
	if err != nil {
		return nil, err
	}

	numTok := p.peek()
	if numTok.Type == EOF || numTok.Line != p.previous().Line {
		return nil, p.errorAtLineEnd("number")
	}
	if numTok.Type != NUMBER {
		return nil, p.errorAtToken(numTok, "expected number but got %s %q", numTok.Type, numTok.String(p.source))
	}
	p.advance()

	currency, err := p.parseIdent("currency")
	if err != nil {
		return nil, err
	}

	return &ast.Price{
		Pos:    pos,
		Date:   on,
		Symbol: symbol,
		Amount: &ast.Amount{Value: numTok.String(p.source), Currency: currency},
	}, nil
}

// parseOption parses: option STRING STRING
func (p *Parser) parseOption() (*ast.Option, error) {
	optTok := p.advance()

	name, err := p.parseString()
	if err != nil {
		return nil, err
	}
	value, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if err := p.expectEndOfLine(); err != nil {
		return nil, err
	}

	return &ast.Option{Pos: p.position(optTok), Name: name, Value: value}, nil
}

// parseInclude parses: include STRING
func (p *Parser) parseInclude() (*ast.Include, error) {
	incTok := p.advance()

	filename, err := p.parseString()
	if err != nil {
		return nil, err
	}
	if err := p.expectEndOfLine(); err != nil {
		return nil, err
	}

	return &ast.Include{Pos: p.position(incTok), Filename: filename}, nil
}

// parseMetadata parses indented "key: value" lines following a directive.
// The value is the rest of the line; quotes around it are removed.
func (p *Parser) parseMetadata(directive Token) ([]*ast.Metadata, error) {
	var metadata []*ast.Metadata

	for {
		keyTok := p.peek()

		isMetadataKey := (keyTok.Type == IDENT || keyTok.Type.IsKeyword()) &&
			keyTok.Column > directive.Column &&
			p.peekAhead(1).Type == COLON &&
			p.peekAhead(1).Line == keyTok.Line
		if !isMetadataKey {
			return metadata, nil
		}

		p.advance()
		colon := p.advance()

		value, err := p.parseRestOfLine(colon)
		if err != nil {
			return nil, err
		}

		metadata = append(metadata, &ast.Metadata{
			Key:   p.interner.InternBytes(keyTok.Bytes(p.source)),
			Value: value,
		})
	}
}

// parseRestOfLine returns the source text after prev up to the last token on
// the same line, so trailing comments are excluded.
func (p *Parser) parseRestOfLine(prev Token) (string, error) {
	lastEnd := prev.End
	for !p.isAtEnd() && p.peek().Line == prev.Line {
		tok := p.advance()
		if tok.Type == STRING && !isTerminated(tok, p.source) {
			return "", p.errorAtToken(tok, "unterminated string")
		}
		lastEnd = tok.End
	}

	value := strings.TrimSpace(string(p.source[prev.End:lastEnd]))
	return unquoteString(value), nil
}

func (p *Parser) parseIdent(what string) (string, error) {
	tok := p.peek()
	if tok.Type == EOF || tok.Line != p.previous().Line {
		return "", p.errorAtLineEnd(what)
	}
	if tok.Type != IDENT {
		return "", p.errorAtToken(tok, "expected %s but got %s %q", what, tok.Type, tok.String(p.source))
	}
	p.advance()
	return p.interner.InternBytes(tok.Bytes(p.source)), nil
}

func (p *Parser) parseString() (string, error) {
	tok := p.peek()
	if tok.Type == EOF || tok.Line != p.previous().Line {
		return "", p.errorAtLineEnd("string")
	}
	if tok.Type != STRING {
		return "", p.errorAtToken(tok, "expected string but got %s %q", tok.Type, tok.String(p.source))
	}
	p.advance()

	if !isTerminated(tok, p.source) {
		return "", p.errorAtToken(tok, "unterminated string")
	}
	return unquoteString(tok.String(p.source)), nil
}

// expectEndOfLine fails when another token follows on the current line.
func (p *Parser) expectEndOfLine() error {
	tok := p.peek()
	if tok.Type != EOF && tok.Line == p.previous().Line {
		return p.errorAtToken(tok, "unexpected %s %q at end of line", tok.Type, tok.String(p.source))
	}
	return nil
}

func isTerminated(tok Token, source []byte) bool {
	text := tok.Bytes(source)
	if len(text) < 2 || text[len(text)-1] != '"' {
		return false
	}
	// The closing quote must not be escaped.
	backslashes := 0
	for i := len(text) - 2; i > 0 && text[i] == '\\'; i-- {
		backslashes++
	}
	return backslashes%2 == 0
}

func unquoteString(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unquoted, err := strconv.Unquote(s); err == nil {
			return unquoted
		}
		return s[1 : len(s)-1]
	}
	return s
}

// Token navigation

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAhead(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) previous() Token {
	if p.pos == 0 {
		return Token{Type: ILLEGAL}
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == EOF
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

// Error helpers

func (p *Parser) position(tok Token) ast.Position {
	return ast.Position{
		Filename: p.filename,
		Offset:   tok.Start,
		Line:     tok.Line,
		Column:   tok.Column,
	}
}

func (p *Parser) errorAtToken(tok Token, format string, args ...any) error {
	return newErrorf(p.position(tok), format, args...)
}

// errorAtLineEnd reports a token missing at the end of the current line,
// positioned just past the line's last token.
func (p *Parser) errorAtLineEnd(what string) error {
	prev := p.previous()
	pos := p.position(prev)
	pos.Offset = prev.End
	pos.Column += utf8.RuneCount(prev.Bytes(p.source))
	return newErrorf(pos, "expected %s at end of line", what)
}
