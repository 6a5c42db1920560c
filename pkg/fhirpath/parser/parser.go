// Package parser implements a hand-written recursive-descent,
// operator-precedence parser for FHIRPath expressions.
package parser

import (
	"fmt"

	"github.com/fhirlang/gofhir/pkg/fhirpath/ast"
	"github.com/fhirlang/gofhir/pkg/fhirpath/lexer"
)

var calendarUnits = map[string]bool{
	"year": true, "years": true,
	"month": true, "months": true,
	"week": true, "weeks": true,
	"day": true, "days": true,
	"hour": true, "hours": true,
	"minute": true, "minutes": true,
	"second": true, "seconds": true,
	"millisecond": true, "milliseconds": true,
}

// Parser turns FHIRPath source into an ast.Expr, collecting diagnostics
// rather than panicking on malformed input.
type Parser struct {
	src  string
	lex  *lexer.Lexer
	tok  lexer.Token
	next lexer.Token
	errs []*Diagnostic
}

// Parse parses the entirety of src as a single FHIRPath expression.
// Returns the parsed tree and any diagnostics; the tree is nil if parsing
// failed outright.
func Parse(src string) (ast.Expr, []*Diagnostic) {
	p := &Parser{src: src, lex: lexer.New(src)}
	p.advance()
	p.advance()
	if p.tok.Kind == lexer.EOF {
		p.fail("empty expression", nil)
		return nil, p.errs
	}
	expr := p.parseExpression()
	if p.tok.Kind != lexer.EOF {
		p.fail(fmt.Sprintf("unexpected trailing input %q", p.tok.Text), nil)
	}
	if len(p.errs) > 0 {
		return expr, p.errs
	}
	return expr, nil
}

func (p *Parser) advance() {
	p.tok = p.next
	tok, err := p.lex.Next()
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			p.errs = append(p.errs, &Diagnostic{Message: le.Message, Line: le.Line, Col: le.Col})
		} else {
			p.errs = append(p.errs, &Diagnostic{Message: err.Error()})
		}
		tok = lexer.Token{Kind: lexer.EOF}
	}
	p.next = tok
}

func (p *Parser) fail(msg string, expected []string) {
	p.errs = append(p.errs, &Diagnostic{
		Message:  msg,
		Line:     p.tok.Line,
		Col:      p.tok.Col,
		Start:    p.tok.Start,
		End:      p.tok.End,
		Expected: expected,
	})
}

func (p *Parser) span(start lexer.Token) ast.Span {
	return ast.Span{Start: start.Start, End: p.tok.Start, Line: start.Line, Col: start.Col}
}

func (p *Parser) isOp(text string) bool  { return p.tok.Kind == lexer.Op && p.tok.Text == text }
func (p *Parser) isKeyword(text string) bool {
	return p.tok.Kind == lexer.Ident && p.tok.Text == text
}

// parseExpression parses at the lowest precedence level (implies).
func (p *Parser) parseExpression() ast.Expr {
	return p.parseImplies()
}

func (p *Parser) parseImplies() ast.Expr {
	start := p.tok
	left := p.parseOrXor()
	for p.isKeyword("implies") {
		op := p.tok.Text
		p.advance()
		right := p.parseOrXor()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseOrXor() ast.Expr {
	start := p.tok
	left := p.parseAnd()
	for p.isKeyword("or") || p.isKeyword("xor") {
		op := p.tok.Text
		p.advance()
		right := p.parseAnd()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	start := p.tok
	left := p.parseMembership()
	for p.isKeyword("and") {
		op := p.tok.Text
		p.advance()
		right := p.parseMembership()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseMembership() ast.Expr {
	start := p.tok
	left := p.parseEquality()
	for p.isKeyword("in") || p.isKeyword("contains") {
		op := p.tok.Text
		p.advance()
		right := p.parseEquality()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	start := p.tok
	left := p.parseInequality()
	for p.isOp("=") || p.isOp("~") || p.isOp("!=") || p.isOp("!~") {
		op := p.tok.Text
		p.advance()
		right := p.parseInequality()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseInequality() ast.Expr {
	start := p.tok
	left := p.parseTypeExpr()
	for p.isOp("<") || p.isOp("<=") || p.isOp(">") || p.isOp(">=") {
		op := p.tok.Text
		p.advance()
		right := p.parseTypeExpr()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseTypeExpr() ast.Expr {
	start := p.tok
	left := p.parseUnion()
	for p.isKeyword("is") || p.isKeyword("as") {
		op := p.tok.Text
		p.advance()
		typeName := p.parseTypeSpecifier()
		left = ast.NewTypeExpr(p.span(start), op, left, typeName)
	}
	return left
}

// parseTypeSpecifier parses a dotted type name, e.g. `Patient` or
// `FHIR.Patient`, without treating it as a general expression.
func (p *Parser) parseTypeSpecifier() string {
	if p.tok.Kind != lexer.Ident {
		p.fail("expected type name", []string{"identifier"})
		return ""
	}
	name := p.tok.Text
	p.advance()
	for p.isOp(".") {
		p.advance()
		if p.tok.Kind != lexer.Ident {
			p.fail("expected identifier after '.'", []string{"identifier"})
			break
		}
		name += "." + p.tok.Text
		p.advance()
	}
	return name
}

func (p *Parser) parseUnion() ast.Expr {
	start := p.tok
	left := p.parseAdditive()
	for p.isOp("|") {
		p.advance()
		right := p.parseAdditive()
		left = ast.NewBinary(p.span(start), "|", left, right)
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	start := p.tok
	left := p.parseMultiplicative()
	for p.isOp("+") || p.isOp("-") || p.isOp("&") {
		op := p.tok.Text
		p.advance()
		right := p.parseMultiplicative()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	start := p.tok
	left := p.parseUnary()
	for p.isOp("*") || p.isOp("/") || p.isKeyword("div") || p.isKeyword("mod") {
		op := p.tok.Text
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.isOp("+") || p.isOp("-") {
		start := p.tok
		op := p.tok.Text
		p.advance()
		operand := p.parseUnary()
		return ast.NewPolarity(p.span(start), op, operand)
	}
	return p.parsePostfix()
}

// parsePostfix handles the invocation chain: `.member`, `[index]`.
func (p *Parser) parsePostfix() ast.Expr {
	start := p.tok
	expr := p.parseTerm()
	for {
		switch {
		case p.isOp("."):
			p.advance()
			member := p.parseInvocationMember()
			expr = ast.NewInvocation(p.span(start), expr, member)
		case p.isOp("["):
			p.advance()
			index := p.parseExpression()
			if !p.isOp("]") {
				p.fail("expected ']'", []string{"]"})
			} else {
				p.advance()
			}
			expr = ast.NewIndexer(p.span(start), expr, index)
		default:
			return expr
		}
	}
}

// parseInvocationMember parses the portion after a `.`: an identifier,
// function call, or special variable.
func (p *Parser) parseInvocationMember() ast.Expr {
	start := p.tok
	switch {
	case p.tok.Is(lexer.Ident, "$this"):
		p.advance()
		return ast.NewThisInvocation(p.span(start))
	case p.tok.Is(lexer.Ident, "$index"):
		p.advance()
		return ast.NewIndexInvocation(p.span(start))
	case p.tok.Is(lexer.Ident, "$total"):
		p.advance()
		return ast.NewTotalInvocation(p.span(start))
	case p.tok.Kind == lexer.Ident || p.tok.Kind == lexer.DelimitedIdent:
		name := p.tok.Text
		p.advance()
		if p.isOp("(") {
			return p.parseFunctionCall(start, name)
		}
		return ast.NewIdentifier(p.span(start), name)
	default:
		p.fail("expected identifier or function after '.'", []string{"identifier"})
		p.advance()
		return ast.NewIdentifier(p.span(start), "")
	}
}

func (p *Parser) parseFunctionCall(start lexer.Token, name string) ast.Expr {
	p.advance() // '('
	var args []ast.Expr
	if !p.isOp(")") {
		args = append(args, p.parseExpression())
		for p.isOp(",") {
			p.advance()
			args = append(args, p.parseExpression())
		}
	}
	if !p.isOp(")") {
		p.fail("expected ')'", []string{")"})
	} else {
		p.advance()
	}
	return ast.NewFunctionCall(p.span(start), name, args)
}

// parseTerm parses literals, identifiers, function calls, special
// variables, external constants, and parenthesized expressions.
func (p *Parser) parseTerm() ast.Expr {
	start := p.tok
	switch {
	case p.isOp("{"):
		p.advance()
		if !p.isOp("}") {
			p.fail("expected '}'", []string{"}"})
		} else {
			p.advance()
		}
		return ast.NewNullLiteral(p.span(start))
	case p.isOp("("):
		p.advance()
		expr := p.parseExpression()
		if !p.isOp(")") {
			p.fail("expected ')'", []string{")"})
		} else {
			p.advance()
		}
		return expr
	case p.tok.Kind == lexer.Number:
		text := p.tok.Text
		p.advance()
		return p.maybeQuantity(start, ast.NewNumberLiteral(p.span(start), text), text)
	case p.tok.Kind == lexer.String:
		text := p.tok.Text
		p.advance()
		return ast.NewStringLiteral(p.span(start), text)
	case p.tok.Kind == lexer.Date:
		text := p.tok.Text
		p.advance()
		return ast.NewDateLiteral(p.span(start), text)
	case p.tok.Kind == lexer.DateTime:
		text := p.tok.Text
		p.advance()
		return ast.NewDateTimeLiteral(p.span(start), text)
	case p.tok.Kind == lexer.Time:
		text := p.tok.Text
		p.advance()
		return ast.NewTimeLiteral(p.span(start), text)
	case p.tok.Is(lexer.Ident, "true"):
		p.advance()
		return ast.NewBooleanLiteral(p.span(start), true)
	case p.tok.Is(lexer.Ident, "false"):
		p.advance()
		return ast.NewBooleanLiteral(p.span(start), false)
	case p.tok.Is(lexer.Ident, "$this"):
		p.advance()
		return ast.NewThisInvocation(p.span(start))
	case p.tok.Is(lexer.Ident, "$index"):
		p.advance()
		return ast.NewIndexInvocation(p.span(start))
	case p.tok.Is(lexer.Ident, "$total"):
		p.advance()
		return ast.NewTotalInvocation(p.span(start))
	case p.tok.Kind == lexer.Ident && len(p.tok.Text) > 0 && p.tok.Text[0] == '%':
		name := p.tok.Text[1:]
		p.advance()
		return ast.NewExternalConstant(p.span(start), unquoteIfNeeded(name))
	case p.tok.Kind == lexer.Ident || p.tok.Kind == lexer.DelimitedIdent:
		name := p.tok.Text
		p.advance()
		if p.isOp("(") {
			return p.parseFunctionCall(start, name)
		}
		return ast.NewIdentifier(p.span(start), name)
	default:
		p.fail(fmt.Sprintf("unexpected token %q", p.tok.Text), nil)
		p.advance()
		return ast.NewNullLiteral(p.span(start))
	}
}

// maybeQuantity looks ahead for a UCUM unit string or calendar-unit keyword
// immediately following a number literal and folds them into a quantity
// literal if present.
func (p *Parser) maybeQuantity(start lexer.Token, num ast.Expr, numText string) ast.Expr {
	switch {
	case p.tok.Kind == lexer.String:
		unit := p.tok.Text
		p.advance()
		return ast.NewQuantityLiteral(p.span(start), fmt.Sprintf("%s '%s'", numText, unit))
	case p.tok.Kind == lexer.Ident && calendarUnits[p.tok.Text]:
		unit := p.tok.Text
		p.advance()
		return ast.NewQuantityLiteral(p.span(start), numText+" "+unit)
	default:
		return num
	}
}

func unquoteIfNeeded(s string) string {
	return s
}
