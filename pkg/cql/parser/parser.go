// Package parser implements a hand-written recursive-descent parser for
// CQL, producing a pkg/cql/ast tree consumed by pkg/cql/builder.
package parser

import (
	"fmt"
	"strings"

	"github.com/fhirlang/gofhir/pkg/cql/ast"
	"github.com/fhirlang/gofhir/pkg/cql/lexer"
)

// Parser turns CQL source into an *ast.Library plus any diagnostics
// encountered. Parsing never panics; syntax errors are recorded and parsing
// resynchronizes at the next top-level keyword where possible.
type Parser struct {
	src  string
	lex  *lexer.Lexer
	tok  lexer.Token
	next lexer.Token
	errs []*Diagnostic

	currentContext string
}

// Parse parses a full CQL library.
func Parse(src string) (*ast.Library, []*Diagnostic) {
	p := &Parser{src: src, lex: lexer.New(src), currentContext: "Patient"}
	p.advance()
	p.advance()
	lib := p.parseLibrary()
	return lib, p.errs
}

// ParseExpression parses a single standalone CQL expression (used by the
// REPL and ad hoc evaluation entry points).
func ParseExpression(src string) (ast.Expr, []*Diagnostic) {
	p := &Parser{src: src, lex: lexer.New(src), currentContext: "Patient"}
	p.advance()
	p.advance()
	if p.tok.Kind == lexer.EOF {
		p.fail("empty expression", nil)
		return nil, p.errs
	}
	expr := p.parseExpression()
	if p.tok.Kind != lexer.EOF {
		p.fail(fmt.Sprintf("unexpected trailing token %q", p.tok.Text), nil)
	}
	return expr, p.errs
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
		Message: msg, Line: p.tok.Line, Col: p.tok.Col,
		Start: p.tok.Start, End: p.tok.End, Expected: expected,
	})
}

func (p *Parser) span(start lexer.Token) ast.Span {
	return ast.Span{Start: start.Start, End: p.tok.Start, Line: start.Line, Col: start.Col}
}

func (p *Parser) isOp(text string) bool   { return p.tok.Kind == lexer.Op && p.tok.Text == text }
func (p *Parser) isKeyword(w string) bool { return p.tok.Kind == lexer.Keyword && p.tok.Text == w }
func (p *Parser) isIdent() bool           { return p.tok.Kind == lexer.Ident }

func (p *Parser) expectOp(text string) bool {
	if !p.isOp(text) {
		p.fail(fmt.Sprintf("expected %q, found %q", text, p.tok.Text), []string{text})
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expectKeyword(w string) bool {
	if !p.isKeyword(w) {
		p.fail(fmt.Sprintf("expected %q, found %q", w, p.tok.Text), []string{w})
		return false
	}
	p.advance()
	return true
}

// identText returns the current token's text if it is an identifier or a
// delimited identifier; keyword tokens are not accepted.
func (p *Parser) identText() (string, bool) {
	switch p.tok.Kind {
	case lexer.Ident, lexer.DelimitedIdent:
		return p.tok.Text, true
	}
	return "", false
}

func (p *Parser) quotedText() (string, bool) {
	if p.tok.Kind == lexer.QuotedIdent {
		return p.tok.Text, true
	}
	return "", false
}

// ---- library header ----

func (p *Parser) parseLibrary() *ast.Library {
	lib := &ast.Library{}

	if p.isKeyword("library") {
		p.advance()
		name, _ := p.identText()
		p.advance()
		id := &ast.LibraryIdentifier{Name: name}
		if p.isKeyword("version") {
			p.advance()
			if s, ok := p.tokenStringLiteral(); ok {
				id.Version = s
				p.advance()
			}
		}
		lib.Identifier = id
	}

	for p.tok.Kind != lexer.EOF {
		switch {
		case p.isKeyword("using"):
			lib.Usings = append(lib.Usings, p.parseUsing())
		case p.isKeyword("include"):
			lib.Includes = append(lib.Includes, p.parseInclude())
		case p.isKeyword("parameter"):
			lib.Parameters = append(lib.Parameters, p.parseParameter())
		case p.isKeyword("codesystem"):
			lib.CodeSystems = append(lib.CodeSystems, p.parseCodeSystem(ast.Public))
		case p.isKeyword("valueset"):
			lib.ValueSets = append(lib.ValueSets, p.parseValueSet(ast.Public))
		case p.isKeyword("code"):
			lib.Codes = append(lib.Codes, p.parseCode(ast.Public))
		case p.isKeyword("context"):
			p.advance()
			if name, ok := p.identText(); ok {
				p.currentContext = name
				p.advance()
			}
		case p.isKeyword("public") || p.isKeyword("private"):
			access := ast.Public
			if p.tok.Text == "private" {
				access = ast.Private
			}
			p.advance()
			switch {
			case p.isKeyword("codesystem"):
				lib.CodeSystems = append(lib.CodeSystems, p.parseCodeSystem(access))
			case p.isKeyword("valueset"):
				lib.ValueSets = append(lib.ValueSets, p.parseValueSet(access))
			case p.isKeyword("code"):
				lib.Codes = append(lib.Codes, p.parseCode(access))
			case p.isKeyword("define"):
				lib.Statements = append(lib.Statements, p.parseDefineOrFunction(access))
			default:
				p.fail("expected a definition after access modifier", nil)
				p.advance()
			}
		case p.isKeyword("define"):
			lib.Statements = append(lib.Statements, p.parseDefineOrFunction(ast.Public))
		default:
			p.fail(fmt.Sprintf("unexpected token %q at library top level", p.tok.Text), nil)
			p.advance()
		}
	}
	return lib
}

func (p *Parser) tokenStringLiteral() (string, bool) {
	if p.tok.Kind == lexer.String {
		return p.tok.Text, true
	}
	return "", false
}

func (p *Parser) parseUsing() *ast.UsingDef {
	p.advance()
	model, _ := p.identText()
	p.advance()
	u := &ast.UsingDef{Model: model}
	if p.isKeyword("version") {
		p.advance()
		if s, ok := p.tokenStringLiteral(); ok {
			u.Version = s
			p.advance()
		}
	}
	return u
}

func (p *Parser) parseInclude() *ast.IncludeDef {
	p.advance()
	path, _ := p.identText()
	p.advance()
	inc := &ast.IncludeDef{Path: path, Alias: path}
	if p.isKeyword("version") {
		p.advance()
		if s, ok := p.tokenStringLiteral(); ok {
			inc.Version = s
			p.advance()
		}
	}
	if p.isKeyword("called") {
		p.advance()
		if name, ok := p.identText(); ok {
			inc.Alias = name
			p.advance()
		}
	}
	return inc
}

func (p *Parser) parseParameter() *ast.ParameterDef {
	p.advance()
	name, _ := p.identText()
	p.advance()
	pd := &ast.ParameterDef{Name: name}
	if p.isIdent() || p.isKeyword("List") || p.isKeyword("Interval") {
		pd.TypeSpecifier = p.parseTypeSpecifier()
	}
	if p.isKeyword("default") {
		p.advance()
		pd.Default = p.parseExpression()
	}
	return pd
}

func (p *Parser) parseCodeSystem(access ast.AccessModifier) *ast.CodeSystemDef {
	p.advance()
	name, _ := p.quotedText()
	p.advance()
	p.expectOp(":")
	url, _ := p.tokenStringLiteral()
	p.advance()
	cs := &ast.CodeSystemDef{Name: name, URL: url, Access: access}
	if p.isKeyword("version") {
		p.advance()
		if s, ok := p.tokenStringLiteral(); ok {
			cs.Version = s
			p.advance()
		}
	}
	return cs
}

func (p *Parser) parseValueSet(access ast.AccessModifier) *ast.ValueSetDef {
	p.advance()
	name, _ := p.quotedText()
	p.advance()
	p.expectOp(":")
	url, _ := p.tokenStringLiteral()
	p.advance()
	vs := &ast.ValueSetDef{Name: name, URL: url, Access: access}
	if p.isKeyword("version") {
		p.advance()
		p.advance()
	}
	return vs
}

func (p *Parser) parseCode(access ast.AccessModifier) *ast.CodeDef {
	p.advance()
	name, _ := p.quotedText()
	p.advance()
	p.expectOp(":")
	code, _ := p.tokenStringLiteral()
	p.advance()
	cd := &ast.CodeDef{Name: name, Code: code, Access: access}
	if p.isKeyword("from") {
		p.advance()
		if sys, ok := p.quotedText(); ok {
			cd.CodeSystem = sys
			p.advance()
		}
	}
	if p.isKeyword("display") {
		p.advance()
		if s, ok := p.tokenStringLiteral(); ok {
			cd.Display = s
			p.advance()
		}
	}
	return cd
}

// parseDefineOrFunction consumes the leading 'define' keyword and dispatches
// to a plain expression definition or a `define function` definition.
func (p *Parser) parseDefineOrFunction(access ast.AccessModifier) *ast.ExpressionDef {
	if p.next.Kind == lexer.Keyword && p.next.Text == "function" {
		p.advance() // consume 'define', leaving 'function' current
		return p.parseFunctionDef(access)
	}
	return p.parseDefine(access)
}

func (p *Parser) parseDefine(access ast.AccessModifier) *ast.ExpressionDef {
	start := p.tok
	p.advance() // 'define'
	name, ok := p.identText()
	if !ok {
		if s, qok := p.quotedText(); qok {
			name = s
			ok = true
		}
	}
	if ok {
		p.advance()
	}
	p.expectOp(":")
	body := p.parseExpression()
	return &ast.ExpressionDef{
		Name: name, Context: p.currentContext, Access: access,
		Body: body, Span: p.span(start),
	}
}

// parseFunctionDef parses a `define function Name(params): body` statement,
// folding it into an ExpressionDef whose body is a FunctionCall-shaped
// lambda representation (Name holds the function name, Body wraps the
// parameter-annotated expression under a synthetic "$function" call).
func (p *Parser) parseFunctionDef(access ast.AccessModifier) *ast.ExpressionDef {
	start := p.tok
	p.advance() // 'function' (optionally preceded by 'define', handled by caller dispatch)
	name, _ := p.identText()
	p.advance()
	var params []ast.Expr
	if p.isOp("(") {
		p.advance()
		for !p.isOp(")") && p.tok.Kind != lexer.EOF {
			pname, _ := p.identText()
			pStart := p.tok
			p.advance()
			if p.isIdent() {
				p.parseTypeSpecifier()
			}
			params = append(params, ast.NewRef(p.span(pStart), "", pname))
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
		p.expectOp(")")
	}
	if p.isIdent() { // optional return type specifier
		p.parseTypeSpecifier()
	}
	p.expectOp(":")
	body := p.parseExpression()
	fn := ast.NewFunctionCall(p.span(start), "", "$function", append(params, body))
	return &ast.ExpressionDef{Name: name, Context: p.currentContext, Access: access, Body: fn, Span: p.span(start)}
}

// parseTypeSpecifier consumes a type name, optionally generic
// (`List<Integer>`, `Interval<DateTime>`, `Choice<Integer,String>`) or
// qualified (`FHIR.Patient`), and returns its textual form.
func (p *Parser) parseTypeSpecifier() string {
	var sb strings.Builder
	name, _ := p.identText()
	sb.WriteString(name)
	p.advance()
	for p.isOp(".") {
		p.advance()
		n, _ := p.identText()
		sb.WriteString(".")
		sb.WriteString(n)
		p.advance()
	}
	if p.isOp("<") {
		sb.WriteString("<")
		p.advance()
		sb.WriteString(p.parseTypeSpecifier())
		for p.isOp(",") {
			p.advance()
			sb.WriteString(",")
			sb.WriteString(p.parseTypeSpecifier())
		}
		if p.isOp(">") {
			p.advance()
		}
		sb.WriteString(">")
	}
	return sb.String()
}

// ---- expressions ----

func (p *Parser) parseExpression() ast.Expr { return p.parseImplies() }

func (p *Parser) parseImplies() ast.Expr {
	left := p.parseOrXor()
	for p.isKeyword("implies") {
		start := p.tok
		p.advance()
		right := p.parseOrXor()
		left = ast.NewBinary(p.span(start), "implies", left, right)
	}
	return left
}

func (p *Parser) parseOrXor() ast.Expr {
	left := p.parseAnd()
	for p.isKeyword("or") || p.isKeyword("xor") {
		op := p.tok.Text
		start := p.tok
		p.advance()
		right := p.parseAnd()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for p.isKeyword("and") {
		start := p.tok
		p.advance()
		right := p.parseNot()
		left = ast.NewBinary(p.span(start), "and", left, right)
	}
	return left
}

func (p *Parser) parseNot() ast.Expr {
	if p.isKeyword("not") {
		start := p.tok
		p.advance()
		operand := p.parseNot()
		return ast.NewUnary(p.span(start), "not", operand)
	}
	if p.isKeyword("exists") {
		start := p.tok
		p.advance()
		operand := p.parseNot()
		return ast.NewUnary(p.span(start), "exists", operand)
	}
	return p.parseEquality()
}

var equalityOps = map[string]bool{"=": true, "!=": true, "~": true, "!~": true}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseInequality()
	for p.tok.Kind == lexer.Op && equalityOps[p.tok.Text] {
		op := p.tok.Text
		start := p.tok
		p.advance()
		right := p.parseInequality()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

var inequalityOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true}

func (p *Parser) parseInequality() ast.Expr {
	left := p.parseMembership()
	for p.tok.Kind == lexer.Op && inequalityOps[p.tok.Text] {
		op := p.tok.Text
		start := p.tok
		p.advance()
		right := p.parseMembership()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseMembership() ast.Expr {
	left := p.parseSetOp()
	for p.isKeyword("in") || p.isKeyword("contains") {
		op := p.tok.Text
		start := p.tok
		p.advance()
		right := p.parseSetOp()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseSetOp() ast.Expr {
	left := p.parseTypeExpr()
	for p.isKeyword("union") || p.isKeyword("intersect") || p.isKeyword("except") {
		op := p.tok.Text
		start := p.tok
		p.advance()
		right := p.parseTypeExpr()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseTypeExpr() ast.Expr {
	left := p.parseAdditive()
	for p.isKeyword("is") || p.isKeyword("as") || p.isKeyword("cast") {
		op := p.tok.Text
		start := p.tok
		p.advance()
		if op == "cast" && p.isKeyword("as") {
			p.advance()
		}
		typeName := p.parseTypeSpecifier()
		left = ast.NewTypeExpr(p.span(start), op, left, typeName)
	}
	return left
}

var additiveOps = map[string]bool{"+": true, "-": true, "&": true}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.tok.Kind == lexer.Op && additiveOps[p.tok.Text] {
		op := p.tok.Text
		start := p.tok
		p.advance()
		right := p.parseMultiplicative()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for (p.tok.Kind == lexer.Op && (p.tok.Text == "*" || p.tok.Text == "/")) ||
		p.isKeyword("div") || p.isKeyword("mod") {
		op := p.tok.Text
		start := p.tok
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinary(p.span(start), op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.isOp("+") || p.isOp("-") {
		op := p.tok.Text
		start := p.tok
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnary(p.span(start), op, operand)
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parseQueryOrPrimary()
	for {
		switch {
		case p.isOp("."):
			start := p.tok
			p.advance()
			name, _ := p.identText()
			p.advance()
			var args []ast.Expr
			if p.isOp("(") {
				args = p.parseArgList()
			}
			expr = ast.NewInvocation(p.span(start), expr, name, args)
		case p.isOp("["):
			start := p.tok
			p.advance()
			idx := p.parseExpression()
			p.expectOp("]")
			expr = ast.NewIndexer(p.span(start), expr, idx)
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgList() []ast.Expr {
	p.advance() // (
	var args []ast.Expr
	for !p.isOp(")") && p.tok.Kind != lexer.EOF {
		args = append(args, p.parseExpression())
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	p.expectOp(")")
	return args
}

// parseQueryOrPrimary parses a primary term and, if it is immediately
// followed by an alias identifier, folds it into a Query.
func (p *Parser) parseQueryOrPrimary() ast.Expr {
	start := p.tok
	primary := p.parseTerm()

	if !p.isIdent() {
		return primary
	}
	// Lookahead: an alias is a bare identifier not itself starting a new
	// infix operator context (i.e. not a keyword operator).
	alias := p.tok.Text
	p.advance()

	sources := []ast.AliasedSource{{Source: primary, Alias: alias}}
	for p.isOp(",") {
		p.advance()
		src := p.parseTerm()
		a := ""
		if p.isIdent() {
			a = p.tok.Text
			p.advance()
		}
		sources = append(sources, ast.AliasedSource{Source: src, Alias: a})
	}

	q := ast.NewQuery(p.span(start), sources)

	for p.isKeyword("with") || p.isKeyword("without") {
		p.advance()
		relSrc := p.parseTerm()
		relAlias := ""
		if p.isIdent() {
			relAlias = p.tok.Text
			p.advance()
		}
		q.Sources = append(q.Sources, ast.AliasedSource{Source: relSrc, Alias: relAlias})
		if p.isKeyword("such") {
			p.advance()
			p.expectKeyword("that")
			cond := p.parseExpression()
			if q.Where == nil {
				q.Where = cond
			} else {
				q.Where = ast.NewBinary(p.span(start), "and", q.Where, cond)
			}
		}
	}

	if p.isKeyword("where") {
		p.advance()
		cond := p.parseExpression()
		if q.Where == nil {
			q.Where = cond
		} else {
			q.Where = ast.NewBinary(p.span(start), "and", q.Where, cond)
		}
	}

	if p.isKeyword("return") {
		p.advance()
		if p.isKeyword("all") || p.isKeyword("distinct") {
			p.advance()
		}
		q.Return = p.parseExpression()
	}

	if p.isKeyword("sort") {
		p.advance()
		p.expectKeyword("by")
		for {
			item := ast.SortItem{Expr: p.parseExpression()}
			if p.isKeyword("desc") || p.isKeyword("descending") {
				item.Descending = true
				p.advance()
			} else if p.isKeyword("asc") || p.isKeyword("ascending") {
				p.advance()
			}
			q.Sort = append(q.Sort, item)
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
	}

	return q
}

func (p *Parser) parseTerm() ast.Expr {
	start := p.tok
	switch {
	case p.tok.Kind == lexer.Number:
		text := p.tok.Text
		p.advance()
		kind := "Integer"
		if strings.Contains(text, ".") {
			kind = "Decimal"
		}
		if q := p.maybeQuantity(text); q != nil {
			return q
		}
		return ast.NewLiteral(p.span(start), kind, text)
	case p.tok.Kind == lexer.String:
		text := p.tok.Text
		p.advance()
		return ast.NewLiteral(p.span(start), "String", text)
	case p.tok.Kind == lexer.Date:
		text := p.tok.Text
		p.advance()
		return ast.NewLiteral(p.span(start), "Date", text)
	case p.tok.Kind == lexer.DateTime:
		text := p.tok.Text
		p.advance()
		return ast.NewLiteral(p.span(start), "DateTime", text)
	case p.tok.Kind == lexer.Time:
		text := p.tok.Text
		p.advance()
		return ast.NewLiteral(p.span(start), "Time", text)
	case p.isKeyword("true"):
		p.advance()
		return ast.NewLiteral(p.span(start), "Boolean", "true")
	case p.isKeyword("false"):
		p.advance()
		return ast.NewLiteral(p.span(start), "Boolean", "false")
	case p.isKeyword("null"):
		p.advance()
		return ast.NewLiteral(p.span(start), "Null", "")
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("case"):
		return p.parseCase()
	case p.isKeyword("Code"):
		return p.parseCodeLiteral()
	case p.isOp("("):
		p.advance()
		expr := p.parseExpression()
		p.expectOp(")")
		return expr
	case p.isOp("["):
		return p.parseRetrieve()
	case p.isOp("{"):
		return p.parseListLiteral("")
	case p.isKeyword("Interval"):
		return p.parseInterval()
	case p.isKeyword("List"):
		p.advance()
		elemType := ""
		if p.isOp("<") {
			p.advance()
			elemType = p.parseTypeSpecifier()
			p.expectOp(">")
		}
		return p.parseListLiteral(elemType)
	case p.tok.Kind == lexer.Ident || p.tok.Kind == lexer.DelimitedIdent:
		name := p.tok.Text
		p.advance()
		if p.isOp(".") && p.next.Kind == lexer.Ident {
			// qualified reference, e.g. Include.Name; resolved by builder
			qualifier := name
			p.advance()
			member, _ := p.identText()
			p.advance()
			if p.isOp("(") {
				args := p.parseArgList()
				return ast.NewFunctionCall(p.span(start), qualifier, member, args)
			}
			return ast.NewRef(p.span(start), qualifier, member)
		}
		if p.isOp("(") {
			args := p.parseArgList()
			return ast.NewFunctionCall(p.span(start), "", name, args)
		}
		return ast.NewRef(p.span(start), "", name)
	default:
		p.fail(fmt.Sprintf("unexpected token %q", p.tok.Text), nil)
		p.advance()
		return ast.NewLiteral(p.span(start), "Null", "")
	}
}

func (p *Parser) parseCodeLiteral() ast.Expr {
	start := p.tok
	p.advance() // 'code' keyword used as literal marker
	code, _ := p.tokenStringLiteral()
	p.advance()
	cl := ast.NewCodeLiteral(p.span(start), code, "", "")
	if p.isKeyword("from") {
		p.advance()
		if sys, ok := p.quotedText(); ok {
			cl.CodeSystem = sys
			p.advance()
		}
	}
	if p.isKeyword("display") {
		p.advance()
		if s, ok := p.tokenStringLiteral(); ok {
			cl.Display = s
			p.advance()
		}
	}
	return cl
}

func (p *Parser) parseRetrieve() ast.Expr {
	start := p.tok
	p.advance() // [
	typeSpec := p.parseTypeSpecifier()
	r := ast.NewRetrieve(p.span(start), typeSpec)
	if p.isOp(":") {
		p.advance()
		if s, ok := p.quotedText(); ok {
			r.ValueSet = s
			p.advance()
		} else {
			r.CodePath = "code"
			r.TerminologyRef = p.parseExpression()
		}
	}
	p.expectOp("]")
	return r
}

func (p *Parser) parseListLiteral(elementType string) ast.Expr {
	start := p.tok
	p.advance() // {
	ll := ast.NewListLiteral(p.span(start), elementType, nil)
	for !p.isOp("}") && p.tok.Kind != lexer.EOF {
		ll.Elements = append(ll.Elements, p.parseExpression())
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	p.expectOp("}")
	return ll
}

func (p *Parser) parseInterval() ast.Expr {
	start := p.tok
	p.advance() // Interval
	if p.isOp("<") {
		p.advance()
		p.parseTypeSpecifier()
		p.expectOp(">")
	}
	lowClosed := true
	if p.isOp("[") {
		p.advance()
	} else if p.isOp("(") {
		lowClosed = false
		p.advance()
	}
	low := p.parseExpression()
	p.expectOp(",")
	high := p.parseExpression()
	highClosed := true
	if p.isOp("]") {
		p.advance()
	} else if p.isOp(")") {
		highClosed = false
		p.advance()
	}
	return ast.NewInterval(p.span(start), low, high, lowClosed, highClosed)
}

func (p *Parser) parseIf() ast.Expr {
	start := p.tok
	p.advance() // if
	cond := p.parseExpression()
	p.expectKeyword("then")
	thenExpr := p.parseExpression()
	p.expectKeyword("else")
	elseExpr := p.parseExpression()
	return ast.NewFunctionCall(p.span(start), "", "$if", []ast.Expr{cond, thenExpr, elseExpr})
}

func (p *Parser) parseCase() ast.Expr {
	start := p.tok
	p.advance() // case
	var comparand ast.Expr
	if !p.isKeyword("when") {
		comparand = p.parseExpression()
	}
	args := []ast.Expr{}
	if comparand != nil {
		args = append(args, comparand)
	} else {
		args = append(args, nil)
	}
	for p.isKeyword("when") {
		p.advance()
		when := p.parseExpression()
		p.expectKeyword("then")
		then := p.parseExpression()
		args = append(args, when, then)
	}
	p.expectKeyword("else")
	elseExpr := p.parseExpression()
	args = append(args, elseExpr)
	p.expectKeyword("end")
	return ast.NewFunctionCall(p.span(start), "", "$case", args)
}

// maybeQuantity folds a following unit (calendar keyword or quoted UCUM
// unit) into a Quantity literal, matching the FHIRPath parser's approach.
func (p *Parser) maybeQuantity(numText string) ast.Expr {
	start := p.tok
	switch {
	case p.tok.Kind == lexer.String:
		unit := p.tok.Text
		combined := numText + " '" + unit + "'"
		p.advance()
		return ast.NewLiteral(p.span(start), "Quantity", combined)
	case p.isIdent() && calendarUnits[p.tok.Text]:
		unit := p.tok.Text
		combined := numText + " " + unit
		p.advance()
		return ast.NewLiteral(p.span(start), "Quantity", combined)
	}
	return nil
}

var calendarUnits = map[string]bool{
	"year": true, "years": true, "month": true, "months": true,
	"week": true, "weeks": true, "day": true, "days": true,
	"hour": true, "hours": true, "minute": true, "minutes": true,
	"second": true, "seconds": true, "millisecond": true, "milliseconds": true,
}
