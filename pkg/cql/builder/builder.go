// Package builder lowers a pkg/cql/ast.Library into a pkg/cql/elm.Library,
// resolving identifiers against the active scopes and recording diagnostics
// for anything it cannot resolve.
package builder

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/fhirlang/gofhir/pkg/cql/ast"
	"github.com/fhirlang/gofhir/pkg/cql/elm"
)

type scopeKind int

const (
	scopeAlias scopeKind = iota
	scopeOperand
)

type scopeFrame map[string]scopeKind

// Builder holds the symbol tables and scope stack for one Build call. It
// is not safe for concurrent or repeated use.
type Builder struct {
	opts  Options
	diags []Diagnostic

	statementNames  map[string]*ast.ExpressionDef
	includeAliases  map[string]*ast.IncludeDef
	parameterNames  map[string]*ast.ParameterDef
	codeSystemNames map[string]*ast.CodeSystemDef
	valueSetNames   map[string]*ast.ValueSetDef
	codeNames       map[string]*ast.CodeDef

	scopes []scopeFrame
}

// Build lowers lib to ELM. It always returns a diagnostic list; the library
// pointer is nil only when opts.VerifyOnly is set.
func Build(lib *ast.Library, opts Options) (*elm.Library, []Diagnostic) {
	opts = opts.Normalize()
	b := &Builder{
		opts:            opts,
		statementNames:  map[string]*ast.ExpressionDef{},
		includeAliases:  map[string]*ast.IncludeDef{},
		parameterNames:  map[string]*ast.ParameterDef{},
		codeSystemNames: map[string]*ast.CodeSystemDef{},
		valueSetNames:   map[string]*ast.ValueSetDef{},
		codeNames:       map[string]*ast.CodeDef{},
	}

	for _, s := range lib.Statements {
		if _, dup := b.statementNames[s.Name]; dup {
			b.errf(b.locOf(s.Span), "duplicate definition %q", s.Name)
		}
		b.statementNames[s.Name] = s
	}
	for _, inc := range lib.Includes {
		b.includeAliases[inc.Alias] = inc
	}
	for _, p := range lib.Parameters {
		b.parameterNames[p.Name] = p
	}
	for _, cs := range lib.CodeSystems {
		b.codeSystemNames[cs.Name] = cs
	}
	for _, vs := range lib.ValueSets {
		b.valueSetNames[vs.Name] = vs
	}
	for _, c := range lib.Codes {
		b.codeNames[c.Name] = c
	}

	out := &elm.Library{
		SchemaIdentifier: &elm.VersionedIdentifier{ID: "urn:hl7-org:elm:r1", Version: "r1"},
	}
	if lib.Identifier != nil {
		out.Identifier = &elm.VersionedIdentifier{ID: lib.Identifier.Name, Version: lib.Identifier.Version}
	} else {
		// Anonymous library (no `library X version 'y'` header): synthesize a
		// stable-for-this-build identifier so downstream consumers (ELM
		// JSON, the `cql info` CLI) always have one to key on.
		out.Identifier = &elm.VersionedIdentifier{ID: "anonymous-" + uuid.NewString()}
	}
	if b.opts.EnableAnnotations {
		out.Annotation = append(out.Annotation, elm.Annotation{
			Type:              "CqlToElmInfo",
			TranslatorVersion: b.opts.TranslatorVersion,
			TranslatorOptions: b.opts.String(),
		})
	}

	if len(lib.Usings) > 0 {
		c := &elm.UsingsContainer{}
		for _, u := range lib.Usings {
			c.Def = append(c.Def, elm.Using{LocalIdentifier: u.Model, Version: u.Version})
		}
		out.Usings = c
	}
	if len(lib.Includes) > 0 {
		c := &elm.IncludesContainer{}
		for _, inc := range lib.Includes {
			c.Def = append(c.Def, elm.Include{Path: inc.Path, Version: inc.Version, LocalIdentifier: inc.Alias})
		}
		out.Includes = c
	}
	if len(lib.Parameters) > 0 {
		c := &elm.ParametersContainer{}
		for _, p := range lib.Parameters {
			pd := elm.ParameterDef{Name: p.Name, ParameterType: p.TypeSpecifier}
			if p.Default != nil {
				pd.Default = b.lowerExpr(p.Default)
			}
			c.Def = append(c.Def, pd)
		}
		out.Parameters = c
	}
	if len(lib.CodeSystems) > 0 {
		c := &elm.CodeSystemsContainer{}
		for _, cs := range lib.CodeSystems {
			c.Def = append(c.Def, elm.CodeSystemDef{Name: cs.Name, ID: cs.URL, Version: cs.Version, AccessLevel: accessString(cs.Access)})
		}
		out.CodeSystems = c
	}
	if len(lib.ValueSets) > 0 {
		c := &elm.ValueSetsContainer{}
		for _, vs := range lib.ValueSets {
			c.Def = append(c.Def, elm.ValueSetDef{Name: vs.Name, ID: vs.URL, AccessLevel: accessString(vs.Access)})
		}
		out.ValueSets = c
	}
	if len(lib.Codes) > 0 {
		c := &elm.CodesContainer{}
		for _, cd := range lib.Codes {
			def := elm.CodeDef{Name: cd.Name, ID: cd.Code, Display: cd.Display, AccessLevel: accessString(cd.Access)}
			if cd.CodeSystem != "" {
				def.CodeSystem = &elm.CodeSystemRef{Name: cd.CodeSystem}
			}
			c.Def = append(c.Def, def)
		}
		out.Codes = c
	}

	var defs []interface{}
	for _, s := range lib.Statements {
		defs = append(defs, b.lowerStatement(s))
	}
	if len(defs) > 0 {
		out.Statements = &elm.Statements{Def: defs}
	}

	b.sortDiagnostics()
	if b.opts.VerifyOnly {
		return nil, b.diags
	}
	return out, b.diags
}

// sortDiagnostics stable-sorts b.diags by locator line, then column, when
// EnableLocators is set, guaranteeing the source-order reporting promised
// for one compilation. Diagnostics without a locator (EnableLocators off)
// keep append order.
func (b *Builder) sortDiagnostics() {
	if !b.opts.EnableLocators {
		return
	}
	pos := func(loc string) (int, int) {
		var line, col int
		fmt.Sscanf(loc, "%d:%d", &line, &col)
		return line, col
	}
	slices.SortStableFunc(b.diags, func(a, c Diagnostic) int {
		al, ac := pos(a.Locator)
		cl, cc := pos(c.Locator)
		if al != cl {
			return al - cl
		}
		return ac - cc
	})
}

func accessString(a ast.AccessModifier) string {
	if a == ast.Private {
		return "Private"
	}
	return "Public"
}

func (b *Builder) errf(locator, format string, args ...interface{}) {
	b.diags = append(b.diags, errorf(locator, format, args...))
}

func (b *Builder) warnf(locator, format string, args ...interface{}) {
	b.diags = append(b.diags, warnf(locator, format, args...))
}

// locOf renders a "line:col" diagnostic locator from sp when EnableLocators
// is set, matching the ordering guarantee (§5) that diagnostics within one
// compilation are reportable in source order.
func (b *Builder) locOf(sp ast.Span) string {
	if !b.opts.EnableLocators {
		return ""
	}
	return fmt.Sprintf("%d:%d", sp.Line, sp.Col)
}

func (b *Builder) pushScope() { b.scopes = append(b.scopes, scopeFrame{}) }
func (b *Builder) popScope()  { b.scopes = b.scopes[:len(b.scopes)-1] }
func (b *Builder) declare(name string, kind scopeKind) {
	if len(b.scopes) == 0 {
		b.pushScope()
	}
	b.scopes[len(b.scopes)-1][name] = kind
}

func (b *Builder) resolveScope(name string) (scopeKind, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if k, ok := b.scopes[i][name]; ok {
			return k, true
		}
	}
	return 0, false
}

// lowerStatement lowers one top-level define, producing either an
// elm.ExpressionDef or (for `define function`) an elm.FunctionDef.
func (b *Builder) lowerStatement(s *ast.ExpressionDef) interface{} {
	if fn, ok := s.Body.(*ast.FunctionCall); ok && fn.Name == "$function" {
		return b.lowerFunctionDef(s, fn)
	}
	expr := b.lowerExpr(s.Body)
	return elm.ExpressionDef{
		Name:        s.Name,
		Context:     s.Context,
		AccessLevel: accessString(s.Access),
		Expression:  expr,
	}
}

func (b *Builder) lowerFunctionDef(s *ast.ExpressionDef, fn *ast.FunctionCall) elm.FunctionDef {
	if len(fn.Args) == 0 {
		b.errf(b.locOf(s.Span), "malformed function definition %q", s.Name)
		return elm.FunctionDef{Name: s.Name, Context: s.Context, AccessLevel: accessString(s.Access)}
	}
	params := fn.Args[:len(fn.Args)-1]
	body := fn.Args[len(fn.Args)-1]

	b.pushScope()
	var operands []elm.OperandDef
	for _, param := range params {
		if ref, ok := param.(*ast.Ref); ok {
			b.declare(ref.Name, scopeOperand)
			operands = append(operands, elm.OperandDef{Name: ref.Name})
		}
	}
	expr := b.lowerExpr(body)
	b.popScope()

	return elm.FunctionDef{
		Name:        s.Name,
		Context:     s.Context,
		AccessLevel: accessString(s.Access),
		Operand:     operands,
		Expression:  expr,
	}
}

// lowerExpr lowers a single CQL expression node to its ELM equivalent.
// lowerExpr lowers a single CQL AST expression to its ELM equivalent and,
// when EnableLocators is set, stamps the node with a "line:col" locator
// derived from the AST node's source span.
func (b *Builder) lowerExpr(e ast.Expr) elm.Expression {
	out := b.lowerExprNode(e)
	if b.opts.EnableLocators && e != nil {
		out = stampLocator(out, fmt.Sprintf("%d:%d", e.Span().Line, e.Span().Col))
	}
	return out
}

func (b *Builder) lowerExprNode(e ast.Expr) elm.Expression {
	switch n := e.(type) {
	case nil:
		return elm.Null{NodeBase: elm.NewNodeBase("Null")}
	case *ast.Literal:
		return b.lowerLiteral(n)
	case *ast.Ref:
		return b.lowerRef(n)
	case *ast.CodeLiteral:
		cl := elm.CodeLiteral{NodeBase: elm.NewNodeBase("Code"), Code: n.Code, Display: n.Display}
		if n.CodeSystem != "" {
			if _, ok := b.codeSystemNames[n.CodeSystem]; !ok {
				b.warnf(b.locOf(n.Span()), "unresolved code system %q", n.CodeSystem)
			}
			cl.System = &elm.CodeSystemRef{Name: n.CodeSystem}
		}
		return cl
	case *ast.Retrieve:
		return b.lowerRetrieve(n)
	case *ast.Interval:
		return elm.IntervalExpr{
			NodeBase:   elm.NewNodeBase("Interval"),
			Low:        b.lowerExpr(n.Low),
			High:       b.lowerExpr(n.High),
			LowClosed:  n.LowClosed,
			HighClosed: n.HighClosed,
		}
	case *ast.ListLiteral:
		var elems []elm.Expression
		for _, el := range n.Elements {
			elems = append(elems, b.lowerExpr(el))
		}
		return elm.List{NodeBase: elm.NewNodeBase("List"), Element: elems}
	case *ast.Unary:
		return b.lowerUnary(n)
	case *ast.Binary:
		return b.lowerBinary(n)
	case *ast.TypeExpr:
		nodeType := map[string]string{"is": "Is", "as": "As", "cast": "As"}[n.Op]
		return elm.TypeOperator{
			NodeBase:      elm.NewNodeBase(nodeType),
			Operand:       b.lowerExpr(n.Operand),
			TypeSpecifier: n.TypeName,
		}
	case *ast.Indexer:
		return elm.Binary{
			NodeBase: elm.NewNodeBase("Indexer"),
			Operand:  []elm.Expression{b.lowerExpr(n.Base), b.lowerExpr(n.Index)},
		}
	case *ast.Invocation:
		return b.lowerInvocation(n)
	case *ast.FunctionCall:
		return b.lowerFunctionCall(n)
	case *ast.Query:
		return b.lowerQuery(n)
	default:
		b.errf(b.locOf(e.Span()), "unsupported expression node %T", e)
		return elm.Null{NodeBase: elm.NewNodeBase("Null")}
	}
}

func (b *Builder) lowerLiteral(n *ast.Literal) elm.Expression {
	if n.Kind == "Null" {
		return elm.Null{NodeBase: elm.NewNodeBase("Null")}
	}
	text := n.Text
	if n.Kind == "Decimal" {
		if d, err := decimal.NewFromString(n.Text); err == nil {
			text = d.String()
		}
	}
	return elm.Literal{
		NodeBase:  elm.NewNodeBase("Literal"),
		ValueType: "{urn:hl7-org:elm-types:r1}" + n.Kind,
		Value:     text,
	}
}

func (b *Builder) lowerRef(n *ast.Ref) elm.Expression {
	if n.Qualifier != "" {
		if kind, ok := b.resolveScope(n.Qualifier); ok {
			var src elm.Expression = elm.AliasRef{NodeBase: elm.NewNodeBase("AliasRef"), Name: n.Qualifier}
			if kind == scopeOperand {
				src = elm.OperandRef{NodeBase: elm.NewNodeBase("OperandRef"), Name: n.Qualifier}
			}
			return elm.Property{NodeBase: elm.NewNodeBase("Property"), Path: n.Name, Source: src}
		}
		if _, ok := b.includeAliases[n.Qualifier]; !ok {
			b.errf(b.locOf(n.Span()), "unresolved include alias %q", n.Qualifier)
		}
		return elm.ExpressionRef{NodeBase: elm.NewNodeBase("ExpressionRef"), Name: n.Name, LibraryName: n.Qualifier}
	}
	if kind, ok := b.resolveScope(n.Name); ok {
		switch kind {
		case scopeAlias:
			return elm.AliasRef{NodeBase: elm.NewNodeBase("AliasRef"), Name: n.Name}
		case scopeOperand:
			return elm.OperandRef{NodeBase: elm.NewNodeBase("OperandRef"), Name: n.Name}
		}
	}
	if _, ok := b.statementNames[n.Name]; ok {
		return elm.ExpressionRef{NodeBase: elm.NewNodeBase("ExpressionRef"), Name: n.Name}
	}
	if _, ok := b.parameterNames[n.Name]; ok {
		return elm.ParameterRef{NodeBase: elm.NewNodeBase("ParameterRef"), Name: n.Name}
	}
	if _, ok := b.valueSetNames[n.Name]; ok {
		return elm.ValueSetRef{NodeBase: elm.NewNodeBase("ValueSetRef"), Name: n.Name}
	}
	if _, ok := b.codeNames[n.Name]; ok {
		return elm.CodeRef{NodeBase: elm.NewNodeBase("CodeRef"), Name: n.Name}
	}
	b.errf(b.locOf(n.Span()), "unresolved identifier %q", n.Name)
	return elm.Null{NodeBase: elm.NewNodeBase("Null")}
}

func (b *Builder) lowerRetrieve(n *ast.Retrieve) elm.Expression {
	r := elm.Retrieve{
		NodeBase:     elm.NewNodeBase("Retrieve"),
		DataType:     "{http://hl7.org/fhir}" + n.TypeSpecifier,
		CodeProperty: n.CodePath,
	}
	switch {
	case n.ValueSet != "":
		if _, ok := b.valueSetNames[n.ValueSet]; !ok {
			b.warnf(b.locOf(n.Span()), "unresolved value set %q", n.ValueSet)
		}
		r.Codes = elm.ValueSetRef{NodeBase: elm.NewNodeBase("ValueSetRef"), Name: n.ValueSet}
	case n.TerminologyRef != nil:
		r.Codes = b.lowerExpr(n.TerminologyRef)
	}
	return r
}

var unaryOps = map[string]string{
	"not":    "Not",
	"exists": "Exists",
	"-":      "Negate",
}

func (b *Builder) lowerUnary(n *ast.Unary) elm.Expression {
	if n.Op == "+" {
		return b.lowerExpr(n.Operand)
	}
	name, ok := unaryOps[n.Op]
	if !ok {
		b.errf(b.locOf(n.Span()), "unknown unary operator %q", n.Op)
		name = n.Op
	}
	return elm.Unary{NodeBase: elm.NewNodeBase(name), Operand: b.lowerExpr(n.Operand)}
}

var binaryOps = map[string]string{
	"implies": "Implies", "or": "Or", "xor": "Xor", "and": "And",
	"=": "Equal", "~": "Equivalent", "!=": "NotEqual", "!~": "NotEquivalent",
	"<": "Less", "<=": "LessOrEqual", ">": "Greater", ">=": "GreaterOrEqual",
	"contains": "Contains", "union": "Union", "intersect": "Intersect", "except": "Except",
	"+": "Add", "-": "Subtract", "&": "Concatenate",
	"*": "Multiply", "/": "Divide", "div": "TruncatedDivide", "mod": "Modulo",
}

func (b *Builder) lowerBinary(n *ast.Binary) elm.Expression {
	if n.Op == "in" {
		if ref, ok := n.Right.(*ast.Ref); ok && ref.Qualifier == "" {
			if _, isVS := b.valueSetNames[ref.Name]; isVS {
				return elm.Binary{
					NodeBase: elm.NewNodeBase("InValueSet"),
					Operand:  []elm.Expression{b.lowerExpr(n.Left), elm.ValueSetRef{NodeBase: elm.NewNodeBase("ValueSetRef"), Name: ref.Name}},
				}
			}
		}
		return elm.Binary{NodeBase: elm.NewNodeBase("In"), Operand: []elm.Expression{b.lowerExpr(n.Left), b.lowerExpr(n.Right)}}
	}
	name, ok := binaryOps[n.Op]
	if !ok {
		b.errf(b.locOf(n.Span()), "unknown binary operator %q", n.Op)
		name = n.Op
	}
	return elm.Binary{NodeBase: elm.NewNodeBase(name), Operand: []elm.Expression{b.lowerExpr(n.Left), b.lowerExpr(n.Right)}}
}

func (b *Builder) lowerInvocation(n *ast.Invocation) elm.Expression {
	base := b.lowerExpr(n.Base)
	if n.Args != nil {
		if b.opts.DisableMethodInvocation {
			b.errf(b.locOf(n.Span()), "method-style invocation %q is disabled", n.Name)
		}
		var operands []elm.Expression
		operands = append(operands, base)
		for _, a := range n.Args {
			operands = append(operands, b.lowerExpr(a))
		}
		return elm.FunctionRef{NodeBase: elm.NewNodeBase("FunctionRef"), Name: n.Name, Operand: operands}
	}
	return elm.Property{NodeBase: elm.NewNodeBase("Property"), Path: n.Name, Source: base}
}

func (b *Builder) lowerFunctionCall(n *ast.FunctionCall) elm.Expression {
	switch n.Name {
	case "$if":
		return elm.If{
			NodeBase:  elm.NewNodeBase("If"),
			Condition: b.lowerExpr(n.Args[0]),
			Then:      b.lowerExpr(n.Args[1]),
			Else:      b.lowerExpr(n.Args[2]),
		}
	case "$case":
		return b.lowerCase(n)
	}

	var operands []elm.Expression
	for _, a := range n.Args {
		operands = append(operands, b.lowerExpr(a))
	}
	ref := elm.FunctionRef{NodeBase: elm.NewNodeBase("FunctionRef"), Name: n.Name, Operand: operands}
	if n.Qualifier != "" {
		if _, ok := b.includeAliases[n.Qualifier]; !ok {
			b.errf(b.locOf(n.Span()), "unresolved include alias %q", n.Qualifier)
		}
		ref.LibraryName = n.Qualifier
	}
	return ref
}

func (b *Builder) lowerCase(n *ast.FunctionCall) elm.Expression {
	c := elm.Case{NodeBase: elm.NewNodeBase("Case")}
	args := n.Args
	if len(args) == 0 {
		b.errf(b.locOf(n.Span()), "malformed case expression")
		return c
	}
	if args[0] != nil {
		c.Comparand = b.lowerExpr(args[0])
	}
	rest := args[1:]
	elseExpr := rest[len(rest)-1]
	whenThens := rest[:len(rest)-1]
	for i := 0; i+1 < len(whenThens); i += 2 {
		c.CaseItem = append(c.CaseItem, elm.CaseItem{
			When: b.lowerExpr(whenThens[i]),
			Then: b.lowerExpr(whenThens[i+1]),
		})
	}
	c.Else = b.lowerExpr(elseExpr)
	return c
}

func (b *Builder) lowerQuery(n *ast.Query) elm.Expression {
	b.pushScope()
	defer b.popScope()

	var sources []elm.AliasedQuerySource
	for _, src := range n.Sources {
		lowered := b.lowerExpr(src.Source)
		if src.Alias != "" {
			b.declare(src.Alias, scopeAlias)
		}
		sources = append(sources, elm.AliasedQuerySource{Expression: lowered, Alias: src.Alias})
	}

	q := elm.Query{NodeBase: elm.NewNodeBase("Query"), Source: sources}
	if n.Where != nil {
		q.Where = b.lowerExpr(n.Where)
	}
	if n.Return != nil {
		q.Return = &elm.ReturnClause{Expression: b.lowerExpr(n.Return)}
	}
	if len(n.Sort) > 0 {
		sc := &elm.SortClause{}
		for _, item := range n.Sort {
			dir := "ascending"
			if item.Descending {
				dir = "descending"
			}
			sc.By = append(sc.By, elm.SortByItem{Direction: dir})
			_ = item.Expr // only the direction is emitted; the sort-by expression is not lowered
		}
		q.Sort = sc
	}
	return q
}

// stampLocator sets the locator field on whichever concrete ELM expression
// type e holds, returning the updated value. Node types with no NodeBase
// (none currently) pass through unchanged.
func stampLocator(e elm.Expression, locator string) elm.Expression {
	switch n := e.(type) {
	case elm.Null:
		n.Locator = locator
		return n
	case elm.Literal:
		n.Locator = locator
		return n
	case elm.CodeLiteral:
		n.Locator = locator
		return n
	case elm.IntervalExpr:
		n.Locator = locator
		return n
	case elm.List:
		n.Locator = locator
		return n
	case elm.TypeOperator:
		n.Locator = locator
		return n
	case elm.Binary:
		n.Locator = locator
		return n
	case elm.Unary:
		n.Locator = locator
		return n
	case elm.ExpressionRef:
		n.Locator = locator
		return n
	case elm.AliasRef:
		n.Locator = locator
		return n
	case elm.OperandRef:
		n.Locator = locator
		return n
	case elm.ParameterRef:
		n.Locator = locator
		return n
	case elm.ValueSetRef:
		n.Locator = locator
		return n
	case elm.CodeRef:
		n.Locator = locator
		return n
	case elm.Retrieve:
		n.Locator = locator
		return n
	case elm.FunctionRef:
		n.Locator = locator
		return n
	case elm.Property:
		n.Locator = locator
		return n
	case elm.If:
		n.Locator = locator
		return n
	case elm.Case:
		n.Locator = locator
		return n
	case elm.Query:
		n.Locator = locator
		return n
	default:
		return e
	}
}
