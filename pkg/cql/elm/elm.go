// Package elm defines the Expression Logical Model intermediate
// representation that pkg/cql/builder produces and pkg/cql/compiler
// serializes to JSON.
package elm

// Annotation carries translator metadata attached to a library, emitted
// when EnableAnnotations is set.
type Annotation struct {
	Type              string `json:"type"`
	TranslatorVersion string `json:"translatorVersion,omitempty"`
	TranslatorOptions string `json:"translatorOptions,omitempty"`
}

// VersionedIdentifier names a library, using, or include with an optional
// version string.
type VersionedIdentifier struct {
	ID      string `json:"id"`
	Version string `json:"version,omitempty"`
}

// Using is a `using Model version 'x'` declaration.
type Using struct {
	LocalIdentifier string `json:"localIdentifier"`
	URI             string `json:"uri,omitempty"`
	Version         string `json:"version,omitempty"`
}

// Include is an `include Library version 'x' called Alias` declaration.
type Include struct {
	Path            string `json:"path"`
	Version         string `json:"version,omitempty"`
	LocalIdentifier string `json:"localIdentifier,omitempty"`
}

// ParameterDef is a `parameter` declaration.
type ParameterDef struct {
	Name          string     `json:"name"`
	AccessLevel   string     `json:"accessLevel,omitempty"`
	ParameterType string     `json:"parameterTypeSpecifier,omitempty"`
	Default       Expression `json:"default,omitempty"`
	ResultType    string     `json:"resultTypeName,omitempty"`
	Locator       string     `json:"locator,omitempty"`
}

// CodeSystemDef is a `codesystem` declaration.
type CodeSystemDef struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Version     string `json:"version,omitempty"`
	AccessLevel string `json:"accessLevel,omitempty"`
}

// ValueSetDef is a `valueset` declaration.
type ValueSetDef struct {
	Name        string   `json:"name"`
	ID          string   `json:"id"`
	Version     string   `json:"version,omitempty"`
	CodeSystems []string `json:"codeSystems,omitempty"`
	AccessLevel string   `json:"accessLevel,omitempty"`
}

// CodeDef is a `code` declaration.
type CodeDef struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Display     string `json:"display,omitempty"`
	CodeSystem  *CodeSystemRef `json:"codeSystem,omitempty"`
	AccessLevel string `json:"accessLevel,omitempty"`
}

// CodeSystemRef references a codesystem def by local name.
type CodeSystemRef struct {
	Name string `json:"name"`
}

// ConceptDef is a `concept` declaration (list of underlying codes).
type ConceptDef struct {
	Name        string   `json:"name"`
	Display     string   `json:"display,omitempty"`
	Codes       []string `json:"codes,omitempty"`
	AccessLevel string   `json:"accessLevel,omitempty"`
}

// ExpressionDef is a top-level `define` statement lowered to ELM.
type ExpressionDef struct {
	Name        string     `json:"name"`
	Context     string     `json:"context,omitempty"`
	AccessLevel string     `json:"accessLevel,omitempty"`
	ResultType  string     `json:"resultTypeName,omitempty"`
	Locator     string     `json:"locator,omitempty"`
	Expression  Expression `json:"expression"`
}

// FunctionDef is a `define function` statement.
type FunctionDef struct {
	Name        string          `json:"name"`
	Context     string          `json:"context,omitempty"`
	AccessLevel string          `json:"accessLevel,omitempty"`
	Fluent      bool            `json:"fluent,omitempty"`
	External    bool            `json:"external,omitempty"`
	ResultType  string          `json:"resultTypeName,omitempty"`
	Operand     []OperandDef    `json:"operand,omitempty"`
	Expression  Expression      `json:"expression,omitempty"`
}

// OperandDef is one function parameter declaration.
type OperandDef struct {
	Name          string `json:"name"`
	OperandType   string `json:"operandTypeSpecifier,omitempty"`
}

// Statements wraps the library's `def` list of expression/function defs,
// matching the ELM schema's container naming for inner lists.
type Statements struct {
	Def []interface{} `json:"def,omitempty"`
}

// Library is the top-level ELM document for a single compiled CQL source
// file.
type Library struct {
	Annotation       []Annotation          `json:"annotation,omitempty"`
	Identifier       *VersionedIdentifier  `json:"identifier,omitempty"`
	SchemaIdentifier *VersionedIdentifier  `json:"schemaIdentifier,omitempty"`
	Usings           *UsingsContainer      `json:"usings,omitempty"`
	Includes         *IncludesContainer    `json:"includes,omitempty"`
	Parameters       *ParametersContainer  `json:"parameters,omitempty"`
	CodeSystems      *CodeSystemsContainer `json:"codeSystems,omitempty"`
	ValueSets        *ValueSetsContainer   `json:"valueSets,omitempty"`
	Codes            *CodesContainer       `json:"codes,omitempty"`
	Concepts         *ConceptsContainer    `json:"concepts,omitempty"`
	Statements       *Statements           `json:"statements,omitempty"`
}

type UsingsContainer struct {
	Def []Using `json:"def,omitempty"`
}
type IncludesContainer struct {
	Def []Include `json:"def,omitempty"`
}
type ParametersContainer struct {
	Def []ParameterDef `json:"def,omitempty"`
}
type CodeSystemsContainer struct {
	Def []CodeSystemDef `json:"def,omitempty"`
}
type ValueSetsContainer struct {
	Def []ValueSetDef `json:"def,omitempty"`
}
type CodesContainer struct {
	Def []CodeDef `json:"def,omitempty"`
}
type ConceptsContainer struct {
	Def []ConceptDef `json:"def,omitempty"`
}

// Expression is the generic shape of every ELM expression node: a `type`
// discriminator plus whatever fields that node kind carries. Builder code
// constructs typed node structs (Literal, Binary, FunctionRef, ...), with
// operators such as Add and Equal carried as a Binary's type; Expression is
// the interface they all satisfy for embedding in containers.
type Expression interface {
	ElmType() string
}

// NodeBase is embedded by every concrete ELM expression node; it carries
// the optional annotation/locator/result-type enrichments controlled by
// compiler options.
type NodeBase struct {
	Type       string       `json:"type"`
	Locator    string       `json:"locator,omitempty"`
	ResultType string       `json:"resultTypeName,omitempty"`
	Annotation []Annotation `json:"annotation,omitempty"`
}

func (n NodeBase) ElmType() string { return n.Type }

// Literal is a scalar ELM literal node.
type Literal struct {
	NodeBase
	ValueType string `json:"valueType,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Null is the ELM `As` of an absent value.
type Null struct{ NodeBase }

// Property is a member access, `Path.member` lowered with its scope.
type Property struct {
	NodeBase
	Path   string `json:"path"`
	Scope  string `json:"scope,omitempty"`
	Source Expression `json:"source,omitempty"`
}

// ExpressionRef resolves a reference to a library-level define.
type ExpressionRef struct {
	NodeBase
	Name        string `json:"name"`
	LibraryName string `json:"libraryName,omitempty"`
}

// ParameterRef resolves a reference to a declared parameter.
type ParameterRef struct {
	NodeBase
	Name string `json:"name"`
}

// AliasRef resolves a reference to a query alias.
type AliasRef struct {
	NodeBase
	Name string `json:"name"`
}

// OperandRef resolves a reference to a function operand.
type OperandRef struct {
	NodeBase
	Name string `json:"name"`
}

// FunctionRef invokes a named function (built-in or library-defined) with
// operands.
type FunctionRef struct {
	NodeBase
	Name        string       `json:"name"`
	LibraryName string       `json:"libraryName,omitempty"`
	Signature   []string     `json:"signature,omitempty"`
	Operand     []Expression `json:"operand,omitempty"`
}

// Unary is any single-operand named node (Not, Exists, Negate, IsNull, ...).
type Unary struct {
	NodeBase
	Operand Expression `json:"operand"`
}

// Binary is any two-operand named node (Add, And, Equal, InValueSet, ...).
type Binary struct {
	NodeBase
	Operand []Expression `json:"operand"`
}

// Naryistic is an N-operand named node used for lists/tuples/case branches.
type Naryistic struct {
	NodeBase
	Operand []Expression `json:"operand,omitempty"`
}

// List is an ELM list literal.
type List struct {
	NodeBase
	Element []Expression `json:"element,omitempty"`
}

// IntervalExpr is an ELM `Interval` literal/expression.
type IntervalExpr struct {
	NodeBase
	Low          Expression `json:"low,omitempty"`
	High         Expression `json:"high,omitempty"`
	LowClosed    bool       `json:"lowClosed"`
	HighClosed   bool       `json:"highClosed"`
	LowClosedExpression  Expression `json:"lowClosedExpression,omitempty"`
	HighClosedExpression Expression `json:"highClosedExpression,omitempty"`
}

// If is an ELM `if`/`then`/`else` node.
type If struct {
	NodeBase
	Condition Expression `json:"condition"`
	Then      Expression `json:"then"`
	Else      Expression `json:"else"`
}

// CaseItem is one `when`/`then` pair of a Case node.
type CaseItem struct {
	When Expression `json:"when"`
	Then Expression `json:"then"`
}

// Case is an ELM `case` expression, with an optional comparand.
type Case struct {
	NodeBase
	Comparand Expression `json:"comparand,omitempty"`
	CaseItem  []CaseItem `json:"caseItem,omitempty"`
	Else      Expression `json:"else"`
}

// Retrieve is an ELM data retrieval expression, `[Type: valueset]`.
type Retrieve struct {
	NodeBase
	DataType     string     `json:"dataType"`
	TemplateID   string     `json:"templateId,omitempty"`
	CodeProperty string     `json:"codeProperty,omitempty"`
	Codes        Expression `json:"codes,omitempty"`
}

// AliasedQuerySource is one source clause of a Query.
type AliasedQuerySource struct {
	Expression Expression `json:"expression"`
	Alias      string     `json:"alias"`
}

// RelationshipClause is one `with`/`without ... such that` clause.
type RelationshipClause struct {
	AliasedQuerySource
	SuchThat Expression `json:"suchThat,omitempty"`
}

// SortByItem is one element of a Query's `sort` clause.
type SortByItem struct {
	Direction string `json:"direction,omitempty"`
}

// Query is an ELM query expression.
type Query struct {
	NodeBase
	Source       []AliasedQuerySource  `json:"source"`
	Relationship []RelationshipClause  `json:"relationship,omitempty"`
	Where        Expression            `json:"where,omitempty"`
	Return       *ReturnClause         `json:"return,omitempty"`
	Sort         *SortClause           `json:"sort,omitempty"`
}

// ReturnClause is a Query's `return` projection.
type ReturnClause struct {
	Distinct   bool       `json:"distinct,omitempty"`
	Expression Expression `json:"expression"`
}

// SortClause is a Query's `sort by` clause.
type SortClause struct {
	By []SortByItem `json:"by,omitempty"`
}

// CodeRef resolves a reference to a library-level code def.
type CodeRef struct {
	NodeBase
	Name string `json:"name"`
}

// CodeLiteral is an inline `Code 'x' from "CS"` literal.
type CodeLiteral struct {
	NodeBase
	Code       string         `json:"code"`
	Display    string         `json:"display,omitempty"`
	System     *CodeSystemRef `json:"system,omitempty"`
}

// TypeOperator is the shared shape of `Is`, `As`, and `Cast` nodes.
type TypeOperator struct {
	NodeBase
	Operand       Expression `json:"operand"`
	TypeSpecifier string     `json:"asTypeSpecifier,omitempty"`
}

// ValueSetRef resolves a reference to a library-level valueset def.
type ValueSetRef struct {
	NodeBase
	Name string `json:"name"`
}

func NewNodeBase(t string) NodeBase { return NodeBase{Type: t} }
