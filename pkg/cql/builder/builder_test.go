package builder_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirlang/gofhir/pkg/cql/builder"
	"github.com/fhirlang/gofhir/pkg/cql/elm"
	"github.com/fhirlang/gofhir/pkg/cql/parser"
)

func build(t *testing.T, src string, opts builder.Options) (*elm.Library, []builder.Diagnostic) {
	t.Helper()
	lib, diags := parser.Parse(src)
	require.Empty(t, diags)
	return builder.Build(lib, opts)
}

func TestBuildSimpleDefine(t *testing.T) {
	out, diags := build(t, `define "One": 1`, builder.DefaultOptions())
	require.Empty(t, diags)
	require.NotNil(t, out.Statements)
	require.Len(t, out.Statements.Def, 1)
	def, ok := out.Statements.Def[0].(elm.ExpressionDef)
	require.True(t, ok)
	assert.Equal(t, "One", def.Name)
	lit, ok := def.Expression.(elm.Literal)
	require.True(t, ok)
	assert.Equal(t, "1", lit.Value)
}

func TestBuildUnresolvedIdentifierIsError(t *testing.T) {
	_, diags := build(t, `define "Bad": Nonexistent`, builder.DefaultOptions())
	require.NotEmpty(t, diags)
	assert.Equal(t, builder.SeverityError, diags[0].Severity)
}

func TestBuildExpressionRefResolvesStatement(t *testing.T) {
	out, diags := build(t, `
define "Base": 1
define "Derived": Base + 1
`, builder.DefaultOptions())
	require.Empty(t, diags)
	def := out.Statements.Def[1].(elm.ExpressionDef)
	bin := def.Expression.(elm.Binary)
	assert.Equal(t, "Add", bin.Type)
	_, ok := bin.Operand[0].(elm.ExpressionRef)
	assert.True(t, ok)
}

func TestBuildQueryAliasResolution(t *testing.T) {
	out, diags := build(t, `
define "Names": { 'a', 'b' } N where N = 'a' return N
`, builder.DefaultOptions())
	require.Empty(t, diags)
	def := out.Statements.Def[0].(elm.ExpressionDef)
	q, ok := def.Expression.(elm.Query)
	require.True(t, ok)
	require.Len(t, q.Source, 1)
	assert.Equal(t, "N", q.Source[0].Alias)
	require.NotNil(t, q.Where)
}

func TestBuildValueSetRetrieve(t *testing.T) {
	out, diags := build(t, `
valueset "Diabetes": 'http://example.org/vs/diabetes'
define "Cond": [Condition: "Diabetes"]
`, builder.DefaultOptions())
	require.Empty(t, diags)
	def := out.Statements.Def[0].(elm.ExpressionDef)
	r, ok := def.Expression.(elm.Retrieve)
	require.True(t, ok)
	vsRef, ok := r.Codes.(elm.ValueSetRef)
	require.True(t, ok)
	assert.Equal(t, "Diabetes", vsRef.Name)
}

func TestBuildVerifyOnlyDiscardsLibrary(t *testing.T) {
	opts := builder.DefaultOptions()
	opts.VerifyOnly = true
	out, diags := build(t, `define "One": 1`, opts)
	assert.Nil(t, out)
	assert.Empty(t, diags)
}

func TestBuildAnonymousLibraryGetsSyntheticIdentifier(t *testing.T) {
	out, diags := build(t, `define "One": 1`, builder.DefaultOptions())
	require.Empty(t, diags)
	require.NotNil(t, out.Identifier)
	assert.True(t, strings.HasPrefix(out.Identifier.ID, "anonymous-"))
}

func TestBuildDecimalLiteralCanonicalized(t *testing.T) {
	out, diags := build(t, `define "D": 1.50`, builder.DefaultOptions())
	require.Empty(t, diags)
	def := out.Statements.Def[0].(elm.ExpressionDef)
	lit := def.Expression.(elm.Literal)
	assert.Equal(t, "1.5", lit.Value)
}

func TestBuildLocatorsStampedWhenEnabled(t *testing.T) {
	opts := builder.DefaultOptions()
	opts.EnableLocators = true
	out, diags := build(t, `define "One": 1 + 2`, opts)
	require.Empty(t, diags)
	def := out.Statements.Def[0].(elm.ExpressionDef)
	bin := def.Expression.(elm.Binary)
	assert.NotEmpty(t, bin.Locator)
}

func TestBuildUnresolvedIdentifierLocatorWhenEnabled(t *testing.T) {
	opts := builder.DefaultOptions()
	opts.EnableLocators = true
	_, diags := build(t, `define "Bad": Nonexistent`, opts)
	require.NotEmpty(t, diags)
	assert.NotEmpty(t, diags[0].Locator)
}

func TestBuildFunctionDef(t *testing.T) {
	out, diags := build(t, `
define function Double(x Integer): x * 2
`, builder.DefaultOptions())
	require.Empty(t, diags)
	fn, ok := out.Statements.Def[0].(elm.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "Double", fn.Name)
	require.Len(t, fn.Operand, 1)
	assert.Equal(t, "x", fn.Operand[0].Name)
}
