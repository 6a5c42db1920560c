package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Sprint renders e back to FHIRPath surface syntax. It is not guaranteed to
// reproduce the original source byte-for-byte (string quoting and literal
// spelling are normalized) but parsing its output reproduces the same tree.
func Sprint(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		return
	case *NullLiteral:
		sb.WriteString("{}")
	case *BooleanLiteral:
		sb.WriteString(strconv.FormatBool(n.Value))
	case *StringLiteral:
		sb.WriteByte('\'')
		sb.WriteString(strings.ReplaceAll(n.Value, "'", "\\'"))
		sb.WriteByte('\'')
	case *NumberLiteral:
		sb.WriteString(n.Text)
	case *DateLiteral:
		sb.WriteByte('@')
		sb.WriteString(n.Text)
	case *DateTimeLiteral:
		sb.WriteByte('@')
		sb.WriteString(n.Text)
	case *TimeLiteral:
		sb.WriteString("@T")
		sb.WriteString(n.Text)
	case *QuantityLiteral:
		sb.WriteString(n.Text)
	case *Identifier:
		sb.WriteString(n.Name)
	case *ExternalConstant:
		sb.WriteByte('%')
		sb.WriteString(n.Name)
	case *ThisInvocation:
		sb.WriteString("$this")
	case *IndexInvocation:
		sb.WriteString("$index")
	case *TotalInvocation:
		sb.WriteString("$total")
	case *FunctionCall:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, a)
		}
		sb.WriteByte(')')
	case *Invocation:
		writeExpr(sb, n.Base)
		sb.WriteByte('.')
		writeExpr(sb, n.Member)
	case *Indexer:
		writeExpr(sb, n.Base)
		sb.WriteByte('[')
		writeExpr(sb, n.Index)
		sb.WriteByte(']')
	case *Polarity:
		sb.WriteString(n.Op)
		writeExpr(sb, n.Operand)
	case *Binary:
		sb.WriteByte('(')
		writeExpr(sb, n.Left)
		sb.WriteByte(' ')
		sb.WriteString(n.Op)
		sb.WriteByte(' ')
		writeExpr(sb, n.Right)
		sb.WriteByte(')')
	case *TypeExpr:
		sb.WriteByte('(')
		writeExpr(sb, n.Operand)
		sb.WriteByte(' ')
		sb.WriteString(n.Op)
		sb.WriteByte(' ')
		sb.WriteString(n.TypeName)
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "<unknown %T>", e)
	}
}

// Dump renders e as an indented debug tree, one node per line, used by the
// CLI's `fhirpath parse --format debug` output.
func Dump(e Expr) string {
	var sb strings.Builder
	dumpExpr(&sb, e, 0)
	return sb.String()
}

func dumpExpr(sb *strings.Builder, e Expr, depth int) {
	indent := strings.Repeat("  ", depth)
	if e == nil {
		fmt.Fprintf(sb, "%s<nil>\n", indent)
		return
	}
	switch n := e.(type) {
	case *NullLiteral:
		fmt.Fprintf(sb, "%sNullLiteral\n", indent)
	case *BooleanLiteral:
		fmt.Fprintf(sb, "%sBooleanLiteral %v\n", indent, n.Value)
	case *StringLiteral:
		fmt.Fprintf(sb, "%sStringLiteral %q\n", indent, n.Value)
	case *NumberLiteral:
		fmt.Fprintf(sb, "%sNumberLiteral %s\n", indent, n.Text)
	case *DateLiteral:
		fmt.Fprintf(sb, "%sDateLiteral @%s\n", indent, n.Text)
	case *DateTimeLiteral:
		fmt.Fprintf(sb, "%sDateTimeLiteral @%s\n", indent, n.Text)
	case *TimeLiteral:
		fmt.Fprintf(sb, "%sTimeLiteral @T%s\n", indent, n.Text)
	case *QuantityLiteral:
		fmt.Fprintf(sb, "%sQuantityLiteral %s\n", indent, n.Text)
	case *Identifier:
		fmt.Fprintf(sb, "%sIdentifier %s\n", indent, n.Name)
	case *ExternalConstant:
		fmt.Fprintf(sb, "%sExternalConstant %%%s\n", indent, n.Name)
	case *ThisInvocation:
		fmt.Fprintf(sb, "%sThisInvocation\n", indent)
	case *IndexInvocation:
		fmt.Fprintf(sb, "%sIndexInvocation\n", indent)
	case *TotalInvocation:
		fmt.Fprintf(sb, "%sTotalInvocation\n", indent)
	case *FunctionCall:
		fmt.Fprintf(sb, "%sFunctionCall %s\n", indent, n.Name)
		for _, a := range n.Args {
			dumpExpr(sb, a, depth+1)
		}
	case *Invocation:
		fmt.Fprintf(sb, "%sInvocation\n", indent)
		dumpExpr(sb, n.Base, depth+1)
		dumpExpr(sb, n.Member, depth+1)
	case *Indexer:
		fmt.Fprintf(sb, "%sIndexer\n", indent)
		dumpExpr(sb, n.Base, depth+1)
		dumpExpr(sb, n.Index, depth+1)
	case *Polarity:
		fmt.Fprintf(sb, "%sPolarity %s\n", indent, n.Op)
		dumpExpr(sb, n.Operand, depth+1)
	case *Binary:
		fmt.Fprintf(sb, "%sBinary %s\n", indent, n.Op)
		dumpExpr(sb, n.Left, depth+1)
		dumpExpr(sb, n.Right, depth+1)
	case *TypeExpr:
		fmt.Fprintf(sb, "%sTypeExpr %s %s\n", indent, n.Op, n.TypeName)
		dumpExpr(sb, n.Operand, depth+1)
	default:
		fmt.Fprintf(sb, "%s<unknown %T>\n", indent, e)
	}
}
