package compiler

import (
	"strconv"
	"strings"
)

// ToSExpr renders a node as an S-expression for debugging and tests.
// Statement lists are rendered in square brackets.
func ToSExpr(node Node) string {
	var b strings.Builder
	writeSExpr(&b, node)
	return b.String()
}

func writeSExpr(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case nil:
		b.WriteString("nil")
	case *IntLit:
		b.WriteString("(int " + strconv.FormatInt(n.Value, 10) + ")")
	case *FloatLit:
		b.WriteString("(float " + strconv.FormatFloat(n.Value, 'g', -1, 64) + ")")
	case *CharLit:
		b.WriteString("(char " + strconv.Quote(string([]byte{n.Value})) + ")")
	case *StringLit:
		b.WriteString("(string " + strconv.Quote(n.Value) + ")")
	case *BoolLit:
		b.WriteString("(bool " + strconv.FormatBool(n.Value) + ")")
	case *Ident:
		b.WriteString("(var " + strconv.Quote(n.Name) + ")")
	case *Binary:
		b.WriteString("(binary " + strconv.Quote(n.Op) + " ")
		writeSExpr(b, n.Left)
		b.WriteString(" ")
		writeSExpr(b, n.Right)
		b.WriteString(")")
	case *Unary:
		b.WriteString("(unary " + strconv.Quote(n.Op) + " ")
		writeSExpr(b, n.Operand)
		b.WriteString(")")
	case *VarDecl:
		b.WriteString("(decl " + strconv.Quote(n.Name) + " " + n.Declared.String() + ")")
	case *VarDef:
		b.WriteString("(defn " + strconv.Quote(n.Name) + " " + n.Declared.String() + " ")
		writeSExpr(b, n.Value)
		b.WriteString(")")
	case *Assign:
		b.WriteString("(assign " + strconv.Quote(n.Name) + " ")
		writeSExpr(b, n.Value)
		b.WriteString(")")
	case *FieldAssign:
		b.WriteString("(field-assign ")
		writeSExpr(b, n.Target)
		b.WriteString(" ")
		writeSExpr(b, n.Value)
		b.WriteString(")")
	case *Return:
		if n.Value == nil {
			b.WriteString("(return)")
			return
		}
		b.WriteString("(return ")
		writeSExpr(b, n.Value)
		b.WriteString(")")
	case *If:
		b.WriteString("(if ")
		writeSExpr(b, n.Cond)
		b.WriteString(" ")
		writeList(b, n.Then)
		if n.Else != nil {
			b.WriteString(" ")
			writeList(b, n.Else)
		}
		b.WriteString(")")
	case *While:
		b.WriteString("(while ")
		writeSExpr(b, n.Cond)
		b.WriteString(" ")
		writeList(b, n.Body)
		b.WriteString(")")
	case *For:
		b.WriteString("(for ")
		writeSExpr(b, n.Init)
		b.WriteString(" ")
		writeSExpr(b, n.Cond)
		b.WriteString(" ")
		writeSExpr(b, n.Step)
		b.WriteString(" ")
		writeList(b, n.Body)
		b.WriteString(")")
	case *Call:
		b.WriteString("(call " + strconv.Quote(n.Name) + " ")
		writeList(b, n.Args)
		b.WriteString(")")
	case *FuncDef:
		b.WriteString("(func " + strconv.Quote(n.Name) + " [")
		for i, param := range n.Params {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("(param " + strconv.Quote(param.Name) + " " + param.Type.String() + ")")
		}
		b.WriteString("] " + n.Return.String() + " ")
		writeList(b, n.Body)
		b.WriteString(")")
	case *Print:
		b.WriteString("(print ")
		writeSExpr(b, n.Value)
		b.WriteString(")")
	case *ListDecl:
		b.WriteString("(list " + strconv.Quote(n.Name) + " " + n.Elem.String() + " ")
		writeList(b, n.Elements)
		b.WriteString(")")
	case *GraphDecl:
		b.WriteString("(graph " + strconv.Quote(n.Name) + " " + n.Elem.String() + ")")
	case *ClassDecl:
		b.WriteString("(class " + strconv.Quote(n.Name) + " [")
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("(field " + strconv.Quote(f.Name) + " " + f.Type.String() + ")")
		}
		b.WriteString("])")
	case *DotCall:
		b.WriteString("(dot ")
		writeSExpr(b, n.Receiver)
		b.WriteString(" " + strconv.Quote(n.Member))
		if n.HasParens {
			b.WriteString(" ")
			writeList(b, n.Args)
		}
		b.WriteString(")")
	case *Include:
		b.WriteString("(include " + n.Library + ")")
	case *ExprStmt:
		writeSExpr(b, n.X)
	case *Program:
		b.WriteString("(program")
		for _, item := range n.Body {
			b.WriteString(" ")
			writeSExpr(b, item)
		}
		b.WriteString(")")
	default:
		b.WriteString("(unknown)")
	}
}

func writeList(b *strings.Builder, nodes []Node) {
	b.WriteString("[")
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(" ")
		}
		writeSExpr(b, n)
	}
	b.WriteString("]")
}
