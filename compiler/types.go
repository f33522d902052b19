package compiler

// Kind is the tag of a Pyroxene value type.
type Kind uint8

const (
	KindUnresolved Kind = iota
	KindInt
	KindFloat
	KindChar
	KindString
	KindBool
	KindVoid
	KindList
	KindGraph
	KindClass
)

var kindNames = [...]string{
	KindUnresolved: "unresolved",
	KindInt:        "int",
	KindFloat:      "float",
	KindChar:       "char",
	KindString:     "string",
	KindBool:       "bool",
	KindVoid:       "void",
	KindList:       "list",
	KindGraph:      "graph",
	KindClass:      "class",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScalar reports whether values of this kind fit in a single register and
// may be stored in lists and graphs.
func (k Kind) IsScalar() bool {
	switch k {
	case KindInt, KindFloat, KindChar, KindString, KindBool:
		return true
	}
	return false
}

// Type is a small copyable type tag. Elem is set for list and graph types,
// Class for class types. The zero Type is the unresolved sentinel.
type Type struct {
	Kind  Kind
	Elem  Kind
	Class string
}

var (
	TypeUnresolved = Type{}
	TypeInt        = Type{Kind: KindInt}
	TypeFloat      = Type{Kind: KindFloat}
	TypeChar       = Type{Kind: KindChar}
	TypeString     = Type{Kind: KindString}
	TypeBool       = Type{Kind: KindBool}
	TypeVoid       = Type{Kind: KindVoid}
)

func ListOf(elem Kind) Type  { return Type{Kind: KindList, Elem: elem} }
func GraphOf(elem Kind) Type { return Type{Kind: KindGraph, Elem: elem} }
func ClassType(name string) Type {
	return Type{Kind: KindClass, Class: name}
}

func (t Type) String() string {
	switch t.Kind {
	case KindList, KindGraph:
		return t.Kind.String() + "<" + t.Elem.String() + ">"
	case KindClass:
		return t.Class
	}
	return t.Kind.String()
}

// ElemType is the element type of a list or graph.
func (t Type) ElemType() Type {
	return Type{Kind: t.Elem}
}

// IsAggregate reports whether the type supports dot-call member access.
func (t Type) IsAggregate() bool {
	return t.Kind == KindList || t.Kind == KindGraph || t.Kind == KindClass
}

// IsAssignable is the single authority on whether a value of type value may
// initialize or be stored into a slot of type target. It is used by variable
// definitions, assignments, field assignments, returns, call and method
// arguments, and list literal elements.
//
// The table: every type is assignable to itself, and int widens to float.
// Nothing else converts implicitly.
func IsAssignable(target, value Type) bool {
	if target.Kind == KindUnresolved || value.Kind == KindUnresolved {
		return false
	}
	if target == value {
		return true
	}
	return target == TypeFloat && value == TypeInt
}

type binaryKey struct {
	op          string
	left, right Kind
}

var binaryTable = map[binaryKey]Kind{}

func init() {
	numeric := [][2]Kind{
		{KindInt, KindInt},
		{KindFloat, KindFloat},
		{KindInt, KindFloat},
		{KindFloat, KindInt},
	}
	for _, op := range []string{"+", "-", "*", "/"} {
		for _, pair := range numeric {
			result := KindInt
			if pair[0] == KindFloat || pair[1] == KindFloat {
				result = KindFloat
			}
			binaryTable[binaryKey{op, pair[0], pair[1]}] = result
		}
	}
	binaryTable[binaryKey{"%", KindInt, KindInt}] = KindInt

	ordered := append(numeric, [2]Kind{KindChar, KindChar})
	for _, op := range []string{"<", "<=", ">", ">="} {
		for _, pair := range ordered {
			binaryTable[binaryKey{op, pair[0], pair[1]}] = KindBool
		}
	}
	equatable := append(ordered, [2]Kind{KindBool, KindBool}, [2]Kind{KindString, KindString})
	for _, op := range []string{"==", "!="} {
		for _, pair := range equatable {
			binaryTable[binaryKey{op, pair[0], pair[1]}] = KindBool
		}
	}
	for _, op := range []string{"&&", "||"} {
		binaryTable[binaryKey{op, KindBool, KindBool}] = KindBool
	}
}

// BinaryResultType resolves the result type of left op right. The second
// result is false if the combination is not in the operator table.
func BinaryResultType(op string, left, right Type) (Type, bool) {
	if !left.Kind.IsScalar() || !right.Kind.IsScalar() {
		return TypeUnresolved, false
	}
	result, ok := binaryTable[binaryKey{op, left.Kind, right.Kind}]
	if !ok {
		return TypeUnresolved, false
	}
	return Type{Kind: result}, true
}

// UnaryResultType resolves the result type of op operand.
func UnaryResultType(op string, operand Type) (Type, bool) {
	switch {
	case op == "-" && (operand == TypeInt || operand == TypeFloat):
		return operand, true
	case op == "!" && operand == TypeBool:
		return TypeBool, true
	}
	return TypeUnresolved, false
}

// operandType is the type both operands of a binary operator are converted to
// before the instruction is emitted: float if either side is float.
func operandType(left, right Type) Type {
	if left == TypeFloat || right == TypeFloat {
		return TypeFloat
	}
	return left
}

// isComparison reports whether op yields a bool from two comparable operands.
func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}
