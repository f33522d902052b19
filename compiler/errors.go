package compiler

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a semantic analysis failure.
type ErrorKind int

const (
	ErrRedeclaration ErrorKind = iota + 1
	ErrUndeclaredIdentifier
	ErrUseBeforeInitialization
	ErrTypeMismatch
	ErrDuplicateFunction
	ErrUndeclaredFunction
	ErrArityMismatch
	ErrArgumentTypeMismatch
	ErrReturnTypeMismatch
	ErrInvalidDotCall
	ErrUnknownMember
)

var errorKindNames = map[ErrorKind]string{
	ErrRedeclaration:           "redeclaration",
	ErrUndeclaredIdentifier:    "undeclared-identifier",
	ErrUseBeforeInitialization: "use-before-initialization",
	ErrTypeMismatch:            "type-mismatch",
	ErrDuplicateFunction:       "duplicate-function",
	ErrUndeclaredFunction:      "undeclared-function",
	ErrArityMismatch:           "arity-mismatch",
	ErrArgumentTypeMismatch:    "argument-type-mismatch",
	ErrReturnTypeMismatch:      "return-type-mismatch",
	ErrInvalidDotCall:          "invalid-dot-call",
	ErrUnknownMember:           "unknown-member",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// SemanticError is the single error reported by a failed analysis pass.
// Which detail fields are set depends on Kind.
type SemanticError struct {
	Kind ErrorKind
	Pos  Position

	Name     string // identifier, function, class or receiver name
	Member   string // dot-call member
	Op       string // binary or unary operator
	Expected Type
	Actual   Type
	Left     Type // binary operand types
	Right    Type
	WantArgs int
	GotArgs  int
	Arg      int // 1-based argument position
	Detail   string
}

func (e *SemanticError) Error() string {
	var msg string
	switch e.Kind {
	case ErrRedeclaration:
		msg = fmt.Sprintf("'%s' already declared in this scope", e.Name)
	case ErrUndeclaredIdentifier:
		msg = fmt.Sprintf("'%s' is not declared", e.Name)
	case ErrUseBeforeInitialization:
		msg = fmt.Sprintf("variable '%s' used before initialization", e.Name)
	case ErrTypeMismatch:
		if e.Op != "" && e.Left != TypeUnresolved {
			msg = fmt.Sprintf("operator '%s' cannot be applied to %s and %s", e.Op, e.Left, e.Right)
		} else if e.Op != "" {
			msg = fmt.Sprintf("operator '%s' cannot be applied to %s", e.Op, e.Right)
		} else if e.Expected == TypeUnresolved {
			msg = fmt.Sprintf("value of type %s not allowed here", e.Actual)
		} else {
			msg = fmt.Sprintf("expected %s but got %s", e.Expected, e.Actual)
		}
	case ErrDuplicateFunction:
		msg = fmt.Sprintf("function '%s' already defined", e.Name)
	case ErrUndeclaredFunction:
		msg = fmt.Sprintf("function '%s' is not defined", e.Name)
	case ErrArityMismatch:
		msg = fmt.Sprintf("'%s' expects %d arguments but got %d", e.Name, e.WantArgs, e.GotArgs)
	case ErrArgumentTypeMismatch:
		msg = fmt.Sprintf("argument %d of '%s' expects %s but got %s", e.Arg, e.Name, e.Expected, e.Actual)
	case ErrReturnTypeMismatch:
		msg = fmt.Sprintf("expected return of %s but got %s", e.Expected, e.Actual)
	case ErrInvalidDotCall:
		msg = fmt.Sprintf("'%s' of type %s does not support member access", e.Name, e.Actual)
	case ErrUnknownMember:
		msg = fmt.Sprintf("%s has no member '%s'", e.Actual, e.Member)
	default:
		msg = "semantic error"
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, msg)
}

// InternalError reports a broken compiler invariant found during code
// generation or IR verification. It never describes a mistake in the user's
// program.
type InternalError struct {
	Pos Position
	Msg string
}

func (e *InternalError) Error() string {
	if e.Pos == (Position{}) {
		return "internal compiler error: " + e.Msg
	}
	return fmt.Sprintf("internal compiler error at %s: %s", e.Pos, e.Msg)
}

// SyntaxError is reported by the lexer and parser.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax error: %s", e.Pos, e.Msg)
}

// ParseErrorKind maps a kebab-case kind name back to its ErrorKind.
func ParseErrorKind(name string) (ErrorKind, bool) {
	for k, n := range errorKindNames {
		if n == strings.TrimSpace(name) {
			return k, true
		}
	}
	return 0, false
}
