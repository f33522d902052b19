package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"test_var", "test_var"},
		{"field-assign", "field-assign"},
		{"list<int>", "list<int>"},
		{"_", "_"},
		{"-", "-"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeSymbol)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		output   string
	}{
		{`"hello"`, "hello", `"hello"`},
		{`"hello world"`, "hello world", `"hello world"`},
		{`""`, "", `""`},
		{`"test\"quote"`, `test"quote`, `"test\"quote"`},
		{`"test\\backslash"`, `test\backslash`, `"test\\backslash"`},
		{`"line\n"`, "line\n", `"line\n"`},
		{`"\x00"`, "\x00", `"\x00"`},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeString)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.output)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []string{"42", "0", "-123", "+456", "1.5", "-0.25"}

	for _, input := range tests {
		result, err := Parse(input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeNumber)
		be.Equal(t, result.Text, input)
		be.Equal(t, result.String(), input)
	}
}

func TestNumberInt(t *testing.T) {
	n, err := Parse("-17")
	be.Err(t, err, nil)
	v, err := n.Int()
	be.Err(t, err, nil)
	be.Equal(t, v, int64(-17))

	sym, err := Parse("x")
	be.Err(t, err, nil)
	_, err = sym.Int()
	be.True(t, err != nil)
}

func TestParseEllipsis(t *testing.T) {
	result, err := Parse("...")
	be.Err(t, err, nil)

	be.Equal(t, result.Type, NodeEllipsis)
	be.Equal(t, result.String(), "...")
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"()", "()"},
		{"(hello)", "(hello)"},
		{"(1 2 3)", "(1 2 3)"},
		{"(binary \"+\" (int 1) (int 2))", "(binary \"+\" (int 1) (int 2))"},
		{"(nested (list here))", "(nested (list here))"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeList)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseArray(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[]", "[]"},
		{"[1]", "[1]"},
		{"[1 2 3]", "[1 2 3]"},
		{"[(return (var \"x\"))]", "[(return (var \"x\"))]"},
		{"[[nested] array]", "[[nested] array]"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeArray)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseMap(t *testing.T) {
	result, err := Parse(`{x: int, ys: list<float>, "main": {ret: 1}}`)
	be.Err(t, err, nil)
	be.Equal(t, result.Type, NodeMap)
	be.Equal(t, result.Keys, []string{"x", "ys", "main"})
	be.Equal(t, result.String(), `{x: int, ys: list<float>, main: {ret: 1}}`)

	ys, ok := result.Get("ys")
	be.True(t, ok)
	be.Equal(t, ys.Text, "list<float>")

	_, ok = result.Get("missing")
	be.Equal(t, ok, false)

	empty, err := Parse("{}")
	be.Err(t, err, nil)
	be.Equal(t, empty.Type, NodeMap)
	be.Equal(t, len(empty.Keys), 0)
}

func TestParseComments(t *testing.T) {
	result, err := Parse(`
; the whole program
(program ; first item follows
  (int 1))
`)
	be.Err(t, err, nil)
	be.Equal(t, result.String(), "(program (int 1))")
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input string
		err   string
	}{
		{"(", "expected ')'"},
		{"[1 2", "expected ']'"},
		{"{x 1}", "expected ':'"},
		{"{1: x}", "expected symbol for map key"},
		{")", "unexpected token"},
		{"a b", "expected EOF"},
		{".", "unexpected character '.'"},
		{`"open`, "unterminated string"},
		{`"\q"`, "invalid escape sequence"},
		{"@", "unexpected character '@'"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, err := Parse(test.input)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), test.err))
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		actual  string
		match   bool
	}{
		{`(int 1)`, `(int 1)`, true},
		{`(int 1)`, `(int 2)`, false},
		{`(float 1.50)`, `(float 1.5)`, true},
		{`(var _)`, `(var "x")`, true},
		{`_`, `(binary "+" (int 1) (int 2))`, true},
		{`(binary "+" ...)`, `(binary "+" (int 1) (int 2))`, true},
		{`(binary "-" ...)`, `(binary "+" (int 1) (int 2))`, false},
		{`(call "f" [...])`, `(call "f" [(int 1) (int 2)])`, true},
		{`(call "f" [])`, `(call "f" [(int 1)])`, false},
		{`(program (func "f" ...) ...)`, `(program (func "f" [] int []) (print (int 1)))`, true},
		{`[(int 1) (int 2)]`, `[(int 1)]`, false},
		{`(string "a")`, `(string a)`, false},
		{`{x: int}`, `{x: int, y: float}`, true},
		{`{x: int, z: bool}`, `{x: int, y: float}`, false},
		{`{f: {add: 1}}`, `{f: {add: 1, ret: 1}}`, true},
		{`{f: {add: 2}}`, `{f: {add: 1, ret: 1}}`, false},
	}

	for _, test := range tests {
		t.Run(test.pattern+" ~ "+test.actual, func(t *testing.T) {
			pattern, err := Parse(test.pattern)
			be.Err(t, err, nil)
			actual, err := Parse(test.actual)
			be.Err(t, err, nil)
			be.Equal(t, Match(pattern, actual), test.match)
		})
	}
}

func TestNodeTypeHelpers(t *testing.T) {
	be.True(t, NewSymbol("x").IsAtom())
	be.True(t, NewString("x").IsAtom())
	be.True(t, NewNumber("1").IsAtom())
	be.True(t, NewEllipsis().IsAtom())
	be.Equal(t, NewList(nil).IsAtom(), false)
	be.Equal(t, NewArray(nil).IsAtom(), false)
	be.Equal(t, NewMap(nil, nil).IsAtom(), false)
}
