package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func kinds(tokens []Token) []TokenKind {
	var out []TokenKind
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func TestTokenizeOperators(t *testing.T) {
	tokens, err := Tokenize([]byte("= == ! != < <= > >= && || + - * / % -> . , ; : ( ) { } [ ]"))
	be.Err(t, err, nil)
	be.Equal(t, kinds(tokens), []TokenKind{
		ASSIGN, EQ, BANG, NOT_EQ, LT, LE, GT, GE, AND, OR,
		PLUS, MINUS, ASTERISK, SLASH, PERCENT, ARROW, DOT, COMMA, SEMICOLON, COLON,
		LPAREN, RPAREN, LBRACE, RBRACE, LBRACKET, RBRACKET, EOF,
	})
}

func TestTokenizeKeywordsAndIdentifiers(t *testing.T) {
	tokens, err := Tokenize([]byte("def return if else while for print true false include class list graph int float char string bool void value _tmp x1"))
	be.Err(t, err, nil)
	be.Equal(t, kinds(tokens), []TokenKind{
		DEF, RETURN, IF, ELSE, WHILE, FOR, PRINT, TRUE, FALSE, INCLUDE, CLASS, LIST, GRAPH,
		INT, FLOAT, CHAR, STRING, BOOL, VOID, IDENT, IDENT, IDENT, EOF,
	})
	be.Equal(t, tokens[19].Text, "value")
	be.Equal(t, tokens[20].Text, "_tmp")
}

func TestTokenizeLiterals(t *testing.T) {
	tokens, err := Tokenize([]byte(`42 3.25 'a' '\n' "hi\tthere" 7.`))
	be.Err(t, err, nil)
	be.Equal(t, kinds(tokens), []TokenKind{INT_LIT, FLOAT_LIT, CHAR_LIT, CHAR_LIT, STRING_LIT, INT_LIT, DOT, EOF})
	be.Equal(t, tokens[0].Int, int64(42))
	be.Equal(t, tokens[1].Float, 3.25)
	be.Equal(t, tokens[2].Int, int64('a'))
	be.Equal(t, tokens[3].Int, int64('\n'))
	be.Equal(t, tokens[4].Text, "hi\tthere")
}

func TestTokenizePositions(t *testing.T) {
	tokens, err := Tokenize([]byte("x: int;\n  // comment\n  y = 2;"))
	be.Err(t, err, nil)
	be.Equal(t, tokens[0].Pos, Position{Line: 1, Col: 1})
	be.Equal(t, tokens[2].Pos, Position{Line: 1, Col: 4})
	be.Equal(t, tokens[4].Kind, IDENT)
	be.Equal(t, tokens[4].Pos, Position{Line: 3, Col: 3})
	be.Equal(t, tokens[4].Pos.String(), "3:3")
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"@", "unexpected character '@'"},
		{`"open`, "unterminated literal"},
		{"'ab'", "exactly one character"},
		{"''", "exactly one character"},
		{`"\q"`, `invalid escape sequence \q`},
		{"99999999999999999999", "out of range"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, err := Tokenize([]byte(test.input))
			var se *SyntaxError
			be.True(t, errors.As(err, &se))
			be.True(t, strings.Contains(se.Msg, test.msg))
		})
	}
}
