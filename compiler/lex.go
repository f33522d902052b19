package compiler

import (
	"fmt"
	"strconv"
)

// Lexer turns source bytes into tokens. It tracks line and column so every
// token carries its position.
type Lexer struct {
	input []byte
	pos   int
	line  int
	col   int
}

func NewLexer(input []byte) *Lexer {
	return &Lexer{input: input, line: 1, col: 1}
}

// Tokenize lexes the whole input. The last token is always EOF. The first
// malformed token aborts lexing with a *SyntaxError.
func Tokenize(src []byte) ([]Token, error) {
	l := NewLexer(src)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) peekByte(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) advance() byte {
	c := l.input[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) errorf(pos Position, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.advance()
			continue
		}
		if c == '/' && l.peekByte(1) == '/' {
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
			continue
		}
		return
	}
}

// twoCharOps maps an operator's first byte and second byte to its kind.
var twoCharOps = map[[2]byte]TokenKind{
	{'=', '='}: EQ,
	{'!', '='}: NOT_EQ,
	{'<', '='}: LE,
	{'>', '='}: GE,
	{'&', '&'}: AND,
	{'|', '|'}: OR,
	{'-', '>'}: ARROW,
}

var oneCharOps = map[byte]TokenKind{
	'=': ASSIGN,
	'+': PLUS,
	'-': MINUS,
	'*': ASTERISK,
	'/': SLASH,
	'%': PERCENT,
	'!': BANG,
	'<': LT,
	'>': GT,
	',': COMMA,
	';': SEMICOLON,
	':': COLON,
	'.': DOT,
	'(': LPAREN,
	')': RPAREN,
	'{': LBRACE,
	'}': RBRACE,
	'[': LBRACKET,
	']': RBRACKET,
}

// NextToken scans the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()
	start := Position{Line: l.line, Col: l.col}

	if l.pos >= len(l.input) {
		return Token{Kind: EOF, Pos: start}, nil
	}

	c := l.input[l.pos]

	if kind, ok := twoCharOps[[2]byte{c, l.peekByte(1)}]; ok {
		l.advance()
		l.advance()
		return Token{Kind: kind, Text: string(kind), Pos: start}, nil
	}
	if kind, ok := oneCharOps[c]; ok {
		l.advance()
		return Token{Kind: kind, Text: string(kind), Pos: start}, nil
	}

	switch {
	case isLetter(c):
		lit := l.readIdentifier()
		if kind, ok := keywords[lit]; ok {
			return Token{Kind: kind, Text: lit, Pos: start}, nil
		}
		return Token{Kind: IDENT, Text: lit, Pos: start}, nil

	case isDigit(c):
		return l.readNumber(start)

	case c == '"':
		s, err := l.readQuoted('"', start)
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: STRING_LIT, Text: s, Pos: start}, nil

	case c == '\'':
		s, err := l.readQuoted('\'', start)
		if err != nil {
			return Token{}, err
		}
		if len(s) != 1 {
			return Token{}, l.errorf(start, "character literal must hold exactly one character")
		}
		return Token{Kind: CHAR_LIT, Text: s, Int: int64(s[0]), Pos: start}, nil
	}

	return Token{}, l.errorf(start, "unexpected character %q", c)
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for l.pos < len(l.input) && (isLetter(l.input[l.pos]) || isDigit(l.input[l.pos])) {
		l.advance()
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) readNumber(start Position) (Token, error) {
	begin := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.advance()
	}
	isFloat := false
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		isFloat = true
		l.advance() // skip '.'
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.advance()
		}
	}
	lit := string(l.input[begin:l.pos])

	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Token{}, l.errorf(start, "invalid float literal %s", lit)
		}
		return Token{Kind: FLOAT_LIT, Text: lit, Float: f, Pos: start}, nil
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return Token{}, l.errorf(start, "integer literal %s out of range", lit)
	}
	return Token{Kind: INT_LIT, Text: lit, Int: n, Pos: start}, nil
}

func (l *Lexer) readQuoted(quote byte, start Position) (string, error) {
	l.advance() // skip opening quote
	var buf []byte
	for {
		if l.pos >= len(l.input) || l.input[l.pos] == '\n' {
			return "", l.errorf(start, "unterminated literal")
		}
		c := l.advance()
		if c == quote {
			return string(buf), nil
		}
		if c != '\\' {
			buf = append(buf, c)
			continue
		}
		if l.pos >= len(l.input) {
			return "", l.errorf(start, "unterminated literal")
		}
		esc := l.advance()
		switch esc {
		case 'n':
			buf = append(buf, '\n')
		case 't':
			buf = append(buf, '\t')
		case '0':
			buf = append(buf, 0)
		case '\\', '\'', '"':
			buf = append(buf, esc)
		default:
			return "", l.errorf(start, "invalid escape sequence \\%c", esc)
		}
	}
}
