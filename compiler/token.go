package compiler

import "strconv"

// Position is a 1-based line and column in the source text.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Col)
}

// TokenKind is the kind of token (identifier, operator, literal, etc.).
type TokenKind string

const (
	// Special tokens
	ILLEGAL TokenKind = "ILLEGAL"
	EOF     TokenKind = "EOF"

	// Identifiers + literals
	IDENT      TokenKind = "IDENT"
	INT_LIT    TokenKind = "INT_LIT"
	FLOAT_LIT  TokenKind = "FLOAT_LIT"
	CHAR_LIT   TokenKind = "CHAR_LIT"
	STRING_LIT TokenKind = "STRING_LIT"

	// Operators
	ASSIGN   TokenKind = "="
	PLUS     TokenKind = "+"
	MINUS    TokenKind = "-"
	ASTERISK TokenKind = "*"
	SLASH    TokenKind = "/"
	PERCENT  TokenKind = "%"
	BANG     TokenKind = "!"

	EQ     TokenKind = "=="
	NOT_EQ TokenKind = "!="
	LT     TokenKind = "<"
	LE     TokenKind = "<="
	GT     TokenKind = ">"
	GE     TokenKind = ">="
	AND    TokenKind = "&&"
	OR     TokenKind = "||"

	// Delimiters
	COMMA     TokenKind = ","
	SEMICOLON TokenKind = ";"
	COLON     TokenKind = ":"
	DOT       TokenKind = "."
	ARROW     TokenKind = "->"
	LPAREN    TokenKind = "("
	RPAREN    TokenKind = ")"
	LBRACE    TokenKind = "{"
	RBRACE    TokenKind = "}"
	LBRACKET  TokenKind = "["
	RBRACKET  TokenKind = "]"

	// Keywords
	DEF     TokenKind = "DEF"
	RETURN  TokenKind = "RETURN"
	IF      TokenKind = "IF"
	ELSE    TokenKind = "ELSE"
	WHILE   TokenKind = "WHILE"
	FOR     TokenKind = "FOR"
	PRINT   TokenKind = "PRINT"
	TRUE    TokenKind = "TRUE"
	FALSE   TokenKind = "FALSE"
	INCLUDE TokenKind = "INCLUDE"
	CLASS   TokenKind = "CLASS"
	LIST    TokenKind = "LIST"
	GRAPH   TokenKind = "GRAPH"

	// Type keywords
	INT    TokenKind = "INT"
	FLOAT  TokenKind = "FLOAT"
	CHAR   TokenKind = "CHAR"
	STRING TokenKind = "STRING"
	BOOL   TokenKind = "BOOL"
	VOID   TokenKind = "VOID"
)

var keywords = map[string]TokenKind{
	"def":     DEF,
	"return":  RETURN,
	"if":      IF,
	"else":    ELSE,
	"while":   WHILE,
	"for":     FOR,
	"print":   PRINT,
	"true":    TRUE,
	"false":   FALSE,
	"include": INCLUDE,
	"class":   CLASS,
	"list":    LIST,
	"graph":   GRAPH,
	"int":     INT,
	"float":   FLOAT,
	"char":    CHAR,
	"string":  STRING,
	"bool":    BOOL,
	"void":    VOID,
}

// Token is one lexical token. Literal payloads live in Int, Float and Text:
// INT_LIT sets Int, FLOAT_LIT sets Float, CHAR_LIT sets Int to the byte value,
// and STRING_LIT and IDENT set Text to the decoded value.
type Token struct {
	Kind  TokenKind
	Text  string
	Int   int64
	Float float64
	Pos   Position
}
