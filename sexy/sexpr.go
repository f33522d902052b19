package sexy

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeNumber
	NodeEllipsis
	NodeList
	NodeArray
	NodeMap
)

// Node represents any Sexy data structure
type Node struct {
	Type NodeType

	// Atoms and text
	Text string // NodeSymbol, NodeString, NodeNumber

	// Collections
	Items []*Node  // NodeList, NodeArray, NodeMap
	Keys  []string // NodeMap - parallel to Items
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeNumber:
		return n.Text
	case NodeString:
		return strconv.Quote(n.Text)
	case NodeEllipsis:
		return "..."
	case NodeList:
		return "(" + joinNodes(n.Items) + ")"
	case NodeArray:
		return "[" + joinNodes(n.Items) + "]"
	case NodeMap:
		var parts []string
		for i, key := range n.Keys {
			parts = append(parts, fmt.Sprintf("%s: %s", key, n.Items[i]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
}

func joinNodes(items []*Node) string {
	var parts []string
	for _, item := range items {
		parts = append(parts, item.String())
	}
	return strings.Join(parts, " ")
}

// Helper constructors for common node types
func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewNumber(text string) *Node {
	return &Node{Type: NodeNumber, Text: text}
}

func NewEllipsis() *Node {
	return &Node{Type: NodeEllipsis}
}

func NewList(items []*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

func NewArray(items []*Node) *Node {
	return &Node{Type: NodeArray, Items: items}
}

func NewMap(keys []string, items []*Node) *Node {
	return &Node{Type: NodeMap, Keys: keys, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type == NodeSymbol || n.Type == NodeString || n.Type == NodeNumber || n.Type == NodeEllipsis
}

// Get returns the value stored under key in a map node.
func (n *Node) Get(key string) (*Node, bool) {
	if n.Type != NodeMap {
		return nil, false
	}
	for i, k := range n.Keys {
		if k == key {
			return n.Items[i], true
		}
	}
	return nil, false
}

// Int returns the value of an integer number node.
func (n *Node) Int() (int64, error) {
	if n.Type != NodeNumber {
		return 0, fmt.Errorf("expected number but got %s", n)
	}
	return strconv.ParseInt(n.Text, 10, 64)
}

// Match reports whether actual has the shape described by pattern.
//
// The symbol _ matches any datum. An ellipsis as the last item of a list or
// array matches any remaining items. Numbers compare by value. A map matches
// when every key of the pattern is present in actual with a matching value.
func Match(pattern, actual *Node) bool {
	if pattern.Type == NodeSymbol && pattern.Text == "_" {
		return true
	}
	if pattern.Type != actual.Type {
		return false
	}
	switch pattern.Type {
	case NodeSymbol, NodeString:
		return pattern.Text == actual.Text
	case NodeNumber:
		p, err1 := strconv.ParseFloat(pattern.Text, 64)
		a, err2 := strconv.ParseFloat(actual.Text, 64)
		return err1 == nil && err2 == nil && p == a
	case NodeEllipsis:
		return true
	case NodeList, NodeArray:
		return matchItems(pattern.Items, actual.Items)
	case NodeMap:
		for i, key := range pattern.Keys {
			value, ok := actual.Get(key)
			if !ok || !Match(pattern.Items[i], value) {
				return false
			}
		}
		return true
	}
	return false
}

func matchItems(pattern, actual []*Node) bool {
	for i, p := range pattern {
		if p.Type == NodeEllipsis && i == len(pattern)-1 {
			return true
		}
		if i >= len(actual) || !Match(p, actual[i]) {
			return false
		}
	}
	return len(pattern) == len(actual)
}

type parser struct {
	lexer        *lexer
	currentToken token
	peekToken    token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()
	p.nextToken()

	result, err := p.ParseDatum()
	if len(p.lexer.errors) > 0 {
		// Lexer errors take priority because they might cause confusing parser errors.
		return nil, fmt.Errorf("%s", p.lexer.errors[0])
	}
	if err != nil {
		return nil, err
	}

	if p.currentToken.Type != tokenEOF {
		return nil, fmt.Errorf("expected EOF but got %s", p.currentToken.Type)
	}

	return result, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.lexer.nextToken()
}

func (p *parser) ParseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenSymbol:
		p.nextToken()
		return NewSymbol(tok.Value), nil
	case tokenString:
		p.nextToken()
		return NewString(tok.Value), nil
	case tokenNumber:
		p.nextToken()
		return NewNumber(tok.Value), nil
	case tokenEllipsis:
		p.nextToken()
		return NewEllipsis(), nil
	case tokenLParen:
		items, err := p.parseSequence(tokenRParen)
		if err != nil {
			return nil, err
		}
		return NewList(items), nil
	case tokenLBracket:
		items, err := p.parseSequence(tokenRBracket)
		if err != nil {
			return nil, err
		}
		return NewArray(items), nil
	case tokenLBrace:
		return p.parseMap()
	default:
		return nil, fmt.Errorf("unexpected token: %s", tok.Type)
	}
}

// parseSequence parses the items of a list or array up to the closing
// token.
func (p *parser) parseSequence(closing tokenType) ([]*Node, error) {
	var items []*Node
	p.nextToken() // consume opening token

	for p.currentToken.Type != closing && p.currentToken.Type != tokenEOF {
		item, err := p.ParseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if p.currentToken.Type != closing {
		return nil, fmt.Errorf("expected %s but got %s", closing, p.currentToken.Type)
	}
	p.nextToken() // consume closing token
	return items, nil
}

func (p *parser) parseMap() (*Node, error) {
	var keys []string
	var items []*Node
	p.nextToken() // consume '{'

	for p.currentToken.Type != tokenRBrace && p.currentToken.Type != tokenEOF {
		// Keys are symbols or strings
		if p.currentToken.Type != tokenSymbol && p.currentToken.Type != tokenString {
			return nil, fmt.Errorf("expected symbol for map key but got %s", p.currentToken.Type)
		}
		keys = append(keys, p.currentToken.Value)
		p.nextToken()

		if p.currentToken.Type != tokenColon {
			return nil, fmt.Errorf("expected ':' after map key but got %s", p.currentToken.Type)
		}
		p.nextToken()

		value, err := p.ParseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, value)

		if p.currentToken.Type == tokenComma {
			p.nextToken()
		} else if p.currentToken.Type != tokenRBrace {
			return nil, fmt.Errorf("expected ',' or '}' in map but got %s", p.currentToken.Type)
		}
	}

	if p.currentToken.Type != tokenRBrace {
		return nil, fmt.Errorf("expected '}' but got %s", p.currentToken.Type)
	}
	p.nextToken() // consume '}'

	return NewMap(keys, items), nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenNumber
	tokenEllipsis
	tokenLParen
	tokenRParen
	tokenLBrace
	tokenRBrace
	tokenLBracket
	tokenRBracket
	tokenColon
	tokenComma
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenEllipsis:
		return "ellipsis"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenLBracket:
		return "'['"
	case tokenRBracket:
		return "']'"
	case tokenColon:
		return "':'"
	case tokenComma:
		return "','"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type     tokenType
	Value    string
	Position int
}

type lexer struct {
	input    string
	position int
	current  rune
	errors   []string
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.position >= len(l.input) {
		l.current = 0
	} else {
		l.current = rune(l.input[l.position])
	}
	l.position++
}

func (l *lexer) peekChar() rune {
	if l.position >= len(l.input) {
		return 0
	}
	return rune(l.input[l.position])
}

func (l *lexer) skipWhitespace() {
	for unicode.IsSpace(l.current) {
		l.readChar()
	}
}

func (l *lexer) skipComment() {
	for l.current != '\n' && l.current != '\r' && l.current != 0 {
		l.readChar()
	}
}

func (l *lexer) readSymbol() string {
	start := l.position - 1
	for isSymbolChar(l.current) {
		l.readChar()
	}
	return l.input[start : l.position-1]
}

func (l *lexer) readString() (string, error) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.current != '"' && l.current != 0 {
		if l.current == '\\' {
			l.readChar()
			switch l.current {
			case '"':
				result.WriteByte('"')
			case '\\':
				result.WriteByte('\\')
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			case 'x':
				// \xNN, as produced by strconv.Quote for control bytes
				hex := string([]rune{l.peekChar()})
				l.readChar()
				hex += string([]rune{l.peekChar()})
				l.readChar()
				b, err := strconv.ParseUint(hex, 16, 8)
				if err != nil {
					return "", fmt.Errorf("invalid escape sequence: \\x%s", hex)
				}
				result.WriteByte(byte(b))
			default:
				return "", fmt.Errorf("invalid escape sequence: \\%c", l.current)
			}
		} else {
			result.WriteRune(l.current)
		}
		l.readChar()
	}

	if l.current != '"' {
		return "", fmt.Errorf("unterminated string")
	}
	l.readChar() // skip closing quote

	return result.String(), nil
}

func (l *lexer) readNumber() string {
	start := l.position - 1
	if l.current == '+' || l.current == '-' {
		l.readChar()
	}
	for unicode.IsDigit(l.current) {
		l.readChar()
	}
	if l.current == '.' && unicode.IsDigit(l.peekChar()) {
		l.readChar()
		for unicode.IsDigit(l.current) {
			l.readChar()
		}
	}
	return l.input[start : l.position-1]
}

func (l *lexer) nextToken() token {
	for {
		l.skipWhitespace()

		pos := l.position - 1

		switch l.current {
		case 0:
			return token{Type: tokenEOF, Position: pos}
		case ';':
			l.skipComment()
			continue
		case '(':
			l.readChar()
			return token{Type: tokenLParen, Value: "(", Position: pos}
		case ')':
			l.readChar()
			return token{Type: tokenRParen, Value: ")", Position: pos}
		case '{':
			l.readChar()
			return token{Type: tokenLBrace, Value: "{", Position: pos}
		case '}':
			l.readChar()
			return token{Type: tokenRBrace, Value: "}", Position: pos}
		case '[':
			l.readChar()
			return token{Type: tokenLBracket, Value: "[", Position: pos}
		case ']':
			l.readChar()
			return token{Type: tokenRBracket, Value: "]", Position: pos}
		case ':':
			l.readChar()
			return token{Type: tokenColon, Value: ":", Position: pos}
		case ',':
			l.readChar()
			return token{Type: tokenComma, Value: ",", Position: pos}
		case '"':
			str, err := l.readString()
			if err != nil {
				l.errors = append(l.errors, err.Error())
				return token{Type: tokenEOF, Position: pos}
			}
			return token{Type: tokenString, Value: str, Position: pos}
		case '.':
			if l.peekChar() == '.' {
				l.readChar()
				if l.peekChar() == '.' {
					l.readChar()
					l.readChar()
					return token{Type: tokenEllipsis, Value: "...", Position: pos}
				}
			}
			// Single dot is a syntax error
			l.errors = append(l.errors, "unexpected character '.'")
			return token{Type: tokenEOF, Position: pos}
		default:
			if isSymbolStart(l.current) {
				symbol := l.readSymbol()
				return token{Type: tokenSymbol, Value: symbol, Position: pos}
			} else if unicode.IsDigit(l.current) || l.current == '+' || l.current == '-' {
				if (l.current == '+' || l.current == '-') && !unicode.IsDigit(l.peekChar()) {
					// Single + or - is a symbol
					l.readChar()
					return token{Type: tokenSymbol, Value: l.input[pos : l.position-1], Position: pos}
				}
				number := l.readNumber()
				return token{Type: tokenNumber, Value: number, Position: pos}
			} else {
				// Unknown character is a syntax error
				l.errors = append(l.errors, fmt.Sprintf("unexpected character '%c'", l.current))
				return token{Type: tokenEOF, Position: pos}
			}
		}
	}
}

func isSymbolStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

// isSymbolChar allows angle brackets so type names like list<int> read as
// one symbol.
func isSymbolChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '<' || r == '>'
}
