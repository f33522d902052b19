package compiler

import "fmt"

// Parser is a recursive-descent parser over a token slice. Parse errors
// unwind the parser with a panic carrying a *SyntaxError, recovered at the
// Parse and ParseExpr entry points.
type Parser struct {
	tokens   []Token
	pos      int
	included map[string]bool
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens, included: map[string]bool{}}
}

// Parse lexes and parses a whole source file.
func Parse(src []byte) (prog *Program, err error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	defer p.recover(&err)
	return p.ParseProgram(), nil
}

// ParseExpr parses src as a single expression.
func ParseExpr(src []byte) (node Node, err error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	defer p.recover(&err)
	node = p.ParseExpression()
	p.expect(EOF)
	return node, nil
}

func (p *Parser) recover(err *error) {
	if r := recover(); r != nil {
		se, ok := r.(*SyntaxError)
		if !ok {
			panic(r)
		}
		*err = se
	}
}

func (p *Parser) bail(pos Position, format string, args ...any) {
	panic(&SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

// peek returns the token n positions ahead of the current one.
func (p *Parser) peek(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) at(kind TokenKind) bool {
	return p.cur().Kind == kind
}

// expect consumes a token of the given kind or bails.
func (p *Parser) expect(kind TokenKind) Token {
	tok := p.cur()
	if tok.Kind != kind {
		p.bail(tok.Pos, "expected %s but got %s", describe(kind), describeToken(tok))
	}
	return p.next()
}

func describe(kind TokenKind) string {
	switch kind {
	case EOF:
		return "end of input"
	case IDENT:
		return "identifier"
	}
	for word, k := range keywords {
		if k == kind {
			return "'" + word + "'"
		}
	}
	return "'" + string(kind) + "'"
}

func describeToken(tok Token) string {
	switch tok.Kind {
	case EOF:
		return "end of input"
	case IDENT:
		return "identifier '" + tok.Text + "'"
	case INT_LIT, FLOAT_LIT:
		return "number " + tok.Text
	case STRING_LIT:
		return "string literal"
	case CHAR_LIT:
		return "character literal"
	}
	return "'" + tok.Text + "'"
}

// ParseProgram parses top-level items until end of input.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{Base: Base{At: p.cur().Pos}}
	for !p.at(EOF) {
		var item Node
		switch p.cur().Kind {
		case INCLUDE:
			item = p.parseInclude()
		case DEF:
			item = p.parseFuncDef()
		case CLASS:
			item = p.parseClassDecl()
		default:
			item = p.ParseStatement()
		}
		prog.Body = append(prog.Body, item)
	}
	return prog
}

func (p *Parser) parseInclude() Node {
	tok := p.expect(INCLUDE)
	var lib string
	switch p.cur().Kind {
	case LIST:
		lib = "list"
	case GRAPH:
		lib = "graph"
	default:
		p.bail(p.cur().Pos, "unknown library %s", describeToken(p.cur()))
	}
	p.next()
	p.expect(SEMICOLON)
	p.included[lib] = true
	return &Include{Base: Base{At: tok.Pos}, Library: lib}
}

func (p *Parser) parseFuncDef() Node {
	tok := p.expect(DEF)
	name := p.expect(IDENT)
	fn := &FuncDef{Base: Base{At: tok.Pos}, Name: name.Text, Return: TypeVoid}

	p.expect(LPAREN)
	for !p.at(RPAREN) {
		if len(fn.Params) > 0 {
			p.expect(COMMA)
		}
		pname := p.expect(IDENT)
		p.expect(COLON)
		fn.Params = append(fn.Params, Param{At: pname.Pos, Name: pname.Text, Type: p.parseType(false)})
	}
	p.expect(RPAREN)

	if p.at(ARROW) {
		p.next()
		fn.Return = p.parseType(true)
	}
	fn.Body = p.parseBlock()
	return fn
}

func (p *Parser) parseClassDecl() Node {
	tok := p.expect(CLASS)
	name := p.expect(IDENT)
	decl := &ClassDecl{Base: Base{At: tok.Pos}, Name: name.Text}
	p.expect(LBRACE)
	for !p.at(RBRACE) {
		fname := p.expect(IDENT)
		p.expect(COLON)
		decl.Fields = append(decl.Fields, Field{At: fname.Pos, Name: fname.Text, Type: p.parseType(false)})
		p.expect(SEMICOLON)
	}
	p.expect(RBRACE)
	return decl
}

// parseType parses a type annotation. void is accepted only where allowVoid
// is set.
func (p *Parser) parseType(allowVoid bool) Type {
	tok := p.next()
	switch tok.Kind {
	case INT:
		return TypeInt
	case FLOAT:
		return TypeFloat
	case CHAR:
		return TypeChar
	case STRING:
		return TypeString
	case BOOL:
		return TypeBool
	case VOID:
		if !allowVoid {
			p.bail(tok.Pos, "void is only allowed as a return type")
		}
		return TypeVoid
	case LIST, GRAPH:
		lib := "list"
		if tok.Kind == GRAPH {
			lib = "graph"
		}
		if !p.included[lib] {
			p.bail(tok.Pos, "%s used without 'include %s;'", lib, lib)
		}
		p.expect(LT)
		elem := p.parseType(false)
		if !elem.Kind.IsScalar() {
			p.bail(tok.Pos, "%s elements must be a scalar type, not %s", lib, elem)
		}
		p.expect(GT)
		if tok.Kind == LIST {
			return ListOf(elem.Kind)
		}
		return GraphOf(elem.Kind)
	case IDENT:
		return ClassType(tok.Text)
	}
	p.bail(tok.Pos, "expected a type but got %s", describeToken(tok))
	return TypeUnresolved
}

func (p *Parser) parseBlock() []Node {
	p.expect(LBRACE)
	var body []Node
	for !p.at(RBRACE) {
		if p.at(EOF) {
			p.bail(p.cur().Pos, "unterminated block")
		}
		body = append(body, p.ParseStatement())
	}
	p.expect(RBRACE)
	return body
}

// ParseStatement parses one statement, including its terminating semicolon
// where the grammar has one.
func (p *Parser) ParseStatement() Node {
	tok := p.cur()
	switch tok.Kind {
	case DEF, CLASS, INCLUDE:
		p.bail(tok.Pos, "%s is only allowed at top level", describe(tok.Kind))
	case RETURN:
		p.next()
		ret := &Return{Base: Base{At: tok.Pos}}
		if !p.at(SEMICOLON) {
			ret.Value = p.ParseExpression()
		}
		p.expect(SEMICOLON)
		return ret
	case IF:
		return p.parseIf()
	case WHILE:
		p.next()
		p.expect(LPAREN)
		cond := p.ParseExpression()
		p.expect(RPAREN)
		return &While{Base: Base{At: tok.Pos}, Cond: cond, Body: p.parseBlock(), MergeBlock: NoBlock}
	case FOR:
		p.next()
		p.expect(LPAREN)
		init := p.parseSimple()
		p.expect(SEMICOLON)
		cond := p.ParseExpression()
		p.expect(SEMICOLON)
		step := p.parseSimple()
		p.expect(RPAREN)
		return &For{Base: Base{At: tok.Pos}, Init: init, Cond: cond, Step: step, Body: p.parseBlock(), MergeBlock: NoBlock}
	case PRINT:
		p.next()
		p.expect(LPAREN)
		val := p.ParseExpression()
		p.expect(RPAREN)
		p.expect(SEMICOLON)
		return &Print{Base: Base{At: tok.Pos}, Value: val}
	}
	stmt := p.parseSimple()
	p.expect(SEMICOLON)
	return stmt
}

func (p *Parser) parseIf() Node {
	tok := p.expect(IF)
	p.expect(LPAREN)
	cond := p.ParseExpression()
	p.expect(RPAREN)
	node := &If{Base: Base{At: tok.Pos}, Cond: cond, Then: p.parseBlock(), MergeBlock: NoBlock}
	if p.at(ELSE) {
		p.next()
		if p.at(IF) {
			node.Else = []Node{p.parseIf()}
		} else {
			node.Else = p.parseBlock()
			if node.Else == nil {
				node.Else = []Node{}
			}
		}
	}
	return node
}

// parseSimple parses a declaration, definition, assignment, field assignment
// or expression statement, without the trailing semicolon.
func (p *Parser) parseSimple() Node {
	tok := p.cur()
	if tok.Kind == IDENT {
		switch p.peek(1).Kind {
		case COLON:
			return p.parseDeclaration()
		case ASSIGN:
			p.next()
			p.next()
			return &Assign{Base: Base{At: tok.Pos}, Name: tok.Text, Value: p.ParseExpression()}
		case DOT:
			if p.peek(2).Kind == IDENT && p.peek(3).Kind == ASSIGN {
				p.next()
				p.next()
				member := p.next()
				p.next()
				target := &DotCall{
					Base:     Base{At: tok.Pos},
					Receiver: &Ident{Base: Base{At: tok.Pos}, Name: tok.Text},
					Member:   member.Text,
				}
				return &FieldAssign{Base: Base{At: tok.Pos}, Target: target, Value: p.ParseExpression()}
			}
		}
	}
	return &ExprStmt{Base: Base{At: tok.Pos}, X: p.ParseExpression()}
}

func (p *Parser) parseDeclaration() Node {
	name := p.expect(IDENT)
	p.expect(COLON)
	typeTok := p.cur()
	typ := p.parseType(false)
	at := Base{At: name.Pos}

	switch typ.Kind {
	case KindList:
		decl := &ListDecl{Base: at, Name: name.Text, Elem: typ.Elem}
		if p.at(ASSIGN) {
			p.next()
			if !p.at(LBRACKET) {
				p.bail(p.cur().Pos, "list initializer must be a list literal")
			}
			decl.Elements = p.parseListLiteral()
		}
		return decl
	case KindGraph:
		if p.at(ASSIGN) {
			p.bail(p.cur().Pos, "graph declarations take no initializer")
		}
		return &GraphDecl{Base: at, Name: name.Text, Elem: typ.Elem}
	case KindClass:
		if p.at(ASSIGN) {
			p.bail(typeTok.Pos, "class instances take no initializer")
		}
	}

	if !p.at(ASSIGN) {
		return &VarDecl{Base: at, Name: name.Text, Declared: typ}
	}
	p.next()
	if p.at(LBRACKET) {
		p.bail(p.cur().Pos, "list literal assigned to %s", typ)
	}
	return &VarDef{Base: at, Name: name.Text, Declared: typ, Value: p.ParseExpression()}
}

func (p *Parser) parseListLiteral() []Node {
	p.expect(LBRACKET)
	elems := []Node{}
	for !p.at(RBRACKET) {
		if len(elems) > 0 {
			p.expect(COMMA)
		}
		elems = append(elems, p.ParseExpression())
	}
	p.expect(RBRACKET)
	return elems
}

// precedence returns the binding power of a binary operator, or 0 if kind is
// not one.
func precedence(kind TokenKind) int {
	switch kind {
	case OR:
		return 1
	case AND:
		return 2
	case EQ, NOT_EQ:
		return 3
	case LT, LE, GT, GE:
		return 4
	case PLUS, MINUS:
		return 5
	case ASTERISK, SLASH, PERCENT:
		return 6
	}
	return 0
}

// ParseExpression parses an expression by precedence climbing.
func (p *Parser) ParseExpression() Node {
	return p.parseExpressionWithPrecedence(1)
}

func (p *Parser) parseExpressionWithPrecedence(minPrec int) Node {
	left := p.parseUnary()
	for {
		op := p.cur()
		prec := precedence(op.Kind)
		if prec == 0 || prec < minPrec {
			return left
		}
		p.next()
		right := p.parseExpressionWithPrecedence(prec + 1)
		left = &Binary{Base: Base{At: op.Pos}, Op: string(op.Kind), Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() Node {
	tok := p.cur()
	if tok.Kind == MINUS || tok.Kind == BANG {
		p.next()
		operand := p.parseUnary()
		return &Unary{Base: Base{At: tok.Pos}, Op: string(tok.Kind), Operand: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Node {
	tok := p.next()
	at := Base{At: tok.Pos}
	switch tok.Kind {
	case INT_LIT:
		return &IntLit{Base: at, Value: tok.Int}
	case FLOAT_LIT:
		return &FloatLit{Base: at, Value: tok.Float}
	case CHAR_LIT:
		return &CharLit{Base: at, Value: byte(tok.Int)}
	case STRING_LIT:
		return &StringLit{Base: at, Value: tok.Text}
	case TRUE:
		return &BoolLit{Base: at, Value: true}
	case FALSE:
		return &BoolLit{Base: at, Value: false}
	case LPAREN:
		inner := p.ParseExpression()
		p.expect(RPAREN)
		return inner
	case IDENT:
		switch p.cur().Kind {
		case LPAREN:
			return &Call{Base: at, Name: tok.Text, Args: p.parseArgs()}
		case DOT:
			p.next()
			member := p.expect(IDENT)
			dc := &DotCall{
				Base:     at,
				Receiver: &Ident{Base: at, Name: tok.Text},
				Member:   member.Text,
			}
			if p.at(LPAREN) {
				dc.HasParens = true
				dc.Args = p.parseArgs()
			}
			return dc
		}
		return &Ident{Base: at, Name: tok.Text}
	}
	p.bail(tok.Pos, "unexpected %s in expression", describeToken(tok))
	return nil
}

func (p *Parser) parseArgs() []Node {
	p.expect(LPAREN)
	var args []Node
	for !p.at(RPAREN) {
		if len(args) > 0 {
			p.expect(COMMA)
		}
		args = append(args, p.ParseExpression())
	}
	p.expect(RPAREN)
	return args
}
