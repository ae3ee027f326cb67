package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for O
// ---------------------------------------------------------------------------

// SyntaxError is a parse error with its position.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Parser parses O source code into an AST.
//
// The token stream is read up front so the parser knows every declared
// class name before it parses bodies: Name(args) is a constructor call when
// Name is a class and a method call otherwise.
type Parser struct {
	tokens    []Token
	idx       int
	curToken  Token
	peekToken Token
	lastPos   Position // start of the most recently consumed token
	errors    []*SyntaxError

	classNames map[string]bool
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		tokens:     Tokenize(input),
		classNames: make(map[string]bool),
	}
	for _, name := range []string{IntegerName, RealName, BooleanName, ArrayName, ListName} {
		p.classNames[name] = true
	}
	for i, tok := range p.tokens {
		if tok.Type == TokenClass && i+1 < len(p.tokens) && p.tokens[i+1].Type == TokenIdentifier {
			p.classNames[p.tokens[i+1].Literal] = true
		}
	}
	p.idx = -1
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.lastPos = p.curToken.Pos
	if p.idx < len(p.tokens)-1 {
		p.idx++
	}
	p.curToken = p.tokens[p.idx]
	if p.idx+1 < len(p.tokens) {
		p.peekToken = p.tokens[p.idx+1]
	} else {
		p.peekToken = p.curToken
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken)
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	if p.curToken.Type == TokenError {
		format = "%s (" + format + ")"
		args = append([]interface{}{p.curToken.Literal}, args...)
	}
	p.errors = append(p.errors, &SyntaxError{Pos: p.curToken.Pos, Msg: fmt.Sprintf(format, args...)})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []*SyntaxError {
	return p.errors
}

func (p *Parser) span(start Position) Span {
	return MakeSpan(start, p.lastPos)
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses a sequence of class declarations.
func (p *Parser) ParseProgram() *Program {
	start := p.curToken.Pos
	prog := &Program{}
	for !p.curTokenIs(TokenEOF) {
		if !p.curTokenIs(TokenClass) {
			p.errorf("expected class declaration, got %s", p.curToken)
			p.skipTo(TokenClass)
			continue
		}
		before := len(p.errors)
		class := p.parseClass()
		if class != nil {
			prog.Classes = append(prog.Classes, class)
		}
		if len(p.errors) > before && !p.curTokenIs(TokenClass) {
			p.skipTo(TokenClass)
		}
	}
	prog.SpanVal = p.span(start)
	return prog
}

// skipTo advances until the current token is t or EOF.
func (p *Parser) skipTo(t TokenType) {
	for !p.curTokenIs(t) && !p.curTokenIs(TokenEOF) {
		p.nextToken()
	}
}

// parseClass parses class Name[T] extends Base is members end.
func (p *Parser) parseClass() *ClassDecl {
	start := p.curToken.Pos
	p.nextToken() // consume 'class'

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected class name")
		return nil
	}
	class := &ClassDecl{Name: p.curToken.Literal}
	p.nextToken()

	if p.curTokenIs(TokenLBracket) {
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected generic parameter name")
			return nil
		}
		class.GenericParam = p.curToken.Literal
		p.nextToken()
		if !p.expect(TokenRBracket) {
			return nil
		}
	}

	if p.curTokenIs(TokenExtends) {
		p.nextToken()
		base, ok := p.parseTypeRef()
		if !ok {
			return nil
		}
		class.BaseName = base.Name
	}

	if !p.expect(TokenIs) {
		return nil
	}

	for !p.curTokenIs(TokenEnd) && !p.curTokenIs(TokenEOF) {
		member := p.parseMember()
		if member == nil {
			// Resynchronise on the next member keyword.
			for !p.curTokenIs(TokenVar) && !p.curTokenIs(TokenMethod) && !p.curTokenIs(TokenThis) &&
				!p.curTokenIs(TokenEnd) && !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenClass) {
				p.nextToken()
			}
			if p.curTokenIs(TokenClass) {
				break
			}
			continue
		}
		class.Members = append(class.Members, member)
	}
	p.expect(TokenEnd)

	class.SpanVal = p.span(start)
	return class
}

// parseMember parses a field, method or constructor.
func (p *Parser) parseMember() Member {
	switch p.curToken.Type {
	case TokenVar:
		return p.parseField()
	case TokenMethod:
		return p.parseMethod()
	case TokenThis:
		return p.parseConstructor()
	default:
		p.errorf("expected member declaration, got %s", p.curToken)
		p.nextToken()
		return nil
	}
}

func (p *Parser) parseField() Member {
	start := p.curToken.Pos
	name, init := p.parseVarBinding()
	if init == nil {
		return nil
	}
	return &FieldDecl{SpanVal: p.span(start), Name: name, Init: init}
}

// parseVarBinding parses var name : expr (or var name := expr).
func (p *Parser) parseVarBinding() (string, Expr) {
	p.nextToken() // consume 'var'
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected variable name")
		return "", nil
	}
	name := p.curToken.Literal
	p.nextToken()
	if !p.curTokenIs(TokenColon) && !p.curTokenIs(TokenAssign) {
		p.errorf("expected ':' after variable name, got %s", p.curToken)
		return "", nil
	}
	p.nextToken()
	return name, p.ParseExpression()
}

func (p *Parser) parseMethod() Member {
	start := p.curToken.Pos
	p.nextToken() // consume 'method'

	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected method name")
		return nil
	}
	method := &MethodDecl{Name: p.curToken.Literal, ReturnType: Void}
	p.nextToken()

	if p.curTokenIs(TokenLParen) {
		params, ok := p.parseParams()
		if !ok {
			return nil
		}
		method.Params = params
	}

	if p.curTokenIs(TokenColon) {
		p.nextToken()
		ret, ok := p.parseTypeRef()
		if !ok {
			return nil
		}
		method.ReturnType = ret
	}

	switch {
	case p.curTokenIs(TokenIs):
		p.nextToken()
		method.Body = p.parseBody()
		if !p.expect(TokenEnd) {
			return nil
		}
		if method.Body == nil {
			method.Body = []Stmt{}
		}
	case p.curTokenIs(TokenArrow):
		arrow := p.curToken.Pos
		p.nextToken()
		value := p.ParseExpression()
		if value == nil {
			return nil
		}
		method.Body = []Stmt{&Return{SpanVal: MakeSpan(arrow, value.Span().End), Value: value}}
	default:
		method.Forward = true
	}

	method.SpanVal = p.span(start)
	return method
}

func (p *Parser) parseConstructor() Member {
	start := p.curToken.Pos
	p.nextToken() // consume 'this'

	ctor := &ConstructorDecl{}
	if p.curTokenIs(TokenLParen) {
		params, ok := p.parseParams()
		if !ok {
			return nil
		}
		ctor.Params = params
	}
	if !p.expect(TokenIs) {
		return nil
	}
	ctor.Body = p.parseBody()
	if !p.expect(TokenEnd) {
		return nil
	}
	if ctor.Body == nil {
		ctor.Body = []Stmt{}
	}
	ctor.SpanVal = p.span(start)
	return ctor
}

// parseParams parses ( name : Type, ... ).
func (p *Parser) parseParams() ([]Param, bool) {
	p.nextToken() // consume (
	var params []Param
	for !p.curTokenIs(TokenRParen) {
		start := p.curToken.Pos
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name, got %s", p.curToken)
			return nil, false
		}
		name := p.curToken.Literal
		p.nextToken()
		if !p.expect(TokenColon) {
			return nil, false
		}
		t, ok := p.parseTypeRef()
		if !ok {
			return nil, false
		}
		params = append(params, Param{SpanVal: p.span(start), Name: name, Type: t})
		if p.curTokenIs(TokenComma) {
			p.nextToken()
			continue
		}
		if !p.curTokenIs(TokenRParen) {
			p.errorf("expected ',' or ')' in parameter list, got %s", p.curToken)
			return nil, false
		}
	}
	p.nextToken() // consume )
	return params, true
}

// parseTypeRef parses Name or Name[TypeRef].
func (p *Parser) parseTypeRef() (TypeRef, bool) {
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected type name, got %s", p.curToken)
		return Unknown, false
	}
	t := Named(p.curToken.Literal)
	p.nextToken()
	if p.curTokenIs(TokenLBracket) {
		p.nextToken()
		arg, ok := p.parseTypeRef()
		if !ok {
			return Unknown, false
		}
		if !p.expect(TokenRBracket) {
			return Unknown, false
		}
		t = Generic(t.Name, arg)
	}
	return t, true
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseBody parses statements up to 'end' or 'else'.
func (p *Parser) parseBody() []Stmt {
	var stmts []Stmt
	for !p.curTokenIs(TokenEnd) && !p.curTokenIs(TokenElse) && !p.curTokenIs(TokenEOF) {
		before := p.idx
		stmt := p.ParseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if stmt == nil && p.idx == before {
			p.nextToken() // guarantee progress
		}
	}
	return stmts
}

// ParseStatement parses a single statement.
func (p *Parser) ParseStatement() Stmt {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenVar:
		name, init := p.parseVarBinding()
		if init == nil {
			return nil
		}
		return &VarDecl{SpanVal: p.span(start), Name: name, Init: init}

	case TokenWhile:
		p.nextToken()
		cond := p.ParseExpression()
		if cond == nil || !p.expect(TokenLoop) {
			return nil
		}
		body := p.parseBody()
		if !p.expect(TokenEnd) {
			return nil
		}
		return &While{SpanVal: p.span(start), Cond: cond, Body: body}

	case TokenIf:
		p.nextToken()
		cond := p.ParseExpression()
		if cond == nil || !p.expect(TokenThen) {
			return nil
		}
		stmt := &If{Cond: cond, Then: p.parseBody()}
		if p.curTokenIs(TokenElse) {
			p.nextToken()
			stmt.Else = p.parseBody()
		}
		if !p.expect(TokenEnd) {
			return nil
		}
		stmt.SpanVal = p.span(start)
		return stmt

	case TokenReturn:
		line := p.curToken.Pos.Line
		p.nextToken()
		ret := &Return{}
		// A value belongs to the return only when it starts on the same line.
		if p.curToken.Pos.Line == line && p.startsExpression() {
			ret.Value = p.ParseExpression()
			if ret.Value == nil {
				return nil
			}
		}
		ret.SpanVal = p.span(start)
		return ret
	}

	expr := p.ParseExpression()
	if expr == nil {
		return nil
	}
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		if !isAssignable(expr) {
			p.errorf("invalid assignment target")
			return nil
		}
		value := p.ParseExpression()
		if value == nil {
			return nil
		}
		return &Assignment{SpanVal: p.span(start), Target: expr, Value: value}
	}
	return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
}

// isAssignable reports whether e may appear left of ':='. Assignments to
// 'this' itself parse so that the Validator can report them.
func isAssignable(e Expr) bool {
	switch t := e.(type) {
	case *Identifier, *This:
		return true
	case *MemberAccess:
		_, onThis := t.Target.(*This)
		return onThis
	}
	return false
}

func (p *Parser) startsExpression() bool {
	switch p.curToken.Type {
	case TokenInteger, TokenReal, TokenIdentifier, TokenThis, TokenTrue, TokenFalse, TokenLParen:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a primary followed by member accesses and calls.
func (p *Parser) ParseExpression() Expr {
	start := p.curToken.Pos
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for p.curTokenIs(TokenDot) {
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected member name after '.', got %s", p.curToken)
			return nil
		}
		member := &MemberAccess{Target: expr, Member: p.curToken.Literal}
		p.nextToken()
		member.SpanVal = p.span(start)
		expr = member
		if p.curTokenIs(TokenLParen) {
			args, ok := p.parseArgs()
			if !ok {
				return nil
			}
			expr = &Call{SpanVal: p.span(start), Callee: member, Args: args}
		}
	}
	return expr
}

func (p *Parser) parsePrimary() Expr {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenInteger:
		v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		return &IntLiteral{SpanVal: p.span(start), Value: v}

	case TokenReal:
		v, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.errorf("invalid real literal %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		return &RealLiteral{SpanVal: p.span(start), Value: v}

	case TokenTrue, TokenFalse:
		v := p.curTokenIs(TokenTrue)
		p.nextToken()
		return &BoolLiteral{SpanVal: p.span(start), Value: v}

	case TokenThis:
		p.nextToken()
		return &This{SpanVal: p.span(start)}

	case TokenLParen:
		p.nextToken()
		inner := p.ParseExpression()
		if inner == nil || !p.expect(TokenRParen) {
			return nil
		}
		return inner

	case TokenIdentifier:
		name := p.curToken.Literal
		if p.classNames[name] {
			return p.parseConstructorCall()
		}
		p.nextToken()
		ident := &Identifier{SpanVal: p.span(start), Name: name}
		if p.curTokenIs(TokenLParen) {
			args, ok := p.parseArgs()
			if !ok {
				return nil
			}
			return &Call{SpanVal: p.span(start), Callee: ident, Args: args}
		}
		return ident
	}

	p.errorf("expected expression, got %s", p.curToken)
	return nil
}

// parseConstructorCall parses ClassName[TypeArg](args...). The argument
// list is optional.
func (p *Parser) parseConstructorCall() Expr {
	start := p.curToken.Pos
	t, ok := p.parseTypeRef()
	if !ok {
		return nil
	}
	call := &ConstructorCall{Type: t}
	if p.curTokenIs(TokenLParen) {
		args, ok := p.parseArgs()
		if !ok {
			return nil
		}
		call.Args = args
	}
	call.SpanVal = p.span(start)
	return call
}

// parseArgs parses ( expr, ... ).
func (p *Parser) parseArgs() ([]Expr, bool) {
	p.nextToken() // consume (
	args := []Expr{}
	for !p.curTokenIs(TokenRParen) {
		arg := p.ParseExpression()
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if p.curTokenIs(TokenComma) {
			p.nextToken()
			continue
		}
		if !p.curTokenIs(TokenRParen) {
			p.errorf("expected ',' or ')' in argument list, got %s", p.curToken)
			return nil, false
		}
	}
	p.nextToken() // consume )
	return args, true
}

// ---------------------------------------------------------------------------
// Compile helper for external use
// ---------------------------------------------------------------------------

// ParseProgramFromString parses a complete O source file.
func ParseProgramFromString(source string) (*Program, error) {
	parser := NewParser(source)
	prog := parser.ParseProgram()
	if errs := parser.Errors(); len(errs) > 0 {
		return prog, &ParseErrors{List: errs}
	}
	return prog, nil
}

// ParseErrors collects every syntax error of one parse.
type ParseErrors struct {
	List []*SyntaxError
}

func (e *ParseErrors) Error() string {
	if len(e.List) == 1 {
		return "parse error: " + e.List[0].Error()
	}
	return fmt.Sprintf("parse errors: %s (and %d more)", e.List[0].Error(), len(e.List)-1)
}
