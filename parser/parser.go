package parser

import (
	"fmt"
	"strconv"

	"github.com/slc-lang/slc/ast"
	"github.com/slc-lang/slc/lexer"
	"github.com/slc-lang/slc/token"
	"github.com/slc-lang/slc/types"
)

// Parser builds the AST the middle end consumes: it links children, sets
// source locations, populates literal values and formal declared types, and
// leaves every type and scope slot for the analyzer.
type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	lambdaCounter int
	errors        []*token.CompileError
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) Errors() []*token.CompileError {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) errorf(pos token.Position, format string, args ...any) {
	p.errors = append(p.errors, token.Errorf(pos, format, args...))
}

// Parse consumes the whole input and returns the root node. The runtime's
// print entry points are prepended as extern declarations so they resolve
// like any other callable.
func (p *Parser) Parse() *ast.Node {
	root := ast.NewRoot()
	for _, builtin := range Builtins() {
		root.AddChild(builtin)
	}
	for p.curToken.Type != token.EOF {
		form := p.parseForm()
		if form == nil {
			// parseForm reported; skip the offending token and resync
			p.nextToken()
			continue
		}
		root.AddChild(form)
	}
	return root
}

func (p *Parser) parseForm() *ast.Node {
	switch p.curToken.Type {
	case token.INT:
		return p.parseIntLiteral()
	case token.FLOAT:
		return p.parseFloatLiteral()
	case token.STRING:
		return p.parseStringLiteral()
	case token.IDENT:
		return p.parseAtom()
	case token.GT:
		p.errorf(p.curToken.Pos, "unexpected '>'")
		return nil
	case token.LPAREN:
		return p.parseList()
	default:
		p.errorf(p.curToken.Pos, "unexpected token '%s'", p.curToken.Literal)
		return nil
	}
}

func (p *Parser) parseIntLiteral() *ast.Node {
	n := ast.New(ast.KindLiteral, "", p.curToken.Pos)
	val, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errorf(p.curToken.Pos, "could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	n.Value = ast.LitValue{Kind: ast.LitInt, Int: val}
	p.nextToken()
	return n
}

func (p *Parser) parseFloatLiteral() *ast.Node {
	n := ast.New(ast.KindLiteral, "", p.curToken.Pos)
	val, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(p.curToken.Pos, "could not parse %q as float", p.curToken.Literal)
		return nil
	}
	n.Value = ast.LitValue{Kind: ast.LitFloat, Float: val}
	p.nextToken()
	return n
}

func (p *Parser) parseStringLiteral() *ast.Node {
	n := ast.New(ast.KindLiteral, "", p.curToken.Pos)
	n.Value = ast.LitValue{Kind: ast.LitString, Str: p.curToken.Literal}
	p.nextToken()
	return n
}

func (p *Parser) parseAtom() *ast.Node {
	if p.curToken.Literal == "nil" {
		n := ast.New(ast.KindLiteral, "", p.curToken.Pos)
		n.Value = ast.LitValue{Kind: ast.LitNil}
		p.nextToken()
		return n
	}
	n := ast.New(ast.KindVariable, p.curToken.Literal, p.curToken.Pos)
	p.nextToken()
	return n
}

var binaryOps = map[string]ast.OpID{
	"<":    ast.OpLess,
	"<=":   ast.OpLessEq,
	">":    ast.OpGreater,
	">=":   ast.OpGreaterEq,
	"=":    ast.OpEqual,
	"cons": ast.OpCons,
}

var listOps = map[string]ast.OpID{
	"+":     ast.OpPlus,
	"-":     ast.OpMinus,
	"*":     ast.OpTimes,
	"/":     ast.OpDivide,
	"and":   ast.OpAnd,
	"or":    ast.OpOr,
	"xor":   ast.OpXor,
	"print": ast.OpPrint,
}

var unaryOps = map[string]ast.OpID{
	"not": ast.OpNot,
	"car": ast.OpCar,
	"cdr": ast.OpCdr,
}

// parseList dispatches a parenthesized form on its head atom.
func (p *Parser) parseList() *ast.Node {
	lparen := p.curToken
	p.nextToken() // consume '('

	if p.curToken.Type == token.GT {
		// '(' '>' ... ')': bare greater-than comparison
		return p.parseOperator(lparen, ast.OpGreater, "binary")
	}
	if p.curToken.Type != token.IDENT {
		p.errorf(p.curToken.Pos, "expected an atom after '(', got '%s'", p.curToken.Literal)
		p.skipToRparen()
		return nil
	}

	head := p.curToken.Literal
	switch head {
	case "define":
		return p.parseDefine(lparen)
	case "lambda":
		return p.parseLambda(lparen)
	case "extern":
		return p.parseExtern(lparen)
	case "if":
		return p.parseIf(lparen)
	case "set":
		return p.parseSet(lparen)
	case "list":
		p.nextToken()
		return p.parseListLiteral(lparen)
	case "do":
		return p.parseIterationLoop(lparen, ast.KindDoLoop)
	case "collect":
		return p.parseIterationLoop(lparen, ast.KindCollectLoop)
	case "when":
		return p.parseWhen(lparen)
	case "loop":
		return p.parseInfiniteLoop(lparen)
	}
	if op, ok := binaryOps[head]; ok {
		return p.parseOperator(lparen, op, "binary")
	}
	if op, ok := unaryOps[head]; ok {
		return p.parseNot(lparen, op)
	}
	if op, ok := listOps[head]; ok {
		return p.parseOperator(lparen, op, "list")
	}
	return p.parseCall(lparen)
}

// parseDefine handles both '(define name expr)' and
// '(define (name formals...) body...)'.
func (p *Parser) parseDefine(lparen token.Token) *ast.Node {
	p.nextToken() // consume 'define'
	if p.curToken.Type == token.LPAREN {
		p.nextToken()
		if p.curToken.Type != token.IDENT {
			p.errorf(p.curToken.Pos, "expected a function name, got '%s'", p.curToken.Literal)
			p.skipToRparen()
			return nil
		}
		fn := ast.New(ast.KindFunctionDefinition, p.curToken.Literal, lparen.Pos)
		fn.Pos.Text = p.curToken.Literal
		p.nextToken()
		if !p.parseFormals(fn) {
			return nil
		}
		body := p.parseBody(fn.Pos)
		if body == nil {
			return nil
		}
		fn.AddChild(body)
		if !p.expectRparen() {
			return nil
		}
		return fn
	}
	if p.curToken.Type != token.IDENT {
		p.errorf(p.curToken.Pos, "expected a variable name, got '%s'", p.curToken.Literal)
		p.skipToRparen()
		return nil
	}
	def := ast.New(ast.KindVariableDefinition, p.curToken.Literal, lparen.Pos)
	def.Pos.Text = p.curToken.Literal
	p.nextToken()
	init := p.parseForm()
	if init == nil {
		return nil
	}
	def.AddChild(init)
	if !p.expectRparen() {
		return nil
	}
	return def
}

func (p *Parser) parseLambda(lparen token.Token) *ast.Node {
	p.nextToken() // consume 'lambda'
	name := fmt.Sprintf("lambda_%d", p.lambdaCounter)
	p.lambdaCounter++
	fn := ast.New(ast.KindLambda, name, lparen.Pos)
	if p.curToken.Type != token.LPAREN {
		p.errorf(p.curToken.Pos, "expected a formal list after 'lambda'")
		p.skipToRparen()
		return nil
	}
	p.nextToken()
	if !p.parseFormals(fn) {
		return nil
	}
	body := p.parseBody(fn.Pos)
	if body == nil {
		return nil
	}
	fn.AddChild(body)
	if !p.expectRparen() {
		return nil
	}
	return fn
}

// parseExtern handles '(extern name (formals...) rettype)'. The declared
// return type rides on the node like a formal's declared type does.
func (p *Parser) parseExtern(lparen token.Token) *ast.Node {
	p.nextToken() // consume 'extern'
	if p.curToken.Type != token.IDENT {
		p.errorf(p.curToken.Pos, "expected an extern function name, got '%s'", p.curToken.Literal)
		p.skipToRparen()
		return nil
	}
	fn := ast.New(ast.KindExternFunction, p.curToken.Literal, lparen.Pos)
	fn.Pos.Text = p.curToken.Literal
	p.nextToken()
	if p.curToken.Type != token.LPAREN {
		p.errorf(p.curToken.Pos, "expected a formal list for extern function '%s'", fn.Name)
		p.skipToRparen()
		return nil
	}
	p.nextToken()
	if !p.parseFormals(fn) {
		return nil
	}
	ret := p.parseType()
	if ret == nil {
		return nil
	}
	fn.Type = ret
	if !p.expectRparen() {
		return nil
	}
	return fn
}

func (p *Parser) parseIf(lparen token.Token) *ast.Node {
	p.nextToken() // consume 'if'
	n := ast.New(ast.KindIfExpr, "if", lparen.Pos)
	for i := 0; i < 3; i++ {
		child := p.parseForm()
		if child == nil {
			return nil
		}
		n.AddChild(child)
	}
	if !p.expectRparen() {
		return nil
	}
	return n
}

func (p *Parser) parseSet(lparen token.Token) *ast.Node {
	p.nextToken() // consume 'set'
	if p.curToken.Type != token.IDENT {
		p.errorf(p.curToken.Pos, "expected a variable name after 'set'")
		p.skipToRparen()
		return nil
	}
	n := ast.New(ast.KindSetExpression, p.curToken.Literal, lparen.Pos)
	p.nextToken()
	val := p.parseForm()
	if val == nil {
		return nil
	}
	n.AddChild(val)
	if !p.expectRparen() {
		return nil
	}
	return n
}

// parseListLiteral builds the nested cons cells for '(list e1 e2 ...)'.
// The opening paren and the 'list' atom are already consumed. '(list)'
// is the empty list, i.e. nil.
func (p *Parser) parseListLiteral(lparen token.Token) *ast.Node {
	var elems []*ast.Node
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type == token.EOF {
			p.errorf(lparen.Pos, "unterminated list literal")
			return nil
		}
		e := p.parseForm()
		if e == nil {
			return nil
		}
		elems = append(elems, e)
	}
	p.nextToken() // consume ')'
	if len(elems) == 0 {
		n := ast.New(ast.KindLiteral, "", lparen.Pos)
		n.Value = ast.LitValue{Kind: ast.LitNil}
		return n
	}
	return consChain(elems, lparen.Pos)
}

func consChain(elems []*ast.Node, pos token.Position) *ast.Node {
	cell := ast.New(ast.KindList, "list", pos)
	cell.AddChild(elems[0])
	if len(elems) > 1 {
		cell.AddChild(consChain(elems[1:], pos))
	}
	return cell
}

// parseIterationLoop handles '(do ((i in listexpr)) body...)' and the
// 'collect' form of the same shape.
func (p *Parser) parseIterationLoop(lparen token.Token, kind ast.NodeKind) *ast.Node {
	keyword := p.curToken.Literal
	p.nextToken() // consume 'do' / 'collect'
	loop := ast.New(kind, keyword, lparen.Pos)

	if p.curToken.Type != token.LPAREN {
		p.errorf(p.curToken.Pos, "expected an iterator list after '%s'", keyword)
		p.skipToRparen()
		return nil
	}
	p.nextToken()
	if p.curToken.Type != token.LPAREN {
		p.errorf(p.curToken.Pos, "expected an iterator binding after '%s'", keyword)
		p.skipToRparen()
		return nil
	}
	iterParen := p.curToken
	p.nextToken()
	if p.curToken.Type != token.IDENT {
		p.errorf(p.curToken.Pos, "expected an iterator name, got '%s'", p.curToken.Literal)
		p.skipToRparen()
		return nil
	}
	iter := ast.New(ast.KindIteratorDefinition, p.curToken.Literal, iterParen.Pos)
	iter.Pos.Text = p.curToken.Literal
	p.nextToken()
	if p.curToken.Type != token.IDENT || p.curToken.Literal != "in" {
		p.errorf(p.curToken.Pos, "expected 'in' in iterator binding")
		p.skipToRparen()
		return nil
	}
	p.nextToken()
	listExpr := p.parseForm()
	if listExpr == nil {
		return nil
	}
	iter.AddChild(listExpr)
	if !p.expectRparen() { // closes the binding
		return nil
	}
	if !p.expectRparen() { // closes the iterator list
		return nil
	}
	loop.AddChild(iter)

	body := p.parseBody(loop.Pos)
	if body == nil {
		return nil
	}
	loop.AddChild(body)
	if !p.expectRparen() {
		return nil
	}
	return loop
}

func (p *Parser) parseWhen(lparen token.Token) *ast.Node {
	p.nextToken() // consume 'when'
	loop := ast.New(ast.KindWhenLoop, "when", lparen.Pos)
	cond := p.parseForm()
	if cond == nil {
		return nil
	}
	loop.AddChild(cond)
	body := p.parseBody(loop.Pos)
	if body == nil {
		return nil
	}
	loop.AddChild(body)
	if !p.expectRparen() {
		return nil
	}
	return loop
}

func (p *Parser) parseInfiniteLoop(lparen token.Token) *ast.Node {
	p.nextToken() // consume 'loop'
	loop := ast.New(ast.KindInfiniteLoop, "loop", lparen.Pos)
	body := p.parseBody(loop.Pos)
	if body == nil {
		return nil
	}
	loop.AddChild(body)
	if !p.expectRparen() {
		return nil
	}
	return loop
}

// parseOperator parses binary and list operator forms. A list operator with
// several arguments wraps them as an implicit list literal, so '(* x x)'
// and '(* (list x x))' build the same tree.
func (p *Parser) parseOperator(lparen token.Token, op ast.OpID, class string) *ast.Node {
	pos := p.curToken.Pos
	opName := p.curToken.Literal
	p.nextToken() // consume operator atom
	var args []*ast.Node
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type == token.EOF {
			p.errorf(lparen.Pos, "unterminated operator form '%s'", opName)
			return nil
		}
		arg := p.parseForm()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
	}
	p.nextToken() // consume ')'

	if class == "binary" {
		if len(args) != 2 {
			p.errorf(pos, "operator '%s' expects 2 operands, got %d", opName, len(args))
			return nil
		}
		n := ast.New(ast.KindBinaryOp, opName, lparen.Pos)
		n.Op = op
		n.AddChild(args[0])
		n.AddChild(args[1])
		return n
	}

	if len(args) == 0 {
		p.errorf(pos, "operator '%s' expects operands", opName)
		return nil
	}
	n := ast.New(ast.KindListOp, opName, lparen.Pos)
	n.Op = op
	// 'print' always takes a format list; a lone non-list argument is its
	// one-element list
	if len(args) > 1 || (op == ast.OpPrint && args[0].Kind != ast.KindList) {
		n.AddChild(consChain(args, lparen.Pos))
	} else {
		n.AddChild(args[0])
	}
	return n
}

// parseNot handles the unary operators. 'not' over a literal list is the
// logical list op; over anything else it is the plain unary op, as are
// 'car' and 'cdr'.
func (p *Parser) parseNot(lparen token.Token, op ast.OpID) *ast.Node {
	opName := p.curToken.Literal
	p.nextToken()
	arg := p.parseForm()
	if arg == nil {
		return nil
	}
	if !p.expectRparen() {
		return nil
	}
	kind := ast.KindUnaryOp
	if op == ast.OpNot && arg.Kind == ast.KindList {
		kind = ast.KindListOp
	}
	n := ast.New(kind, opName, lparen.Pos)
	n.Op = op
	n.AddChild(arg)
	return n
}

func (p *Parser) parseCall(lparen token.Token) *ast.Node {
	call := ast.New(ast.KindFunctionCall, p.curToken.Literal, lparen.Pos)
	call.Pos.Text = p.curToken.Literal
	p.nextToken()
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type == token.EOF {
			p.errorf(lparen.Pos, "unterminated call to '%s'", call.Name)
			return nil
		}
		arg := p.parseForm()
		if arg == nil {
			return nil
		}
		call.AddChild(arg)
	}
	p.nextToken() // consume ')'
	return call
}

// parseFormals consumes 'name:type' declarations up to the closing paren
// of the formal list and attaches them to fn.
func (p *Parser) parseFormals(fn *ast.Node) bool {
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type != token.IDENT {
			p.errorf(p.curToken.Pos, "expected a parameter name, got '%s'", p.curToken.Literal)
			p.skipToRparen()
			return false
		}
		formal := ast.New(ast.KindFormal, p.curToken.Literal, p.curToken.Pos)
		formal.Pos.Text = p.curToken.Literal
		p.nextToken()
		if p.curToken.Type != token.COLON {
			p.errorf(p.curToken.Pos, "expected ':' after parameter '%s'", formal.Name)
			p.skipToRparen()
			return false
		}
		p.nextToken()
		declared := p.parseType()
		if declared == nil {
			return false
		}
		formal.Type = declared
		fn.AddChild(formal)
	}
	p.nextToken() // consume ')'
	return true
}

// parseType consumes a type annotation: int, float, bool, string, or
// list<T> with nesting.
func (p *Parser) parseType() *types.Type {
	if p.curToken.Type != token.IDENT {
		p.errorf(p.curToken.Pos, "expected a type name, got '%s'", p.curToken.Literal)
		return nil
	}
	name := p.curToken.Literal
	pos := p.curToken.Pos
	p.nextToken()
	switch name {
	case "int":
		return types.New(types.Int)
	case "float":
		return types.New(types.Float)
	case "bool":
		return types.New(types.Bool)
	case "string":
		return types.New(types.String)
	case "lambda":
		return types.New(types.Lambda)
	case "list":
		if p.curToken.Type != token.LT {
			p.errorf(p.curToken.Pos, "expected '<' after 'list'")
			return nil
		}
		p.nextToken()
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		if p.curToken.Type != token.GT {
			p.errorf(p.curToken.Pos, "expected '>' closing list type")
			return nil
		}
		p.nextToken()
		return types.NewList(elem)
	}
	p.errorf(pos, "unknown type name '%s'", name)
	return nil
}

// parseBody consumes expressions up to (but not including) the closing
// paren of the enclosing form. The last expression is the return
// expression.
func (p *Parser) parseBody(pos token.Position) *ast.Node {
	body := ast.New(ast.KindFunctionBody, "body", pos)
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type == token.EOF {
			p.errorf(pos, "unterminated body")
			return nil
		}
		child := p.parseForm()
		if child == nil {
			return nil
		}
		body.AddChild(child)
	}
	if len(body.Children) == 0 {
		p.errorf(pos, "empty body")
		return nil
	}
	body.Return = body.Children[len(body.Children)-1]
	return body
}

func (p *Parser) expectRparen() bool {
	if p.curToken.Type != token.RPAREN {
		p.errorf(p.curToken.Pos, "expected ')', got '%s'", p.curToken.Literal)
		p.skipToRparen()
		return false
	}
	p.nextToken()
	return true
}

// skipToRparen resyncs after an error by skipping to the next closing paren.
func (p *Parser) skipToRparen() {
	for p.curToken.Type != token.RPAREN && p.curToken.Type != token.EOF {
		p.nextToken()
	}
	if p.curToken.Type == token.RPAREN {
		p.nextToken()
	}
}
