// Package parser implements a precedence-climbing recursive-descent parser that turns a
// token stream from pkg/lexer into the pkg/ast tree.
package parser

import (
	"github.com/kscope-lang/kscope/pkg/ast"
	"github.com/kscope-lang/kscope/pkg/lexer"
	"github.com/kscope-lang/kscope/pkg/token"
	"github.com/kscope-lang/kscope/pkg/util"
)

// defaultPrecedence holds the built-in binary operators' precedence, lowest first. A
// user-defined `binary<op> <prec> (...)` inserts or overrides an entry here at parse time,
// so operator-ness and precedence are resolved lexically rather than fixed at compile time.
var defaultPrecedence = map[rune]int{
	'=': 2,
	'<': 10,
	'+': 20,
	'-': 20,
	'*': 40,
	'/': 40,
}

type Parser struct {
	lex        *lexer.Lexer
	current    token.Token
	precedence map[rune]int
}

func NewParser(source string) *Parser {
	p := &Parser{lex: lexer.NewLexer(source), precedence: make(map[rune]int)}
	for op, prec := range defaultPrecedence {
		p.precedence[op] = prec
	}
	p.advance()
	return p
}

func (p *Parser) advance() { p.current = p.lex.Next() }

func (p *Parser) check(t token.Type) bool { return p.current.Type == t }

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(t token.Type, msg string) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	util.Errorf(p.current.Line, p.current.Column, "%s, found %q", msg, p.current.String())
	return false
}

func (p *Parser) opRune() rune {
	if p.current.Type != token.Op || len(p.current.Value) == 0 {
		return 0
	}
	return rune(p.current.Value[0])
}

func (p *Parser) binOpPrecedence() int {
	op := p.opRune()
	if op == 0 {
		return -1
	}
	if prec, ok := p.precedence[op]; ok {
		return prec
	}
	return -1
}

// ParseTopLevel consumes exactly one top-level construct: a function definition, an
// extern declaration, or a bare expression (wrapped in the reserved ast.AnonExprName
// prototype). Returns nil, false at EOF.
func (p *Parser) ParseTopLevel() (*ast.Node, bool) {
	for p.match(token.Semi) {
	}
	if p.check(token.EOF) {
		return nil, false
	}
	switch {
	case p.check(token.Def):
		return p.parseFunction(), true
	case p.check(token.Extern):
		return p.parseExtern(), true
	default:
		return p.parseTopLevelExpr(), true
	}
}

func (p *Parser) parseTopLevelExpr() *ast.Node {
	expr := p.parseExpression()
	p.match(token.Semi)
	proto := ast.NewPrototype(ast.AnonExprName, nil, false, 0)
	return ast.NewFunction(proto, expr)
}

func (p *Parser) parseExtern() *ast.Node {
	p.advance() // 'extern'
	proto := p.parsePrototype()
	p.match(token.Semi)
	return proto
}

func (p *Parser) parseFunction() *ast.Node {
	p.advance() // 'def'
	proto := p.parsePrototype()
	body := p.parseExpression()
	p.match(token.Semi)
	return ast.NewFunction(proto, body)
}

// parsePrototype handles plain `name(args)`, `unary<op>(arg)` and
// `binary<op> [precedence](lhs rhs)` forms. Parameter names are separated by whitespace.
func (p *Parser) parsePrototype() *ast.Node {
	isOperator := false
	precedence := 30
	var name string

	switch {
	case p.check(token.Unary):
		p.advance()
		op := p.opRune()
		if op == 0 {
			util.Errorf(p.current.Line, p.current.Column, "expected an operator symbol after 'unary'")
		}
		p.advance()
		name = "unary" + string(op)
		isOperator = true
	case p.check(token.Binary):
		p.advance()
		op := p.opRune()
		if op == 0 {
			util.Errorf(p.current.Line, p.current.Column, "expected an operator symbol after 'binary'")
		}
		p.advance()
		name = "binary" + string(op)
		isOperator = true
		if p.check(token.Number) {
			precedence = int(p.current.Num)
			p.advance()
		}
		p.precedence[op] = precedence
	case p.check(token.Ident):
		name = p.current.Value
		p.advance()
	default:
		util.Errorf(p.current.Line, p.current.Column, "expected function name in prototype")
	}

	if !p.expect(token.LParen, "expected '(' in prototype") {
		return ast.NewPrototype(name, nil, isOperator, precedence)
	}
	var args []string
	for p.check(token.Ident) {
		args = append(args, p.current.Value)
		p.advance()
	}
	p.expect(token.RParen, "expected ')' in prototype")

	if isOperator && len(args) != operatorArity(name) {
		util.Errorf(p.current.Line, p.current.Column, "%s expects %d operand(s), got %d", name, operatorArity(name), len(args))
	}
	return ast.NewPrototype(name, args, isOperator, precedence)
}

func operatorArity(name string) int {
	if len(name) >= 5 && name[:5] == "unary" {
		return 1
	}
	return 2
}

// parseExpression parses a unary expression followed by a chain of binary operators,
// climbing precedence exactly like the tutorial's ParseBinOpRHS.
func (p *Parser) parseExpression() *ast.Node {
	lhs := p.parseUnary()
	return p.parseBinOpRHS(0, lhs)
}

func (p *Parser) parseBinOpRHS(exprPrec int, lhs *ast.Node) *ast.Node {
	for {
		prec := p.binOpPrecedence()
		if prec < exprPrec {
			return lhs
		}
		op := p.opRune()
		p.advance()

		rhs := p.parseUnary()

		nextPrec := p.binOpPrecedence()
		if prec < nextPrec {
			rhs = p.parseBinOpRHS(prec+1, rhs)
		}
		lhs = ast.NewBinary(op, lhs, rhs)
	}
}

// parseUnary treats any bare operator symbol in prefix position (including '-') as a
// unary operator application, matching the tutorial's ParseUnary; there is no built-in
// unary minus, so codegen lowers every one of them to a user-defined unary<op> call.
func (p *Parser) parseUnary() *ast.Node {
	if p.current.Type != token.Op || p.current.Value == "" {
		return p.parsePrimary()
	}
	op := p.opRune()
	p.advance()
	operand := p.parseUnary()
	return ast.NewUnary(op, operand)
}

func (p *Parser) parsePrimary() *ast.Node {
	switch {
	case p.check(token.Number):
		n := ast.NewNumber(p.current.Num)
		p.advance()
		return n
	case p.check(token.LParen):
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RParen, "expected ')'")
		return expr
	case p.check(token.Ident):
		return p.parseIdentOrCall()
	case p.check(token.If):
		return p.parseIf()
	case p.check(token.For):
		return p.parseFor()
	case p.check(token.Var):
		return p.parseVar()
	default:
		util.Errorf(p.current.Line, p.current.Column, "unexpected token %q", p.current.String())
		p.advance()
		return ast.NewNumber(0)
	}
}

func (p *Parser) parseIdentOrCall() *ast.Node {
	name := p.current.Value
	p.advance()
	if !p.match(token.LParen) {
		return ast.NewVariable(name)
	}
	var args []*ast.Node
	for !p.check(token.RParen) {
		args = append(args, p.parseExpression())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "expected ')' in call arguments")
	return ast.NewCall(name, args)
}

func (p *Parser) parseIf() *ast.Node {
	p.advance() // 'if'
	cond := p.parseExpression()
	p.expect(token.Then, "expected 'then'")
	thenE := p.parseExpression()
	var elseE *ast.Node
	if p.match(token.Else) {
		elseE = p.parseExpression()
	} else {
		util.Errorf(p.current.Line, p.current.Column, "Omitted Else are not supported yet")
	}
	return ast.NewIf(cond, thenE, elseE)
}

func (p *Parser) parseFor() *ast.Node {
	p.advance() // 'for'
	if !p.check(token.Ident) {
		util.Errorf(p.current.Line, p.current.Column, "expected identifier after 'for'")
	}
	varName := p.current.Value
	p.advance()
	p.expect(token.Op, "expected '=' after for variable")
	start := p.parseExpression()
	p.expect(token.Comma, "expected ',' after for start value")
	end := p.parseExpression()
	var step *ast.Node
	if p.match(token.Comma) {
		step = p.parseExpression()
	}
	p.expect(token.In, "expected 'in' after for")
	body := p.parseExpression()
	return ast.NewFor(varName, start, end, step, body)
}

func (p *Parser) parseVar() *ast.Node {
	p.advance() // 'var'
	var bindings []ast.Binding
	for {
		if !p.check(token.Ident) {
			util.Errorf(p.current.Line, p.current.Column, "expected identifier after 'var'")
			break
		}
		name := p.current.Value
		p.advance()
		var init *ast.Node
		if p.opRune() == '=' {
			p.advance()
			init = p.parseExpression()
		}
		bindings = append(bindings, ast.Binding{Name: name, Init: init})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.In, "expected 'in' after 'var'")
	body := p.parseExpression()
	return ast.NewDeclaration(bindings, body)
}
