package jack

import (
	"fmt"
	"strconv"

	"n2t.dev/toolchain/pkg/vm"
)

// ----------------------------------------------------------------------------
// Compilation Engine

// CompilationEngine is a single-pass, recursive-descent compiler for one Jack class: it walks
// the token stream produced by Tokenize and emits 'vm.Operation's directly as it recognizes
// each grammar construct, never materializing an intermediate syntax tree. Whether an
// identifier denotes a variable, a same-class method, or an external class/function is
// resolved purely from what follows it in the token stream (a '[', a bare '(', a '.', or
// nothing) together with whatever the scope table currently knows about that name.
type CompilationEngine struct {
	tokens []Token
	pos    int

	class  string
	scopes *ScopeTable
	writer *VMWriter

	labels int
}

// NewCompilationEngine builds an engine ready to compile the single class described by
// 'tokens'. An empty token stream is rejected outright: there is no class to compile.
func NewCompilationEngine(tokens []Token) (*CompilationEngine, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("jack: input file is empty")
	}
	return &CompilationEngine{tokens: tokens, scopes: NewScopeTable(), writer: NewVMWriter()}, nil
}

// Compile drives the whole engine and returns the finished module for the class, equivalent
// to a '.vm' translation unit for it.
func (ce *CompilationEngine) Compile() (vm.Module, error) {
	if err := ce.compileClass(); err != nil {
		return nil, err
	}
	return ce.writer.Module(), nil
}

// ----------------------------------------------------------------------------
// Token cursor helpers

func (ce *CompilationEngine) current() (Token, error) {
	if ce.pos >= len(ce.tokens) {
		return Token{}, fmt.Errorf("jack: unexpected end of input")
	}
	return ce.tokens[ce.pos], nil
}

func (ce *CompilationEngine) peek(offset int) (Token, bool) {
	idx := ce.pos + offset
	if idx < 0 || idx >= len(ce.tokens) {
		return Token{}, false
	}
	return ce.tokens[idx], true
}

func (ce *CompilationEngine) advance() (Token, error) {
	tok, err := ce.current()
	if err != nil {
		return Token{}, err
	}
	ce.pos++
	return tok, nil
}

// eat consumes the current token, requiring it to match 'typ' and, if 'value' is non-empty,
// the literal lexeme too. Returns the consumed lexeme.
func (ce *CompilationEngine) eat(typ TokenType, value string) (string, error) {
	tok, err := ce.current()
	if err != nil {
		return "", err
	}
	if tok.Type != typ || (value != "" && tok.Value != value) {
		return "", fmt.Errorf("jack: expected %s %q, got %s %q", typ, value, tok.Type, tok.Value)
	}
	ce.pos++
	return tok.Value, nil
}

func (ce *CompilationEngine) isKeyword(value string) bool {
	tok, ok := ce.peek(0)
	return ok && tok.Type == KeywordTok && tok.Value == value
}

func (ce *CompilationEngine) isSymbol(value string) bool {
	tok, ok := ce.peek(0)
	return ok && tok.Type == SymbolTok && tok.Value == value
}

func (ce *CompilationEngine) createLabel() string {
	label := fmt.Sprintf("L%d", ce.labels)
	ce.labels++
	return label
}

// ----------------------------------------------------------------------------
// Class, fields and subroutines

func (ce *CompilationEngine) compileClass() error {
	if _, err := ce.eat(KeywordTok, "class"); err != nil {
		return err
	}
	name, err := ce.eat(IdentifierTok, "")
	if err != nil {
		return fmt.Errorf("jack: expected class name: %w", err)
	}
	ce.class = name
	ce.scopes.PushClassScope(name)
	defer ce.scopes.PopClassScope()

	if _, err := ce.eat(SymbolTok, "{"); err != nil {
		return err
	}

	for ce.isKeyword("static") || ce.isKeyword("field") {
		if err := ce.compileClassVarDec(); err != nil {
			return err
		}
	}

	for ce.isKeyword("constructor") || ce.isKeyword("function") || ce.isKeyword("method") {
		if err := ce.compileSubroutine(); err != nil {
			return err
		}
	}

	_, err = ce.eat(SymbolTok, "}")
	return err
}

func (ce *CompilationEngine) compileClassVarDec() error {
	kindTok, err := ce.advance()
	if err != nil {
		return err
	}
	kind := Static
	if kindTok.Value == "field" {
		kind = Field
	}

	dataType, className, err := ce.compileType()
	if err != nil {
		return err
	}

	for {
		varName, err := ce.eat(IdentifierTok, "")
		if err != nil {
			return fmt.Errorf("jack: expected variable name in declaration: %w", err)
		}
		ce.scopes.RegisterVariable(Variable{Name: varName, Type: kind, DataType: dataType, ClassName: className})

		if !ce.isSymbol(",") {
			break
		}
		ce.pos++ // consume ','
	}

	_, err = ce.eat(SymbolTok, ";")
	return err
}

// compileType consumes a primitive type keyword or a class name identifier, returning the
// resolved 'DataType' and (for object types) the referenced class name.
func (ce *CompilationEngine) compileType() (DataType, string, error) {
	tok, err := ce.current()
	if err != nil {
		return "", "", err
	}

	switch {
	case tok.Type == KeywordTok && tok.Value == "int":
		ce.pos++
		return Int, "", nil
	case tok.Type == KeywordTok && tok.Value == "char":
		ce.pos++
		return Char, "", nil
	case tok.Type == KeywordTok && tok.Value == "boolean":
		ce.pos++
		return Bool, "", nil
	case tok.Type == KeywordTok && tok.Value == "void":
		ce.pos++
		return Void, "", nil
	case tok.Type == IdentifierTok:
		ce.pos++
		return Object, tok.Value, nil
	default:
		return "", "", fmt.Errorf("jack: expected a type, got %s %q", tok.Type, tok.Value)
	}
}

func (ce *CompilationEngine) compileSubroutine() error {
	kindTok, err := ce.advance()
	if err != nil {
		return err
	}

	var subType SubroutineType
	switch kindTok.Value {
	case "constructor":
		subType = Constructor
	case "method":
		subType = Method
	default:
		subType = Function
	}

	if _, _, err := ce.compileType(); err != nil { // return type, only needed for grammar validation here
		return err
	}

	subName, err := ce.eat(IdentifierTok, "")
	if err != nil {
		return fmt.Errorf("jack: expected subroutine name: %w", err)
	}

	ce.scopes.PushSubRoutineScope(subName)
	defer ce.scopes.PopSubroutineScope()

	if subType == Method {
		// The implicit receiver always occupies argument slot 0.
		ce.scopes.RegisterVariable(Variable{Name: "this", Type: Parameter, DataType: Object, ClassName: ce.class})
	}

	if _, err := ce.eat(SymbolTok, "("); err != nil {
		return err
	}
	if err := ce.compileParameterList(); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, ")"); err != nil {
		return err
	}

	if _, err := ce.eat(SymbolTok, "{"); err != nil {
		return err
	}

	var nLocals uint16
	for ce.isKeyword("var") {
		n, err := ce.compileVarDec()
		if err != nil {
			return err
		}
		nLocals += n
	}

	ce.writer.WriteFunction(fmt.Sprintf("%s.%s", ce.class, subName), nLocals)

	switch subType {
	case Constructor:
		ce.writer.WritePush(vm.Constant, ce.scopes.FieldCount())
		ce.writer.WriteCall("Memory.alloc", 1)
		ce.writer.WritePop(vm.Pointer, 0)
	case Method:
		ce.writer.WritePush(vm.Argument, 0)
		ce.writer.WritePop(vm.Pointer, 0)
	}

	if err := ce.compileStatements(); err != nil {
		return err
	}

	_, err = ce.eat(SymbolTok, "}")
	return err
}

func (ce *CompilationEngine) compileParameterList() error {
	if ce.isSymbol(")") {
		return nil
	}

	for {
		dataType, className, err := ce.compileType()
		if err != nil {
			return err
		}
		paramName, err := ce.eat(IdentifierTok, "")
		if err != nil {
			return fmt.Errorf("jack: expected parameter name: %w", err)
		}
		ce.scopes.RegisterVariable(Variable{Name: paramName, Type: Parameter, DataType: dataType, ClassName: className})

		if !ce.isSymbol(",") {
			return nil
		}
		ce.pos++ // consume ','
	}
}

func (ce *CompilationEngine) compileVarDec() (uint16, error) {
	if _, err := ce.eat(KeywordTok, "var"); err != nil {
		return 0, err
	}
	dataType, className, err := ce.compileType()
	if err != nil {
		return 0, err
	}

	var count uint16
	for {
		varName, err := ce.eat(IdentifierTok, "")
		if err != nil {
			return 0, fmt.Errorf("jack: expected variable name in declaration: %w", err)
		}
		ce.scopes.RegisterVariable(Variable{Name: varName, Type: Local, DataType: dataType, ClassName: className})
		count++

		if !ce.isSymbol(",") {
			break
		}
		ce.pos++ // consume ','
	}

	if _, err := ce.eat(SymbolTok, ";"); err != nil {
		return 0, err
	}
	return count, nil
}

// ----------------------------------------------------------------------------
// Statements

func (ce *CompilationEngine) compileStatements() error {
	for {
		switch {
		case ce.isKeyword("let"):
			if err := ce.compileLet(); err != nil {
				return err
			}
		case ce.isKeyword("if"):
			if err := ce.compileIf(); err != nil {
				return err
			}
		case ce.isKeyword("while"):
			if err := ce.compileWhile(); err != nil {
				return err
			}
		case ce.isKeyword("do"):
			if err := ce.compileDo(); err != nil {
				return err
			}
		case ce.isKeyword("return"):
			if err := ce.compileReturn(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (ce *CompilationEngine) compileLet() error {
	if _, err := ce.eat(KeywordTok, "let"); err != nil {
		return err
	}
	varName, err := ce.eat(IdentifierTok, "")
	if err != nil {
		return fmt.Errorf("jack: expected variable name: %w", err)
	}

	isArray := false
	if ce.isSymbol("[") {
		isArray = true
		ce.pos++ // consume '['

		offset, variable, err := ce.scopes.ResolveVariable(varName)
		if err != nil {
			return fmt.Errorf("jack: %w", err)
		}
		ce.writer.WritePush(segmentOf(variable.Type), offset)

		if err := ce.compileExpression(); err != nil {
			return err
		}
		ce.writer.WriteArithmetic(vm.Add)

		if _, err := ce.eat(SymbolTok, "]"); err != nil {
			return err
		}
	}

	if _, err := ce.eat(SymbolTok, "="); err != nil {
		return err
	}
	if err := ce.compileExpression(); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, ";"); err != nil {
		return err
	}

	if isArray {
		ce.writer.WritePop(vm.Temp, 0)
		ce.writer.WritePop(vm.Pointer, 1)
		ce.writer.WritePush(vm.Temp, 0)
		ce.writer.WritePop(vm.That, 0)
		return nil
	}

	offset, variable, err := ce.scopes.ResolveVariable(varName)
	if err != nil {
		return fmt.Errorf("jack: %w", err)
	}
	ce.writer.WritePop(segmentOf(variable.Type), offset)
	return nil
}

func (ce *CompilationEngine) compileIf() error {
	if _, err := ce.eat(KeywordTok, "if"); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, "("); err != nil {
		return err
	}
	if err := ce.compileExpression(); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, ")"); err != nil {
		return err
	}

	trueLabel, falseLabel := ce.createLabel(), ce.createLabel()
	ce.writer.WriteIf(trueLabel)
	ce.writer.WriteGoto(falseLabel)
	ce.writer.WriteLabel(trueLabel)

	if _, err := ce.eat(SymbolTok, "{"); err != nil {
		return err
	}
	if err := ce.compileStatements(); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, "}"); err != nil {
		return err
	}

	if !ce.isKeyword("else") {
		ce.writer.WriteLabel(falseLabel)
		return nil
	}

	endLabel := ce.createLabel()
	ce.writer.WriteGoto(endLabel)
	ce.writer.WriteLabel(falseLabel)

	ce.pos++ // consume 'else'
	if _, err := ce.eat(SymbolTok, "{"); err != nil {
		return err
	}
	if err := ce.compileStatements(); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, "}"); err != nil {
		return err
	}

	ce.writer.WriteLabel(endLabel)
	return nil
}

func (ce *CompilationEngine) compileWhile() error {
	topLabel, endLabel := ce.createLabel(), ce.createLabel()
	ce.writer.WriteLabel(topLabel)

	if _, err := ce.eat(KeywordTok, "while"); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, "("); err != nil {
		return err
	}
	if err := ce.compileExpression(); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, ")"); err != nil {
		return err
	}

	ce.writer.WriteArithmetic(vm.Not)
	ce.writer.WriteIf(endLabel)

	if _, err := ce.eat(SymbolTok, "{"); err != nil {
		return err
	}
	if err := ce.compileStatements(); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, "}"); err != nil {
		return err
	}

	ce.writer.WriteGoto(topLabel)
	ce.writer.WriteLabel(endLabel)
	return nil
}

func (ce *CompilationEngine) compileDo() error {
	if _, err := ce.eat(KeywordTok, "do"); err != nil {
		return err
	}
	if err := ce.compileSubroutineCall(); err != nil {
		return err
	}
	if _, err := ce.eat(SymbolTok, ";"); err != nil {
		return err
	}
	ce.writer.WritePop(vm.Temp, 0) // 'do' always discards the call's return value
	return nil
}

func (ce *CompilationEngine) compileReturn() error {
	if _, err := ce.eat(KeywordTok, "return"); err != nil {
		return err
	}

	if ce.isSymbol(";") {
		ce.writer.WritePush(vm.Constant, 0) // void subroutines still return a dummy value
	} else if err := ce.compileExpression(); err != nil {
		return err
	}

	if _, err := ce.eat(SymbolTok, ";"); err != nil {
		return err
	}
	ce.writer.WriteReturn()
	return nil
}

// ----------------------------------------------------------------------------
// Expressions

var binaryOps = map[string]ExprType{
	"+": Plus, "-": Minus, "*": Multiply, "/": Divide,
	"&": BoolAnd, "|": BoolOr, "<": LessThan, ">": GreatThan, "=": Equal,
}

func (ce *CompilationEngine) compileExpression() error {
	if err := ce.compileTerm(); err != nil {
		return err
	}

	for {
		tok, ok := ce.peek(0)
		if !ok || tok.Type != SymbolTok {
			return nil
		}
		op, isOp := binaryOps[tok.Value]
		if !isOp {
			return nil
		}
		ce.pos++ // consume operator

		if err := ce.compileTerm(); err != nil {
			return err
		}
		ce.emitBinaryOp(op)
	}
}

func (ce *CompilationEngine) emitBinaryOp(op ExprType) {
	switch op {
	case Plus:
		ce.writer.WriteArithmetic(vm.Add)
	case Minus:
		ce.writer.WriteArithmetic(vm.Sub)
	case BoolAnd:
		ce.writer.WriteArithmetic(vm.And)
	case BoolOr:
		ce.writer.WriteArithmetic(vm.Or)
	case Equal:
		ce.writer.WriteArithmetic(vm.Eq)
	case LessThan:
		ce.writer.WriteArithmetic(vm.Lt)
	case GreatThan:
		ce.writer.WriteArithmetic(vm.Gt)
	case Multiply:
		ce.writer.WriteCall("Math.multiply", 2)
	case Divide:
		ce.writer.WriteCall("Math.divide", 2)
	}
}

// compileExpressionList compiles a comma separated list of expressions (an argument list)
// and returns how many were found.
func (ce *CompilationEngine) compileExpressionList() (uint16, error) {
	if ce.isSymbol(")") {
		return 0, nil
	}

	var count uint16
	for {
		if err := ce.compileExpression(); err != nil {
			return 0, err
		}
		count++

		if !ce.isSymbol(",") {
			return count, nil
		}
		ce.pos++ // consume ','
	}
}

func (ce *CompilationEngine) compileTerm() error {
	tok, err := ce.current()
	if err != nil {
		return err
	}

	switch {
	case tok.Type == IntConstTok:
		value, err := strconv.Atoi(tok.Value)
		if err != nil {
			return fmt.Errorf("jack: invalid integer constant %q: %w", tok.Value, err)
		}
		ce.writer.WritePush(vm.Constant, uint16(value))
		ce.pos++
		return nil

	case tok.Type == StringConstTok:
		ce.pos++
		return ce.compileStringConstant(tok.Value)

	case tok.Type == KeywordTok && tok.Value == "true":
		ce.writer.WritePush(vm.Constant, 0)
		ce.writer.WriteArithmetic(vm.Not)
		ce.pos++
		return nil

	case tok.Type == KeywordTok && (tok.Value == "false" || tok.Value == "null"):
		ce.writer.WritePush(vm.Constant, 0)
		ce.pos++
		return nil

	case tok.Type == KeywordTok && tok.Value == "this":
		ce.writer.WritePush(vm.Pointer, 0)
		ce.pos++
		return nil

	case tok.Type == SymbolTok && tok.Value == "(":
		ce.pos++
		if err := ce.compileExpression(); err != nil {
			return err
		}
		_, err := ce.eat(SymbolTok, ")")
		return err

	case tok.Type == SymbolTok && (tok.Value == "-" || tok.Value == "~"):
		ce.pos++
		if err := ce.compileTerm(); err != nil {
			return err
		}
		if tok.Value == "-" {
			ce.writer.WriteArithmetic(vm.Neg)
		} else {
			ce.writer.WriteArithmetic(vm.Not)
		}
		return nil

	case tok.Type == IdentifierTok:
		return ce.compileIdentifierTerm()

	default:
		return fmt.Errorf("jack: unexpected token %s %q in expression", tok.Type, tok.Value)
	}
}

// compileStringConstant lowers a Jack string literal into the standard library sequence that
// allocates a 'String' object and appends one character at a time.
func (ce *CompilationEngine) compileStringConstant(literal string) error {
	chars := []rune(literal)

	ce.writer.WritePush(vm.Constant, uint16(len(chars)))
	ce.writer.WriteCall("String.new", 1)

	// 'String.appendChar' returns the string it was called on, so the string stays on top
	// of the stack from one call to the next.
	for _, r := range chars {
		ce.writer.WritePush(vm.Constant, uint16(r))
		ce.writer.WriteCall("String.appendChar", 2)
	}
	return nil
}

// compileIdentifierTerm resolves what a bare identifier means purely from the token that
// follows it: '[' is array access, '(' is a same-class call, '.' is either an object's method
// call or an external class/function call, and anything else is a plain variable read.
func (ce *CompilationEngine) compileIdentifierTerm() error {
	name, err := ce.eat(IdentifierTok, "")
	if err != nil {
		return err
	}

	switch {
	case ce.isSymbol("["):
		ce.pos++ // consume '['
		offset, variable, err := ce.scopes.ResolveVariable(name)
		if err != nil {
			return fmt.Errorf("jack: %w", err)
		}
		ce.writer.WritePush(segmentOf(variable.Type), offset)

		if err := ce.compileExpression(); err != nil {
			return err
		}
		if _, err := ce.eat(SymbolTok, "]"); err != nil {
			return err
		}

		ce.writer.WriteArithmetic(vm.Add)
		ce.writer.WritePop(vm.Pointer, 1)
		ce.writer.WritePush(vm.That, 0)
		return nil

	case ce.isSymbol("("):
		ce.pos++ // consume '('
		ce.writer.WritePush(vm.Pointer, 0) // implicit 'this' for a same-class method call
		nArgs, err := ce.compileExpressionList()
		if err != nil {
			return err
		}
		if _, err := ce.eat(SymbolTok, ")"); err != nil {
			return err
		}
		ce.writer.WriteCall(fmt.Sprintf("%s.%s", ce.class, name), nArgs+1)
		return nil

	case ce.isSymbol("."):
		ce.pos++ // consume '.'
		subName, err := ce.eat(IdentifierTok, "")
		if err != nil {
			return fmt.Errorf("jack: expected subroutine name after '.': %w", err)
		}
		if _, err := ce.eat(SymbolTok, "("); err != nil {
			return err
		}

		var argOffset uint16
		callee := name
		if offset, variable, err := ce.scopes.ResolveVariable(name); err == nil {
			ce.writer.WritePush(segmentOf(variable.Type), offset)
			callee = variable.ClassName
			argOffset = 1
		}

		nArgs, err := ce.compileExpressionList()
		if err != nil {
			return err
		}
		if _, err := ce.eat(SymbolTok, ")"); err != nil {
			return err
		}

		ce.writer.WriteCall(fmt.Sprintf("%s.%s", callee, subName), nArgs+argOffset)
		return nil

	default:
		offset, variable, err := ce.scopes.ResolveVariable(name)
		if err != nil {
			return fmt.Errorf("jack: %w", err)
		}
		ce.writer.WritePush(segmentOf(variable.Type), offset)
		return nil
	}
}

// compileSubroutineCall shares its resolution logic with the identifier branch of
// compileTerm: a 'do' statement's call is syntactically identical to a call used as a term.
func (ce *CompilationEngine) compileSubroutineCall() error {
	return ce.compileIdentifierTerm()
}
