package vm

import (
	"fmt"

	"n2t.dev/toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Code Writer

// Translates parsed VM operations into Hack assembly, reproducing the stack machine's
// call/return ABI and the fixed/virtual memory segment addressing scheme.
//
// A CodeWriter is stateful across an entire translation run: it keeps a label and a
// return-address counter alive across files (so two functions named identically in
// different modules never collide) and tracks which file/function is currently active
// so that 'goto'/'if-goto'/'label' can be scoped correctly.
type CodeWriter struct {
	labelCounter  int    // Mint counter for comparison operation labels (COMP_TRUE_n/COMP_END_n)
	returnCounter int    // Mint counter for call return-address labels (f$ret.k)
	currentFile   string // File stem of the module currently being translated (for 'static')
	currentFunc   string // Name of the function currently being translated (for label scoping)
}

// Initializes and returns to the caller a brand new, zeroed 'CodeWriter'.
func NewCodeWriter() *CodeWriter {
	return &CodeWriter{}
}

// Resets the per-file state of the writer, called by the Translator before every module.
// Every VM module starts with no function active: a bare 'label'/'goto' falls back to the
// file-scoped prefix until the first 'function' declaration is seen.
func (cw *CodeWriter) SetFile(stem string) {
	cw.currentFile = stem
	cw.currentFunc = ""
}

// Emits the bootstrap sequence that initializes the stack pointer and calls 'Sys.init'.
// Only ever emitted once, by the Translator, ahead of any translated module.
func (cw *CodeWriter) WriteBootstrap() ([]asm.Statement, error) {
	stmts := []asm.Statement{
		asm.Comment{Text: "bootstrap"},
		asm.AInstruction{Location: "256"}, asm.CInstruction{Comp: "A", Dest: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "D", Dest: "M"},
	}
	call, err := cw.WriteFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})
	if err != nil {
		return nil, err
	}
	return append(stmts, call...), nil
}

// Translates a single 'vm.Operation' to its Hack assembly statements, dispatching by type.
func (cw *CodeWriter) Write(op Operation) ([]asm.Statement, error) {
	var body []asm.Statement
	var err error

	switch tOp := op.(type) {
	case MemoryOp:
		body, err = cw.WriteMemoryOp(tOp)
	case ArithmeticOp:
		body, err = cw.WriteArithmeticOp(tOp)
	case LabelDecl:
		body, err = cw.WriteLabelDecl(tOp)
	case GotoOp:
		body, err = cw.WriteGotoOp(tOp)
	case FuncDecl:
		body, err = cw.WriteFuncDecl(tOp)
	case FuncCallOp:
		body, err = cw.WriteFuncCallOp(tOp)
	case ReturnOp:
		body, err = cw.WriteReturnOp()
	default:
		return nil, fmt.Errorf("vm: unrecognized operation %T", op)
	}

	if err != nil {
		return nil, err
	}
	return append([]asm.Statement{asm.Comment{Text: cw.echo(op)}}, body...), nil
}

// Renders the source VM command as plain text, for the echo comment prepended to every
// emitted assembly block (helps a human reader correlate the two listings).
func (cw *CodeWriter) echo(op Operation) string {
	gen := NewCodeGenerator(Program{})
	text, err := gen.generateOperation(op)
	if err != nil {
		return fmt.Sprintf("%T", op)
	}
	return text
}

// ----------------------------------------------------------------------------
// Stack primitives

// Push sequence assuming the value to push is already loaded into the D register.
func pushFromD() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M+1", Dest: "M"},
	}
}

// Pop sequence leaving the popped value in the D register (SP decremented in place).
func popToD() []asm.Statement {
	return []asm.Statement{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
	}
}

// ----------------------------------------------------------------------------
// Memory segment operations

var fixedSegment = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// Specialized function to translate a 'MemoryOp' (push/pop) to its assembly statements.
func (cw *CodeWriter) WriteMemoryOp(op MemoryOp) ([]asm.Statement, error) {
	switch op.Operation {
	case Push:
		return cw.pushSegment(op.Segment, op.Offset)
	case Pop:
		return cw.popSegment(op.Segment, op.Offset)
	default:
		return nil, fmt.Errorf("vm: unrecognized memory operation '%s'", op.Operation)
	}
}

// Loads the value held at 'segment[offset]' into D, then pushes it on the stack.
func (cw *CodeWriter) pushSegment(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	var toD []asm.Statement

	switch {
	case fixedSegment[segment] != "":
		toD = []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Comp: "A", Dest: "D"},
			asm.AInstruction{Location: fixedSegment[segment]}, asm.CInstruction{Comp: "D+M", Dest: "A"},
			asm.CInstruction{Comp: "M", Dest: "D"},
		}
	case segment == Pointer:
		if offset > 1 {
			return nil, fmt.Errorf("vm: invalid 'pointer' offset, got %d", offset)
		}
		toD = []asm.Statement{
			asm.AInstruction{Location: pointerTarget(offset)}, asm.CInstruction{Comp: "M", Dest: "D"},
		}
	case segment == Temp:
		if offset > 7 {
			return nil, fmt.Errorf("vm: invalid 'temp' offset, got %d", offset)
		}
		toD = []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(5 + offset)}, asm.CInstruction{Comp: "M", Dest: "D"},
		}
	case segment == Constant:
		toD = []asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Comp: "A", Dest: "D"},
		}
	case segment == Static:
		toD = []asm.Statement{
			asm.AInstruction{Location: cw.staticSymbol(offset)}, asm.CInstruction{Comp: "M", Dest: "D"},
		}
	default:
		return nil, fmt.Errorf("vm: unsupported segment '%s'", segment)
	}

	return append(toD, pushFromD()...), nil
}

// Pops the stack top and stores it at 'segment[offset]'. Popping to 'constant' is illegal,
// it is a read-only virtual segment used only to push numeric literals.
func (cw *CodeWriter) popSegment(segment SegmentType, offset uint16) ([]asm.Statement, error) {
	switch {
	case fixedSegment[segment] != "":
		return append([]asm.Statement{
			asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Comp: "A", Dest: "D"},
			asm.AInstruction{Location: fixedSegment[segment]}, asm.CInstruction{Comp: "D+M", Dest: "D"},
			asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "D", Dest: "M"},
		}, append(popToD(),
			asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "M", Dest: "A"},
			asm.CInstruction{Comp: "D", Dest: "M"},
		)...), nil

	case segment == Pointer:
		if offset > 1 {
			return nil, fmt.Errorf("vm: invalid 'pointer' offset, got %d", offset)
		}
		return append(popToD(),
			asm.AInstruction{Location: pointerTarget(offset)}, asm.CInstruction{Comp: "D", Dest: "M"},
		), nil

	case segment == Temp:
		if offset > 7 {
			return nil, fmt.Errorf("vm: invalid 'temp' offset, got %d", offset)
		}
		return append(popToD(),
			asm.AInstruction{Location: fmt.Sprint(5 + offset)}, asm.CInstruction{Comp: "D", Dest: "M"},
		), nil

	case segment == Static:
		return append(popToD(),
			asm.AInstruction{Location: cw.staticSymbol(offset)}, asm.CInstruction{Comp: "D", Dest: "M"},
		), nil

	default:
		return nil, fmt.Errorf("vm: segment '%s' cannot be popped (constant is read-only)", segment)
	}
}

func pointerTarget(offset uint16) string {
	if offset == 0 {
		return "THIS"
	}
	return "THAT"
}

func (cw *CodeWriter) staticSymbol(offset uint16) string {
	return fmt.Sprintf("%s.%d", cw.currentFile, offset)
}

// ----------------------------------------------------------------------------
// Arithmetic, logic and comparison operations

// Specialized function to translate an 'ArithmeticOp' to its assembly statements.
//
// 'add/sub/and/or' pop two operands and store the result at the new stack top; 'neg/not'
// operate in place at 'SP-1'; 'eq/gt/lt' compute 'D = x - y' and branch on the comparison
// result, since the Hack ALU has no direct boolean output.
func (cw *CodeWriter) WriteArithmeticOp(op ArithmeticOp) ([]asm.Statement, error) {
	binary := func(comp string) []asm.Statement {
		return []asm.Statement{
			asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
			asm.CInstruction{Comp: "M", Dest: "D"},
			asm.CInstruction{Comp: "A-1", Dest: "A"},
			asm.CInstruction{Comp: comp, Dest: "M"},
		}
	}
	unary := func(comp string) []asm.Statement {
		return []asm.Statement{
			asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "A"},
			asm.CInstruction{Comp: comp, Dest: "M"},
		}
	}

	switch op.Operation {
	case Add:
		return binary("D+M"), nil
	case Sub:
		return binary("M-D"), nil
	case And:
		return binary("D&M"), nil
	case Or:
		return binary("D|M"), nil
	case Neg:
		return unary("-M"), nil
	case Not:
		return unary("!M"), nil
	case Eq, Gt, Lt:
		return cw.compare(op.Operation), nil
	default:
		return nil, fmt.Errorf("vm: unrecognized arithmetic operation '%s'", op.Operation)
	}
}

var compareJump = map[ArithOpType]string{Eq: "JEQ", Gt: "JGT", Lt: "JLT"}

// Compares the top two stack values ('x' below, 'y' on top: D = x - y), jumps to a minted
// true-label if the comparison holds, sets the new stack top to all-ones (true, -1) or
// all-zeros (false, 0) accordingly, then falls through a minted end-label.
func (cw *CodeWriter) compare(op ArithOpType) []asm.Statement {
	trueLabel := fmt.Sprintf("COMP_TRUE_%d", cw.labelCounter)
	endLabel := fmt.Sprintf("COMP_END_%d", cw.labelCounter)
	cw.labelCounter++

	return []asm.Statement{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.CInstruction{Comp: "A-1", Dest: "A"},
		asm.CInstruction{Comp: "M-D", Dest: "D"},
		asm.AInstruction{Location: trueLabel}, asm.CInstruction{Comp: "D", Jump: compareJump[op]},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "0", Dest: "M"},
		asm.AInstruction{Location: endLabel}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M-1", Dest: "A"},
		asm.CInstruction{Comp: "-1", Dest: "M"},
		asm.LabelDecl{Name: endLabel},
	}
}

// ----------------------------------------------------------------------------
// Control flow

// A label or goto target is scoped to the currently active function; outside of
// any function body it falls back to the current file stem, so two files' top-level labels
// never collide even though neither declared a function.
func (cw *CodeWriter) scopedLabel(name string) string {
	if cw.currentFunc != "" {
		return fmt.Sprintf("%s$%s", cw.currentFunc, name)
	}
	return fmt.Sprintf("%s$%s", cw.currentFile, name)
}

// Specialized function to translate a 'LabelDecl' to its assembly statements.
func (cw *CodeWriter) WriteLabelDecl(op LabelDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("vm: unable to produce empty label declaration")
	}
	return []asm.Statement{asm.LabelDecl{Name: cw.scopedLabel(op.Name)}}, nil
}

// Specialized function to translate a 'GotoOp' to its assembly statements.
//
// 'goto' jumps unconditionally; 'if-goto' pops the stack top and jumps only if it is
// non-zero ('D;JNE'), since the Jack compiler never emits a value other than 0 or -1
// for boolean expressions.
func (cw *CodeWriter) WriteGotoOp(op GotoOp) ([]asm.Statement, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("vm: unable to produce empty jump label")
	}

	target := cw.scopedLabel(op.Label)
	switch op.Jump {
	case Unconditional:
		return []asm.Statement{
			asm.AInstruction{Location: target}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	case Conditional:
		return append(popToD(),
			asm.AInstruction{Location: target}, asm.CInstruction{Comp: "D", Jump: "JNE"},
		), nil
	default:
		return nil, fmt.Errorf("vm: unrecognized jump type '%s'", op.Jump)
	}
}

// ----------------------------------------------------------------------------
// Function declaration, call and return

// Specialized function to translate a 'FuncDecl' to its assembly statements.
//
// Declares the entry label, then zero-initializes 'NLocal' local slots by pushing the
// constant 0 that many times (a local starts life undefined in Hack RAM otherwise).
func (cw *CodeWriter) WriteFuncDecl(op FuncDecl) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("vm: unable to produce empty function declaration")
	}

	cw.currentFunc = op.Name
	stmts := []asm.Statement{asm.LabelDecl{Name: op.Name}}

	zero, err := cw.pushSegment(Constant, 0)
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < op.NLocal; i++ {
		stmts = append(stmts, zero...)
	}
	return stmts, nil
}

// Specialized function to translate a 'FuncCallOp' to its assembly statements.
//
// Saves the caller's frame (return address, LCL, ARG, THIS, THAT) on the stack, repositions
// ARG to the base of the callee's arguments and LCL to the current stack top, then jumps to
// the callee. The return address is a freshly minted 'f$ret.k' label declared right after
// the jump, so the callee's 'return' can simply jump back to it.
func (cw *CodeWriter) WriteFuncCallOp(op FuncCallOp) ([]asm.Statement, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("vm: unable to produce empty function call")
	}

	retLabel := fmt.Sprintf("%s$ret.%d", op.Name, cw.returnCounter)
	cw.returnCounter++

	stmts := []asm.Statement{
		asm.AInstruction{Location: retLabel}, asm.CInstruction{Comp: "A", Dest: "D"},
	}
	stmts = append(stmts, pushFromD()...)
	for _, saved := range []string{"LCL", "ARG", "THIS", "THAT"} {
		stmts = append(stmts, asm.AInstruction{Location: saved}, asm.CInstruction{Comp: "M", Dest: "D"})
		stmts = append(stmts, pushFromD()...)
	}

	// ARG = SP - 5 - nArgs
	stmts = append(stmts,
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "5"}, asm.CInstruction{Comp: "D-A", Dest: "D"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs)}, asm.CInstruction{Comp: "D-A", Dest: "D"},
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// LCL = SP
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// goto f
		asm.AInstruction{Location: op.Name}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		// (f$ret.k)
		asm.LabelDecl{Name: retLabel},
	)

	return stmts, nil
}

// Specialized function to translate a 'ReturnOp' to its assembly statements.
//
// Stashes the frame base in R13 and the return address (frame-5) in R14 before the
// return value overwrites ARG (its own former slot may alias the frame once SP shrinks),
// restores THAT/THIS/ARG/LCL by walking R13 backwards, then jumps to R14.
func (cw *CodeWriter) WriteReturnOp() ([]asm.Statement, error) {
	stmts := []asm.Statement{
		// frame (R13) = LCL
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "D", Dest: "M"},
		// retAddr (R14) = *(frame - 5)
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "5"}, asm.CInstruction{Comp: "D-A", Dest: "A"},
		asm.CInstruction{Comp: "M", Dest: "D"},
		asm.AInstruction{Location: "R14"}, asm.CInstruction{Comp: "D", Dest: "M"},
	}

	// *ARG = pop()
	stmts = append(stmts, popToD()...)
	stmts = append(stmts,
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Comp: "M", Dest: "A"},
		asm.CInstruction{Comp: "D", Dest: "M"},
		// SP = ARG + 1
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Comp: "M+1", Dest: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Comp: "D", Dest: "M"},
	)

	for _, restored := range []string{"THAT", "THIS", "ARG", "LCL"} {
		stmts = append(stmts,
			asm.AInstruction{Location: "R13"}, asm.CInstruction{Comp: "M-1", Dest: "AM"},
			asm.CInstruction{Comp: "M", Dest: "D"},
			asm.AInstruction{Location: restored}, asm.CInstruction{Comp: "D", Dest: "M"},
		)
	}

	stmts = append(stmts, asm.AInstruction{Location: "R14"}, asm.CInstruction{Comp: "M", Dest: "A"})
	stmts = append(stmts, asm.CInstruction{Comp: "0", Jump: "JMP"})
	return stmts, nil
}
