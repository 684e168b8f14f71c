package jack

import "n2t.dev/toolchain/pkg/vm"

// ----------------------------------------------------------------------------
// VM Writer

// VMWriter accumulates the 'vm.Operation's emitted by the CompilationEngine into a single
// 'vm.Module', one per compiled class. It mirrors the original VM writer's one-method-per-
// command shape, but appends typed 'vm.Operation' values directly rather than VM mnemonic
// text: downstream (the VM Translator's own CodeGenerator) already owns the job of turning
// those operations back into source text, so there is no reason to round-trip through it here.
type VMWriter struct{ module vm.Module }

func NewVMWriter() *VMWriter { return &VMWriter{} }

func (w *VMWriter) WritePush(segment vm.SegmentType, offset uint16) {
	w.module = append(w.module, vm.MemoryOp{Operation: vm.Push, Segment: segment, Offset: offset})
}

func (w *VMWriter) WritePop(segment vm.SegmentType, offset uint16) {
	w.module = append(w.module, vm.MemoryOp{Operation: vm.Pop, Segment: segment, Offset: offset})
}

func (w *VMWriter) WriteArithmetic(op vm.ArithOpType) {
	w.module = append(w.module, vm.ArithmeticOp{Operation: op})
}

func (w *VMWriter) WriteLabel(name string) {
	w.module = append(w.module, vm.LabelDecl{Name: name})
}

func (w *VMWriter) WriteGoto(name string) {
	w.module = append(w.module, vm.GotoOp{Label: name, Jump: vm.Unconditional})
}

func (w *VMWriter) WriteIf(name string) {
	w.module = append(w.module, vm.GotoOp{Label: name, Jump: vm.Conditional})
}

func (w *VMWriter) WriteCall(name string, nArgs uint16) {
	w.module = append(w.module, vm.FuncCallOp{Name: name, NArgs: nArgs})
}

func (w *VMWriter) WriteFunction(name string, nLocals uint16) {
	w.module = append(w.module, vm.FuncDecl{Name: name, NLocal: nLocals})
}

func (w *VMWriter) WriteReturn() {
	w.module = append(w.module, vm.ReturnOp{})
}

// Module returns the accumulated operations for the class compiled so far.
func (w *VMWriter) Module() vm.Module { return w.module }

// segmentOf maps a Jack-level variable kind to the VM memory segment used to access it.
func segmentOf(kind VarType) vm.SegmentType {
	switch kind {
	case Local:
		return vm.Local
	case Field:
		return vm.This
	case Static:
		return vm.Static
	case Parameter:
		return vm.Argument
	default:
		return vm.Constant
	}
}
