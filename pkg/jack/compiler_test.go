package jack_test

import (
	"reflect"
	"strings"
	"testing"

	"n2t.dev/toolchain/pkg/jack"
	"n2t.dev/toolchain/pkg/vm"
)

func TestCompiler(t *testing.T) {
	test := func(source string, expected vm.Module, fail bool) {
		compiler := jack.NewCompiler(strings.NewReader(source))
		module, err := compiler.Compile()
		if err != nil {
			if !fail {
				t.Fatalf("unexpected error compiling source: %v", err)
			}
			return
		}
		if fail {
			t.Fatalf("expected compilation to fail, got module: %+v", module)
		}

		if len(module) != len(expected) {
			t.Fatalf("expected %d operations, got %d: %+v", len(expected), len(module), module)
		}
		for i, op := range module {
			if !reflect.DeepEqual(op, expected[i]) {
				t.Errorf("operation %d: expected %+v, got %+v", i, expected[i], op)
			}
		}
	}

	t.Run("Function call and return", func(t *testing.T) {
		test(`
			class Main {
				function void main() {
					do Main.run();
					return;
				}
				function int run() {
					return 7;
				}
			}
		`, vm.Module{
			vm.FuncDecl{Name: "Main.main", NLocal: 0},
			vm.FuncCallOp{Name: "Main.run", NArgs: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
			vm.FuncDecl{Name: "Main.run", NLocal: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 7},
			vm.ReturnOp{},
		}, false)
	})

	t.Run("Local variable arithmetic", func(t *testing.T) {
		test(`
			class Math2 {
				function int add(int a, int b) {
					var int sum;
					let sum = a + b;
					return sum;
				}
			}
		`, vm.Module{
			vm.FuncDecl{Name: "Math2.add", NLocal: 1},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 1},
			vm.ArithmeticOp{Operation: vm.Add},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Local, Offset: 0},
			vm.ReturnOp{},
		}, false)
	})

	t.Run("If/else branches", func(t *testing.T) {
		test(`
			class Cond {
				function int max(int a, int b) {
					if (a > b) {
						return a;
					} else {
						return b;
					}
				}
			}
		`, vm.Module{
			vm.FuncDecl{Name: "Cond.max", NLocal: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 1},
			vm.ArithmeticOp{Operation: vm.Gt},
			vm.GotoOp{Label: "L0", Jump: vm.Conditional},
			vm.GotoOp{Label: "L1", Jump: vm.Unconditional},
			vm.LabelDecl{Name: "L0"},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.ReturnOp{},
			vm.GotoOp{Label: "L2", Jump: vm.Unconditional},
			vm.LabelDecl{Name: "L1"},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 1},
			vm.ReturnOp{},
			vm.LabelDecl{Name: "L2"},
		}, false)
	})

	t.Run("Constructor allocates and binds this", func(t *testing.T) {
		test(`
			class Point {
				field int x, y;
				constructor Point new(int ax, int ay) {
					let x = ax;
					let y = ay;
					return this;
				}
			}
		`, vm.Module{
			vm.FuncDecl{Name: "Point.new", NLocal: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 2},
			vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.This, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 1},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.This, Offset: 1},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0},
			vm.ReturnOp{},
		}, false)
	})

	t.Run("Same-class method call binds implicit this", func(t *testing.T) {
		test(`
			class Counter {
				field int value;
				method void inc() {
					do bump();
					return;
				}
				method void bump() {
					let value = value + 1;
					return;
				}
			}
		`, vm.Module{
			vm.FuncDecl{Name: "Counter.inc", NLocal: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0},
			vm.FuncCallOp{Name: "Counter.bump", NArgs: 1},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
			vm.FuncDecl{Name: "Counter.bump", NLocal: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.This, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
			vm.ArithmeticOp{Operation: vm.Add},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.This, Offset: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
		}, false)
	})

	t.Run("Empty source is rejected", func(t *testing.T) {
		test("", nil, true)
	})

	t.Run("Undeclared variable is rejected", func(t *testing.T) {
		test(`
			class Broken {
				function void run() {
					let missing = 1;
					return;
				}
			}
		`, nil, true)
	})
}
