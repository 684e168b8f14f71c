package asm_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/asm"
)

func TestAInstructions(t *testing.T) {
	// Instantiate a shared codegen for every test case
	codegen := asm.NewCodeGenerator([]asm.Statement{})

	test := func(inst asm.AInstruction, expected string, fail bool) {
		res, err := codegen.GenerateAInst(inst)
		if err != nil {
			if !fail {
				t.Fatalf("unexpected error for %+v: %s", inst, err)
			}
			return
		}
		if fail {
			t.Fatalf("expected error for %+v, got %q", inst, res)
		}
		if res != expected {
			t.Fatalf("GenerateAInst(%+v) = %q, want %q", inst, res, expected)
		}
	}

	t.Run("Raw memory access", func(t *testing.T) {
		test(asm.AInstruction{Location: "38"}, "@38", false)
		test(asm.AInstruction{Location: "42"}, "@42", false)
		test(asm.AInstruction{Location: "64"}, "@64", false)
		test(asm.AInstruction{Location: "1024"}, "@1024", false)
	})

	t.Run("Hack built-in labels", func(t *testing.T) {
		test(asm.AInstruction{Location: "SP"}, "@SP", false)
		test(asm.AInstruction{Location: "LCL"}, "@LCL", false)
		test(asm.AInstruction{Location: "ARG"}, "@ARG", false)
		test(asm.AInstruction{Location: "THIS"}, "@THIS", false)
		test(asm.AInstruction{Location: "THAT"}, "@THAT", false)
		test(asm.AInstruction{Location: "R0"}, "@R0", false)
		test(asm.AInstruction{Location: "R13"}, "@R13", false)
		test(asm.AInstruction{Location: "R15"}, "@R15", false)
		test(asm.AInstruction{Location: "KBD"}, "@KBD", false)
		test(asm.AInstruction{Location: "SCREEN"}, "@SCREEN", false)
	})

	t.Run("User-defined labels", func(t *testing.T) {
		test(asm.AInstruction{Location: "Test1"}, "@Test1", false)
		test(asm.AInstruction{Location: "Test2"}, "@Test2", false)
		test(asm.AInstruction{Location: "hmny"}, "@hmny", false)
		test(asm.AInstruction{Location: "n2t"}, "@n2t", false)
		test(asm.AInstruction{Location: "JUMP"}, "@JUMP", false)
	})

	t.Run("Empty location is rejected", func(t *testing.T) {
		test(asm.AInstruction{Location: ""}, "", true)
	})
}

func TestCInstructions(t *testing.T) {
	codegen := asm.NewCodeGenerator([]asm.Statement{})

	test := func(inst asm.CInstruction, expected string, fail bool) {
		res, err := codegen.GenerateCInst(inst)
		if err != nil {
			if !fail {
				t.Fatalf("unexpected error for %+v: %s", inst, err)
			}
			return
		}
		if fail {
			t.Fatalf("expected error for %+v, got %q", inst, res)
		}
		if res != expected {
			t.Fatalf("GenerateCInst(%+v) = %q, want %q", inst, res, expected)
		}
	}

	t.Run("Comp with jump only", func(t *testing.T) {
		test(asm.CInstruction{Comp: "0", Jump: "JGT"}, "0;JGT", false)
		test(asm.CInstruction{Comp: "1", Jump: "JEQ"}, "1;JEQ", false)
		test(asm.CInstruction{Comp: "-1", Jump: "JEQ"}, "-1;JEQ", false)
		test(asm.CInstruction{Comp: "D", Jump: "JGE"}, "D;JGE", false)
		test(asm.CInstruction{Comp: "A", Jump: "JGT"}, "A;JGT", false)
		test(asm.CInstruction{Comp: "!A", Jump: "JLT"}, "!A;JLT", false)
		test(asm.CInstruction{Comp: "!M", Jump: "JNE"}, "!M;JNE", false)
	})

	t.Run("Comp with dest only", func(t *testing.T) {
		test(asm.CInstruction{Comp: "D-A", Dest: "M"}, "M=D-A", false)
		test(asm.CInstruction{Comp: "D-M", Dest: "M"}, "M=D-M", false)
		test(asm.CInstruction{Comp: "A-D", Dest: "D"}, "D=A-D", false)
		test(asm.CInstruction{Comp: "D&A", Dest: "A"}, "A=D&A", false)
		test(asm.CInstruction{Comp: "D|A", Dest: "MD"}, "MD=D|A", false)
		test(asm.CInstruction{Comp: "M", Dest: "AM"}, "AM=M", false)
		test(asm.CInstruction{Comp: "0", Dest: "AD"}, "AD=0", false)
		test(asm.CInstruction{Comp: "-1", Dest: "AMD"}, "AMD=-1", false)
	})

	t.Run("Comp with both dest and jump", func(t *testing.T) {
		test(asm.CInstruction{Comp: "D+1", Dest: "MD", Jump: "JMP"}, "MD=D+1;JMP", false)
		test(asm.CInstruction{Comp: "0", Dest: "M", Jump: "JMP"}, "M=0;JMP", false)
	})

	t.Run("Comp with neither dest nor jump", func(t *testing.T) {
		test(asm.CInstruction{Comp: "D"}, "D", false)
		test(asm.CInstruction{Comp: "0"}, "0", false)
	})

	t.Run("Missing comp is rejected", func(t *testing.T) {
		test(asm.CInstruction{Dest: "AM", Jump: "JNE"}, "", true)
		test(asm.CInstruction{Dest: "AMD"}, "", true)
		test(asm.CInstruction{Jump: "JGT"}, "", true)
		test(asm.CInstruction{}, "", true)
	})
}

func TestLabelDecl(t *testing.T) {
	codegen := asm.NewCodeGenerator([]asm.Statement{})

	test := func(inst asm.LabelDecl, expected string, fail bool) {
		res, err := codegen.GenerateLabelDecl(inst)
		if err != nil {
			if !fail {
				t.Fatalf("unexpected error for %+v: %s", inst, err)
			}
			return
		}
		if fail {
			t.Fatalf("expected error for %+v, got %q", inst, res)
		}
		if res != expected {
			t.Fatalf("GenerateLabelDecl(%+v) = %q, want %q", inst, res, expected)
		}
	}

	t.Run("Fuzzy labels", func(t *testing.T) {
		test(asm.LabelDecl{Name: "test123"}, "(test123)", false)
		test(asm.LabelDecl{Name: "ping"}, "(ping)", false)
		test(asm.LabelDecl{Name: "PONG"}, "(PONG)", false)
		test(asm.LabelDecl{Name: "TEST"}, "(TEST)", false)
		test(asm.LabelDecl{Name: "DUNNO"}, "(DUNNO)", false)
	})

	t.Run("Conflicts with built-in labels are rejected", func(t *testing.T) {
		test(asm.LabelDecl{Name: "SP"}, "", true)
		test(asm.LabelDecl{Name: "R1"}, "", true)
		test(asm.LabelDecl{Name: "LCL"}, "", true)
		test(asm.LabelDecl{Name: "R15"}, "", true)
	})
}

func TestComment(t *testing.T) {
	codegen := asm.NewCodeGenerator([]asm.Statement{})

	t.Run("Round-trips the comment text", func(t *testing.T) {
		res, err := codegen.GenerateComment(asm.Comment{Text: "push constant 5"})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if res != "// push constant 5" {
			t.Fatalf("GenerateComment = %q, want %q", res, "// push constant 5")
		}
	})
}
