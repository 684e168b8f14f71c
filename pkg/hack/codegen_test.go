package hack_test

import (
	"fmt"
	"testing"

	"n2t.dev/toolchain/pkg/hack"
)

func TestAInstructions(t *testing.T) {
	// Instantiate a basic simple table with some entries and a shared codegen for every test case
	table := hack.SymbolTable{"Test1": 0, "Test2": 67, "hmny": 9393, "n2t": 754, "JUMP": 90}
	codegen := hack.NewCodeGenerator(hack.Program{}, table)

	test := func(inst hack.AInstruction, expected string, fail bool) {
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
		test(hack.AInstruction{LocType: hack.Raw, LocName: "38"}, fmt.Sprintf("%016b", 38), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "42"}, fmt.Sprintf("%016b", 42), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "64"}, fmt.Sprintf("%016b", 64), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "128"}, fmt.Sprintf("%016b", 128), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "32767"}, fmt.Sprintf("%016b", 32767), false)
		// Out of bound addresses (only 15 bits available to index the Hack memory)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "32768"}, "", true)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "65538"}, "", true)
	})

	t.Run("Hack built-in labels", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SP"}, fmt.Sprintf("%016b", 0), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "LCL"}, fmt.Sprintf("%016b", 1), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "ARG"}, fmt.Sprintf("%016b", 2), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "THIS"}, fmt.Sprintf("%016b", 3), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "THAT"}, fmt.Sprintf("%016b", 4), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "R13"}, fmt.Sprintf("%016b", 13), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "KBD"}, fmt.Sprintf("%016b", 24576), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SCREEN"}, fmt.Sprintf("%016b", 16384), false)
	})

	t.Run("User-defined labels", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.Label, LocName: "Test1"}, fmt.Sprintf("%016b", table["Test1"]), false)
		test(hack.AInstruction{LocType: hack.Label, LocName: "Test2"}, fmt.Sprintf("%016b", table["Test2"]), false)
		test(hack.AInstruction{LocType: hack.Label, LocName: "hmny"}, fmt.Sprintf("%016b", table["hmny"]), false)
	})

	t.Run("New variables are allocated starting at 16", func(t *testing.T) {
		fresh := hack.NewCodeGenerator(hack.Program{}, hack.NewSymbolTable())
		first, err := fresh.GenerateAInst(hack.AInstruction{LocType: hack.Label, LocName: "sum"})
		if err != nil || first != fmt.Sprintf("%016b", 16) {
			t.Fatalf("expected first new variable at address 16, got %q err=%v", first, err)
		}
		second, err := fresh.GenerateAInst(hack.AInstruction{LocType: hack.Label, LocName: "i"})
		if err != nil || second != fmt.Sprintf("%016b", 17) {
			t.Fatalf("expected second new variable at address 17, got %q err=%v", second, err)
		}
		// Referencing 'sum' again must resolve to the same address, not allocate a new one
		again, err := fresh.GenerateAInst(hack.AInstruction{LocType: hack.Label, LocName: "sum"})
		if err != nil || again != first {
			t.Fatalf("expected repeated reference to reuse address 16, got %q err=%v", again, err)
		}
	})
}

func TestCInstructions(t *testing.T) {
	codegen := hack.NewCodeGenerator(nil, nil)

	test := func(inst hack.CInstruction, expected string, fail bool) {
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

	t.Run("Comps and Jumps", func(t *testing.T) {
		test(hack.CInstruction{Comp: "M"}, "1111110000000000", false)
		test(hack.CInstruction{Comp: "A"}, "1110110000000000", false)
		test(hack.CInstruction{Comp: "0", Jump: "JGT"}, "1110101010000001", false)
		test(hack.CInstruction{Comp: "1", Jump: "JEQ"}, "1110111111000010", false)
		test(hack.CInstruction{Comp: "-1", Jump: "JEQ"}, "1110111010000010", false)
		test(hack.CInstruction{Comp: "D", Jump: "JGE"}, "1110001100000011", false)
		test(hack.CInstruction{Comp: "!A", Jump: "JLT"}, "1110110001000100", false)
		test(hack.CInstruction{Comp: "!M", Jump: "JNE"}, "1111110001000101", false)
		test(hack.CInstruction{Comp: "D+1", Jump: "JMP"}, "1110011111000111", false)
	})

	t.Run("Dests", func(t *testing.T) {
		test(hack.CInstruction{Comp: "D+A"}, "1110000010000000", false)
		test(hack.CInstruction{Comp: "D-A", Dest: "M"}, "1110010011001000", false)
		test(hack.CInstruction{Comp: "A-D", Dest: "D"}, "1110000111010000", false)
		test(hack.CInstruction{Comp: "D&A", Dest: "A"}, "1110000000100000", false)
		test(hack.CInstruction{Comp: "D|A", Dest: "MD"}, "1110010101011000", false)
		test(hack.CInstruction{Comp: "M", Dest: "AM"}, "1111110000101000", false)
		test(hack.CInstruction{Comp: "0", Dest: "AD"}, "1110101010110000", false)
		test(hack.CInstruction{Comp: "-1", Dest: "AMD"}, "1110111010111000", false)
	})

	t.Run("Both dest and jump present", func(t *testing.T) {
		test(hack.CInstruction{Comp: "D+1", Dest: "MD", Jump: "JMP"}, "1110011111011111", false)
	})

	t.Run("Unknown mnemonics are rejected", func(t *testing.T) {
		test(hack.CInstruction{Comp: "D%A"}, "", true)
		test(hack.CInstruction{Comp: "D", Dest: "XYZ"}, "", true)
		test(hack.CInstruction{Comp: "D", Jump: "JXX"}, "", true)
		test(hack.CInstruction{}, "", true)
	})
}
