package asm

import (
	"fmt"
	"strconv"

	"n2t.dev/toolchain/pkg/hack"
)

// ----------------------------------------------------------------------------
// Asm Lowerer

// The Lowerer takes an 'asm.Program' and produces its 'hack.Program' counterpart plus the
// symbol table built along the way (pass 1 of the two-pass assembler, see the Driver).
//
// Since we get a flat statement list we walk it once: for each instruction we produce its
// 'hack.Instruction' counterpart (either A or C Instruction) while simultaneously binding
// every label declaration to the address it occupies at that point in the converted stream.
type Lowerer struct{ program Program }

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be not nil nor empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process. It iterates statement by statement, dispatching to the
// specified helper function based on the statement type, and returns both the converted
// 'hack.Program' and the symbol table with every user-defined label already bound.
func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	converted, table := hack.Program{}, hack.NewSymbolTable()

	if len(l.program) == 0 {
		return nil, nil, fmt.Errorf("asm: the given program is empty")
	}

	for _, asmStmt := range l.program {
		switch tAsmStmt := asmStmt.(type) {
		case AInstruction: // Converts 'asm.AInstruction' to 'hack.AInstruction'
			hackInst, err := l.HandleAInst(tAsmStmt)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case CInstruction: // Converts 'asm.CInstruction' to 'hack.CInstruction'
			hackInst, err := l.HandleCInst(tAsmStmt)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case LabelDecl: // Binds 'asm.LabelDecl' into the 'hack.SymbolTable', emits no code
			label, err := l.HandleLabelDecl(tAsmStmt)
			if err != nil {
				return nil, nil, err
			}
			table[label] = uint16(len(converted))

		case Comment: // Comments carry no semantic meaning during lowering
			continue

		default: // Error case, unrecognized operation type
			return nil, nil, fmt.Errorf("asm: unrecognized statement '%T'", asmStmt)
		}
	}

	return converted, table, nil
}

// Specialized function to convert a 'asm.AInstruction' node to an 'hack.AInstruction'.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	// Based on the shape of the symbol (raw number, built-in name, or user label) we
	// tag the instruction with the location type the code generator needs to resolve it:
	// 1) If it's present in the BuiltInTable we set the 'LocType' to 'BuiltIn' accordingly
	if _, found := hack.BuiltInTable[inst.Location]; found {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: inst.Location}, nil
	}
	// 2) If it can be parsed as an int we set the 'LocType' to 'Raw' accordingly
	if _, err := strconv.ParseInt(inst.Location, 10, 16); err == nil {
		return hack.AInstruction{LocType: hack.Raw, LocName: inst.Location}, nil
	}
	// 3) Else it's a user defined label and we set 'LocType' to 'Label' accordingly
	return hack.AInstruction{LocType: hack.Label, LocName: inst.Location}, nil
}

// Specialized function to convert a 'asm.CInstruction' node to an 'hack.CInstruction'.
//
// Dest and Jump are each independently optional: 'D;JGT' has no Dest, plain 'D' has
// neither, and an instruction may legally carry both at once.
func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" { // Pre-check: CInstruction.Comp should always be provided
		return nil, fmt.Errorf("asm: 'comp' sub-instruction should always be provided")
	}

	return hack.CInstruction{Comp: inst.Comp, Dest: inst.Dest, Jump: inst.Jump}, nil
}

// Specialized function to extract from a 'asm.LabelDecl' node the identifier of the label.
func (Lowerer) HandleLabelDecl(inst LabelDecl) (string, error) {
	if inst.Name == "" {
		return "", fmt.Errorf("asm: label declaration has an empty name")
	}
	return inst.Name, nil
}
