package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/hack"
)

var Description = strings.ReplaceAll(`
The Hack Assembler takes assembly language code written in the Hack assembly language
and translates it into machine code that can be executed by the Hack computer. The process
involves parsing the assembly code, resolving symbols, and generating machine code.
`, "\n", " ")

var HackAssembler = cli.New(Description).
	WithArg(cli.NewArg("input", "The assembler (.asm) file to be compiled")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: missing required <file>.asm argument\n")
		return 1
	}

	input, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to open input file: %s\n", err)
		return 1
	}

	outputPath := strings.TrimSuffix(args[0], ".asm") + ".hack"
	output, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to create output file: %s\n", err)
		return 1
	}

	fail := func(stage string, err error) int {
		output.Close()
		os.Remove(outputPath)
		fmt.Fprintf(os.Stderr, "ERROR: unable to complete '%s' pass: %s\n", stage, err)
		return 1
	}

	// Instantiate a parser for the Asm program
	parser := asm.NewParser(bytes.NewReader(input))
	// Parses the input file content and extract an AST (as an 'asm.Program') from it.
	asmProgram, err := parser.Parse()
	if err != nil {
		return fail("parsing", err)
	}

	// Instantiate a lowerer to convert the program from Asm to Hack
	lowerer := asm.NewLowerer(asmProgram)
	// Lowers the asm.Program to an in-memory representation of its Hack counterpart 'hack.Program'.
	hackProgram, table, err := lowerer.Lower()
	if err != nil {
		return fail("lowering", err)
	}

	// Now, instantiates a code generator for the Hack (compiled) program
	codegen := hack.NewCodeGenerator(hackProgram, table)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		return fail("codegen", err)
	}

	for _, comp := range compiled {
		if _, err := fmt.Fprintf(output, "%s\n", comp); err != nil {
			return fail("write", err)
		}
	}

	if err := output.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to close output file: %s\n", err)
		return 1
	}

	return 0
}

func main() { os.Exit(HackAssembler.Run(os.Args, os.Stdout)) }
