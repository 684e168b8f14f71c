package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode-like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("input", "The bytecode ('.vm' file or directory of them) to translate")).
	WithOption(cli.NewOption("output", "Overrides the derived '.asm' output path").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Forces bootstrap code regardless of Sys.vm detection").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: missing required <file>.vm|<dir> argument\n")
		return 1
	}

	// Parses every '.vm' file at the given path (one file, or every sibling '.vm' file in a
	// directory) into an in-memory 'vm.Program', reporting whether 'Sys.vm' was found (the
	// trigger for automatic bootstrap code in directory mode).
	program, hasSysInit, err := vm.LoadProgram(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to load input: %s\n", err)
		return 1
	}

	outputPath := options["output"]
	if outputPath == "" {
		outputPath, err = vm.OutputPath(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: unable to derive output path: %s\n", err)
			return 1
		}
	}

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

	_, forceBootstrap := options["bootstrap"]

	// Translates every module into a single, combined list of Hack assembly statements.
	translator := vm.NewTranslator()
	asmProgram, err := translator.Translate(program, hasSysInit || forceBootstrap)
	if err != nil {
		return fail("translation", err)
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
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

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
