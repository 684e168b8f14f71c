package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"
	"n2t.dev/toolchain/pkg/jack"
	"n2t.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated. The Jack language
is a higher-level OOP language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The source ('.jack' file(s) or directory of them) to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: missing required <file>.jack|<dir> argument\n")
		return 1
	}

	units, err := collectUnits(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to walk input: %s\n", err)
		return 1
	}
	if len(units) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: no '.jack' source files found in the given input\n")
		return 1
	}

	var written []string
	fail := func(stage string, err error) int {
		for _, path := range written {
			os.Remove(path)
		}
		fmt.Fprintf(os.Stderr, "ERROR: unable to complete '%s' pass: %s\n", stage, err)
		return 1
	}

	program := vm.Program{}
	for _, unit := range units {
		content, err := os.ReadFile(unit)
		if err != nil {
			return fail("read", err)
		}

		compiler := jack.NewCompiler(bytes.NewReader(content))
		module, err := compiler.Compile()
		if err != nil {
			return fail(fmt.Sprintf("compiling %s", unit), err)
		}
		program[classNameOf(unit)] = module
	}

	codegen := vm.NewCodeGenerator(program)
	compiled, err := codegen.Generate()
	if err != nil {
		return fail("codegen", err)
	}

	for _, unit := range units {
		outputPath := strings.TrimSuffix(unit, filepath.Ext(unit)) + ".vm"
		output, err := os.Create(outputPath)
		if err != nil {
			return fail("write", err)
		}
		written = append(written, outputPath)

		for _, line := range compiled[classNameOf(unit)] {
			if _, err := fmt.Fprintf(output, "%s\n", line); err != nil {
				output.Close()
				return fail("write", err)
			}
		}
		if err := output.Close(); err != nil {
			return fail("write", err)
		}
	}

	return 0
}

// collectUnits walks every input path, recursing into directories, and returns the sorted
// list of '.jack' translation units found. Sorted order keeps multi-file compiles deterministic.
func collectUnits(inputs []string) ([]string, error) {
	units := []string{}
	for _, input := range inputs {
		err := filepath.Walk(input, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".jack" {
				return nil
			}
			units = append(units, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(units)
	return units, nil
}

// classNameOf derives the class/module name a '.jack' file compiles to: its file stem.
func classNameOf(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
