package vm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"n2t.dev/toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Translator

// Drives a full VM-to-assembly translation run over either a single '.vm' file or a
// directory of them, matching the file/directory duality of the reference toolchain
// (one VM module per Jack class, compiled independently but linked by name at runtime).
type Translator struct {
	writer *CodeWriter
}

// Initializes and returns to the caller a brand new 'Translator'.
func NewTranslator() Translator {
	return Translator{writer: NewCodeWriter()}
}

// Translates every module in 'program' (in sorted file-stem order, for determinism) to a
// single combined assembly listing. 'bootstrap' prepends the stack-init/Sys.init sequence;
// the caller decides when that is appropriate (directory mode with a 'Sys.vm' module).
func (t Translator) Translate(program Program, bootstrap bool) ([]asm.Statement, error) {
	stems := make([]string, 0, len(program))
	for stem := range program {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	var out []asm.Statement

	if bootstrap {
		boot, err := t.writer.WriteBootstrap()
		if err != nil {
			return nil, fmt.Errorf("vm: unable to emit bootstrap sequence: %w", err)
		}
		out = append(out, boot...)
	}

	for _, stem := range stems {
		t.writer.SetFile(stem)

		for _, op := range program[stem] {
			stmts, err := t.writer.Write(op)
			if err != nil {
				return nil, fmt.Errorf("vm: %s: %w", stem, err)
			}
			out = append(out, stmts...)
		}
	}

	return out, nil
}

// Parses every '.vm' file at 'path' (a single file, or every '.vm' file directly inside a
// directory) into a 'vm.Program' keyed by file stem, and reports whether the input is a
// directory holding a 'Sys.vm' module (the automatic trigger for bootstrap code; the
// 'vmtranslator' command's '--bootstrap' option can also force it).
func LoadProgram(path string) (Program, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("vm: unable to stat input path: %w", err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, false, fmt.Errorf("vm: unable to read input directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".vm") {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	if len(files) == 0 {
		return nil, false, fmt.Errorf("vm: no '.vm' files found at '%s'", path)
	}

	program := Program{}
	hasSysInit := false

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, false, fmt.Errorf("vm: unable to open input file '%s': %w", file, err)
		}

		stem := strings.TrimSuffix(filepath.Base(file), ".vm")
		parser := NewParser(strings.NewReader(string(content)))
		module, err := parser.Parse()
		if err != nil {
			return nil, false, fmt.Errorf("vm: unable to parse '%s': %w", file, err)
		}

		program[stem] = module
		if stem == "Sys" {
			hasSysInit = true
		}
	}

	return program, info.IsDir() && hasSysInit, nil
}

// Derives the output '.asm' path for a translation: a single input file translates to its
// sibling '.asm', a directory translates to '<dir>/<dir>.asm' (the combined listing).
func OutputPath(input string) (string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return "", fmt.Errorf("vm: unable to stat input path: %w", err)
	}

	if info.IsDir() {
		base := filepath.Base(filepath.Clean(input))
		return filepath.Join(input, base+".asm"), nil
	}

	trimmed := strings.TrimSuffix(input, filepath.Ext(input))
	return trimmed + ".asm", nil
}
