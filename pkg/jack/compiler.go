package jack

import (
	"fmt"
	"io"

	"n2t.dev/toolchain/pkg/vm"
)

// ----------------------------------------------------------------------------
// Compiler

// Compiler drives the tokenizer and CompilationEngine for a single class's source, producing
// the 'vm.Module' that class lowers to.
type Compiler struct{ reader io.Reader }

func NewCompiler(r io.Reader) Compiler { return Compiler{reader: r} }

// Compile reads the whole class from the underlying reader, tokenizes it, and runs it through
// a fresh CompilationEngine.
func (c Compiler) Compile() (vm.Module, error) {
	source, err := io.ReadAll(c.reader)
	if err != nil {
		return nil, fmt.Errorf("jack: cannot read from input: %w", err)
	}

	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}

	engine, err := NewCompilationEngine(tokens)
	if err != nil {
		return nil, err
	}
	return engine.Compile()
}
