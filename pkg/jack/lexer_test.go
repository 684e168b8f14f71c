package jack_test

import (
	"testing"

	"n2t.dev/toolchain/pkg/jack"
)

func TestTokenize(t *testing.T) {
	test := func(source string, expected []jack.Token, fail bool) {
		tokens, err := jack.Tokenize([]byte(source))
		if err != nil {
			if !fail {
				t.Fatalf("unexpected error tokenizing %q: %v", source, err)
			}
			return
		}
		if fail {
			t.Fatalf("expected tokenizing %q to fail, got tokens: %+v", source, tokens)
		}

		if len(tokens) != len(expected) {
			t.Fatalf("expected %d tokens, got %d: %+v", len(expected), len(tokens), tokens)
		}
		for i, tok := range tokens {
			if tok != expected[i] {
				t.Errorf("token %d: expected %+v, got %+v", i, expected[i], tok)
			}
		}
	}

	t.Run("Keywords and symbols", func(t *testing.T) {
		test("class Main {}", []jack.Token{
			{Type: jack.KeywordTok, Value: "class"},
			{Type: jack.IdentifierTok, Value: "Main"},
			{Type: jack.SymbolTok, Value: "{"},
			{Type: jack.SymbolTok, Value: "}"},
		}, false)
	})

	t.Run("Strips single and block comments", func(t *testing.T) {
		test("// a leading comment\nlet x = 1; /* trailing\n block */", []jack.Token{
			{Type: jack.KeywordTok, Value: "let"},
			{Type: jack.IdentifierTok, Value: "x"},
			{Type: jack.SymbolTok, Value: "="},
			{Type: jack.IntConstTok, Value: "1"},
			{Type: jack.SymbolTok, Value: ";"},
		}, false)
	})

	t.Run("String constant", func(t *testing.T) {
		test(`do Output.printString("hi there");`, []jack.Token{
			{Type: jack.KeywordTok, Value: "do"},
			{Type: jack.IdentifierTok, Value: "Output"},
			{Type: jack.SymbolTok, Value: "."},
			{Type: jack.IdentifierTok, Value: "printString"},
			{Type: jack.SymbolTok, Value: "("},
			{Type: jack.StringConstTok, Value: "hi there"},
			{Type: jack.SymbolTok, Value: ")"},
			{Type: jack.SymbolTok, Value: ";"},
		}, false)
	})

	t.Run("Integer constant out of range", func(t *testing.T) {
		test("let x = 99999;", nil, true)
	})

	t.Run("Unterminated string", func(t *testing.T) {
		test(`let x = "oops;`, nil, true)
	})

	t.Run("Unsupported character", func(t *testing.T) {
		test("let x = 1 @ 2;", nil, true)
	})
}
