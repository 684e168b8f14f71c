package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVMTranslator(t *testing.T) {
	t.Run("Single file translates without bootstrap", func(t *testing.T) {
		dir := t.TempDir()
		inputPath := filepath.Join(dir, "SimpleAdd.vm")
		source := "push constant 7\npush constant 8\nadd\n"
		if err := os.WriteFile(inputPath, []byte(source), 0o644); err != nil {
			t.Fatalf("Error writing input file: %v", err)
		}

		status := Handler([]string{inputPath}, nil)
		if status != 0 {
			t.Fatalf("Unexpected exit status code: expected 0 got: %d", status)
		}

		compiled, err := os.ReadFile(filepath.Join(dir, "SimpleAdd.asm"))
		if err != nil {
			t.Fatalf("Error reading output file: %v", err)
		}
		listing := string(compiled)

		if strings.Contains(listing, "Sys.init") {
			t.Fatalf("single-file translation should not bootstrap Sys.init:\n%s", listing)
		}
		for _, want := range []string{"@7", "@8", "D+M"} {
			if !strings.Contains(listing, want) {
				t.Fatalf("expected listing to contain %q:\n%s", want, listing)
			}
		}
	})

	t.Run("Directory with Sys.vm bootstraps automatically", func(t *testing.T) {
		dir := t.TempDir()
		files := map[string]string{
			"Sys.vm":  "function Sys.init 0\ncall Main.main 0\nreturn\n",
			"Main.vm": "function Main.main 0\npush constant 0\nreturn\n",
		}
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
				t.Fatalf("Error writing %s: %v", name, err)
			}
		}

		status := Handler([]string{dir}, nil)
		if status != 0 {
			t.Fatalf("Unexpected exit status code: expected 0 got: %d", status)
		}

		outputPath := filepath.Join(dir, filepath.Base(dir)+".asm")
		compiled, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("Error reading output file %s: %v", outputPath, err)
		}
		listing := string(compiled)

		if !strings.Contains(listing, "@256") {
			t.Fatalf("expected bootstrap stack-pointer init '@256' in listing:\n%s", listing)
		}
		if !strings.Contains(listing, "Sys.init") {
			t.Fatalf("expected a call to Sys.init in bootstrapped listing:\n%s", listing)
		}
		if !strings.Contains(listing, "(Main.main)") {
			t.Fatalf("expected Main.main function label in listing:\n%s", listing)
		}
	})

	t.Run("Directory without Sys.vm does not bootstrap", func(t *testing.T) {
		dir := t.TempDir()
		source := "function Main.main 0\npush constant 42\nreturn\n"
		if err := os.WriteFile(filepath.Join(dir, "Main.vm"), []byte(source), 0o644); err != nil {
			t.Fatalf("Error writing input file: %v", err)
		}

		status := Handler([]string{dir}, nil)
		if status != 0 {
			t.Fatalf("Unexpected exit status code: expected 0 got: %d", status)
		}

		outputPath := filepath.Join(dir, filepath.Base(dir)+".asm")
		compiled, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("Error reading output file %s: %v", outputPath, err)
		}
		if strings.Contains(string(compiled), "Sys.init") {
			t.Fatalf("directory without Sys.vm should not bootstrap Sys.init:\n%s", compiled)
		}
	})

	t.Run("Malformed operation fails and cleans up output", func(t *testing.T) {
		dir := t.TempDir()
		inputPath := filepath.Join(dir, "Broken.vm")
		if err := os.WriteFile(inputPath, []byte("push nonsense 7\n"), 0o644); err != nil {
			t.Fatalf("Error writing input file: %v", err)
		}

		status := Handler([]string{inputPath}, nil)
		if status == 0 {
			t.Fatalf("expected a non-zero exit status for malformed input")
		}
		if _, err := os.Stat(filepath.Join(dir, "Broken.asm")); err == nil {
			t.Fatalf("expected output file to be removed after a failed translation")
		}
	})
}
