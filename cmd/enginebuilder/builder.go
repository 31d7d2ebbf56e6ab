package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Builder compiles a Go package into a WASI reactor module.
type Builder struct {
	WorkDir string
	Package string
	Output  string
	GoFlags string
}

// Args returns the go command line used by Build.
func (b *Builder) Args(output string) []string {
	args := []string{"tool", "wasibuilder", "go", "build", "-buildmode=c-shared", "-o", output}
	if b.GoFlags != "" {
		args = append(args, strings.Fields(b.GoFlags)...)
	}
	return append(args, b.Package)
}

func (b *Builder) Build() error {
	output, err := filepath.Abs(b.Output)
	if err != nil {
		return fmt.Errorf("failed to get absolute path of output file %s: %w", b.Output, err)
	}

	err = b.exec("go", b.Args(output)...)
	if err != nil {
		return fmt.Errorf("failed to build package %s: %w", b.Package, err)
	}

	return nil
}

func (b *Builder) exec(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Dir = b.WorkDir
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
