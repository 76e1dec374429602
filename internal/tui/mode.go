package tui

import (
	"io"
	"os"
	"runtime"
	"strings"
)

// OutputMode describes how listings and prompts are rendered.
type OutputMode int

const (
	// ModeTUI styles output and allows the interactive chooser.
	ModeTUI OutputMode = iota
	// ModePlain writes an unstyled table.
	ModePlain
	// ModeJSON writes structured JSON output.
	ModeJSON
)

// DetectMode determines the output mode for the given writer.
func DetectMode(out io.Writer, plain, jsonOutput bool) OutputMode {
	if jsonOutput {
		return ModeJSON
	}
	if plain || !IsTerminal(out) {
		return ModePlain
	}
	if runtime.GOOS != "windows" {
		term := os.Getenv("TERM")
		if term == "" || strings.EqualFold(term, "dumb") {
			return ModePlain
		}
	}
	return ModeTUI
}

// IsTerminal reports whether f is an interactive character device.
func IsTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
