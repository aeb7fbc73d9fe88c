package vm

import (
	"path/filepath"
	"strings"
)

// Programs that are batch files on Windows. Invoking one without "call"
// never returns control to the calling script.
var batchPrograms = map[string]bool{
	"yarn":     true,
	"npm":      true,
	"npx":      true,
	"node-gyp": true,
}

// Line appended after every command to abort on failure.
const errorCheck = "if errorlevel 1 exit /b %errorlevel%"

// Formats one batch line for a command.
func commandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+2)
	if needsCall(name) {
		parts = append(parts, "call")
	}
	parts = append(parts, quoteArg(name))
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

// Formats a variable assignment. The quotes keep trailing spaces out.
func setLine(key, value string) string {
	return `set "` + key + "=" + escapePercent(value) + `"`
}

func needsCall(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cmd", ".bat":
		return true
	}
	return batchPrograms[strings.ToLower(name)]
}

// Quotes an argument for cmd.exe and the MSVC argument parser.
func quoteArg(s string) string {
	s = escapePercent(s)
	if s != "" && !strings.ContainsAny(s, " \t\"&|<>^()") {
		return s
	}

	var b strings.Builder
	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			slashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		b.WriteByte(c)
	}
	b.WriteString(strings.Repeat(`\`, slashes))
	b.WriteByte('"')
	return b.String()
}

// Doubles percent signs so batch expansion leaves them alone.
func escapePercent(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

// Renders the accumulated lines as a batch file.
func renderScript(lines []string) []byte {
	var b strings.Builder
	b.WriteString("@echo off\r\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}
