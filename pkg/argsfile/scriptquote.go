package argsfile

import "strings"

// QuotePosixShell renders arg safely for a POSIX single-quoted shell
// context. It is used for the JVM plugin bootstrap script, never for the
// argument file itself.
func QuotePosixShell(arg string) string {
	if arg == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// QuoteWindowsBatch renders arg safely for a Windows batch-script context.
func QuoteWindowsBatch(arg string) string {
	if !strings.ContainsAny(arg, " \t\"&|<>^") {
		return arg
	}
	escaped := strings.ReplaceAll(arg, `"`, `""`)
	return `"` + escaped + `"`
}
