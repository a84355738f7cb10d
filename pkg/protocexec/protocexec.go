// Package protocexec spawns the external protoc process (spec §4.6 step
// 13, §6): `<protocPath> @<argumentFilePath>`, with an exact environment
// mapping, a sanctioned-only PATH, and Invocation.WorkingDirectory as the
// working directory; the orchestrator sets that to the request's BuildDir,
// not to the project base directory. Grounded on jhump/goprotoc's direct exec.Command
// plugin-driving code, generalized from driving a single plugin subprocess
// to driving the protoc compiler itself.
package protocexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
)

// Invocation is the fully-assembled command line to run (spec §3
// "ProtocInvocation", narrowed to what the process runner needs).
type Invocation struct {
	ProtocPath          string
	ArgumentFilePath    string
	WorkingDirectory    string
	Environment         map[string]string
	SanctionedPathDirs  []string // replaces the inherited PATH entirely
}

// Result carries the captured outcome of one protoc run.
type Result struct {
	ExitCode int
	Stderr   string
}

// Run spawns protoc and blocks until it exits or ctx is cancelled.
// A non-zero exit is reported through Result/err as a *errs.ProtocFailure,
// per spec §6 ("protoc exit status is the sole failure indicator").
func Run(ctx context.Context, inv Invocation) (Result, error) {
	cmd := exec.CommandContext(ctx, inv.ProtocPath, "@"+inv.ArgumentFilePath)
	cmd.Dir = inv.WorkingDirectory

	cmd.Env = buildEnv(inv.Environment, inv.SanctionedPathDirs)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = os.Stdout

	err := cmd.Run()
	result := Result{Stderr: stderr.String()}

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return result, &errs.ResolutionError{What: "protoc process", Cause: err}
	}

	result.ExitCode = exitErr.ExitCode()
	return result, &errs.ProtocFailure{ExitCode: result.ExitCode, Stderr: result.Stderr}
}

// buildEnv renders the spawned process's environment as exactly env plus
// a synthetic PATH built only from sanctionedDirs, so the child can never
// pick up an unrelated host tool by name (spec §6).
func buildEnv(env map[string]string, sanctionedDirs []string) []string {
	out := make([]string, 0, len(env)+1)
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	out = append(out, "PATH="+strings.Join(sanctionedDirs, string(filepath.ListSeparator)))
	return out
}
