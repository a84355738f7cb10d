package pluginresolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/argsfile"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/digest"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/fsutil"
)

// ScriptBootstrapper writes a tiny POSIX shell or Windows batch script that
// execs the JVM with -cp <jar> <mainClass>, so a JVM-hosted generator
// plugin can be handed to protoc as if it were a native binary.
type ScriptBootstrapper struct{}

func (ScriptBootstrapper) GenerateBootstrapScript(ctx context.Context, javaExecutablePath, classpathJar, mainClass, scratchDir string) (string, error) {
	if javaExecutablePath == "" {
		return "", &errs.ConfigurationError{Reason: "no java executable available to bootstrap JVM plugin " + mainClass}
	}

	key := digest.OfBytes([]byte(classpathJar + "|" + mainClass))
	dir := filepath.Join(scratchDir, "plugins", "jvm", key.Hex())
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", err
	}

	var scriptPath, content string
	if runtime.GOOS == "windows" {
		scriptPath = filepath.Join(dir, "run.bat")
		content = fmt.Sprintf("@echo off\r\n%s -cp %s %s %%*\r\n", argsfile.QuoteWindowsBatch(javaExecutablePath), argsfile.QuoteWindowsBatch(classpathJar), argsfile.QuoteWindowsBatch(mainClass))
	} else {
		scriptPath = filepath.Join(dir, "run.sh")
		content = fmt.Sprintf("#!/bin/sh\nexec %s -cp %s %s \"$@\"\n", argsfile.QuotePosixShell(javaExecutablePath), argsfile.QuotePosixShell(classpathJar), argsfile.QuotePosixShell(mainClass))
	}

	if err := os.WriteFile(scriptPath, []byte(content), 0o755); err != nil {
		return "", &errs.IoError{Path: scriptPath, Op: "write", Cause: err}
	}
	if err := fsutil.SetExecutable(scriptPath); err != nil {
		return "", err
	}
	return scriptPath, nil
}
