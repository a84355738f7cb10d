// Package platform snapshots the host OS family, CPU architecture, and
// search path into an immutable, per-invocation value so that the rest of
// the pipeline never queries the process environment directly. This keeps
// tests hermetic: a Probe built from a fake EnvironmentProvider behaves
// exactly like one built from the real process environment.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvironmentProvider is the injectable seam over process environment and
// user-home lookups, so tests can supply deterministic values instead of
// depending on the real host.
type EnvironmentProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
}

// Probe is a read-only snapshot of the host platform, built once per
// orchestrator invocation (spec §4.1, §9 "process-wide state").
type Probe struct {
	osName            string
	cpuArchitecture   string
	pathSeparator     string
	path              []string
	pathExtensions    []string
	javaExecutablePath string
	isTermux          bool
}

// NewProbe builds a Probe from the given environment provider, dropping any
// PATH entry that doesn't exist or isn't syntactically valid (warned, never
// fatal, per spec §4.1).
func NewProbe(env EnvironmentProvider, log *logrus.Logger) *Probe {
	if log == nil {
		log = logrus.New()
	}

	p := &Probe{
		osName:          runtime.GOOS,
		cpuArchitecture: runtime.GOARCH,
		pathSeparator:   string(filepath.ListSeparator),
	}

	rawPath := env.Getenv("PATH")
	for _, entry := range strings.Split(rawPath, p.pathSeparator) {
		if entry == "" {
			continue
		}
		abs, err := filepath.Abs(entry)
		if err != nil {
			log.Warnf("dropping invalid PATH entry %q: %v", entry, err)
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			log.Warnf("dropping PATH entry %q: %v", entry, err)
			continue
		}
		p.path = append(p.path, filepath.Clean(abs))
	}

	if p.IsWindows() {
		pathExt := env.Getenv("PATHEXT")
		if pathExt == "" {
			pathExt = ".COM;.EXE;.BAT;.CMD"
		}
		for _, ext := range strings.Split(pathExt, ";") {
			if ext == "" {
				continue
			}
			p.pathExtensions = append(p.pathExtensions, strings.ToUpper(ext))
		}
	}

	p.isTermux = env.Getenv("TERMUX_VERSION") != "" || env.Getenv("PREFIX") == "/data/data/com.termux/files/usr"
	p.javaExecutablePath = resolveJavaExecutable(env, p)

	return p
}

// OSName is the Go runtime's GOOS value.
func (p *Probe) OSName() string { return p.osName }

// CPUArchitecture is the Go runtime's GOARCH value.
func (p *Probe) CPUArchitecture() string { return p.cpuArchitecture }

// PathSeparator is the OS list separator used to split PATH (":" or ";").
func (p *Probe) PathSeparator() string { return p.pathSeparator }

// Path returns the ordered, normalized search path entries.
func (p *Probe) Path() []string {
	out := make([]string, len(p.path))
	copy(out, p.path)
	return out
}

// PathExtensions returns the case-insensitive ordered set of recognized
// executable extensions (PATHEXT). Empty on non-Windows hosts.
func (p *Probe) PathExtensions() []string {
	out := make([]string, len(p.pathExtensions))
	copy(out, p.pathExtensions)
	return out
}

// JavaExecutablePath is the resolved path to a java binary, used for
// MavenJvm plugin bootstrap (SPEC_FULL.md §4), or "" if not found.
func (p *Probe) JavaExecutablePath() string { return p.javaExecutablePath }

func (p *Probe) IsLinux() bool   { return p.osName == "linux" && !p.isTermux }
func (p *Probe) IsMacOs() bool   { return p.osName == "darwin" }
func (p *Probe) IsWindows() bool { return p.osName == "windows" }
func (p *Probe) IsTermux() bool  { return p.isTermux }

func resolveJavaExecutable(env EnvironmentProvider, p *Probe) string {
	javaHome := env.Getenv("JAVA_HOME")
	if javaHome == "" {
		return ""
	}
	name := "java"
	if p.IsWindows() {
		name = "java.exe"
	}
	return filepath.Join(javaHome, "bin", name)
}

// OSEnvironmentProvider is the real EnvironmentProvider backed by the
// process environment and OS user-home lookup.
type OSEnvironmentProvider struct{}

func (OSEnvironmentProvider) Getenv(key string) string      { return os.Getenv(key) }
func (OSEnvironmentProvider) UserHomeDir() (string, error)  { return os.UserHomeDir() }
