// Package argsfile implements the argument-file builder (C11): ordered
// aggregation of protoc targets and paths into an `@argfile` protoc can
// consume directly (spec §4.7), plus separate quoters for shell-script
// diagnostics output.
package argsfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/errs"
	"github.com/ascopes/protobuf-maven-plugin-sub001/pkg/request"
)

// TargetKind tags a ProtocTarget variant (spec §3).
type TargetKind int

const (
	TargetLanguage TargetKind = iota
	TargetPlugin
	TargetDescriptorFile
)

// Target is the tagged-variant ProtocTarget of spec §3. Only the fields
// relevant to Kind are read.
type Target struct {
	Kind TargetKind
	// LanguageTarget
	Language  request.Language
	OutputDir string
	Lite      bool
	// PluginTarget
	PluginID        string
	PluginLocalPath string
	PluginOptions   string
	// DescriptorFileTarget
	DescriptorOutFile       string
	IncludeImports          bool
	IncludeSourceInfo       bool
	RetainOptions     bool
	Order             int
	StableString      string
}

// sortKey returns (order, stableString) per spec §3.
func (t Target) sortKey() (int, string) { return t.Order, t.StableString }

// liteEligible names the languages for which the `lite:` output prefix is
// meaningful (spec §4.7 step 2).
var liteEligible = map[request.Language]bool{
	request.LanguageJava: true,
	request.LanguageCPP:  true,
}

// Builder assembles a protoc argument file from targets and paths.
type Builder struct {
	FatalWarnings         bool
	Targets               []Target
	SourcePaths           []string // absolute, in source-resolver order
	InputDescriptorFiles  []string // dependency FileDescriptorSet files, fed via --descriptor_set_in
	ImportRoots           []string // sources first, deps, then explicit import roots; deduped by caller
}

// Build renders the argument-file content per spec §4.7's ordering rules.
func (b Builder) Build() (string, error) {
	targets := make([]Target, len(b.Targets))
	copy(targets, b.Targets)
	sort.SliceStable(targets, func(i, j int) bool {
		oi, si := targets[i].sortKey()
		oj, sj := targets[j].sortKey()
		if oi != oj {
			return oi < oj
		}
		return si < sj
	})

	var lines []string
	if b.FatalWarnings {
		lines = append(lines, "--fatal_warnings")
	}

	for _, t := range targets {
		rendered, err := renderTarget(t)
		if err != nil {
			return "", err
		}
		lines = append(lines, rendered...)
	}

	if len(b.InputDescriptorFiles) > 0 {
		quotedPaths := make([]string, len(b.InputDescriptorFiles))
		for i, p := range b.InputDescriptorFiles {
			quoted, err := quoteArg(p)
			if err != nil {
				return "", err
			}
			quotedPaths[i] = quoted
		}
		lines = append(lines, "--descriptor_set_in="+strings.Join(quotedPaths, ","))
	}

	for _, p := range b.SourcePaths {
		quoted, err := quoteArg(p)
		if err != nil {
			return "", err
		}
		lines = append(lines, quoted)
	}

	for _, root := range b.ImportRoots {
		quoted, err := quoteArg(root)
		if err != nil {
			return "", err
		}
		lines = append(lines, "--proto_path="+quoted)
	}

	return strings.Join(lines, "\n") + "\n", nil
}

func renderTarget(t Target) ([]string, error) {
	switch t.Kind {
	case TargetLanguage:
		outDir, err := quoteArg(t.OutputDir)
		if err != nil {
			return nil, err
		}
		prefix := ""
		if t.Lite && liteEligible[t.Language] {
			prefix = "lite:"
		}
		return []string{fmt.Sprintf("--%s_out=%s%s", t.Language, prefix, outDir)}, nil

	case TargetPlugin:
		localPath, err := quoteArg(t.PluginLocalPath)
		if err != nil {
			return nil, err
		}
		outDir, err := quoteArg(t.OutputDir)
		if err != nil {
			return nil, err
		}
		lines := []string{
			fmt.Sprintf("--plugin=protoc-gen-%s=%s", t.PluginID, localPath),
			fmt.Sprintf("--%s_out=%s", t.PluginID, outDir),
		}
		if t.PluginOptions != "" {
			lines = append(lines, fmt.Sprintf("--%s_opt=%s", t.PluginID, t.PluginOptions))
		}
		return lines, nil

	case TargetDescriptorFile:
		outFile, err := quoteArg(t.DescriptorOutFile)
		if err != nil {
			return nil, err
		}
		lines := []string{"--descriptor_set_out=" + outFile}
		if t.IncludeImports {
			lines = append(lines, "--include_imports")
		}
		if t.IncludeSourceInfo {
			lines = append(lines, "--include_source_info")
		}
		if t.RetainOptions {
			lines = append(lines, "--retain_options")
		}
		return lines, nil

	default:
		return nil, &errs.ConfigurationError{Reason: fmt.Sprintf("unknown target kind %d", t.Kind)}
	}
}

// quoteArg renders path per protoc's argument-file grammar: a path with no
// space, tab, quote or backslash is written as is; otherwise the whole
// token is double-quoted, with each embedded backslash and quote preceded
// by a backslash. Embedded newlines can't
// be represented in that grammar at all, so they're rejected outright
// (spec §9 Open Question, resolved against escaping).
func quoteArg(path string) (string, error) {
	if strings.ContainsAny(path, "\n\r") {
		return "", &errs.ConfigurationError{Reason: fmt.Sprintf("path %q contains an embedded newline, which protoc argument files cannot represent", path)}
	}
	if !strings.ContainsAny(path, " \t\"\\") {
		return path, nil
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range path {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String(), nil
}
