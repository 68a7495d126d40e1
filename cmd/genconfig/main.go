// Package main implements the genconfig tool that writes config.default.toml
// from config.ExampleConfig(), annotated with the comments in
// config.ConfigDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/exilecord/internal/config"
)

func main() {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(config.ExampleConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}

	result := annotate(raw.String())

	// go generate runs from the package directory (internal/config/).
	// With go.mod at root, ../../ reaches the repo root where configdata.go
	// embeds config.default.toml — single source of truth.
	outPath := "../../config.default.toml"
	if err := os.WriteFile(outPath, []byte(result), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Println("wrote config.default.toml")
}

// annotate post-processes encoder output: strips indentation, injects the
// ConfigDocs comments and alternatives, and adds section separators.
func annotate(encoded string) string {
	out := []string{
		"# ///////////////////////////////////////////////",
		"# Exilecord Configuration",
		"# ///////////////////////////////////////////////",
		"",
	}

	var section string
	emitted := map[string]bool{}

	for _, line := range strings.Split(encoded, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			injectOmitted(&out, section, emitted)
			section = strings.Trim(trimmed, "[] ")

			out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(section)), "")
			if doc, ok := config.ConfigDocs[section]; ok && doc.Comment != "" {
				out = appendComment(out, doc.Comment)
			}
			out = append(out, trimmed)
			continue
		}

		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
			continue
		}

		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		path := key
		if section != "" {
			path = section + "." + key
		}
		emitted[path] = true

		doc, ok := config.ConfigDocs[path]
		if !ok {
			out = append(out, trimmed)
			continue
		}
		if doc.Comment != "" {
			out = appendComment(out, doc.Comment)
		}
		out = append(out, trimmed)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
	}
	injectOmitted(&out, section, emitted)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}

// injectOmitted appends commented-out entries for ConfigDocs keys in the
// given section that the TOML encoder skipped (omitempty fields at their
// zero value), so every documented option appears in the generated file.
func injectOmitted(out *[]string, section string, emitted map[string]bool) {
	if section == "" {
		return
	}
	prefix := section + "."

	var omitted []string
	for path := range config.ConfigDocs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := config.ConfigDocs[path]
		*out = append(*out, "")
		if doc.Comment != "" {
			*out = appendComment(*out, doc.Comment)
		}
		for _, alt := range doc.Alternatives {
			*out = append(*out, "# "+alt)
		}
		emitted[path] = true
	}
}

// appendComment appends a possibly multi-line comment, prefixing each line.
func appendComment(out []string, comment string) []string {
	for _, line := range strings.Split(comment, "\n") {
		out = append(out, "# "+line)
	}
	return out
}

// sectionName returns a display name for a TOML section header: the last
// dotted segment, capitalized.
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
