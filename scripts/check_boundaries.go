package main

import (
	"bufio"
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// layerRule lists what a layer of a bounded-context module may import besides
// the standard library. Paths starting with "./" are relative to the module
// directory, e.g. "./domain" for contexts/governance/proposal-engine/domain.
type layerRule struct {
	allow []string
}

// valueLibraries carry value types, not infrastructure, so every inner layer
// may use them.
var valueLibraries = []string{
	"github.com/shopspring/decimal",
}

var layerRules = map[string]layerRule{
	"domain":      {allow: []string{"./domain"}},
	"ports":       {allow: []string{"./domain", "./ports", "$/contracts"}},
	"application": {allow: []string{"./application", "./domain", "./ports", "$/contracts"}},
	"transport":   {allow: []string{"./transport"}},
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	root := flag.String("root", ".", "repository root containing go.mod")
	flag.Parse()

	modulePath, err := readModulePath(filepath.Join(*root, "go.mod"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read module path: %v\n", err)
		os.Exit(2)
	}
	violations, err := collectViolations(*root, modulePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "walk contexts: %v\n", err)
		os.Exit(2)
	}
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Import < b.Import
	})
	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func readModulePath(goMod string) (string, error) {
	file, err := os.Open(goMod)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s has no module directive", goMod)
}

// collectViolations checks non-test files under root/contexts. Files are
// addressed as contexts/<context>/<module>/<layer>/...
func collectViolations(root string, modulePath string) ([]violation, error) {
	var violations []violation
	contextsDir := filepath.Join(root, "contexts")

	err := filepath.WalkDir(contextsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 4 {
			return nil
		}
		modulePrefix := strings.Join([]string{modulePath, "contexts", parts[1], parts[2]}, "/")

		imports, err := parseImports(path)
		if err != nil {
			violations = append(violations, violation{File: filepath.ToSlash(rel), Line: 1, Rule: "file must parse"})
			return nil
		}
		for _, imp := range imports {
			violations = append(violations, checkImport(filepath.ToSlash(rel), imp, parts[3], modulePath, modulePrefix)...)
		}
		return nil
	})
	return violations, err
}

type importRef struct {
	Path string
	Line int
}

func parseImports(path string) ([]importRef, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}
	refs := make([]importRef, 0, len(file.Imports))
	for _, imp := range file.Imports {
		refs = append(refs, importRef{
			Path: strings.Trim(imp.Path.Value, `"`),
			Line: fset.Position(imp.Pos()).Line,
		})
	}
	return refs, nil
}

func checkImport(file string, imp importRef, layer string, modulePath string, modulePrefix string) []violation {
	var violations []violation
	report := func(rule string) {
		violations = append(violations, violation{File: file, Line: imp.Line, Import: imp.Path, Rule: rule})
	}

	if hasPrefix(imp.Path, modulePath+"/contexts") && !hasPrefix(imp.Path, modulePrefix) {
		report("cross-module imports are forbidden")
	}

	rule, ok := layerRules[layer]
	if !ok {
		return violations
	}
	if hasPrefix(imp.Path, modulePrefix+"/adapters") {
		report(layer + " must not import adapters")
	}
	if isRuntimeInfrastructure(imp.Path, modulePath) {
		report(layer + " must not import runtime infrastructure")
	}
	if !isStdlib(imp.Path, modulePath) && !isAllowed(imp.Path, rule.resolve(modulePath, modulePrefix)) {
		report(layer + " import is outside explicit allowlist")
	}
	return violations
}

func (r layerRule) resolve(modulePath string, modulePrefix string) []string {
	allowed := make([]string, 0, len(r.allow)+len(valueLibraries))
	for _, entry := range r.allow {
		switch {
		case strings.HasPrefix(entry, "./"):
			allowed = append(allowed, modulePrefix+entry[1:])
		case strings.HasPrefix(entry, "$/"):
			allowed = append(allowed, modulePath+entry[1:])
		default:
			allowed = append(allowed, entry)
		}
	}
	return append(allowed, valueLibraries...)
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isRuntimeInfrastructure(importPath string, modulePath string) bool {
	for _, dir := range []string{"internal", "cmd", "docs"} {
		if hasPrefix(importPath, modulePath+"/"+dir) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string, modulePath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
