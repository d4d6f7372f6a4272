package main

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	testModule   = "fangov"
	enginePrefix = "fangov/contexts/governance/proposal-engine"
)

func check(layer string, path string) []violation {
	return checkImport("f.go", importRef{Path: path, Line: 1}, layer, testModule, enginePrefix)
}

func TestDomainAllowsValueLibrariesOnly(t *testing.T) {
	if got := check("domain", "github.com/shopspring/decimal"); len(got) != 0 {
		t.Fatalf("decimal should be allowed in domain, got %v", got)
	}
	if got := check("domain", "gorm.io/gorm"); len(got) != 1 {
		t.Fatalf("gorm must be rejected in domain, got %v", got)
	}
	if got := check("domain", enginePrefix+"/adapters/memory"); len(got) == 0 {
		t.Fatal("adapters must be rejected in domain")
	}
	if got := check("domain", enginePrefix+"/ports"); len(got) != 1 {
		t.Fatalf("domain must not depend on ports, got %v", got)
	}
}

func TestApplicationMayUsePortsAndContracts(t *testing.T) {
	for _, path := range []string{
		enginePrefix + "/ports",
		enginePrefix + "/domain/errors",
		"fangov/contracts/events/v1",
		"log/slog",
	} {
		if got := check("application", path); len(got) != 0 {
			t.Fatalf("%s should be allowed, got %v", path, got)
		}
	}
	if got := check("application", "fangov/internal/platform/messaging"); len(got) == 0 {
		t.Fatal("platform imports must be rejected in application")
	}
}

func TestAdaptersAndCrossModuleImports(t *testing.T) {
	if got := check("adapters", "gorm.io/gorm"); len(got) != 0 {
		t.Fatalf("adapters may use infrastructure, got %v", got)
	}
	if got := check("adapters", "fangov/contexts/treasury/payouts/ports"); len(got) != 1 {
		t.Fatalf("cross-module import must be rejected once, got %v", got)
	}
}

func TestIsStdlib(t *testing.T) {
	if !isStdlib("encoding/json", testModule) {
		t.Fatal("encoding/json is stdlib")
	}
	if isStdlib("fangov/ports", testModule) || isStdlib("github.com/gin-gonic/gin", testModule) {
		t.Fatal("module and third-party paths are not stdlib")
	}
}

func TestCollectViolationsWalksContexts(t *testing.T) {
	root := t.TempDir()
	write := func(rel string, body string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("go.mod", "module example.org/gov\n\ngo 1.24.0\n")
	write("contexts/governance/proposal-engine/domain/entities/ok.go",
		"package entities\n\nimport \"github.com/shopspring/decimal\"\n\nvar _ decimal.Decimal\n")
	write("contexts/governance/proposal-engine/application/bad.go",
		"package application\n\nimport _ \"example.org/gov/contexts/governance/proposal-engine/adapters/memory\"\n")
	write("contexts/governance/proposal-engine/application/bad_test.go",
		"package application\n\nimport _ \"gorm.io/gorm\"\n")

	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatal(err)
	}
	if modulePath != "example.org/gov" {
		t.Fatalf("unexpected module path %q", modulePath)
	}
	violations, err := collectViolations(root, modulePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected adapter and allowlist violations, got %v", violations)
	}
	for _, v := range violations {
		if v.File != "contexts/governance/proposal-engine/application/bad.go" || v.Line != 3 {
			t.Fatalf("unexpected violation %+v", v)
		}
	}
}
