package architecture_test

import (
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const modulePath = "dynatable"

type layerRule struct {
	sourcePrefix string
	forbidden    []string
	hint         string
}

var rules = []layerRule{
	{
		sourcePrefix: modulePath + "/internal/domain",
		forbidden:    []string{modulePath + "/internal", modulePath + "/cmd", modulePath + "/pkg"},
		hint:         "domain may only import the standard library",
	},
	{
		sourcePrefix: modulePath + "/internal/token",
		forbidden:    []string{modulePath + "/internal", modulePath + "/cmd", modulePath + "/pkg"},
		hint:         "token is a leaf package",
	},
	{
		sourcePrefix: modulePath + "/internal/hook",
		forbidden:    []string{modulePath + "/internal", modulePath + "/cmd", modulePath + "/pkg"},
		hint:         "hook is a leaf package",
	},
	{
		sourcePrefix: modulePath + "/internal/storage",
		forbidden:    []string{modulePath + "/internal", modulePath + "/cmd", modulePath + "/pkg"},
		hint:         "storage is a leaf package",
	},
	{
		sourcePrefix: modulePath + "/internal/qb",
		forbidden: []string{
			modulePath + "/internal/api",
			modulePath + "/internal/engine",
			modulePath + "/internal/catalog",
			modulePath + "/internal/db",
			modulePath + "/internal/middleware",
			modulePath + "/cmd",
			modulePath + "/pkg",
		},
		hint: "qb builds statements from domain and policy types only",
	},
	{
		sourcePrefix: modulePath + "/internal/catalog",
		forbidden: []string{
			modulePath + "/internal/api",
			modulePath + "/internal/engine",
			modulePath + "/internal/policy",
			modulePath + "/internal/qb",
			modulePath + "/cmd",
			modulePath + "/pkg",
		},
		hint: "catalog should depend on domain only",
	},
	{
		sourcePrefix: modulePath + "/internal/policy",
		forbidden: []string{
			modulePath + "/internal/api",
			modulePath + "/internal/engine",
			modulePath + "/internal/catalog",
			modulePath + "/internal/qb",
			modulePath + "/cmd",
			modulePath + "/pkg",
		},
		hint: "policy should depend on domain only",
	},
	{
		sourcePrefix: modulePath + "/internal/engine",
		forbidden: []string{
			modulePath + "/internal/api",
			modulePath + "/internal/middleware",
			modulePath + "/internal/auth",
			modulePath + "/cmd",
			modulePath + "/pkg",
		},
		hint: "engine should not know about transport or auth",
	},
	{
		sourcePrefix: modulePath + "/internal/api",
		forbidden: []string{
			modulePath + "/internal/db",
			modulePath + "/cmd",
			modulePath + "/pkg",
		},
		hint: "api talks to services, never to the database directly",
	},
	{
		sourcePrefix: modulePath + "/internal/db",
		forbidden: []string{
			modulePath + "/internal/api",
			modulePath + "/internal/engine",
			modulePath + "/internal/auth",
			modulePath + "/internal/middleware",
			modulePath + "/cmd",
			modulePath + "/pkg",
		},
		hint: "db should depend on nothing above it",
	},
}

func TestImportBoundaries(t *testing.T) {
	t.Parallel()

	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)

	violations := make([]string, 0)
	fset := token.NewFileSet()

	err = filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || shouldSkipFile(path) {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		require.NoError(t, relErr)
		sourcePkg := modulePath + "/" + filepath.ToSlash(filepath.Dir(rel))
		rule, ok := findRule(sourcePkg)
		if !ok {
			return nil
		}

		parsed, parseErr := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		require.NoErrorf(t, parseErr, "parse imports for %s", rel)

		for _, imp := range parsed.Imports {
			importPath := strings.Trim(imp.Path.Value, "\"")
			if !strings.HasPrefix(importPath, modulePath+"/") {
				continue
			}
			if violatesRule(importPath, rule.forbidden) {
				violations = append(violations,
					sourcePkg+" imports "+importPath+" via "+rel+"; allowed direction: "+rule.hint)
			}
		}
		return nil
	})
	require.NoError(t, err)

	if len(violations) > 0 {
		sort.Strings(violations)
		t.Fatalf("%s", strings.Join(violations, "\n"))
	}
}

func shouldSkipFile(path string) bool {
	return strings.HasSuffix(filepath.Base(path), "_test.go")
}

func findRule(sourcePkg string) (layerRule, bool) {
	for _, rule := range rules {
		if hasPathPrefix(sourcePkg, rule.sourcePrefix) {
			return rule, true
		}
	}
	return layerRule{}, false
}

func violatesRule(importPath string, forbidden []string) bool {
	for _, prefix := range forbidden {
		if hasPathPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func hasPathPrefix(value string, prefix string) bool {
	return value == prefix || strings.HasPrefix(value, prefix+"/")
}
