package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type violation struct {
	file string
	imp  string
	rule string
}

// walkImports calls check for every import of every Go file under internal/.
func walkImports(t *testing.T, check func(rel, imp string) (rule string, bad bool)) []violation {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	fset := token.NewFileSet()
	var violations []violation
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil || !strings.HasPrefix(imp, modulePath+"/") {
				continue
			}
			if rule, bad := check(rel, strings.TrimPrefix(imp, modulePath+"/")); bad {
				violations = append(violations, violation{file: rel, imp: imp, rule: rule})
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return violations
}

func report(t *testing.T, header string, violations []violation) {
	t.Helper()
	if len(violations) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(header + "\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s imports %q (disallowed: %q)\n", v.file, v.imp, v.rule)
	}
	t.Fatal(b.String())
}

func TestImportBoundaries(t *testing.T) {
	violations := walkImports(t, func(rel, imp string) (string, bool) {
		for _, bad := range disallowedImports(layerFor(rel)) {
			if strings.HasPrefix(imp, bad) {
				return bad, true
			}
		}
		return "", false
	})
	report(t, "import boundary violations:", violations)
}

// Clients are constructed in internal/app and reach other packages only through the
// interfaces those packages declare.
func TestNoClientsImportsOutsideApp(t *testing.T) {
	violations := walkImports(t, func(rel, imp string) (string, bool) {
		if strings.HasPrefix(rel, "internal/app/") || strings.HasPrefix(rel, "internal/clients/") {
			return "", false
		}
		return "internal/clients/", strings.HasPrefix(imp, "internal/clients/")
	})
	report(t, "internal/clients imports found outside internal/app:", violations)
}

func layerFor(rel string) string {
	for _, layer := range []string{"platform", "domain", "data", "modules", "jobs", "temporalx", "observability"} {
		if strings.HasPrefix(rel, "internal/"+layer+"/") {
			return layer
		}
	}
	return ""
}

// disallowedImports lists, per layer, the module-relative prefixes it must not import. Layers
// only depend downwards: platform < domain < data < modules < jobs < temporalx < app.
func disallowedImports(layer string) []string {
	above := map[string][]string{
		"platform":      {"internal/domain/", "internal/data/", "internal/modules/", "internal/jobs/", "internal/temporalx/", "internal/observability/"},
		"domain":        {"internal/data/", "internal/modules/", "internal/jobs/", "internal/temporalx/", "internal/observability/"},
		"data":          {"internal/modules/", "internal/jobs/", "internal/temporalx/", "internal/observability/"},
		"modules":       {"internal/jobs/", "internal/temporalx/"},
		"jobs":          {"internal/temporalx/"},
		"observability": {"internal/data/", "internal/modules/", "internal/jobs/", "internal/temporalx/"},
	}
	out := append([]string{}, above[layer]...)
	if layer != "" {
		out = append(out, "internal/app/", "cmd/")
	}
	return out
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
