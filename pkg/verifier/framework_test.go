package verifier

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFramework_PytestViaConftest(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "conftest.py", "")
	if DetectFramework(dir) != FrameworkPytest {
		t.Error("expected pytest detected via conftest.py")
	}
}

func TestDetectFramework_PytestViaTestPrefixedFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "test_orders.py", "")
	if DetectFramework(dir) != FrameworkPytest {
		t.Error("expected pytest detected via test_*.py")
	}
}

func TestDetectFramework_JestViaPackageJSON(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "package.json", `{"devDependencies": {"jest": "^29.0.0"}}`)
	if DetectFramework(dir) != FrameworkJest {
		t.Error("expected jest detected via devDependencies")
	}
}

func TestDetectFramework_UnittestFallback(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "orders_test.py", "")
	if DetectFramework(dir) != FrameworkUnittest {
		t.Error("expected unittest fallback via *_test.py")
	}
}

func TestDetectFramework_NoneWhenNothingMatches(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "README.md", "hello")
	if DetectFramework(dir) != FrameworkNone {
		t.Error("expected no framework detected")
	}
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
