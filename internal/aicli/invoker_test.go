package aicli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeCLI drops a shell script at dir/name and returns its path,
// a PATH-stub script stands in for the real external binary.
func writeFakeCLI(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake CLI: %v", err)
	}
	return path
}

func TestInvokeReturnsStdout(t *testing.T) {
	bin := writeFakeCLI(t, "cat >/dev/null\necho 'review complete'\n")

	result, err := Invoke(context.Background(), Config{Binary: bin, Timeout: 5 * time.Second}, "review this PR")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Stdout != "review complete\n" {
		t.Fatalf("Stdout = %q, want %q", result.Stdout, "review complete\n")
	}
}

func TestInvokePipesPromptOnStdin(t *testing.T) {
	bin := writeFakeCLI(t, "cat\n")

	result, err := Invoke(context.Background(), Config{Binary: bin, Timeout: 5 * time.Second}, "the prompt text")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Stdout != "the prompt text" {
		t.Fatalf("Stdout = %q, want the piped prompt echoed back", result.Stdout)
	}
}

func TestInvokeNonZeroExit(t *testing.T) {
	bin := writeFakeCLI(t, "cat >/dev/null\necho 'boom' >&2\nexit 1\n")

	_, err := Invoke(context.Background(), Config{Binary: bin, Timeout: 5 * time.Second}, "p")
	if err == nil {
		t.Fatal("expected error on non-zero exit")
	}
}

func TestInvokeEmptyOutputIsError(t *testing.T) {
	bin := writeFakeCLI(t, "cat >/dev/null\n")

	_, err := Invoke(context.Background(), Config{Binary: bin, Timeout: 5 * time.Second}, "p")
	if err == nil {
		t.Fatal("expected error on empty stdout")
	}
}

func TestInvokeTimeout(t *testing.T) {
	bin := writeFakeCLI(t, "cat >/dev/null\nsleep 5\necho 'too late'\n")

	_, err := Invoke(context.Background(), Config{Binary: bin, Timeout: 50 * time.Millisecond}, "p")
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestInvokeNoBinaryConfigured(t *testing.T) {
	_, err := Invoke(context.Background(), Config{}, "p")
	if err == nil {
		t.Fatal("expected error when no binary is configured")
	}
}

func TestInvokePassesBypassRepoCheckFlag(t *testing.T) {
	bin := writeFakeCLI(t, "cat >/dev/null\necho \"args: $@\"\n")

	result, err := Invoke(context.Background(), Config{Binary: bin, Timeout: 5 * time.Second, BypassRepoCheckFlag: "--dangerously-skip-permissions"}, "p")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Stdout != "args: --dangerously-skip-permissions\n" {
		t.Fatalf("Stdout = %q, want the flag to be forwarded as an argument", result.Stdout)
	}
}
