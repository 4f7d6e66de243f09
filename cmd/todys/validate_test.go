package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "notes.txt")
	bad := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(good, []byte("plain text\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("plain text\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"validate", good})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("validate good: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "accepted") || !strings.Contains(out.String(), "text/plain") {
		t.Fatalf("unexpected output %s", out.String())
	}

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"validate", good, bad})
	if err := cmd.Execute(); !errors.Is(err, errRejected) {
		t.Fatalf("expected errRejected, got %v", err)
	}
	if !strings.Contains(out.String(), "extension_mismatch") {
		t.Fatalf("unexpected output %s", out.String())
	}
}
