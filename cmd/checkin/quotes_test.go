package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseQuotes(t *testing.T) {
	in := `
quotes:
  - message: "Love is patient."
    source: "1 Corinthians 13:4"
  - message: "Never go to bed angry."
`
	got, err := parseQuotes(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Source != "1 Corinthians 13:4" || got[1].Message != "Never go to bed angry." {
		t.Fatalf("quotes = %+v", got)
	}
}

func TestParseQuotes_EmptyAndUnknownField(t *testing.T) {
	got, err := parseQuotes(strings.NewReader(""))
	if err != nil || got != nil {
		t.Fatalf("empty = %+v, %v", got, err)
	}
	if _, err := parseQuotes(strings.NewReader("quotes:\n  - text: nope\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestQuotesImportCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "quotes.yaml")
	if err := os.WriteFile(file, []byte("quotes:\n  - message: Be kind.\n  - message: \"  \"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "checkin.db"))
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"quotes", "import", file})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "imported 1 quotes\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestRootCommand_RejectsBadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"migrate"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("err = %v", err)
	}
}
