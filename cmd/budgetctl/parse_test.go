package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStatement(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestParseCommand(t *testing.T) {
	path := writeStatement(t, "dec.csv",
		"Transaction Date;Description 1;CAD$\n"+
			"2024-12-19;COSTCO WHOLESALE #123;-54.20\n"+
			"bad;BROKEN;1\n"+
			"2024-12-20;PAYROLL;1000.00\n")

	out, errOut, err := runCommand(t, "parse", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "row,date,description,amount", lines[0])
	assert.Equal(t, "2,2024-12-19,COSTCO WHOLESALE #123,-54.20", lines[1])

	assert.Contains(t, errOut, "row 3:")
	assert.Contains(t, errOut, "2 records, 1 errors, 0 skipped")
	assert.Contains(t, errOut, "net $945.80 CAD")
}

func TestParseCommand_UnmappableHeader(t *testing.T) {
	path := writeStatement(t, "bad.csv", "Foo,Bar\n1,2\n")

	_, _, err := runCommand(t, "parse", path)
	assert.ErrorContains(t, err, "could not find date column")
}

func TestLearnCommand_RequiresCategory(t *testing.T) {
	_, _, err := runCommand(t, "learn", "COSTCO")
	assert.ErrorContains(t, err, "category")
}
