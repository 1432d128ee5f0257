package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestEval(t *testing.T) {
	out, _, err := execute(t, "eval", "1+2", "--format", "")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, _, err = execute(t, "eval", "=WAIT(5, 42)", "--format", "0.00")
	require.NoError(t, err)
	assert.Equal(t, "42.00\n", out)

	out, _, err = execute(t, "eval", "=1/0", "--format", "")
	require.NoError(t, err)
	assert.Equal(t, "#DIV/0!\n", out)
}

const testScript = `
commands:
  - {type: UPDATE_CELL, sheetId: sheet1, col: 0, row: 0, content: "2"}
  - {type: UPDATE_CELL, sheetId: sheet1, col: 1, row: 0, content: "=A1*3"}
  - {type: DELETE_SHEET, sheetId: sheet1}
print:
  - Sheet1!A1:B1
`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScript), 0o644))
	outFile := filepath.Join(dir, "book.json")

	out, errOut, err := execute(t, "run", path, "--workbook", "", "--out", outFile)
	require.NoError(t, err)
	assert.Equal(t, "2\t6\n", out)
	assert.Contains(t, errOut, "command 3 (DELETE_SHEET) cancelled: NotEnoughSheets")

	raw, err := os.ReadFile(outFile)
	require.NoError(t, err)
	data, err := model.Migrate(raw)
	require.NoError(t, err)
	assert.Equal(t, "=A1*3", data.Sheets[0].Cells["B1"].Content)

	// start from the written workbook and list every cell
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("commands: []\n"), 0o644))
	out, _, err = execute(t, "run", empty, "--workbook", outFile, "--out", "")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1!A1\t2\t2\nSheet1!B1\t=A1*3\t6\n", out)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("commands:\n  - {type: EXPLODE}\n"), 0o644))

	_, _, err := execute(t, "run", bad, "--workbook", "", "--out", "")
	assert.ErrorContains(t, err, "command 1")

	_, _, err = execute(t, "run", filepath.Join(dir, "missing.yaml"), "--workbook", "", "--out", "")
	assert.ErrorContains(t, err, "failed to read script")
}
