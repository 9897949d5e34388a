package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intakeJSON = `{
  "name": "Adult intake",
  "category": "Adult",
  "sections": [
    {"name": "Reason for consultation", "type": "text", "required": true},
    {"name": "Symptoms", "type": "checkbox", "options": ["Anxiety", "Insomnia"]}
  ]
}`

const reportJSON = `{
  "patient": {"name": "Juan Perez", "age": 34},
  "date": "2024-03-01",
  "professional": {"name": "Dr. Ana Ruiz"},
  "sections": [{"value": "Work related stress"}, {"values": ["Anxiety"]}]
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", intakeJSON)
	bad := writeFile(t, dir, "bad.json", `{"name": "", "category": "Adult", "sections": []}`)

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "good.json: ok (Adult, 2 sections)")

	out, err = execute(t, "validate", good, bad)
	assert.EqualError(t, err, "1 of 2 templates are invalid")
	assert.Contains(t, out, "bad.json:")
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "intake.json", intakeJSON)
	rep := writeFile(t, dir, "juan.json", reportJSON)
	output := filepath.Join(dir, "out.pdf")

	out, err := execute(t, "render", "--template", tpl, "--report", rep, "--report", rep,
		"--assets", filepath.Join(dir, "missing"), "--format", "Letter", "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 reports,")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "/MediaBox [0 0 612.00 792.00]")
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psyreport.yaml")

	out, err := execute(t, "init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "token_secret")
	assert.FileExists(t, path)

	_, err = execute(t, "init-config", path)
	assert.ErrorContains(t, err, "already exists")
}
