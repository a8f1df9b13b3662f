package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flags.config, flags.root, flags.camera, flags.logLevel = "", "", "", ""
	flags.script, flags.shots, flags.baseline, flags.report = "", "", "", ""
	flags.yes = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	root := t.TempDir()
	flags.config = ""
	flags.root = root
	flags.camera = "sim"
	flags.logLevel = "debug"
	t.Cleanup(func() { flags.root, flags.camera, flags.logLevel = "", "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, "img"), cfg.WorkingDir())
	assert.Equal(t, "debug", cfg.LogLevel)

	flags.logLevel = "loud"
	_, err = loadConfig()
	assert.Error(t, err)
}

func TestScriptedRunAndList(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "smoke.yaml")
	require.NoError(t, os.WriteFile(script, []byte(`
name: smoke
steps:
  - press: enter
    repeat: 2
  - expect: live
  - shot: two
  - press: esc
`), 0644))
	reports := filepath.Join(root, "reports")

	out, err := execute(t, "run", "--root", root, "--script", script, "--report", reports)
	require.NoError(t, err, out)
	assert.Contains(t, out, "script finished")
	assert.Contains(t, out, "report:")
	assert.FileExists(t, filepath.Join(reports, "index.html"))
	assert.FileExists(t, filepath.Join(root, "stopmotion.log"))

	out, err = execute(t, "list", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "capture_000.png")
	assert.Contains(t, out, "capture_001.png")
	assert.Contains(t, out, "2 frames in")

	out, err = execute(t, "export", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 of 2 frames")
	assert.FileExists(t, filepath.Join(root, "export", "frame_001.png"))
}

func TestScriptedRun_FailingExpectation(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "bad.yaml")
	require.NoError(t, os.WriteFile(script, []byte("steps:\n  - expect: playing\n"), 0644))

	out, err := execute(t, "run", "--root", root, "--script", script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
	assert.Contains(t, out, "director report")
}

func TestReset_RequiresConfirmation(t *testing.T) {
	root := t.TempDir()
	frame := filepath.Join(root, "img", "capture_000.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(frame), 0755))
	require.NoError(t, os.WriteFile(frame, []byte("png"), 0644))

	_, err := execute(t, "reset", "--root", root)
	require.Error(t, err)
	assert.FileExists(t, frame)

	out, err := execute(t, "reset", "--root", root, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "all frames deleted")
	assert.NoFileExists(t, frame)
}
