package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/xmazu/dotenvy/internal/config"
)

func resetFlags() {
	logLevel = ""
	rootDir = ""
	envFiles = nil
	identityFile = ""
	sequenceFlag = ""
	noHistory = false

	runEnv = nil
	runStrict = false
	runRedact = false
	runWatch = false
	getFormat = "raw"
	getMasked = false
	listJSON = false
	listValues = false
	listMasked = false
	checkStrict = false
	encryptRecipients = nil
	encryptArmor = false
	encryptOutput = ""
	encryptGenerate = false
	decryptOutput = "-"
	findAll = false
	findDepth = 0
	findTree = false
	historyCount = 20
	historyVerify = false
	keyAddFile = ""
	keyAddEnv = false
	initForce = false
	initRedact = false
}

// setupProject creates a project root holding files and points --dir at
// it. Config and identity lookups are isolated from the real user.
func setupProject(t *testing.T, files map[string]string) string {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	oldTerminal := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = oldTerminal })

	t.Setenv(config.ConfigDirEnv, t.TempDir())
	t.Setenv(config.IdentityEnv, "")

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatalf("create marker: %v", err)
	}
	for name, content := range files {
		writeFile(t, filepath.Join(dir, name), content)
	}
	rootDir = dir
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	c.SetErr(&errOut)
	return c, &out, &errOut
}

func wantExitCode(t *testing.T, err error, code int) {
	t.Helper()
	exit, ok := err.(*exitError)
	if !ok {
		t.Fatalf("error = %v, want exit status %d", err, code)
	}
	if exit.code != code {
		t.Errorf("exit code = %d, want %d", exit.code, code)
	}
}
