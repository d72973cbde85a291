package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initRepoWithTwoCommits(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}

	root := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		require.NoError(t, cmd.Run(), "git %v", args)
	}

	run("init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(root, "unchanged.py"), []byte("x = 1\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "initial")

	require.NoError(t, os.WriteFile(filepath.Join(root, "changed.py"), []byte("y = 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not python\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "second")

	return root
}

func TestChangedPythonFilesReturnsOnlyPythonFilesFromLatestCommit(t *testing.T) {
	root := initRepoWithTwoCommits(t)

	files := ChangedPythonFiles(context.Background(), root, "")

	require.Equal(t, []string{"changed.py"}, files)
}

func TestChangedPythonFilesReturnsEmptyOutsideAGitRepo(t *testing.T) {
	root := t.TempDir()
	files := ChangedPythonFiles(context.Background(), root, "")
	require.Empty(t, files)
}
