package mirror

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/utilitywarehouse/git-push-mirror/internal/runner"
)

// branchInList reports whether the requested branch appears in the
// output of "git branch -a", either under its plain name or its remote
// tracking form "remotes/origin/<branch>".
func branchInList(listing, branch string) bool {
	return strings.Contains(listing, branch) ||
		strings.Contains(listing, "remotes/origin/"+branch)
}

// SweepStaleRunDirs removes leftover run dirs of previous processes which
// crashed before their deferred cleanup could run. This is best effort,
// only dirs which are empty or hold a bare clone are removed.
func SweepStaleRunDirs(ctx context.Context, log *slog.Logger) {
	prefix := strings.TrimSuffix(runDirPattern, "*")

	entries, err := os.ReadDir(os.TempDir())
	if err != nil {
		log.Error("unable to read temp dir for clean up", "err", err)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		fullPath := filepath.Join(os.TempDir(), entry.Name())

		removable, err := staleRunDirRemovable(ctx, log, fullPath)
		if err != nil {
			log.Error("unable to check stale run dir", "path", fullPath, "err", err)
			continue
		}
		if !removable {
			continue
		}

		log.Info("removing stale run dir...", "path", fullPath)
		if err := os.RemoveAll(fullPath); err != nil {
			log.Error("unable to remove stale run dir", "path", fullPath, "err", err)
		}
	}
}

// staleRunDirRemovable reports whether given run dir can be deleted
// safely: it is either empty (crash before the clone started) or its
// fixed clone subdirectory is a bare repository.
func staleRunDirRemovable(ctx context.Context, log *slog.Logger, dir string) (bool, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	if len(dirents) == 0 {
		return true, nil
	}

	cloneDir := filepath.Join(dir, cloneDirName)
	if _, err := os.Stat(cloneDir); os.IsNotExist(err) {
		return false, nil
	}

	return isBareRepo(ctx, log, cloneDir)
}

func isInsideGitDir(ctx context.Context, log *slog.Logger, cwd string) bool {
	// err is expected here
	res, _ := runner.Run(ctx, log, runner.Options{Silent: true, Dir: cwd},
		gitExecutablePath, "rev-parse", "--is-inside-git-dir")
	return res.Stdout == "true"
}

func isBareRepo(ctx context.Context, log *slog.Logger, cwd string) (bool, error) {
	// bare repository doesn't have worktrees
	if !isInsideGitDir(ctx, log, cwd) {
		return false, nil
	}

	res, err := runner.Run(ctx, log, runner.Options{Silent: true, Dir: cwd},
		gitExecutablePath, "rev-parse", "--is-bare-repository")
	if err != nil {
		return false, err
	}

	return strconv.ParseBool(res.Stdout)
}
