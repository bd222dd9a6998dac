package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/utilitywarehouse/git-push-mirror/giturl"
	"github.com/utilitywarehouse/git-push-mirror/internal/lock"
	"github.com/utilitywarehouse/git-push-mirror/internal/runner"
)

const (
	// run dirs are created under os.TempDir with this pattern
	runDirPattern = "git-push-mirror-*"

	// cloneDirName is the fixed subdirectory of the run dir which holds
	// the mirror clone of the source
	cloneDirName = "source"
)

var (
	gitExecutablePath string

	// ErrBranchNotFound is returned when the requested branch does not
	// exist on the source repository.
	ErrBranchNotFound = errors.New("branch not found on source repository")
)

func init() {
	gitExecutablePath = exec.Command("git").String()
}

// PushMirror mirrors a single source repository to a target GitHub
// repository. It is safe for concurrent use by multiple goroutines,
// runs are serialised on an internal lock.
type PushMirror struct {
	lock      lock.RWMutex  // mirror will be locked during a run
	cfg       Config        // validated mirror config
	sourceURL *giturl.URL   // parsed source url, used for log/metric labels
	envs      []string      // envs which will be passed to git commands
	running   bool          // indicates if the mirror loop is running
	queue     chan struct{} // pending on-demand run requests

	stop, stopped chan bool // chans to stop the mirror loop

	// cached GitHub App installation token
	githubAppToken          string
	githubAppTokenExpiresAt time.Time

	log *slog.Logger
}

// New creates a new push mirror from the given config.
// Nothing is cloned or pushed until Run or StartLoop is called.
func New(cfg Config, envs []string, log *slog.Logger) (*PushMirror, error) {
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}

	gURL, err := giturl.Parse(cfg.Source)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	return &PushMirror{
		cfg:       cfg,
		sourceURL: gURL,
		envs:      envs,
		queue:     make(chan struct{}, 1),
		stop:      make(chan bool),
		stopped:   make(chan bool),
		log:       log.With("repo", gURL.Repo),
	}, nil
}

// Source returns the normalised source url of the mirror.
func (m *PushMirror) Source() string { return m.cfg.Source }

// Run performs one complete mirror:
//  1. create a temporary run dir
//  2. mirror clone the source into it
//  3. verify the requested branch exists
//  4. force push the full mirror to the target
//
// The run dir is removed when Run returns, on failures as well.
func (m *PushMirror) Run(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	defer updateMirrorLatency(m.sourceURL.Repo, time.Now())

	start := time.Now()

	if !m.cfg.SkipTargetCheck {
		if err := m.checkTarget(ctx); err != nil {
			return fmt.Errorf("unable to verify target repo:%s  err:%w", m.cfg.Target, err)
		}
	}

	runDir, err := os.MkdirTemp("", runDirPattern)
	if err != nil {
		return fmt.Errorf("unable to create run dir err:%w", err)
	}
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			m.log.Error("unable to remove run dir", "path", runDir, "err", err)
		}
	}()

	cloneDir := filepath.Join(runDir, cloneDirName)

	if err := m.clone(ctx, cloneDir); err != nil {
		return fmt.Errorf("unable to clone source repo:%s  err:%w", m.cfg.Source, err)
	}

	cloneTime := time.Since(start)

	if err := m.verifyBranch(ctx, cloneDir); err != nil {
		return err
	}

	if err := m.push(ctx, cloneDir); err != nil {
		return fmt.Errorf("unable to push to target repo:%s  err:%w", m.cfg.Target, err)
	}

	m.log.Info("mirror complete", "target", m.cfg.Target, "branch", m.cfg.Branch,
		"time", time.Since(start), "clone-time", cloneTime)
	return nil
}

// clone creates a full mirror clone of the source, all refs and no
// working tree.
func (m *PushMirror) clone(ctx context.Context, dst string) error {
	// git clone --mirror <source> <dst>
	_, err := m.runGit(ctx, runner.Options{Silent: true}, "clone", "--mirror", m.cfg.Source, dst)
	return err
}

// verifyBranch lists every branch of the fresh clone and makes sure the
// requested branch exists before any ref on the target is overwritten.
func (m *PushMirror) verifyBranch(ctx context.Context, cloneDir string) error {
	// git branch -a
	res, err := m.runGit(ctx, runner.Options{Silent: true, Dir: cloneDir}, "branch", "-a")
	if err != nil {
		return fmt.Errorf("unable to list branches err:%w", err)
	}

	if !branchInList(res.Stdout, m.cfg.Branch) {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, m.cfg.Branch)
	}
	return nil
}

// push force pushes all refs of the mirror clone to the target.
func (m *PushMirror) push(ctx context.Context, cloneDir string) error {
	envs, err := m.authEnv(ctx, cloneDir)
	if err != nil {
		return err
	}

	// git push --mirror <target-url> --force
	_, err = m.runGit(ctx, runner.Options{Silent: true, Dir: cloneDir, Envs: envs},
		"push", "--mirror", m.cfg.TargetPushURL(), "--force")
	return err
}

// StartLoop mirrors the repository periodically based on the configured
// interval until ctx is cancelled or Stop is called. Runs queued with
// QueueRun start without waiting for the interval to pass.
func (m *PushMirror) StartLoop(ctx context.Context) {
	if m.running {
		m.log.Error("mirror loop has already been started")
		return
	}
	m.running = true
	m.log.Info("started push mirror loop", "interval", m.cfg.Interval)

	defer func() {
		m.running = false
		close(m.stopped)
	}()

	for {
		// to stop a run blocking indefinitely on a hung git network
		// operation every run gets a deadline
		mCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
		err := m.Run(mCtx)
		cancel()
		if err != nil {
			m.log.Error("push mirror failed", "err", err)
		}
		recordMirror(m.sourceURL.Repo, err == nil)

		t := time.NewTimer(m.cfg.Interval)
		select {
		case <-t.C:
		case <-m.queue:
			t.Stop()
		case <-ctx.Done():
			t.Stop()
			return
		case <-m.stop:
			t.Stop()
			return
		}
	}
}

// QueueRun schedules an immediate mirror run in loop mode. It never
// blocks; if a run is already queued the call is a no-op.
func (m *PushMirror) QueueRun() {
	select {
	case m.queue <- struct{}{}:
	default:
	}
}

// Stop stops the mirror loop and waits until it exits.
func (m *PushMirror) Stop() {
	if !m.running {
		return
	}
	close(m.stop)
	<-m.stopped
}

func (m *PushMirror) runGit(ctx context.Context, opts runner.Options, args ...string) (runner.Result, error) {
	opts.Envs = append(opts.Envs, m.envs...)
	return runner.Run(ctx, m.log, opts, gitExecutablePath, args...)
}
