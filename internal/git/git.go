// Package git is a typed facade over the git CLI for a single repository's
// working tree. It is the Repo Gateway: every other package in this module
// reaches the actual git binary only through a *Repo.
package git

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"
)

// Repo is a narrow, typed facade over a single repository's git operations.
// All git invocations against this repository's worktree are serialized
// through the methods below; callers must not interleave concurrent
// invocations against the same Repo (see the concurrency model in the
// orchestrator package).
type Repo struct {
	repoDir string
	gitDir  string
	gitRepo *gogit.Repository
	log     logrus.FieldLogger
}

// OpenRepo opens the repository rooted at repoDir. It fails if repoDir is
// not inside a git working tree.
func OpenRepo(repoDir string) (*Repo, error) {
	gr, err := gogit.PlainOpenWithOptions(repoDir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, errors.WrapIff(ErrNotAGitRepo, "open %q: %v", repoDir, err)
	}
	wt, err := gr.Worktree()
	if err != nil {
		return nil, errors.WrapIff(ErrNotAGitRepo, "no worktree at %q: %v", repoDir, err)
	}

	r := &Repo{
		repoDir: wt.Filesystem.Root(),
		gitRepo: gr,
		log:     logrus.WithField("repo", filepath.Base(repoDir)),
	}
	gitDir, err := r.Git(context.Background(), "rev-parse", "--git-dir")
	if err != nil {
		return nil, errors.WrapIff(ErrNotAGitRepo, "%q: %v", repoDir, err)
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(r.repoDir, gitDir)
	}
	r.gitDir = gitDir
	return r, nil
}

func (r *Repo) Dir() string    { return r.repoDir }
func (r *Repo) GitDir() string { return r.gitDir }

func (r *Repo) GoGitRepo() *gogit.Repository { return r.gitRepo }

// Git runs a git subcommand and returns its trimmed stdout.
func (r *Repo) Git(ctx context.Context, args ...string) (string, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.repoDir
	cmd.Env = append(os.Environ(), "GIT_EDITOR=true")
	out, err := cmd.Output()
	log := r.log.WithField("duration", time.Since(start))
	if err != nil {
		stderr := "<no output>"
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr = string(exitErr.Stderr)
		}
		log.Debugf("git %s failed: %v: %s", args, err, stderr)
		return strings.TrimSpace(string(out)), newRunError(args, err, stderr)
	}
	log.Debugf("git %s", args)
	return strings.TrimSpace(string(out)), nil
}

// RunOpts configures a single invocation of the git binary.
type RunOpts struct {
	Args []string
	Env  []string
	// ExitError makes Run return an error for any non-zero exit code.
	// Otherwise the caller must inspect Output.ExitCode itself (useful when
	// a non-zero exit is an expected outcome, e.g. `git diff --exit-code`).
	ExitError bool
	Stdin     io.Reader
}

// Output is the captured result of a git invocation.
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (o *Output) Lines() []string {
	s := strings.TrimSpace(string(o.Stdout))
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Run invokes git with the given options and always returns the captured
// output, even on a non-zero exit, unless opts.ExitError is set.
func (r *Repo) Run(ctx context.Context, opts *RunOpts) (*Output, error) {
	r.log.Debugf("git %s", opts.Args)
	cmd := exec.CommandContext(ctx, "git", opts.Args...)
	cmd.Dir = r.repoDir
	cmd.Env = append(os.Environ(), "GIT_EDITOR=true")
	cmd.Env = append(cmd.Env, opts.Env...)
	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		out.ExitCode = 0
	case errors.As(runErr, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		return nil, errors.WrapIff(runErr, "git %s", opts.Args)
	}
	if out.ExitCode != 0 && opts.ExitError {
		return out, newRunError(opts.Args, runErr, stderr.String())
	}
	return out, nil
}

// CurrentBranchName returns the name of the checked-out branch, or
// ErrDetachedHead if HEAD does not point at a branch (e.g. mid-rebase).
func (r *Repo) CurrentBranchName(ctx context.Context) (string, error) {
	ref, err := r.gitRepo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", errors.WrapIf(err, "failed to resolve HEAD")
	}
	if ref.Type() != plumbing.SymbolicReference {
		return "", ErrDetachedHead
	}
	return ref.Target().Short(), nil
}

func (r *Repo) BranchExistsLocal(ctx context.Context, name string) (bool, error) {
	return r.refExists(ctx, "refs/heads/"+name)
}

func (r *Repo) BranchExistsRemote(ctx context.Context, name, remote string) (bool, error) {
	return r.refExists(ctx, "refs/remotes/"+remote+"/"+name)
}

func (r *Repo) refExists(ctx context.Context, ref string) (bool, error) {
	out, err := r.Run(ctx, &RunOpts{Args: []string{"show-ref", "--verify", "--quiet", ref}})
	if err != nil {
		return false, err
	}
	return out.ExitCode == 0, nil
}

// CreateLocalFromRemote creates a local branch tracking remote/name. It
// fails if the local branch already exists.
func (r *Repo) CreateLocalFromRemote(ctx context.Context, name, remote string) error {
	exists, err := r.BranchExistsLocal(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("branch %q already exists locally", name)
	}
	_, err = r.Git(ctx, "branch", "--track", name, remote+"/"+name)
	return err
}

// Checkout switches the working tree to branch. It fails unless the
// worktree is clean.
func (r *Repo) Checkout(ctx context.Context, branch string) error {
	clean, err := r.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return ErrDirtyWorktree
	}
	_, err = r.Git(ctx, "checkout", branch)
	return err
}

func (r *Repo) RevParse(ctx context.Context, ref string) (string, error) {
	return r.Git(ctx, "rev-parse", ref)
}

type UpdateRef struct {
	Ref          string
	New          string
	Old          string
	CreateReflog bool
}

func (r *Repo) UpdateRef(ctx context.Context, u *UpdateRef) error {
	args := []string{"update-ref", u.Ref, u.New}
	if u.Old != "" {
		args = append(args, u.Old)
	}
	if u.CreateReflog {
		args = append(args, "--create-reflog")
	}
	_, err := r.Git(ctx, args...)
	return errors.WrapIff(err, "failed to write ref %q (%s)", u.Ref, ShortSha(u.New))
}

func (r *Repo) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := r.Git(ctx, "branch", flag, name)
	return err
}

func (r *Repo) ForceUpdateBranch(ctx context.Context, name, to string) error {
	return r.UpdateRef(ctx, &UpdateRef{Ref: "refs/heads/" + name, New: to})
}

func (r *Repo) CreateBackupBranch(ctx context.Context, name, at string) error {
	exists, err := r.BranchExistsLocal(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("backup branch %q already exists (refusing to overwrite)", name)
	}
	return r.UpdateRef(ctx, &UpdateRef{Ref: "refs/heads/" + name, New: at, Old: Missing})
}

func (r *Repo) Fetch(ctx context.Context, remote string, refspecs ...string) error {
	args := append([]string{"fetch", remote}, refspecs...)
	_, err := r.Git(ctx, args...)
	return err
}

type Origin struct {
	RepoSlug string
}

func (r *Repo) Origin(ctx context.Context, remote string) (*Origin, error) {
	out, err := r.Git(ctx, "remote", "get-url", remote)
	if err != nil {
		return nil, errors.WrapIff(ErrRemoteNotFound, "%v", err)
	}
	slug := strings.TrimSuffix(out, ".git")
	if i := strings.LastIndexAny(slug, ":/"); i >= 0 {
		if j := strings.LastIndexAny(slug[:i], ":/"); j >= 0 {
			slug = slug[j+1:]
		}
	}
	return &Origin{RepoSlug: slug}, nil
}
