package gittest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/kr/text"
	lsgit "github.com/lockstep-rebase/lockstep-rebase/internal/git"
	"github.com/stretchr/testify/require"
)

// NewTempRepo initializes a throwaway git repository with a single commit
// and a bare "origin" remote, suitable for exercising Repo Gateway and
// orchestrator behavior without touching any real repository.
func NewTempRepo(t *testing.T) *GitTestRepo {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "local")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	remoteDir := filepath.Join(t.TempDir(), "remote")
	require.NoError(t, os.MkdirAll(remoteDir, 0o755))

	init := exec.CommandContext(t.Context(), "git", "init", "--initial-branch=main")
	init.Dir = dir
	require.NoError(t, init.Run(), "failed to initialize git repository")

	remoteInit := exec.CommandContext(t.Context(), "git", "init", "--bare")
	remoteInit.Dir = remoteDir
	require.NoError(t, remoteInit.Run(), "failed to initialize remote git repository")

	ggRepo, err := git.PlainOpen(dir)
	require.NoError(t, err, "failed to open git repository")

	repo := &GitTestRepo{RepoDir: dir, GitDir: filepath.Join(dir, ".git"), GoGit: ggRepo}

	settings := map[string]string{
		"user.name":  "lockstep-rebase-test",
		"user.email": "lockstep-rebase-test@nonexistent",
		// Temp repos wire real submodule gitlinks over file:// URLs; newer
		// git refuses that by default (CVE-2022-39253) unless allowed.
		"protocol.file.allow": "always",
	}
	for k, v := range settings {
		repo.Git(t, "config", k, v)
	}

	repo.Git(t, "remote", "add", "origin", remoteDir)

	require.NoError(t, os.WriteFile(dir+"/README.md", []byte("# hello\n"), 0o644))
	repo.Git(t, "add", "README.md")
	repo.Git(t, "commit", "-m", "initial commit")
	repo.Git(t, "push", "origin", "main")

	return repo
}

// GitTestRepo is a single throwaway repository used by a test, possibly one
// node of a NewTempHierarchy tree.
type GitTestRepo struct {
	RepoDir string
	GitDir  string
	GoGit   *git.Repository
}

// AsGitRepo opens the test repository through the same Repo Gateway the
// production code uses.
func (r *GitTestRepo) AsGitRepo(t *testing.T) *lsgit.Repo {
	t.Helper()
	repo, err := lsgit.OpenRepo(r.RepoDir)
	require.NoError(t, err, "failed to open repo through the gateway")
	return repo
}

func (r *GitTestRepo) Git(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.CommandContext(t.Context(), "git", args...)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = r.RepoDir
	err := cmd.Run()
	var exitError *exec.ExitError
	if err != nil && !errors.As(err, &exitError) {
		t.Fatal(err)
	}
	t.Logf("Running git\n"+
		"args: %v\n"+
		"exit code: %v\n"+
		"stdout:\n"+
		"%s"+
		"stderr:\n"+
		"%s",
		args,
		cmd.ProcessState.ExitCode(),
		text.Indent(stdout.String(), "  "),
		text.Indent(stderr.String(), "  "),
	)
	return stdout.String()
}

func (r *GitTestRepo) AddFile(t *testing.T, fp string) {
	t.Helper()
	r.Git(t, "add", fp)
}

func (r *GitTestRepo) CreateFile(t *testing.T, filename string, body string) string {
	t.Helper()
	fp := filepath.Join(r.RepoDir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(fp), 0o755))
	err := os.WriteFile(fp, []byte(body), 0o644)
	require.NoError(t, err, "failed to write file: %s", filename)
	return fp
}

type commitFileOpts struct {
	msg   string
	amend bool
}

type CommitFileOpt func(*commitFileOpts)

func WithMessage(msg string) CommitFileOpt {
	return func(opts *commitFileOpts) { opts.msg = msg }
}

func WithAmend() CommitFileOpt {
	return func(opts *commitFileOpts) { opts.amend = true }
}

func (r *GitTestRepo) CommitFile(
	t *testing.T,
	filename string,
	body string,
	cfOpts ...CommitFileOpt,
) plumbing.Hash {
	t.Helper()
	opts := commitFileOpts{msg: fmt.Sprintf("write %s", filename)}
	for _, o := range cfOpts {
		o(&opts)
	}

	fp := r.CreateFile(t, filename, body)
	r.AddFile(t, fp)

	args := []string{"commit", "-m", opts.msg}
	if opts.amend {
		args = append(args, "--amend")
	}
	r.Git(t, args...)
	headRef, err := r.GoGit.Head()
	require.NoError(t, err, "failed to get HEAD")
	return headRef.Hash()
}

func (r *GitTestRepo) IsWorkdirClean(t *testing.T) bool {
	t.Helper()
	return r.Git(t, "status", "--porcelain") == ""
}

func (r *GitTestRepo) CurrentBranch(t *testing.T) plumbing.ReferenceName {
	t.Helper()
	head, err := r.GoGit.Head()
	require.NoError(t, err, "failed to get HEAD")
	return head.Name()
}

func (r *GitTestRepo) GetCommitAtRef(t *testing.T, name plumbing.ReferenceName) plumbing.Hash {
	t.Helper()
	ref, err := r.GoGit.Reference(name, true)
	require.NoError(t, err, "failed to get a ref at %q", name)
	return ref.Hash()
}

func (r *GitTestRepo) CreateRef(t *testing.T, ref plumbing.ReferenceName) {
	t.Helper()
	head, err := r.GoGit.Head()
	require.NoError(t, err, "failed to get HEAD")
	err = r.GoGit.Storer.SetReference(plumbing.NewHashReference(ref, head.Hash()))
	require.NoError(t, err, "failed to create ref %q", ref)
}

// CheckoutBranch checks out the specified branch and returns the original branch.
func (r *GitTestRepo) CheckoutBranch(
	t *testing.T,
	branch plumbing.ReferenceName,
) plumbing.ReferenceName {
	t.Helper()
	original := r.CurrentBranch(t)
	wt, err := r.GoGit.Worktree()
	require.NoError(t, err, "failed to get worktree")
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: branch}))
	return original
}

func (r *GitTestRepo) CheckoutCommit(t *testing.T, hash plumbing.Hash) {
	t.Helper()
	wt, err := r.GoGit.Worktree()
	require.NoError(t, err, "failed to get worktree")
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: hash}))
}

// WithCheckoutBranch runs f with branch checked out, then restores the
// original branch.
func (r *GitTestRepo) WithCheckoutBranch(t *testing.T, branch plumbing.ReferenceName, f func()) {
	t.Helper()
	original := r.CheckoutBranch(t, branch)
	defer r.CheckoutBranch(t, original)
	f()
}

func (r *GitTestRepo) GetCommits(
	t *testing.T,
	includedFromRef, excludedFromRef plumbing.ReferenceName,
) []plumbing.Hash {
	t.Helper()
	from := r.GetCommitAtRef(t, includedFromRef)
	excluded := r.GetCommitAtRef(t, excludedFromRef)

	commit, err := r.GoGit.CommitObject(from)
	require.NoError(t, err, "failed to get commit at %q", from)

	var commits []plumbing.Hash
	commitIter := object.NewCommitPreorderIter(commit, nil, []plumbing.Hash{excluded})
	require.NoError(t, commitIter.ForEach(func(c *object.Commit) error {
		commits = append(commits, c.Hash)
		return nil
	}))
	return commits
}

func (r *GitTestRepo) MergeBase(t *testing.T, ref1, ref2 plumbing.ReferenceName) []plumbing.Hash {
	t.Helper()
	c1, err := r.GoGit.CommitObject(r.GetCommitAtRef(t, ref1))
	require.NoError(t, err, "failed to get commit at %q", ref1)
	c2, err := r.GoGit.CommitObject(r.GetCommitAtRef(t, ref2))
	require.NoError(t, err, "failed to get commit at %q", ref2)

	bases, err := c1.MergeBase(c2)
	require.NoError(t, err, "failed to get merge bases")
	var ret []plumbing.Hash
	for _, c := range bases {
		ret = append(ret, c.Hash)
	}
	return ret
}

// AddSubmodule records child at path as a real submodule gitlink, using the
// child's working directory directly as the submodule URL (both are
// throwaway temp directories so no network round-trip is needed), then
// commits the pointer.
func (r *GitTestRepo) AddSubmodule(t *testing.T, path string, child *GitTestRepo) {
	t.Helper()
	r.Git(t, "-c", "protocol.file.allow=always", "submodule", "add", child.RepoDir, path)
	r.Git(t, "commit", "-m", fmt.Sprintf("add submodule %s", path))
}

// HierarchyShape describes a tree of repositories to be wired together by
// NewTempHierarchy, each child linked into its parent at Path by a real
// submodule gitlink.
type HierarchyShape struct {
	// Name identifies this node in the map NewTempHierarchy returns.
	Name string
	// Path is the submodule path within the parent. Ignored for the root.
	Path     string
	Children []HierarchyShape
}

// NewTempHierarchy builds a small tree of repositories connected by real
// `git submodule add` pointers, so hierarchy and orchestrator tests exercise
// actual submodule gitlinks instead of fakes. It returns every node keyed by
// its HierarchyShape.Name, including the root; every non-root entry is the
// initialized submodule checkout inside its parent's working tree.
func NewTempHierarchy(t *testing.T, root HierarchyShape) map[string]*GitTestRepo {
	t.Helper()
	repos := map[string]*GitTestRepo{}
	rootRepo := buildHierarchyNode(t, root, repos)
	rootRepo.Git(t, "-c", "protocol.file.allow=always", "submodule", "update", "--init", "--recursive")
	var useCheckouts func(parentDir string, children []HierarchyShape)
	useCheckouts = func(parentDir string, children []HierarchyShape) {
		for _, child := range children {
			dir := filepath.Join(parentDir, filepath.FromSlash(child.Path))
			ggRepo, err := git.PlainOpen(dir)
			require.NoError(t, err, "failed to open submodule checkout %q", dir)
			sub := &GitTestRepo{RepoDir: dir, GoGit: ggRepo}
			sub.GitDir = strings.TrimSpace(sub.Git(t, "rev-parse", "--absolute-git-dir"))
			sub.Git(t, "config", "user.name", "lockstep-rebase-test")
			sub.Git(t, "config", "user.email", "lockstep-rebase-test@nonexistent")
			repos[child.Name] = sub
			useCheckouts(dir, child.Children)
		}
	}
	useCheckouts(rootRepo.RepoDir, root.Children)
	return repos
}

func buildHierarchyNode(
	t *testing.T,
	node HierarchyShape,
	repos map[string]*GitTestRepo,
) *GitTestRepo {
	t.Helper()
	repo := NewTempRepo(t)
	repos[node.Name] = repo
	for _, child := range node.Children {
		childRepo := buildHierarchyNode(t, child, repos)
		repo.AddSubmodule(t, child.Path, childRepo)
	}
	return repo
}
