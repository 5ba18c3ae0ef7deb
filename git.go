package main

import (
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// ErrNoRepo means the directory is not inside a git repository.
var ErrNoRepo = errors.New("no repository found")

// GitRepo is a thin wrapper around a go-git repository rooted at a project
// directory.
type GitRepo struct {
	repo *git.Repository
	path string
}

type GitStatus struct {
	Branch    string
	IsClean   bool
	Modified  []string
	Untracked []string
}

// CommitInfo is one entry of the commit history.
type CommitInfo struct {
	ShortID string
	Message string
	Author  string
	Date    string
}

// CommitFileChange is one file touched by a commit, relative to its parent.
type CommitFileChange struct {
	Path   string
	Status string // "added", "modified", "deleted", ...
}

func OpenRepo(path string) (*GitRepo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNoRepo
		}
		return nil, fmt.Errorf("open repo %s: %w", path, err)
	}
	return &GitRepo{repo: repo, path: path}, nil
}

func CloneRepo(url, path string) (*GitRepo, error) {
	repo, err := git.PlainClone(path, false, &git.CloneOptions{URL: url})
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}
	return &GitRepo{repo: repo, path: path}, nil
}

// CurrentBranch returns the short name of HEAD, or "" when detached or the
// repository has no commits yet.
func (g *GitRepo) CurrentBranch() string {
	head, err := g.repo.Head()
	if err != nil {
		return ""
	}
	if !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}

func (g *GitRepo) Status() (GitStatus, error) {
	branch := g.CurrentBranch()
	if branch == "" {
		branch = "HEAD"
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return GitStatus{}, fmt.Errorf("worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return GitStatus{}, fmt.Errorf("status: %w", err)
	}
	var modified, untracked []string
	for path, fs := range st {
		switch {
		case fs.Worktree == git.Untracked:
			untracked = append(untracked, path)
		case fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified:
			modified = append(modified, path)
		}
	}
	sort.Strings(modified)
	sort.Strings(untracked)
	return GitStatus{
		Branch:    branch,
		IsClean:   len(modified) == 0 && len(untracked) == 0,
		Modified:  modified,
		Untracked: untracked,
	}, nil
}

// Branches lists local branch names, sorted.
func (g *GitRepo) Branches() ([]string, error) {
	iter, err := g.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("branches: %w", err)
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// RemoteBranches lists remote branch names with the remote prefix stripped,
// deduplicated and sorted. Run Fetch first for fresh refs.
func (g *GitRepo) RemoteBranches() ([]string, error) {
	iter, err := g.repo.References()
	if err != nil {
		return nil, fmt.Errorf("references: %w", err)
	}
	seen := map[string]bool{}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() {
			return nil
		}
		short := ref.Name().Short() // "origin/name"
		_, name, ok := strings.Cut(short, "/")
		if !ok || name == "" || name == "HEAD" || seen[name] {
			return nil
		}
		seen[name] = true
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (g *GitRepo) CheckoutBranch(name string) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

// CheckoutRemoteBranch switches to a branch that may only exist on origin,
// creating the local branch from origin/<name> when needed.
func (g *GitRepo) CheckoutRemoteBranch(name string) error {
	local := plumbing.NewBranchReferenceName(name)
	if _, err := g.repo.Reference(local, true); err == nil {
		return g.CheckoutBranch(name)
	}
	remote, err := g.repo.Reference(plumbing.NewRemoteReferenceName("origin", name), true)
	if err != nil {
		return fmt.Errorf("remote branch %s: %w", name, err)
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Hash:   remote.Hash(),
		Branch: local,
		Create: true,
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

// Commit stages the given paths (or everything when none are given) and
// commits. Author identity comes from the repository config.
func (g *GitRepo) Commit(message string, paths []string) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if len(paths) == 0 {
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return fmt.Errorf("stage all: %w", err)
		}
	} else {
		for _, p := range paths {
			if _, err := wt.Add(p); err != nil {
				return fmt.Errorf("stage %s: %w", p, err)
			}
		}
	}
	if _, err := wt.Commit(message, &git.CommitOptions{}); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Pull fast-forwards the current branch from origin. go-git only supports
// fast-forward pulls; anything else surfaces as an error.
func (g *GitRepo) Pull() (string, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	err = wt.Pull(&git.PullOptions{RemoteName: "origin"})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "Already up to date.", nil
	}
	if err != nil {
		return "", fmt.Errorf("pull: %w", err)
	}
	return "Pull (fast-forward) completed.", nil
}

func (g *GitRepo) Push() (string, error) {
	err := g.repo.Push(&git.PushOptions{})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "Already up to date.", nil
	}
	if err != nil {
		return "", fmt.Errorf("push: %w", err)
	}
	return "Push completed", nil
}

func (g *GitRepo) Fetch() error {
	err := g.repo.Fetch(&git.FetchOptions{RemoteName: "origin"})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// Log returns up to max entries of the current branch history.
func (g *GitRepo) Log(max int) ([]CommitInfo, error) {
	iter, err := g.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	defer iter.Close()
	var out []CommitInfo
	for len(out) < max {
		c, err := iter.Next()
		if err != nil {
			break
		}
		out = append(out, CommitInfo{
			ShortID: shortHash(c.Hash.String()),
			Message: firstLine(c.Message),
			Author:  c.Author.Name,
			Date:    c.Author.When.UTC().Format("2006-01-02 15:04"),
		})
	}
	return out, nil
}

// CommitChanges lists the files a commit touched relative to its first
// parent. The root commit reports a single "initial" marker.
func (g *GitRepo) CommitChanges(shortID string) ([]CommitFileChange, error) {
	shortID = strings.TrimSpace(shortID)
	if len(shortID) < 7 {
		return nil, fmt.Errorf("commit id too short")
	}
	commit, err := g.findCommit(shortID)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return []CommitFileChange{{Path: "(initial commit)", Status: "initial"}}, nil
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("parent tree: %w", err)
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	var out []CommitFileChange
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			continue
		}
		path := ch.To.Name
		if path == "" {
			path = ch.From.Name
		}
		status := "changed"
		switch action {
		case merkletrie.Insert:
			status = "added"
		case merkletrie.Delete:
			status = "deleted"
		case merkletrie.Modify:
			status = "modified"
		}
		out = append(out, CommitFileChange{Path: path, Status: status})
	}
	return out, nil
}

func (g *GitRepo) findCommit(prefix string) (*object.Commit, error) {
	iter, err := g.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	defer iter.Close()
	for {
		c, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("commit %s not found", prefix)
		}
		if strings.HasPrefix(c.Hash.String(), prefix) {
			return c, nil
		}
	}
}

// Stash and StashPop shell out to the git CLI; go-git has no stash support.
func (g *GitRepo) Stash() error {
	return runGit(g.path, "stash")
}

func (g *GitRepo) StashPop() error {
	return runGit(g.path, "stash", "pop")
}

func runGit(dir string, args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
