package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

func initRepoFixture(t *testing.T) *GitRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := repo.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.User.Name = "Tester"
	cfg.User.Email = "tester@example.com"
	if err := repo.SetConfig(cfg); err != nil {
		t.Fatalf("set config: %v", err)
	}
	return &GitRepo{repo: repo, path: dir}
}

func commitFile(t *testing.T, g *GitRepo, name, content, message string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(g.path, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := g.Commit(message, nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestOpenRepoNotARepository(t *testing.T) {
	_, err := OpenRepo(t.TempDir())
	if !errors.Is(err, ErrNoRepo) {
		t.Fatalf("expected ErrNoRepo, got %v", err)
	}
}

func TestOpenRepoAfterInit(t *testing.T) {
	fixture := initRepoFixture(t)
	g, err := OpenRepo(fixture.path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if g.CurrentBranch() != "" {
		t.Fatalf("expected no branch before first commit, got %q", g.CurrentBranch())
	}
}

func TestStatusTracksWorktree(t *testing.T) {
	g := initRepoFixture(t)

	if err := os.WriteFile(filepath.Join(g.path, "a.txt"), []byte("one\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := g.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.IsClean {
		t.Fatalf("expected dirty status")
	}
	if len(st.Untracked) != 1 || st.Untracked[0] != "a.txt" {
		t.Fatalf("expected a.txt untracked, got %v", st.Untracked)
	}

	if err := g.Commit("add a", nil); err != nil {
		t.Fatalf("commit: %v", err)
	}
	st, err = g.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.IsClean {
		t.Fatalf("expected clean status after commit, got %+v", st)
	}
	if st.Branch != "master" {
		t.Fatalf("expected master branch, got %q", st.Branch)
	}

	if err := os.WriteFile(filepath.Join(g.path, "a.txt"), []byte("two\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err = g.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(st.Modified) != 1 || st.Modified[0] != "a.txt" {
		t.Fatalf("expected a.txt modified, got %v", st.Modified)
	}
}

func TestBranchesAndCheckout(t *testing.T) {
	g := initRepoFixture(t)
	commitFile(t, g, "a.txt", "one\n", "add a")

	head, err := g.repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Hash:   head.Hash(),
		Branch: plumbing.NewBranchReferenceName("feature"),
		Create: true,
	})
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}

	branches, err := g.Branches()
	if err != nil {
		t.Fatalf("branches: %v", err)
	}
	if len(branches) != 2 || branches[0] != "feature" || branches[1] != "master" {
		t.Fatalf("expected sorted [feature master], got %v", branches)
	}
	if g.CurrentBranch() != "feature" {
		t.Fatalf("expected feature checked out, got %q", g.CurrentBranch())
	}

	if err := g.CheckoutBranch("master"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if g.CurrentBranch() != "master" {
		t.Fatalf("expected master checked out, got %q", g.CurrentBranch())
	}

	if err := g.CheckoutBranch("missing"); err == nil {
		t.Fatalf("expected error for unknown branch")
	}
}

func TestRemoteBranchesEmptyWithoutRemote(t *testing.T) {
	g := initRepoFixture(t)
	commitFile(t, g, "a.txt", "one\n", "add a")

	names, err := g.RemoteBranches()
	if err != nil {
		t.Fatalf("remote branches: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no remote branches, got %v", names)
	}
}

func TestLogNewestFirst(t *testing.T) {
	g := initRepoFixture(t)
	commitFile(t, g, "a.txt", "one\n", "first commit")
	commitFile(t, g, "a.txt", "two\n", "second commit\n\nwith a body")

	log, err := g.Log(10)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(log))
	}
	if log[0].Message != "second commit" {
		t.Fatalf("expected subject line only, got %q", log[0].Message)
	}
	if log[1].Message != "first commit" {
		t.Fatalf("expected oldest last, got %q", log[1].Message)
	}
	if len(log[0].ShortID) != 7 {
		t.Fatalf("expected 7-char short id, got %q", log[0].ShortID)
	}
	if log[0].Author != "Tester" {
		t.Fatalf("expected author from config, got %q", log[0].Author)
	}

	capped, err := g.Log(1)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if len(capped) != 1 {
		t.Fatalf("expected log capped at 1, got %d", len(capped))
	}
}

func TestCommitChanges(t *testing.T) {
	g := initRepoFixture(t)
	commitFile(t, g, "a.txt", "one\n", "first")

	if err := os.WriteFile(filepath.Join(g.path, "a.txt"), []byte("two\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	commitFile(t, g, "b.txt", "new\n", "second")

	log, err := g.Log(2)
	if err != nil {
		t.Fatalf("log: %v", err)
	}

	changes, err := g.CommitChanges(log[0].ShortID)
	if err != nil {
		t.Fatalf("commit changes: %v", err)
	}
	byPath := map[string]string{}
	for _, ch := range changes {
		byPath[ch.Path] = ch.Status
	}
	if byPath["a.txt"] != "modified" || byPath["b.txt"] != "added" {
		t.Fatalf("expected a.txt modified and b.txt added, got %v", byPath)
	}

	initial, err := g.CommitChanges(log[1].ShortID)
	if err != nil {
		t.Fatalf("commit changes: %v", err)
	}
	if len(initial) != 1 || initial[0].Status != "initial" {
		t.Fatalf("expected initial marker for root commit, got %v", initial)
	}

	if _, err := g.CommitChanges("abc"); err == nil {
		t.Fatalf("expected error for too-short id")
	}
	if _, err := g.CommitChanges("0000000"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestCommitSpecificPaths(t *testing.T) {
	g := initRepoFixture(t)
	commitFile(t, g, "a.txt", "one\n", "first")

	if err := os.WriteFile(filepath.Join(g.path, "staged.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(g.path, "left.txt"), []byte("y\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := g.Commit("partial", []string{"staged.txt"}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	st, err := g.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(st.Untracked) != 1 || st.Untracked[0] != "left.txt" {
		t.Fatalf("expected left.txt still untracked, got %+v", st)
	}
}

func TestStashRoundtrip(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	g := initRepoFixture(t)
	commitFile(t, g, "a.txt", "one\n", "first")

	if err := os.WriteFile(filepath.Join(g.path, "a.txt"), []byte("dirty\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := g.Stash(); err != nil {
		t.Fatalf("stash: %v", err)
	}
	st, err := g.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.IsClean {
		t.Fatalf("expected clean worktree after stash, got %+v", st)
	}

	if err := g.StashPop(); err != nil {
		t.Fatalf("stash pop: %v", err)
	}
	st, err = g.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(st.Modified) != 1 || st.Modified[0] != "a.txt" {
		t.Fatalf("expected a.txt dirty again, got %+v", st)
	}
}

func TestStashNothingToStash(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	g := initRepoFixture(t)
	commitFile(t, g, "a.txt", "one\n", "first")

	if err := g.Stash(); err != nil {
		t.Fatalf("stash on clean tree should succeed, got %v", err)
	}
	if err := g.StashPop(); err == nil {
		t.Fatalf("expected error popping an empty stash")
	}
}

func TestShortHashAndFirstLine(t *testing.T) {
	if got := shortHash("0123456789abcdef"); got != "0123456" {
		t.Fatalf("expected 7-char hash, got %q", got)
	}
	if got := shortHash("abc"); got != "abc" {
		t.Fatalf("expected short input unchanged, got %q", got)
	}
	if got := firstLine("  subject\nbody\n"); got != "subject" {
		t.Fatalf("expected subject, got %q", got)
	}
}
