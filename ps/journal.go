package ps

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/nickyhof/ADOBridge/core"
)

var (
	ErrNotInitialized = errors.New("journal not initialized")
	ErrEmptyEntry     = errors.New("journal entry has no statements")
)

// Dir is the worktree directory holding one file per command.
const Dir = "journal"

// Entry is a batch of statements that succeeded together.
type Entry struct {
	Command    string
	Statements []string
}

// Journal records successful write commands as commits in a Git
// repository, one file per command.
type Journal struct {
	repo *git.Repository
	wt   billy.Filesystem
	mu   sync.Mutex
}

// IsInitialized returns true if the journal has a valid repository
func (j *Journal) IsInitialized() bool {
	return j != nil && j.repo != nil
}

func NewMemoryJournal() (*Journal, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &Journal{repo: repo, wt: wt}, nil
}

// NewFileJournal opens the journal repository in baseDir, creating it
// when it does not exist yet.
func NewFileJournal(baseDir string) (*Journal, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}

	return &Journal{repo: repo, wt: wt}, nil
}

func fileName(command string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, command)
	if name == "" {
		name = "_"
	}
	return Dir + "/" + name + ".sql"
}

// Record appends the entry's statements to the command's journal file
// and commits it as identity.
func (j *Journal) Record(identity core.Identity, entry Entry) (Transaction, error) {
	if !j.IsInitialized() {
		return Transaction{}, ErrNotInitialized
	}
	if len(entry.Statements) == 0 {
		return Transaction{}, ErrEmptyEntry
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	path := fileName(entry.Command)
	if err := j.wt.MkdirAll(Dir, 0755); err != nil {
		return Transaction{}, fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := j.wt.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	var b strings.Builder
	for _, stmt := range entry.Statements {
		b.WriteString(strings.TrimRight(strings.TrimSpace(stmt), ";"))
		b.WriteString(";\n")
	}
	if _, err := f.Write([]byte(b.String())); err != nil {
		f.Close()
		return Transaction{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return Transaction{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	wt, err := j.repo.Worktree()
	if err != nil {
		return Transaction{}, err
	}
	if _, err := wt.Add(path); err != nil {
		return Transaction{}, fmt.Errorf("failed to stage %s: %w", path, err)
	}

	message := fmt.Sprintf("%s: %d statement(s)", entry.Command, len(entry.Statements))
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  identity.Name,
			Email: identity.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit journal entry: %w", err)
	}

	commit, err := j.repo.CommitObject(hash)
	if err != nil {
		return Transaction{}, err
	}
	return transactionOf(commit), nil
}

// ReadFile returns the journal contents for a command at HEAD.
func (j *Journal) ReadFile(command string) ([]byte, error) {
	if !j.IsInitialized() {
		return nil, ErrNotInitialized
	}

	headRef, err := j.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("no commits yet")
	}
	commit, err := j.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	file, err := tree.File(fileName(command))
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}
	return []byte(content), nil
}
