package ps

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction is one committed journal entry.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s, Message: %s}", transaction.Id, transaction.When, transaction.Author, transaction.Message)
}

func transactionOf(commit *object.Commit) Transaction {
	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
	}
	return Transaction{
		Id:      commit.Hash.String(),
		When:    commit.Committer.When,
		Author:  author,
		Message: strings.TrimSpace(commit.Message),
	}
}

func (j *Journal) LatestTransaction() Transaction {
	if !j.IsInitialized() {
		return Transaction{}
	}
	headRef, err := j.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := j.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}
	return transactionOf(commit)
}

// Entries lists committed entries, newest first.
func (j *Journal) Entries() ([]Transaction, error) {
	if !j.IsInitialized() {
		return nil, ErrNotInitialized
	}
	if _, err := j.repo.Head(); err != nil {
		// No commits yet
		return nil, nil
	}

	cIter, err := j.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, err
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionOf(c))
		return nil
	})
	return transactions, err
}
