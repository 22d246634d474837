// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package git

import (
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	authorName  = "fluidflow"
	authorEmail = "noreply@fluidflow"
)

// HandleDirty checks for uncommitted changes and either commits them
// separately or returns an error, depending on Config.DirtyCommit.
func (r *Repo) HandleDirty() error {
	dirty, err := r.IsDirty()
	if err != nil {
		return err
	}

	if !dirty {
		return nil
	}

	if !r.cfg.DirtyCommit {
		return ErrDirtyWorkTree
	}

	// Commit all dirty files as a pre-edit commit.
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	if _, err := wt.Add("."); err != nil {
		return fmt.Errorf("staging dirty files: %w", err)
	}

	_, err = wt.Commit(dirtyCommitMsg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("committing dirty files: %w", err)
	}

	return nil
}

// AutoCommit stages the specified files and creates a commit with the
// generated message and Co-Authored-By trailer.
func (r *Repo) AutoCommit(modifiedFiles []string, prompt string) error {
	if !r.cfg.AutoCommit {
		return nil
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	// Stage only the files the engine touched.
	for _, f := range modifiedFiles {
		if _, err := wt.Add(f); err != nil {
			return fmt.Errorf("staging %s: %w", f, err)
		}
	}

	msg := GenerateMessage(prompt, modifiedFiles)

	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	return nil
}

// Undo reverts the last commit if it was made by fluidflow (identified by
// the Co-Authored-By trailer). Uses git reset --soft HEAD~1 to preserve
// changes in the working tree.
func (r *Repo) Undo() error {
	ours, err := r.IsFluidflowCommit()
	if err != nil {
		return err
	}
	if !ours {
		return ErrNotFluidflowCommit
	}

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("getting HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("getting commit: %w", err)
	}

	if commit.NumParents() == 0 {
		return fmt.Errorf("cannot undo: HEAD is the initial commit")
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return fmt.Errorf("getting parent commit: %w", err)
	}

	// Reset --soft to parent: moves HEAD back but keeps changes staged.
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	err = wt.Reset(&gogit.ResetOptions{
		Commit: parent.Hash,
		Mode:   gogit.SoftReset,
	})
	if err != nil {
		return fmt.Errorf("resetting to parent: %w", err)
	}

	return nil
}
