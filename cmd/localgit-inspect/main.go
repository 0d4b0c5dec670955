// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Command localgit-inspect is a thin diagnostic CLI over the engine: it
// initializes (or opens) a repository at a given path, takes a backup, and
// prints the resulting commit list. It's a small tool for exercising the
// package end-to-end, not part of the engine's own contract.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/smjh/localgit"
)

func main() {
	root := flag.String("root", ".", "working root to back up")
	message := flag.String("m", "", "commit message")
	author := flag.String("author", "", "commit author")
	listCount := flag.Int("list", 10, "number of recent commits to print")
	flag.Parse()

	if err := run(*root, *message, *author, *listCount); err != nil {
		fmt.Fprintf(os.Stderr, "localgit-inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(root, message, author string, listCount int) error {
	repo, err := localgit.New(root)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	if err := repo.InitRepo(); err != nil {
		return fmt.Errorf("init repository: %w", err)
	}

	commitID, err := repo.Backup(message, author)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if commitID == 0 {
		return fmt.Errorf("backup produced no commit")
	}
	fmt.Printf("backed up commit %d\n", commitID)

	commits, err := repo.ListCommits(0, listCount)
	if err != nil {
		return fmt.Errorf("list commits: %w", err)
	}
	for _, c := range commits {
		fmt.Printf("%6d  %s  %-12s  %s\n", c.ID, c.Timestamp.Format("2006-01-02 15:04:05"), c.Author, c.Message)
	}
	return nil
}
