package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch invalidates the cache whenever git adds, moves or prunes a
// worktree under one of roots. Roots without a .git directory are skipped.
// The watcher runs until ctx is cancelled.
func (r *Resolver) Watch(ctx context.Context, roots []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating worktree watcher: %w", err)
	}

	watched := 0
	for _, root := range roots {
		for _, dir := range watchDirs(root) {
			if err := watcher.Add(dir); err != nil {
				r.logger.Debug("cannot watch directory", zap.String("dir", dir), zap.Error(err))
				continue
			}
			watched++
		}
	}
	if watched == 0 {
		_ = watcher.Close()
		return nil
	}

	r.logger.Debug("watching worktree metadata", zap.Int("dirs", watched))
	go r.watchLoop(ctx, watcher)
	return nil
}

func (r *Resolver) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !worktreeEvent(event) {
				continue
			}
			r.Invalidate()
			if event.Op&fsnotify.Create != 0 && filepath.Base(event.Name) == "worktrees" {
				// First linked worktree: git just created the directory.
				_ = watcher.Add(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("worktree watcher error", zap.Error(err))
		}
	}
}

// worktreeEvent filters out the steady churn of .git (index, HEAD, refs)
// and keeps changes to the worktrees directory and its entries.
func worktreeEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Base(event.Name) == "worktrees" ||
		filepath.Base(filepath.Dir(event.Name)) == "worktrees"
}

// watchDirs returns the git metadata directories whose changes signal a
// worktree add or removal. A root whose .git is a file (itself a linked
// worktree) has nothing to watch.
func watchDirs(root string) []string {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}
	dirs := []string{gitDir}
	worktrees := filepath.Join(gitDir, "worktrees")
	if info, err := os.Stat(worktrees); err == nil && info.IsDir() {
		dirs = append(dirs, worktrees)
	}
	return dirs
}
