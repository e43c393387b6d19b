// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/traitscope/msg"
	"github.com/AleutianAI/traitscope/session"
)

// artifactWatcher reports on-disk changes to a session's artifact while
// the session is live. A change means the analyzer's results describe a
// stale file; the note travels the normal dispatch path as data, and the
// user decides whether to restart the session.
type artifactWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// watchArtifact starts watching one artifact for a session.
func watchArtifact(identity string, sess *session.Session, logger *slog.Logger) (*artifactWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch set on the file itself.
	if err := fw.Add(filepath.Dir(identity)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &artifactWatcher{watcher: fw, done: make(chan struct{})}
	go w.run(identity, sess, logger)
	return w, nil
}

func (w *artifactWatcher) run(identity string, sess *session.Session, logger *slog.Logger) {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != identity {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			logger.Warn("artifact changed on disk", slog.String("op", ev.Op.String()))
			sess.Notify(msg.Diagnostic{
				Status:  msg.StatusInvalid,
				Warning: []string{"artifact changed on disk; analysis results may be stale"},
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("artifact watch error", slog.String("error", err.Error()))
		}
	}
}

// close stops the watcher. Idempotent.
func (w *artifactWatcher) close() {
	w.once.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}
