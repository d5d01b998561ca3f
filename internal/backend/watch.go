package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// tokenDebounce coalesces the burst of events editors produce on save.
const tokenDebounce = 250 * time.Millisecond

// ReadTokenFile returns the trimmed contents of a token file.
func ReadTokenFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// WatchTokenFile loads the token at path into creds and keeps it in sync
// until ctx is done. The parent directory is watched because most editors
// replace files rather than write them in place.
func WatchTokenFile(ctx context.Context, path string, creds *Credentials, log logrus.FieldLogger) error {
	path = filepath.Clean(path)

	token, err := ReadTokenFile(path)
	if err != nil {
		return err
	}
	creds.Set(token)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating token watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	reload := func() {
		token, err := ReadTokenFile(path)
		if err != nil {
			log.WithError(err).Warn("token file reload failed")
			return
		}
		if token == "" {
			return
		}
		creds.Set(token)
		log.WithField("path", path).Info("token reloaded")
	}

	go func() {
		defer w.Close()

		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		defer func() {
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(tokenDebounce, reload)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("token watcher error")
			}
		}
	}()

	return nil
}
