package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"doorbell-uploader/config"

	"github.com/fsnotify/fsnotify"
	"github.com/romana/rlog"
)

var errStillChanging = errors.New(`file is continuously changing`)

// Handler uploads one snapshot
type Handler func(ctx context.Context, fileName string) error

// Watcher reacts to new snapshots written to a single file
type Watcher struct {
	fileName string
	settings config.Watch
	handle   Handler
	fsw      *fsnotify.Watcher

	// modification time and size of the last snapshot handed to handle
	lastMod  time.Time
	lastSize int64
}

// New watches the directory of fileName. The watch is active once New returns.
func New(fileName string, settings config.Watch, handle Handler) (*Watcher, error) {

	fileName = filepath.Clean(fileName)
	watchDir := filepath.Dir(fileName)
	if !directoryExists(watchDir) {
		return nil, fmt.Errorf(`snapshot directory %s does not exist`, watchDir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf(`error creating watcher, because: %w`, err)
	}

	if err := fsw.Add(watchDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf(`error adding watch directory, because: %w`, err)
	}
	rlog.Infof(`Will watch %s for new snapshots`, fileName)

	return &Watcher{
		fileName: fileName,
		settings: settings,
		handle:   handle,
		fsw:      fsw,
	}, nil
}

// Start handles snapshots until ctx is done or too many uploads failed in a row
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()

	errCounter := 0
	rlog.Info(`Successfully started. Waiting for new snapshots ...`)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.fileName || !(event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				continue
			}

			handled, err := w.handleNewFile(ctx)
			if !handled {
				if err != nil {
					rlog.Info(err)
				}
				continue
			}
			if err == nil {
				errCounter = 0
				continue
			}

			errCounter++
			rlog.Errorf(`Snapshot upload failed (%d in a row), because: %v`, errCounter, err)
			if w.settings.ShutDownAfterXerrors > 0 && errCounter >= w.settings.ShutDownAfterXerrors {
				return fmt.Errorf(`too many errors occurred. Giving up after %d failed uploads`, errCounter)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			rlog.Errorf(`File watcher problem: %v`, err)
		}
	}
}

// handleNewFile waits for the snapshot to be complete and hands it over once.
// handled is false if the snapshot was skipped.
func (w *Watcher) handleNewFile(ctx context.Context) (handled bool, err error) {

	retryCount := 0
	for !w.isFileComplete(ctx) {
		if _, err := os.Stat(w.fileName); err != nil {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, nil
		}
		if retryCount >= w.settings.MaxPollRetries {
			return false, fmt.Errorf(`snapshot %s: %w and will be ignored now`, w.fileName, errStillChanging)
		}
		retryCount++
	}

	info, err := os.Stat(w.fileName)
	if err != nil {
		return false, nil
	}

	// one capture causes several write events
	if info.ModTime().Equal(w.lastMod) && info.Size() == w.lastSize {
		rlog.Debugf(`Snapshot %s was already uploaded`, w.fileName)
		return false, nil
	}
	w.lastMod, w.lastSize = info.ModTime(), info.Size()

	rlog.Infof(`Snapshot %s seems to be complete`, w.fileName)
	return true, w.handle(ctx, w.fileName)
}

// isFileComplete checks that the file size did not change for one interval
func (w *Watcher) isFileComplete(ctx context.Context) bool {
	before, err := os.Stat(w.fileName)
	if err != nil {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.settings.FileChangeInterval):
	}

	after, err := os.Stat(w.fileName)
	if err != nil {
		return false
	}

	return before.Size() == after.Size()
}

func directoryExists(dirPath string) bool {
	info, err := os.Stat(dirPath)
	if err != nil {
		if !os.IsNotExist(err) {
			rlog.Error(err)
		}
		return false
	}

	return info.IsDir()
}
