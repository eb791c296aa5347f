package vault

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
	"github.com/openvault/vaultlock/internal/lock"
	"github.com/openvault/vaultlock/internal/lockfile"
)

// Watcher re-evaluates a database's lock status whenever its lock metadata
// file changes, so a UI can live-preview lock state before committing to
// open instead of polling Status in a loop.
type Watcher struct {
	coord      *lock.Coordinator
	dbPath     string
	recordPath string
	fsw        *fsnotify.Watcher
	logger     zerolog.Logger

	updates chan lock.Status
	done    chan struct{}
}

// NewWatcher starts watching the lock metadata for dbPath. The current
// status is emitted immediately so consumers need no separate initial query.
func NewWatcher(coord *lock.Coordinator, dbPath string, logger zerolog.Logger) (*Watcher, error) {
	recordPath := lockfile.PathFor(dbPath)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, vlErrors.Wrap(err, "failed to create filesystem watcher")
	}

	// Watch the directory, not the record file: the file is created and
	// removed as locks come and go, and a watch on it would die with it.
	if err := fsw.Add(filepath.Dir(recordPath)); err != nil {
		_ = fsw.Close()
		return nil, vlErrors.Wrap(err, "failed to watch lock directory")
	}

	w := &Watcher{
		coord:      coord,
		dbPath:     dbPath,
		recordPath: recordPath,
		fsw:        fsw,
		logger:     logger.With().Str("component", "lock-watcher").Logger(),
		updates:    make(chan lock.Status, 16),
		done:       make(chan struct{}),
	}

	go w.run()
	return w, nil
}

// Updates delivers lock status changes. The channel is closed when the
// watcher is closed.
func (w *Watcher) Updates() <-chan lock.Status {
	return w.updates
}

// Close stops watching and closes the updates channel.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.updates)

	w.emit()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.recordPath {
				continue
			}
			w.emit()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Str("db", w.dbPath).Msg("lock watcher error")
		}
	}
}

// emit queries the current status and delivers it, dropping the update if
// the consumer is not keeping up; a dropped intermediate state is superseded
// by the next one anyway.
func (w *Watcher) emit() {
	status, err := w.coord.Status(w.dbPath)
	if err != nil {
		w.logger.Warn().Err(err).Str("db", w.dbPath).Msg("failed to refresh lock status")
		return
	}

	select {
	case w.updates <- status:
	default:
		w.logger.Debug().Str("db", w.dbPath).Msg("dropping lock status update")
	}
}
