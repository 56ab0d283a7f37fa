package watcher

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"paperforge/internal/artifact"
	"paperforge/internal/util"
)

// Trigger describes one thread artifact that is ready for report generation:
// a THREAD with a MESSAGE child that has no SQA_REPORT yet.
type Trigger struct {
	Path      string
	ThreadID  string
	MessageID string
	Query     string
}

// Handler processes one trigger. It is called from the watcher's event loop,
// so long-running work should be handed off (e.g. started as a workflow).
type Handler func(ctx context.Context, trig Trigger)

// Watcher monitors the artifact directory and fires the handler for every
// thread artifact awaiting a report. Temp files from atomic writes are
// ignored, and each artifact file is processed at most once.
type Watcher struct {
	dir     string
	handler Handler
	logger  *zap.Logger
	fsw     *fsnotify.Watcher

	// Settle is how long to wait after an event before reading the file,
	// giving slow writers time to finish.
	Settle time.Duration

	mu        sync.Mutex
	processed map[string]bool
	inflight  map[string]bool
}

func New(dir string, handler Handler, logger *zap.Logger) (*Watcher, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		dir:       dir,
		handler:   handler,
		logger:    logger,
		fsw:       fsw,
		Settle:    100 * time.Millisecond,
		processed: make(map[string]bool),
		inflight:  make(map[string]bool),
	}, nil
}

// Run pumps filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching for thread artifacts", zap.String("dir", w.dir))
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".tmp_") {
		return
	}

	w.mu.Lock()
	if w.processed[event.Name] || w.inflight[event.Name] {
		w.mu.Unlock()
		return
	}
	w.inflight[event.Name] = true
	w.mu.Unlock()

	go w.process(ctx, event.Name)
}

func (w *Watcher) process(ctx context.Context, path string) {
	defer func() {
		w.mu.Lock()
		delete(w.inflight, path)
		w.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.Settle):
	}

	trig, ok, err := inspect(path)
	if err != nil {
		w.logger.Warn("could not inspect artifact", zap.String("path", path), zap.Error(err))
		return
	}
	if !ok {
		w.logger.Debug("artifact not processable", zap.String("path", path))
		return
	}

	w.mu.Lock()
	w.processed[path] = true
	w.mu.Unlock()

	w.logger.Info("thread artifact ready for processing",
		zap.String("thread_id", trig.ThreadID),
		zap.String("message_id", trig.MessageID))
	w.handler(ctx, trig)
}

// messageContent is the MESSAGE payload shape the UI writes.
type messageContent struct {
	Content string `json:"content"`
}

// inspect decides whether an artifact file needs a report: it must be a
// THREAD whose first MESSAGE child carries content and has no SQA_REPORT
// child yet.
func inspect(path string) (Trigger, bool, error) {
	store, err := artifact.NewStore(filepath.Dir(path), nil)
	if err != nil {
		return Trigger{}, false, err
	}
	threadID := strings.TrimSuffix(filepath.Base(path), ".json")
	root, err := store.Read(threadID)
	if err != nil {
		return Trigger{}, false, err
	}
	if root.Data.Type != artifact.NodeThread {
		return Trigger{}, false, nil
	}
	for _, child := range root.Children {
		if child.Data.Type != artifact.NodeMessage {
			continue
		}
		for _, grandchild := range child.Children {
			if grandchild.Data.Type == artifact.NodeReport {
				return Trigger{}, false, nil
			}
		}
		var content messageContent
		if child.Data.Data != nil {
			if err := json.Unmarshal(child.Data.Data, &content); err != nil {
				return Trigger{}, false, err
			}
		}
		if content.Content == "" {
			return Trigger{}, false, nil
		}
		return Trigger{
			Path:      path,
			ThreadID:  threadID,
			MessageID: child.ID,
			Query:     content.Content,
		}, true, nil
	}
	return Trigger{}, false, nil
}
