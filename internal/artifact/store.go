package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"paperforge/internal/util"
)

// Store reads and writes thread artifact files under one directory, one JSON
// file per thread.
type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) Path(threadID string) string {
	return filepath.Join(s.dir, threadID+".json")
}

// Read loads the artifact tree for a thread. A missing file is an error, not
// an empty tree: progress and report writers must never invent a thread.
func (s *Store) Read(threadID string) (*Node, error) {
	raw, err := os.ReadFile(s.Path(threadID))
	if err != nil {
		return nil, fmt.Errorf("reading thread artifact %s: %w", threadID, err)
	}
	var root Node
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("parsing thread artifact %s: %w", threadID, err)
	}
	return &root, nil
}

// Write persists the tree via temp-file-plus-rename. Failure is reported as
// false rather than an error so progress streaming never crashes a pipeline
// over a transient I/O problem.
func (s *Store) Write(threadID string, root *Node) bool {
	if err := util.WriteJSONAtomic(s.Path(threadID), root); err != nil {
		s.logger.Error("writing thread artifact failed",
			zap.String("thread_id", threadID), zap.Error(err))
		return false
	}
	return true
}
