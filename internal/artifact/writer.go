package artifact

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"paperforge/internal/report"
)

// ReportWriter pushes SQA_REPORT nodes for one task into a thread artifact.
// It owns the node's version counter; the thread's own counter is bumped by
// the merge, independently.
type ReportWriter struct {
	store     *Store
	threadID  string
	messageID string
	nodeID    string
	version   int
	createdAt time.Time
	logger    *zap.Logger
}

func NewReportWriter(store *Store, threadID, messageID, taskID string) *ReportWriter {
	return &ReportWriter{
		store:     store,
		threadID:  threadID,
		messageID: messageID,
		nodeID:    "report-" + taskID,
		createdAt: time.Now().UTC(),
		logger:    store.logger,
	}
}

// WriteReport merges the report into the thread artifact. Failures are
// reported as false and logged; the pipeline keeps running either way.
func (w *ReportWriter) WriteReport(rep *report.GeneratedReport) bool {
	payload, err := json.Marshal(rep)
	if err != nil {
		w.logger.Error("marshaling report failed", zap.String("node_id", w.nodeID), zap.Error(err))
		return false
	}
	return w.merge(NodeReport, payload)
}

func (w *ReportWriter) merge(nodeType NodeType, payload json.RawMessage) bool {
	root, err := w.store.Read(w.threadID)
	if err != nil {
		w.logger.Error("reading thread artifact failed",
			zap.String("thread_id", w.threadID), zap.Error(err))
		return false
	}
	w.version++
	now := time.Now().UTC()
	node := &Node{
		ID:        w.nodeID,
		Version:   w.version,
		CreatedAt: w.createdAt,
		UpdatedAt: now,
		Data:      Payload{Type: nodeType, Data: payload},
		Children:  []*Node{},
	}
	merged, ok := MergeChild(root, w.messageID, node, now)
	if !ok {
		w.logger.Warn("message not found in thread artifact, skipping write",
			zap.String("thread_id", w.threadID), zap.String("message_id", w.messageID))
		return false
	}
	if !w.store.Write(w.threadID, merged) {
		return false
	}
	w.logger.Info("thread artifact updated",
		zap.String("thread_id", w.threadID),
		zap.String("node_id", w.nodeID),
		zap.Int("node_version", w.version))
	return true
}

// progressPayload is the STEP_PROGRESS node body.
type progressPayload struct {
	Steps []string `json:"steps"`
}

// ProgressWriter streams pipeline step messages into a STEP_PROGRESS node.
// Each AddStep rewrites the full step list; consumers always see a complete
// node, never an incremental diff.
type ProgressWriter struct {
	inner *ReportWriter
	steps []string
}

func NewProgressWriter(store *Store, threadID, messageID, taskID string) *ProgressWriter {
	w := NewReportWriter(store, threadID, messageID, taskID)
	w.nodeID = "progress-" + taskID
	return &ProgressWriter{inner: w}
}

// AddStep appends one step message and pushes the updated node. Fire and
// forget: the boolean is informational.
func (w *ProgressWriter) AddStep(step string) bool {
	w.steps = append(w.steps, step)
	payload, err := json.Marshal(progressPayload{Steps: append([]string(nil), w.steps...)})
	if err != nil {
		w.inner.logger.Error("marshaling progress failed", zap.Error(err))
		return false
	}
	return w.inner.merge(NodeProgress, payload)
}

// Version returns the progress node's current version counter.
func (w *ProgressWriter) Version() int {
	return w.inner.version
}
