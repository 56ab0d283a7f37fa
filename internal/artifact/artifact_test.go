package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paperforge/internal/report"
)

func testThread(version int) *Node {
	now := time.Now().UTC()
	return &Node{
		ID:        "thread-1",
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
		Data:      Payload{Type: NodeThread},
		Children: []*Node{
			{
				ID:       "message-1",
				Version:  1,
				Data:     Payload{Type: NodeMessage},
				Children: []*Node{},
			},
		},
	}
}

func progressNode(version int, steps ...string) *Node {
	payload, _ := json.Marshal(map[string][]string{"steps": steps})
	return &Node{
		ID:      "progress-task123",
		Version: version,
		Data:    Payload{Type: NodeProgress, Data: payload},
	}
}

func TestMergeInsertThenReplaceBumpsVersion(t *testing.T) {
	now := time.Now().UTC()
	root := testThread(5)

	merged, ok := MergeChild(root, "message-1", progressNode(1, "step one"), now)
	require.True(t, ok)
	require.Equal(t, 6, merged.Version)
	require.Len(t, merged.FindChild("message-1").Children, 1)

	merged2, ok := MergeChild(merged, "message-1", progressNode(2, "step one", "step two"), now)
	require.True(t, ok)
	require.Equal(t, 7, merged2.Version)
	require.Len(t, merged2.FindChild("message-1").Children, 1)
	require.Equal(t, 2, merged2.FindChild("message-1").Children[0].Version)
}

func TestMergeReplacesAtSamePosition(t *testing.T) {
	now := time.Now().UTC()
	root := testThread(1)
	msg := root.FindChild("message-1")
	msg.Children = []*Node{
		{ID: "report-a", Version: 1},
		{ID: "report-b", Version: 4},
		{ID: "report-c", Version: 2},
	}

	merged, ok := MergeChild(root, "message-1", &Node{ID: "report-b", Version: 5}, now)
	require.True(t, ok)
	children := merged.FindChild("message-1").Children
	require.Len(t, children, 3)
	require.Equal(t, "report-b", children[1].ID)
	require.Equal(t, 5, children[1].Version)
	// Sibling versions stay untouched.
	require.Equal(t, 1, children[0].Version)
	require.Equal(t, 2, children[2].Version)
}

func TestMergeMissingMessageReturnsTreeUnchanged(t *testing.T) {
	root := testThread(5)
	merged, ok := MergeChild(root, "message-absent", progressNode(1, "x"), time.Now())
	require.False(t, ok)
	require.Same(t, root, merged)
	require.Equal(t, 5, merged.Version)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	root := testThread(5)
	merged, ok := MergeChild(root, "message-1", progressNode(1, "x"), time.Now())
	require.True(t, ok)
	require.NotSame(t, root, merged)
	require.Equal(t, 5, root.Version)
	require.Empty(t, root.FindChild("message-1").Children)
}

func TestStoreReadFailsClosedOnMissingFile(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = store.Read("no-such-thread")
	require.Error(t, err)
}

func TestStoreWriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)

	require.True(t, store.Write("thread-1", testThread(1)))
	got, err := store.Read("thread-1")
	require.NoError(t, err)
	require.Equal(t, "thread-1", got.ID)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".tmp_"), "leftover temp file %s", e.Name())
	}
	require.Equal(t, filepath.Join(dir, "thread-1.json"), store.Path("thread-1"))
}

func TestProgressWriterVersionsAndSteps(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.True(t, store.Write("thread-1", testThread(5)))

	w := NewProgressWriter(store, "thread-1", "message-1", "task123")
	require.True(t, w.AddStep("Extracting quotes"))
	require.True(t, w.AddStep("Planning sections"))
	require.Equal(t, 2, w.Version())

	root, err := store.Read("thread-1")
	require.NoError(t, err)
	require.Equal(t, 7, root.Version)
	node := root.FindChild("message-1").FindChild("progress-task123")
	require.NotNil(t, node)
	require.Equal(t, 2, node.Version)
	require.Equal(t, NodeProgress, node.Data.Type)

	var payload progressPayload
	require.NoError(t, json.Unmarshal(node.Data.Data, &payload))
	require.Equal(t, []string{"Extracting quotes", "Planning sections"}, payload.Steps)
}

func TestReportWriterMergesReportNode(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.True(t, store.Write("thread-1", testThread(1)))

	w := NewReportWriter(store, "thread-1", "message-1", "task123")
	rep := &report.GeneratedReport{Title: "My Report"}
	require.True(t, w.WriteReport(rep))

	root, err := store.Read("thread-1")
	require.NoError(t, err)
	node := root.FindChild("message-1").FindChild("report-task123")
	require.NotNil(t, node)
	require.Equal(t, NodeReport, node.Data.Type)

	var got report.GeneratedReport
	require.NoError(t, json.Unmarshal(node.Data.Data, &got))
	require.Equal(t, "My Report", got.Title)
}

func TestWriterSkipsWhenMessageMissing(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.True(t, store.Write("thread-1", testThread(1)))

	w := NewProgressWriter(store, "thread-1", "message-absent", "task123")
	require.False(t, w.AddStep("step"))

	root, err := store.Read("thread-1")
	require.NoError(t, err)
	require.Equal(t, 1, root.Version)
}
