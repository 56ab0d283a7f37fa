package artifact

import "time"

// MergeChild applies one report/progress node under the message with the
// given id, on a deep copy of the tree. If the message exists, a child with
// the same id is replaced at its current position, otherwise the node is
// appended; either way the thread's version is incremented by exactly 1 and
// its updated timestamp refreshed. Sibling versions are never touched.
//
// This is deliberately last-write-wins: re-applying identical content still
// bumps the version and overwrites, there is no content-based change
// detection.
//
// If the message is not found the original tree is returned unchanged with
// ok=false; the caller may be racing artifact creation and decides whether
// that matters.
func MergeChild(root *Node, messageID string, child *Node, now time.Time) (*Node, bool) {
	if root == nil {
		return nil, false
	}
	if root.FindChild(messageID) == nil {
		return root, false
	}

	clone := root.Clone()
	msg := clone.FindChild(messageID)
	replaced := false
	for i, existing := range msg.Children {
		if existing.ID == child.ID {
			msg.Children[i] = child
			replaced = true
			break
		}
	}
	if !replaced {
		msg.Children = append(msg.Children, child)
	}
	clone.Version++
	clone.UpdatedAt = now
	return clone, true
}
