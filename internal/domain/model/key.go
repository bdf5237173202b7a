package model

import "strconv"

// KeyKind names which identifier field a CommentKey was derived from.
type KeyKind string

const (
	KeyKindThread  KeyKind = "thread"
	KeyKindNode    KeyKind = "node"
	KeyKindComment KeyKind = "comment"
)

// CommentKey is the normalized deduplication key for a comment.
type CommentKey struct {
	Kind  KeyKind
	Value string
}

// Key derives the identifying key for the comment, trying thread_id first,
// then node_id, then the numeric comment_id. Returns false when none is set,
// in which case the comment cannot be deduplicated or resolved remotely.
func (c Comment) Key() (CommentKey, bool) {
	switch {
	case c.ThreadID != "":
		return CommentKey{Kind: KeyKindThread, Value: c.ThreadID}, true
	case c.NodeID != "":
		return CommentKey{Kind: KeyKindNode, Value: c.NodeID}, true
	case c.CommentID != 0:
		return CommentKey{Kind: KeyKindComment, Value: strconv.FormatInt(c.CommentID, 10)}, true
	default:
		return CommentKey{}, false
	}
}
