package model

// Comment is a single review remark moving through the workflow. Identifier
// fields are optional individually, but at least one of ThreadID, NodeID, or
// CommentID must be present for the comment to be actionable.
type Comment struct {
	ThreadID    string        `json:"thread_id,omitempty"`
	NodeID      string        `json:"node_id,omitempty"`
	CommentID   int64         `json:"comment_id,omitempty"`
	Author      string        `json:"author,omitempty"`
	Path        string        `json:"path,omitempty"`
	Line        int           `json:"line,omitempty"`
	Body        string        `json:"body"`
	Source      Source        `json:"source,omitempty"`
	Priority    Priority      `json:"priority,omitempty"`
	Status      Status        `json:"status,omitempty"`
	Reply       string        `json:"reply,omitempty"`
	SkipReason  string        `json:"skip_reason,omitempty"`
	AutoSkipped bool          `json:"auto_skipped,omitempty"`
	PostedAt    string        `json:"posted_at,omitempty"`
	ResolvedAt  string        `json:"resolved_at,omitempty"`
	Replies     []ThreadReply `json:"replies,omitempty"`
}

// ThreadReply is a follow-up comment within a review thread. Only the thread's
// first comment becomes a Comment; the rest are carried as replies for context.
type ThreadReply struct {
	Author string `json:"author,omitempty"`
	Body   string `json:"body"`
}
