package model

// Source identifies the origin of a review comment.
type Source string

const (
	SourceHuman      Source = "human"
	SourceQodo       Source = "qodo"
	SourceCoderabbit Source = "coderabbit"
)

// IsBot reports whether the source is an AI reviewer rather than a person.
func (s Source) IsBot() bool {
	return s == SourceQodo || s == SourceCoderabbit
}

// Priority is the triage priority assigned to a comment from its body text.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Status tracks a comment through the fetch → decide → post → store lifecycle.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAddressed    Status = "addressed"
	StatusNotAddressed Status = "not_addressed"
	StatusSkipped      Status = "skipped"
	StatusFailed       Status = "failed"
)

// IsDismissed reports whether the status means the comment was never acted on.
// Dismissed comments feed the auto-skip index for future reviews.
func (s Status) IsDismissed() bool {
	return s == StatusNotAddressed || s == StatusSkipped
}
