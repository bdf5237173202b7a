package model

import "fmt"

// SourceStats aggregates comment outcomes for one source.
type SourceStats struct {
	Source       Source `json:"source"`
	Total        int    `json:"total"`
	Addressed    int    `json:"addressed"`
	NotAddressed int    `json:"not_addressed"`
	Skipped      int    `json:"skipped"`
}

// AddressedRate formats addressed/total as a percentage, "0%" when empty.
func (s SourceStats) AddressedRate() string {
	return addressedRate(s.Addressed, s.Total)
}

// ReviewerStats aggregates comment outcomes for one comment author.
type ReviewerStats struct {
	Author       string `json:"author"`
	Total        int    `json:"total"`
	Addressed    int    `json:"addressed"`
	NotAddressed int    `json:"not_addressed"`
	Skipped      int    `json:"skipped"`
}

// AddressedRate formats addressed/total as a percentage, "0%" when empty.
func (s ReviewerStats) AddressedRate() string {
	return addressedRate(s.Addressed, s.Total)
}

func addressedRate(addressed, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(addressed)/float64(total)*100)
}

// DuplicatePattern is a cluster of historical dismissed comments within one
// path that keep recurring across reviews.
type DuplicatePattern struct {
	Path        string `json:"path"`
	Occurrences int    `json:"occurrences"`
	// Example is the body of the cluster's first member.
	Example string `json:"example"`
	// Reason is the most frequent dismissal reason within the cluster.
	Reason string `json:"reason,omitempty"`
}
