// Package workfile reads and writes the JSON working file that carries one
// review run's mutable state across the fetch, decide, post, and store steps.
// All writes go through a temp-file-then-rename so the file is never left
// half-written.
package workfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/myk-org/prreview/internal/domain/model"
)

// Category names for the three comment buckets, in canonical order.
const (
	CategoryHuman      = "human"
	CategoryQodo       = "qodo"
	CategoryCoderabbit = "coderabbit"
)

// Metadata identifies which PR the working file belongs to.
type Metadata struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	PRNumber int    `json:"pr_number"`
	JSONPath string `json:"json_path,omitempty"`
}

// File is the working file's full contents: metadata plus comments bucketed
// by source.
type File struct {
	Metadata   Metadata        `json:"metadata"`
	Human      []model.Comment `json:"human"`
	Qodo       []model.Comment `json:"qodo"`
	Coderabbit []model.Comment `json:"coderabbit"`
}

// Load reads and validates a working file. Comments missing a status default
// to pending, matching how the file looks right after a fetch.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read working file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse working file %s: %w", path, err)
	}

	if f.Metadata.Owner == "" || f.Metadata.Repo == "" || f.Metadata.PRNumber == 0 {
		return nil, fmt.Errorf("working file %s: metadata missing owner, repo, or pr_number", path)
	}

	for _, comments := range []([]model.Comment){f.Human, f.Qodo, f.Coderabbit} {
		for i := range comments {
			if comments[i].Status == "" {
				comments[i].Status = model.StatusPending
			}
		}
	}

	return &f, nil
}

// Save writes the file atomically: marshal to a buffer, write to a temp file,
// rename over the target. A failure leaves any existing file untouched.
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal working file: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write working file %s: %w", path, err)
	}

	return nil
}

// Bucket returns a pointer to the comment slice for the named category, or
// nil for an unknown category.
func (f *File) Bucket(category string) *[]model.Comment {
	switch category {
	case CategoryHuman:
		return &f.Human
	case CategoryQodo:
		return &f.Qodo
	case CategoryCoderabbit:
		return &f.Coderabbit
	default:
		return nil
	}
}

// Categories returns the bucket names in canonical order.
func Categories() []string {
	return []string{CategoryHuman, CategoryQodo, CategoryCoderabbit}
}

// TimestampUpdate is one pending posted_at/resolved_at write-back produced by
// the post step.
type TimestampUpdate struct {
	Category string
	Index    int
	Field    string
	Value    string
}

// ApplyUpdate validates and applies a single timestamp update in place.
// Invalid updates (unknown category, index out of range, unknown field, empty
// value) return an error without touching the file, so one bad update never
// blocks the rest of the batch.
func (f *File) ApplyUpdate(u TimestampUpdate) error {
	bucket := f.Bucket(u.Category)
	if bucket == nil {
		return fmt.Errorf("unknown category %q", u.Category)
	}

	if u.Index < 0 || u.Index >= len(*bucket) {
		return fmt.Errorf("index %d out of range for category %q (len %d)", u.Index, u.Category, len(*bucket))
	}

	if u.Value == "" {
		return fmt.Errorf("empty timestamp value for %s[%d].%s", u.Category, u.Index, u.Field)
	}

	switch u.Field {
	case "posted_at":
		(*bucket)[u.Index].PostedAt = u.Value
	case "resolved_at":
		(*bucket)[u.Index].ResolvedAt = u.Value
	default:
		return fmt.Errorf("field %q is not a timestamp field", u.Field)
	}

	return nil
}
