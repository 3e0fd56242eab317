// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"context"
	"encoding/json"
	"io/fs"
	"time"
)

// Entry is the post-extraction record of one archive member.
type Entry struct {
	// Path is the entry path relative to the destination, after component
	// stripping.
	Path string `json:"path"`

	// Size is the number of bytes actually written for regular files.
	Size int64 `json:"size"`

	// Mode holds the applied permission bits.
	Mode fs.FileMode `json:"mode"`

	// IsDir reports whether the entry is a directory.
	IsDir bool `json:"is_dir"`

	// IsSymlink reports whether the entry is a symlink.
	IsSymlink bool `json:"is_symlink"`

	// IsHardlink reports whether the entry is a hard link to another
	// entry of the same archive.
	IsHardlink bool `json:"is_hardlink,omitempty"`

	// LinkTarget is the link target, for symlink and hard link entries.
	LinkTarget string `json:"link_target,omitempty"`
}

// Report aggregates the result of one extraction. It is produced once,
// returned to the caller and read-only thereafter.
type Report struct {
	// Format is the detected archive type, e.g. "tar.gz" or "zip".
	Format string `json:"format"`

	// EntryCount is the number of materialized entries.
	EntryCount int64 `json:"entry_count"`

	// TotalBytes is the sum of bytes actually written for regular files.
	// Declared sizes from the archive are not trusted.
	TotalBytes int64 `json:"total_bytes"`

	// InputSize is the number of input bytes consumed.
	InputSize int64 `json:"input_size"`

	// Duration is the time the extraction took.
	Duration time.Duration `json:"duration"`

	// Entries lists all materialized entries in archive order.
	Entries []Entry `json:"entries"`
}

// String returns a JSON representation of the [Report].
func (r Report) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// ReportHook is a function type that consumes the extraction [Report]
// once extraction has finished, which can be used to submit the report to
// a telemetry service, for example. It is invoked on failed extractions
// as well, with whatever was recorded before the failure.
type ReportHook func(context.Context, *Report)

// add appends a materialized entry and updates the aggregate counters.
func (r *Report) add(e Entry) {
	r.Entries = append(r.Entries, e)
	r.EntryCount++
	r.TotalBytes += e.Size
}
