// Package attachment stages the files a user attaches to a message before
// it is submitted.
package attachment

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/shineum/mailform/internal/notice"
)

const (
	// MaxFiles is the number of files that can be staged at once.
	MaxFiles = 5
	// MaxFileSize is the per-file limit in bytes.
	MaxFileSize = 10 * 1024 * 1024
)

var (
	ErrTooLarge = errors.New("file exceeds the 10 MB limit")
	ErrTooMany  = errors.New("only 5 files can be attached")
)

// Descriptor is the metadata shown for a staged file.
type Descriptor struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// File is a staged file with its content.
type File struct {
	Descriptor
	Content []byte `json:"content,omitempty"`
}

// Rejection explains why one file of a batch was not staged.
type Rejection struct {
	Name string
	Err  error
}

// Notice renders the rejection for the user.
func (r Rejection) Notice() notice.Notice {
	return notice.Notice{Level: notice.LevelError, Message: fmt.Sprintf("%s: %v", r.Name, r.Err)}
}

// Stage is the ordered staging list. It is not safe for concurrent use.
type Stage struct {
	files []File
}

// NewStage creates a Stage holding a copy of files.
func NewStage(files []File) *Stage {
	s := &Stage{files: make([]File, 0, len(files))}
	s.files = append(s.files, files...)
	return s
}

// Add stages files in order. Each file is checked on its own: an oversized
// file, or any file arriving once MaxFiles are staged, is rejected without
// affecting the rest of the batch.
func (s *Stage) Add(files ...File) ([]Descriptor, []Rejection) {
	var (
		accepted []Descriptor
		rejected []Rejection
	)

	for _, f := range files {
		switch {
		case f.Size > MaxFileSize:
			rejected = append(rejected, Rejection{Name: f.Name, Err: ErrTooLarge})
		case len(s.files) >= MaxFiles:
			rejected = append(rejected, Rejection{Name: f.Name, Err: ErrTooMany})
		default:
			s.files = append(s.files, f)
			accepted = append(accepted, f.Descriptor)
		}
	}

	return accepted, rejected
}

// Remove unstages the first file called name and reports whether one was
// found.
func (s *Stage) Remove(name string) bool {
	for i, f := range s.files {
		if f.Name == name {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return true
		}
	}
	return false
}

// Clear unstages every file.
func (s *Stage) Clear() {
	s.files = s.files[:0]
}

// Len returns the number of staged files.
func (s *Stage) Len() int {
	return len(s.files)
}

// Files returns a copy of the staged files.
func (s *Stage) Files() []File {
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// Descriptors returns the metadata of the staged files in order.
func (s *Stage) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f.Descriptor)
	}
	return out
}

// TotalSize is the sum of the staged file sizes.
func (s *Stage) TotalSize() int64 {
	var n int64
	for _, f := range s.files {
		n += f.Size
	}
	return n
}

// AcceptedNotice summarizes a successful batch.
func AcceptedNotice(accepted []Descriptor) notice.Notice {
	if len(accepted) == 1 {
		return notice.Success("%s attached (%s)", accepted[0].Name, humanize.IBytes(uint64(accepted[0].Size)))
	}
	var total int64
	for _, d := range accepted {
		total += d.Size
	}
	return notice.Success("%d files attached (%s)", len(accepted), humanize.IBytes(uint64(total)))
}
