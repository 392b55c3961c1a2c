// Package svoerr defines the error taxonomy shared by every stage of the
// voxelization, build, persistence and render pipeline.
package svoerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// IoError wraps a failure reading or writing a path on disk.
type IoError struct {
	Path  string
	Cause error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error on %q: %v", e.Path, e.Cause)
}

func (e *IoError) Unwrap() error { return e.Cause }

// NewIoError wraps cause with the path that failed.
func NewIoError(path string, cause error) error {
	return errors.WithStack(&IoError{Path: path, Cause: cause})
}

// InvalidPly reports a structurally broken or unsupported PLY mesh.
type InvalidPly struct {
	Reason string
}

func (e *InvalidPly) Error() string {
	return fmt.Sprintf("invalid ply mesh: %s", e.Reason)
}

// NewInvalidPly constructs an InvalidPly with a formatted reason.
func NewInvalidPly(format string, args ...interface{}) error {
	return errors.WithStack(&InvalidPly{Reason: fmt.Sprintf(format, args...)})
}

// OutOfBudget reports that the cache byte budget is too small to hold even
// the smallest required working set (one cache block plus its pyramids).
type OutOfBudget struct {
	SmallestRequired uint64
}

func (e *OutOfBudget) Error() string {
	return fmt.Sprintf("cache budget too small: need at least %d bytes", e.SmallestRequired)
}

// NewOutOfBudget constructs an OutOfBudget error.
func NewOutOfBudget(smallestRequired uint64) error {
	return errors.WithStack(&OutOfBudget{SmallestRequired: smallestRequired})
}

// TaskPanic wraps a panic value recovered from a worker goroutine.
type TaskPanic struct {
	Inner error
}

func (e *TaskPanic) Error() string {
	return fmt.Sprintf("worker task panicked: %v", e.Inner)
}

func (e *TaskPanic) Unwrap() error { return e.Inner }

// NewTaskPanic wraps a recovered panic value r.
func NewTaskPanic(r interface{}) error {
	return errors.WithStack(&TaskPanic{Inner: errors.Errorf("%v", r)})
}

// InvalidIndex reports an out-of-range index passed to the chunked
// allocator's deferred Insert.
type InvalidIndex struct {
	Idx  int
	Size int
}

func (e *InvalidIndex) Error() string {
	return fmt.Sprintf("insert index %d exceeds sequence size %d", e.Idx, e.Size)
}

// NewInvalidIndex constructs an InvalidIndex for idx against a sequence of
// the given size.
func NewInvalidIndex(idx, size int) error {
	return errors.WithStack(&InvalidIndex{Idx: idx, Size: size})
}

// CorruptOctree reports a structurally invalid persisted octree file.
type CorruptOctree struct {
	Detail string
}

func (e *CorruptOctree) Error() string {
	return fmt.Sprintf("corrupt octree file: %s", e.Detail)
}

// NewCorruptOctree constructs a CorruptOctree with a formatted detail.
func NewCorruptOctree(format string, args ...interface{}) error {
	return errors.WithStack(&CorruptOctree{Detail: fmt.Sprintf(format, args...)})
}
