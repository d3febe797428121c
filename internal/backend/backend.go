// Package backend provides the storage and execution backends behind the
// agent's filesystem tools. Every operation is keyed by a virtual absolute
// path that has passed ValidatePath; backends never see raw agent input.
//
// Command execution comes in two shapes. Current backends implement
// TimeoutExecutor, whose Execute takes a per-command timeout. Backends built
// against the pre-timeout SDK implement Executor, without one. The guard in
// timeout.go bridges the two so callers never need to care which shape a
// backend was compiled with.
package backend

import (
	"context"
	"errors"
	"time"
)

// ExecuteResponse holds the result of a command execution.
type ExecuteResponse struct {
	// Output is the combined stdout/stderr text.
	Output string `json:"output"`
	// ExitCode is the process exit code; 124 marks a timeout.
	ExitCode int `json:"exit_code"`
	// Truncated reports whether Output was cut at the backend's limit.
	Truncated bool `json:"truncated"`
}

// DirEntry is a single directory listing entry.
type DirEntry struct {
	// Name is the entry name without its directory.
	Name string `json:"name"`
	// Type is "file", "dir", or "symlink".
	Type string `json:"type"`
	// Size is the content size in bytes.
	Size int64 `json:"size"`
}

// GrepMatch is a single grep hit.
type GrepMatch struct {
	// File is the validated virtual path of the matching file.
	File string `json:"file"`
	// Line is the 1-indexed line number.
	Line int `json:"line"`
	// Text is the matching line.
	Text string `json:"text"`
}

// FileUpload is a file to upload into a backend.
type FileUpload struct {
	Path    string
	Content []byte
}

// FileUploadResponse is the per-file result of a batch upload.
type FileUploadResponse struct {
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// FileDownloadResponse is the per-file result of a batch download.
type FileDownloadResponse struct {
	Path    string `json:"path"`
	Content []byte `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Backend is the filesystem capability set shared by all storage backends.
// Paths are validated virtual paths; pattern semantics match the glob and
// grep tools exposed to the agent.
type Backend interface {
	// ID identifies the backend for routing diagnostics.
	ID() string
	// Read returns the file content at path.
	Read(ctx context.Context, path string) (string, error)
	// Write stores content at path, creating parents as needed.
	Write(ctx context.Context, path string, content string) error
	// ListDir returns the entries directly under path.
	ListDir(ctx context.Context, path string) ([]DirEntry, error)
	// Glob returns paths matching pattern under root, most recently
	// modified first.
	Glob(ctx context.Context, pattern string, root string) ([]string, error)
	// Grep returns lines matching the regular expression pattern in files
	// under root.
	Grep(ctx context.Context, pattern string, root string) ([]GrepMatch, error)
}

// Executor is the legacy execute shape, predating per-command timeouts.
type Executor interface {
	Execute(ctx context.Context, command string) (ExecuteResponse, error)
}

// TimeoutExecutor is the current execute shape. A zero timeout means the
// backend applies its own default.
type TimeoutExecutor interface {
	Execute(ctx context.Context, command string, timeout time.Duration) (ExecuteResponse, error)
}

var (
	// ErrNotFound indicates the path does not exist in the backend.
	ErrNotFound = errors.New("file not found")
	// ErrIsDirectory indicates a file operation hit a directory path.
	ErrIsDirectory = errors.New("is a directory")
	// ErrExecuteUnsupported indicates the backend has no execute capability.
	ErrExecuteUnsupported = errors.New("backend does not support command execution")
)
