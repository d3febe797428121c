package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultExecuteTimeout bounds commands that do not request their own
// timeout.
const DefaultExecuteTimeout = 120 * time.Second

// defaultMaxOutputBytes caps combined command output.
const defaultMaxOutputBytes = 100_000

// timeoutExitCode mirrors the exit code of timeout(1).
const timeoutExitCode = 124

// LocalShellBackend stores files on the host filesystem under a workdir and
// executes commands with "sh -c" in that workdir. Virtual paths map onto the
// workdir, so "/src/main.go" lives at <workdir>/src/main.go.
type LocalShellBackend struct {
	workdir        string
	defaultTimeout time.Duration
	maxOutputBytes int
	inheritEnv     bool
}

// LocalShellOption configures a LocalShellBackend.
type LocalShellOption func(*LocalShellBackend)

// WithExecuteTimeout overrides the default per-command timeout. The value
// must be positive; NewLocalShell rejects the backend otherwise.
func WithExecuteTimeout(timeout time.Duration) LocalShellOption {
	return func(b *LocalShellBackend) { b.defaultTimeout = timeout }
}

// WithMaxOutputBytes overrides the output truncation limit.
func WithMaxOutputBytes(limit int) LocalShellOption {
	return func(b *LocalShellBackend) { b.maxOutputBytes = limit }
}

// WithInheritEnv controls whether commands see the parent environment.
func WithInheritEnv(inherit bool) LocalShellOption {
	return func(b *LocalShellBackend) { b.inheritEnv = inherit }
}

// NewLocalShell builds a local backend rooted at workdir, creating it when
// missing.
func NewLocalShell(workdir string, opts ...LocalShellOption) (*LocalShellBackend, error) {
	if workdir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workdir: %w", err)
		}
		workdir = cwd
	}
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("resolve workdir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}

	b := &LocalShellBackend{
		workdir:        abs,
		defaultTimeout: DefaultExecuteTimeout,
		maxOutputBytes: defaultMaxOutputBytes,
		inheritEnv:     true,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.defaultTimeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	return b, nil
}

func (b *LocalShellBackend) ID() string {
	return "local-shell"
}

// Workdir returns the host directory backing the virtual root.
func (b *LocalShellBackend) Workdir() string {
	return b.workdir
}

// hostPath maps a validated virtual path onto the workdir.
func (b *LocalShellBackend) hostPath(path string) (string, error) {
	validated, err := ValidatePath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workdir, filepath.FromSlash(strings.TrimPrefix(validated, "/"))), nil
}

// virtualPath maps a host path under the workdir back to its virtual form.
func (b *LocalShellBackend) virtualPath(host string) string {
	rel, err := filepath.Rel(b.workdir, host)
	if err != nil {
		return filepath.ToSlash(host)
	}
	if rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

func (b *LocalShellBackend) Read(_ context.Context, path string) (string, error) {
	host, err := b.hostPath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(host)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			if info, statErr := os.Stat(host); statErr == nil && info.IsDir() {
				return "", fmt.Errorf("%w: %s", ErrIsDirectory, path)
			}
		}
		return "", err
	}
	return string(data), nil
}

// Write stores content atomically: a rename from a temp file in the same
// directory so readers never observe a partial write.
func (b *LocalShellBackend) Write(_ context.Context, path string, content string) error {
	host, err := b.hostPath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".deepagents-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.WriteString(content)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("write file: %w", writeErr)
		}
		return fmt.Errorf("write file: %w", closeErr)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpName, host); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func (b *LocalShellBackend) ListDir(_ context.Context, path string) ([]DirEntry, error) {
	host, err := b.hostPath(path)
	if err != nil {
		return nil, err
	}
	items, err := os.ReadDir(host)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	entries := make([]DirEntry, 0, len(items))
	for _, item := range items {
		info, err := item.Info()
		if err != nil {
			continue
		}
		kind := "file"
		if item.IsDir() {
			kind = "dir"
		} else if info.Mode()&os.ModeSymlink != 0 {
			kind = "symlink"
		}
		entries = append(entries, DirEntry{Name: item.Name(), Type: kind, Size: info.Size()})
	}
	return entries, nil
}

func (b *LocalShellBackend) Glob(_ context.Context, pattern string, root string) ([]string, error) {
	host, err := b.hostPath(root)
	if err != nil {
		// A bad search path yields no matches, matching the virtual backends.
		return nil, nil
	}
	modTimes := map[string]time.Time{}
	walkErr := filepath.WalkDir(host, func(p string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		modTimes[b.virtualPath(p)] = info.ModTime()
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return globKeys(modTimes, pattern, b.virtualPath(host)), nil
}

func (b *LocalShellBackend) Grep(_ context.Context, pattern string, root string) ([]GrepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile grep pattern: %w", err)
	}
	host, err := b.hostPath(root)
	if err != nil {
		return nil, err
	}

	var matches []GrepMatch
	walkErr := filepath.WalkDir(host, func(p string, entry os.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		// Skip binary files rather than emitting garbage matches.
		if strings.ContainsRune(string(data), 0) {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				matches = append(matches, GrepMatch{File: b.virtualPath(p), Line: i + 1, Text: line})
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	sortGrepMatches(matches)
	return matches, nil
}

// Execute runs command via "sh -c" in the workdir. A zero timeout applies
// the backend default; a negative timeout is rejected. Timeouts surface as
// exit code 124 with guidance the agent can act on rather than as errors.
func (b *LocalShellBackend) Execute(ctx context.Context, command string, timeout time.Duration) (ExecuteResponse, error) {
	if strings.TrimSpace(command) == "" {
		return ExecuteResponse{}, errors.New("command must be a non-empty string")
	}
	if timeout < 0 {
		return ExecuteResponse{}, errors.New("timeout must be positive")
	}

	effective := b.defaultTimeout
	custom := timeout > 0
	if custom {
		effective = timeout
	}

	execCtx, cancel := context.WithTimeout(ctx, effective)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = b.workdir
	if b.inheritEnv {
		cmd.Env = os.Environ()
	} else {
		cmd.Env = []string{"PATH=/usr/local/bin:/usr/bin:/bin"}
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		return ExecuteResponse{
			Output:   b.timeoutMessage(effective, custom),
			ExitCode: timeoutExitCode,
		}, nil
	}

	return b.buildResponse(stdout.String(), stderr.String(), runErr), nil
}

// timeoutMessage explains a timeout to the agent. The default-timeout
// variant points at the timeout parameter so the model retries with a
// longer one; the custom variant reports the value that was used.
func (b *LocalShellBackend) timeoutMessage(effective time.Duration, custom bool) string {
	seconds := effective.Seconds()
	if custom {
		return fmt.Sprintf(
			"Command timed out after the custom timeout of %.0f seconds; the command may be stuck.",
			seconds,
		)
	}
	return fmt.Sprintf(
		"Command timed out after %.0f seconds. For long-running commands, pass a larger timeout parameter.",
		seconds,
	)
}

// buildResponse folds streams and exit status into a single response.
func (b *LocalShellBackend) buildResponse(stdout string, stderr string, runErr error) ExecuteResponse {
	var parts []string
	if stdout != "" {
		parts = append(parts, stdout)
	}
	if stderr != "" {
		for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
			parts = append(parts, "[stderr] "+line)
		}
	}

	output := "<no output>"
	if len(parts) > 0 {
		output = strings.Join(parts, "\n")
	}

	truncated := false
	if len(output) > b.maxOutputBytes {
		output = output[:b.maxOutputBytes]
		output += fmt.Sprintf("\n\n... Output truncated at %d bytes.", b.maxOutputBytes)
		truncated = true
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return ExecuteResponse{
				Output:   "Error executing command: " + runErr.Error(),
				ExitCode: 1,
			}
		}
	}

	if exitCode != 0 {
		output = strings.TrimRight(output, "\n") + fmt.Sprintf("\n\nExit code: %d", exitCode)
	}

	return ExecuteResponse{Output: output, ExitCode: exitCode, Truncated: truncated}
}
