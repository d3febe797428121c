package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// RemoteSandboxBackend talks to a sandbox daemon over a WebSocket, one JSON
// frame per request and response. The daemon owns the real filesystem and
// process execution; this side only shapes requests and validates paths
// before they leave the process.
//
// Frames are serialized on a single connection, so the backend is safe for
// concurrent use but requests are processed one at a time.
type RemoteSandboxBackend struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int64

	sandboxID string
	timeout   time.Duration
}

type sandboxRequest struct {
	ID        int64  `json:"id"`
	Op        string `json:"op"`
	Path      string `json:"path,omitempty"`
	Content   string `json:"content,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Command   string `json:"command,omitempty"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

type sandboxResponse struct {
	ID        int64       `json:"id"`
	Error     string      `json:"error,omitempty"`
	Content   string      `json:"content,omitempty"`
	Output    string      `json:"output,omitempty"`
	ExitCode  int         `json:"exit_code,omitempty"`
	Truncated bool        `json:"truncated,omitempty"`
	Entries   []DirEntry  `json:"entries,omitempty"`
	Files     []string    `json:"files,omitempty"`
	Matches   []GrepMatch `json:"matches,omitempty"`
}

// RemoteSandboxConfig carries connection settings for a sandbox daemon.
type RemoteSandboxConfig struct {
	// URL is the daemon WebSocket endpoint, e.g. "ws://host:9090/sandbox".
	URL string
	// Secret signs the short-lived bearer token presented on dial.
	Secret string
	// SandboxID optionally reattaches to an existing sandbox instance.
	SandboxID string
	// RequestTimeout bounds each round trip; zero means 5 minutes.
	RequestTimeout time.Duration
}

// DialRemoteSandbox connects and authenticates to a sandbox daemon.
func DialRemoteSandbox(ctx context.Context, cfg RemoteSandboxConfig) (*RemoteSandboxBackend, error) {
	if cfg.URL == "" {
		return nil, errors.New("sandbox url required")
	}
	token, err := signSandboxToken(cfg.Secret, cfg.SandboxID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial sandbox: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &RemoteSandboxBackend{conn: conn, sandboxID: cfg.SandboxID, timeout: timeout}, nil
}

// signSandboxToken mints a short-lived HS256 token the daemon verifies with
// the shared secret. Expiry is tight because the token only guards the dial.
func signSandboxToken(secret string, sandboxID string) (string, error) {
	if secret == "" {
		return "", errors.New("sandbox secret required")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "deepagents",
		"iat": now.Unix(),
		"exp": now.Add(60 * time.Second).Unix(),
	}
	if sandboxID != "" {
		claims["sandbox_id"] = sandboxID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign sandbox token: %w", err)
	}
	return signed, nil
}

// Close shuts down the daemon connection.
func (r *RemoteSandboxBackend) Close() error {
	return r.conn.Close()
}

func (r *RemoteSandboxBackend) ID() string {
	if r.sandboxID != "" {
		return "sandbox:" + r.sandboxID
	}
	return "sandbox"
}

// roundTrip sends one frame and waits for its reply.
func (r *RemoteSandboxBackend) roundTrip(req sandboxRequest) (*sandboxResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	req.ID = r.nextID

	deadline := time.Now().Add(r.timeout)
	if req.TimeoutMS > 0 {
		// Give the daemon's own command timeout room to fire first.
		deadline = time.Now().Add(time.Duration(req.TimeoutMS)*time.Millisecond + 30*time.Second)
	}
	if err := r.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set sandbox deadline: %w", err)
	}
	if err := r.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send sandbox request: %w", err)
	}

	var resp sandboxResponse
	if err := r.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("read sandbox response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("sandbox response id mismatch: sent %d, got %d", req.ID, resp.ID)
	}
	return &resp, nil
}

func (r *RemoteSandboxBackend) Read(_ context.Context, path string) (string, error) {
	resp, err := r.roundTrip(sandboxRequest{Op: "read", Path: path})
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", remoteError(resp.Error, path)
	}
	return resp.Content, nil
}

func (r *RemoteSandboxBackend) Write(_ context.Context, path string, content string) error {
	resp, err := r.roundTrip(sandboxRequest{Op: "write", Path: path, Content: content})
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return remoteError(resp.Error, path)
	}
	return nil
}

func (r *RemoteSandboxBackend) ListDir(_ context.Context, path string) ([]DirEntry, error) {
	resp, err := r.roundTrip(sandboxRequest{Op: "ls", Path: path})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, remoteError(resp.Error, path)
	}
	return resp.Entries, nil
}

func (r *RemoteSandboxBackend) Glob(_ context.Context, pattern string, root string) ([]string, error) {
	resp, err := r.roundTrip(sandboxRequest{Op: "glob", Pattern: pattern, Path: root})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, remoteError(resp.Error, root)
	}
	return resp.Files, nil
}

func (r *RemoteSandboxBackend) Grep(_ context.Context, pattern string, root string) ([]GrepMatch, error) {
	resp, err := r.roundTrip(sandboxRequest{Op: "grep", Pattern: pattern, Path: root})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, remoteError(resp.Error, root)
	}
	return resp.Matches, nil
}

// Execute runs a command in the sandbox. The timeout rides along in the
// frame so the daemon enforces it next to the process.
func (r *RemoteSandboxBackend) Execute(_ context.Context, command string, timeout time.Duration) (ExecuteResponse, error) {
	req := sandboxRequest{Op: "exec", Command: command}
	if timeout > 0 {
		req.TimeoutMS = timeout.Milliseconds()
	}
	resp, err := r.roundTrip(req)
	if err != nil {
		return ExecuteResponse{}, err
	}
	if resp.Error != "" {
		return ExecuteResponse{}, fmt.Errorf("sandbox execute: %s", resp.Error)
	}
	return ExecuteResponse{Output: resp.Output, ExitCode: resp.ExitCode, Truncated: resp.Truncated}, nil
}

// UploadFiles writes a batch of files into the sandbox. Per-file failures
// are reported in the result, not as an error.
func (r *RemoteSandboxBackend) UploadFiles(ctx context.Context, files []FileUpload) []FileUploadResponse {
	responses := make([]FileUploadResponse, len(files))
	for i, f := range files {
		responses[i] = FileUploadResponse{Path: f.Path}
		if err := r.Write(ctx, f.Path, string(f.Content)); err != nil {
			responses[i].Error = err.Error()
		}
	}
	return responses
}

// DownloadFiles reads a batch of files from the sandbox.
func (r *RemoteSandboxBackend) DownloadFiles(ctx context.Context, paths []string) []FileDownloadResponse {
	responses := make([]FileDownloadResponse, len(paths))
	for i, p := range paths {
		content, err := r.Read(ctx, p)
		responses[i] = FileDownloadResponse{Path: p}
		if err != nil {
			responses[i].Error = err.Error()
			continue
		}
		responses[i].Content = []byte(content)
	}
	return responses
}

// remoteError maps daemon error strings onto the shared sentinels so
// callers handle remote and local backends uniformly.
func remoteError(code string, path string) error {
	switch code {
	case "file_not_found":
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case "is_directory":
		return fmt.Errorf("%w: %s", ErrIsDirectory, path)
	default:
		return fmt.Errorf("sandbox error for %s: %s", path, code)
	}
}
