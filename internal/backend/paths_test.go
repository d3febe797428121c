package backend

import (
	"errors"
	"strings"
	"testing"

	"github.com/deepagents/deepagents/internal/testutil"
)

func TestValidatePathNormalization(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "relative becomes absolute", input: "foo/bar", want: "/foo/bar"},
		{name: "absolute unchanged", input: "/workspace/file.txt", want: "/workspace/file.txt"},
		{name: "dot and double slash collapsed", input: "/./foo//bar", want: "/foo/bar"},
		{name: "backslashes normalized", input: "foo\\bar\\baz", want: "/foo/bar/baz"},
		{name: "mixed separators", input: "foo/bar\\baz/qux", want: "/foo/bar/baz/qux"},
		{name: "root stays root", input: "/", want: "/"},
		{name: "dot maps to slash dot", input: ".", want: "/."},
		{name: "empty maps to slash dot", input: "", want: "/."},
		{name: "dots inside filename allowed", input: "foo..bar.txt", want: "/foo..bar.txt"},
		{name: "dots inside dir name allowed", input: "backup..2024/data.csv", want: "/backup..2024/data.csv"},
		{name: "version-like dots allowed", input: "v2..0/release", want: "/v2..0/release"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidatePath(tc.input)
			testutil.RequireNoError(t, err, "validate "+tc.input)
			testutil.RequireEqual(t, got, tc.want, "normalized path")
		})
	}
}

func TestValidatePathRejections(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "leading traversal", input: "../etc/passwd", reason: "Path traversal not allowed"},
		{name: "nested traversal", input: "foo/../../etc", reason: "Path traversal not allowed"},
		{name: "single traversal component", input: "foo/../etc/passwd", reason: "Path traversal not allowed"},
		{name: "traversal that would escape root", input: "/workspace/../../../etc/shadow", reason: "Path traversal not allowed"},
		{name: "tilde home", input: "~/secret.txt", reason: "Path traversal not allowed"},
		{name: "bare tilde", input: "~", reason: "Path traversal not allowed"},
		{name: "windows backslash drive", input: "C:\\Users\\file.txt", reason: "Windows absolute paths are not supported"},
		{name: "windows forward drive", input: "D:/data/file.txt", reason: "Windows absolute paths are not supported"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidatePath(tc.input)
			testutil.RequireErrorContains(t, err, tc.reason, "rejection reason")

			var invalid *InvalidPathError
			testutil.RequireTrue(t, errors.As(err, &invalid), "error kind is InvalidPathError")
			testutil.RequireEqual(t, invalid.Path, tc.input, "error records the raw input")
		})
	}
}

func TestValidatePathIdempotent(t *testing.T) {
	inputs := []string{"foo/bar", "/workspace/file.txt", "foo\\bar\\baz", "/", "a/b/c.txt"}
	for _, input := range inputs {
		once, err := ValidatePath(input)
		testutil.RequireNoError(t, err, "first pass")
		twice, err := ValidatePath(once)
		testutil.RequireNoError(t, err, "second pass")
		testutil.RequireEqual(t, twice, once, "re-validating a validated path")
	}
}

func TestValidatePathNoBackslashesInOutput(t *testing.T) {
	inputs := []string{"foo\\bar", "a\\b\\c\\d", "mixed/path\\here"}
	for _, input := range inputs {
		got, err := ValidatePath(input)
		testutil.RequireNoError(t, err, "validate "+input)
		testutil.RequireTrue(t, !strings.Contains(got, "\\"), "no backslash in "+got)
	}
}

func TestValidatePathAllowedPrefixes(t *testing.T) {
	got, err := ValidatePath("/workspace/file.txt", "/workspace/")
	testutil.RequireNoError(t, err, "path under prefix")
	testutil.RequireEqual(t, got, "/workspace/file.txt", "path unchanged")

	_, err = ValidatePath("/etc/passwd", "/workspace/")
	testutil.RequireErrorContains(t, err, "Path must start with one of", "outside prefix")

	// Prefix matching requires a directory boundary, not a string prefix.
	_, err = ValidatePath("/workspace-evil/file", "/workspace/")
	testutil.RequireErrorContains(t, err, "Path must start with one of", "sibling directory")

	// The prefix itself is allowed.
	got, err = ValidatePath("/workspace", "/workspace/")
	testutil.RequireNoError(t, err, "prefix itself")
	testutil.RequireEqual(t, got, "/workspace", "prefix root path")

	// Multiple prefixes: any one admits the path.
	got, err = ValidatePath("/memories/notes.md", "/workspace/", "/memories/")
	testutil.RequireNoError(t, err, "second prefix admits path")
	testutil.RequireEqual(t, got, "/memories/notes.md", "path unchanged")
}
