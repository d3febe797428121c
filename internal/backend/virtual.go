package backend

import (
	"path"
	"sort"
	"strings"
	"time"
)

// Helpers shared by backends that store files as a flat map of virtual
// paths (StateBackend, StoreBackend). Directories exist only implicitly as
// key prefixes.

// globKeys returns the paths whose location relative to root matches
// pattern, most recently modified first. "*" never crosses a "/" while "**"
// spans any number of segments. A root that fails validation yields no
// matches rather than an error, so a bad search path degrades to an empty
// result.
func globKeys(modTimes map[string]time.Time, pattern string, root string) []string {
	validated, err := ValidatePath(root)
	if err != nil {
		return nil
	}

	type match struct {
		path string
		mod  time.Time
	}
	var matches []match
	for p, mod := range modTimes {
		rel, ok := relativeTo(p, validated)
		if !ok {
			continue
		}
		if globMatch(pattern, rel) {
			matches = append(matches, match{path: p, mod: mod})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].mod.Equal(matches[j].mod) {
			return matches[i].mod.After(matches[j].mod)
		}
		return matches[i].path < matches[j].path
	})

	result := make([]string, 0, len(matches))
	for _, m := range matches {
		result = append(result, m.path)
	}
	return result
}

// relativeTo returns p relative to the directory root, or false when p is
// not under root.
func relativeTo(p string, root string) (string, bool) {
	if root == "/" {
		return strings.TrimPrefix(p, "/"), true
	}
	trimmed := strings.TrimSuffix(root, "/")
	if !strings.HasPrefix(p, trimmed+"/") {
		return "", false
	}
	return p[len(trimmed)+1:], true
}

// globMatch matches a slash-separated relative path against a glob pattern
// with "**" support.
func globMatch(pattern string, rel string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pattern []string, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}
	if pattern[0] == "**" {
		// "**" absorbs zero or more leading segments.
		if matchSegments(pattern[1:], segments) {
			return true
		}
		return len(segments) > 0 && matchSegments(pattern, segments[1:])
	}
	if len(segments) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], segments[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], segments[1:])
}

// sortGrepMatches orders matches by file then line for stable output.
func sortGrepMatches(matches []GrepMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].File != matches[j].File {
			return matches[i].File < matches[j].File
		}
		return matches[i].Line < matches[j].Line
	})
}

// listKeyDir derives a directory listing from a flat path->size map.
// Sub-directories appear once with size zero.
func listKeyDir(sizes map[string]int64, dir string) []DirEntry {
	trimmed := strings.TrimSuffix(dir, "/")
	if trimmed == "" {
		trimmed = "/"
	}

	seen := map[string]DirEntry{}
	for p, size := range sizes {
		rel, ok := relativeTo(p, trimmed)
		if !ok || rel == "" {
			continue
		}
		name, _, nested := strings.Cut(rel, "/")
		if nested {
			if _, exists := seen[name]; !exists {
				seen[name] = DirEntry{Name: name, Type: "dir"}
			}
			continue
		}
		seen[name] = DirEntry{Name: name, Type: "file", Size: size}
	}

	entries := make([]DirEntry, 0, len(seen))
	for _, entry := range seen {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}
