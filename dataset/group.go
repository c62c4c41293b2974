package dataset

import (
	"path/filepath"
	"strings"
)

// DirectoryGroup maps labels to the data directories recorded for them.
// It is immutable once built; labels keep their first-encounter order.
type DirectoryGroup struct {
	labels []string
	dirs   map[string][]string
}

// GroupDirectories derives a label for every directory name and merges
// directories sharing a label. With a separator the label is the part of the
// name before its first occurrence, so "alice_mic1" and "alice_mic2" both
// become "alice" with separator "_mic". Directories resolve to
// root/<lowercased name>.
func GroupDirectories(root string, names []string, separator string) *DirectoryGroup {
	g := &DirectoryGroup{dirs: make(map[string][]string)}
	seen := make(map[string]struct{}, len(names))

	for _, name := range names {
		label := name
		if separator != "" {
			label, _, _ = strings.Cut(name, separator)
		}

		dir := filepath.Join(root, strings.ToLower(name))
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}

		if _, ok := g.dirs[label]; !ok {
			g.labels = append(g.labels, label)
		}
		g.dirs[label] = append(g.dirs[label], dir)
	}
	return g
}

// Labels returns every label in first-encounter order.
func (g *DirectoryGroup) Labels() []string {
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

// Directories returns the directories of label in encounter order.
func (g *DirectoryGroup) Directories(label string) []string {
	dirs := g.dirs[label]
	out := make([]string, len(dirs))
	copy(out, dirs)
	return out
}

func (g *DirectoryGroup) Has(label string) bool {
	_, ok := g.dirs[label]
	return ok
}

func (g *DirectoryGroup) Len() int { return len(g.labels) }
