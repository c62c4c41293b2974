package manifest

// Recording layout
//
// Every data directory holds two sub-directories:
//
//   source/    raw recordings, one "<name>.wav" per take
//   segments/  segmentation files for those takes, "<name>.v<N>.srt"
//
// A take can be segmented several times. The highest version number wins,
// except that a hand-curated "<name>.MANUAL.srt" always wins. Takes without
// any segmentation are left out, and directories missing either
// sub-directory are skipped.

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	SourceDir   = "source"
	SegmentsDir = "segments"

	segmentExt   = ".srt"
	manualSuffix = ".MANUAL.srt"
)

// Entry pairs a recording with the segmentation file chosen for it.
type Entry struct {
	Source   string
	Segments string
}

// Manifest maps source recordings to their segmentation files.
type Manifest struct {
	entries []Entry
	index   map[string]int
}

// Build scans directories on fsys and matches recordings to segmentations.
func Build(fsys afero.Fs, directories []string) (*Manifest, error) {
	m := &Manifest{index: make(map[string]int)}

	for _, directory := range directories {
		sourceDir := filepath.Join(directory, SourceDir)
		segmentsDir := filepath.Join(directory, SegmentsDir)

		ok, err := bothExist(fsys, sourceDir, segmentsDir)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		sources, err := listFiles(fsys, sourceDir, ".wav")
		if err != nil {
			return nil, err
		}
		segmentations, err := listFiles(fsys, segmentsDir, segmentExt)
		if err != nil {
			return nil, err
		}

		for _, source := range sources {
			key := strings.TrimSuffix(source, filepath.Ext(source))
			chosen, found := ResolveSegmentation(key, segmentations)
			if !found {
				continue
			}
			m.add(Entry{
				Source:   filepath.Join(sourceDir, source),
				Segments: filepath.Join(segmentsDir, chosen),
			})
		}
	}

	sort.Slice(m.entries, func(i, j int) bool { return m.entries[i].Source < m.entries[j].Source })
	for i, e := range m.entries {
		m.index[e.Source] = i
	}
	return m, nil
}

func (m *Manifest) add(e Entry) {
	if _, dup := m.index[e.Source]; dup {
		return
	}
	m.index[e.Source] = len(m.entries)
	m.entries = append(m.entries, e)
}

// Entries returns the matched pairs ordered by source path.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Manifest) Len() int { return len(m.entries) }

// Lookup returns the segmentation file chosen for source.
func (m *Manifest) Lookup(source string) (string, bool) {
	i, ok := m.index[source]
	if !ok {
		return "", false
	}
	return m.entries[i].Segments, true
}

// ResolveSegmentation picks the segmentation for a recording named key out of
// candidates (bare file names). A ".MANUAL.srt" file wins outright, otherwise
// the highest ".v<N>" version wins. Files whose version cannot be parsed rank
// below every numbered version.
func ResolveSegmentation(key string, candidates []string) (string, bool) {
	best := ""
	bestVersion := -2
	for _, name := range candidates {
		if !strings.HasPrefix(name, key+".") || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		if name == key+manualSuffix {
			return name, true
		}
		version := parseVersion(key, name)
		if version > bestVersion {
			best, bestVersion = name, version
		}
	}
	return best, best != ""
}

func parseVersion(key, name string) int {
	raw := strings.TrimSuffix(strings.TrimPrefix(name, key+".v"), segmentExt)
	version, err := strconv.Atoi(raw)
	if err != nil || version < 0 {
		return -1
	}
	return version
}

func bothExist(fsys afero.Fs, dirs ...string) (bool, error) {
	for _, dir := range dirs {
		ok, err := afero.DirExists(fsys, dir)
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", dir, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func listFiles(fsys afero.Fs, dir, ext string) ([]string, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(info.Name()), ext) {
			names = append(names, info.Name())
		}
	}
	return names, nil
}
