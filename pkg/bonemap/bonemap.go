// Package bonemap parses bone-mapping specifications and resolves them
// against a pair of skeletons. Two textual forms are accepted: a YAML
// map of sourceName to targetName, and a line-oriented form with one
// "source -> target" pair per line ("→" and "=" also separate). Entries
// that fail to resolve are reported, never fatal.
package bonemap

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mocapkit/retarget/pkg/skeleton"
)

// ErrInvalidFormat reports a mapping specification that could not be
// parsed in either accepted form.
var ErrInvalidFormat = errors.New("invalid bone mapping format")

// ErrEmptyMapping reports that no entry resolved on both skeletons.
var ErrEmptyMapping = errors.New("empty bone mapping")

// Entry is one parsed source→target name pair, before resolution.
type Entry struct {
	Source string
	Target string
}

// Pair is one resolved joint correspondence.
type Pair struct {
	Source      string
	Target      string
	SourceIndex int
	TargetIndex int
}

// Unresolved records an entry that was dropped during resolution.
type Unresolved struct {
	Name   string
	Side   string // "source" or "target"
	Reason string
}

// Mapping is an ordered, immutable source→target joint correspondence.
type Mapping struct {
	pairs []Pair
}

// Pairs returns the resolved pairs in specification order.
func (m *Mapping) Pairs() []Pair {
	return m.pairs
}

// Len returns the number of resolved pairs.
func (m *Mapping) Len() int {
	return len(m.pairs)
}

// TargetFor returns the target joint name mapped from a source joint.
func (m *Mapping) TargetFor(source string) (string, bool) {
	for _, p := range m.pairs {
		if p.Source == source {
			return p.Target, true
		}
	}
	return "", false
}

// SourceFor returns the source joint name mapped to a target joint.
func (m *Mapping) SourceFor(target string) (string, bool) {
	for _, p := range m.pairs {
		if p.Target == target {
			return p.Source, true
		}
	}
	return "", false
}

// lineSeparators in priority order. "->" must be tried before "=" so a
// name containing "=" is not split early, and the arrow wins when both
// appear.
var lineSeparators = []string{"->", "→", "="}

// Parse parses a mapping specification in either accepted form,
// preserving entry order.
func Parse(data []byte) ([]Entry, error) {
	if entries, ok := parseYAMLMap(data); ok {
		return entries, nil
	}
	entries, err := parseLines(string(data))
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// parseYAMLMap tries the structured form. Order is taken from the
// document, not a Go map, so the specification order survives.
func parseYAMLMap(data []byte) ([]Entry, bool) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	if len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, false
	}
	m := doc.Content[0]
	entries := make([]Entry, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
			return nil, false
		}
		entries = append(entries, Entry{
			Source: strings.TrimSpace(key.Value),
			Target: strings.TrimSpace(val.Value),
		})
	}
	return entries, true
}

// parseLines parses the line-oriented form. Blank lines and lines
// starting with '#' are skipped.
func parseLines(text string) ([]Entry, error) {
	var entries []Entry
	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, ok := splitLine(line)
		if !ok {
			return nil, fmt.Errorf("%w: line %d: %q", ErrInvalidFormat, lineNo+1, line)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func splitLine(line string) (Entry, bool) {
	for _, sep := range lineSeparators {
		idx := strings.Index(line, sep)
		if idx < 0 {
			continue
		}
		src := strings.TrimSpace(line[:idx])
		tgt := strings.TrimSpace(line[idx+len(sep):])
		if src == "" || tgt == "" {
			return Entry{}, false
		}
		return Entry{Source: src, Target: tgt}, true
	}
	return Entry{}, false
}

// Resolve matches parsed entries against the two skeletons. Entries
// whose source or target name is missing, or that reuse a name an
// earlier entry already claimed on the same side, are returned as
// Unresolved and excluded. ErrEmptyMapping is returned when nothing
// resolves.
func Resolve(entries []Entry, source, target *skeleton.Skeleton) (*Mapping, []Unresolved, error) {
	var (
		pairs   []Pair
		dropped []Unresolved
	)
	seenSrc := make(map[string]bool, len(entries))
	seenTgt := make(map[string]bool, len(entries))
	for _, e := range entries {
		srcIdx, srcOK := source.Index(e.Source)
		tgtIdx, tgtOK := target.Index(e.Target)
		if !srcOK {
			dropped = append(dropped, Unresolved{
				Name:   e.Source,
				Side:   "source",
				Reason: fmt.Sprintf("joint %q not found in skeleton %q", e.Source, source.Name()),
			})
		}
		if !tgtOK {
			dropped = append(dropped, Unresolved{
				Name:   e.Target,
				Side:   "target",
				Reason: fmt.Sprintf("joint %q not found in skeleton %q", e.Target, target.Name()),
			})
		}
		if !srcOK || !tgtOK {
			continue
		}
		// Joint names stay unique on each side; the first entry wins.
		if seenSrc[e.Source] {
			dropped = append(dropped, Unresolved{
				Name:   e.Source,
				Side:   "source",
				Reason: fmt.Sprintf("joint %q already mapped by an earlier entry", e.Source),
			})
			continue
		}
		if seenTgt[e.Target] {
			dropped = append(dropped, Unresolved{
				Name:   e.Target,
				Side:   "target",
				Reason: fmt.Sprintf("joint %q already mapped by an earlier entry", e.Target),
			})
			continue
		}
		seenSrc[e.Source] = true
		seenTgt[e.Target] = true
		pairs = append(pairs, Pair{
			Source:      e.Source,
			Target:      e.Target,
			SourceIndex: srcIdx,
			TargetIndex: tgtIdx,
		})
	}
	if len(pairs) == 0 {
		return nil, dropped, fmt.Errorf("%w: %d entries, none resolved", ErrEmptyMapping, len(entries))
	}
	return &Mapping{pairs: pairs}, dropped, nil
}
