package wizard

import (
	"reflect"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/valuation-cli/internal/model"
)

// MergePolicy decides which existing values AI suggestions may replace.
type MergePolicy int

const (
	// OverwriteIfEmpty only fills fields the valuer has left blank.
	OverwriteIfEmpty MergePolicy = iota
	// OverwriteAll replaces every suggested field.
	OverwriteAll
)

// ApplyAISuggestions writes suggested values (keyed by dot path) into the
// step's section and flags every changed path as AI-populated. Empty
// suggestions are ignored. It returns the applied paths, sorted.
func (s *Store) ApplyAISuggestions(step Step, suggestions map[string]any, policy MergePolicy) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	section, ok := s.catalog.SectionFor(step)
	if !ok {
		return nil, eris.Errorf("wizard: unknown step %q", step)
	}

	paths := make([]string, 0, len(suggestions))
	for p := range suggestions {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	sec := s.data.Section(section).Clone()
	if sec == nil {
		sec = model.Section{}
	}
	applied := make([]string, 0, len(paths))
	for _, path := range paths {
		value := suggestions[path]
		if path == "" || model.IsEmptyValue(value) {
			continue
		}
		cur, exists := sec.Get(path)
		if exists && policy == OverwriteIfEmpty && !model.IsEmptyValue(cur) {
			continue
		}
		if exists && reflect.DeepEqual(cur, value) {
			continue
		}
		sec.Set(path, value)
		applied = append(applied, path)
	}
	if len(applied) == 0 {
		return applied, nil
	}

	s.data.Sections[section] = sec
	s.deriveLocked(section)
	s.ai.mark(step, applied...)
	s.commitLocked(section)
	return applied, nil
}

// DeclineAISuggestions removes every AI-populated value of step and clears
// its provenance set. The change is undoable. It returns the removed paths.
func (s *Store) DeclineAISuggestions(step Step) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	section, ok := s.catalog.SectionFor(step)
	if !ok {
		return nil
	}
	paths := s.ai.list(step)
	if len(paths) == 0 {
		return paths
	}
	if sec := s.data.Section(section); sec != nil {
		for _, p := range paths {
			sec.Delete(p)
		}
	}
	s.deriveLocked(section)
	s.ai.clear(step)
	s.commitLocked(section)
	return paths
}
