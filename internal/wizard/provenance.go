package wizard

import (
	"sort"
	"strings"
)

// provenance records which field paths of each step currently hold values
// produced by AI extraction rather than typed by the valuer.
type provenance map[Step]map[string]bool

func (p provenance) mark(step Step, paths ...string) {
	set, ok := p[step]
	if !ok {
		set = make(map[string]bool, len(paths))
		p[step] = set
	}
	for _, path := range paths {
		if path != "" {
			set[path] = true
		}
	}
}

func (p provenance) has(step Step, path string) bool {
	return p[step][path]
}

// unmark removes path, anything nested below it and every enclosing
// path: an object that is partly typed by the valuer is no longer AI-sourced.
func (p provenance) unmark(step Step, path string) {
	set := p[step]
	for k := range set {
		if k == path || strings.HasPrefix(k, path+".") || strings.HasPrefix(path, k+".") {
			delete(set, k)
		}
	}
	if len(set) == 0 {
		delete(p, step)
	}
}

func (p provenance) clear(step Step) { delete(p, step) }

func (p provenance) clone() provenance {
	out := make(provenance, len(p))
	for step, set := range p {
		cp := make(map[string]bool, len(set))
		for k, v := range set {
			cp[k] = v
		}
		out[step] = cp
	}
	return out
}

func (p provenance) list(step Step) []string {
	out := make([]string, 0, len(p[step]))
	for k := range p[step] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// arrays renders the sets in their persisted form: sorted path lists.
func (p provenance) arrays() map[Step][]string {
	out := make(map[Step][]string, len(p))
	for step := range p {
		if paths := p.list(step); len(paths) > 0 {
			out[step] = paths
		}
	}
	return out
}

func provenanceFromArrays(in map[Step][]string) provenance {
	p := make(provenance, len(in))
	for step, paths := range in {
		p.mark(step, paths...)
	}
	return p
}
