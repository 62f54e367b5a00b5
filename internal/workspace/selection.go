package workspace

import (
	"context"
	"sort"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/logging"
	"github.com/lewtec/imgreader/internal/metrics"
)

// Selection is a set of image names plus the anchor of the last click.
// Transitions return a new value and never modify the receiver.
type Selection struct {
	names  map[string]struct{}
	anchor string
}

// NewSelection builds a selection from names with no anchor
func NewSelection(names ...string) Selection {
	s := Selection{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.names[n] = struct{}{}
	}
	return s
}

func (s Selection) clone() Selection {
	c := Selection{names: make(map[string]struct{}, len(s.names)), anchor: s.anchor}
	for n := range s.names {
		c.names[n] = struct{}{}
	}
	return c
}

// Has reports whether name is selected
func (s Selection) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of selected names
func (s Selection) Len() int { return len(s.names) }

// Anchor returns the last clicked name, "" when none
func (s Selection) Anchor() string { return s.anchor }

// Names returns the selected names sorted
func (s Selection) Names() []string {
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether both selections hold the same names and anchor
func (s Selection) Equal(other Selection) bool {
	if s.anchor != other.anchor || len(s.names) != len(other.names) {
		return false
	}
	for n := range s.names {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

// Click replaces the selection with x and anchors on it.
func (s Selection) Click(x string) Selection {
	return Selection{names: map[string]struct{}{x: {}}, anchor: x}
}

// Toggle flips the membership of x and anchors on it.
func (s Selection) Toggle(x string) Selection {
	c := s.clone()
	if c.Has(x) {
		delete(c.names, x)
	} else {
		c.names[x] = struct{}{}
	}
	c.anchor = x
	return c
}

// Range unions the inclusive span between the anchor and x in order into
// the selection. Without an anchor present in order, or with x absent,
// the selection is returned unchanged. The anchor is kept.
func (s Selection) Range(x string, order []string) Selection {
	from, to := -1, -1
	for i, n := range order {
		if n == s.anchor && from < 0 {
			from = i
		}
		if n == x && to < 0 {
			to = i
		}
	}
	if s.anchor == "" || from < 0 || to < 0 {
		return s
	}
	if from > to {
		from, to = to, from
	}
	c := s.clone()
	for _, n := range order[from : to+1] {
		c.names[n] = struct{}{}
	}
	return c
}

// Clear empties the selection and keeps the anchor
func (s Selection) Clear() Selection {
	return Selection{names: map[string]struct{}{}, anchor: s.anchor}
}

// Prune drops the names for which known returns false.
func (s Selection) Prune(known func(string) bool) Selection {
	c := Selection{names: make(map[string]struct{}, len(s.names)), anchor: s.anchor}
	for n := range s.names {
		if known(n) {
			c.names[n] = struct{}{}
		}
	}
	return c
}

// Rekey renames every selected name through fn, the anchor included
func (s Selection) Rekey(fn func(string) string) Selection {
	c := Selection{names: make(map[string]struct{}, len(s.names))}
	for n := range s.names {
		c.names[fn(n)] = struct{}{}
	}
	if s.anchor != "" {
		c.anchor = fn(s.anchor)
	}
	return c
}

// Click selects only name, clears the focused folder and loads the full
// image in the background of the call.
func (w *Workspace) Click(ctx context.Context, name string) error {
	w.mu.Lock()
	if !w.knownLocked(name) {
		w.mu.Unlock()
		return &domain.NotFoundError{Resource: "image", Name: name}
	}
	w.st.selection = w.st.selection.Click(name)
	w.st.focused = nil
	w.st.selected = name
	w.st.full = nil
	w.st.loadingFull = true
	tok := w.tokens.next(collectionFull)
	project := w.st.project
	w.publishLocked(EventSelection)
	w.mu.Unlock()

	full, err := w.gateway.LoadFull(ctx, project, name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.tokens.current(collectionFull, tok) {
		metrics.RecordStaleResult(string(collectionFull))
		return nil
	}
	w.st.loadingFull = false
	if err != nil {
		w.notifyLocked(Notice{Level: LevelError, Message: "Failed to load \"" + name + "\"", Detail: err.Error()})
		w.publishLocked(EventFullImage)
		return err
	}
	if w.st.selected == name {
		w.st.full = full
	}
	w.publishLocked(EventFullImage)
	return nil
}

// ToggleClick flips name in the selection. The focused folder and the
// selected image are left alone.
func (w *Workspace) ToggleClick(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.knownLocked(name) {
		return &domain.NotFoundError{Resource: "image", Name: name}
	}
	w.st.selection = w.st.selection.Toggle(name)
	w.publishLocked(EventSelection)
	return nil
}

// RangeClick unions the span between the anchor and name into the
// selection, following the flattened hierarchy.
func (w *Workspace) RangeClick(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.knownLocked(name) {
		return &domain.NotFoundError{Resource: "image", Name: name}
	}
	order := BuildHierarchy(w.st.previews, w.st.folders).Flatten()
	next := w.st.selection.Range(name, order)
	if next.Equal(w.st.selection) {
		logging.Debug("workspace: range click without effect",
			logging.String("anchor", w.st.selection.Anchor()), logging.String("target", name))
		return nil
	}
	w.st.selection = next
	w.publishLocked(EventSelection)
	return nil
}

// FocusFolder scopes the workspace to a folder and empties the selection.
func (w *Workspace) FocusFolder(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f := name
	w.st.focused = &f
	w.st.selection = w.st.selection.Clear()
	w.publishLocked(EventFocus)
	w.publishLocked(EventSelection)
}

// ClearFocus returns to project scope; the selection is kept.
func (w *Workspace) ClearFocus() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.st.focused = nil
	w.publishLocked(EventFocus)
}

// SelectAll selects every image of folder, or of the whole project when
// folder is nil. Like any image selection it leaves folder focus.
func (w *Workspace) SelectAll(folder *string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	var names []string
	for _, n := range BuildHierarchy(w.st.previews, w.st.folders).Flatten() {
		if folder == nil || domain.InFolder(n, *folder) {
			names = append(names, n)
		}
	}
	sel := NewSelection(names...)
	sel.anchor = w.st.selection.Anchor()
	w.st.selection = sel
	w.st.focused = nil
	w.publishLocked(EventSelection)
	w.publishLocked(EventFocus)
	return len(names)
}

// ClearSelection empties the selection
func (w *Workspace) ClearSelection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.st.selection = w.st.selection.Clear()
	w.publishLocked(EventSelection)
}

func (w *Workspace) knownLocked(name string) bool {
	for _, p := range w.st.previews {
		if p.Name == name {
			return true
		}
	}
	return false
}
