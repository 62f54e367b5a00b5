// Package workspace keeps the in-memory view of the active project
// consistent with the gateway across overlapping operations.
package workspace

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/logging"
	"github.com/lewtec/imgreader/internal/metrics"
)

// ErrNoProject is returned by operations that need an active project.
var ErrNoProject = errors.New("no project is open")

// Options configures a Workspace
type Options struct {
	Notifier Notifier
	// APIKey is handed to the gateway on every evaluation call.
	APIKey string
}

type state struct {
	project     string
	settings    domain.ProjectSettings
	previews    []domain.ImagePreview
	folders     []string
	evaluations map[string]domain.Evaluation
	selection   Selection
	focused     *string
	selected    string
	full        *domain.ImageFull

	evaluating   bool
	previewLoads int
	loadingFull  bool
}

func emptyState() state {
	return state{
		previews:    []domain.ImagePreview{},
		folders:     []string{},
		evaluations: map[string]domain.Evaluation{},
		selection:   NewSelection(),
	}
}

// Workspace owns the state of the active project. All methods are safe
// for concurrent use; gateway calls run without the lock held.
type Workspace struct {
	mu      sync.RWMutex
	st      state
	epoch   uint64
	tokens  *tokens
	apiKey  string
	gateway domain.Gateway
	notes   Notifier
	events  *broadcaster
	log     *zap.Logger
}

// New creates an empty workspace over a gateway
func New(gateway domain.Gateway, opts Options) *Workspace {
	notes := opts.Notifier
	if notes == nil {
		notes = logNotifier{}
	}
	return &Workspace{
		st:      emptyState(),
		tokens:  newTokens(),
		apiKey:  opts.APIKey,
		gateway: gateway,
		notes:   notes,
		events:  newBroadcaster(),
		log:     logging.Named("workspace"),
	}
}

// Snapshot is a copy of the workspace state. Thumbnail and image bytes are
// shared with the workspace and must not be modified.
type Snapshot struct {
	Project         string
	Settings        domain.ProjectSettings
	Previews        []domain.ImagePreview
	Folders         []string
	Evaluations     map[string]domain.Evaluation
	Selection       Selection
	FocusedFolder   *string
	SelectedImage   string
	FullImage       *domain.ImageFull
	Evaluating      bool
	LoadingPreviews bool
	LoadingFull     bool
}

// Snapshot returns a copy of the current state
func (w *Workspace) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	previews := make([]domain.ImagePreview, len(w.st.previews))
	copy(previews, w.st.previews)
	folders := make([]string, len(w.st.folders))
	copy(folders, w.st.folders)
	evaluations := make(map[string]domain.Evaluation, len(w.st.evaluations))
	for k, v := range w.st.evaluations {
		evaluations[k] = v
	}
	var focused *string
	if w.st.focused != nil {
		f := *w.st.focused
		focused = &f
	}
	var full *domain.ImageFull
	if w.st.full != nil {
		f := *w.st.full
		full = &f
	}
	return Snapshot{
		Project:         w.st.project,
		Settings:        w.st.settings,
		Previews:        previews,
		Folders:         folders,
		Evaluations:     evaluations,
		Selection:       w.st.selection.clone(),
		FocusedFolder:   focused,
		SelectedImage:   w.st.selected,
		FullImage:       full,
		Evaluating:      w.st.evaluating,
		LoadingPreviews: w.st.previewLoads > 0,
		LoadingFull:     w.st.loadingFull,
	}
}

// Hierarchy projects the snapshot previews onto its folders
func (s Snapshot) Hierarchy() Hierarchy {
	return BuildHierarchy(s.Previews, s.Folders)
}

// EvaluationList returns the evaluations sorted by image name
func (s Snapshot) EvaluationList() []domain.Evaluation {
	list := make([]domain.Evaluation, 0, len(s.Evaluations))
	for _, e := range s.Evaluations {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ImageName < list[j].ImageName })
	return list
}

// Subscribe returns a channel of change events. Events are dropped when
// the channel is full.
func (w *Workspace) Subscribe() <-chan Event {
	return w.events.subscribe()
}

// Unsubscribe stops and closes a subscription
func (w *Workspace) Unsubscribe(ch <-chan Event) {
	w.events.unsubscribe(ch)
}

// SetAPIKey replaces the key used for evaluation calls
func (w *Workspace) SetAPIKey(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.apiKey = key
}

// Reset closes the active project and drops every in-flight result.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Workspace) resetLocked() {
	w.st = emptyState()
	w.epoch++
	w.tokens.invalidate()
	w.publishLocked(EventProject)
}

// CreateProject creates a project through the gateway and opens it.
func (w *Workspace) CreateProject(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		w.skip("create_project", Notice{Level: LevelInfo, Message: "Project name cannot be empty"})
		return nil
	}
	if _, err := w.gateway.CreateProject(ctx, name); err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to create project", Detail: err.Error()})
		return err
	}
	return w.Open(ctx, name)
}

// Open makes name the active project and loads its folders, previews,
// evaluations and settings. A failed load is reported and leaves the
// collection empty; the project stays open.
func (w *Workspace) Open(ctx context.Context, name string) error {
	started := time.Now()
	if err := w.gateway.RecordOpened(ctx, name); err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to open project", Detail: err.Error()})
		metrics.RecordOperation("open", err, time.Since(started))
		return err
	}

	w.mu.Lock()
	w.resetLocked()
	w.st.project = name
	w.mu.Unlock()

	errs := []error{w.LoadFolders(ctx), w.LoadPreviews(ctx), w.LoadEvaluations(ctx), w.loadSettings(ctx)}
	err := errors.Join(errs...)
	metrics.RecordOperation("open", err, time.Since(started))
	w.log.Info("project opened", zap.String("project", name), zap.Duration("elapsed", time.Since(started)))
	return err
}

// LoadPreviews replaces the preview list with the gateway's.
func (w *Workspace) LoadPreviews(ctx context.Context) error {
	w.mu.Lock()
	project := w.st.project
	if project == "" {
		w.mu.Unlock()
		return ErrNoProject
	}
	tok, epoch := w.tokens.next(collectionPreviews), w.epoch
	w.st.previewLoads++
	w.publishLocked(EventBusy)
	w.mu.Unlock()

	previews, err := w.gateway.ListPreviews(ctx, project)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch == epoch {
		w.st.previewLoads--
		w.publishLocked(EventBusy)
	}
	if !w.tokens.current(collectionPreviews, tok) {
		metrics.RecordStaleResult(string(collectionPreviews))
		return nil
	}
	if err != nil {
		w.notifyLocked(Notice{Level: LevelError, Message: "Failed to load image previews", Detail: err.Error()})
		return err
	}
	if previews == nil {
		previews = []domain.ImagePreview{}
	}
	w.st.previews = previews
	w.pruneLocked()
	w.publishLocked(EventPreviews)
	return nil
}

// LoadEvaluations replaces the evaluation map with the gateway's.
func (w *Workspace) LoadEvaluations(ctx context.Context) error {
	w.mu.Lock()
	project := w.st.project
	if project == "" {
		w.mu.Unlock()
		return ErrNoProject
	}
	tok := w.tokens.next(collectionEvaluations)
	w.mu.Unlock()

	evaluations, err := w.gateway.ListEvaluations(ctx, project)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.tokens.current(collectionEvaluations, tok) {
		metrics.RecordStaleResult(string(collectionEvaluations))
		return nil
	}
	if err != nil {
		w.notifyLocked(Notice{Level: LevelError, Message: "Failed to load evaluations", Detail: err.Error()})
		return err
	}
	w.st.evaluations = evaluationMap(evaluations)
	w.publishLocked(EventEvaluations)
	return nil
}

// LoadFolders replaces the folder list with the gateway's.
func (w *Workspace) LoadFolders(ctx context.Context) error {
	w.mu.Lock()
	project := w.st.project
	if project == "" {
		w.mu.Unlock()
		return ErrNoProject
	}
	tok := w.tokens.next(collectionFolders)
	w.mu.Unlock()

	folders, err := w.gateway.ListFolders(ctx, project)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.tokens.current(collectionFolders, tok) {
		metrics.RecordStaleResult(string(collectionFolders))
		return nil
	}
	if err != nil {
		w.notifyLocked(Notice{Level: LevelError, Message: "Failed to load folders", Detail: err.Error()})
		return err
	}
	if folders == nil {
		folders = []string{}
	}
	w.st.folders = folders
	w.publishLocked(EventFolders)
	return nil
}

func (w *Workspace) loadSettings(ctx context.Context) error {
	w.mu.RLock()
	project, epoch := w.st.project, w.epoch
	w.mu.RUnlock()

	settings, err := w.gateway.GetSettings(ctx, project)
	if err != nil {
		w.log.Warn("failed to load settings", zap.String("project", project), zap.Error(err))
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch || settings == nil {
		return nil
	}
	w.st.settings = *settings
	w.publishLocked(EventSettings)
	return nil
}

// UpdateSettings stores the prompt settings of the active project.
func (w *Workspace) UpdateSettings(ctx context.Context, settings domain.ProjectSettings) error {
	w.mu.RLock()
	project, epoch := w.st.project, w.epoch
	w.mu.RUnlock()
	if project == "" {
		return ErrNoProject
	}
	if err := w.gateway.UpdateSettings(ctx, project, settings); err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to save prompt settings", Detail: err.Error()})
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch == epoch {
		w.st.settings = settings
		w.publishLocked(EventSettings)
	}
	return nil
}

// pruneLocked drops selection entries and the selected image when their
// names are no longer in the preview list.
func (w *Workspace) pruneLocked() {
	known := make(map[string]struct{}, len(w.st.previews))
	for _, p := range w.st.previews {
		known[p.Name] = struct{}{}
	}
	has := func(n string) bool { _, ok := known[n]; return ok }
	pruned := w.st.selection.Prune(has)
	if pruned.Len() != w.st.selection.Len() {
		w.st.selection = pruned
		w.publishLocked(EventSelection)
	}
	if w.st.selected != "" && !has(w.st.selected) {
		w.st.selected = ""
		w.st.full = nil
		w.publishLocked(EventFullImage)
	}
}

func evaluationMap(list []domain.Evaluation) map[string]domain.Evaluation {
	m := make(map[string]domain.Evaluation, len(list))
	for _, e := range list {
		m[e.ImageName] = e
	}
	return m
}

func (w *Workspace) publishLocked(kind EventKind) {
	w.events.publish(Event{Kind: kind})
}

func (w *Workspace) notifyLocked(n Notice) {
	w.notes.Notify(n)
	w.events.publish(Event{Kind: EventNotice, Notice: &n})
}

func (w *Workspace) notify(n Notice) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	w.notifyLocked(n)
}

// skip reports an operation that ended before reaching the gateway.
func (w *Workspace) skip(op string, n Notice) {
	metrics.RecordSkipped(op)
	w.notify(n)
}

// begin captures what an operation needs from the state.
func (w *Workspace) begin() (project string, epoch uint64, err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.st.project == "" {
		return "", 0, ErrNoProject
	}
	return w.st.project, w.epoch, nil
}
