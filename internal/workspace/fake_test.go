package workspace

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/lewtec/imgreader/internal/domain"
)

// fakeGateway keeps one project in memory and records every call.
type fakeGateway struct {
	mu          sync.Mutex
	images      []string
	folders     []string
	evaluations map[string]domain.Evaluation
	settings    domain.ProjectSettings
	calls       []string
	evalReqs    []domain.EvaluationRequest
	evalOpts    []domain.EvaluationOptions

	// failOn makes the named call fail.
	failOn map[string]error
	// subsetOnly makes EvaluateImages return only the requested names.
	subsetOnly bool
	// hooks run before the named call returns, without the fake's lock.
	hooks map[string]func()
}

func newFakeGateway(images []string, folders []string) *fakeGateway {
	return &fakeGateway{
		images:      append([]string{}, images...),
		folders:     append([]string{}, folders...),
		evaluations: map[string]domain.Evaluation{},
		failOn:      map[string]error{},
		hooks:       map[string]func(){},
	}
}

var errBackend = errors.New("backend exploded")

func (f *fakeGateway) enter(call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.failOn[call]
	hook := f.hooks[call]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeGateway) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeGateway) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeGateway) evaluationList() []domain.Evaluation {
	list := make([]domain.Evaluation, 0, len(f.evaluations))
	for _, e := range f.evaluations {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ImageName < list[j].ImageName })
	return list
}

func (f *fakeGateway) CreateProject(ctx context.Context, name string) (*domain.Project, error) {
	if err := f.enter("CreateProject"); err != nil {
		return nil, err
	}
	return &domain.Project{Name: name}, nil
}

func (f *fakeGateway) ListProjects(ctx context.Context) ([]string, error) {
	if err := f.enter("ListProjects"); err != nil {
		return nil, err
	}
	return []string{"p"}, nil
}

func (f *fakeGateway) RecordOpened(ctx context.Context, project string) error {
	return f.enter("RecordOpened")
}

func (f *fakeGateway) GetSettings(ctx context.Context, project string) (*domain.ProjectSettings, error) {
	if err := f.enter("GetSettings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.settings
	return &s, nil
}

func (f *fakeGateway) UpdateSettings(ctx context.Context, project string, settings domain.ProjectSettings) error {
	if err := f.enter("UpdateSettings"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = settings
	return nil
}

func (f *fakeGateway) ListPreviews(ctx context.Context, project string) ([]domain.ImagePreview, error) {
	f.mu.Lock()
	previews := make([]domain.ImagePreview, len(f.images))
	for i, n := range f.images {
		previews[i] = domain.ImagePreview{Name: n, Width: 4, Height: 3}
	}
	f.mu.Unlock()
	if err := f.enter("ListPreviews"); err != nil {
		return nil, err
	}
	return previews, nil
}

func (f *fakeGateway) LoadFull(ctx context.Context, project, imageName string) (*domain.ImageFull, error) {
	if err := f.enter("LoadFull"); err != nil {
		return nil, err
	}
	return &domain.ImageFull{Name: imageName, Data: []byte(imageName)}, nil
}

func (f *fakeGateway) ImportImages(ctx context.Context, project string, paths []string, folder *string) error {
	if err := f.enter("ImportImages"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		name := p
		if folder != nil {
			name = domain.JoinName(*folder, p)
		}
		f.images = append(f.images, name)
	}
	return nil
}

func (f *fakeGateway) DeleteImages(ctx context.Context, project string, names []string) error {
	if err := f.enter("DeleteImages"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = without(f.images, names...)
	for _, n := range names {
		delete(f.evaluations, n)
	}
	return nil
}

func (f *fakeGateway) MoveImages(ctx context.Context, project string, names []string, target *string) error {
	if err := f.enter("MoveImages"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	moving := map[string]bool{}
	for _, n := range names {
		moving[n] = true
	}
	for i, n := range f.images {
		if moving[n] {
			f.images[i] = domain.Rekey(n, target)
			if e, ok := f.evaluations[n]; ok {
				delete(f.evaluations, n)
				e.ImageName = f.images[i]
				f.evaluations[e.ImageName] = e
			}
		}
	}
	return nil
}

func (f *fakeGateway) EvaluateImages(ctx context.Context, project string, req domain.EvaluationRequest, opts domain.EvaluationOptions) ([]domain.Evaluation, error) {
	if err := f.enter("EvaluateImages"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalReqs = append(f.evalReqs, req)
	f.evalOpts = append(f.evalOpts, opts)
	var subset []domain.Evaluation
	for _, n := range req.ImageNames {
		var e domain.Evaluation
		if n == "broken.jpg" {
			e = domain.Failed(n, "unreadable")
		} else {
			e = domain.Succeeded(n, domain.EvaluationResult{BriefDescription: "desc " + n})
		}
		f.evaluations[n] = e
		subset = append(subset, e)
	}
	if f.subsetOnly {
		return subset, nil
	}
	return f.evaluationList(), nil
}

func (f *fakeGateway) ListEvaluations(ctx context.Context, project string) ([]domain.Evaluation, error) {
	f.mu.Lock()
	list := f.evaluationList()
	f.mu.Unlock()
	if err := f.enter("ListEvaluations"); err != nil {
		return nil, err
	}
	return list, nil
}

func (f *fakeGateway) ExportEvaluated(ctx context.Context, project string, evaluations []domain.Evaluation, outputDir string) ([]string, error) {
	if err := f.enter("ExportEvaluated"); err != nil {
		return nil, err
	}
	return []string{}, nil
}

func (f *fakeGateway) CreateFolder(ctx context.Context, project, name string) error {
	if err := f.enter("CreateFolder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, name)
	return nil
}

func (f *fakeGateway) ListFolders(ctx context.Context, project string) ([]string, error) {
	f.mu.Lock()
	folders := append([]string{}, f.folders...)
	f.mu.Unlock()
	if err := f.enter("ListFolders"); err != nil {
		return nil, err
	}
	return folders, nil
}

func (f *fakeGateway) RenameFolder(ctx context.Context, project, oldName, newName string) error {
	if err := f.enter("RenameFolder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, folder := range f.folders {
		if folder == oldName {
			f.folders[i] = newName
		}
	}
	for i, n := range f.images {
		renamed := domain.RenameFolderPrefix(n, oldName, newName)
		if renamed == n {
			continue
		}
		f.images[i] = renamed
		if e, ok := f.evaluations[n]; ok {
			delete(f.evaluations, n)
			e.ImageName = renamed
			f.evaluations[renamed] = e
		}
	}
	return nil
}

func (f *fakeGateway) DeleteFolder(ctx context.Context, project, name string) error {
	if err := f.enter("DeleteFolder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = without(f.folders, name)
	var kept []string
	for _, n := range f.images {
		if domain.InFolder(n, name) {
			delete(f.evaluations, n)
			continue
		}
		kept = append(kept, n)
	}
	f.images = kept
	return nil
}

func without(list []string, names ...string) []string {
	drop := map[string]bool{}
	for _, n := range names {
		drop[n] = true
	}
	var kept []string
	for _, n := range list {
		if !drop[n] {
			kept = append(kept, n)
		}
	}
	return kept
}

var _ domain.Gateway = (*fakeGateway)(nil)

// noticeRecorder collects notices for assertions.
type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}
