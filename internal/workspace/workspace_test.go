package workspace

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lewtec/imgreader/internal/domain"
)

func openWorkspace(t *testing.T, images, folders []string) (*Workspace, *fakeGateway, *noticeRecorder) {
	t.Helper()
	gw := newFakeGateway(images, folders)
	notes := &noticeRecorder{}
	w := New(gw, Options{Notifier: notes, APIKey: "key"})
	if err := w.Open(context.Background(), "p"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	gw.resetCalls()
	return w, gw, notes
}

// once installs a hook that runs on the next call only.
func (f *fakeGateway) once(call string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[call] = func() {
		f.mu.Lock()
		delete(f.hooks, call)
		f.mu.Unlock()
		fn()
	}
}

func previewNameList(s Snapshot) []string {
	names := make([]string, len(s.Previews))
	for i, p := range s.Previews {
		names[i] = p.Name
	}
	return names
}

func strPtr(s string) *string { return &s }

var sample = []string{"a.jpg", "b.jpg", "site1/c.jpg"}

func TestWorkspace_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("loads every collection", func(t *testing.T) {
		temp := 0.3
		gw := newFakeGateway(sample, []string{"site1"})
		gw.settings = domain.ProjectSettings{Temperature: &temp}
		w := New(gw, Options{})
		if err := w.Open(ctx, "p"); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		s := w.Snapshot()
		if s.Project != "p" || len(s.Previews) != 3 || len(s.Folders) != 1 {
			t.Errorf("snapshot = %+v", s)
		}
		if s.Settings.Temperature == nil || *s.Settings.Temperature != 0.3 {
			t.Errorf("Settings = %+v", s.Settings)
		}
		if gw.count("RecordOpened") != 1 {
			t.Error("RecordOpened not called")
		}
	})

	t.Run("record failure keeps the workspace closed", func(t *testing.T) {
		gw := newFakeGateway(sample, nil)
		gw.failOn["RecordOpened"] = errBackend
		notes := &noticeRecorder{}
		w := New(gw, Options{Notifier: notes})
		if err := w.Open(ctx, "p"); !errors.Is(err, errBackend) {
			t.Fatalf("Open() error = %v", err)
		}
		if w.Snapshot().Project != "" {
			t.Error("project should not be open")
		}
		if notes.last().Level != LevelError {
			t.Errorf("notice = %+v", notes.last())
		}
	})

	t.Run("reset clears state", func(t *testing.T) {
		w, _, _ := openWorkspace(t, sample, []string{"site1"})
		w.FocusFolder("site1")
		w.Reset()
		s := w.Snapshot()
		if s.Project != "" || len(s.Previews) != 0 || s.FocusedFolder != nil {
			t.Errorf("snapshot after Reset = %+v", s)
		}
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); !errors.Is(err, ErrNoProject) {
			t.Errorf("Evaluate() after Reset error = %v", err)
		}
	})

	t.Run("create project opens it", func(t *testing.T) {
		gw := newFakeGateway(nil, nil)
		w := New(gw, Options{Notifier: &noticeRecorder{}})
		if err := w.CreateProject(ctx, "  "); err != nil {
			t.Fatalf("CreateProject() blank error = %v", err)
		}
		if gw.count("CreateProject") != 0 {
			t.Error("blank name reached the gateway")
		}
		if err := w.CreateProject(ctx, "new"); err != nil {
			t.Fatalf("CreateProject() error = %v", err)
		}
		if w.Snapshot().Project != "new" {
			t.Errorf("Project = %q", w.Snapshot().Project)
		}
	})
}

func TestWorkspace_Selection(t *testing.T) {
	ctx := context.Background()
	w, gw, _ := openWorkspace(t, []string{"a", "b", "f/c", "f/d"}, []string{"f"})

	t.Run("click selects one image, clears focus and loads it", func(t *testing.T) {
		w.FocusFolder("f")
		if err := w.Click(ctx, "b"); err != nil {
			t.Fatalf("Click() error = %v", err)
		}
		s := w.Snapshot()
		if !reflect.DeepEqual(s.Selection.Names(), []string{"b"}) || s.Selection.Anchor() != "b" {
			t.Errorf("Selection = %v anchor %q", s.Selection.Names(), s.Selection.Anchor())
		}
		if s.FocusedFolder != nil {
			t.Error("click should clear folder focus")
		}
		if s.SelectedImage != "b" || s.FullImage == nil || s.FullImage.Name != "b" {
			t.Errorf("selected = %q, full = %+v", s.SelectedImage, s.FullImage)
		}
	})

	t.Run("toggle and range do not load images", func(t *testing.T) {
		gw.resetCalls()
		if err := w.ToggleClick("a"); err != nil {
			t.Fatalf("ToggleClick() error = %v", err)
		}
		if err := w.RangeClick("f/d"); err != nil {
			t.Fatalf("RangeClick() error = %v", err)
		}
		s := w.Snapshot()
		if want := []string{"a", "b", "f/c", "f/d"}; !reflect.DeepEqual(s.Selection.Names(), want) {
			t.Errorf("Selection = %v, want %v", s.Selection.Names(), want)
		}
		if gw.count("LoadFull") != 0 {
			t.Error("LoadFull called by toggle or range")
		}
		if s.SelectedImage != "b" {
			t.Errorf("SelectedImage = %q, want b", s.SelectedImage)
		}
	})

	t.Run("focus empties the selection", func(t *testing.T) {
		w.FocusFolder("f")
		s := w.Snapshot()
		if s.Selection.Len() != 0 {
			t.Errorf("Selection = %v, want empty", s.Selection.Names())
		}
		if s.FocusedFolder == nil || *s.FocusedFolder != "f" {
			t.Errorf("FocusedFolder = %v", s.FocusedFolder)
		}
	})

	t.Run("toggle keeps focus", func(t *testing.T) {
		if err := w.ToggleClick("f/c"); err != nil {
			t.Fatalf("ToggleClick() error = %v", err)
		}
		if w.Snapshot().FocusedFolder == nil {
			t.Error("ToggleClick cleared the focus")
		}
	})

	t.Run("clear focus keeps the selection", func(t *testing.T) {
		w.ClearFocus()
		s := w.Snapshot()
		if s.FocusedFolder != nil || !s.Selection.Has("f/c") {
			t.Errorf("snapshot = focus %v, selection %v", s.FocusedFolder, s.Selection.Names())
		}
	})

	t.Run("unknown names are rejected", func(t *testing.T) {
		if err := w.Click(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Click() error = %v", err)
		}
		if err := w.ToggleClick("nope"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("ToggleClick() error = %v", err)
		}
	})

	t.Run("select all in folder", func(t *testing.T) {
		w.FocusFolder("f")
		if n := w.SelectAll(strPtr("f")); n != 2 {
			t.Errorf("SelectAll() = %d, want 2", n)
		}
		s := w.Snapshot()
		if !reflect.DeepEqual(s.Selection.Names(), []string{"f/c", "f/d"}) || s.FocusedFolder != nil {
			t.Errorf("snapshot = %v focus %v", s.Selection.Names(), s.FocusedFolder)
		}
	})

	t.Run("failed full load is reported", func(t *testing.T) {
		gw.failOn["LoadFull"] = errBackend
		defer delete(gw.failOn, "LoadFull")
		if err := w.Click(ctx, "a"); !errors.Is(err, errBackend) {
			t.Fatalf("Click() error = %v", err)
		}
		s := w.Snapshot()
		if s.FullImage != nil || s.LoadingFull {
			t.Errorf("full = %+v loading = %v", s.FullImage, s.LoadingFull)
		}
	})
}

func TestWorkspace_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("new images in project", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, sample, []string{"site1"})
		names, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if want := []string{"a.jpg", "b.jpg", "site1/c.jpg"}; !reflect.DeepEqual(names, want) {
			t.Errorf("candidates = %v, want %v", names, want)
		}
		if gw.count("EvaluateImages") != 1 {
			t.Errorf("EvaluateImages calls = %d, want 1", gw.count("EvaluateImages"))
		}
		if gw.evalReqs[0].APIKey != "key" {
			t.Errorf("APIKey = %q", gw.evalReqs[0].APIKey)
		}
		if len(w.Snapshot().Evaluations) != 3 {
			t.Errorf("evaluations = %d, want 3", len(w.Snapshot().Evaluations))
		}
		if notes.last().Message != "3 images evaluated successfully" {
			t.Errorf("notice = %+v", notes.last())
		}

		names, err = w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew})
		if err != nil || names != nil {
			t.Fatalf("Evaluate() = %v, %v", names, err)
		}
		if gw.count("EvaluateImages") != 1 {
			t.Error("empty candidate set reached the gateway")
		}
		if notes.last().Message != "No unevaluated images" {
			t.Errorf("notice = %+v", notes.last())
		}
	})

	t.Run("this image", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, sample, []string{"site1"})
		if names, _ := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateSelected}); names != nil {
			t.Errorf("candidates without selection = %v", names)
		}
		if notes.last().Message != "No image selected" {
			t.Errorf("notice = %+v", notes.last())
		}
		if err := w.Click(ctx, "b.jpg"); err != nil {
			t.Fatalf("Click() error = %v", err)
		}
		names, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateSelected})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if !reflect.DeepEqual(names, []string{"b.jpg"}) {
			t.Errorf("candidates = %v, want [b.jpg]", names)
		}
		if gw.count("EvaluateImages") != 1 {
			t.Error("expected one call")
		}
		if notes.last().Message != "Image evaluated successfully" {
			t.Errorf("notice = %+v", notes.last())
		}
	})

	t.Run("folder scope", func(t *testing.T) {
		w, _, notes := openWorkspace(t, []string{"a.jpg", "site1/c.jpg", "site1/d.jpg"}, []string{"site1", "empty"})
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew, Folder: strPtr("site1")}); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		s := w.Snapshot()
		if _, ok := s.Evaluations["a.jpg"]; ok {
			t.Error("root image evaluated by folder scope")
		}
		if names, _ := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew, Folder: strPtr("site1")}); names != nil {
			t.Errorf("second run candidates = %v", names)
		}
		if notes.last().Message != "No unevaluated images in folder" {
			t.Errorf("notice = %+v", notes.last())
		}
		names, _ := w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll, Folder: strPtr("site1")})
		if len(names) != 2 {
			t.Errorf("reevaluate candidates = %v", names)
		}
		if names, _ := w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll, Folder: strPtr("empty")}); names != nil {
			t.Errorf("empty folder candidates = %v", names)
		}
		if notes.last().Message != "No images in folder" {
			t.Errorf("notice = %+v", notes.last())
		}
	})

	t.Run("reevaluate all in empty project", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, nil, nil)
		if names, _ := w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll}); names != nil {
			t.Errorf("candidates = %v", names)
		}
		if gw.count("EvaluateImages") != 0 || notes.last().Message != "No images in project" {
			t.Errorf("calls = %d, notice = %+v", gw.count("EvaluateImages"), notes.last())
		}
	})

	t.Run("per-image failure is a result", func(t *testing.T) {
		w, _, notes := openWorkspace(t, []string{"ok.jpg", "broken.jpg"}, nil)
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		e := w.Snapshot().Evaluations["broken.jpg"]
		if e.FailReason == nil || e.Result != nil {
			t.Errorf("broken.jpg = %+v", e)
		}
		if notes.last().Level != LevelSuccess {
			t.Errorf("notice = %+v", notes.last())
		}
	})

	t.Run("gateway failure leaves evaluations untouched", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, sample, nil)
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll}); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		before := w.Snapshot().Evaluations
		gw.failOn["EvaluateImages"] = errBackend
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll}); !errors.Is(err, errBackend) {
			t.Fatalf("Evaluate() error = %v", err)
		}
		s := w.Snapshot()
		if !reflect.DeepEqual(s.Evaluations, before) {
			t.Error("evaluations changed after a failed call")
		}
		if s.Evaluating {
			t.Error("busy flag still set")
		}
		if notes.last().Level != LevelError {
			t.Errorf("notice = %+v", notes.last())
		}
	})

	t.Run("second evaluation while busy is refused", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, sample, nil)
		var inner []string
		gw.once("EvaluateImages", func() {
			if !w.Snapshot().Evaluating {
				t.Error("busy flag not set during the call")
			}
			inner, _ = w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll})
			if notes.last().Message != "Evaluation already in progress" {
				t.Errorf("notice = %+v", notes.last())
			}
		})
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll}); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if inner != nil || gw.count("EvaluateImages") != 1 {
			t.Errorf("inner = %v, calls = %d", inner, gw.count("EvaluateImages"))
		}
	})

	t.Run("prompt settings travel with the call", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, nil)
		temp := 0.7
		if err := w.UpdateSettings(ctx, domain.ProjectSettings{CustomPrompt: strPtr("nameplates"), Temperature: &temp}); err != nil {
			t.Fatalf("UpdateSettings() error = %v", err)
		}
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		opts := gw.evalOpts[0]
		if opts.CustomPrompt == nil || *opts.CustomPrompt != "nameplates" || opts.Temperature == nil || *opts.Temperature != 0.7 {
			t.Errorf("options = %+v", opts)
		}
	})
}

func TestWorkspace_EvaluationReplacement(t *testing.T) {
	ctx := context.Background()

	t.Run("full-set backend keeps untouched evaluations", func(t *testing.T) {
		w, _, _ := openWorkspace(t, sample, nil)
		if err := w.Click(ctx, "a.jpg"); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateSelected}); err != nil {
			t.Fatal(err)
		}
		if err := w.Click(ctx, "b.jpg"); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateSelected}); err != nil {
			t.Fatal(err)
		}
		if n := len(w.Snapshot().Evaluations); n != 2 {
			t.Errorf("evaluations = %d, want 2", n)
		}
	})

	t.Run("subset backend drops untouched evaluations", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, nil)
		gw.subsetOnly = true
		if err := w.Click(ctx, "a.jpg"); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateSelected}); err != nil {
			t.Fatal(err)
		}
		if err := w.Click(ctx, "b.jpg"); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateSelected}); err != nil {
			t.Fatal(err)
		}
		evals := w.Snapshot().Evaluations
		if _, ok := evals["a.jpg"]; ok || len(evals) != 1 {
			t.Errorf("evaluations = %v, want only b.jpg", evals)
		}
	})
}

func TestCandidates_NeverIncludeEvaluated(t *testing.T) {
	s := Snapshot{
		Previews: previewsOf("a", "b", "f/c", "f/d"),
		Folders:  []string{"f"},
		Evaluations: map[string]domain.Evaluation{
			"b":   domain.Succeeded("b", domain.EvaluationResult{}),
			"f/d": domain.Failed("f/d", "x"),
		},
	}
	for _, folder := range []*string{nil, strPtr("f")} {
		names, _ := Candidates(s, EvaluationRequest{Mode: EvaluateNew, Folder: folder})
		for _, n := range names {
			if _, done := s.Evaluations[n]; done {
				t.Errorf("candidate %q is already evaluated", n)
			}
		}
	}
}

func TestWorkspace_Pipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("delete prunes in the same update without reload", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, []string{"site1"})
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); err != nil {
			t.Fatal(err)
		}
		if err := w.Click(ctx, "b.jpg"); err != nil {
			t.Fatal(err)
		}
		if err := w.ToggleClick("a.jpg"); err != nil {
			t.Fatal(err)
		}
		gw.resetCalls()
		if err := w.Delete(ctx, []string{"b.jpg"}); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		s := w.Snapshot()
		if strings.Contains(strings.Join(previewNameList(s), ","), "b.jpg") {
			t.Errorf("previews = %v", previewNameList(s))
		}
		if s.Selection.Has("b.jpg") || !s.Selection.Has("a.jpg") {
			t.Errorf("selection = %v", s.Selection.Names())
		}
		if s.SelectedImage != "" || s.FullImage != nil {
			t.Errorf("selected = %q", s.SelectedImage)
		}
		if _, ok := s.Evaluations["b.jpg"]; ok {
			t.Error("evaluation of b.jpg kept")
		}
		if gw.count("ListPreviews") != 0 || gw.count("ListEvaluations") != 0 {
			t.Error("delete triggered a reload")
		}
	})

	t.Run("failed delete changes nothing", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, sample, nil)
		gw.failOn["DeleteImages"] = errBackend
		before := w.Snapshot()
		if err := w.Delete(ctx, []string{"a.jpg"}); !errors.Is(err, errBackend) {
			t.Fatalf("Delete() error = %v", err)
		}
		if !reflect.DeepEqual(previewNameList(w.Snapshot()), previewNameList(before)) {
			t.Error("previews changed")
		}
		if notes.last().Level != LevelError {
			t.Errorf("notice = %+v", notes.last())
		}
	})

	t.Run("move to root clears selection and reloads", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, []string{"site1"})
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); err != nil {
			t.Fatal(err)
		}
		if err := w.Click(ctx, "site1/c.jpg"); err != nil {
			t.Fatal(err)
		}
		if err := w.MoveSelection(ctx, nil); err != nil {
			t.Fatalf("MoveSelection() error = %v", err)
		}
		s := w.Snapshot()
		if want := []string{"a.jpg", "b.jpg", "c.jpg"}; !reflect.DeepEqual(previewNameList(s), want) {
			t.Errorf("previews = %v, want %v", previewNameList(s), want)
		}
		if s.Selection.Len() != 0 {
			t.Errorf("selection = %v, want empty", s.Selection.Names())
		}
		if _, ok := s.Evaluations["c.jpg"]; !ok {
			t.Error("evaluation not re-keyed to c.jpg")
		}
		if gw.count("ListPreviews") != 1 || gw.count("ListEvaluations") != 1 || gw.count("ListFolders") != 1 {
			t.Errorf("calls = %v", gw.calls)
		}
	})

	t.Run("failed reload after a move is reported", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, sample, []string{"site1"})
		gw.failOn["ListEvaluations"] = errBackend
		gw.failOn["ListFolders"] = errBackend
		if err := w.Move(ctx, []string{"site1/c.jpg"}, nil); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		var messages []string
		for _, n := range notes.notices {
			if n.Level == LevelError {
				messages = append(messages, n.Message)
			}
		}
		if want := []string{"Failed to load folders", "Failed to load evaluations"}; !reflect.DeepEqual(messages, want) {
			t.Errorf("error notices = %v, want %v", messages, want)
		}
		if got := notes.last().Detail; got != errBackend.Error() {
			t.Errorf("notice detail = %q", got)
		}
	})

	t.Run("import into focus reloads previews", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, nil, []string{"site1"})
		w.FocusFolder("site1")
		if err := w.ImportIntoFocus(ctx, []string{"new.jpg"}); err != nil {
			t.Fatalf("ImportIntoFocus() error = %v", err)
		}
		if got := previewNameList(w.Snapshot()); !reflect.DeepEqual(got, []string{"site1/new.jpg"}) {
			t.Errorf("previews = %v", got)
		}
		if gw.count("ListEvaluations") != 0 {
			t.Error("import reloaded evaluations")
		}
	})

	t.Run("export sends evaluated images only", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, []string{"ok.jpg", "broken.jpg"}, nil)
		if _, err := w.Export(ctx, "/out"); err != nil {
			t.Fatal(err)
		}
		if gw.count("ExportEvaluated") != 0 || notes.last().Message != "No evaluated images to export" {
			t.Errorf("notice = %+v", notes.last())
		}
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); err != nil {
			t.Fatal(err)
		}
		failures, err := w.Export(ctx, "/out")
		if err != nil || len(failures) != 0 {
			t.Fatalf("Export() = %v, %v", failures, err)
		}
		if gw.count("ExportEvaluated") != 1 || notes.last().Level != LevelSuccess {
			t.Errorf("notice = %+v", notes.last())
		}
	})
}

func TestWorkspace_Folders(t *testing.T) {
	ctx := context.Background()

	t.Run("blank names stay local", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, nil, nil)
		if err := w.CreateFolder(ctx, "   "); err != nil {
			t.Fatalf("CreateFolder() error = %v", err)
		}
		if err := w.RenameFolder(ctx, "x", ""); err != nil {
			t.Fatalf("RenameFolder() error = %v", err)
		}
		if gw.count("CreateFolder") != 0 || gw.count("RenameFolder") != 0 {
			t.Error("blank name reached the gateway")
		}
		if notes.last().Message != "Folder name cannot be empty" {
			t.Errorf("notice = %+v", notes.last())
		}
	})

	t.Run("create reloads folders", func(t *testing.T) {
		w, _, _ := openWorkspace(t, nil, nil)
		if err := w.CreateFolder(ctx, "roof"); err != nil {
			t.Fatalf("CreateFolder() error = %v", err)
		}
		if got := w.Snapshot().Folders; !reflect.DeepEqual(got, []string{"roof"}) {
			t.Errorf("Folders = %v", got)
		}
	})

	t.Run("rename re-keys everything", func(t *testing.T) {
		w, _, _ := openWorkspace(t, []string{"a.jpg", "old/c.jpg", "old/d.jpg"}, []string{"old"})
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); err != nil {
			t.Fatal(err)
		}
		if err := w.Click(ctx, "old/c.jpg"); err != nil {
			t.Fatal(err)
		}
		if err := w.ToggleClick("old/d.jpg"); err != nil {
			t.Fatal(err)
		}
		w.FocusFolder("old")
		if err := w.ToggleClick("old/d.jpg"); err != nil {
			t.Fatal(err)
		}
		if err := w.RenameFolder(ctx, "old", "new"); err != nil {
			t.Fatalf("RenameFolder() error = %v", err)
		}
		s := w.Snapshot()
		if s.FocusedFolder == nil || *s.FocusedFolder != "new" {
			t.Errorf("FocusedFolder = %v", s.FocusedFolder)
		}
		for _, n := range previewNameList(s) {
			if strings.HasPrefix(n, "old/") {
				t.Errorf("preview %q kept the old prefix", n)
			}
		}
		for n := range s.Evaluations {
			if strings.HasPrefix(n, "old/") {
				t.Errorf("evaluation %q kept the old prefix", n)
			}
		}
		if !reflect.DeepEqual(s.Selection.Names(), []string{"new/d.jpg"}) {
			t.Errorf("selection = %v", s.Selection.Names())
		}
		if s.SelectedImage != "new/c.jpg" {
			t.Errorf("SelectedImage = %q", s.SelectedImage)
		}
	})

	t.Run("failed rename changes nothing", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, []string{"old/c.jpg"}, []string{"old"})
		w.FocusFolder("old")
		gw.failOn["RenameFolder"] = errBackend
		if err := w.RenameFolder(ctx, "old", "new"); !errors.Is(err, errBackend) {
			t.Fatalf("RenameFolder() error = %v", err)
		}
		s := w.Snapshot()
		if *s.FocusedFolder != "old" || !reflect.DeepEqual(s.Folders, []string{"old"}) {
			t.Errorf("snapshot = %+v", s)
		}
	})

	t.Run("delete clears focus and cascades", func(t *testing.T) {
		w, _, _ := openWorkspace(t, []string{"a.jpg", "f/c.jpg"}, []string{"f"})
		if err := w.Click(ctx, "f/c.jpg"); err != nil {
			t.Fatal(err)
		}
		w.FocusFolder("f")
		if err := w.DeleteFolder(ctx, "f"); err != nil {
			t.Fatalf("DeleteFolder() error = %v", err)
		}
		s := w.Snapshot()
		if s.FocusedFolder != nil || len(s.Folders) != 0 {
			t.Errorf("focus = %v folders = %v", s.FocusedFolder, s.Folders)
		}
		if !reflect.DeepEqual(previewNameList(s), []string{"a.jpg"}) || s.SelectedImage != "" {
			t.Errorf("previews = %v selected = %q", previewNameList(s), s.SelectedImage)
		}
	})
}

func TestWorkspace_StaleResults(t *testing.T) {
	ctx := context.Background()

	t.Run("older preview load cannot resurrect a deleted image", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, nil)
		gw.once("ListPreviews", func() {
			if err := w.Delete(ctx, []string{"a.jpg"}); err != nil {
				t.Errorf("Delete() error = %v", err)
			}
		})
		if err := w.LoadPreviews(ctx); err != nil {
			t.Fatalf("LoadPreviews() error = %v", err)
		}
		s := w.Snapshot()
		if want := []string{"b.jpg", "site1/c.jpg"}; !reflect.DeepEqual(previewNameList(s), want) {
			t.Errorf("previews = %v, want %v", previewNameList(s), want)
		}
		if s.LoadingPreviews {
			t.Error("loading flag stuck")
		}
	})

	t.Run("newer load wins over an older one", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, []string{"a.jpg"}, nil)
		gw.once("ListPreviews", func() {
			gw.mu.Lock()
			gw.images = append(gw.images, "b.jpg")
			gw.mu.Unlock()
			if err := w.LoadPreviews(ctx); err != nil {
				t.Errorf("inner LoadPreviews() error = %v", err)
			}
		})
		if err := w.LoadPreviews(ctx); err != nil {
			t.Fatalf("LoadPreviews() error = %v", err)
		}
		if got := previewNameList(w.Snapshot()); !reflect.DeepEqual(got, []string{"a.jpg", "b.jpg"}) {
			t.Errorf("previews = %v", got)
		}
	})

	t.Run("evaluation overlapping a delete keeps the backend results", func(t *testing.T) {
		w, gw, notes := openWorkspace(t, sample, []string{"site1"})
		gw.once("EvaluateImages", func() {
			if err := w.Delete(ctx, []string{"a.jpg"}); err != nil {
				t.Errorf("Delete() error = %v", err)
			}
		})
		names, err := w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll, Folder: strPtr("site1")})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if !reflect.DeepEqual(names, []string{"site1/c.jpg"}) {
			t.Errorf("sent %v", names)
		}
		s := w.Snapshot()
		if _, ok := s.Evaluations["site1/c.jpg"]; !ok {
			t.Errorf("evaluations = %v, want site1/c.jpg", s.EvaluationList())
		}
		if _, ok := s.Evaluations["a.jpg"]; ok {
			t.Error("deleted image came back into the evaluations")
		}
		if want := []string{"b.jpg", "site1/c.jpg"}; !reflect.DeepEqual(previewNameList(s), want) {
			t.Errorf("previews = %v, want %v", previewNameList(s), want)
		}
		if got := notes.last(); got.Level != LevelSuccess || got.Message != "Image evaluated successfully" {
			t.Errorf("notice = %+v", got)
		}
		if gw.count("ListEvaluations") != 1 {
			t.Errorf("calls = %v, want one evaluation reload", gw.calls)
		}
		if s.Evaluating {
			t.Error("evaluating flag stuck")
		}
	})

	t.Run("evaluation overlapping a move keeps the backend results", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, []string{"site1"})
		gw.once("EvaluateImages", func() {
			if err := w.Move(ctx, []string{"b.jpg"}, strPtr("site1")); err != nil {
				t.Errorf("Move() error = %v", err)
			}
		})
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: ReevaluateAll, Folder: strPtr("site1")}); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		s := w.Snapshot()
		if len(s.Evaluations) != 1 {
			t.Fatalf("evaluations = %v, want the one stored by the backend", s.EvaluationList())
		}
		if _, ok := s.Evaluations["site1/c.jpg"]; !ok {
			t.Errorf("evaluations = %v", s.EvaluationList())
		}
		if want := []string{"a.jpg", "site1/b.jpg", "site1/c.jpg"}; !reflect.DeepEqual(previewNameList(s), want) {
			t.Errorf("previews = %v, want %v", previewNameList(s), want)
		}
	})

	t.Run("evaluation overlapping a folder rename keeps the backend results", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, []string{"a.jpg", "old/c.jpg"}, []string{"old"})
		if err := w.Click(ctx, "a.jpg"); err != nil {
			t.Fatal(err)
		}
		gw.once("EvaluateImages", func() {
			if err := w.RenameFolder(ctx, "old", "new"); err != nil {
				t.Errorf("RenameFolder() error = %v", err)
			}
		})
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateSelected}); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		s := w.Snapshot()
		if _, ok := s.Evaluations["a.jpg"]; !ok {
			t.Errorf("evaluations = %v, want a.jpg", s.EvaluationList())
		}
		if want := []string{"a.jpg", "new/c.jpg"}; !reflect.DeepEqual(previewNameList(s), want) {
			t.Errorf("previews = %v, want %v", previewNameList(s), want)
		}
		if !reflect.DeepEqual(s.Folders, []string{"new"}) {
			t.Errorf("Folders = %v", s.Folders)
		}
	})

	t.Run("import during an evaluation applies both results", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, []string{"site1"})
		gw.once("EvaluateImages", func() {
			if err := w.Import(ctx, []string{"d.jpg"}, nil); err != nil {
				t.Errorf("Import() error = %v", err)
			}
		})
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		s := w.Snapshot()
		if len(s.Evaluations) != 3 {
			t.Errorf("evaluations = %v, want 3", s.EvaluationList())
		}
		if want := []string{"a.jpg", "b.jpg", "site1/c.jpg", "d.jpg"}; !reflect.DeepEqual(previewNameList(s), want) {
			t.Errorf("previews = %v, want %v", previewNameList(s), want)
		}
		if gw.count("ListEvaluations") != 0 {
			t.Errorf("calls = %v, evaluation result should apply without a reload", gw.calls)
		}
		names, _ := Candidates(s, EvaluationRequest{Mode: EvaluateNew})
		if !reflect.DeepEqual(names, []string{"d.jpg"}) {
			t.Errorf("unevaluated = %v, want [d.jpg]", names)
		}
	})

	t.Run("older evaluation load cannot resurrect a deleted image", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, nil)
		if _, err := w.Evaluate(ctx, EvaluationRequest{Mode: EvaluateNew}); err != nil {
			t.Fatal(err)
		}
		gw.once("ListEvaluations", func() {
			if err := w.Delete(ctx, []string{"a.jpg"}); err != nil {
				t.Errorf("Delete() error = %v", err)
			}
		})
		if err := w.LoadEvaluations(ctx); err != nil {
			t.Fatalf("LoadEvaluations() error = %v", err)
		}
		if _, ok := w.Snapshot().Evaluations["a.jpg"]; ok {
			t.Error("stale evaluation load brought a.jpg back")
		}
	})

	t.Run("results for a closed project are dropped", func(t *testing.T) {
		w, gw, _ := openWorkspace(t, sample, nil)
		gw.once("ListPreviews", func() { w.Reset() })
		if err := w.LoadPreviews(ctx); err != nil {
			t.Fatalf("LoadPreviews() error = %v", err)
		}
		if n := len(w.Snapshot().Previews); n != 0 {
			t.Errorf("previews = %d, want 0", n)
		}
	})
}

func TestWorkspace_Subscribe(t *testing.T) {
	w, _, _ := openWorkspace(t, sample, []string{"site1"})
	ch := w.Subscribe()
	w.FocusFolder("site1")

	seen := map[EventKind]bool{}
	for len(ch) > 0 {
		e := <-ch
		seen[e.Kind] = true
	}
	if !seen[EventFocus] || !seen[EventSelection] {
		t.Errorf("events = %v", seen)
	}
	w.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel not closed by Unsubscribe")
	}
}

func TestPolicies(t *testing.T) {
	cases := map[Operation]Policy{
		OpImport:       {Previews: FullReload},
		OpDelete:       {Previews: LocalPatch, Evaluations: LocalPatch},
		OpMove:         {Previews: FullReload, Evaluations: FullReload, Folders: FullReload},
		OpEvaluate:     {Evaluations: FromResult},
		OpExport:       {},
		OpCreateFolder: {Folders: FullReload},
		OpRenameFolder: {Previews: FullReload, Evaluations: FullReload, Folders: FullReload},
		OpDeleteFolder: {Previews: FullReload, Evaluations: FullReload, Folders: FullReload},
	}
	if len(Policies) != len(cases) {
		t.Errorf("Policies has %d operations, want %d", len(Policies), len(cases))
	}
	for op, want := range cases {
		if got := Policies[op]; got != want {
			t.Errorf("Policies[%s] = %+v, want %+v", op, got, want)
		}
	}
	if FullReload.String() != "full-reload" || None.String() != "none" {
		t.Error("unexpected Refresh names")
	}
}
