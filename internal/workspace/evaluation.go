package workspace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/metrics"
)

// EvaluationMode selects which images an evaluation covers
type EvaluationMode int

const (
	// EvaluateSelected covers the selected image only.
	EvaluateSelected EvaluationMode = iota
	// EvaluateNew covers the images in scope without an evaluation.
	EvaluateNew
	// ReevaluateAll covers every image in scope.
	ReevaluateAll
)

func (m EvaluationMode) String() string {
	switch m {
	case EvaluateSelected:
		return "selected"
	case EvaluateNew:
		return "new"
	case ReevaluateAll:
		return "all"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// EvaluationRequest is one user evaluation action. Folder scopes
// EvaluateNew and ReevaluateAll; nil means the whole project.
type EvaluationRequest struct {
	Mode   EvaluationMode
	Folder *string
}

const (
	msgNoSelection          = "No image selected"
	msgNoUnevaluated        = "No unevaluated images"
	msgNoUnevaluatedFolder  = "No unevaluated images in folder"
	msgNoImagesInProject    = "No images in project"
	msgNoImagesInFolder     = "No images in folder"
	msgEvaluationInProgress = "Evaluation already in progress"
)

// Candidates returns the image names req would evaluate, in flattened
// hierarchy order. When there are none it also returns the message to
// show instead of calling the gateway.
func Candidates(s Snapshot, req EvaluationRequest) ([]string, string) {
	if req.Mode == EvaluateSelected {
		if s.SelectedImage == "" {
			return nil, msgNoSelection
		}
		return []string{s.SelectedImage}, ""
	}

	var names []string
	for _, n := range s.Hierarchy().Flatten() {
		if req.Folder != nil && !domain.InFolder(n, *req.Folder) {
			continue
		}
		if req.Mode == EvaluateNew {
			if _, done := s.Evaluations[n]; done {
				continue
			}
		}
		names = append(names, n)
	}
	if len(names) > 0 {
		return names, ""
	}
	switch {
	case req.Mode == EvaluateNew && req.Folder != nil:
		return nil, msgNoUnevaluatedFolder
	case req.Mode == EvaluateNew:
		return nil, msgNoUnevaluated
	case req.Folder != nil:
		return nil, msgNoImagesInFolder
	default:
		return nil, msgNoImagesInProject
	}
}

// Evaluate runs one batched evaluation for req and returns the names it
// sent. Nothing is sent when the candidate set is empty or another
// evaluation is running. The gateway's answer replaces the evaluation map
// as a whole; on error the map is left untouched. When a delete, move or
// reload changed the evaluations meanwhile, the map is read back from the
// gateway instead.
func (w *Workspace) Evaluate(ctx context.Context, req EvaluationRequest) ([]string, error) {
	w.mu.Lock()
	if w.st.project == "" {
		w.mu.Unlock()
		return nil, ErrNoProject
	}
	if w.st.evaluating {
		w.mu.Unlock()
		w.skip(string(OpEvaluate), Notice{Level: LevelInfo, Message: msgEvaluationInProgress})
		return nil, nil
	}
	names, msg := Candidates(w.snapshotLocked(), req)
	if len(names) == 0 {
		w.mu.Unlock()
		w.skip(string(OpEvaluate), Notice{Level: LevelInfo, Message: msg})
		return nil, nil
	}
	w.st.evaluating = true
	project, epoch := w.st.project, w.epoch
	tok := w.tokens.next(collectionEvaluations)
	call := domain.EvaluationRequest{APIKey: w.apiKey, ImageNames: names}
	opts := domain.EvaluationOptions{CustomPrompt: w.st.settings.CustomPrompt, Temperature: w.st.settings.Temperature}
	w.publishLocked(EventBusy)
	w.mu.Unlock()

	started := time.Now()
	evaluations, err := w.gateway.EvaluateImages(ctx, project, call, opts)
	metrics.RecordOperation(string(OpEvaluate), err, time.Since(started))

	w.mu.Lock()
	current := w.epoch == epoch
	if current {
		w.st.evaluating = false
		w.publishLocked(EventBusy)
	}
	if err != nil {
		w.notifyLocked(Notice{Level: LevelError, Message: "Failed to evaluate images", Detail: err.Error()})
		w.mu.Unlock()
		return nil, err
	}
	if !current {
		w.mu.Unlock()
		metrics.RecordStaleResult(string(collectionEvaluations))
		return names, nil
	}
	w.log.Info("evaluation finished",
		zap.String("project", project),
		zap.Stringer("mode", req.Mode),
		zap.Int("requested", len(names)),
		zap.Int("returned", len(evaluations)))
	// Another operation touched the evaluations while this one ran, so the
	// result may predate it. The backend already holds the merge; read it back.
	stale := !w.tokens.current(collectionEvaluations, tok)
	if !stale {
		w.st.evaluations = evaluationMap(evaluations)
		w.publishLocked(EventEvaluations)
	}
	if len(names) == 1 {
		w.notifyLocked(Notice{Level: LevelSuccess, Message: "Image evaluated successfully"})
	} else {
		w.notifyLocked(Notice{Level: LevelSuccess, Message: fmt.Sprintf("%d images evaluated successfully", len(names))})
	}
	w.mu.Unlock()

	if stale {
		metrics.RecordStaleResult(string(collectionEvaluations))
		if err := w.LoadEvaluations(ctx); err != nil {
			w.log.Warn("reload after evaluation failed", zap.String("project", project), zap.Error(err))
		}
	}
	return names, nil
}

// snapshotLocked is Snapshot for callers already holding the lock. The
// returned value shares memory with the state and must not escape.
func (w *Workspace) snapshotLocked() Snapshot {
	return Snapshot{
		Project:       w.st.project,
		Previews:      w.st.previews,
		Folders:       w.st.folders,
		Evaluations:   w.st.evaluations,
		Selection:     w.st.selection,
		FocusedFolder: w.st.focused,
		SelectedImage: w.st.selected,
		FullImage:     w.st.full,
		Evaluating:    w.st.evaluating,
	}
}
