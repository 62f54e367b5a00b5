package workspace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/metrics"
)

// Import adds image files to the active project, under folder when it is
// non-nil, then reloads the previews.
func (w *Workspace) Import(ctx context.Context, paths []string, folder *string) error {
	project, _, err := w.begin()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		w.skip(string(OpImport), Notice{Level: LevelInfo, Message: "No images to import"})
		return nil
	}
	started := time.Now()
	err = w.gateway.ImportImages(ctx, project, paths, folder)
	metrics.RecordOperation(string(OpImport), err, time.Since(started))
	if err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to import images", Detail: err.Error()})
		return err
	}
	w.log.Info("images imported", zap.String("project", project), zap.Int("count", len(paths)))
	w.refreshAfter(ctx, OpImport)
	return nil
}

// ImportIntoFocus imports into the focused folder, or the root without one.
func (w *Workspace) ImportIntoFocus(ctx context.Context, paths []string) error {
	w.mu.RLock()
	var folder *string
	if w.st.focused != nil {
		f := *w.st.focused
		folder = &f
	}
	w.mu.RUnlock()
	return w.Import(ctx, paths, folder)
}

// Delete removes images. On success the names leave the previews, the
// evaluations and the selection in one update, without a reload.
func (w *Workspace) Delete(ctx context.Context, names []string) error {
	project, epoch, err := w.begin()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		w.skip(string(OpDelete), Notice{Level: LevelInfo, Message: "No images selected"})
		return nil
	}
	started := time.Now()
	err = w.gateway.DeleteImages(ctx, project, names)
	metrics.RecordOperation(string(OpDelete), err, time.Since(started))
	if err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to delete images", Detail: err.Error()})
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		return nil
	}
	w.removeLocked(names)
	w.log.Info("images deleted", zap.String("project", project), zap.Int("count", len(names)))
	return nil
}

// removeLocked is the local patch applied after a delete. It advances the
// tokens it patches so an older in-flight load cannot bring names back.
func (w *Workspace) removeLocked(names []string) {
	gone := make(map[string]struct{}, len(names))
	for _, n := range names {
		gone[n] = struct{}{}
	}
	previews := make([]domain.ImagePreview, 0, len(w.st.previews))
	for _, p := range w.st.previews {
		if _, ok := gone[p.Name]; !ok {
			previews = append(previews, p)
		}
	}
	w.st.previews = previews
	w.tokens.next(collectionPreviews)

	for n := range gone {
		delete(w.st.evaluations, n)
	}
	w.tokens.next(collectionEvaluations)

	w.pruneLocked()
	w.publishLocked(EventPreviews)
	w.publishLocked(EventEvaluations)
}

// DeleteSelection deletes the selected images
func (w *Workspace) DeleteSelection(ctx context.Context) error {
	return w.Delete(ctx, w.selectionOrder())
}

// Move re-keys images under target, or to root when target is nil. On
// success the selection is cleared and previews, evaluations and folders
// reload.
func (w *Workspace) Move(ctx context.Context, names []string, target *string) error {
	project, epoch, err := w.begin()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		w.skip(string(OpMove), Notice{Level: LevelInfo, Message: "No images selected"})
		return nil
	}
	started := time.Now()
	err = w.gateway.MoveImages(ctx, project, names, target)
	metrics.RecordOperation(string(OpMove), err, time.Since(started))
	if err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to move images", Detail: err.Error()})
		return err
	}

	w.mu.Lock()
	if w.epoch == epoch {
		w.st.selection = w.st.selection.Clear()
		w.publishLocked(EventSelection)
	}
	w.mu.Unlock()

	w.log.Info("images moved", zap.String("project", project), zap.Int("count", len(names)))
	w.refreshAfter(ctx, OpMove)
	return nil
}

// MoveSelection moves the selected images
func (w *Workspace) MoveSelection(ctx context.Context, target *string) error {
	return w.Move(ctx, w.selectionOrder(), target)
}

// Export copies the successfully evaluated images to outputDir and returns
// the per-image failures.
func (w *Workspace) Export(ctx context.Context, outputDir string) ([]string, error) {
	project, _, err := w.begin()
	if err != nil {
		return nil, err
	}
	var evaluated []domain.Evaluation
	for _, e := range w.Snapshot().EvaluationList() {
		if e.Result != nil {
			evaluated = append(evaluated, e)
		}
	}
	if len(evaluated) == 0 {
		w.skip(string(OpExport), Notice{Level: LevelInfo, Message: "No evaluated images to export"})
		return nil, nil
	}
	started := time.Now()
	failures, err := w.gateway.ExportEvaluated(ctx, project, evaluated, outputDir)
	metrics.RecordOperation(string(OpExport), err, time.Since(started))
	if err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to export images", Detail: err.Error()})
		return nil, err
	}
	if len(failures) > 0 {
		w.notify(Notice{
			Level:   LevelError,
			Message: fmt.Sprintf("%d of %d images failed to export", len(failures), len(evaluated)),
		})
		return failures, nil
	}
	w.notify(Notice{Level: LevelSuccess, Message: fmt.Sprintf("%d images exported to %s", len(evaluated), outputDir)})
	return failures, nil
}

// selectionOrder returns the selected names in flattened hierarchy order.
func (w *Workspace) selectionOrder() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var names []string
	for _, n := range BuildHierarchy(w.st.previews, w.st.folders).Flatten() {
		if w.st.selection.Has(n) {
			names = append(names, n)
		}
	}
	return names
}
