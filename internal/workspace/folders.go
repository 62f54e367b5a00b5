package workspace

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/metrics"
)

const msgEmptyFolderName = "Folder name cannot be empty"

// CreateFolder creates a folder and reloads the folder list. Blank names
// are refused locally; any other rule is left to the gateway.
func (w *Workspace) CreateFolder(ctx context.Context, name string) error {
	project, _, err := w.begin()
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		w.skip(string(OpCreateFolder), Notice{Level: LevelInfo, Message: msgEmptyFolderName})
		return nil
	}
	started := time.Now()
	err = w.gateway.CreateFolder(ctx, project, name)
	metrics.RecordOperation(string(OpCreateFolder), err, time.Since(started))
	if err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to create folder", Detail: err.Error()})
		return err
	}
	w.log.Info("folder created", zap.String("project", project), zap.String("folder", name))
	w.refreshAfter(ctx, OpCreateFolder)
	return nil
}

// RenameFolder renames a folder. On success focus and selection follow the
// new name, then every collection reloads. On failure nothing changes.
func (w *Workspace) RenameFolder(ctx context.Context, oldName, newName string) error {
	project, epoch, err := w.begin()
	if err != nil {
		return err
	}
	if strings.TrimSpace(newName) == "" {
		w.skip(string(OpRenameFolder), Notice{Level: LevelInfo, Message: msgEmptyFolderName})
		return nil
	}
	started := time.Now()
	err = w.gateway.RenameFolder(ctx, project, oldName, newName)
	metrics.RecordOperation(string(OpRenameFolder), err, time.Since(started))
	if err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to rename folder", Detail: err.Error()})
		return err
	}

	w.mu.Lock()
	if w.epoch == epoch {
		rekey := func(n string) string { return domain.RenameFolderPrefix(n, oldName, newName) }
		if w.st.focused != nil && *w.st.focused == oldName {
			f := newName
			w.st.focused = &f
			w.publishLocked(EventFocus)
		}
		w.st.selection = w.st.selection.Rekey(rekey)
		if w.st.selected != "" {
			w.st.selected = rekey(w.st.selected)
			if w.st.full != nil {
				full := *w.st.full
				full.Name = w.st.selected
				w.st.full = &full
			}
		}
		w.publishLocked(EventSelection)
	}
	w.mu.Unlock()

	w.log.Info("folder renamed", zap.String("project", project), zap.String("from", oldName), zap.String("to", newName))
	w.refreshAfter(ctx, OpRenameFolder)
	return nil
}

// DeleteFolder deletes a folder with its images. Focus on it is cleared
// and every collection reloads. On failure nothing changes.
func (w *Workspace) DeleteFolder(ctx context.Context, name string) error {
	project, epoch, err := w.begin()
	if err != nil {
		return err
	}
	started := time.Now()
	err = w.gateway.DeleteFolder(ctx, project, name)
	metrics.RecordOperation(string(OpDeleteFolder), err, time.Since(started))
	if err != nil {
		w.notify(Notice{Level: LevelError, Message: "Failed to delete folder", Detail: err.Error()})
		return err
	}

	w.mu.Lock()
	if w.epoch == epoch && w.st.focused != nil && *w.st.focused == name {
		w.st.focused = nil
		w.publishLocked(EventFocus)
	}
	w.mu.Unlock()

	w.log.Info("folder deleted", zap.String("project", project), zap.String("folder", name))
	w.refreshAfter(ctx, OpDeleteFolder)
	return nil
}

// refreshAfter reloads what the policy of op asks for. Reload failures
// are already reported and do not fail the operation.
func (w *Workspace) refreshAfter(ctx context.Context, op Operation) {
	if err := w.reload(ctx, op); err != nil {
		w.log.Warn("refresh after operation failed", zap.String("operation", string(op)), zap.Error(err))
	}
}
