package workspace

import (
	"context"
	"errors"
)

// Operation is a mutating workspace action
type Operation string

const (
	OpImport       Operation = "import"
	OpDelete       Operation = "delete"
	OpMove         Operation = "move"
	OpEvaluate     Operation = "evaluate"
	OpExport       Operation = "export"
	OpCreateFolder Operation = "create_folder"
	OpRenameFolder Operation = "rename_folder"
	OpDeleteFolder Operation = "delete_folder"
)

// Refresh says how a collection catches up after an operation succeeds
type Refresh int

const (
	// None leaves the collection as is.
	None Refresh = iota
	// LocalPatch edits the collection in place without a gateway call.
	LocalPatch
	// FromResult replaces the collection with the operation's own result.
	FromResult
	// FullReload fetches the collection again from the gateway.
	FullReload
)

func (r Refresh) String() string {
	switch r {
	case LocalPatch:
		return "local-patch"
	case FromResult:
		return "from-result"
	case FullReload:
		return "full-reload"
	default:
		return "none"
	}
}

// Policy lists the refresh of each collection for one operation
type Policy struct {
	Previews    Refresh
	Evaluations Refresh
	Folders     Refresh
}

// Policies is the refresh table every operation follows.
var Policies = map[Operation]Policy{
	OpImport:       {Previews: FullReload},
	OpDelete:       {Previews: LocalPatch, Evaluations: LocalPatch},
	OpMove:         {Previews: FullReload, Evaluations: FullReload, Folders: FullReload},
	OpEvaluate:     {Evaluations: FromResult},
	OpExport:       {},
	OpCreateFolder: {Folders: FullReload},
	OpRenameFolder: {Previews: FullReload, Evaluations: FullReload, Folders: FullReload},
	OpDeleteFolder: {Previews: FullReload, Evaluations: FullReload, Folders: FullReload},
}

// reload runs the full reloads the policy of op asks for. Folders load
// first so the hierarchy never sees images of a folder it does not know.
func (w *Workspace) reload(ctx context.Context, op Operation) error {
	p := Policies[op]
	var errs []error
	if p.Folders == FullReload {
		errs = append(errs, w.LoadFolders(ctx))
	}
	if p.Previews == FullReload {
		errs = append(errs, w.LoadPreviews(ctx))
	}
	if p.Evaluations == FullReload {
		errs = append(errs, w.LoadEvaluations(ctx))
	}
	return errors.Join(errs...)
}
