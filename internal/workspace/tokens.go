package workspace

// collection is a part of the workspace loaded from the gateway
type collection string

const (
	collectionPreviews    collection = "previews"
	collectionEvaluations collection = "evaluations"
	collectionFolders     collection = "folders"
	collectionFull        collection = "full"
)

var allCollections = []collection{collectionPreviews, collectionEvaluations, collectionFolders, collectionFull}

// tokens issues one increasing counter per collection. A result is applied
// only if its token is still the latest issued for its collection. Guarded
// by the workspace mutex.
type tokens struct {
	issued map[collection]uint64
}

func newTokens() *tokens {
	return &tokens{issued: make(map[collection]uint64, len(allCollections))}
}

func (t *tokens) next(c collection) uint64 {
	t.issued[c]++
	return t.issued[c]
}

func (t *tokens) current(c collection, tok uint64) bool {
	return t.issued[c] == tok
}

// invalidate makes every in-flight result stale
func (t *tokens) invalidate() {
	for _, c := range allCollections {
		t.next(c)
	}
}
