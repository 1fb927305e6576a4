package ledger

import (
	"iter"

	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/store"
)

// Filter narrows a request query. Zero fields match everything.
type Filter struct {
	Kind     model.RequestKind
	Status   model.RequestStatus
	Category model.Category
	Priority model.Priority
}

func (f Filter) match(r model.Request) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Priority != "" && r.Priority != f.Priority {
		return false
	}
	return true
}

// Requests returns a restartable sequence of requests matching f in
// creation order. Each ranging reads a fresh snapshot.
func (l *Ledger) Requests(f Filter) iter.Seq[model.Request] {
	return func(yield func(model.Request) bool) {
		var snap []model.Request
		l.store.View(func(tx *store.Tx) { snap = tx.Requests() })
		for _, r := range snap {
			if !f.match(r) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}
