package controller

import "github.com/fastygo/todo/domain"

// ActionKind tags a PendingAction.
type ActionKind int

const (
	// ActionAdd prepends a speculative todo while its Create is in flight.
	ActionAdd ActionKind = iota + 1
	// ActionReset replaces the working list with Snapshot after a failed Add.
	ActionReset
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdd:
		return "add"
	case ActionReset:
		return "reset"
	default:
		return "unknown"
	}
}

// PendingAction is one entry of the speculative overlay log.
//
// For ActionAdd, Todo is the temporary row and Snapshot the authoritative list
// as it was when the call was issued (the rollback target). For ActionReset,
// Snapshot is the list to show.
type PendingAction struct {
	Kind     ActionKind
	Todo     domain.Todo
	Snapshot []domain.Todo

	seq uint64
}

// Fold computes the effective list from the authoritative list and the
// pending log. It never modifies its inputs and always returns a new slice.
func Fold(authoritative []domain.Todo, pending []PendingAction) []domain.Todo {
	view := authoritative
	for _, action := range pending {
		switch action.Kind {
		case ActionAdd:
			view = prepend(action.Todo)(view)
		case ActionReset:
			view = action.Snapshot
		}
	}
	out := make([]domain.Todo, len(view))
	copy(out, view)
	return out
}

// transform is an id-keyed whole-list rewrite. Implementations allocate a
// new slice so published lists are never mutated.
type transform func([]domain.Todo) []domain.Todo

func prepend(todo domain.Todo) transform {
	return func(list []domain.Todo) []domain.Todo {
		out := make([]domain.Todo, 0, len(list)+1)
		out = append(out, todo)
		for _, t := range list {
			if t.ID != todo.ID {
				out = append(out, t)
			}
		}
		return out
	}
}

func replace(todo domain.Todo) transform {
	return func(list []domain.Todo) []domain.Todo {
		out := make([]domain.Todo, len(list))
		for i, t := range list {
			if t.ID == todo.ID {
				t = todo
			}
			out[i] = t
		}
		return out
	}
}

func remove(id int64) transform {
	return func(list []domain.Todo) []domain.Todo {
		out := make([]domain.Todo, 0, len(list))
		for _, t := range list {
			if t.ID != id {
				out = append(out, t)
			}
		}
		return out
	}
}

func replaceAll(todos []domain.Todo) transform {
	return func([]domain.Todo) []domain.Todo {
		out := make([]domain.Todo, len(todos))
		copy(out, todos)
		return out
	}
}
