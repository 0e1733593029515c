package calendar_sync

import (
	"context"
	"sort"
	"sync"
)

type bindingKey struct {
	eventId int
	userId  int
}

type BindingRepositoryStub struct {
	mu       sync.RWMutex
	bindings map[bindingKey]Binding
	saveErr  error
}

func NewBindingRepositoryStub() *BindingRepositoryStub {
	return &BindingRepositoryStub{bindings: make(map[bindingKey]Binding)}
}

func (r *BindingRepositoryStub) GetBinding(ctx context.Context, eventId, userId int) (*Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[bindingKey{eventId, userId}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// FailSaves makes every following SaveBinding return err. A nil err restores saving.
func (r *BindingRepositoryStub) FailSaves(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

func (r *BindingRepositoryStub) SaveBinding(ctx context.Context, binding Binding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.bindings[bindingKey{binding.EventId, binding.UserId}] = binding
	return nil
}

func (r *BindingRepositoryStub) DeleteBinding(ctx context.Context, eventId, userId int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, bindingKey{eventId, userId})
	return nil
}

func (r *BindingRepositoryStub) GetEventBindings(ctx context.Context, eventId int) ([]Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Binding, 0)
	for key, b := range r.bindings {
		if key.eventId == eventId {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserId < result[j].UserId })
	return result, nil
}
