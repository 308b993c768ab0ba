package param

import (
	"fmt"
	"math"
	"sync"
)

// Registry holds an in-process plugin's parameters in declaration order.
type Registry struct {
	params map[int32]*Parameter
	order  []int32
	mu     sync.RWMutex
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	return &Registry{
		params: make(map[int32]*Parameter),
	}
}

// Add registers parameters. Duplicate ids are rejected.
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			return fmt.Errorf("parameter ID %d already exists", p.ID)
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return nil
}

// Get retrieves a parameter by ID
func (r *Registry) Get(id int32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.params[id]
}

// GetByIndex retrieves a parameter by index
func (r *Registry) GetByIndex(index int32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= int32(len(r.order)) {
		return nil
	}
	return r.params[r.order[index]]
}

// IndexOf returns the declaration index of id, or -1.
func (r *Registry) IndexOf(id int32) int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, pid := range r.order {
		if pid == id {
			return int32(i)
		}
	}
	return -1
}

// Count returns the number of parameters
func (r *Registry) Count() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int32(len(r.order))
}

// All returns all parameters in order
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.params[id]
	}
	return result
}

// Apply sets the value addressed by u. The id wins over the index when both
// are present. It reports whether a parameter took the value.
//
// Apply does not lock so it can run on the audio thread; it must not race
// with Add. Register every parameter before the plugin is loaded.
func (r *Registry) Apply(u Update) bool {
	if math.IsNaN(float64(u.Value)) {
		return false
	}
	p := r.params[u.ID]
	if p == nil && u.Index >= 0 && u.Index < int32(len(r.order)) {
		p = r.params[r.order[u.Index]]
	}
	if p == nil || p.Flags&IsReadOnly != 0 {
		return false
	}
	p.SetValue(float64(u.Value))
	return true
}
