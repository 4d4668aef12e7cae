package model

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/safing/portsync/database/document"
)

// Registry holds the record classes of an application.
type Registry struct {
	lock    sync.RWMutex
	classes map[string]*Class
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*Class),
	}
}

// Register registers a class with the given declared attributes.
func (r *Registry) Register(name string, attributes ...string) (*Class, error) {
	if name == "" {
		return nil, ErrInvalidClassName
	}
	for i, attribute := range attributes {
		if document.IsReserved(attribute) {
			return nil, fmt.Errorf("%w: %s.%s", ErrReservedAttribute, name, attribute)
		}
		if slices.Contains(attributes[:i], attribute) {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateAttribute, name, attribute)
		}
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.classes[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrClassExists, name)
	}
	class := newClass(name, slices.Clone(attributes), false)
	r.classes[name] = class
	return class, nil
}

// Get returns the class with the given name.
func (r *Registry) Get(name string) (*Class, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	class, ok := r.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	return class, nil
}

// Ensure returns the class with the given name, registering a dynamic class
// if it does not exist.
func (r *Registry) Ensure(name string) (*Class, error) {
	if name == "" {
		return nil, ErrInvalidClassName
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	class, ok := r.classes[name]
	if !ok {
		class = newClass(name, nil, true)
		r.classes[name] = class
	}
	return class, nil
}

// Names returns the names of all classes, sorted.
func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	names := maps.Keys(r.classes)
	slices.Sort(names)
	return names
}
