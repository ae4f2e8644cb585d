// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entry

import (
	"github.com/pkg/errors"
)

// ErrDuplicateName is returned when registering a second Entry with
// a name that is already in use.
var ErrDuplicateName = errors.New("duplicate entry name")

// A Registry is an ordered set of Entries with unique names. Entries
// are timed in registration order.
type Registry struct {
	entries []Entry
	byName  map[string]int
}

// NewRegistry returns a Registry holding entries, in order.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := new(Registry)
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends e to r.
func (r *Registry) Register(e Entry) error {
	if e == nil {
		return errors.New("registering nil entry")
	}
	name := e.Name()
	if name == "" {
		return errors.New("entry name must not be empty")
	}
	if r.byName == nil {
		r.byName = make(map[string]int)
	}
	if _, ok := r.byName[name]; ok {
		return errors.Wrapf(ErrDuplicateName, "registering %q", name)
	}
	r.byName[name] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (Entry, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.entries[i], true
}

// Entries returns the registered entries in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name()
	}
	return names
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.entries)
}
