package state

import (
	"fmt"
	"sort"
)

// RouteBinding maps one operation identifier to the module that executes it.
// The human-readable operation name is stored alongside for introspection.
type RouteBinding struct {
	Module    string
	Operation string
}

// ModuleRoutes is the reverse index entry: one module with every operation
// currently bound to it.
type ModuleRoutes struct {
	Module     string
	Operations []string
}

func routeKey(id [4]byte) []byte {
	return joinKey(routeOpPrefix, id[:])
}

// RouteGet resolves the operation identifier to its binding.
func (m *Manager) RouteGet(id [4]byte) (*RouteBinding, bool, error) {
	binding := new(RouteBinding)
	ok, err := m.loadRecord(routeKey(id), binding)
	if err != nil || !ok {
		return nil, false, err
	}
	return binding, true, nil
}

// RouteSet binds the operation identifier to a module and updates the reverse
// index.
func (m *Manager) RouteSet(id [4]byte, binding RouteBinding) error {
	if binding.Module == "" || binding.Operation == "" {
		return fmt.Errorf("state: route binding requires module and operation")
	}
	existing, ok, err := m.RouteGet(id)
	if err != nil {
		return err
	}
	if ok {
		if err := m.removeFromIndex(existing.Module, existing.Operation); err != nil {
			return err
		}
	}
	if err := m.storeRecord(routeKey(id), &binding); err != nil {
		return err
	}
	return m.addToIndex(binding.Module, binding.Operation)
}

// RouteDelete unbinds the operation identifier. Deleting an unbound route is
// a no-op.
func (m *Manager) RouteDelete(id [4]byte) error {
	binding, ok, err := m.RouteGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	m.delete(routeKey(id))
	return m.removeFromIndex(binding.Module, binding.Operation)
}

// RouteIndex returns the routing table grouped by module, modules and
// operations both sorted.
func (m *Manager) RouteIndex() ([]ModuleRoutes, error) {
	var index []ModuleRoutes
	if _, err := m.loadRecord(routeIndexKey, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (m *Manager) writeIndex(index []ModuleRoutes) error {
	filtered := index[:0]
	for _, entry := range index {
		if len(entry.Operations) == 0 {
			continue
		}
		sort.Strings(entry.Operations)
		filtered = append(filtered, entry)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Module < filtered[j].Module
	})
	if len(filtered) == 0 {
		m.delete(routeIndexKey)
		return nil
	}
	return m.storeRecord(routeIndexKey, filtered)
}

func (m *Manager) addToIndex(module, operation string) error {
	index, err := m.RouteIndex()
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].Module != module {
			continue
		}
		for _, op := range index[i].Operations {
			if op == operation {
				return nil
			}
		}
		index[i].Operations = append(index[i].Operations, operation)
		return m.writeIndex(index)
	}
	index = append(index, ModuleRoutes{Module: module, Operations: []string{operation}})
	return m.writeIndex(index)
}

func (m *Manager) removeFromIndex(module, operation string) error {
	index, err := m.RouteIndex()
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].Module != module {
			continue
		}
		ops := index[i].Operations[:0]
		for _, op := range index[i].Operations {
			if op == operation {
				continue
			}
			ops = append(ops, op)
		}
		index[i].Operations = ops
		return m.writeIndex(index)
	}
	return nil
}
