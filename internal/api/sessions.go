package api

import (
	"sync"

	"menu-planner/internal/menu"
)

// sessionRegistry hands out one editing store per menu, so overlapping
// generation requests contend on the same in-flight marker instead of each
// getting a fresh, uncontended store.
type sessionRegistry struct {
	mu     sync.Mutex
	stores map[int64]*menu.Store
}

// get returns the cached store for menuID, calling open to build one on a
// miss. open runs under the registry lock so two racing requests cannot
// both build a store for the same menu.
func (reg *sessionRegistry) get(menuID int64, open func() (*menu.Store, error)) (*menu.Store, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if store, ok := reg.stores[menuID]; ok {
		return store, nil
	}
	store, err := open()
	if err != nil {
		return nil, err
	}
	if reg.stores == nil {
		reg.stores = make(map[int64]*menu.Store)
	}
	reg.stores[menuID] = store
	return store, nil
}

// drop evicts the cached store after the menu changes outside of it, so the
// next request reloads from the database.
func (reg *sessionRegistry) drop(menuID int64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.stores, menuID)
}
