package collection

import (
	"sort"
	"sync"
)

// Guard is the sticky schema-not-ready flag of one group of collections. Once a
// table of the group is reported missing, no collection sharing the guard talks
// to the backend until Clear is called.
type Guard struct {
	lock    sync.RWMutex
	missing map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{missing: map[string]struct{}{}}
}

func (g *Guard) Latch(table string) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.missing[table] = struct{}{}
}

func (g *Guard) Latched() bool {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return len(g.missing) > 0
}

// MissingTables lists the latched tables in name order.
func (g *Guard) MissingTables() []string {
	g.lock.RLock()
	defer g.lock.RUnlock()
	tables := make([]string, 0, len(g.missing))
	for t := range g.missing {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

func (g *Guard) Clear() {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.missing = map[string]struct{}{}
}
