package ingest

import (
	"sync"

	"subsniff/internal/naming"
)

// TabRegistry maps tab identifiers to the page currently shown in them. The
// observation client reports navigation events; response observations then
// resolve their tab to a page for naming. Bounded: stale tabs are dropped
// once the registry grows past its limit.
type TabRegistry struct {
	mu    sync.Mutex
	pages map[string]naming.PageContext
	order []string
	limit int
}

const defaultTabLimit = 200

func NewTabRegistry() *TabRegistry {
	return &TabRegistry{
		pages: make(map[string]naming.PageContext),
		limit: defaultTabLimit,
	}
}

// Update records the page a tab currently shows. Re-navigation of a known
// tab replaces its page and refreshes its age.
func (t *TabRegistry) Update(tabID string, page naming.PageContext) {
	if tabID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.pages[tabID]; ok {
		for i, id := range t.order {
			if id == tabID {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	}
	t.pages[tabID] = page
	t.order = append(t.order, tabID)

	for len(t.order) > t.limit {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.pages, oldest)
	}
}

// Remove forgets a closed tab.
func (t *TabRegistry) Remove(tabID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pages[tabID]; !ok {
		return
	}
	delete(t.pages, tabID)
	for i, id := range t.order {
		if id == tabID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Resolve implements PageResolver.
func (t *TabRegistry) Resolve(tabID string) (naming.PageContext, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	page, ok := t.pages[tabID]
	return page, ok
}

// Len reports the number of tracked tabs.
func (t *TabRegistry) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pages)
}
