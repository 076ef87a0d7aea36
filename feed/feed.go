// Package feed is an in-process change notification bus, keyed by company.
// Models publish after every transaction mutation; the store layer subscribes
// to refresh ledger snapshots. Keeping it in a tiny package avoids an import
// cycle between models and store.
package feed

import "sync"

type subscriber struct {
	id int
	ch chan struct{}
}

var (
	mu     sync.Mutex
	nextId int
	subs   = map[string][]subscriber{}
)

// Subscribe registers interest in changes for a company. The returned channel
// has capacity 1 and coalesces bursts: a slow consumer sees at most one
// pending notification. Call the returned cancel func to unsubscribe.
func Subscribe(companyId string) (<-chan struct{}, func()) {
	mu.Lock()
	defer mu.Unlock()
	nextId++
	sub := subscriber{id: nextId, ch: make(chan struct{}, 1)}
	subs[companyId] = append(subs[companyId], sub)

	id := sub.id
	cancel := func() {
		mu.Lock()
		defer mu.Unlock()
		list := subs[companyId]
		for i, s := range list {
			if s.id == id {
				subs[companyId] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(subs[companyId]) == 0 {
			delete(subs, companyId)
		}
	}
	return sub.ch, cancel
}

// Publish notifies all subscribers of a company. Never blocks: if a
// subscriber already has a pending notification the new one is dropped,
// which is fine because notifications carry no payload.
func Publish(companyId string) {
	mu.Lock()
	defer mu.Unlock()
	for _, s := range subs[companyId] {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}
