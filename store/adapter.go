// Package store is the transaction store adapter: it turns mutation
// notifications into complete snapshot deliveries for one company. Consumers
// always recompute derived views from a full snapshot; stale intermediate
// snapshots may be dropped (last-write-wins).
package store

import (
	"context"
	"sync"

	"bitbucket.org/mmdatafocus/ledgerbook_backend/config"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/feed"
	"bitbucket.org/mmdatafocus/ledgerbook_backend/models"
)

// SnapshotFunc receives the company's complete transaction set after every
// observed change. It runs on the subscription's goroutine; a slow consumer
// delays (and coalesces) later deliveries but never blocks publishers.
type SnapshotFunc func([]models.Transaction)

type fetchFunc func(ctx context.Context, companyId string) ([]models.Transaction, error)

// Adapter produces live snapshot subscriptions over the transaction store.
type Adapter struct {
	fetch fetchFunc
}

func NewAdapter() *Adapter {
	return &Adapter{fetch: models.TransactionsSnapshot}
}

// newAdapterWithFetch is for tests.
func newAdapterWithFetch(fetch fetchFunc) *Adapter {
	return &Adapter{fetch: fetch}
}

// Snapshot reads the company's complete transaction set once.
func (a *Adapter) Snapshot(ctx context.Context, companyId string) ([]models.Transaction, error) {
	return a.fetch(ctx, companyId)
}

// Subscription is one live snapshot stream. Close is idempotent.
type Subscription struct {
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
	})
	<-s.done
}

// Subscribe emits the current snapshot immediately, then re-emits the full
// current set after every change to the company's books, until Close or ctx
// cancellation. Change signals arriving while a snapshot is being fetched
// or delivered coalesce into a single re-emit.
func (a *Adapter) Subscribe(ctx context.Context, companyId string, onSnapshot SnapshotFunc) (*Subscription, error) {
	snapshot, err := a.fetch(ctx, companyId)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	feedCh, cancelFeed := feed.Subscribe(companyId)
	pubsub := config.SubscribeRedis(subCtx, models.BooksChannel(companyId))

	// merge in-process and cross-instance notifications into one
	// capacity-1 tick channel
	tick := make(chan struct{}, 1)
	notify := func() {
		select {
		case tick <- struct{}{}:
		default:
		}
	}

	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case <-feedCh:
				notify()
			}
		}
	}()

	if pubsub != nil {
		go func() {
			ch := pubsub.Channel()
			for {
				select {
				case <-subCtx.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					notify()
				}
			}
		}()
	}

	go func() {
		defer close(sub.done)
		defer cancelFeed()
		if pubsub != nil {
			defer pubsub.Close()
		}

		onSnapshot(snapshot)
		for {
			select {
			case <-subCtx.Done():
				return
			case <-tick:
				current, err := a.fetch(subCtx, companyId)
				if err != nil {
					logger := config.GetLogger()
					config.LogError(logger, "store", "Subscribe", "snapshot refresh failed", companyId, err)
					continue
				}
				onSnapshot(current)
			}
		}
	}()

	return sub, nil
}
