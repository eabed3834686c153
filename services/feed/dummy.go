package feedsvc

import (
	"context"
	"sync"

	"github.com/kahero/ratiba/core"
)

// dummyService keeps dashboard records in memory, keyed by recipient.
// Used in tests and for local hacking without a feed backend.
type dummyService struct {
	mu    sync.RWMutex
	feeds map[string]map[string]core.DashboardRecord // recipient id -> record id -> record
	err   error
}

var _ core.FeedService = (*dummyService)(nil)

func NewDummyService() *dummyService {
	return &dummyService{feeds: make(map[string]map[string]core.DashboardRecord)}
}

func (svc *dummyService) Upsert(ctx context.Context, recipientID string, rec core.DashboardRecord) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.err != nil {
		return svc.err
	}
	feed, ok := svc.feeds[recipientID]
	if !ok {
		feed = make(map[string]core.DashboardRecord)
		svc.feeds[recipientID] = feed
	}
	feed[rec.ID] = rec
	return nil
}

// Feed returns the records delivered to a recipient, in no particular order.
func (svc *dummyService) Feed(recipientID string) []core.DashboardRecord {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	recs := make([]core.DashboardRecord, 0, len(svc.feeds[recipientID]))
	for _, rec := range svc.feeds[recipientID] {
		recs = append(recs, rec)
	}
	return recs
}

// Fail makes every subsequent Upsert return err; nil restores delivery.
func (svc *dummyService) Fail(err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.err = err
}
