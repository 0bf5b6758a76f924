package main

import (
	"context"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/sramanpati48-hue/TripMate-Modified-sub001/store"
)

type dataLoaderContextKey string

const dataLoaderKey dataLoaderContextKey = "dataloader"

type summaryFetcher interface {
	UserSummaries(ctx context.Context, ids []int) (map[int]store.UserSummary, error)
}

// dataLoaders holds the per-request batch loaders.
type dataLoaders struct {
	users *dataloader.Loader[int, *store.UserSummary]
}

func newDataLoaders(f summaryFetcher) *dataLoaders {
	return &dataLoaders{
		users: dataloader.NewBatchedLoader(userSummaryBatchFn(f),
			dataloader.WithWait[int, *store.UserSummary](2*time.Millisecond)),
	}
}

func withDataLoaders(ctx context.Context, dl *dataLoaders) context.Context {
	return context.WithValue(ctx, dataLoaderKey, dl)
}

func dataLoadersFrom(ctx context.Context) *dataLoaders {
	dl, _ := ctx.Value(dataLoaderKey).(*dataLoaders)
	return dl
}

// userSummaryBatchFn answers a batch of ids with one query. Ids without a
// user get store.ErrNotFound.
func userSummaryBatchFn(f summaryFetcher) dataloader.BatchFunc[int, *store.UserSummary] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[*store.UserSummary] {
		results := make([]*dataloader.Result[*store.UserSummary], len(keys))

		found, err := f.UserSummaries(ctx, keys)
		for i, key := range keys {
			switch summary, ok := found[key]; {
			case err != nil:
				results[i] = &dataloader.Result[*store.UserSummary]{Error: err}
			case !ok:
				results[i] = &dataloader.Result[*store.UserSummary]{Error: store.ErrNotFound}
			default:
				results[i] = &dataloader.Result[*store.UserSummary]{Data: &summary}
			}
		}
		return results
	}
}

// dataLoaderMiddleware gives every request fresh loaders so nothing is
// cached across requests.
func dataLoaderMiddleware(f summaryFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := withDataLoaders(r.Context(), newDataLoaders(f))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loadSummary resolves one user through the request's loader, or directly
// when the request carries none.
func (s *server) loadSummary(ctx context.Context, id int) (*store.UserSummary, error) {
	if dl := dataLoadersFrom(ctx); dl != nil {
		return dl.users.Load(ctx, id)()
	}
	found, err := s.users.UserSummaries(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	summary, ok := found[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &summary, nil
}

// loadSummaries resolves ids in one batch. Entries that failed are nil.
func (s *server) loadSummaries(ctx context.Context, ids []int) []*store.UserSummary {
	if len(ids) == 0 {
		return nil
	}
	if dl := dataLoadersFrom(ctx); dl != nil {
		summaries, _ := dl.users.LoadMany(ctx, ids)()
		return summaries
	}
	out := make([]*store.UserSummary, len(ids))
	found, err := s.users.UserSummaries(ctx, ids)
	if err != nil {
		return out
	}
	for i, id := range ids {
		if summary, ok := found[id]; ok {
			out[i] = &summary
		}
	}
	return out
}
