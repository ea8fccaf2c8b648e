package pagination

import (
	"context"
	"iter"

	"channel-insight/domain/repository"
	"channel-insight/infrastructure/logger"
)

// maxPages stops a listing whose continuation tokens never run out
const maxPages = 1000

// PageFunc lists one page of a scope and returns the next continuation token,
// empty when the listing is exhausted.
type PageFunc[T any] func(ctx context.Context, api repository.IContentAPI, scopeID, pageToken string) ([]T, string, error)

// Fetcher walks a cursor-based listing page by page
type Fetcher[T any] struct {
	op      string
	session *Session
	limiter Limiter
	page    PageFunc[T]
}

func NewFetcher[T any](op string, session *Session, limiter Limiter, page PageFunc[T]) *Fetcher[T] {
	return &Fetcher[T]{op: op, session: session, limiter: limiter, page: page}
}

// ListPage fetches one page after waiting on the limiter.
func (f *Fetcher[T]) ListPage(ctx context.Context, scopeID, pageToken string) ([]T, string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}
	var (
		items []T
		next  string
	)
	err := f.session.Call(ctx, f.op, func(ctx context.Context, api repository.IContentAPI) error {
		var err error
		items, next, err = f.page(ctx, api, scopeID, pageToken)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return items, next, nil
}

// FetchAll lazily yields items across pages until the listing ends or
// maxItems (when > 0) items were yielded. A failure is yielded once, last.
func (f *Fetcher[T]) FetchAll(ctx context.Context, scopeID string, maxItems int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		token := ""
		count := 0
		for page := 0; ; page++ {
			if page == maxPages {
				logger.GetLogger().WithField("op", f.op).WithField("scopeId", scopeID).Warn("Page limit reached, stopping listing")
				return
			}
			items, next, err := f.ListPage(ctx, scopeID, token)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if maxItems > 0 && count >= maxItems {
					return
				}
				if !yield(item, nil) {
					return
				}
				count++
			}
			if next == "" || (maxItems > 0 && count >= maxItems) {
				return
			}
			token = next
		}
	}
}

// Collect drains a sequence, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
