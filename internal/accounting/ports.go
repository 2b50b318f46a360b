package accounting

import "context"

//go:generate mockgen -source=ports.go -destination=ports_mock.go -package=accounting

// CacheInvalidator drops derived read models after a commit.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// PostingObserver receives posting outcomes and retry notifications.
type PostingObserver interface {
	ObservePosting(kind, outcome string)
	ObserveRetry()
}
