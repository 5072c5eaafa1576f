package rankedqueuehandlers

import (
	"context"
	"time"

	rankedqueueservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/application"
)

type FakeService struct {
	EnqueueFunc   func(ctx context.Context, userID string) (*rankedqueueservice.EnqueueResult, error)
	LeaveFunc     func(ctx context.Context, userID string) error
	StatusFunc    func(ctx context.Context, userID string) (rankedqueueservice.QueueStatus, error)
	PollMatchFunc func(ctx context.Context, userID string) (rankedqueueservice.PollResult, error)
}

var _ rankedqueueservice.Service = (*FakeService)(nil)

func (f *FakeService) Enqueue(ctx context.Context, userID string) (*rankedqueueservice.EnqueueResult, error) {
	return f.EnqueueFunc(ctx, userID)
}

func (f *FakeService) LeaveQueue(ctx context.Context, userID string) error {
	return f.LeaveFunc(ctx, userID)
}

func (f *FakeService) TryMatch(context.Context) (rankedqueueservice.MatchResult, error) {
	return rankedqueueservice.MatchResult{}, nil
}

func (f *FakeService) PollMatch(ctx context.Context, userID string) (rankedqueueservice.PollResult, error) {
	return f.PollMatchFunc(ctx, userID)
}

func (f *FakeService) Status(ctx context.Context, userID string) (rankedqueueservice.QueueStatus, error) {
	return f.StatusFunc(ctx, userID)
}

func (f *FakeService) CleanupStale(context.Context, time.Duration) (int, error) {
	return 0, nil
}
