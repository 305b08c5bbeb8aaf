package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aruna-lms-api/internal/models"
)

// countingProgressRepo wraps the in-memory repo to observe cache misses.
type countingProgressRepo struct {
	fakeProgressRepo
	mu    sync.Mutex
	lists int
}

func (r *countingProgressRepo) ListByTraineeAndCourse(ctx context.Context, traineeID, courseID uint) ([]models.CourseItemProgress, error) {
	r.mu.Lock()
	r.lists++
	r.mu.Unlock()

	return r.fakeProgressRepo.ListByTraineeAndCourse(ctx, traineeID, courseID)
}

func newDashboardFixture(t *testing.T) (ProgressDashboardService, *countingProgressRepo) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := &countingProgressRepo{fakeProgressRepo: fakeProgressRepo{rows: make(map[uint]models.CourseItemProgress)}}
	svc := NewProgressDashboardService(repo, client, time.Minute, zerolog.Nop())
	return svc, repo
}

func TestGetDashboardAggregatesProgress(t *testing.T) {
	svc, repo := newDashboardFixture(t)

	seed := []models.CourseItemProgress{
		{TraineeID: 5, CourseID: 7, ItemType: models.CourseItemLesson, ItemID: 1, Status: models.ProgressStatusPassed, IsCompleted: true},
		{TraineeID: 5, CourseID: 7, ItemType: models.CourseItemLesson, ItemID: 2, Status: models.ProgressStatusInProgress},
		{TraineeID: 5, CourseID: 7, ItemType: models.CourseItemAssessment, ItemID: 40, Status: models.ProgressStatusFailed, IsCompleted: true},
		{TraineeID: 9, CourseID: 7, ItemType: models.CourseItemLesson, ItemID: 1, Status: models.ProgressStatusPassed, IsCompleted: true},
	}
	for i := range seed {
		require.NoError(t, repo.Create(context.Background(), &seed[i]))
	}

	dashboard, err := svc.GetDashboard(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, uint(5), dashboard.TraineeID)
	require.Equal(t, 3, dashboard.Summary.TotalItems)
	require.Equal(t, 2, dashboard.Summary.Completed)
	require.Equal(t, 1, dashboard.Summary.Passed)
	require.Equal(t, 1, dashboard.Summary.Failed)
	require.Equal(t, 1, dashboard.Summary.InProgress)
	require.InDelta(t, 66.66, dashboard.Summary.CompletionRate, 0.01)
	require.Len(t, dashboard.Items, 3)
}

func TestGetDashboardServesFromCache(t *testing.T) {
	svc, repo := newDashboardFixture(t)

	row := models.CourseItemProgress{TraineeID: 5, CourseID: 7, ItemType: models.CourseItemLesson, ItemID: 1, IsCompleted: true, Status: models.ProgressStatusPassed}
	require.NoError(t, repo.Create(context.Background(), &row))

	first, err := svc.GetDashboard(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, 1, repo.lists)

	second, err := svc.GetDashboard(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, 1, repo.lists, "second read must hit the cache")
	require.Equal(t, first, second)
}

func TestInvalidateDropsCachedDashboard(t *testing.T) {
	svc, repo := newDashboardFixture(t)

	_, err := svc.GetDashboard(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, 1, repo.lists)

	svc.Invalidate(context.Background(), 5, 7)

	_, err = svc.GetDashboard(context.Background(), 5, 7)
	require.NoError(t, err)
	require.Equal(t, 2, repo.lists, "invalidation must force a recompute")
}

func TestDashboardsAreScopedPerTraineeAndCourse(t *testing.T) {
	svc, repo := newDashboardFixture(t)

	_, err := svc.GetDashboard(context.Background(), 5, 7)
	require.NoError(t, err)

	_, err = svc.GetDashboard(context.Background(), 5, 8)
	require.NoError(t, err)
	require.Equal(t, 2, repo.lists, "different courses must not share cache entries")
}
