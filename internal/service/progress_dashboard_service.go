package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/aruna-lms-api/internal/dto"
	"github.com/noah-isme/aruna-lms-api/internal/models"
	"github.com/noah-isme/aruna-lms-api/internal/repository"
)

// ProgressDashboardService produces the cached per-trainee course progress view.
type ProgressDashboardService interface {
	DashboardInvalidator
	GetDashboard(ctx context.Context, traineeID, courseID uint) (dto.CourseDashboardResponse, error)
}

type progressDashboardService struct {
	progress repository.ProgressRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewProgressDashboardService builds the dashboard aggregator.
func NewProgressDashboardService(progress repository.ProgressRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ProgressDashboardService {
	return &progressDashboardService{
		progress: progress,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "progress_dashboard_service").Logger(),
	}
}

func dashboardCacheKey(traineeID, courseID uint) string {
	return fmt.Sprintf("dashboard:trainee:%d:course:%d", traineeID, courseID)
}

func (s *progressDashboardService) GetDashboard(ctx context.Context, traineeID, courseID uint) (dto.CourseDashboardResponse, error) {
	cacheKey := dashboardCacheKey(traineeID, courseID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.CourseDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("trainee_id", traineeID).Uint("course_id", courseID).Msg("dashboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	rows, err := s.progress.ListByTraineeAndCourse(ctx, traineeID, courseID)
	if err != nil {
		return dto.CourseDashboardResponse{}, err
	}

	response := buildDashboard(traineeID, courseID, rows)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

// Invalidate drops the cached view after a grading or completion write.
func (s *progressDashboardService) Invalidate(ctx context.Context, traineeID, courseID uint) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, dashboardCacheKey(traineeID, courseID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("trainee_id", traineeID).Msg("failed to invalidate dashboard cache")
	}
}

func buildDashboard(traineeID, courseID uint, rows []models.CourseItemProgress) dto.CourseDashboardResponse {
	summary := dto.ProgressSummary{TotalItems: len(rows)}
	items := make([]dto.ItemProgress, 0, len(rows))

	for _, row := range rows {
		if row.IsCompleted {
			summary.Completed++
		}
		switch row.Status {
		case models.ProgressStatusPassed:
			summary.Passed++
		case models.ProgressStatusFailed:
			summary.Failed++
		case models.ProgressStatusInProgress:
			summary.InProgress++
		}

		items = append(items, dto.ItemProgress{
			ItemType:       string(row.ItemType),
			ItemID:         row.ItemID,
			Status:         row.Status,
			IsCompleted:    row.IsCompleted,
			Attempts:       row.Attempts,
			CompletedAt:    row.CompletedAt,
			LastAccessedAt: row.LastAccessedAt,
		})
	}

	if summary.TotalItems > 0 {
		summary.CompletionRate = (float64(summary.Completed) / float64(summary.TotalItems)) * 100
	}

	return dto.CourseDashboardResponse{
		TraineeID: traineeID,
		CourseID:  courseID,
		Summary:   summary,
		Items:     items,
	}
}
