package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/models"
	"github.com/noah-isme/aruna-lms-api/internal/repository"
)

// ErrTraineeNotFound indicates no trainee exists for the given user.
var ErrTraineeNotFound = errors.New("trainee not found")

// ErrEnrollmentNotFound indicates no active enrollment links the trainee to the course.
var ErrEnrollmentNotFound = errors.New("active enrollment not found")

// ErrCourseNotFound indicates the course was not located.
var ErrCourseNotFound = errors.New("course not found")

// ErrUnsupportedEvaluationMode rejects courses whose mode the evaluator
// does not know. Unknown modes fail closed instead of falling through.
var ErrUnsupportedEvaluationMode = errors.New("unsupported evaluation mode")

// ErrCompletionRequirementsNotMet indicates the trainee has outstanding work.
var ErrCompletionRequirementsNotMet = errors.New("completion requirements not met")

// CompletionService evaluates whether a trainee may finish a course and, if
// so, completes the enrollment.
type CompletionService interface {
	FinishCourse(ctx context.Context, courseID, userID uint) error
}

type completionService struct {
	trainees    repository.TraineeRepository
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	progress    repository.ProgressRepository
	events      EventPublisher
	dashboards  DashboardInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCompletionService constructs the completion evaluator.
func NewCompletionService(
	trainees repository.TraineeRepository,
	enrollments repository.EnrollmentRepository,
	courses repository.CourseRepository,
	progress repository.ProgressRepository,
	events EventPublisher,
	dashboards DashboardInvalidator,
	logger zerolog.Logger,
) CompletionService {
	return &completionService{
		trainees:    trainees,
		enrollments: enrollments,
		courses:     courses,
		progress:    progress,
		events:      events,
		dashboards:  dashboards,
		logger:      logger.With().Str("component", "completion_service").Logger(),
		now:         time.Now,
	}
}

// verdict is the outcome of one evaluation-mode check.
type verdict struct {
	eligible bool
	passed   bool
	detail   string
}

func (s *completionService) FinishCourse(ctx context.Context, courseID, userID uint) error {
	tracer := otel.Tracer("github.com/noah-isme/aruna-lms-api/internal/service/completion")
	ctx, span := tracer.Start(ctx, "completion.finish_course")
	span.SetAttributes(
		attribute.Int64("completion.course_id", int64(courseID)),
		attribute.Int64("completion.user_id", int64(userID)),
	)
	defer span.End()

	trainee, err := s.trainees.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "trainee_not_found")
			return ErrTraineeNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("load trainee: %w", err)
	}

	enrollment, err := s.enrollments.GetActive(ctx, trainee.ID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "enrollment_not_found")
			return ErrEnrollmentNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("load enrollment: %w", err)
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "course_not_found")
			return ErrCourseNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("load course: %w", err)
	}

	rows, err := s.progress.ListByTraineeAndCourse(ctx, trainee.ID, courseID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("load progress: %w", err)
	}

	var result verdict
	switch course.EvaluationMode {
	case models.EvaluationModeLessons:
		result = evaluateLessons(course, rows)
	case models.EvaluationModeLessonsQuizzesExam:
		result = evaluateLessonsQuizzesExam(course, rows)
	default:
		span.SetStatus(codes.Error, "unsupported_mode")
		return fmt.Errorf("%w: %q", ErrUnsupportedEvaluationMode, course.EvaluationMode)
	}

	if !result.eligible {
		span.SetAttributes(attribute.String("completion.shortfall", result.detail))
		return fmt.Errorf("%w: %s", ErrCompletionRequirementsNotMet, result.detail)
	}

	completedAt := s.now()
	enrollment.Status = models.EnrollmentStatusCompleted
	enrollment.CompletionDate = &completedAt
	enrollment.FinalEvaluation = models.FinalEvaluationFailed
	if result.passed {
		enrollment.FinalEvaluation = models.FinalEvaluationPassed
	}

	if err := s.enrollments.Update(ctx, &enrollment); err != nil {
		span.RecordError(err)
		return fmt.Errorf("complete enrollment: %w", err)
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, SubjectCourseCompleted, map[string]interface{}{
			"course_id":        courseID,
			"trainee_id":       trainee.ID,
			"enrollment_id":    enrollment.ID,
			"final_evaluation": enrollment.FinalEvaluation,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("enrollment_id", enrollment.ID).Msg("failed to publish completed event")
		}
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, trainee.ID, courseID)
	}

	s.logger.Info().
		Uint("trainee_id", trainee.ID).
		Uint("course_id", courseID).
		Str("final_evaluation", enrollment.FinalEvaluation).
		Msg("course completed")

	span.SetAttributes(attribute.Bool("completion.passed", result.passed))
	return nil
}

func evaluateLessons(course models.Course, rows []models.CourseItemProgress) verdict {
	lessonIDs := course.LessonIDs()
	completed := countCompletedLessons(lessonIDs, rows)
	eligible := len(lessonIDs) > 0 && completed >= len(lessonIDs)

	return verdict{
		eligible: eligible,
		passed:   eligible,
		detail:   fmt.Sprintf("completed %d/%d lessons", completed, len(lessonIDs)),
	}
}

func evaluateLessonsQuizzesExam(course models.Course, rows []models.CourseItemProgress) verdict {
	lessonIDs := course.LessonIDs()
	completedLessons := countCompletedLessons(lessonIDs, rows)
	lessonsDone := completedLessons == len(lessonIDs)

	byAssessment := make(map[uint]models.CourseItemProgress)
	for _, row := range rows {
		if row.ItemType == models.CourseItemAssessment {
			byAssessment[row.ItemID] = row
		}
	}

	quizIDs := course.QuizIDs()
	quizzesSubmitted := 0
	quizzesPassed := 0
	for _, id := range quizIDs {
		row, ok := byAssessment[id]
		if !ok {
			continue
		}
		quizzesSubmitted++
		if row.Status == models.ProgressStatusPassed {
			quizzesPassed++
		}
	}
	allQuizzesSubmitted := quizzesSubmitted == len(quizIDs)
	allQuizzesPassed := quizzesPassed == len(quizIDs)

	// An unconfigured final exam satisfies both checks vacuously.
	examSubmitted := true
	examPassed := true
	if course.FinalExamID != nil {
		row, ok := byAssessment[*course.FinalExamID]
		examSubmitted = ok
		examPassed = ok && row.Status == models.ProgressStatusPassed
	}

	parts := []string{
		fmt.Sprintf("completed %d/%d lessons", completedLessons, len(lessonIDs)),
		fmt.Sprintf("submitted %d/%d quizzes", quizzesSubmitted, len(quizIDs)),
	}
	if course.FinalExamID != nil {
		examState := "final exam not submitted"
		if examSubmitted {
			examState = "final exam submitted"
		}
		parts = append(parts, examState)
	}

	return verdict{
		eligible: lessonsDone && allQuizzesSubmitted && examSubmitted,
		passed:   lessonsDone && allQuizzesPassed && examPassed,
		detail:   strings.Join(parts, ", "),
	}
}

func countCompletedLessons(lessonIDs []uint, rows []models.CourseItemProgress) int {
	wanted := make(map[uint]struct{}, len(lessonIDs))
	for _, id := range lessonIDs {
		wanted[id] = struct{}{}
	}

	completed := 0
	for _, row := range rows {
		if row.ItemType != models.CourseItemLesson || !row.IsCompleted {
			continue
		}
		if _, ok := wanted[row.ItemID]; ok {
			completed++
		}
	}
	return completed
}
