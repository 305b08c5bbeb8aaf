package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/dto"
	"github.com/noah-isme/aruna-lms-api/internal/models"
	"github.com/noah-isme/aruna-lms-api/internal/repository"
)

// ErrSubmissionNotFound indicates the submission was not located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAssessmentNotFound indicates the submission references a missing assessment.
var ErrAssessmentNotFound = errors.New("assessment not found")

// DashboardInvalidator drops cached progress views after grading or
// completion writes. Implementations must tolerate a nil receiver path.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, traineeID, courseID uint)
}

// GradingService grades submitted assessment attempts.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest) (dto.GradeResultResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	answers     repository.AnswerRepository
	assessments repository.AssessmentRepository
	progress    repository.ProgressRepository
	events      EventPublisher
	dashboards  DashboardInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(
	submissions repository.SubmissionRepository,
	answers repository.AnswerRepository,
	assessments repository.AssessmentRepository,
	progress repository.ProgressRepository,
	events EventPublisher,
	dashboards DashboardInvalidator,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		submissions: submissions,
		answers:     answers,
		assessments: assessments,
		progress:    progress,
		events:      events,
		dashboards:  dashboards,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

func (s *gradingService) Grade(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest) (dto.GradeResultResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/aruna-lms-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.submit")
	span.SetAttributes(attribute.Int64("grading.submission_id", int64(submissionID)))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.GradeResultResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.GradeResultResponse{}, fmt.Errorf("load submission: %w", err)
	}

	// A closed submission returns the stored result; grading never runs
	// twice and progress attempts are not incremented again.
	if !submission.IsOpen() {
		span.SetAttributes(attribute.Bool("grading.idempotent", true))
		return storedResult(submission), nil
	}

	assessment, err := s.assessments.GetByID(ctx, submission.AssessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "assessment_not_found")
			return dto.GradeResultResponse{}, ErrAssessmentNotFound
		}
		span.RecordError(err)
		return dto.GradeResultResponse{}, fmt.Errorf("load assessment: %w", err)
	}

	existing, err := s.answers.ListBySubmission(ctx, submission.ID)
	if err != nil {
		span.RecordError(err)
		return dto.GradeResultResponse{}, fmt.Errorf("load answers: %w", err)
	}

	existingByQuestion := make(map[uint]models.Answer, len(existing))
	for _, answer := range existing {
		existingByQuestion[answer.QuestionID] = answer
	}

	var pointsEarned, pointsPossible float64
	graded := make([]models.Answer, 0, len(assessment.Questions))

	for _, question := range assessment.Questions {
		possible := question.PossiblePoints()
		pointsPossible += possible

		response, answered := payload.Answers[question.ID]
		correct := answered && gradeQuestion(question, response)

		earned := 0.0
		if correct {
			earned = possible
		}
		pointsEarned += earned

		answer := existingByQuestion[question.ID]
		answer.SubmissionID = submission.ID
		answer.QuestionID = question.ID
		answer.QuestionType = question.QuestionType
		answer.Response = datatypes.JSON(response.Raw())
		answer.IsCorrect = correct
		answer.PointsEarned = earned
		graded = append(graded, answer)
	}

	if err := s.persistAnswers(ctx, graded); err != nil {
		span.RecordError(err)
		return dto.GradeResultResponse{}, fmt.Errorf("persist answers: %w", err)
	}

	// Aggregates come from the in-memory grading pass, not a re-read of
	// the persisted answers; a failed upsert aborts before this point.
	score := 0.0
	if pointsPossible > 0 {
		score = pointsEarned / pointsPossible * 100
	}

	threshold := assessment.PassingThreshold()
	if submission.PassingScoreSnapshot != nil && *submission.PassingScoreSnapshot > 0 {
		threshold = *submission.PassingScoreSnapshot
	}
	passed := score >= threshold

	won, err := s.submissions.MarkSubmitted(ctx, submission.ID, repository.SubmissionOutcome{
		Score:                score,
		PointsEarned:         pointsEarned,
		PointsPossible:       pointsPossible,
		PassingScoreSnapshot: threshold,
		CompletedAt:          s.now(),
	})
	if err != nil {
		span.RecordError(err)
		return dto.GradeResultResponse{}, fmt.Errorf("close submission: %w", err)
	}

	// A concurrent submit beat us to the transition; return what it stored.
	if !won {
		span.SetAttributes(attribute.Bool("grading.lost_race", true))
		settled, err := s.submissions.GetByID(ctx, submission.ID)
		if err != nil {
			span.RecordError(err)
			return dto.GradeResultResponse{}, fmt.Errorf("reload submission: %w", err)
		}
		return storedResult(settled), nil
	}

	if err := s.recordProgress(ctx, submission, passed); err != nil {
		span.RecordError(err)
		return dto.GradeResultResponse{}, fmt.Errorf("record progress: %w", err)
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, SubjectSubmissionGraded, map[string]interface{}{
			"submission_id": submission.ID,
			"trainee_id":    submission.TraineeID,
			"assessment_id": submission.AssessmentID,
			"course_id":     submission.CourseID,
			"score":         score,
			"passed":        passed,
		}); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish graded event")
		}
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, submission.TraineeID, submission.CourseID)
	}

	span.SetAttributes(
		attribute.Float64("grading.score", score),
		attribute.Bool("grading.passed", passed),
	)

	return dto.GradeResultResponse{
		Score:          score,
		Passed:         passed,
		PointsEarned:   pointsEarned,
		PointsPossible: pointsPossible,
	}, nil
}

// persistAnswers upserts one answer per question as a batch of independent
// writes, jointly awaited.
func (s *gradingService) persistAnswers(ctx context.Context, answers []models.Answer) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for i := range answers {
		answer := answers[i]
		group.Go(func() error {
			if answer.ID != 0 {
				return s.answers.Update(groupCtx, &answer)
			}
			return s.answers.Create(groupCtx, &answer)
		})
	}

	return group.Wait()
}

func (s *gradingService) recordProgress(ctx context.Context, submission models.Submission, passed bool) error {
	item := models.ItemRef{Type: models.CourseItemAssessment, ID: submission.AssessmentID}
	status := models.ProgressStatusFailed
	if passed {
		status = models.ProgressStatusPassed
	}
	now := s.now()

	row, err := s.progress.GetByItem(ctx, submission.TraineeID, submission.CourseID, item)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		row = models.CourseItemProgress{
			TraineeID:    submission.TraineeID,
			CourseID:     submission.CourseID,
			EnrollmentID: submission.EnrollmentID,
			ItemType:     item.Type,
			ItemID:       item.ID,
			Attempts:     1,
			Status:       status,
			IsCompleted:  true,
			CompletedAt:  &now,
		}
		row.LastAccessedAt = &now
		return s.progress.Create(ctx, &row)
	}

	row.Attempts++
	row.Status = status
	row.IsCompleted = true
	row.CompletedAt = &now
	row.LastAccessedAt = &now
	return s.progress.Update(ctx, &row)
}

// gradeQuestion applies the per-type correctness rule. Unrecognized types
// never score.
func gradeQuestion(question models.Question, response dto.ResponseValue) bool {
	switch question.QuestionType {
	case models.QuestionTypeSingleChoice, models.QuestionTypeTrueFalse:
		correct := question.CorrectOptionIDs()
		if len(correct) != 1 {
			return false
		}
		supplied, ok := response.Single()
		return ok && supplied == correct[0]
	case models.QuestionTypeMultipleChoice:
		return sameIDSet(response.IDs(), question.CorrectOptionIDs())
	default:
		return false
	}
}

// sameIDSet reports exact set equality; partial overlap never counts.
func sameIDSet(supplied, correct []uint) bool {
	if len(correct) == 0 {
		return false
	}

	suppliedSet := make(map[uint]struct{}, len(supplied))
	for _, id := range supplied {
		suppliedSet[id] = struct{}{}
	}
	if len(suppliedSet) != len(correct) {
		return false
	}
	for _, id := range correct {
		if _, ok := suppliedSet[id]; !ok {
			return false
		}
	}
	return true
}

func storedResult(submission models.Submission) dto.GradeResultResponse {
	return dto.GradeResultResponse{
		Score:          submission.Score,
		Passed:         submission.Passed(),
		PointsEarned:   submission.PointsEarned,
		PointsPossible: submission.PointsPossible,
	}
}
