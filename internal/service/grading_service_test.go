package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/dto"
	"github.com/noah-isme/aruna-lms-api/internal/models"
	"github.com/noah-isme/aruna-lms-api/internal/repository"
)

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.Submission
	// settled, when set, makes MarkSubmitted lose the transition and leaves
	// this row behind, as if a concurrent submit closed it first.
	settled *models.Submission
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *fakeSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.submissions[submission.ID] = *submission
	return nil
}

func (r *fakeSubmissionRepo) MarkSubmitted(_ context.Context, id uint, outcome repository.SubmissionOutcome) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settled != nil {
		r.submissions[id] = *r.settled
		return false, nil
	}

	submission, ok := r.submissions[id]
	if !ok || submission.Status != models.SubmissionStatusInProgress {
		return false, nil
	}

	submission.Status = models.SubmissionStatusSubmitted
	submission.Score = outcome.Score
	submission.PointsEarned = outcome.PointsEarned
	submission.PointsPossible = outcome.PointsPossible
	submission.PassingScoreSnapshot = &outcome.PassingScoreSnapshot
	submission.CompletedAt = &outcome.CompletedAt
	r.submissions[id] = submission
	return true, nil
}

type fakeAnswerRepo struct {
	mu      sync.Mutex
	nextID  uint
	answers map[uint]models.Answer
}

func (r *fakeAnswerRepo) ListBySubmission(_ context.Context, submissionID uint) ([]models.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.Answer
	for _, answer := range r.answers {
		if answer.SubmissionID == submissionID {
			result = append(result, answer)
		}
	}
	return result, nil
}

func (r *fakeAnswerRepo) Create(_ context.Context, answer *models.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	answer.ID = r.nextID
	r.answers[answer.ID] = *answer
	return nil
}

func (r *fakeAnswerRepo) Update(_ context.Context, answer *models.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.answers[answer.ID] = *answer
	return nil
}

type fakeAssessmentRepo struct {
	assessments map[uint]models.Assessment
}

func (r *fakeAssessmentRepo) GetByID(_ context.Context, id uint) (models.Assessment, error) {
	assessment, ok := r.assessments[id]
	if !ok {
		return models.Assessment{}, gorm.ErrRecordNotFound
	}
	return assessment, nil
}

type fakeProgressRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.CourseItemProgress
}

func (r *fakeProgressRepo) GetByItem(_ context.Context, traineeID, courseID uint, item models.ItemRef) (models.CourseItemProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if row.TraineeID == traineeID && row.CourseID == courseID && row.Item() == item {
			return row, nil
		}
	}
	return models.CourseItemProgress{}, gorm.ErrRecordNotFound
}

func (r *fakeProgressRepo) ListByTraineeAndCourse(_ context.Context, traineeID, courseID uint) ([]models.CourseItemProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.CourseItemProgress
	for _, row := range r.rows {
		if row.TraineeID == traineeID && row.CourseID == courseID {
			result = append(result, row)
		}
	}
	return result, nil
}

func (r *fakeProgressRepo) Create(_ context.Context, progress *models.CourseItemProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	progress.ID = r.nextID
	r.rows[progress.ID] = *progress
	return nil
}

func (r *fakeProgressRepo) Update(_ context.Context, progress *models.CourseItemProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows[progress.ID] = *progress
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subjects = append(p.subjects, subject)
	return nil
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (i *recordingInvalidator) Invalidate(_ context.Context, _, _ uint) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.calls++
}

type gradingFixture struct {
	service     GradingService
	submissions *fakeSubmissionRepo
	answers     *fakeAnswerRepo
	progress    *fakeProgressRepo
	events      *recordingPublisher
	dashboards  *recordingInvalidator
}

func newGradingFixture(assessment models.Assessment, submission models.Submission) gradingFixture {
	submissions := &fakeSubmissionRepo{submissions: map[uint]models.Submission{submission.ID: submission}}
	answers := &fakeAnswerRepo{answers: make(map[uint]models.Answer)}
	assessments := &fakeAssessmentRepo{assessments: map[uint]models.Assessment{assessment.ID: assessment}}
	progress := &fakeProgressRepo{rows: make(map[uint]models.CourseItemProgress)}
	events := &recordingPublisher{}
	dashboards := &recordingInvalidator{}

	return gradingFixture{
		service:     NewGradingService(submissions, answers, assessments, progress, events, dashboards, zerolog.Nop()),
		submissions: submissions,
		answers:     answers,
		progress:    progress,
		events:      events,
		dashboards:  dashboards,
	}
}

func responseOf(t *testing.T, raw string) dto.ResponseValue {
	t.Helper()

	var value dto.ResponseValue
	require.NoError(t, json.Unmarshal([]byte(raw), &value))
	return value
}

func singleChoiceAssessment() models.Assessment {
	return models.Assessment{
		ID: 1,
		Questions: []models.Question{
			{
				ID:           100,
				AssessmentID: 1,
				QuestionType: models.QuestionTypeSingleChoice,
				Points:       2,
				Options: []models.QuestionOption{
					{ID: 10, QuestionID: 100, IsCorrect: true},
					{ID: 11, QuestionID: 100},
				},
			},
		},
	}
}

func openSubmission() models.Submission {
	return models.Submission{
		ID:           1,
		TraineeID:    5,
		EnrollmentID: 6,
		AssessmentID: 1,
		CourseID:     7,
		Status:       models.SubmissionStatusInProgress,
	}
}

func TestGradeSingleChoiceCorrect(t *testing.T) {
	f := newGradingFixture(singleChoiceAssessment(), openSubmission())

	result, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{100: responseOf(t, `10`)},
	})
	require.NoError(t, err)
	require.Equal(t, 100.0, result.Score)
	require.True(t, result.Passed)
	require.Equal(t, 2.0, result.PointsEarned)
	require.Equal(t, 2.0, result.PointsPossible)

	stored, err := f.submissions.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	row, err := f.progress.GetByItem(context.Background(), 5, 7, models.ItemRef{Type: models.CourseItemAssessment, ID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, row.Attempts)
	require.Equal(t, models.ProgressStatusPassed, row.Status)
	require.True(t, row.IsCompleted)

	require.Equal(t, []string{SubjectSubmissionGraded}, f.events.subjects)
	require.Equal(t, 1, f.dashboards.calls)
}

func TestGradeSingleChoiceIncorrect(t *testing.T) {
	f := newGradingFixture(singleChoiceAssessment(), openSubmission())

	result, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{100: responseOf(t, `11`)},
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.Score)
	require.False(t, result.Passed)

	row, err := f.progress.GetByItem(context.Background(), 5, 7, models.ItemRef{Type: models.CourseItemAssessment, ID: 1})
	require.NoError(t, err)
	require.Equal(t, models.ProgressStatusFailed, row.Status)
	require.True(t, row.IsCompleted)
}

func TestGradeExpandedReferenceShape(t *testing.T) {
	f := newGradingFixture(singleChoiceAssessment(), openSubmission())

	result, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{100: responseOf(t, `{"id": 10}`)},
	})
	require.NoError(t, err)
	require.True(t, result.Passed)
}

func TestGradeMissingResponseIsIncorrect(t *testing.T) {
	f := newGradingFixture(singleChoiceAssessment(), openSubmission())

	result, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{},
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.PointsEarned)
	require.Equal(t, 2.0, result.PointsPossible)
	require.False(t, result.Passed)
}

func TestGradeMultipleChoiceRequiresExactSet(t *testing.T) {
	assessment := models.Assessment{
		ID: 1,
		Questions: []models.Question{
			{
				ID:           200,
				AssessmentID: 1,
				QuestionType: models.QuestionTypeMultipleChoice,
				Options: []models.QuestionOption{
					{ID: 10, QuestionID: 200, IsCorrect: true},
					{ID: 11, QuestionID: 200},
					{ID: 12, QuestionID: 200, IsCorrect: true},
					{ID: 13, QuestionID: 200},
				},
			},
		},
	}

	cases := []struct {
		name     string
		response string
		correct  bool
	}{
		{"exact set", `[10, 12]`, true},
		{"order does not matter", `[12, 10]`, true},
		{"partial selection", `[10]`, false},
		{"extra selection", `[10, 12, 13]`, false},
		{"wrong set", `[11, 13]`, false},
		{"unrecognized shape", `{"choices": [10, 12]}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newGradingFixture(assessment, openSubmission())

			result, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
				Answers: map[uint]dto.ResponseValue{200: responseOf(t, tc.response)},
			})
			require.NoError(t, err)
			require.Equal(t, tc.correct, result.PointsEarned == 1)
		})
	}
}

func TestGradeMultipleChoiceWithoutCorrectOptionsNeverScores(t *testing.T) {
	assessment := models.Assessment{
		ID: 1,
		Questions: []models.Question{
			{
				ID:           300,
				AssessmentID: 1,
				QuestionType: models.QuestionTypeMultipleChoice,
				Options: []models.QuestionOption{
					{ID: 10, QuestionID: 300},
					{ID: 11, QuestionID: 300},
				},
			},
		},
	}
	f := newGradingFixture(assessment, openSubmission())

	result, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{300: responseOf(t, `[]`)},
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.PointsEarned)
}

func TestGradeZeroPossiblePoints(t *testing.T) {
	f := newGradingFixture(models.Assessment{ID: 1}, openSubmission())

	result, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{},
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.Score)
	require.False(t, result.Passed)
}

func TestGradeIsIdempotentAfterSubmit(t *testing.T) {
	f := newGradingFixture(singleChoiceAssessment(), openSubmission())
	payload := dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{100: responseOf(t, `10`)},
	}

	first, err := f.service.Grade(context.Background(), 1, payload)
	require.NoError(t, err)

	// A second submit must replay the stored result without touching
	// answers, progress or events again.
	second, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{100: responseOf(t, `11`)},
	})
	require.NoError(t, err)
	require.Equal(t, first, second)

	row, err := f.progress.GetByItem(context.Background(), 5, 7, models.ItemRef{Type: models.CourseItemAssessment, ID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, row.Attempts)
	require.Len(t, f.events.subjects, 1)
}

func TestGradeLostRaceReturnsStoredResult(t *testing.T) {
	submission := openSubmission()
	f := newGradingFixture(singleChoiceAssessment(), submission)

	// The competing submit has stored its aggregates by the time this call
	// tries the status transition.
	snapshot := 70.0
	settled := submission
	settled.Status = models.SubmissionStatusSubmitted
	settled.Score = 42
	settled.PointsEarned = 1
	settled.PointsPossible = 2
	settled.PassingScoreSnapshot = &snapshot
	f.submissions.settled = &settled

	result, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{100: responseOf(t, `10`)},
	})
	require.NoError(t, err)
	require.Equal(t, 42.0, result.Score)
	require.False(t, result.Passed)
}

func TestGradeRetriesIncrementAttempts(t *testing.T) {
	f := newGradingFixture(singleChoiceAssessment(), openSubmission())

	_, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{100: responseOf(t, `11`)},
	})
	require.NoError(t, err)

	// Reopen as a new attempt against the same assessment.
	retry := openSubmission()
	retry.ID = 2
	retry.AttemptNumber = 2
	f.submissions.submissions[2] = retry

	_, err = f.service.Grade(context.Background(), 2, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{100: responseOf(t, `10`)},
	})
	require.NoError(t, err)

	row, err := f.progress.GetByItem(context.Background(), 5, 7, models.ItemRef{Type: models.CourseItemAssessment, ID: 1})
	require.NoError(t, err)
	require.Equal(t, 2, row.Attempts)
	require.Equal(t, models.ProgressStatusPassed, row.Status)
}

func TestGradeSubmissionNotFound(t *testing.T) {
	f := newGradingFixture(singleChoiceAssessment(), openSubmission())

	_, err := f.service.Grade(context.Background(), 404, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{},
	})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestGradeAssessmentNotFound(t *testing.T) {
	submission := openSubmission()
	submission.AssessmentID = 99
	f := newGradingFixture(singleChoiceAssessment(), submission)

	_, err := f.service.Grade(context.Background(), 1, dto.GradeSubmissionRequest{
		Answers: map[uint]dto.ResponseValue{},
	})
	require.ErrorIs(t, err, ErrAssessmentNotFound)
}
