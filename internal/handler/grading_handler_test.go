package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/aruna-lms-api/internal/dto"
	"github.com/noah-isme/aruna-lms-api/internal/models"
	"github.com/noah-isme/aruna-lms-api/internal/repository"
	"github.com/noah-isme/aruna-lms-api/internal/service"
)

func newGradingApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := testDB(t,
		&models.Assessment{},
		&models.Question{},
		&models.QuestionOption{},
		&models.Submission{},
		&models.Answer{},
		&models.CourseItemProgress{},
	)

	svc := service.NewGradingService(
		repository.NewSubmissionRepository(db),
		repository.NewAnswerRepository(db),
		repository.NewAssessmentRepository(db),
		repository.NewProgressRepository(db),
		service.NewNATSPublisher(nil, zerolog.Nop()),
		nil,
		zerolog.Nop(),
	)
	h := NewGradingHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	app := fiber.New()
	h.Register(app.Group("/api/v1/submissions"))
	return app, db
}

func seedGradableSubmission(t *testing.T, db *gorm.DB) (models.Submission, models.Question) {
	t.Helper()

	assessment := models.Assessment{Title: "Safety quiz", PassingScore: 60}
	require.NoError(t, db.Create(&assessment).Error)

	question := models.Question{
		AssessmentID: assessment.ID,
		QuestionType: models.QuestionTypeSingleChoice,
		Points:       2,
		Position:     1,
		Options: []models.QuestionOption{
			{IsCorrect: true},
			{},
		},
	}
	require.NoError(t, db.Create(&question).Error)

	submission := models.Submission{
		TraineeID:    5,
		EnrollmentID: 6,
		AssessmentID: assessment.ID,
		CourseID:     7,
		Status:       models.SubmissionStatusInProgress,
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission, question
}

func TestGradeSubmissionOverHTTP(t *testing.T) {
	app, db := newGradingApp(t)
	submission, question := seedGradableSubmission(t, db)

	correctOption := question.Options[0].ID
	resp, err := app.Test(jsonRequest(http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/grade", submission.ID), map[string]interface{}{
		"answers": map[string]interface{}{
			fmt.Sprintf("%d", question.ID): correctOption,
		},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result dto.GradeResultResponse
	success, _ := decodeResponse(t, resp, &result)
	require.True(t, success)
	require.Equal(t, 100.0, result.Score)
	require.True(t, result.Passed)

	var stored models.Submission
	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	require.NotNil(t, stored.PassingScoreSnapshot)
	require.Equal(t, 60.0, *stored.PassingScoreSnapshot)

	var answers []models.Answer
	require.NoError(t, db.Where("submission_id = ?", submission.ID).Find(&answers).Error)
	require.Len(t, answers, 1)
	require.True(t, answers[0].IsCorrect)
	// Scalar payloads must survive the column round-trip byte for byte.
	require.JSONEq(t, fmt.Sprintf("%d", correctOption), string(answers[0].Response))

	var progress models.CourseItemProgress
	require.NoError(t, db.Where("trainee_id = ? AND item_id = ?", 5, submission.AssessmentID).First(&progress).Error)
	require.Equal(t, 1, progress.Attempts)
	require.Equal(t, models.ProgressStatusPassed, progress.Status)
}

func TestGradeSubmissionTwiceReturnsStoredResult(t *testing.T) {
	app, db := newGradingApp(t)
	submission, question := seedGradableSubmission(t, db)

	correct := map[string]interface{}{
		"answers": map[string]interface{}{fmt.Sprintf("%d", question.ID): question.Options[0].ID},
	}
	wrong := map[string]interface{}{
		"answers": map[string]interface{}{fmt.Sprintf("%d", question.ID): question.Options[1].ID},
	}

	resp, err := app.Test(jsonRequest(http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/grade", submission.ID), correct))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/grade", submission.ID), wrong))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var replayed dto.GradeResultResponse
	decodeResponse(t, resp, &replayed)
	require.Equal(t, 100.0, replayed.Score, "resubmission must not overwrite the stored result")

	var progress models.CourseItemProgress
	require.NoError(t, db.Where("trainee_id = ? AND item_id = ?", 5, submission.AssessmentID).First(&progress).Error)
	require.Equal(t, 1, progress.Attempts)
}

func TestGradeRequiresAnswers(t *testing.T) {
	app, db := newGradingApp(t)
	submission, _ := seedGradableSubmission(t, db)

	resp, err := app.Test(jsonRequest(http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/grade", submission.ID), map[string]interface{}{}))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGradeUnknownSubmissionReturnsNotFound(t *testing.T) {
	app, _ := newGradingApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/submissions/404/grade", map[string]interface{}{
		"answers": map[string]interface{}{},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGradeInvalidIDReturnsBadRequest(t *testing.T) {
	app, _ := newGradingApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/submissions/abc/grade", map[string]interface{}{
		"answers": map[string]interface{}{},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
