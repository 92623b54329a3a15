package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/middleware"
	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/service"
	"github.com/campushq/timetable-api/pkg/config"
)

type fakeTemplateRepo struct {
	templates map[string]*models.ScheduleTemplate
}

func newFakeTemplateRepo(templates ...*models.ScheduleTemplate) *fakeTemplateRepo {
	repo := &fakeTemplateRepo{templates: map[string]*models.ScheduleTemplate{}}
	for _, tpl := range templates {
		repo.templates[tpl.ID] = tpl
	}
	return repo
}

func (f *fakeTemplateRepo) List(context.Context, models.TemplateFilter) ([]models.ScheduleTemplate, int, error) {
	out := make([]models.ScheduleTemplate, 0, len(f.templates))
	for _, tpl := range f.templates {
		out = append(out, *tpl)
	}
	return out, len(out), nil
}

func (f *fakeTemplateRepo) FindByID(_ context.Context, id string) (*models.ScheduleTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *tpl
	return &copied, nil
}

func (f *fakeTemplateRepo) Create(_ context.Context, tpl *models.ScheduleTemplate) error {
	tpl.ID = "tpl-created"
	f.templates[tpl.ID] = tpl
	return nil
}

func (f *fakeTemplateRepo) Update(_ context.Context, tpl *models.ScheduleTemplate) error {
	f.templates[tpl.ID] = tpl
	return nil
}

func (f *fakeTemplateRepo) SetApproval(_ context.Context, id string, status models.ApprovalStatus, isActive bool, _ string, _ time.Time, _ *string) error {
	tpl := f.templates[id]
	tpl.ApprovalStatus = status
	tpl.IsActive = isActive
	return nil
}

func (f *fakeTemplateRepo) Deactivate(_ context.Context, id string) error {
	f.templates[id].Deactivated = true
	return nil
}

func (f *fakeTemplateRepo) ListCandidates(context.Context, models.DayOfWeek, string, string, string) ([]models.ScheduleTemplate, error) {
	out := make([]models.ScheduleTemplate, 0, len(f.templates))
	for _, tpl := range f.templates {
		out = append(out, *tpl)
	}
	return out, nil
}

type fakeReferenceRepo struct{}

func (fakeReferenceRepo) CourseExists(context.Context, string) (bool, error)  { return true, nil }
func (fakeReferenceRepo) TeacherExists(context.Context, string) (bool, error) { return true, nil }
func (fakeReferenceRepo) ClassExists(context.Context, string) (bool, error)   { return true, nil }
func (fakeReferenceRepo) RoomExists(context.Context, string) (bool, error)    { return true, nil }

func newTemplateHandler(repo *fakeTemplateRepo) *TemplateHandler {
	conflicts := service.NewConflictService(repo, nil, nil, nil)
	templates := service.NewTemplateService(repo, fakeReferenceRepo{}, conflicts, nil, nil, nil, nil, nil,
		config.SchedulingConfig{RequireApproval: true})
	return NewTemplateHandler(templates, conflicts)
}

func withManagerClaims(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "manager-1",
		Email:  "manager@school.test",
		Role:   models.RoleManager,
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestTemplateHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTemplateHandler(newFakeTemplateRepo())

	payload := `{
		"course_id": "course-math",
		"teacher_id": "teacher-x",
		"class_id": "class-7a",
		"room": "101",
		"day_of_week": "MONDAY",
		"start_time": "09:00",
		"end_time": "10:30",
		"effective_from": "2026-09-01"
	}`

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/templates", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "PENDING", data["approval_status"])
	assert.Equal(t, false, data["is_active"])
}

func TestTemplateHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	existing := &models.ScheduleTemplate{
		ID:        "tpl-1",
		CourseID:  "course-bio",
		TeacherID: "teacher-x",
		ClassID:   "class-8b",
		DayOfWeek: models.DayMonday,
		StartTime: "09:00",
		EndTime:   "10:30",
	}
	handler := newTemplateHandler(newFakeTemplateRepo(existing))

	payload := `{
		"course_id": "course-math",
		"teacher_id": "teacher-x",
		"class_id": "class-7a",
		"day_of_week": "MONDAY",
		"start_time": "10:00",
		"end_time": "11:00",
		"effective_from": "2026-09-01"
	}`

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/templates", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeEnvelope(t, rec)
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "CONFLICT", errObj["code"])

	details := errObj["details"].(map[string]interface{})
	teacherConflicts := details["teacher_conflicts"].([]interface{})
	require.Len(t, teacherConflicts, 1)
	conflict := teacherConflicts[0].(map[string]interface{})
	assert.Equal(t, "tpl-1", conflict["template_id"])
	assert.Equal(t, "teacher-x", conflict["teacher_id"])
	assert.Equal(t, "MONDAY", conflict["day_of_week"])
	assert.Equal(t, "09:00", conflict["start_time"])
	assert.Equal(t, "10:30", conflict["end_time"])
}

func TestTemplateHandlerCheckConflictsClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTemplateHandler(newFakeTemplateRepo())

	payload := `{
		"teacher_id": "teacher-y",
		"room": "101",
		"day_of_week": "monday",
		"start_time": "10:30",
		"end_time": "11:30"
	}`

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/templates/check-conflicts", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.CheckConflicts(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, false, data["has_conflicts"])
}

func TestTemplateHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pending := &models.ScheduleTemplate{
		ID:             "tpl-1",
		CourseID:       "course-math",
		TeacherID:      "teacher-x",
		ClassID:        "class-7a",
		DayOfWeek:      models.DayMonday,
		StartTime:      "09:00",
		EndTime:        "10:30",
		ApprovalStatus: models.ApprovalPending,
	}
	handler := newTemplateHandler(newFakeTemplateRepo(pending))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/templates/tpl-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "tpl-1"}}
	withManagerClaims(c)

	handler.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "APPROVED", data["approval_status"])
	assert.Equal(t, true, data["is_active"])
}

func TestTemplateHandlerRejectWithoutNotes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pending := &models.ScheduleTemplate{
		ID:             "tpl-1",
		CourseID:       "course-math",
		TeacherID:      "teacher-x",
		ClassID:        "class-7a",
		DayOfWeek:      models.DayMonday,
		StartTime:      "09:00",
		EndTime:        "10:30",
		ApprovalStatus: models.ApprovalPending,
	}
	handler := newTemplateHandler(newFakeTemplateRepo(pending))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/templates/tpl-1/reject", strings.NewReader(`{"notes":""}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "tpl-1"}}
	withManagerClaims(c)

	handler.Reject(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemplateHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTemplateHandler(newFakeTemplateRepo())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/templates/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
