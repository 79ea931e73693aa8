package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/attendance-backend/internal/attendance"
	"github.com/stemsi/attendance-backend/internal/calendar"
	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/repository"
	"github.com/stemsi/attendance-backend/internal/response"
	"github.com/stemsi/attendance-backend/internal/service"
	"github.com/stemsi/attendance-backend/internal/validator"
	ws "github.com/stemsi/attendance-backend/internal/websocket"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	m.Run()
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestFailMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{fmt.Errorf("get class: %w", repository.ErrNotFound), http.StatusNotFound, response.ErrNotFound},
		{repository.ErrDuplicate, http.StatusConflict, response.ErrConflict},
		{model.ErrDuplicateRollNumber, http.StatusConflict, response.ErrConflict},
		{repository.ErrHasDependencies, http.StatusConflict, response.ErrDependencyExists},
		{fmt.Errorf("%w: %q", calendar.ErrInvalidDate, "2024-02-30"), http.StatusBadRequest, response.ErrInvalidDate},
		{calendar.ErrRangeTooLong, http.StatusBadRequest, response.ErrInvalidRange},
		{service.ErrNotClassTeacher, http.StatusForbidden, response.ErrNotClassTeacher},
		{service.ErrSelfAction, http.StatusForbidden, response.ErrActionForbidden},
		{service.ErrEditWindowClosed, http.StatusUnprocessableEntity, response.ErrEditWindowClosed},
		{service.ErrInvalidTeacher, http.StatusBadRequest, response.ErrValidation},
		{&attendance.ValidationError{Fields: map[string]string{"records": "missing"}}, http.StatusBadRequest, response.ErrValidation},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code)+"/"+tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			fail(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

// fakeUsers serves GetByEmail only.
type fakeUsers struct {
	service.UserStore
	user *model.User
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, repository.ErrNotFound
	}
	u := *f.user
	return &u, nil
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{ID: uuid.New(), Email: "budi@school.id", Name: "Pak Budi", Role: model.RoleTeacher, Active: true, PasswordHash: string(hash)}
	auth := service.NewAuthService(&config.Config{JWTSecret: "handler-secret", JWTExpiry: time.Hour}, fakeUsers{user: user})

	r := gin.New()
	r.POST("/login", NewAuthHandler(auth).Login)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Contains(t, env.Error.Fields, "email")
	assert.Contains(t, env.Error.Fields, "password")

	w = post(`{"email":"budi@school.id","password":"salah-sandi"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrInvalidCredentials, decode(t, w).Error.Code)

	w = post(`{"email":"budi@school.id","password":"rahasia123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res model.LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Empty(t, res.User.PasswordHash)
}

func TestSubmitAttendanceRejectsBadInput(t *testing.T) {
	svc := service.NewAttendanceService(&config.Config{}, nil, nil, nil, nil, zerolog.Nop())
	r := gin.New()
	r.PUT("/classes/:id/attendance/:date", NewAttendanceHandler(svc).SubmitAttendance)

	put := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := put("/classes/not-a-uuid/attendance/2024-03-06", `{"records":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, decode(t, w).Error.Code)

	body := fmt.Sprintf(`{"records":[{"student_id":%q,"status":"sick"}]}`, uuid.NewString())
	w = put("/classes/"+uuid.NewString()+"/attendance/2024-03-06", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "records[0].status")
}

func TestHolidayYearValidation(t *testing.T) {
	r := gin.New()
	r.GET("/holidays", NewHolidayHandler(service.NewHolidayService(nil, nil)).ListHolidays)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/holidays?year=24x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Fields, "year")
}

func TestEventVisible(t *testing.T) {
	mine, theirs := uuid.New(), uuid.New()
	teacher := service.Scope{UserID: uuid.New(), ClassIDs: []uuid.UUID{mine}}
	admin := service.Scope{All: true}

	encode := func(e ws.SummaryEvent) []byte {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		return data
	}
	updated := func(id uuid.UUID) []byte {
		return encode(ws.SummaryEvent{Event: ws.EventSummaryUpdated, ClassID: id.String(), Date: "2024-03-06"})
	}
	rebuilt := encode(ws.SummaryEvent{Event: ws.EventSummaryRebuilt})

	assert.True(t, eventVisible(teacher, updated(mine)))
	assert.False(t, eventVisible(teacher, updated(theirs)))
	assert.True(t, eventVisible(teacher, rebuilt))
	assert.True(t, eventVisible(admin, updated(theirs)))
	assert.False(t, eventVisible(admin, []byte("not json")))

	assert.Equal(t, []string{mine.String()}, scopeClassIDs(teacher))
	assert.Empty(t, scopeClassIDs(admin))
}

func TestHealth(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	run := func(checks map[string]Pinger) (*httptest.ResponseRecorder, healthReport) {
		r := gin.New()
		r.GET("/health", NewSystemHandler(checks, zerolog.Nop()).Health)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		var rep healthReport
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &rep))
		return w, rep
	}

	w, rep := run(map[string]Pinger{"postgres": up, "redis": up})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", rep.Status)

	w, rep = run(map[string]Pinger{"postgres": up, "redis": down})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", rep.Status)
	assert.Equal(t, map[string]string{"postgres": "up", "redis": "down"}, rep.Checks)
}
