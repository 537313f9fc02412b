package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habittracker/internal/handler"
	"habittracker/internal/service"
	"habittracker/internal/service/servicetest"
)

const testSecret = "router-test-secret"

var fixedNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, pinger fakePinger) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	users, habits, logs := servicetest.NewUsers(), servicetest.NewHabits(), servicetest.NewLogs()
	now := func() time.Time { return fixedNow }

	authSvc := service.NewAuthService(users, servicetest.NewAttempts(), service.AuthConfig{
		JWTSecret: testSecret, TokenTTL: time.Hour, MaxFailures: 5,
	}, log)
	habitSvc := service.NewHabitService(habits, logs, &servicetest.Publisher{}, log).WithClock(now)
	reportSvc := service.NewReportService(habits, logs, log).WithClock(now)

	return NewRouter(Handlers{
		Auth:   handler.NewAuthHandler(authSvc, log),
		Habit:  handler.NewHabitHandler(habitSvc, log),
		Export: handler.NewExportHandler(reportSvc, log),
	}, Options{
		JWTSecret: testSecret,
		Logger:    log,
		DB:        pinger,
	})
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signup registers and logs in, returning an authenticated client.
func signup(t *testing.T, router http.Handler, email string) *client {
	t.Helper()
	c := &client{t: t, router: router}

	w := c.do(http.MethodPost, "/api/auth/register", gin.H{"email": email, "password": "pw123456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": "pw123456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]any](t, w)
	assert.Equal(t, "bearer", resp["token_type"])
	c.token = resp["access_token"].(string)
	return c
}

func TestRouter_HealthAndRoot(t *testing.T) {
	router := newTestRouter(t, fakePinger{})
	c := &client{t: t, router: router}

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", nil).Code)

	w := c.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestRouter_ReadyzDBDown(t *testing.T) {
	router := newTestRouter(t, fakePinger{err: errors.New("connection refused")})
	w := (&client{t: t, router: router}).do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_TraceIDIsEchoed(t *testing.T) {
	router := newTestRouter(t, fakePinger{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Trace-ID"))
}

func TestRouter_AuthErrors(t *testing.T) {
	router := newTestRouter(t, fakePinger{})
	anon := &client{t: t, router: router}

	w := anon.do(http.MethodGet, "/api/habits", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	anon.token = "not-a-jwt"
	w = anon.do(http.MethodGet, "/api/habits", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	anon.token = ""

	signup(t, router, "ann@example.com")

	w = anon.do(http.MethodPost, "/api/auth/register", gin.H{"email": "ann@example.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decode[map[string]string](t, w)["error"])

	w = anon.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = anon.do(http.MethodPost, "/api/auth/register", gin.H{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_HabitLifecycle(t *testing.T) {
	router := newTestRouter(t, fakePinger{})
	c := signup(t, router, "ann@example.com")

	w := c.do(http.MethodPost, "/api/habits", gin.H{
		"name": "Read", "htype": "quantity", "goal": 20, "start_date": "2026-10-18",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	habit := decode[map[string]any](t, w)
	assert.Equal(t, "2026-10-18", habit["start_date"])
	assert.Equal(t, false, habit["archived"])
	id := int(habit["id"].(float64))
	base := "/api/habits/" + strconv.Itoa(id)

	w = c.do(http.MethodPost, base+"/logs", gin.H{"date": "2026-10-18", "value": 25, "completed": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	logOut := decode[map[string]any](t, w)
	assert.Equal(t, "2026-10-18", logOut["date"])
	assert.Equal(t, true, logOut["completed"])

	w = c.do(http.MethodGet, base+"/insights", nil)
	require.Equal(t, http.StatusOK, w.Code)
	insight := decode[map[string]any](t, w)
	assert.Equal(t, float64(1), insight["seven_day_streak"])
	assert.Equal(t, float64(100), insight["avg_completion_percent"])

	w = c.do(http.MethodGet, base+"/trends/weekly", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 4)

	w = c.do(http.MethodGet, base+"/trends/monthly?today=2026-10-18", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 3)

	w = c.do(http.MethodGet, base+"/chart-data?days=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	points := decode[[]map[string]any](t, w)
	require.Len(t, points, 6)
	assert.Equal(t, "2026-10-18", points[5]["date"])
	assert.Nil(t, points[0]["value"])

	w = c.do(http.MethodGet, base+"/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = c.do(http.MethodPatch, base, gin.H{"name": "Read more"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Read more", decode[map[string]any](t, w)["name"])

	w = c.do(http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Habit archived", decode[map[string]string](t, w)["message"])

	w = c.do(http.MethodGet, "/api/habits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	// Logs survive archiving.
	w = c.do(http.MethodGet, base+"/logs?start_date=2026-10-01&end_date=2026-10-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
}

func TestRouter_ValidationAndNotFound(t *testing.T) {
	router := newTestRouter(t, fakePinger{})
	ann := signup(t, router, "ann@example.com")
	bob := signup(t, router, "bob@example.com")

	cases := []gin.H{
		{"name": "   ", "htype": "boolean", "start_date": "2026-10-18"},
		{"name": "Run", "htype": "weekly", "start_date": "2026-10-18"},
		{"name": "Run", "htype": "boolean", "start_date": "18-10-2026"},
		{"name": "Run", "htype": "boolean"},
	}
	for _, body := range cases {
		w := ann.do(http.MethodPost, "/api/habits", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
	}

	w := ann.do(http.MethodPost, "/api/habits", gin.H{"name": "Run", "htype": "boolean", "start_date": "2026-10-01"})
	require.Equal(t, http.StatusOK, w.Code)
	base := "/api/habits/" + strconv.Itoa(int(decode[map[string]any](t, w)["id"].(float64)))

	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodGet, base+"/insights", nil).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPost, base+"/logs", gin.H{"date": "2026-10-18"}).Code)
	assert.Equal(t, http.StatusNotFound, ann.do(http.MethodGet, "/api/habits/9999", nil).Code)

	assert.Equal(t, http.StatusBadRequest, ann.do(http.MethodGet, "/api/habits/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ann.do(http.MethodGet, base+"/chart-data?days=-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ann.do(http.MethodGet, base+"/chart-data?days=ten", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ann.do(http.MethodGet, base+"/insights?today=yesterday", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		ann.do(http.MethodGet, base+"/logs?start_date=2026-10-18&end_date=2026-10-01", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ann.do(http.MethodPost, base+"/logs", gin.H{"date": "tomorrow"}).Code)

	// values must fit a Postgres INTEGER column
	assert.Equal(t, http.StatusBadRequest,
		ann.do(http.MethodPost, base+"/logs", gin.H{"date": "2026-10-18", "value": 3000000000}).Code)
	assert.Equal(t, http.StatusBadRequest,
		ann.do(http.MethodPost, base+"/logs", gin.H{"date": "2026-10-18", "value": -3000000000}).Code)
	assert.Equal(t, http.StatusBadRequest, ann.do(http.MethodPatch, base, gin.H{"goal": 3000000000}).Code)
	assert.Equal(t, http.StatusBadRequest, ann.do(http.MethodPost, "/api/habits",
		gin.H{"name": "Big", "htype": "quantity", "goal": 3000000000, "start_date": "2026-10-18"}).Code)
	assert.Equal(t, http.StatusOK,
		ann.do(http.MethodPost, base+"/logs", gin.H{"date": "2026-10-18", "value": 2147483647}).Code)
}

func TestRouter_Export(t *testing.T) {
	router := newTestRouter(t, fakePinger{})
	c := signup(t, router, "ann@example.com")

	w := c.do(http.MethodPost, "/api/habits", gin.H{"name": "Read", "htype": "boolean", "start_date": "2026-10-01"})
	require.Equal(t, http.StatusOK, w.Code)
	id := strconv.Itoa(int(decode[map[string]any](t, w)["id"].(float64)))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/habits/"+id+"/logs",
		gin.H{"date": "2026-10-17", "completed": true}).Code)

	w = c.do(http.MethodGet, "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="habit_report_20261018_100000.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "Habit: Read")
	assert.Contains(t, w.Body.String(), "2026-10-17,Yes,")

	w = c.do(http.MethodGet, "/api/export/pdf?habit_id="+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/export/csv?habit_id=999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/export/csv?habit_id=x", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, (&client{t: t, router: router}).do(http.MethodGet, "/api/export/csv", nil).Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, fakePinger{})
	req := httptest.NewRequest(http.MethodOptions, "/api/habits", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig(t *testing.T) {
	assert.True(t, corsConfig(nil).AllowAllOrigins)
	assert.True(t, corsConfig([]string{"http://a.test", "*"}).AllowAllOrigins)

	cfg := corsConfig([]string{" http://a.test ", ""})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"http://a.test"}, cfg.AllowOrigins)
}
