package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saasan/internal/cache"
	"saasan/internal/middleware"
	"saasan/internal/services"
	"saasan/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("router-test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	engine *gin.Engine
	store  *testutil.BlobStore
	events *testutil.Recorder
}

func newServer(t *testing.T, rps float64, burst int) *server {
	t.Helper()
	gdb := testutil.NewDB(t)
	lru, err := cache.NewLRU(16, time.Minute)
	require.NoError(t, err)
	store := testutil.NewBlobStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	recorder := &testutil.Recorder{}

	svc := services.New(services.Options{
		DB:                gdb,
		Store:             store,
		Cache:             lru,
		Publisher:         recorder,
		Metrics:           services.NewMetrics(registry),
		Logger:            logger,
		UploadTimeout:     time.Second,
		MaxUploadBytes:    1 << 20,
		MaxFilesPerUpload: 3,
	})
	engine := New(Deps{
		DB:                gdb,
		Services:          svc,
		Logger:            logger,
		Registry:          registry,
		JWTSecret:         secret,
		CORSOrigins:       []string{"*"},
		RateLimitRPS:      rps,
		RateLimitBurst:    burst,
		MaxUploadBytes:    1 << 20,
		MaxFilesPerUpload: 3,
	})
	return &server{engine: engine, store: store, events: recorder}
}

func token(t *testing.T, id string, role services.Role) string {
	t.Helper()
	tok, err := middleware.SignToken(secret, id, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *server) upload(t *testing.T, path, tok string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorBody](t, w).Error.Code
}

type reportView struct {
	ID              string  `json:"id"`
	ReferenceNumber string  `json:"referenceNumber"`
	Status          string  `json:"status"`
	ReporterID      *string `json:"reporterId"`
	UpvotesCount    int64   `json:"upvotesCount"`
	DescriptionHTML string  `json:"descriptionHtml"`
	StatusUpdates   []struct {
		Status   string `json:"status"`
		AuthorID string `json:"authorId"`
	} `json:"statusUpdates"`
	Verification *struct {
		VerificationLevel string `json:"verificationLevel"`
	} `json:"verification"`
}

func (s *server) createReport(t *testing.T, tok string) reportView {
	t.Helper()
	w := s.do(t, http.MethodPost, "/reports", tok, map[string]any{
		"title":       "Bribe at Ward Office",
		"description": "Officer asked for **5000** to process a land record.",
		"category":    "bribery",
		"district":    "Kathmandu",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[reportView](t, w)
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	s := newServer(t, 1000, 1000)
	reporter := token(t, "U1", services.RoleCitizen)
	investigator := token(t, "I1", services.RoleInvestigator)

	created := s.createReport(t, reporter)
	assert.Regexp(t, `^SR-\d{4}-[A-Z0-9]{8}$`, created.ReferenceNumber)
	assert.Equal(t, "submitted", created.Status)
	require.NotNil(t, created.ReporterID)
	assert.Equal(t, "U1", *created.ReporterID)

	for _, voter := range []string{"U2", "U3"} {
		w := s.do(t, http.MethodPost, "/reports/"+created.ID+"/vote", token(t, voter, services.RoleCitizen),
			map[string]string{"polarity": "up"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	for _, status := range []string{"under_review", "verified"} {
		w := s.do(t, http.MethodPost, "/reports/"+created.ID+"/status", investigator,
			map[string]string{"status": status, "comment": "checked"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodGet, "/reports/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[reportView](t, w)
	assert.Equal(t, "verified", detail.Status)
	assert.Equal(t, int64(2), detail.UpvotesCount)
	assert.Contains(t, detail.DescriptionHTML, "<strong>5000</strong>")
	require.Len(t, detail.StatusUpdates, 2)
	assert.Equal(t, "I1", detail.StatusUpdates[1].AuthorID)
	require.NotNil(t, detail.Verification)
	assert.Equal(t, "verified", detail.Verification.VerificationLevel)

	w = s.do(t, http.MethodGet, "/reports/"+created.ID+"/verification", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[services.VerificationStatus](t, w)
	assert.Equal(t, int64(2), v.CommunityVotes.Upvotes)
	require.NotNil(t, v.VerifiedBy)
	assert.Equal(t, "I1", *v.VerifiedBy)

	w = s.do(t, http.MethodGet, "/stats/overview", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ov := decode[services.Overview](t, w)
	assert.Equal(t, int64(1), ov.TotalReports)
	assert.Equal(t, int64(0), ov.ResolvedReports)

	w = s.do(t, http.MethodPost, "/reports/"+created.ID+"/status", investigator, map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusCreated, w.Code)

	// resolving invalidates the cached overview
	w = s.do(t, http.MethodGet, "/stats/overview", "", nil)
	ov = decode[services.Overview](t, w)
	assert.Equal(t, int64(1), ov.ResolvedReports)
	assert.Equal(t, 100.0, ov.ResolutionRate)

	w = s.do(t, http.MethodGet, "/reports?status=resolved&district=Kathmandu", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items []reportView `json:"items"`
		Total int64        `json:"total"`
	}](t, w)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)
}

func TestCreateReportAuth(t *testing.T) {
	s := newServer(t, 1000, 1000)

	w := s.do(t, http.MethodPost, "/reports", "", map[string]any{
		"title": "t", "description": "d",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/reports", "", map[string]any{
		"title": "t", "description": "d", "isAnonymous": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Nil(t, decode[reportView](t, w).ReporterID)

	// anonymous even when signed in
	w = s.do(t, http.MethodPost, "/reports", token(t, "U1", services.RoleCitizen), map[string]any{
		"title": "t", "description": "d", "isAnonymous": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, decode[reportView](t, w).ReporterID)

	for _, ev := range s.events.Events() {
		assert.Empty(t, ev.ActorID, "anonymous report leaked its submitter in %s", ev.Type)
	}
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t, 1000, 1000)
	reporter := token(t, "U1", services.RoleCitizen)
	report := s.createReport(t, reporter)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"unknown report", http.MethodGet, "/reports/missing", "", nil, http.StatusNotFound, "NOT_FOUND"},
		{"missing title", http.MethodPost, "/reports", reporter, map[string]any{"description": "d"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad category", http.MethodPost, "/reports", reporter, map[string]any{"title": "t", "description": "d", "category": "theft"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad list filter", http.MethodGet, "/reports?status=closed", "", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"page too far", http.MethodGet, "/reports?page=9223372036854775807&perPage=100", "", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"edit without token", http.MethodPatch, "/reports/" + report.ID, "", map[string]any{"title": "x"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"edit by stranger", http.MethodPatch, "/reports/" + report.ID, token(t, "U2", services.RoleCitizen), map[string]any{"title": "x"}, http.StatusForbidden, "FORBIDDEN"},
		{"status by citizen", http.MethodPost, "/reports/" + report.ID + "/status", reporter, map[string]any{"status": "under_review"}, http.StatusForbidden, "FORBIDDEN"},
		{"skip review", http.MethodPost, "/reports/" + report.ID + "/status", token(t, "I1", services.RoleInvestigator), map[string]any{"status": "resolved"}, http.StatusConflict, "INVALID_TRANSITION"},
		{"bad polarity", http.MethodPost, "/reports/" + report.ID + "/vote", reporter, map[string]any{"polarity": "sideways"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"vote without token", http.MethodPost, "/reports/" + report.ID + "/vote", "", map[string]any{"polarity": "up"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", http.MethodGet, "/reports", "not-a-jwt", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"politician by citizen", http.MethodPost, "/politicians", reporter, map[string]any{"name": "X"}, http.StatusForbidden, "FORBIDDEN"},
		{"bad active filter", http.MethodGet, "/politicians?active=maybe", "", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, tc.method, tc.path, tc.token, tc.body)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}
}

func TestRejectedReportIsFrozen(t *testing.T) {
	s := newServer(t, 1000, 1000)
	reporter := token(t, "U1", services.RoleCitizen)
	report := s.createReport(t, reporter)

	w := s.do(t, http.MethodPost, "/reports/"+report.ID+"/status", token(t, "M1", services.RoleModerator),
		map[string]string{"status": "rejected", "comment": "duplicate"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPatch, "/reports/"+report.ID, reporter, map[string]any{"title": "new"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))

	w = s.upload(t, "/reports/"+report.ID+"/evidence", reporter, map[string][]byte{"a.png": testutil.PNG})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))
}

func TestVoteToggleOverHTTP(t *testing.T) {
	s := newServer(t, 1000, 1000)
	report := s.createReport(t, token(t, "U1", services.RoleCitizen))
	voter := token(t, "U2", services.RoleCitizen)
	path := "/reports/" + report.ID + "/vote"

	w := s.do(t, http.MethodPost, path, voter, map[string]string{"polarity": "up"})
	require.Equal(t, http.StatusOK, w.Code)
	tally := decode[services.Tally](t, w)
	assert.Equal(t, int64(1), tally.UpvotesCount)
	require.NotNil(t, tally.UserVote)

	w = s.do(t, http.MethodPost, path, voter, map[string]string{"polarity": "down"})
	tally = decode[services.Tally](t, w)
	assert.Equal(t, int64(0), tally.UpvotesCount)
	assert.Equal(t, int64(1), tally.DownvotesCount)

	w = s.do(t, http.MethodGet, path, voter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tally = decode[services.Tally](t, w)
	require.NotNil(t, tally.UserVote)
	assert.Equal(t, "down", string(*tally.UserVote))

	// same polarity again retracts
	w = s.do(t, http.MethodPost, path, voter, map[string]string{"polarity": "down"})
	tally = decode[services.Tally](t, w)
	assert.Equal(t, int64(0), tally.DownvotesCount)
	assert.Nil(t, tally.UserVote)

	w = s.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[services.Tally](t, w).UserVote)
}

func TestEvidenceUploadAndDelete(t *testing.T) {
	s := newServer(t, 1000, 1000)
	reporter := token(t, "U1", services.RoleCitizen)
	report := s.createReport(t, reporter)
	path := "/reports/" + report.ID + "/evidence"

	w := s.upload(t, path, reporter, map[string][]byte{"receipt.pdf": testutil.PDF})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uploaded := decode[struct {
		Evidence []struct {
			ID       string `json:"id"`
			FileType string `json:"fileType"`
			Position int    `json:"position"`
		} `json:"evidence"`
	}](t, w)
	require.Len(t, uploaded.Evidence, 1)
	assert.Equal(t, "document", uploaded.Evidence[0].FileType)
	assert.NotContains(t, w.Body.String(), "mem:")
	assert.Equal(t, 1, s.store.Len())

	// stranger cannot attach
	w = s.upload(t, path, token(t, "U2", services.RoleCitizen), map[string][]byte{"a.png": testutil.PNG})
	require.Equal(t, http.StatusForbidden, w.Code)

	// unsupported type
	w = s.upload(t, path, reporter, map[string][]byte{"x.html": []byte("<html><body>hi</body></html>")})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	// too many files
	w = s.upload(t, path, reporter, map[string][]byte{
		"1.png": testutil.PNG, "2.png": testutil.PNG, "3.png": testutil.PNG, "4.png": testutil.PNG,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, s.store.Len())

	// storage outage
	s.store.FailPutAfter = 0
	w = s.upload(t, path, reporter, map[string][]byte{"a.png": testutil.PNG})
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPLOAD_FAILED", errorCode(t, w))
	s.store.FailPutAfter = -1

	evidenceID := uploaded.Evidence[0].ID
	w = s.do(t, http.MethodDelete, path+"/"+evidenceID, token(t, "U2", services.RoleCitizen), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	s.store.FailDelete = true
	w = s.do(t, http.MethodDelete, path+"/"+evidenceID, reporter, nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "STORAGE_ERROR", errorCode(t, w))
	s.store.FailDelete = false

	w = s.do(t, http.MethodDelete, path+"/"+evidenceID, reporter, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, s.store.Len())

	w = s.do(t, http.MethodDelete, path+"/"+evidenceID, reporter, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPoliticiansAndMajorCases(t *testing.T) {
	s := newServer(t, 1000, 1000)
	admin := token(t, "A1", services.RoleAdmin)
	moderator := token(t, "M1", services.RoleModerator)

	for _, p := range []map[string]any{
		{"name": "Ram Bahadur", "party": "P1", "district": "Kathmandu", "isActive": true},
		{"name": "Sita Kumari", "party": "P2", "district": "Lalitpur", "isActive": false},
	} {
		w := s.do(t, http.MethodPost, "/politicians", admin, p)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := s.do(t, http.MethodGet, "/politicians?active=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	}](t, w)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Ram Bahadur", list.Items[0].Name)

	w = s.do(t, http.MethodGet, "/stats/overview", "", nil)
	ov := decode[services.Overview](t, w)
	assert.Equal(t, int64(2), ov.TotalPoliticians)
	assert.Equal(t, int64(1), ov.ActivePoliticians)

	w = s.do(t, http.MethodPost, "/major-cases", token(t, "I1", services.RoleInvestigator), map[string]any{"title": "Airport tender"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/major-cases", moderator, map[string]any{"title": "Airport tender", "amountInvolved": 1e9})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	mc := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, w)
	assert.Equal(t, "ongoing", mc.Status)

	w = s.do(t, http.MethodPatch, "/major-cases/"+mc.ID, moderator, map[string]any{"status": "solved"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/major-cases?status=solved", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), mc.ID)

	w = s.do(t, http.MethodGet, "/major-cases/missing", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsEndpoints(t *testing.T) {
	s := newServer(t, 1000, 1000)
	s.createReport(t, token(t, "U1", services.RoleCitizen))

	w := s.do(t, http.MethodGet, "/stats/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	breakdown := decode[map[string]int64](t, w)
	assert.Equal(t, int64(1), breakdown["bribery"])
	assert.Equal(t, int64(0), breakdown["nepotism"])

	w = s.do(t, http.MethodGet, "/stats/major-cases?limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ranked := decode[struct {
		Items []services.RankedReport `json:"items"`
	}](t, w)
	require.Len(t, ranked.Items, 1)
}

func TestShareRateLimited(t *testing.T) {
	s := newServer(t, 0.001, 2)
	report := s.createReport(t, token(t, "U1", services.RoleCitizen)) // spends one token

	w := s.do(t, http.MethodPost, "/reports/"+report.ID+"/share", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reportId":"`+report.ID+`","sharesCount":1}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/reports/"+report.ID+"/share", "", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, w))
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newServer(t, 1000, 1000)
	s.createReport(t, token(t, "U1", services.RoleCitizen))

	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "saasan_reports_created_total 1")
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t, 1000, 1000)
	req := httptest.NewRequest(http.MethodOptions, "/reports", nil)
	req.Header.Set("Origin", "https://saasan.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
