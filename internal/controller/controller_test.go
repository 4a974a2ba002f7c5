package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"exoplanet-classifier-be/internal/dto"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/internal/pkg/serverutils"
	"exoplanet-classifier-be/internal/repository/memory"
	"exoplanet-classifier-be/internal/service"
	"exoplanet-classifier-be/pkg/exo"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	lastSession string
	tabularErr  error
}

func (s *stubClassifier) ClassifyLLM(ctx context.Context, sessionID string, req *dto.ClassifyLLMRequest) (*dto.ClassifyResponse, error) {
	s.lastSession = sessionID
	return &dto.ClassifyResponse{Model: service.ModelLLM, Prediction: exo.LabelCandidate, Confidence: 0.95}, nil
}

func (s *stubClassifier) ClassifyBatch(ctx context.Context, sessionID string, req *dto.ClassifyBatchRequest) (*dto.ClassifyBatchResponse, error) {
	results := make([]dto.ClassifyResponse, len(req.Rows))
	return &dto.ClassifyBatchResponse{Results: results}, nil
}

func (s *stubClassifier) ClassifyTabular(ctx context.Context, sessionID string, req *dto.FeaturesRequest) (*dto.TabularResponse, error) {
	if s.tabularErr != nil {
		return nil, s.tabularErr
	}
	return &dto.TabularResponse{Prediction: exo.LabelFalsePositive}, nil
}

func (s *stubClassifier) ListPredictions(ctx context.Context, sessionID string, limit int) ([]*dto.PredictionResponse, error) {
	return []*dto.PredictionResponse{}, nil
}

type stubTasks struct{}

func (stubTasks) SubmitBuild(ctx context.Context, kind, sessionID string) (*dto.TaskResponse, error) {
	return &dto.TaskResponse{Id: "task-1", Status: "queued"}, nil
}

func (stubTasks) Get(ctx context.Context, id string) (*dto.TaskResponse, error) {
	return nil, fmt.Errorf("task %s: %w", id, serverutils.ErrNotFound)
}

func (stubTasks) Cancel(ctx context.Context, id string) (*dto.TaskResponse, error) {
	return nil, fmt.Errorf("task %s: %w", id, serverutils.ErrNotFound)
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newApp(classifier service.IClassifierService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewAdminController(service.NewAdminService(logger.NewNopLogger()), "").RegisterRoutes(api)
	api.Use(serverutils.SessionMiddleware("secret", time.Hour))
	NewClassifyController(classifier).RegisterRoutes(api)
	NewHeldOutController(service.NewHeldOutService(memory.NewSessionRepository(8, 0, nil))).RegisterRoutes(api)
	NewTaskController(stubTasks{}).RegisterRoutes(api)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string, cookies ...*http.Cookie) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

const validFeatures = `{"period":9.49,"duration":2.96,"depth":615.8,"prad":2.26,"teq":793}`

func TestClassifyLLMValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "valid", body: validFeatures, code: http.StatusOK},
		{name: "missing feature", body: `{"period":9.49,"duration":2.96,"depth":615.8,"prad":2.26}`, code: http.StatusBadRequest},
		{name: "k out of range", body: `{"period":9.49,"duration":2.96,"depth":615.8,"prad":2.26,"teq":793,"k":0.5}`, code: http.StatusBadRequest},
		{name: "not json", body: `period=1`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(&stubClassifier{})
			resp, env := do(t, app, http.MethodPost, "/api/classify/v1/llm", tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

func TestClassifyLLMPassesSession(t *testing.T) {
	stub := &stubClassifier{}
	app := newApp(stub)

	resp, env := do(t, app, http.MethodPost, "/api/classify/v1/llm", validFeatures)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.NotEmpty(t, stub.lastSession)

	var res dto.ClassifyResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, exo.LabelCandidate, res.Prediction)
}

func TestClassifyBatchRejectsEmptyRows(t *testing.T) {
	app := newApp(&stubClassifier{})
	resp, _ := do(t, app, http.MethodPost, "/api/classify/v1/llm/batch", `{"rows":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClassifyTabularWithoutModel(t *testing.T) {
	app := newApp(&stubClassifier{tabularErr: fiber.NewError(fiber.StatusServiceUnavailable, "tabular model is not loaded")})
	resp, env := do(t, app, http.MethodPost, "/api/classify/v1/tabular", validFeatures)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "tabular model is not loaded", env.Message)
}

func TestHeldOutFlowKeepsSession(t *testing.T) {
	app := newApp(&stubClassifier{})

	resp, env := do(t, app, http.MethodPut, "/api/heldout/v1", `{"ids":["K2","K1"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.HeldOutResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, []string{"K1", "K2"}, list.Ids)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == serverutils.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	_, env = do(t, app, http.MethodPost, "/api/heldout/v1", `{"ids":["K2","K3"]}`, cookie)
	var change dto.HeldOutChangeResponse
	require.NoError(t, json.Unmarshal(env.Data, &change))
	assert.Equal(t, dto.HeldOutChangeResponse{Changed: 1, Count: 3}, change)

	_, env = do(t, app, http.MethodDelete, "/api/heldout/v1", "", cookie)
	require.NoError(t, json.Unmarshal(env.Data, &change))
	assert.Equal(t, dto.HeldOutChangeResponse{Changed: 3, Count: 0}, change)

	// a request without the cookie lands in a fresh session
	_, env = do(t, app, http.MethodPut, "/api/heldout/v1", "")
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list.Ids)
}

func TestTaskNotFound(t *testing.T) {
	app := newApp(&stubClassifier{})
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp, env := do(t, app, method, "/api/task/v1/missing", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, method)
		assert.Equal(t, "task missing: not found", env.Message)
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	app := newApp(&stubClassifier{})
	resp, env := do(t, app, http.MethodGet, "/api/admin/v1/logs", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, env.Success)
}
