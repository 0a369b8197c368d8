package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"codearena/internal/common/cache"
	commonmw "codearena/internal/common/http/middleware"
	"codearena/internal/judge/controller"
	"codearena/internal/judge/model"
	"codearena/internal/judge/repository"
	"codearena/internal/judge/service"
	"codearena/internal/sandbox/process"
	"codearena/internal/sandbox/vm"
	appErr "codearena/pkg/errors"
	"codearena/pkg/response"
)

func newTestRouter(t *testing.T) (*gin.Engine, *repository.StatusRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	statusRepo := repository.NewStatusRepository(c)

	proc := process.NewRunner(t.TempDir(), process.WithSpecs(nil))
	vmRunner := vm.NewRunner(vm.Config{ArtifactCacheDir: t.TempDir()})
	t.Cleanup(func() { _ = vmRunner.Close() })
	selector := service.NewSelector(proc, nil, vmRunner)

	svc := service.NewSubmissionService(0, "judge.submissions", nil, nil, statusRepo, selector)
	h := controller.NewExecController(svc)

	router := gin.New()
	router.Use(commonmw.TraceContextMiddleware())
	router.POST("/api/v1/execute", h.Execute)
	router.GET("/api/v1/submissions/:id", h.GetStatus)
	router.GET("/api/v1/languages", h.Languages)
	router.GET("/healthz", h.Health)
	return router, statusRepo
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	var envelope response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, envelope
}

func TestExecuteEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/execute",
		`{"code": "console.log(\"hi\");", "language": "js"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if envelope.Code != appErr.Success {
		t.Fatalf("envelope code = %d", envelope.Code)
	}

	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", envelope.Data)
	}
	if data["output"] != "hi" {
		t.Fatalf("output = %v", data["output"])
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatal("trace id header missing")
	}
}

func TestExecuteEndpointRejectsBadPayload(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/execute", `{"language": "js"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if envelope.Code != appErr.InvalidParams {
		t.Fatalf("envelope code = %d", envelope.Code)
	}
}

func TestExecuteEndpointRejectsUnknownLanguage(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/execute",
		`{"code": "print(1)", "language": "cobol"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if envelope.Code != appErr.UnknownLanguageAlias {
		t.Fatalf("envelope code = %d", envelope.Code)
	}
}

func TestGetStatusEndpoint(t *testing.T) {
	router, statusRepo := newTestRouter(t)

	record := model.StatusRecord{SubmissionID: "sub-42", ProblemID: 1, Status: model.StatusRunning}
	if err := statusRepo.Set(context.Background(), record); err != nil {
		t.Fatalf("seed status: %v", err)
	}

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/v1/submissions/sub-42", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", envelope.Data)
	}
	if data["status"] != string(model.StatusRunning) {
		t.Fatalf("status field = %v", data["status"])
	}
}

func TestLanguagesEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/v1/languages", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %T", envelope.Data)
	}
	languages, ok := data["languages"].([]interface{})
	if !ok || len(languages) != 4 {
		t.Fatalf("languages = %v", data["languages"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK || envelope.Code != appErr.Success {
		t.Fatalf("status = %d, code = %d", rec.Code, envelope.Code)
	}
}
