package controller

import (
	"codearena/internal/judge/service"
	"codearena/internal/lang"
	"codearena/pkg/response"

	"github.com/gin-gonic/gin"
)

// ExecController handles code execution and submission HTTP endpoints.
type ExecController struct {
	submissionService *service.SubmissionService
}

// NewExecController creates a new ExecController.
func NewExecController(submissionService *service.SubmissionService) *ExecController {
	return &ExecController{submissionService: submissionService}
}

// Execute runs code in playground mode and returns the result synchronously.
func (h *ExecController) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	res, err := h.submissionService.Execute(c.Request.Context(), req.Code, req.Language, req.Stdin, req.TimeLimitMs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, res)
}

// Submit enqueues a submission for grading and returns its id.
func (h *ExecController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	submissionID, err := h.submissionService.Submit(c.Request.Context(), req.ProblemID, req.UserID, req.Code, req.Language)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, SubmitResponse{
		SubmissionID: submissionID,
		Status:       "PENDING",
	})
}

// GetStatus returns the status record for one submission.
func (h *ExecController) GetStatus(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}

	record, err := h.submissionService.Status(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, record)
}

// Languages lists the languages the platform accepts.
func (h *ExecController) Languages(c *gin.Context) {
	all := lang.All()
	items := make([]LanguageInfo, 0, len(all))
	for _, l := range all {
		items = append(items, LanguageInfo{
			ID:       l.String(),
			Compiled: l.Compiled(),
		})
	}
	response.Success(c, LanguagesResponse{Languages: items})
}

// Health reports service liveness.
func (h *ExecController) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// ExecuteRequest defines playground execution payload.
type ExecuteRequest struct {
	Code        string `json:"code" binding:"required"`
	Language    string `json:"language" binding:"required"`
	Stdin       string `json:"stdin"`
	TimeLimitMs int64  `json:"time_limit_ms"`
}

// SubmitRequest defines submission payload.
type SubmitRequest struct {
	ProblemID int64  `json:"problem_id" binding:"required"`
	UserID    int64  `json:"user_id" binding:"required"`
	Code      string `json:"code" binding:"required"`
	Language  string `json:"language" binding:"required"`
}

// SubmitResponse defines submission response payload.
type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	ID       string `json:"id"`
	Compiled bool   `json:"compiled"`
}

// LanguagesResponse defines the language listing payload.
type LanguagesResponse struct {
	Languages []LanguageInfo `json:"languages"`
}
