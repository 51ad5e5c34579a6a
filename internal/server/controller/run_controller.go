// Package controller exposes the evaluation server over HTTP.
package controller

import (
	"net/http"

	"solvebox/internal/server/service"
	"solvebox/pkg/api"
	"solvebox/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RunController handles code submissions.
type RunController struct {
	runService *service.RunService
}

// NewRunController creates a new RunController.
func NewRunController(runService *service.RunService) *RunController {
	return &RunController{runService: runService}
}

// Run evaluates a submission. Success bodies are the bare RunResponse;
// errors use the standard envelope.
func (h *RunController) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	resp, err := h.runService.Run(c.Request.Context(), api.RunRequest{
		Code:      req.Code,
		ProblemID: req.ProblemID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if resp.Details == nil {
		resp.Details = []api.CaseDetail{}
	}
	c.JSON(http.StatusOK, resp)
}

// RunRequest defines the submission payload. code may be empty.
type RunRequest struct {
	Code      string `json:"code"`
	ProblemID string `json:"problem_id" binding:"required"`
}
