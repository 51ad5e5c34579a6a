package controller

import (
	"strings"

	"solvebox/internal/server/service"
	"solvebox/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles catalogue and progress endpoints.
type ProblemController struct {
	problemService *service.ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService *service.ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// Index returns the day-grouped problem list.
func (h *ProblemController) Index(c *gin.Context) {
	index, err := h.problemService.Index(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, index)
}

// Get returns one problem without its test cases.
func (h *ProblemController) Get(c *gin.Context) {
	problemID := strings.TrimSpace(c.Param("id"))
	if problemID == "" {
		response.BadRequest(c, "Invalid problem id")
		return
	}
	view, err := h.problemService.Get(c.Request.Context(), problemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Progress returns the solved problem ids.
func (h *ProblemController) Progress(c *gin.Context) {
	progress, err := h.problemService.Progress(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, progress)
}
