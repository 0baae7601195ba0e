package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quangdm/studyrag-be/service"
	"github.com/quangdm/studyrag-be/types"
)

type AskHandler struct {
	rag *service.RAGService
}

func NewAskHandler(rag *service.RAGService) *AskHandler {
	return &AskHandler{
		rag: rag,
	}
}

// HandleAsk answers a question grounded in the user's course documents and
// returns the retrieved sources alongside the answer.
func (h *AskHandler) HandleAsk(c *gin.Context) {
	var req types.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}
	if req.UserID == "" || req.Question == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "user_id and question are required",
		})
		return
	}

	answer, sources, err := h.rag.Ask(c.Request.Context(), req.Question, req.UserID, req.CourseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: "Ask failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data: types.AskResponse{
			Answer:  answer,
			Sources: sources,
		},
	})
}
