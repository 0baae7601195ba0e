package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quangdm/studyrag-be/service"
	"github.com/quangdm/studyrag-be/types"
)

type SearchHandler struct {
	rag *service.RAGService
}

func NewSearchHandler(rag *service.RAGService) *SearchHandler {
	return &SearchHandler{
		rag: rag,
	}
}

// HandleSearch runs the fused retrieval pipeline and returns the ranked,
// context-widened chunk list.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}
	if req.UserID == "" || req.Query == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "user_id and query are required",
		})
		return
	}

	results, err := h.rag.Retrieve(c.Request.Context(), req.Query, req.UserID, req.CourseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: "Search failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   types.SearchResponse{Results: results},
	})
}
