package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quangdm/studyrag-be/service"
	"github.com/quangdm/studyrag-be/types"
)

// DocumentHandler exposes the document view: ingest plain text, list a
// user's documents, delete a document's chunk set. File parsing stays with
// the upload collaborator; this endpoint receives extracted text.
type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
	}
}

func (h *DocumentHandler) HandleIngest(c *gin.Context) {
	var req types.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}
	if req.UserID == "" || req.FileName == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "user_id and file_name are required",
		})
		return
	}

	count, err := h.documents.IngestText(c.Request.Context(), req.UserID, req.CourseID, req.FileName, req.DocumentType, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: "Ingest failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data: types.IngestResponse{
			FileName:   req.FileName,
			ChunkCount: count,
		},
	})
}

func (h *DocumentHandler) HandleList(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "user_id is required",
		})
		return
	}
	courseID := c.Query("course_id")

	docs, err := h.documents.ListDocuments(c.Request.Context(), userID, courseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: "List failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   types.ListDocumentsResponse{Documents: docs},
	})
}

func (h *DocumentHandler) HandleDelete(c *gin.Context) {
	var req types.DeleteDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid request body",
		})
		return
	}
	if req.UserID == "" || req.FileName == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "user_id and file_name are required",
		})
		return
	}

	if err := h.documents.DeleteDocument(c.Request.Context(), req.UserID, req.CourseID, req.FileName); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: "Delete failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
	})
}
