package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docai/internal/app"
	"docai/internal/transport/http/response"
)

type SearchHandler struct {
	searchService *app.SearchService
}

type SearchRequest struct {
	Query       string `json:"query" binding:"required"`
	TopK        *int   `json:"top_k"`
	DocumentIDs []uint `json:"document_ids"`
}

func NewSearchHandler(searchService *app.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

func (h *SearchHandler) Search(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "not authenticated")
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	topK := 0
	if req.TopK != nil {
		if *req.TopK < 1 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "top_k must be at least 1")
			return
		}
		topK = *req.TopK
	}

	result, err := h.searchService.Search(c.Request.Context(), app.SearchInput{
		OwnerID:     user.ID,
		Query:       req.Query,
		TopK:        topK,
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}

	response.OK(c, result)
}
