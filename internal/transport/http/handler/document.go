package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docai/internal/app"
	"docai/internal/transport/http/response"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	documentService *app.DocumentService
	maxUploadBytes  int64
}

func NewDocumentHandler(documentService *app.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  maxUploadBytes,
	}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "not authenticated")
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusBadRequest, response.CodeFileRejected, "file too large")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "multipart field \"file\" is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read uploaded file failed")
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), app.UploadInput{
		OwnerID:  user.ID,
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  file,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrFileRejected):
			response.Error(c, http.StatusBadRequest, response.CodeFileRejected, err.Error())
		case errors.Is(err, app.ErrNoExtractableText):
			response.Error(c, http.StatusBadRequest, response.CodeNoText, err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "process document failed")
		}
		return
	}

	response.Created(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "not authenticated")
		return
	}
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	docs, err := h.documentService.List(c.Request.Context(), user.ID, skip, limit)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) ListAll(c *gin.Context) {
	skip, limit, ok := pagination(c)
	if !ok {
		return
	}

	docs, err := h.documentService.ListAll(c.Request.Context(), skip, limit)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	detail, err := h.documentService.Detail(c.Request.Context(), user, id)
	if err != nil {
		h.writeLookupError(c, err, "get document failed")
		return
	}
	response.OK(c, detail)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	chunks, err := h.documentService.Chunks(c.Request.Context(), user, id)
	if err != nil {
		h.writeLookupError(c, err, "list chunks failed")
		return
	}
	response.OK(c, chunks)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	user, id, ok := h.target(c)
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), user, id); err != nil {
		h.writeLookupError(c, err, "delete document failed")
		return
	}
	response.NoContent(c)
}

func (h *DocumentHandler) target(c *gin.Context) (uint, uint, bool) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "not authenticated")
		return 0, 0, false
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return 0, 0, false
	}
	return user.ID, id, true
}

func (h *DocumentHandler) writeLookupError(c *gin.Context, err error, message string) {
	if errors.Is(err, app.ErrDocumentNotFound) {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		return
	}
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, message)
}

func pagination(c *gin.Context) (int, int, bool) {
	skip, ok := queryInt(c, "skip", 0)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid skip")
		return 0, 0, false
	}
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
		return 0, 0, false
	}
	return skip, limit, true
}
