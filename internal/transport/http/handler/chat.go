package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"docai/internal/app"
	"docai/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type ChatRequest struct {
	Query            string `json:"query" binding:"required"`
	DocumentIDs      []uint `json:"document_ids"`
	UseContext       *bool  `json:"use_context"`
	MaxContextChunks *int   `json:"max_context_chunks"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) bind(c *gin.Context) (app.ChatInput, bool) {
	user, ok := currentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "not authenticated")
		return app.ChatInput{}, false
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return app.ChatInput{}, false
	}

	input := app.ChatInput{
		OwnerID:     user.ID,
		Query:       req.Query,
		DocumentIDs: req.DocumentIDs,
		UseContext:  true,
	}
	if req.UseContext != nil {
		input.UseContext = *req.UseContext
	}
	if req.MaxContextChunks != nil {
		if *req.MaxContextChunks < 1 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "max_context_chunks must be at least 1")
			return app.ChatInput{}, false
		}
		input.MaxContextChunks = *req.MaxContextChunks
	}
	return input, true
}

func (h *ChatHandler) Chat(c *gin.Context) {
	input, ok := h.bind(c)
	if !ok {
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), input)
	if err != nil {
		writeChatError(c, err)
		return
	}
	response.OK(c, result)
}

// Stream answers over server-sent events: one "context" event with the
// retrieved excerpts, the answer as plain data events, then "done" or
// "error". Validation failures are reported as a normal JSON error since no
// event has been written yet.
func (h *ChatHandler) Stream(c *gin.Context) {
	input, ok := h.bind(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	started := false
	writeEvent := func(event, data string) error {
		if !started {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			started = true
		}
		frame := "data: " + data + "\n\n"
		if event != "" {
			frame = "event: " + event + "\n" + frame
		}
		if _, err := c.Writer.Write([]byte(frame)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	result, err := h.chatService.StreamChat(c.Request.Context(), input,
		func(chunks []app.SearchResult) error {
			payload, err := json.Marshal(chunks)
			if err != nil {
				return fmt.Errorf("marshal context failed: %w", err)
			}
			return writeEvent("context", string(payload))
		},
		func(chunk string) error {
			return writeEvent("", sanitizeSSE(chunk))
		},
	)
	if err != nil {
		if !started {
			writeChatError(c, err)
			return
		}
		_ = c.Error(err)
		_ = writeEvent("error", sanitizeSSE(err.Error()))
		return
	}

	_ = writeEvent("done", sanitizeSSE(result.Answer))
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrLLMUnavailable):
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "chat failed")
	}
}
