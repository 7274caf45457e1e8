package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docai/internal/model"
)

func TestForward(t *testing.T) {
	var got model.DocumentEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	doc := &model.Document{ID: 7, OriginalFilename: "notes.md", FileType: "md", FileSize: 12, WordCount: 3, OwnerID: 2}
	event := model.NewDocumentEvent(model.EventDocumentUploaded, doc, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	w := NewWebhookWorker(nil, "q", srv.URL, time.Second)
	require.NoError(t, w.Forward(context.Background(), event))

	assert.Equal(t, model.EventDocumentUploaded, got.Event)
	assert.Equal(t, uint(7), got.Document.ID)
	assert.Equal(t, "notes.md", got.Document.Filename)
	assert.Equal(t, uint(2), got.UserID)
}

func TestForward_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhookWorker(nil, "q", srv.URL, time.Second)
	err := w.Forward(context.Background(), model.DocumentEvent{Event: model.EventDocumentDeleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestForward_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	w := NewWebhookWorker(nil, "q", srv.URL, 20*time.Millisecond)
	assert.Error(t, w.Forward(context.Background(), model.DocumentEvent{}))
}
