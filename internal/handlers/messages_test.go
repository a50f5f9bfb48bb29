package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hub-service/internal/hub"
	"hub-service/internal/mocks"
	"hub-service/internal/models"
	"hub-service/internal/presence"
	"hub-service/internal/queue"
	"hub-service/internal/rooms"
)

type recordingTransport struct {
	sent [][]byte
}

func (r *recordingTransport) Send(payload []byte) error {
	r.sent = append(r.sent, payload)
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func newHubFixture(t *testing.T) (*hub.Hub, *gin.Engine) {
	t.Helper()

	roomStore := new(mocks.RoomStoreMock)
	roomStore.On("SaveRoom", mock.Anything, mock.Anything).Return(nil).Maybe()
	roomStore.On("SaveMembership", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	presenceStore := new(mocks.PresenceStoreMock)
	presenceStore.On("SavePresence", mock.Anything, mock.Anything).Return(nil).Maybe()

	queueStore := new(mocks.QueueStoreMock)
	queueStore.On("AppendMessage", mock.Anything, mock.Anything).Return(nil).Maybe()
	queueStore.On("MarkDelivered", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	h := hub.New(
		hub.NewRegistry(5),
		rooms.NewManager(roomStore),
		presence.NewTracker(presenceStore),
		queue.New(queueStore, 10),
	)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewMessageHandler(h)
	r.POST("/api/messages", handler.PostMessage)
	r.GET("/api/users/:user_id/queue", handler.GetQueueSize)
	return h, r
}

func TestPostMessageDeliversToOnlineRecipient(t *testing.T) {
	h, router := newHubFixture(t)

	tr := &recordingTransport{}
	_, err := h.Register(context.Background(), 2, tr)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"sender_id":1,"recipient_id":2,"content":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report models.DeliveryReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	require.Equal(t, 1, report.Delivered)
	require.Len(t, tr.sent, 1)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(tr.sent[0], &payload))
	require.Equal(t, "hi", payload["content"])
	require.Equal(t, "text", payload["type"])
}

func TestPostMessageQueuesForOfflineRecipient(t *testing.T) {
	_, router := newHubFixture(t)

	body := bytes.NewBufferString(`{"sender_id":1,"recipient_id":7,"content":"later"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report models.DeliveryReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	require.Equal(t, 1, report.Queued)

	req = httptest.NewRequest(http.MethodGet, "/api/users/7/queue", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		QueueSize int `json:"queue_size"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.QueueSize)
}

func TestPostMessageAmbiguousDestination(t *testing.T) {
	_, router := newHubFixture(t)

	body := bytes.NewBufferString(`{"sender_id":1,"recipient_id":2,"room_id":"r","content":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageNoDestination(t *testing.T) {
	_, router := newHubFixture(t)

	body := bytes.NewBufferString(`{"sender_id":1,"content":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageUnknownRoom(t *testing.T) {
	_, router := newHubFixture(t)

	body := bytes.NewBufferString(`{"sender_id":1,"room_id":"missing","content":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessageBroadcastWithExclusions(t *testing.T) {
	h, router := newHubFixture(t)

	excluded := &recordingTransport{}
	included := &recordingTransport{}
	_, err := h.Register(context.Background(), 1, excluded)
	require.NoError(t, err)
	_, err = h.Register(context.Background(), 2, included)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"sender_id":1,"broadcast":true,"exclude":[1],"content":"ping"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, excluded.sent)
	require.Len(t, included.sent, 1)
}

func TestPostMessageMissingContent(t *testing.T) {
	_, router := newHubFixture(t)

	body := bytes.NewBufferString(`{"sender_id":1,"recipient_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQueueSizeInvalidID(t *testing.T) {
	_, router := newHubFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/abc/queue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
