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

	"hub-service/internal/mocks"
	"hub-service/internal/models"
	"hub-service/internal/rooms"
)

func setupRoomRouter(handler *RoomHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/rooms", handler.ListRooms)
	r.POST("/api/rooms", handler.CreateRoom)
	r.GET("/api/rooms/:room_id", handler.GetRoom)
	r.DELETE("/api/rooms/:room_id", handler.DeleteRoom)
	r.GET("/api/rooms/:room_id/members", handler.GetMembers)
	r.POST("/api/rooms/:room_id/join", handler.JoinRoom)
	r.POST("/api/rooms/:room_id/leave", handler.LeaveRoom)
	r.GET("/api/users/:user_id/rooms", handler.GetUserRooms)
	return r
}

func newRoomFixture(t *testing.T) (*rooms.Manager, *mocks.RoomStoreMock, *gin.Engine) {
	t.Helper()
	store := new(mocks.RoomStoreMock)
	manager := rooms.NewManager(store)
	router := setupRoomRouter(NewRoomHandler(manager, nil, 100))
	return manager, store, router
}

func TestCreateRoomSuccess(t *testing.T) {
	_, store, router := newRoomFixture(t)

	store.On("SaveRoom", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("SaveMembership", mock.Anything, mock.Anything, 1).Return(nil).Once()

	body := bytes.NewBufferString(`{"name":"general","creator_id":1,"max_members":50}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var room models.Room
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&room))
	require.NotEmpty(t, room.ID)
	require.Equal(t, "general", room.Name)
	require.Equal(t, 50, room.MaxMembers)
	store.AssertExpectations(t)
}

func TestCreateRoomDefaultsCapacity(t *testing.T) {
	_, store, router := newRoomFixture(t)

	store.On("SaveRoom", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("SaveMembership", mock.Anything, mock.Anything, 1).Return(nil).Once()

	body := bytes.NewBufferString(`{"name":"general","creator_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var room models.Room
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&room))
	require.Equal(t, 100, room.MaxMembers)
}

func TestCreateRoomInvalidCapacity(t *testing.T) {
	_, store, router := newRoomFixture(t)

	body := bytes.NewBufferString(`{"name":"bad","creator_id":1,"max_members":-1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNotCalled(t, "SaveRoom")
}

func TestCreateRoomMissingName(t *testing.T) {
	_, _, router := newRoomFixture(t)

	body := bytes.NewBufferString(`{"creator_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRoomNotFound(t *testing.T) {
	_, _, router := newRoomFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJoinRoomFullConflict(t *testing.T) {
	manager, store, router := newRoomFixture(t)

	store.On("SaveRoom", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("SaveMembership", mock.Anything, mock.Anything, 1).Return(nil).Once()
	room, err := manager.CreateRoom(context.Background(), "tiny", 1, false, 1)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+room.ID+"/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestJoinRoomNotFound(t *testing.T) {
	_, _, router := newRoomFixture(t)

	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/missing/join", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaveRoomIsAlwaysOK(t *testing.T) {
	_, _, router := newRoomFixture(t)

	// leaving an unknown room is a no-op, not an error
	body := bytes.NewBufferString(`{"user_id":2}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/missing/leave", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteRoomSuccess(t *testing.T) {
	manager, store, router := newRoomFixture(t)

	store.On("SaveRoom", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("SaveMembership", mock.Anything, mock.Anything, 1).Return(nil).Once()
	room, err := manager.CreateRoom(context.Background(), "gone", 1, false, 10)
	require.NoError(t, err)

	store.On("DeleteRoom", mock.Anything, room.ID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/rooms/"+room.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	store.AssertExpectations(t)
}

func TestDeleteRoomNotFound(t *testing.T) {
	_, _, router := newRoomFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/rooms/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMembers(t *testing.T) {
	manager, store, router := newRoomFixture(t)

	store.On("SaveRoom", mock.Anything, mock.Anything).Return(nil).Once()
	store.On("SaveMembership", mock.Anything, mock.Anything, mock.Anything).Return(nil).Times(2)
	room, err := manager.CreateRoom(context.Background(), "r", 1, false, 10)
	require.NoError(t, err)
	require.NoError(t, manager.Join(context.Background(), room.ID, 2))

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/"+room.ID+"/members", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Members []int `json:"members"`
		Count   int   `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, []int{1, 2}, resp.Members)
	require.Equal(t, 2, resp.Count)
}

func TestGetUserRoomsInvalidID(t *testing.T) {
	_, _, router := newRoomFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/abc/rooms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
