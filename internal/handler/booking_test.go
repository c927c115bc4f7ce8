package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectiveminds/lab-booking/internal/booking"
	"github.com/collectiveminds/lab-booking/internal/config"
	"github.com/collectiveminds/lab-booking/internal/handler"
	"github.com/collectiveminds/lab-booking/internal/middleware"
	"github.com/collectiveminds/lab-booking/internal/repository"
	"github.com/collectiveminds/lab-booking/internal/router"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	rooms, err := config.LoadRooms("")
	require.NoError(t, err)
	repo := repository.NewReservationRepo(repository.NewMemorySheetStore(), nil, 0)
	svc := booking.NewService(rooms, repo, nil)

	e := echo.New()
	// No Redis in tests: the limiter degrades to a pass-through.
	writeLimit := middleware.NewTokenBucket(config.RateLimitConfig{}, nil)
	router.RegisterRoutes(e, handler.NewRoomHandler(rooms), handler.NewBookingHandler(svc), writeLimit)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const bookBody = `{"researcher":"Shane","equipment":"EEG System A","date":"2025-03-10","start_time":"10:00"}`

func TestHealthz(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListRooms(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/v1/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Rooms []map[string]interface{} `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Rooms, 4)
}

func TestGetRoom(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/v1/rooms/427", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "EEG Spatial", body["name"])
	assert.Len(t, body["slots"], 12)

	rec = doJSON(e, http.MethodGet, "/v1/rooms/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/rooms/427/bookings", bookBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Reservation struct {
			EndTime string `json:"end_time"`
		} `json:"reservation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "11:00", created.Reservation.EndTime)

	// The same slot again: conflict naming equipment, date and time.
	rec = doJSON(e, http.MethodPost, "/v1/rooms/427/bookings", bookBody)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Equal(t, "EEG System A", conflict["equipment"])
	assert.Equal(t, "2025-03-10", conflict["date"])
	assert.Equal(t, "10:00", conflict["start_time"])
}

func TestBookValidation(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/v1/rooms/427/bookings",
		`{"researcher":"","equipment":"EEG System A","date":"2025-03-10","start_time":"10:00"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "researcher", body["field"])

	rec = doJSON(e, http.MethodPost, "/v1/rooms/427/bookings", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/rooms/999/bookings", bookBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	e := newTestServer(t)
	ref := `{"researcher":"Shane","equipment":"EEG System A","date":"2025-03-10","start_time":"10:00"}`

	// Cancelling something that never existed: 404, not a silent success.
	rec := doJSON(e, http.MethodDelete, "/v1/rooms/427/bookings", ref)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/rooms/427/bookings", bookBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/v1/rooms/427/bookings", ref)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/rooms/427/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Reservations []interface{} `json:"reservations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Reservations)
}

func TestCalendarEndpoints(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/v1/rooms/427/bookings", bookBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/rooms/427/calendar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cal struct {
		Events []struct {
			Title string `json:"title"`
			Color string `json:"color"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cal))
	require.Len(t, cal.Events, 1)
	assert.Equal(t, "Shane — EEG System A", cal.Events[0].Title)
	assert.Equal(t, "#27ae60", cal.Events[0].Color)

	rec = doJSON(e, http.MethodGet, "/v1/rooms/427/calendar.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
}
