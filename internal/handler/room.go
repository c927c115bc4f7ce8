package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/collectiveminds/lab-booking/internal/config"
	"github.com/collectiveminds/lab-booking/internal/model"
)

// RoomHandler serves the static room catalogue.  The catalogue never changes
// while the service runs, so these handlers are pure projections.
type RoomHandler struct {
	Rooms *config.RoomCatalogue
}

// NewRoomHandler constructs a RoomHandler over the given catalogue.
func NewRoomHandler(rooms *config.RoomCatalogue) *RoomHandler {
	if rooms == nil {
		panic("nil catalogue passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms}
}

// ListRooms handles GET /v1/rooms.  It returns a summary of every bookable
// room: id, number, display name and equipment options.
func (h *RoomHandler) ListRooms(c echo.Context) error {
	out := make([]echo.Map, 0, len(h.Rooms.Rooms))
	for _, r := range h.Rooms.Rooms {
		out = append(out, echo.Map{
			"id":        r.ID,
			"number":    r.Number,
			"name":      r.Name,
			"equipment": r.Equipment,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// GetRoom handles GET /v1/rooms/:id.  It returns everything the booking form
// needs: the notice text, the equipment option list with classes, the color
// map and the bookable slots.
func (h *RoomHandler) GetRoom(c echo.Context) error {
	room := h.Rooms.Room(c.Param("id"))
	if room == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        room.ID,
		"number":    room.Number,
		"name":      room.Name,
		"notice":    room.Notice,
		"equipment": room.Equipment,
		"colors":    room.Colors,
		"slots":     model.Slots(),
	})
}
