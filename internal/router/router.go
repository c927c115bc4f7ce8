package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/collectiveminds/lab-booking/internal/handler" // import the handlers that implement the endpoints
)

// RegisterRoutes wires every endpoint of the service onto the provided Echo
// instance.  writeLimit is applied to the booking and cancellation routes
// only; reads stay unthrottled since they are served from the short-lived
// reservation cache anyway.
func RegisterRoutes(e *echo.Echo, rooms *handler.RoomHandler, bookings *handler.BookingHandler, writeLimit echo.MiddlewareFunc) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1")
	// Room catalogue: the floor plan and the per-room booking form data.
	g.GET("/rooms", rooms.ListRooms)
	g.GET("/rooms/:id", rooms.GetRoom)

	// Reservation reads: raw list, calendar events and the ICS feed.
	g.GET("/rooms/:id/bookings", bookings.ListBookings)
	g.GET("/rooms/:id/calendar", bookings.Calendar)
	g.GET("/rooms/:id/calendar.ics", bookings.CalendarICS)

	// Writes go through the rate limiter.
	g.POST("/rooms/:id/bookings", bookings.Book, writeLimit)
	g.DELETE("/rooms/:id/bookings", bookings.Cancel, writeLimit)
}
