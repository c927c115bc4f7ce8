package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/collectiveminds/lab-booking/internal/booking"
	"github.com/collectiveminds/lab-booking/internal/model"
)

// BookingHandler exposes the booking core over HTTP.  It owns nothing but
// the translation between requests, booking.Service calls and status codes;
// every decision lives in the service.
type BookingHandler struct {
	Svc *booking.Service
}

// NewBookingHandler constructs a BookingHandler.  The service must be non-nil.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

// Book handles POST /v1/rooms/:id/bookings.  On success it returns 201 with
// the committed reservation, including the computed end time.  Validation
// problems map to 400, slot conflicts to 409 naming the equipment, date and
// time in conflict, and store failures to 503 with a retry hint.
func (h *BookingHandler) Book(c echo.Context) error {
	var p booking.Proposal
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	resv, err := h.Svc.Book(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservation": resv})
}

// Cancel handles DELETE /v1/rooms/:id/bookings.  The body carries a content
// reference to the reservation (researcher, equipment, date, start time).
// A target already removed by a concurrent cancel yields 404 so the client
// refreshes its view instead of assuming success.
func (h *BookingHandler) Cancel(c echo.Context) error {
	var ref model.ReservationRef
	if err := c.Bind(&ref); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Svc.Cancel(c.Request().Context(), c.Param("id"), ref); err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cancelled": true})
}

// ListBookings handles GET /v1/rooms/:id/bookings.  When the backing store
// is unreachable it degrades to an empty list plus a warning, because a
// rendering client must never crash over a transient store failure.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	set, err := h.Svc.List(c.Request().Context(), c.Param("id"))
	if err != nil {
		var storeErr *booking.StoreError
		if errors.As(err, &storeErr) {
			return c.JSON(http.StatusOK, echo.Map{
				"reservations": []model.Reservation{},
				"warning":      "reservations are temporarily unavailable, showing an empty schedule",
			})
		}
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": set})
}

// Calendar handles GET /v1/rooms/:id/calendar.  Store failures degrade the
// same way the bookings list does.
func (h *BookingHandler) Calendar(c echo.Context) error {
	events, err := h.Svc.CalendarEvents(c.Request().Context(), c.Param("id"))
	if err != nil {
		var storeErr *booking.StoreError
		if errors.As(err, &storeErr) {
			return c.JSON(http.StatusOK, echo.Map{
				"events":  []booking.CalendarEvent{},
				"warning": "reservations are temporarily unavailable, showing an empty calendar",
			})
		}
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// CalendarICS handles GET /v1/rooms/:id/calendar.ics and serves the room's
// schedule as an iCalendar feed.
func (h *BookingHandler) CalendarICS(c echo.Context) error {
	feed, err := h.Svc.ICSFeed(c.Request().Context(), c.Param("id"))
	if err != nil {
		return bookingError(c, err)
	}
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

// bookingError translates the booking error taxonomy into HTTP responses.
func bookingError(c echo.Context, err error) error {
	var (
		validationErr *booking.ValidationError
		conflictErr   *booking.ConflictError
		notFoundErr   *booking.NotFoundError
		storeErr      *booking.StoreError
	)
	switch {
	case errors.Is(err, booking.ErrUnknownRoom):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	case errors.As(err, &conflictErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      conflictErr.Error(),
			"equipment":  conflictErr.Equipment,
			"date":       conflictErr.Date,
			"start_time": conflictErr.StartTime,
		})
	case errors.As(err, &notFoundErr):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found; it may have been cancelled already"})
	case errors.As(err, &storeErr):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error": "the reservation store is unavailable, please try again",
			"cause": storeErr.Error(),
		})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
