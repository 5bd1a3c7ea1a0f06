package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"innkeeper/internal/database"
	"innkeeper/internal/models"
)

// parseDate accepts calendar dates only; timestamps are rejected so
// callers cannot smuggle partial nights into a stay.
func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(models.DateFormat, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return t, nil
}

func (s *HTTPServer) requireCapability(w http.ResponseWriter, r *http.Request, c models.Capability) bool {
	if RoleFrom(r.Context()).Can(c) {
		return true
	}
	writeError(w, http.StatusForbidden, "forbidden")
	return false
}

type quoteRequestDTO struct {
	PropertyID int64  `json:"property_id"`
	RoomTypeID int64  `json:"room_type_id"`
	RatePlanID int64  `json:"rate_plan_id"`
	RoomID     int64  `json:"room_id,omitempty"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	RoomsCount int    `json:"rooms_count"`
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.requireCapability(w, r, models.CapQuote) {
		return
	}

	var dto quoteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	checkIn, err := parseDate(dto.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	checkOut, err := parseDate(dto.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := s.quotes.Quote(r.Context(), &models.QuoteRequest{
		PropertyID: dto.PropertyID,
		RoomTypeID: dto.RoomTypeID,
		RatePlanID: dto.RatePlanID,
		RoomID:     dto.RoomID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		RoomsCount: dto.RoomsCount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type bookingRequestDTO struct {
	PropertyID      int64  `json:"property_id"`
	RoomTypeID      int64  `json:"room_type_id"`
	RoomID          int64  `json:"room_id"`
	RatePlanID      int64  `json:"rate_plan_id"`
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	GuestPhone      string `json:"guest_phone"`
	GuestsCount     int    `json:"guests_count"`
	SpecialRequests string `json:"special_requests"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	RoomsCount      int    `json:"rooms_count"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	if !s.requireCapability(w, r, models.CapBook) {
		return
	}

	var dto bookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if dto.GuestName == "" || dto.GuestEmail == "" {
		writeError(w, http.StatusBadRequest, "guest_name and guest_email are required")
		return
	}
	checkIn, err := parseDate(dto.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	checkOut, err := parseDate(dto.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.reservations.Commit(r.Context(), &models.BookingRequest{
		PropertyID:      dto.PropertyID,
		RoomTypeID:      dto.RoomTypeID,
		RoomID:          dto.RoomID,
		RatePlanID:      dto.RatePlanID,
		GuestName:       dto.GuestName,
		GuestEmail:      dto.GuestEmail,
		GuestPhone:      dto.GuestPhone,
		GuestsCount:     dto.GuestsCount,
		SpecialRequests: dto.SpecialRequests,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		RoomsCount:      dto.RoomsCount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := database.BookingFilter{
		GuestEmail: strings.TrimSpace(q.Get("guest_email")),
		Status:     models.BookingStatus(q.Get("status")),
	}
	if v := q.Get("property_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid property_id")
			return
		}
		filter.PropertyID = id
	}
	if v := q.Get("room_type_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid room_type_id")
			return
		}
		filter.RoomTypeID = id
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	// Guests may only list their own bookings, keyed by email.
	if !RoleFrom(r.Context()).Can(models.CapReadAll) && filter.GuestEmail == "" {
		writeError(w, http.StatusForbidden, "guest_email filter is required")
		return
	}

	bookings, err := s.reservations.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

type transitionDTO struct {
	Version        int64  `json:"version"`
	Reason         string `json:"reason"`
	OverridePolicy bool   `json:"override_policy"`
}

// handleBookingByID routes /api/v1/bookings/{id} and its lifecycle
// sub-actions. References (BK-XXXXXXXX) are accepted in place of ids on
// the GET path.
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.getBooking(w, r, parts[0])
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch parts[1] {
	case "confirm":
		s.transitionBooking(w, r, id, models.StatusConfirmed)
	case "cancel":
		s.cancelBooking(w, r, id)
	case "complete":
		s.transitionBooking(w, r, id, models.StatusCompleted)
	case "no-show":
		s.transitionBooking(w, r, id, models.StatusNoShow)
	case "dates":
		s.changeBookingDates(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) getBooking(w http.ResponseWriter, r *http.Request, key string) {
	var (
		booking *models.Booking
		err     error
	)
	if id, parseErr := strconv.ParseInt(key, 10, 64); parseErr == nil {
		booking, err = s.reservations.Get(r.Context(), id)
	} else {
		booking, err = s.reservations.GetByReference(r.Context(), strings.ToUpper(key))
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Guests only see bookings, never other guests' contact details.
	if !RoleFrom(r.Context()).Can(models.CapReadAll) {
		sanitized := *booking
		sanitized.GuestPhone = ""
		writeJSON(w, http.StatusOK, &sanitized)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) transitionBooking(w http.ResponseWriter, r *http.Request, id int64, next models.BookingStatus) {
	if !s.requireCapability(w, r, models.CapBook) {
		return
	}
	// Completing or marking no-show is an operational action.
	if next == models.StatusCompleted || next == models.StatusNoShow {
		if !s.requireCapability(w, r, models.CapReadAll) {
			return
		}
	}

	var dto transitionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var err error
	switch next {
	case models.StatusConfirmed:
		err = s.reservations.Confirm(r.Context(), id, dto.Version)
	case models.StatusCompleted:
		err = s.reservations.Complete(r.Context(), id, dto.Version)
	case models.StatusNoShow:
		err = s.reservations.MarkNoShow(r.Context(), id, dto.Version)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	booking, err := s.reservations.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) cancelBooking(w http.ResponseWriter, r *http.Request, id int64) {
	if !s.requireCapability(w, r, models.CapCancel) {
		return
	}

	var dto transitionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The override flag is honored only for roles allowed to waive the
	// cancellation window; everyone else goes through the policy check.
	override := dto.OverridePolicy && RoleFrom(r.Context()).Can(models.CapOverridePolicy)

	if err := s.reservations.Cancel(r.Context(), id, dto.Version, dto.Reason, override); err != nil {
		writeDomainError(w, err)
		return
	}

	booking, err := s.reservations.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type changeDatesDTO struct {
	Version  int64  `json:"version"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

func (s *HTTPServer) changeBookingDates(w http.ResponseWriter, r *http.Request, id int64) {
	if !s.requireCapability(w, r, models.CapBook) {
		return
	}

	var dto changeDatesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	checkIn, err := parseDate(dto.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	checkOut, err := parseDate(dto.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.reservations.ChangeDates(r.Context(), id, dto.Version, checkIn, checkOut)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type roomTypeDTO struct {
	PropertyID   int64  `json:"property_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	MaxOccupancy int    `json:"max_occupancy"`
}

func (s *HTTPServer) handleRoomTypes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		propertyID := int64(0)
		if v := r.URL.Query().Get("property_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid property_id")
				return
			}
			propertyID = id
		}
		roomTypes, err := s.catalog.ListRoomTypes(r.Context(), propertyID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"room_types": roomTypes,
			"count":      len(roomTypes),
		})

	case http.MethodPost:
		if !s.requireCapability(w, r, models.CapManageInventory) {
			return
		}
		var dto roomTypeDTO
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rt := &models.RoomType{
			PropertyID:   dto.PropertyID,
			Name:         dto.Name,
			Description:  dto.Description,
			MaxOccupancy: dto.MaxOccupancy,
			IsActive:     true,
		}
		if err := s.catalog.CreateRoomType(r.Context(), rt); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rt)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type provisionDTO struct {
	RoomTypeID int64  `json:"room_type_id"`
	PropertyID int64  `json:"property_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	TotalRooms int    `json:"total_rooms"`
}

func (s *HTTPServer) handleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.requireCapability(w, r, models.CapManageInventory) {
		return
	}

	var dto provisionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	from, err := parseDate(dto.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDate(dto.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.catalog.ProvisionInventory(r.Context(), dto.RoomTypeID, dto.PropertyID, from, to, dto.TotalRooms); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "provisioned"})
}

type closeDTO struct {
	RoomTypeID int64  `json:"room_type_id"`
	Date       string `json:"date"`
	Closed     bool   `json:"closed"`
}

func (s *HTTPServer) handleInventoryClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.requireCapability(w, r, models.CapManageInventory) {
		return
	}

	var dto closeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := parseDate(dto.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.catalog.SetClosedForSale(r.Context(), dto.RoomTypeID, date, dto.Closed); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
