package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/api/responses"
	"github.com/angelmondragon/uniformhub-backend/api/validators"
	"github.com/angelmondragon/uniformhub-backend/internal/appointments"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
)

type appointmentStatusRequest struct {
	Status enums.AppointmentStatus `json:"status" validate:"required"`
}

// BookAppointment schedules a sizing visit. Signing in is optional.
func BookAppointment(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input appointments.BookInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		appointment, err := svc.Book(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, appointment)
	}
}

func ListMyAppointments(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListMine(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ListAppointments is the back-office view, optionally filtered by ?status=.
func ListAppointments(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *enums.AppointmentStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseAppointmentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}
		items, err := svc.AdminList(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func UpdateAppointmentStatus(svc appointments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "appointmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body appointmentStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		appointment, err := svc.UpdateStatus(r.Context(), id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, appointment)
	}
}
