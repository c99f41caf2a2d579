package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/campusevents/internal/app"
	"github.com/shrimpsizemoose/campusevents/internal/metrics"
	"github.com/shrimpsizemoose/campusevents/internal/models"
)

const rootMessage = "Campus Event Management API is running"

type CampusHandler struct {
	service *app.Service
}

func NewCampusHandler(service *app.Service) *CampusHandler {
	return &CampusHandler{
		service: service,
	}
}

// Register wires every campus route into mux.
func (h *CampusHandler) Register(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		"GET /{$}":                          h.HandleRoot,
		"GET /events":                       h.HandleListEvents,
		"POST /students":                    h.HandleCreateStudent,
		"POST /events":                      h.HandleCreateEvent,
		"POST /register":                    h.HandleRegister,
		"POST /attendance":                  h.HandleAttendance,
		"POST /feedback":                    h.HandleFeedback,
		"GET /reports/registrations":        h.HandleRegistrationsReport,
		"GET /reports/attendance":           h.HandleAttendanceReport,
		"GET /reports/feedback":             h.HandleFeedbackReport,
		"GET /reports/student/{student_id}": h.HandleStudentReport,
		"GET /reports/top-active":           h.HandleTopActive,
	}
	for pattern, handler := range routes {
		mux.Handle(pattern, instrument(handler))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			metrics.APIRequestDuration.WithLabelValues(
				r.Pattern,
				r.Method,
				strconv.Itoa(rec.status),
			).Observe(time.Since(start).Seconds())
		}()
		next(rec, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

func writeInvalid(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error.Printf("Failed to read request body: %v", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	logger.Debug.Printf("Received %s %s body: %s", r.Method, r.URL.Path, string(body))

	if err := json.NewDecoder(bytes.NewReader(body)).Decode(dst); err != nil {
		writeInvalid(w, "Invalid request body")
		return false
	}
	return true
}

// respond writes a command result, mapping validation failures to 422 and
// anything else to a generic 500.
func respond(w http.ResponseWriter, op string, result interface{}, err error) {
	if errors.Is(err, app.ErrInvalidInput) {
		writeInvalid(w, err.Error())
		return
	}
	if err != nil {
		logger.Error.Printf("Failed to %s: %v", op, err)
		http.Error(w, "Failed to "+op, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CampusHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

func (h *CampusHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListEvents(r.Context())
	respond(w, "list events", events, err)
}

func (h *CampusHandler) HandleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var student models.Student
	if !decodeBody(w, r, &student) {
		return
	}

	result, err := h.service.CreateStudent(r.Context(), &student)
	respond(w, "create student", result, err)
}

func (h *CampusHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if !decodeBody(w, r, &event) {
		return
	}

	result, err := h.service.CreateEvent(r.Context(), &event)
	respond(w, "create event", result, err)
}

func (h *CampusHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.RegisterStudent(r.Context(), req.StudentID, req.EventID)
	respond(w, "register student", result, err)
}

func (h *CampusHandler) HandleAttendance(w http.ResponseWriter, r *http.Request) {
	var req models.Attendance
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.MarkAttendance(r.Context(), req.RegistrationID, req.Present)
	respond(w, "mark attendance", result, err)
}

func (h *CampusHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.Feedback
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.SubmitFeedback(r.Context(), req.RegistrationID, req.Rating, req.Comment)
	respond(w, "submit feedback", result, err)
}

func (h *CampusHandler) HandleRegistrationsReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.RegistrationsReport(r.Context())
	respond(w, "fetch registrations report", rows, err)
}

func (h *CampusHandler) HandleAttendanceReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.AttendanceReport(r.Context())
	respond(w, "fetch attendance report", rows, err)
}

func (h *CampusHandler) HandleFeedbackReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.FeedbackReport(r.Context())
	respond(w, "fetch feedback report", rows, err)
}

func (h *CampusHandler) HandleStudentReport(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.PathValue("student_id"), 10, 64)
	if err != nil {
		logger.Debug.Printf("Bad student id in path: %s", r.URL.Path)
		writeInvalid(w, "student_id must be an integer")
		return
	}

	result, err := h.service.StudentParticipation(r.Context(), studentID)
	respond(w, "fetch student participation", result, err)
}

func (h *CampusHandler) HandleTopActive(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeInvalid(w, "limit must be an integer")
			return
		}
		if parsed < 0 {
			writeInvalid(w, "limit must not be negative")
			return
		}
		limit = &parsed
	}

	rows, err := h.service.TopActiveStudents(r.Context(), limit)
	respond(w, "fetch top active students", rows, err)
}
