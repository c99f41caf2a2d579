package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/campusevents/internal/app"
	"github.com/shrimpsizemoose/campusevents/internal/store/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := sqlite.NewSQLiteStore(":memory:", "../../migrations")
	require.NoError(t, err)

	svc := app.New(&app.Config{}, s)
	mux := http.NewServeMux()
	NewCampusHandler(svc).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	}
	return resp.StatusCode, raw
}

func decodeObject(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func decodeList(t *testing.T, raw []byte) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t)

	status, raw := call(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, rootMessage, decodeObject(t, raw)["message"])

	status, _ = call(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCampusFlow(t *testing.T) {
	srv := newTestServer(t)

	status, raw := call(t, srv, http.MethodPost, "/students", `{"name":"A","email":"a@example.edu","college_id":1}`)
	require.Equal(t, http.StatusOK, status)
	student := decodeObject(t, raw)
	assert.Equal(t, "A", student["name"])
	assert.Equal(t, "a@example.edu", student["email"])
	assert.Equal(t, float64(1), student["id"])

	status, _ = call(t, srv, http.MethodPost, "/students", `{"name":"A again","email":"a@example.edu","college_id":1}`)
	assert.Equal(t, http.StatusInternalServerError, status, "duplicate email is a storage failure")

	status, raw = call(t, srv, http.MethodPost, "/events", `{"title":"X","event_type":"talk","college_id":1,"date":"2025-10-01"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"id": float64(1), "title": "X", "event_type": "talk"}, decodeObject(t, raw))

	status, _ = call(t, srv, http.MethodPost, "/events", `{"title":"Empty","event_type":"talk","college_id":1,"date":"2025-10-02"}`)
	require.Equal(t, http.StatusOK, status)

	status, raw = call(t, srv, http.MethodPost, "/register", `{"student_id":1,"event_id":1}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"message": "Student registered", "registration_id": float64(1)}, decodeObject(t, raw))

	status, raw = call(t, srv, http.MethodPost, "/register", `{"student_id":1,"event_id":1}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"error": app.MsgAlreadyRegistered}, decodeObject(t, raw))

	status, raw = call(t, srv, http.MethodPost, "/attendance", `{"registration_id":1,"present":1}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"message": "Attendance marked", "attendance_id": float64(1), "present": float64(1)}, decodeObject(t, raw))

	status, raw = call(t, srv, http.MethodPost, "/attendance", `{"registration_id":99,"present":1}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"error": app.MsgRegistrationNotFound}, decodeObject(t, raw))

	status, raw = call(t, srv, http.MethodPost, "/feedback", `{"registration_id":1,"rating":4,"comment":"good"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"message": "Feedback saved", "feedback_id": float64(1), "rating": float64(4)}, decodeObject(t, raw))

	status, raw = call(t, srv, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, status)
	events := decodeList(t, raw)
	require.Len(t, events, 2)
	assert.Equal(t, float64(1), events[0]["registered"])
	assert.Equal(t, "2025-10-01", events[0]["date"])

	status, raw = call(t, srv, http.MethodGet, "/reports/registrations", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []map[string]interface{}{
		{"event": "X", "registrations": float64(1)},
		{"event": "Empty", "registrations": float64(0)},
	}, decodeList(t, raw))

	status, raw = call(t, srv, http.MethodGet, "/reports/attendance", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []map[string]interface{}{
		{"event": "X", "attendance_pct": float64(100)},
		{"event": "Empty", "attendance_pct": float64(0)},
	}, decodeList(t, raw))

	status, raw = call(t, srv, http.MethodGet, "/reports/feedback", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []map[string]interface{}{
		{"event": "X", "avg_rating": float64(4)},
		{"event": "Empty", "avg_rating": nil},
	}, decodeList(t, raw))

	status, raw = call(t, srv, http.MethodGet, "/reports/student/1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"student": "A", "attended_events": float64(1)}, decodeObject(t, raw))

	status, raw = call(t, srv, http.MethodGet, "/reports/student/2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"student_id": float64(2), "attended_events": float64(0)}, decodeObject(t, raw))

	status, raw = call(t, srv, http.MethodGet, "/reports/top-active", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []map[string]interface{}{{"student": "A", "attended": float64(1)}}, decodeList(t, raw))
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	testCases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"malformed json", http.MethodPost, "/students", `{"name":`},
		{"bad email", http.MethodPost, "/students", `{"name":"A","email":"nope","college_id":1}`},
		{"missing title", http.MethodPost, "/events", `{"event_type":"talk","college_id":1}`},
		{"missing ids", http.MethodPost, "/register", `{}`},
		{"present out of range", http.MethodPost, "/attendance", `{"registration_id":1,"present":2}`},
		{"rating out of range", http.MethodPost, "/feedback", `{"registration_id":1,"rating":9}`},
		{"non numeric student id", http.MethodGet, "/reports/student/abc", ""},
		{"non numeric limit", http.MethodGet, "/reports/top-active?limit=many", ""},
		{"negative limit", http.MethodGet, "/reports/top-active?limit=-1", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := call(t, srv, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Contains(t, decodeObject(t, raw), "error")
		})
	}
}

func TestTopActiveLimit(t *testing.T) {
	srv := newTestServer(t)

	for i, name := range []string{"A", "B", "C"} {
		body := `{"name":"` + name + `","email":"` + strings.ToLower(name) + `@example.edu","college_id":1}`
		status, _ := call(t, srv, http.MethodPost, "/students", body)
		require.Equal(t, http.StatusOK, status)

		status, _ = call(t, srv, http.MethodPost, "/events", `{"title":"E`+name+`","event_type":"talk","college_id":1,"date":"d"}`)
		require.Equal(t, http.StatusOK, status)

		// student i+1 attends i+1 events
		for e := 1; e <= i+1; e++ {
			_, raw := call(t, srv, http.MethodPost, "/register",
				`{"student_id":`+itoa(i+1)+`,"event_id":`+itoa(e)+`}`)
			reg := decodeObject(t, raw)
			require.Contains(t, reg, "registration_id")
			status, _ := call(t, srv, http.MethodPost, "/attendance",
				`{"registration_id":`+itoa(int(reg["registration_id"].(float64)))+`,"present":1}`)
			require.Equal(t, http.StatusOK, status)
		}
	}

	status, raw := call(t, srv, http.MethodGet, "/reports/top-active?limit=2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []map[string]interface{}{
		{"student": "C", "attended": float64(3)},
		{"student": "B", "attended": float64(2)},
	}, decodeList(t, raw))

	status, raw = call(t, srv, http.MethodGet, "/reports/top-active?limit=0", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
