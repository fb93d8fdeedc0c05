package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dori/tempo/internal/model"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a small in-memory stand-in for the REST backend
type fakeBackend struct {
	hits      atomic.Int32
	lastQuery atomic.Value
	lastBody  atomic.Value
}

func (f *fakeBackend) router(t *testing.T) *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.hits.Add(1)
			f.lastQuery.Store(req.URL.RawQuery)
			if req.Body != nil {
				b, _ := io.ReadAll(req.Body)
				f.lastBody.Store(string(b))
			}
			if req.Header.Get("Authorization") != "Bearer good-token" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if req.Header.Get(RequestIDHeader) == "" {
				t.Errorf("missing %s header", RequestIDHeader)
			}
			next.ServeHTTP(w, req)
		})
	})

	r.HandleFunc("/timesheets", func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Query().Get("page") {
		case "2":
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []model.TimeLogEntry{{ID: "e3", StartDate: "2024-06-05"}},
				"total": 3,
			})
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []model.TimeLogEntry{
					{ID: "e1", StartDate: "2024-06-03"},
					{ID: "e2", StartDate: "2024-06-04"},
				},
				"total": 3,
			})
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/timesheets", func(w http.ResponseWriter, req *http.Request) {
		var in model.EntryInput
		body := f.lastBody.Load().(string)
		if err := json.Unmarshal([]byte(body), &in); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if in.TaskID == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "task is required"})
			return
		}
		writeJSON(w, http.StatusCreated, model.TimeLogEntry{
			ID: "new-1", TaskID: in.TaskID, ProjectID: in.ProjectID,
			StartDate: in.StartDate, StartTime: in.StartTime, EndDate: in.EndDate, EndTime: in.EndTime,
		})
	}).Methods(http.MethodPost)

	r.HandleFunc("/timesheets/weekly", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"createdLogs": []model.TimeLogEntry{{ID: "w1", StartDate: "2024-06-03"}},
		})
	}).Methods(http.MethodPost)

	r.HandleFunc("/timesheets/{id}", func(w http.ResponseWriter, req *http.Request) {
		if mux.Vars(req)["id"] == "missing" {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	r.HandleFunc("/tasks", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, []model.Task{{ID: "t1", Title: "Write report", Progress: 20}})
	}).Methods(http.MethodGet)

	r.HandleFunc("/tasks/{id}", func(w http.ResponseWriter, req *http.Request) {
		switch mux.Vars(req)["id"] {
		case "quiet":
			w.WriteHeader(http.StatusNoContent)
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			var patch TaskPatch
			_ = json.Unmarshal([]byte(f.lastBody.Load().(string)), &patch)
			task := model.Task{ID: mux.Vars(req)["id"], Title: "Write report"}
			if patch.Progress != nil {
				task.Progress = *patch.Progress
			}
			writeJSON(w, http.StatusOK, task)
		}
	}).Methods(http.MethodPatch)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, token string) (*Client, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.router(t))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", StaticToken(token), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c, fb
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", StaticToken("x"))
	assert.Error(t, err)

	_, err = New("::not a url", StaticToken("x"))
	assert.Error(t, err)
}

func TestListTimesheets(t *testing.T) {
	c, fb := newTestClient(t, "good-token")

	page, err := c.ListTimesheets(context.Background(), ListQuery{Page: 1, Limit: 2, Employee: "emp-7", Search: "report"})
	require.NoError(t, err)

	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "employee=emp-7&limit=2&page=1&search=report", fb.lastQuery.Load())
}

func TestNoTokenShortCircuits(t *testing.T) {
	c, fb := newTestClient(t, "")

	_, err := c.ListTimesheets(context.Background(), ListQuery{})
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	assert.Zero(t, fb.hits.Load())
}

func TestUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, "stale-token")

	_, err := c.ListTasks(context.Background(), TaskQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, "Session expired. Sign in again.", Message(err))
}

func TestCreateTimesheet(t *testing.T) {
	c, fb := newTestClient(t, "good-token")

	in := model.NewEntryInput("p1", "t1", "emp-7", "2024-06-03", "09:00", "2024-06-03", "17:00", "standup")
	saved, err := c.CreateTimesheet(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "new-1", saved.ID)
	assert.Equal(t, 480, saved.Minutes())
	assert.Contains(t, fb.lastBody.Load(), `"durationHours":8`)
}

func TestCreateTimesheetValidationMessage(t *testing.T) {
	c, _ := newTestClient(t, "good-token")

	_, err := c.CreateTimesheet(context.Background(), model.EntryInput{StartDate: "2024-06-03"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Status)
	assert.Equal(t, KindRequestFailed, KindOf(err))
	assert.Equal(t, "task is required", Message(err))
}

func TestDeleteTimesheet(t *testing.T) {
	c, _ := newTestClient(t, "good-token")

	require.NoError(t, c.DeleteTimesheet(context.Background(), "e1"))

	err := c.DeleteTimesheet(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "entry not found", Message(err))

	assert.Error(t, c.DeleteTimesheet(context.Background(), ""))
}

func TestSeedWeek(t *testing.T) {
	c, fb := newTestClient(t, "good-token")

	logs, err := c.SeedWeek(context.Background(), "2024-06-03")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "w1", logs[0].ID)
	assert.JSONEq(t, `{"weekStart":"2024-06-03"}`, fb.lastBody.Load().(string))
}

func TestListTasksBareArray(t *testing.T) {
	c, _ := newTestClient(t, "good-token")

	tasks, err := c.ListTasks(context.Background(), TaskQuery{Project: "p1"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 20, tasks[0].Progress)
}

func TestPatchTask(t *testing.T) {
	c, fb := newTestClient(t, "good-token")
	progress := 65

	task, err := c.PatchTask(context.Background(), "t1", TaskPatch{Progress: &progress})
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, 65, task.Progress)
	assert.JSONEq(t, `{"progress":65}`, fb.lastBody.Load().(string))

	task, err = c.PatchTask(context.Background(), "quiet", TaskPatch{Progress: &progress})
	require.NoError(t, err)
	assert.Nil(t, task)

	_, err = c.PatchTask(context.Background(), "broken", TaskPatch{Progress: &progress})
	require.Error(t, err)
	assert.Equal(t, KindRequestFailed, KindOf(err))
	assert.Equal(t, "Request failed. Please try again.", Message(err))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, StaticToken("good-token"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.ListTimesheets(ctx, ListQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, StaticToken("good-token"))
	require.NoError(t, err)

	_, err = c.ListTasks(context.Background(), TaskQuery{})
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, "Could not reach the server.", Message(err))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrUnauthenticated, KindUnauthenticated},
		{fmt.Errorf("wrapped: %w", ErrUnauthorized), KindUnauthorized},
		{&StatusError{Status: http.StatusUnauthorized}, KindUnauthorized},
		{&StatusError{Status: http.StatusBadGateway}, KindRequestFailed},
		{context.DeadlineExceeded, KindTimeout},
		{fmt.Errorf("%w: GET /x", ErrNetwork), KindNetwork},
		{errors.New("something odd"), KindRequestFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestErrorMessageTruncates(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	msg := errorMessage(long)
	assert.Len(t, msg, maxMessageSize+3)
	assert.Equal(t, "", errorMessage([]byte("   ")))
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":"boom"}`)))
}

func TestErrorMessageTruncatesOnRuneBoundary(t *testing.T) {
	body := "x" + strings.Repeat("é", 200)

	msg := errorMessage([]byte(body))

	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.Len(t, msg, maxMessageSize-1+3)
}
