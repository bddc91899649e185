package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflection-portal/internal/apiclient"
	"reflection-portal/internal/auth"
	"reflection-portal/internal/models"
	"reflection-portal/internal/notify"
)

type fakeNotifier struct {
	published chan string
}

func (f *fakeNotifier) Publish(ctx context.Context, subject, message string) error {
	f.published <- subject + ": " + message
	return nil
}

type portal struct {
	router   http.Handler
	sessions *auth.Sessions
	notifier *fakeNotifier
}

// newPortal wires the handler into a router the way cmd/server does.
func newPortal(t *testing.T, storageURL string) *portal {
	t.Helper()

	client := apiclient.New(storageURL, nil)
	feedback := apiclient.NewCollection[models.FeedbackRecord, models.FeedbackDraft](client, "/api/feedback")
	improvements := apiclient.NewCollection[models.ImprovementRecord, models.ImprovementDraft](client, "/api/improvements")
	sessions := auth.NewSessions("test-secret")
	notifier := &fakeNotifier{published: make(chan string, 1)}
	handler := NewHandler(feedback, improvements, sessions, &auth.Provider{}, notifier)

	r := chi.NewRouter()
	r.Get("/login", handler.LoginPage)
	r.Get("/session", handler.Session)
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireUser)
		r.Get("/", handler.HomePage)
		r.Post("/", handler.HomeSubmit)
		r.Get("/feedback", handler.FeedbackPage)
		r.Post("/feedback", handler.FeedbackSubmit)
		r.Post("/feedback/{id}", handler.FeedbackUpdate)
		r.Get("/feedback/{id}/delete", handler.FeedbackDeleteConfirm)
		r.Post("/feedback/{id}/delete", handler.FeedbackDelete)
		r.Get("/filter", handler.FilterPage)
		r.Get("/students", handler.StudentsPage)
		r.Post("/students/{id}", handler.StudentsUpdate)
		r.Get("/students/{id}/delete", handler.StudentsDeleteConfirm)
		r.Post("/students/{id}/delete", handler.StudentsDelete)
		r.Get("/improvements", handler.ImprovementsPage)
		r.Post("/improvements", handler.ImprovementCreate)
		r.Post("/improvements/{id}", handler.ImprovementUpdate)
		r.Get("/improvements/{id}/delete", handler.ImprovementDeleteConfirm)
		r.Post("/improvements/{id}/delete", handler.ImprovementDelete)
	})

	return &portal{router: r, sessions: sessions, notifier: notifier}
}

func (p *portal) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := p.sessions.Issue(models.User{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	return &http.Cookie{Name: auth.SessionCookie, Value: token}
}

func (p *portal) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	req.AddCookie(p.sessionCookie(t))
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	return rec
}

func (p *portal) postForm(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(p.sessionCookie(t))
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	return rec
}

func flashMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashCookie && cookie.MaxAge >= 0 {
			raw, err := url.QueryUnescape(cookie.Value)
			require.NoError(t, err)
			return raw
		}
	}
	return ""
}

func storedFeedback() []models.FeedbackRecord {
	return []models.FeedbackRecord{
		{ID: "1", StudentName: "Ann", House: models.HouseMegh, Rating: 5,
			Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "2", StudentName: "Bob", House: models.HouseBhairav, Rating: 2, Comment: "meh",
			Timestamp: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
	}
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	p := newPortal(t, "http://storage.invalid")

	req := httptest.NewRequest("GET", "/feedback", nil)
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestFeedbackPageRendersCards(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	}))
	defer server.Close()

	rec := newPortal(t, server.URL).get(t, "/feedback")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ann")
	assert.Contains(t, body, "★★★★★", "five filled stars for a rating of 5")
	assert.Contains(t, body, "★★☆☆☆")
}

func TestFeedbackPageShowsLoadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	rec := newPortal(t, server.URL).get(t, "/feedback")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not connect to the backend server.")
}

func TestFilterPageAppliesPredicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	}))
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.get(t, "/filter?studentName=ann")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Results (1)")
	assert.Contains(t, body, "Ann")
	assert.NotContains(t, body, "Bob")
}

func TestFilterPageRevealsActionsForSelectedCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	}))
	defer server.Close()
	p := newPortal(t, server.URL)

	plain := p.get(t, "/filter?studentName=").Body.String()
	assert.NotContains(t, plain, "/feedback/1/delete")

	selected := p.get(t, "/filter?studentName=&selected=1").Body.String()
	assert.Contains(t, selected, "/feedback/1/delete")
}

func TestComputeStats(t *testing.T) {
	empty := computeStats(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, "0", empty.AvgRating)
	assert.Empty(t, empty.HouseCounts)

	records := []models.FeedbackRecord{
		{ID: "1", House: models.HouseMegh, Rating: 5},
		{ID: "2", House: models.HouseBhairav, Rating: 2},
		{ID: "3", House: models.HouseMegh, Rating: 4},
	}
	stats := computeStats(records)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, "3.7", stats.AvgRating)
	assert.Equal(t, []houseCount{
		{House: models.HouseMegh, Count: 2},
		{House: models.HouseBhairav, Count: 1},
	}, stats.HouseCounts, "houses keep first-submission order")
}

func TestStudentsPageShowsStatsAndTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	}))
	defer server.Close()

	rec := newPortal(t, server.URL).get(t, "/students")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Total Submissions")
	assert.Contains(t, body, "3.5", "average of ratings 5 and 2")
	assert.Contains(t, body, "Houses Represented")
	assert.Contains(t, body, "Megh")
	assert.Contains(t, body, "Bhairav")
	assert.Contains(t, body, "Ann")
	assert.Contains(t, body, "Bob")
}

func TestStudentsPageRevealsActionsForSelectedRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	}))
	defer server.Close()
	p := newPortal(t, server.URL)

	plain := p.get(t, "/students").Body.String()
	assert.NotContains(t, plain, "/students/1/delete")

	selected := p.get(t, "/students?selected=1").Body.String()
	assert.Contains(t, selected, "/students/1/delete")
	assert.Contains(t, selected, "/students?edit=1")
}

func TestStudentsPageInlineEditForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	}))
	defer server.Close()

	body := newPortal(t, server.URL).get(t, "/students?edit=2").Body.String()
	assert.Contains(t, body, `action="/students/2"`)
	assert.Contains(t, body, `value="Bob"`)
	assert.Contains(t, body, "meh")
}

func TestStudentsUpdateFailureStaysEditing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feedback", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	})
	mux.HandleFunc("PUT /api/feedback/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"db down"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.postForm(t, "/students/1", url.Values{
		"studentName": {"Ann"},
		"house":       {"Megh"},
		"rating":      {"1"},
		"comment":     {"revised"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/students?edit=1", rec.Header().Get("Location"))
	assert.Contains(t, flashMessage(t, rec), "Error updating feedback: db down")
}

func TestStudentsDeleteConfirmRoundTrip(t *testing.T) {
	var deleted bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feedback", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	})
	mux.HandleFunc("DELETE /api/feedback/2", func(w http.ResponseWriter, r *http.Request) {
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.get(t, "/students/2/delete")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Are you sure you want to delete this feedback?")

	rec = p.postForm(t, "/students/2/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, deleted)

	rec = p.postForm(t, "/students/2/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/students", rec.Header().Get("Location"))
	assert.True(t, deleted)
}

func TestHomeSubmitBlockedClientSide(t *testing.T) {
	var upstreamCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
	}))
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.postForm(t, "/", url.Values{
		"studentName": {""},
		"house":       {"Megh"},
		"rating":      {"5"},
		"comment":     {""},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 0, upstreamCalls, "an invalid draft must never reach the storage service")
	assert.Contains(t, flashMessage(t, rec), "student name is required")
}

func TestHomeSubmitSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		var draft models.FeedbackDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.FeedbackRecord{ID: "9", StudentName: draft.StudentName,
			House: draft.House, Rating: draft.Rating, Comment: draft.Comment, Timestamp: time.Now()})
	}))
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.postForm(t, "/", url.Values{
		"studentName": {"Cam"},
		"house":       {"Bhairav"},
		"rating":      {"4"},
		"comment":     {"solid work"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, flashMessage(t, rec), "Success! Reflection saved.")
}

func TestUpdateFailureShowsServerMessageAndStaysEditing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feedback", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	})
	mux.HandleFunc("PUT /api/feedback/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"db down"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.postForm(t, "/feedback/1", url.Values{
		"studentName": {"Ann"},
		"house":       {"Megh"},
		"rating":      {"1"},
		"comment":     {"revised"},
		"return":      {""},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/filter?edit=1", rec.Header().Get("Location"), "a failed commit keeps the user in edit mode")
	assert.Contains(t, flashMessage(t, rec), "db down")
}

func TestUpdateSuccessRedirectsToFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feedback", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	})
	mux.HandleFunc("PUT /api/feedback/1", func(w http.ResponseWriter, r *http.Request) {
		var draft models.FeedbackDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		json.NewEncoder(w).Encode(models.FeedbackRecord{ID: "1", StudentName: draft.StudentName,
			House: draft.House, Rating: draft.Rating, Comment: draft.Comment,
			Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)})
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.postForm(t, "/feedback/1", url.Values{
		"studentName": {"Ann"},
		"house":       {"Megh"},
		"rating":      {"2"},
		"comment":     {"revised"},
		"return":      {"rating=5"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/filter?rating=5", rec.Header().Get("Location"))
}

func TestDeleteRequiresConfirmRoundTrip(t *testing.T) {
	var deleted bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feedback", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(storedFeedback())
	})
	mux.HandleFunc("DELETE /api/feedback/1", func(w http.ResponseWriter, r *http.Request) {
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	p := newPortal(t, server.URL)

	// The prompt page itself.
	rec := p.get(t, "/feedback/1/delete")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Are you sure you want to delete this feedback?")

	// Posting without the confirmation never deletes.
	rec = p.postForm(t, "/feedback/1/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.False(t, deleted)

	// Confirmed delete goes through and returns to the filter page.
	rec = p.postForm(t, "/feedback/1/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/filter", rec.Header().Get("Location"))
	assert.True(t, deleted)
}

func TestImprovementCreateNotifiesMaintainers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/improvements", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.ImprovementRecord{})
	})
	mux.HandleFunc("POST /api/improvements", func(w http.ResponseWriter, r *http.Request) {
		var draft models.ImprovementDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.ImprovementRecord{ID: "7", Problem: draft.Problem,
			Solution: draft.Solution, SubmittedBy: draft.SubmittedBy, Timestamp: time.Now()})
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.postForm(t, "/improvements", url.Values{
		"problem":     {"slow page"},
		"solution":    {"add index"},
		"submittedBy": {"Ann"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/improvements", rec.Header().Get("Location"))

	select {
	case msg := <-p.notifier.published:
		assert.Contains(t, msg, "New improvement report")
		assert.Contains(t, msg, "slow page")
	case <-time.After(time.Second):
		t.Fatal("expected a maintainer notification")
	}
}

func TestImprovementCreateValidation(t *testing.T) {
	var upstreamCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
	}))
	defer server.Close()
	p := newPortal(t, server.URL)

	rec := p.postForm(t, "/improvements", url.Values{
		"problem":     {"slow page"},
		"solution":    {""},
		"submittedBy": {"Ann"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 0, upstreamCalls)
	assert.Contains(t, flashMessage(t, rec), "proposed solution is required")
}

func TestSessionEndpoint(t *testing.T) {
	p := newPortal(t, "http://storage.invalid")

	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, httptest.NewRequest("GET", "/session", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = p.get(t, "/session")
	require.Equal(t, http.StatusOK, rec.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "ann@example.com", user.Email)
}

var _ notify.Notifier = (*fakeNotifier)(nil)
