package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reflection-portal/internal/controller"
	"reflection-portal/internal/models"
)

// --- GET / ---

type homePage struct {
	page
	Houses []models.House
}

func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "home", homePage{
		page:   h.newPage(w, r, "Students Reflection Tracking", "home"),
		Houses: models.Houses(),
	})
}

// --- POST / ---
// The home quick-submit requires every field; a draft that fails validation
// never reaches the storage service.

func (h *Handler) HomeSubmit(w http.ResponseWriter, r *http.Request) {
	draft, err := feedbackDraftFromForm(r)
	if err == nil {
		err = draft.Validate()
	}
	if err == nil && draft.House == "" {
		err = fmt.Errorf("house is required")
	}
	if err == nil && draft.Comment == "" {
		err = fmt.Errorf("reflection comment is required")
	}
	if err != nil {
		setFlash(w, controller.Banner{Message: err.Error(), Kind: controller.BannerError})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	ctrl := h.newFeedbackList()
	ctrl.SetCreatedMessage("Success! Reflection saved.")
	_, _ = ctrl.Create(r.Context(), draft)
	setFlash(w, ctrl.Banner())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- GET /feedback ---

type feedbackPage struct {
	page
	LoadError string
	Records   []models.FeedbackRecord
}

func (h *Handler) FeedbackPage(w http.ResponseWriter, r *http.Request) {
	ctrl := h.newFeedbackList()
	data := feedbackPage{page: h.newPage(w, r, "Recent Feedback", "feedback")}
	if err := ctrl.Load(r.Context()); err != nil {
		data.LoadError = "Could not connect to the backend server."
	} else {
		data.Records = ctrl.Records()
	}
	h.render(w, "feedback", data)
}

// --- POST /feedback ---
// The list-page form only requires a name and a rating; house and comment
// stay optional here. The redirect back to /feedback performs the fresh load
// this entry point wants after a successful create.

func (h *Handler) FeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	draft, err := feedbackDraftFromForm(r)
	if err == nil {
		err = draft.Validate()
	}
	if err != nil {
		setFlash(w, controller.Banner{Message: err.Error(), Kind: controller.BannerError})
		http.Redirect(w, r, "/feedback", http.StatusSeeOther)
		return
	}

	ctrl := h.newFeedbackList()
	ctrl.SetCreatedMessage("Success! Feedback saved.")
	_, _ = ctrl.Create(r.Context(), draft)
	setFlash(w, ctrl.Banner())
	http.Redirect(w, r, "/feedback", http.StatusSeeOther)
}

// --- GET /filter ---

type feedbackCard struct {
	models.FeedbackRecord
	Selected  bool
	SelectURL string
	EditURL   string
	DeleteURL string
}

type filterPage struct {
	page
	Filter      controller.FeedbackFilter
	Houses      []models.House
	LoadError   string
	Cards       []feedbackCard
	Count       int
	EditingID   string
	Draft       models.FeedbackDraft
	ReturnQuery string
}

func (h *Handler) FilterPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := filterFromQuery(q)
	data := filterPage{
		page:        h.newPage(w, r, "Filter Feedback", "filter"),
		Filter:      filter,
		Houses:      models.Houses(),
		ReturnQuery: filterQuery(filter).Encode(),
	}

	ctrl := h.newFeedbackList()
	if err := ctrl.Load(r.Context()); err != nil {
		data.LoadError = ctrl.ErrDetail()
		h.render(w, "filter", data)
		return
	}
	ctrl.SetFilter(filter.Predicate())

	if id := q.Get("edit"); id != "" {
		if err := ctrl.BeginEdit(id); err == nil {
			data.EditingID = id
			data.Draft = ctrl.Draft()
		}
	}
	if id := q.Get("selected"); id != "" {
		ctrl.Select(id)
	}

	visible := ctrl.Visible()
	data.Count = len(visible)
	selectedID := ctrl.SelectedID()
	for _, record := range visible {
		card := feedbackCard{
			FeedbackRecord: record,
			Selected:       record.ID == selectedID && record.ID != data.EditingID,
		}
		card.SelectURL = filterPageURL(filter, toggleParam(selectedID, record.ID))
		card.EditURL = filterPageURL(filter, url.Values{"edit": {record.ID}})
		card.DeleteURL = "/feedback/" + url.PathEscape(record.ID) + "/delete?return=" +
			url.QueryEscape(data.ReturnQuery)
		data.Cards = append(data.Cards, card)
	}
	h.render(w, "filter", data)
}

// filterFromQuery treats a bare /filter as the initial visit, which defaults
// both date bounds to today. Once any filter key is present the form values
// are taken as-is, so a cleared date field stays cleared.
func filterFromQuery(q url.Values) controller.FeedbackFilter {
	for _, key := range []string{"studentName", "house", "rating", "startDate", "endDate"} {
		if q.Has(key) {
			return controller.FeedbackFilter{
				StudentName: q.Get("studentName"),
				House:       q.Get("house"),
				Rating:      q.Get("rating"),
				StartDate:   q.Get("startDate"),
				EndDate:     q.Get("endDate"),
			}
		}
	}
	return controller.TodayFilter()
}

func filterQuery(f controller.FeedbackFilter) url.Values {
	values := url.Values{}
	if f.StudentName != "" {
		values.Set("studentName", f.StudentName)
	}
	if f.House != "" {
		values.Set("house", f.House)
	}
	if f.Rating != "" {
		values.Set("rating", f.Rating)
	}
	if f.StartDate != "" {
		values.Set("startDate", f.StartDate)
	}
	if f.EndDate != "" {
		values.Set("endDate", f.EndDate)
	}
	return values
}

func filterPageURL(f controller.FeedbackFilter, extra url.Values) string {
	values := filterQuery(f)
	for key, vals := range extra {
		for _, v := range vals {
			values.Set(key, v)
		}
	}
	if len(values) == 0 {
		// Keep an explicit empty date bound so the revisit is not mistaken
		// for the initial today-defaulting visit.
		values.Set("startDate", "")
	}
	return "/filter?" + values.Encode()
}

// toggleParam yields the selected parameter for a card link: clicking the
// already-selected card deselects it.
func toggleParam(selectedID, id string) url.Values {
	if selectedID == id {
		return url.Values{}
	}
	return url.Values{"selected": {id}}
}

// --- POST /feedback/{id} ---
// Commits an inline edit from the filter page. On failure the user stays in
// edit mode to retry or cancel.

func (h *Handler) FeedbackUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	returnQuery := sanitizeReturnQuery(r.FormValue("return"))
	editTarget := "/filter?edit=" + url.QueryEscape(id) + appendQuery(returnQuery)

	draft, err := feedbackDraftFromForm(r)
	if err == nil {
		err = draft.Validate()
	}
	if err != nil {
		setFlash(w, controller.Banner{Message: err.Error(), Kind: controller.BannerError})
		http.Redirect(w, r, editTarget, http.StatusSeeOther)
		return
	}

	ctrl := h.newFeedbackList()
	if err := ctrl.Load(r.Context()); err != nil {
		setFlash(w, controller.Banner{Message: ctrl.ErrDetail(), Kind: controller.BannerError})
		http.Redirect(w, r, editTarget, http.StatusSeeOther)
		return
	}
	if err := ctrl.BeginEdit(id); err != nil {
		setFlash(w, controller.Banner{Message: "That feedback no longer exists.", Kind: controller.BannerError})
		http.Redirect(w, r, "/filter"+prefixQuery(returnQuery), http.StatusSeeOther)
		return
	}
	ctrl.UpdateDraft(func(d *models.FeedbackDraft) {
		*d = draft
	})
	if _, err := ctrl.CommitEdit(r.Context(), id); err != nil {
		setFlash(w, ctrl.Banner())
		http.Redirect(w, r, editTarget, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/filter"+prefixQuery(returnQuery), http.StatusSeeOther)
}

// --- GET /feedback/{id}/delete ---
// The explicit yes/no prompt. Deletes never fire without it.

func (h *Handler) FeedbackDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	returnQuery := sanitizeReturnQuery(r.URL.Query().Get("return"))
	h.render(w, "confirm", confirmPage{
		page:      h.newPage(w, r, "Confirm Delete", "filter"),
		Prompt:    "Are you sure you want to delete this feedback?",
		Action:    "/feedback/" + url.PathEscape(id) + "/delete",
		CancelURL: "/filter" + prefixQuery(returnQuery),
		Return:    returnQuery,
	})
}

// --- POST /feedback/{id}/delete ---

func (h *Handler) FeedbackDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	returnQuery := sanitizeReturnQuery(r.FormValue("return"))
	confirmed := r.FormValue("confirm") == "yes"

	ctrl := h.newFeedbackList()
	_ = ctrl.Load(r.Context())
	if err := ctrl.Remove(r.Context(), id, confirmed); err != nil {
		if err == controller.ErrNotConfirmed {
			target := "/feedback/" + url.PathEscape(id) + "/delete?return=" + url.QueryEscape(returnQuery)
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		setFlash(w, controller.Banner{
			Message: "Error deleting feedback: " + ctrl.Banner().Message,
			Kind:    controller.BannerError,
		})
	}
	http.Redirect(w, r, "/filter"+prefixQuery(returnQuery), http.StatusSeeOther)
}

// --- Form helpers ---

func feedbackDraftFromForm(r *http.Request) (models.FeedbackDraft, error) {
	if err := r.ParseForm(); err != nil {
		return models.FeedbackDraft{}, fmt.Errorf("invalid form submission")
	}
	rating, err := strconv.Atoi(r.PostFormValue("rating"))
	if err != nil {
		return models.FeedbackDraft{}, fmt.Errorf("rating must be a number between 1 and 5")
	}
	return models.FeedbackDraft{
		StudentName: r.PostFormValue("studentName"),
		House:       models.House(r.PostFormValue("house")),
		Rating:      rating,
		Comment:     r.PostFormValue("comment"),
	}, nil
}

// sanitizeReturnQuery keeps only the filter keys from a round-tripped query
// string so redirects cannot carry anything else back to the filter page.
func sanitizeReturnQuery(raw string) string {
	parsed, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	return filterQuery(controller.FeedbackFilter{
		StudentName: parsed.Get("studentName"),
		House:       parsed.Get("house"),
		Rating:      parsed.Get("rating"),
		StartDate:   parsed.Get("startDate"),
		EndDate:     parsed.Get("endDate"),
	}).Encode()
}

func prefixQuery(query string) string {
	if query == "" {
		return ""
	}
	return "?" + query
}

func appendQuery(query string) string {
	if query == "" {
		return ""
	}
	return "&" + query
}
