package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reflection-portal/internal/controller"
	"reflection-portal/internal/models"
)

// --- GET /students ---
// The all-feedback data view: a statistics dashboard over every submission
// plus a table with click-to-reveal inline edit and delete.

type houseCount struct {
	House models.House
	Count int
}

type feedbackStats struct {
	Total       int
	AvgRating   string
	HouseCounts []houseCount
}

// computeStats aggregates the whole collection. Houses appear in
// first-submission order; records without a house count under their own entry.
func computeStats(records []models.FeedbackRecord) feedbackStats {
	stats := feedbackStats{AvgRating: "0"}
	if len(records) == 0 {
		return stats
	}

	sum := 0
	counts := map[models.House]int{}
	var order []models.House
	for _, r := range records {
		sum += r.Rating
		if counts[r.House] == 0 {
			order = append(order, r.House)
		}
		counts[r.House]++
	}

	stats.Total = len(records)
	stats.AvgRating = strconv.FormatFloat(float64(sum)/float64(len(records)), 'f', 1, 64)
	for _, h := range order {
		stats.HouseCounts = append(stats.HouseCounts, houseCount{House: h, Count: counts[h]})
	}
	return stats
}

type feedbackRow struct {
	models.FeedbackRecord
	Selected  bool
	SelectURL string
	EditURL   string
	DeleteURL string
}

type studentsPage struct {
	page
	LoadError string
	Stats     feedbackStats
	Rows      []feedbackRow
	Houses    []models.House
	EditingID string
	Draft     models.FeedbackDraft
}

func (h *Handler) StudentsPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := studentsPage{
		page:   h.newPage(w, r, "All Feedback Data", "students"),
		Houses: models.Houses(),
	}

	ctrl := h.newFeedbackList()
	if err := ctrl.Load(r.Context()); err != nil {
		data.LoadError = ctrl.ErrDetail()
		h.render(w, "students", data)
		return
	}

	if id := q.Get("edit"); id != "" {
		if err := ctrl.BeginEdit(id); err == nil {
			data.EditingID = id
			data.Draft = ctrl.Draft()
		}
	}
	if id := q.Get("selected"); id != "" {
		ctrl.Select(id)
	}

	records := ctrl.Records()
	data.Stats = computeStats(records)
	selectedID := ctrl.SelectedID()
	for _, record := range records {
		row := feedbackRow{
			FeedbackRecord: record,
			Selected:       record.ID == selectedID && record.ID != data.EditingID,
		}
		row.SelectURL = studentsURL(toggleParam(selectedID, record.ID))
		row.EditURL = studentsURL(url.Values{"edit": {record.ID}})
		row.DeleteURL = "/students/" + url.PathEscape(record.ID) + "/delete"
		data.Rows = append(data.Rows, row)
	}
	h.render(w, "students", data)
}

func studentsURL(extra url.Values) string {
	if len(extra) == 0 {
		return "/students"
	}
	return "/students?" + extra.Encode()
}

// --- POST /students/{id} ---

func (h *Handler) StudentsUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	editTarget := "/students?edit=" + url.QueryEscape(id)

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
		http.Redirect(w, r, "/students", http.StatusSeeOther)
		return
	}
	ctrl.UpdateDraft(func(d *models.FeedbackDraft) {
		*d = draft
	})
	if _, err := ctrl.CommitEdit(r.Context(), id); err != nil {
		setFlash(w, controller.Banner{
			Message: "Error updating feedback: " + ctrl.Banner().Message,
			Kind:    controller.BannerError,
		})
		http.Redirect(w, r, editTarget, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/students", http.StatusSeeOther)
}

// --- GET /students/{id}/delete ---

func (h *Handler) StudentsDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.render(w, "confirm", confirmPage{
		page:      h.newPage(w, r, "Confirm Delete", "students"),
		Prompt:    "Are you sure you want to delete this feedback?",
		Action:    "/students/" + url.PathEscape(id) + "/delete",
		CancelURL: "/students",
	})
}

// --- POST /students/{id}/delete ---

func (h *Handler) StudentsDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := r.FormValue("confirm") == "yes"

	ctrl := h.newFeedbackList()
	_ = ctrl.Load(r.Context())
	if err := ctrl.Remove(r.Context(), id, confirmed); err != nil {
		if err == controller.ErrNotConfirmed {
			http.Redirect(w, r, "/students/"+url.PathEscape(id)+"/delete", http.StatusSeeOther)
			return
		}
		setFlash(w, controller.Banner{
			Message: "Error deleting feedback: " + ctrl.Banner().Message,
			Kind:    controller.BannerError,
		})
	}
	http.Redirect(w, r, "/students", http.StatusSeeOther)
}
