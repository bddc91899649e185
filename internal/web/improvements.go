package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"reflection-portal/internal/controller"
	"reflection-portal/internal/models"
)

// --- GET /improvements ---

type improvementsPage struct {
	page
	LoadError string
	Records   []models.ImprovementRecord
	Count     int
	ShowForm  bool
	EditingID string
	Draft     models.ImprovementDraft
}

func (h *Handler) ImprovementsPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := improvementsPage{page: h.newPage(w, r, "Improvements", "improvements")}

	ctrl := h.newImprovementList()
	if err := ctrl.Load(r.Context()); err != nil {
		data.LoadError = ctrl.ErrDetail()
		h.render(w, "improvements", data)
		return
	}

	if id := q.Get("edit"); id != "" {
		if err := ctrl.BeginEdit(id); err == nil {
			data.EditingID = id
			data.Draft = ctrl.Draft()
			data.ShowForm = true
		}
	}
	if q.Get("add") != "" && data.EditingID == "" {
		data.ShowForm = true
	}

	data.Records = ctrl.Records()
	data.Count = len(data.Records)
	h.render(w, "improvements", data)
}

// --- POST /improvements ---
// A successful report is announced to the maintainers in the background;
// delivery is best-effort and never surfaced to the submitting user.

func (h *Handler) ImprovementCreate(w http.ResponseWriter, r *http.Request) {
	draft, err := improvementDraftFromForm(r)
	if err == nil {
		err = draft.Validate()
	}
	if err != nil {
		setFlash(w, controller.Banner{Message: err.Error(), Kind: controller.BannerError})
		http.Redirect(w, r, "/improvements?add=1", http.StatusSeeOther)
		return
	}

	ctrl := h.newImprovementList()
	ctrl.SetCreatedMessage("Success! Improvement saved.")
	record, err := ctrl.Create(r.Context(), draft)
	setFlash(w, ctrl.Banner())
	if err != nil {
		http.Redirect(w, r, "/improvements?add=1", http.StatusSeeOther)
		return
	}

	go func() {
		message := fmt.Sprintf("Problem: %s\nSolution: %s\nSubmitted by: %s",
			record.Problem, record.Solution, record.SubmittedBy)
		if err := h.notifier.Publish(context.Background(), "New improvement report", message); err != nil {
			log.Printf("Error publishing improvement notification: %v", err)
		}
	}()

	http.Redirect(w, r, "/improvements", http.StatusSeeOther)
}

// --- POST /improvements/{id} ---

func (h *Handler) ImprovementUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	editTarget := "/improvements?edit=" + url.QueryEscape(id)

	draft, err := improvementDraftFromForm(r)
	if err == nil {
		err = draft.Validate()
	}
	if err != nil {
		setFlash(w, controller.Banner{Message: err.Error(), Kind: controller.BannerError})
		http.Redirect(w, r, editTarget, http.StatusSeeOther)
		return
	}

	ctrl := h.newImprovementList()
	if err := ctrl.Load(r.Context()); err != nil {
		setFlash(w, controller.Banner{Message: ctrl.ErrDetail(), Kind: controller.BannerError})
		http.Redirect(w, r, editTarget, http.StatusSeeOther)
		return
	}
	if err := ctrl.BeginEdit(id); err != nil {
		setFlash(w, controller.Banner{Message: "That improvement no longer exists.", Kind: controller.BannerError})
		http.Redirect(w, r, "/improvements", http.StatusSeeOther)
		return
	}
	ctrl.UpdateDraft(func(d *models.ImprovementDraft) {
		*d = draft
	})
	if _, err := ctrl.CommitEdit(r.Context(), id); err != nil {
		setFlash(w, controller.Banner{
			Message: "Error updating improvement: " + ctrl.Banner().Message,
			Kind:    controller.BannerError,
		})
		http.Redirect(w, r, editTarget, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/improvements", http.StatusSeeOther)
}

// --- GET /improvements/{id}/delete ---

func (h *Handler) ImprovementDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.render(w, "confirm", confirmPage{
		page:      h.newPage(w, r, "Confirm Delete", "improvements"),
		Prompt:    "Are you sure you want to delete this improvement?",
		Action:    "/improvements/" + url.PathEscape(id) + "/delete",
		CancelURL: "/improvements",
	})
}

// --- POST /improvements/{id}/delete ---

func (h *Handler) ImprovementDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := r.FormValue("confirm") == "yes"

	ctrl := h.newImprovementList()
	_ = ctrl.Load(r.Context())
	if err := ctrl.Remove(r.Context(), id, confirmed); err != nil {
		if err == controller.ErrNotConfirmed {
			http.Redirect(w, r, "/improvements/"+url.PathEscape(id)+"/delete", http.StatusSeeOther)
			return
		}
		setFlash(w, controller.Banner{
			Message: "Error deleting improvement: " + ctrl.Banner().Message,
			Kind:    controller.BannerError,
		})
	}
	http.Redirect(w, r, "/improvements", http.StatusSeeOther)
}

func improvementDraftFromForm(r *http.Request) (models.ImprovementDraft, error) {
	if err := r.ParseForm(); err != nil {
		return models.ImprovementDraft{}, fmt.Errorf("invalid form submission")
	}
	return models.ImprovementDraft{
		Problem:     r.PostFormValue("problem"),
		Solution:    r.PostFormValue("solution"),
		SubmittedBy: r.PostFormValue("submittedBy"),
	}, nil
}
