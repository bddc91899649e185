// Package web serves the portal pages and routes every view-triggered
// mutation through the record-list controller.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reflection-portal/internal/apiclient"
	"reflection-portal/internal/auth"
	"reflection-portal/internal/controller"
	"reflection-portal/internal/models"
	"reflection-portal/internal/notify"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type Handler struct {
	feedback     *apiclient.Collection[models.FeedbackRecord, models.FeedbackDraft]
	improvements *apiclient.Collection[models.ImprovementRecord, models.ImprovementDraft]
	sessions     *auth.Sessions
	provider     *auth.Provider
	notifier     notify.Notifier
	tmpl         *template.Template
}

func NewHandler(
	feedback *apiclient.Collection[models.FeedbackRecord, models.FeedbackDraft],
	improvements *apiclient.Collection[models.ImprovementRecord, models.ImprovementDraft],
	sessions *auth.Sessions,
	provider *auth.Provider,
	notifier notify.Notifier,
) *Handler {
	funcs := template.FuncMap{
		"stars":      renderStars,
		"formatDate": formatDate,
	}
	tmpl := template.Must(template.New("portal").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
	return &Handler{
		feedback:     feedback,
		improvements: improvements,
		sessions:     sessions,
		provider:     provider,
		notifier:     notifier,
		tmpl:         tmpl,
	}
}

// Static serves the embedded stylesheet and assets under /static/.
func (h *Handler) Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// newFeedbackList builds the per-request controller for the feedback
// collection. The snapshot copies a record's editable fields into the draft
// buffer when an inline edit begins.
func (h *Handler) newFeedbackList() *controller.List[models.FeedbackRecord, models.FeedbackDraft] {
	return controller.New[models.FeedbackRecord, models.FeedbackDraft](h.feedback,
		func(r models.FeedbackRecord) models.FeedbackDraft {
			return models.FeedbackDraft{
				StudentName: r.StudentName,
				House:       r.House,
				Rating:      r.Rating,
				Comment:     r.Comment,
			}
		})
}

func (h *Handler) newImprovementList() *controller.List[models.ImprovementRecord, models.ImprovementDraft] {
	return controller.New[models.ImprovementRecord, models.ImprovementDraft](h.improvements,
		func(r models.ImprovementRecord) models.ImprovementDraft {
			return models.ImprovementDraft{
				Problem:     r.Problem,
				Solution:    r.Solution,
				SubmittedBy: r.SubmittedBy,
			}
		})
}

// --- Rendering helpers ---

// page carries what the shared nav and flash partials need; each page's data
// struct embeds it.
type page struct {
	Title  string
	Active string
	User   *models.User
	Flash  controller.Banner
}

func (h *Handler) newPage(w http.ResponseWriter, r *http.Request, title, active string) page {
	return page{
		Title:  title,
		Active: active,
		User:   auth.CurrentUser(r.Context()),
		Flash:  popFlash(w, r),
	}
}

// confirmPage backs the delete prompt shared by both record kinds.
type confirmPage struct {
	page
	Prompt    string
	Action    string
	CancelURL string
	Return    string
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func renderStars(rating int) string {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		if i <= rating {
			b.WriteRune('★')
		} else {
			b.WriteRune('☆')
		}
	}
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format("Jan 2, 2006, 3:04 PM")
}

// --- Flash cookie ---
// Post/redirect/get carries the status banner in a one-shot cookie; the
// rendered banner then self-expires after the controller's five seconds.

const flashCookie = "portal_flash"

func setFlash(w http.ResponseWriter, banner controller.Banner) {
	if banner.Message == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(banner.Kind) + "|" + banner.Message),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
	})
}

// popFlash reads and clears the flash cookie. The writer may be nil when the
// caller only wants to peek.
func popFlash(w http.ResponseWriter, r *http.Request) controller.Banner {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return controller.Banner{}
	}
	if w != nil {
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true})
	}
	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return controller.Banner{}
	}
	kind, message, ok := strings.Cut(raw, "|")
	if !ok {
		return controller.Banner{}
	}
	return controller.Banner{Message: message, Kind: controller.BannerKind(kind)}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
