// Package controller implements the record-list controller every data page
// shares: a local copy of one remote collection plus the load/edit/delete
// state machine that mediates all view-triggered mutations.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"reflection-portal/internal/apiclient"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

var (
	// ErrNotConfirmed is returned by Remove when the caller has not taken the
	// user through the yes/no prompt. Deletes never fire without it.
	ErrNotConfirmed = errors.New("delete not confirmed")
	ErrNoRecord     = errors.New("no such record")
	ErrNotEditing   = errors.New("record is not being edited")
)

// Record is any canonical record with a service-assigned identifier.
type Record interface {
	RecordID() string
}

// Service is the slice of the storage client the controller needs.
// *apiclient.Collection satisfies it.
type Service[R Record, D any] interface {
	List(ctx context.Context) ([]R, error)
	Create(ctx context.Context, draft D) (R, error)
	Update(ctx context.Context, id string, draft D) (R, error)
	Delete(ctx context.Context, id string) error
}

type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is the transient status line shown after a create attempt. It
// auto-clears five seconds after it was last set.
type Banner struct {
	Message string
	Kind    BannerKind
}

const bannerTTL = 5 * time.Second

// List owns the in-memory copy of one record collection. R is the canonical
// record kind, D its draft. Methods are safe for concurrent use; the effects
// of overlapping calls land in completion order, except that a load completion
// superseded by a newer load is discarded outright.
type List[R Record, D any] struct {
	mu       sync.Mutex
	svc      Service[R, D]
	snapshot func(R) D

	status     Status
	errDetail  string
	records    []R
	filter     func(R) bool
	draft      D
	editingID  string
	selectedID string

	createdMsg  string
	banner      Banner
	bannerTTL   time.Duration
	bannerTimer *time.Timer
	bannerGen   uint64

	loadGen uint64
	subs    []func()
}

// New builds an idle controller. snapshot copies a record's editable fields
// into a fresh draft when an edit begins.
func New[R Record, D any](svc Service[R, D], snapshot func(R) D) *List[R, D] {
	return &List[R, D]{
		svc:        svc,
		snapshot:   snapshot,
		status:     StatusIdle,
		createdMsg: "Success! Saved.",
		bannerTTL:  bannerTTL,
	}
}

// SetCreatedMessage overrides the success banner text shown after Create.
func (l *List[R, D]) SetCreatedMessage(msg string) {
	l.mu.Lock()
	l.createdMsg = msg
	l.mu.Unlock()
}

// Subscribe registers fn to run after every state change. Subscribers are
// invoked outside the controller lock.
func (l *List[R, D]) Subscribe(fn func()) {
	l.mu.Lock()
	l.subs = append(l.subs, fn)
	l.mu.Unlock()
}

func (l *List[R, D]) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *List[R, D]) ErrDetail() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errDetail
}

func (l *List[R, D]) EditingID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editingID
}

func (l *List[R, D]) SelectedID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selectedID
}

func (l *List[R, D]) Draft() D {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.draft
}

func (l *List[R, D]) Banner() Banner {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.banner
}

// Records returns the full collection snapshot in server order.
func (l *List[R, D]) Records() []R {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]R(nil), l.records...)
}

// Load fetches the collection and replaces the local copy wholesale. Safe to
// call repeatedly; a completion that another Load has superseded is dropped
// so a slow fetch cannot overwrite newer state.
func (l *List[R, D]) Load(ctx context.Context) error {
	l.mu.Lock()
	l.loadGen++
	gen := l.loadGen
	l.status = StatusLoading
	l.mu.Unlock()
	l.notify()

	records, err := l.svc.List(ctx)

	l.mu.Lock()
	if gen != l.loadGen {
		l.mu.Unlock()
		return nil
	}
	if err != nil {
		l.status = StatusError
		l.errDetail = apiclient.UserMessage(err)
		l.mu.Unlock()
		l.notify()
		return err
	}
	l.records = records
	l.status = StatusReady
	l.errDetail = ""
	l.mu.Unlock()
	l.notify()
	return nil
}

// Create submits a draft and, on success, appends the canonical record the
// service returned. Either outcome sets the status banner. Callers wanting
// full-reload semantics instead of the append call Load afterwards.
func (l *List[R, D]) Create(ctx context.Context, draft D) (R, error) {
	record, err := l.svc.Create(ctx, draft)

	l.mu.Lock()
	if err != nil {
		l.setBannerLocked(apiclient.UserMessage(err), BannerError)
		l.mu.Unlock()
		l.notify()
		return record, err
	}
	l.records = append(l.records, record)
	l.setBannerLocked(l.createdMsg, BannerSuccess)
	l.mu.Unlock()
	l.notify()
	return record, nil
}

// BeginEdit snapshots the record's editable fields into the draft buffer and
// enters edit mode for it. Selecting is cleared; the two affordances never
// show for the same record at once.
func (l *List[R, D]) BeginEdit(id string) error {
	l.mu.Lock()
	record, ok := l.findLocked(id)
	if !ok {
		l.mu.Unlock()
		return ErrNoRecord
	}
	l.draft = l.snapshot(record)
	l.editingID = id
	l.selectedID = ""
	l.mu.Unlock()
	l.notify()
	return nil
}

// UpdateDraft stages field edits into the draft buffer. Records are untouched
// until CommitEdit succeeds.
func (l *List[R, D]) UpdateDraft(apply func(*D)) {
	l.mu.Lock()
	apply(&l.draft)
	l.mu.Unlock()
	l.notify()
}

// CommitEdit sends the draft buffer as a full update. On success the matching
// entry is replaced by the returned canonical record and edit mode ends. On
// failure the user stays in edit mode to retry or cancel, and the failure is
// reported through the banner.
func (l *List[R, D]) CommitEdit(ctx context.Context, id string) (R, error) {
	l.mu.Lock()
	if l.editingID != id {
		var zero R
		l.mu.Unlock()
		return zero, ErrNotEditing
	}
	draft := l.draft
	l.mu.Unlock()

	record, err := l.svc.Update(ctx, id, draft)

	l.mu.Lock()
	if err != nil {
		l.setBannerLocked(apiclient.UserMessage(err), BannerError)
		l.mu.Unlock()
		l.notify()
		return record, err
	}
	for i := range l.records {
		if l.records[i].RecordID() == id {
			l.records[i] = record
			break
		}
	}
	l.editingID = ""
	var zero D
	l.draft = zero
	l.mu.Unlock()
	l.notify()
	return record, nil
}

// CancelEdit leaves edit mode and discards the draft buffer unconditionally.
func (l *List[R, D]) CancelEdit() {
	l.mu.Lock()
	l.editingID = ""
	l.selectedID = ""
	var zero D
	l.draft = zero
	l.mu.Unlock()
	l.notify()
}

// Select toggles which record shows its edit/delete affordances. Clicking the
// record currently in edit mode does nothing; selection of a different record
// leaves an ongoing edit alone.
func (l *List[R, D]) Select(id string) {
	l.mu.Lock()
	if l.editingID == id {
		l.mu.Unlock()
		return
	}
	if l.selectedID == id {
		l.selectedID = ""
	} else {
		l.selectedID = id
	}
	l.mu.Unlock()
	l.notify()
}

// Remove deletes a record after the user confirmed the prompt. On success the
// entry disappears from the local copy and any selection or edit pointing at
// it is cleared; on failure the collection is left as it was.
func (l *List[R, D]) Remove(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	if err := l.svc.Delete(ctx, id); err != nil {
		l.mu.Lock()
		l.setBannerLocked(apiclient.UserMessage(err), BannerError)
		l.mu.Unlock()
		l.notify()
		return err
	}

	l.mu.Lock()
	kept := l.records[:0:0]
	for _, record := range l.records {
		if record.RecordID() != id {
			kept = append(kept, record)
		}
	}
	l.records = kept
	if l.selectedID == id {
		l.selectedID = ""
	}
	if l.editingID == id {
		l.editingID = ""
		var zero D
		l.draft = zero
	}
	l.mu.Unlock()
	l.notify()
	return nil
}

// SetFilter installs the pure client-side predicate applied by Visible.
// A nil predicate imposes no constraint.
func (l *List[R, D]) SetFilter(pred func(R) bool) {
	l.mu.Lock()
	l.filter = pred
	l.mu.Unlock()
	l.notify()
}

// Visible evaluates the filter over the current records snapshot. The
// underlying collection is never mutated by filtering.
func (l *List[R, D]) Visible() []R {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.filter == nil {
		return append([]R(nil), l.records...)
	}
	visible := make([]R, 0, len(l.records))
	for _, record := range l.records {
		if l.filter(record) {
			visible = append(visible, record)
		}
	}
	return visible
}

func (l *List[R, D]) findLocked(id string) (R, bool) {
	for _, record := range l.records {
		if record.RecordID() == id {
			return record, true
		}
	}
	var zero R
	return zero, false
}

// setBannerLocked sets the banner and re-arms the auto-clear timer. A fresh
// outcome always resets the five-second countdown. The generation check covers
// a timer that already fired and was waiting on the lock when the banner was
// replaced: Stop cannot cancel it, so it must not clear the newer banner.
func (l *List[R, D]) setBannerLocked(msg string, kind BannerKind) {
	if l.bannerTimer != nil {
		l.bannerTimer.Stop()
	}
	l.bannerGen++
	gen := l.bannerGen
	l.banner = Banner{Message: msg, Kind: kind}
	l.bannerTimer = time.AfterFunc(l.bannerTTL, func() {
		l.mu.Lock()
		if gen != l.bannerGen {
			l.mu.Unlock()
			return
		}
		l.banner = Banner{}
		l.mu.Unlock()
		l.notify()
	})
}

func (l *List[R, D]) notify() {
	l.mu.Lock()
	subs := append([]func(){}, l.subs...)
	l.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
