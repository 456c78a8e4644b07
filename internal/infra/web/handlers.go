package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"content-pipeline/internal/domain"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/usecase"
)

type moderatorKey struct{}

func withModerator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, moderatorKey{}, name)
}

func moderatorFrom(ctx context.Context) string {
	if name, ok := ctx.Value(moderatorKey{}).(string); ok {
		return name
	}
	return ""
}

// contentView is the JSON shape of one item. Raw image bytes stay out of the
// payload; HasImage plus the /media URL cover the dashboard's needs.
type contentView struct {
	ID                int64                    `json:"id"`
	Status            model.Status             `json:"status"`
	Source            string                   `json:"source"`
	SourceURL         string                   `json:"source_url,omitempty"`
	SourceTitle       string                   `json:"source_title"`
	OriginalText      string                   `json:"original_text"`
	TranslatedTitle   string                   `json:"translated_title,omitempty"`
	TranslatedText    string                   `json:"translated_text,omitempty"`
	Language          string                   `json:"language,omitempty"`
	Author            string                   `json:"author,omitempty"`
	ImageURL          string                   `json:"image_url,omitempty"`
	HasImage          bool                     `json:"has_image"`
	Platforms         []model.Platform         `json:"platforms"`
	ScheduledPostTime *time.Time              `json:"scheduled_post_time,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	ReviewedAt        *time.Time              `json:"reviewed_at,omitempty"`
	ReviewedBy        string                  `json:"reviewed_by,omitempty"`
	RejectionReason   string                  `json:"rejection_reason,omitempty"`
	PlatformState     map[string]platformView `json:"platform_state,omitempty"`
}

type platformView struct {
	Posted     bool       `json:"posted"`
	PostURL    string     `json:"post_url,omitempty"`
	PostedAt   *time.Time `json:"posted_at,omitempty"`
	RetryCount int        `json:"retry_count"`
	LastError  string     `json:"last_error,omitempty"`
}

func toContentView(item *model.ContentItem) contentView {
	v := contentView{
		ID:                item.ID,
		Status:            item.Status,
		Source:            item.Source,
		SourceURL:         item.SourceURL,
		SourceTitle:       item.SourceTitle,
		OriginalText:      item.OriginalText,
		TranslatedTitle:   item.TranslatedTitle,
		TranslatedText:    item.TranslatedText,
		Language:          item.Language,
		Author:            item.Author,
		ImageURL:          item.ImageURL,
		HasImage:          len(item.ImageData) > 0 || item.LocalImagePath != "" || item.ImageURL != "",
		Platforms:         item.Platforms,
		ScheduledPostTime: item.ScheduledPostTime,
		CreatedAt:         item.CreatedAt,
		ReviewedAt:        item.ReviewedAt,
		ReviewedBy:        item.ReviewedBy,
		RejectionReason:   item.RejectionReason,
	}
	if len(item.PlatformState) > 0 {
		v.PlatformState = make(map[string]platformView, len(item.PlatformState))
		for p, ps := range item.PlatformState {
			pv := platformView{
				Posted:     ps.Published(),
				RetryCount: ps.RetryCount,
				LastError:  ps.LastError,
			}
			if ps.Outcome != nil {
				pv.PostURL = ps.Outcome.PostURL
				at := ps.Outcome.PostedAt
				pv.PostedAt = &at
			}
			v.PlatformState[string(p)] = pv
		}
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrReasonRequired):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func contentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ===== auth =====

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !s.auth.CheckLogin(req.Name, req.Password) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w, req.Name)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// ===== moderation =====

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.approvalUC.ListPending(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]contentView, 0, len(items))
	for _, item := range items {
		views = append(views, toContentView(item))
	}
	writeJSON(w, http.StatusOK, struct {
		Data []contentView `json:"data"`
	}{Data: views})
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	item, err := s.approvalUC.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentView(item))
}

type auditEntryView struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	Moderator string            `json:"moderator"`
	At        time.Time         `json:"at"`
	Details   map[string]string `json:"details,omitempty"`
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	entries, err := s.approvalUC.AuditTrail(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]auditEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, auditEntryView{
			ID:        e.ID,
			Action:    string(e.Action),
			Moderator: e.Moderator,
			At:        e.At,
			Details:   e.Details,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Data []auditEntryView `json:"data"`
	}{Data: views})
}

type approveRequest struct {
	PublishNow        bool             `json:"publish_now"`
	ScheduledPostTime *time.Time       `json:"scheduled_post_time"`
	Platforms         []model.Platform `json:"platforms"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req approveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	uc := usecase.ApproveRequest{
		PublishNow:        req.PublishNow,
		ScheduledPostTime: req.ScheduledPostTime,
		Platforms:         req.Platforms,
	}
	if err := s.approvalUC.Approve(r.Context(), id, moderatorFrom(r.Context()), uc); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.approvalUC.Reject(r.Context(), id, moderatorFrom(r.Context()), req.Reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type editRequest struct {
	TranslatedTitle   *string          `json:"translated_title"`
	TranslatedText    *string          `json:"translated_text"`
	ScheduledPostTime *time.Time       `json:"scheduled_post_time"`
	Platforms         []model.Platform `json:"platforms"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	uc := usecase.EditRequest{
		TranslatedTitle:   req.TranslatedTitle,
		TranslatedText:    req.TranslatedText,
		ScheduledPostTime: req.ScheduledPostTime,
		Platforms:         req.Platforms,
	}
	if err := s.approvalUC.Edit(r.Context(), id, moderatorFrom(r.Context()), uc); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetRetriesRequest struct {
	Platform model.Platform `json:"platform"`
}

func (s *Server) handleResetRetries(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req resetRetriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.approvalUC.ResetRetries(r.Context(), id, req.Platform); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== dashboard =====

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.statsUC.Summary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}
	lastPosted := make(map[string]*time.Time, len(stats.LastPostedAt))
	for p, t := range stats.LastPostedAt {
		if t.IsZero() {
			lastPosted[string(p)] = nil
			continue
		}
		at := t
		lastPosted[string(p)] = &at
	}
	writeJSON(w, http.StatusOK, struct {
		ByStatus     map[string]int        `json:"by_status"`
		LastCreated  *time.Time            `json:"last_created,omitempty"`
		LastPostedAt map[string]*time.Time `json:"last_posted_at"`
	}{
		ByStatus: byStatus,
		LastCreated: func() *time.Time {
			if stats.LastCreated.IsZero() {
				return nil
			}
			return &stats.LastCreated
		}(),
		LastPostedAt: lastPosted,
	})
}

type jobView struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Spec    string     `json:"spec"`
	NextRun *time.Time `json:"next_run,omitempty"`
	PrevRun *time.Time `json:"prev_run,omitempty"`
	Running bool       `json:"running"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}
	snapshot := s.jobs.Snapshot()
	views := make([]jobView, 0, len(snapshot))
	for _, j := range snapshot {
		v := jobView{ID: j.ID, Name: j.Name, Spec: j.Spec, Running: j.Running}
		if !j.NextRun.IsZero() {
			next := j.NextRun
			v.NextRun = &next
		}
		if !j.PrevRun.IsZero() {
			prev := j.PrevRun
			v.PrevRun = &prev
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, struct {
		Data []jobView `json:"data"`
	}{Data: views})
}

// ===== media =====

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	id, err := contentID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	item, err := s.approvalUC.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(item.ImageData) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(item.ImageData))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(item.ImageData)
}
