package model

import (
	"time"

	"content-pipeline/internal/domain"
)

// Platform identifies a publish target.
type Platform string

const (
	PlatformFacebook Platform = "facebook"
	PlatformLinkedIn Platform = "linkedin"
)

// AllPlatforms lists every platform the pipeline can publish to.
var AllPlatforms = []Platform{PlatformFacebook, PlatformLinkedIn}

func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformLinkedIn:
		return true
	}
	return false
}

// Status is the single lifecycle state of a ContentItem. Transitions go
// through ContentItem.TransitionTo; nothing else may overwrite it.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusPostingFacebook Status = "posting_facebook"
	StatusPostingLinkedIn Status = "posting_linkedin"
	StatusPosted          Status = "posted"
	StatusRejected        Status = "rejected"
)

// PostingStatus returns the in-flight publish state for a platform.
func PostingStatus(p Platform) Status {
	switch p {
	case PlatformFacebook:
		return StatusPostingFacebook
	case PlatformLinkedIn:
		return StatusPostingLinkedIn
	}
	return ""
}

// IsPosting reports whether s is any posting_<platform> state.
func (s Status) IsPosting() bool {
	return s == StatusPostingFacebook || s == StatusPostingLinkedIn
}

// transitions is the full legal edge set. posted and rejected are terminal.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusPostingFacebook, StatusPostingLinkedIn},
	StatusPostingFacebook: {StatusPosted, StatusApproved},
	StatusPostingLinkedIn: {StatusPosted, StatusApproved},
}

// CanTransitionTo reports whether s -> next is a legal edge.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// MaxPublishRetries caps automatic publish attempts per platform. At the cap
// the item stays approved but is excluded from sweep selection until an
// operator clears the counter.
const MaxPublishRetries = 3

// FailureKind classifies why a publish attempt failed, so monitoring can
// separate credential rot from transient upstream trouble.
type FailureKind string

const (
	FailureTransient  FailureKind = "transient"
	FailureAuth       FailureKind = "auth"
	FailureStaleMedia FailureKind = "stale_media"
	FailureFatal      FailureKind = "fatal"
)

// PostOutcome is the idempotency witness: it exists if and only if a publish
// to that platform truly succeeded.
type PostOutcome struct {
	PostID   string    `json:"post_id"`
	PostURL  string    `json:"post_url"`
	PostedAt time.Time `json:"posted_at"`
}

// PlatformState holds per-platform publish bookkeeping for one item:
// the outcome witness plus the bounded retry counter.
type PlatformState struct {
	Outcome      *PostOutcome
	RetryCount   int
	LastError    string
	FailureKind  FailureKind
	LastFailedAt *time.Time
}

// Published reports whether the outcome witness is present.
func (ps *PlatformState) Published() bool {
	return ps != nil && ps.Outcome != nil && ps.Outcome.PostID != ""
}

// ContentItem is the unit of work moving through the pipeline.
type ContentItem struct {
	ID     int64
	Status Status

	Source      string
	SourceURL   string
	SourceTitle string

	OriginalText     string
	TranslatedTitle  string
	TranslatedText   string
	Language         string
	NeedsTranslation bool
	Author           string

	ImageURL       string
	ImagePrompt    string
	LocalImagePath string
	ImageData      []byte

	Platforms         []Platform
	ScheduledPostTime *time.Time

	// PlatformState maps platform -> outcome witness + retry counter.
	PlatformState map[Platform]*PlatformState

	CreatedAt       time.Time
	ReviewedAt      *time.Time
	ReviewedBy      string
	RejectionReason string
	ClaimedAt       *time.Time
}

// TransitionTo mutates Status along a legal edge or returns
// domain.ErrInvalidTransition leaving the item untouched.
func (c *ContentItem) TransitionTo(next Status) error {
	if !c.Status.CanTransitionTo(next) {
		return domain.ErrInvalidTransition
	}
	c.Status = next
	return nil
}

// State returns the platform state, allocating it on first use.
func (c *ContentItem) State(p Platform) *PlatformState {
	if c.PlatformState == nil {
		c.PlatformState = make(map[Platform]*PlatformState)
	}
	ps, ok := c.PlatformState[p]
	if !ok {
		ps = &PlatformState{}
		c.PlatformState[p] = ps
	}
	return ps
}

// PublishedTo reports whether the idempotency witness exists for p.
func (c *ContentItem) PublishedTo(p Platform) bool {
	if c.PlatformState == nil {
		return false
	}
	return c.PlatformState[p].Published()
}

// Targets reports whether p is among the item's target platforms.
func (c *ContentItem) Targets(p Platform) bool {
	for _, t := range c.Platforms {
		if t == p {
			return true
		}
	}
	return false
}

// EligibleAt reports whether the item may be picked up at now: approved,
// targeting p, schedule reached, retries below cap. An existing outcome
// witness does not exclude the item; claiming it again is how a publish
// interrupted between witness and transition gets finished.
func (c *ContentItem) EligibleAt(p Platform, now time.Time) bool {
	if c.Status != StatusApproved || !c.Targets(p) {
		return false
	}
	if c.ScheduledPostTime != nil && c.ScheduledPostTime.After(now) {
		return false
	}
	return c.State(p).RetryCount < MaxPublishRetries
}

// Title returns the display title, preferring the translation.
func (c *ContentItem) Title() string {
	if c.TranslatedTitle != "" {
		return c.TranslatedTitle
	}
	return c.SourceTitle
}

// Body returns the publishable text, preferring the translation.
func (c *ContentItem) Body() string {
	if c.TranslatedText != "" {
		return c.TranslatedText
	}
	return c.OriginalText
}
