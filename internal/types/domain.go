// Package types defines the shared domain model, error taxonomy, and
// cross-cutting interfaces for the Labsite platform.
package types

import "time"

// AdminReason explains how an AdminState was reached. Exactly one reason is
// produced per resolution; IsAdmin is true if and only if the reason is
// AdminReasonOK. The reason is part of the contract: callers and tests must
// be able to distinguish "not logged in" from "logged in but not permitted".
type AdminReason string

const (
	AdminReasonOK               AdminReason = "ok"
	AdminReasonNotAuthenticated AdminReason = "not_authenticated"
	AdminReasonAllowlistMissing AdminReason = "allowlist_missing"
	AdminReasonIdentityMissing  AdminReason = "identity_missing"
	AdminReasonEmailNotAllowed  AdminReason = "email_not_allowed"
)

// AdminState is the derived, per-request authorization outcome. It is never
// persisted or cached across requests; route guards re-resolve it every time.
type AdminState struct {
	Authenticated bool
	IsAdmin       bool
	Email         string
	Reason        AdminReason
}

// Page is a public site page keyed by slug (home, research, about, contact).
type Page struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	BodyMD    string    `json:"body_md"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicPost is a published note/blog entry visible on the public site.
type PublicPost struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	BodyMD      string    `json:"body_md"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PostStatus is the lifecycle state of a working post in the Lab.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// Post is a working post edited in the Lab. Publishing upserts a PublicPost
// under the same slug; the working copy remains the editable source.
type Post struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	BodyMD    string     `json:"body_md"`
	Status    PostStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LinkedInDraft is a social post draft composed in the Lab, optionally
// prefilled from a published post.
type LinkedInDraft struct {
	ID         string    `json:"id"`
	Body       string    `json:"body"`
	Hashtags   []string  `json:"hashtags"`
	SourceSlug string    `json:"source_slug,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MagicLinkToken is a single-use login token stored hashed at rest. The raw
// token is only ever present in the email sent to the author.
type MagicLinkToken struct {
	TokenHash  string     `json:"-"`
	Email      string     `json:"email"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Critique is the feedback returned for a manuscript draft.
type Critique struct {
	Summary     string   `json:"summary"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
	Provider    string   `json:"provider"`
}

// CritiqueRequest describes the manuscript text and optional focus area
// submitted for critique.
type CritiqueRequest struct {
	Text  string `json:"text"`
	Focus string `json:"focus,omitempty"`
}
