package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits for an idea.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MinRating            = 0
	MaxRating            = 10
)

// Idea is a user-authored note.
type Idea struct {
	ID          string    `json:"id"`                    // UUID v7, assigned by the store.
	Title       string    `json:"title"`                 // Required, trimmed.
	Description string    `json:"description,omitempty"` // Optional, trimmed.
	Rating      *int      `json:"rating,omitempty"`      // Optional, MinRating..MaxRating.
	CreatedAt   time.Time `json:"created_at"`            // Set once on creation.
	UpdatedAt   time.Time `json:"updated_at"`            // Set on creation and every mutation.
}

// EffectiveRating returns the rating, treating an absent rating as 0.
func (i Idea) EffectiveRating() int {
	if i.Rating == nil {
		return 0
	}
	return *i.Rating
}

// Clone returns a copy that shares no pointers with i.
func (i Idea) Clone() Idea {
	if i.Rating != nil {
		r := *i.Rating
		i.Rating = &r
	}
	return i
}

// Validate checks the invariants of a stored idea.
func (i Idea) Validate() error {
	if err := validateText(i.Title, i.Description); err != nil {
		return err
	}
	if err := validateRating(i.Rating); err != nil {
		return err
	}
	if i.UpdatedAt.Before(i.CreatedAt) {
		return ErrTimestampOrder
	}
	return nil
}

// Draft carries the caller-supplied fields of a new idea.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Rating      *int   `json:"rating,omitempty"`
}

// Normalize trims the text fields.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	return d
}

// Validate reports the first field that breaks an idea invariant. Callers
// normalize first; an untrimmed blank title is still rejected.
func (d Draft) Validate() error {
	if err := validateText(strings.TrimSpace(d.Title), d.Description); err != nil {
		return err
	}
	return validateRating(d.Rating)
}

// Patch carries a partial update. Nil fields are left unchanged.
// ClearRating removes the rating and takes precedence over Rating.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Rating      *int    `json:"rating,omitempty"`
	ClearRating bool    `json:"clear_rating,omitempty"`
}

// Normalize trims the text fields that are present.
func (p Patch) Normalize() Patch {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		p.Description = &d
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Rating == nil && !p.ClearRating
}

// ApplyTo returns idea with the patch merged in. Timestamps are not touched.
func (p Patch) ApplyTo(idea Idea) Idea {
	out := idea.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	switch {
	case p.ClearRating:
		out.Rating = nil
	case p.Rating != nil:
		r := *p.Rating
		out.Rating = &r
	}
	return out
}

func validateText(title, description string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateRating(r *int) error {
	if r == nil {
		return nil
	}
	if *r < MinRating || *r > MaxRating {
		return ErrRatingOutOfRange
	}
	return nil
}

// IntPtr returns a pointer to v. Handy for ratings.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v. Handy for patches.
func StringPtr(v string) *string { return &v }
