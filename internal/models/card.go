package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	MaxTitleLength       = 512
	MaxDescriptionLength = 10000
	// Upstream rejects anything longer; requests are truncated to these before sending.
	UpstreamTitleLimit       = 512
	UpstreamDescriptionLimit = 16384
)

var cardValidate *validator.Validate

func init() {
	cardValidate = validator.New(validator.WithRequiredStructEnabled())
	_ = cardValidate.RegisterValidation("notblank", validators.NotBlank)
}

type CardRequest struct {
	Title       string     `json:"title" validate:"notblank,max=512"`
	Description string     `json:"description" validate:"notblank,max=10000"`
	ListID      string     `json:"listId" validate:"notblank"`
	LabelIDs    []string   `json:"labelIds,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Validate checks the request before anything is sent upstream. Lengths are
// counted in characters, not bytes.
func (r CardRequest) Validate() error {
	err := cardValidate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	if fe.Field() == "ListID" {
		name = "list ID"
	}
	switch fe.Tag() {
	case "notblank":
		return fmt.Sprintf("%s is required", name)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// LabelSet returns the label ids without blanks or duplicates, keeping first-seen order.
func (r CardRequest) LabelSet() []string {
	seen := make(map[string]struct{}, len(r.LabelIDs))
	out := make([]string, 0, len(r.LabelIDs))
	for _, id := range r.LabelIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// CardResult is what the upstream service hands back for a created card.
type CardResult struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	ShortURL string `json:"shortUrl,omitempty"`
	// Labels that could not be attached. The card exists regardless.
	FailedLabelIDs []string `json:"failedLabelIds,omitempty"`
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
