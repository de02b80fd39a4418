package utils

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	internal_errors "github.com/itchan-dev/boardkeeper/shared/errors"
	"github.com/microcosm-cc/bluemonday"
)

type Limits struct {
	MaxNameLength     int // runes
	MaxOwnerLength    int // runes
	MaxTextLength     int // runes
	MaxAttachmentSize int // bytes
}

// Sanitizer strips markup from user supplied strings and enforces length
// limits. Attachments are opaque and only size checked.
type Sanitizer struct {
	policy   *bluemonday.Policy
	validate *validator.Validate
	limits   Limits
}

func NewSanitizer(limits Limits) *Sanitizer {
	return &Sanitizer{
		policy:   bluemonday.StrictPolicy(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limits:   limits,
	}
}

// clean strips markup and stores plain text: the policy output is html
// escaped, so it is unescaped again before limits are checked.
func (s *Sanitizer) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func (s *Sanitizer) check(value any, field, rule string) error {
	if err := s.validate.Var(value, rule); err != nil {
		return &internal_errors.ValidationError{Message: fmt.Sprintf("%s failed %q", field, rule)}
	}
	return nil
}

func (s *Sanitizer) ThreadName(name string) (string, error) {
	name = s.clean(name)
	if err := s.check(name, "thread name", fmt.Sprintf("max=%d", s.limits.MaxNameLength)); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Sanitizer) Owner(owner string) (string, error) {
	owner = s.clean(owner)
	if err := s.check(owner, "owner", fmt.Sprintf("max=%d", s.limits.MaxOwnerLength)); err != nil {
		return "", err
	}
	return owner, nil
}

// Text requires something left after cleaning unless the post carries an
// attachment.
func (s *Sanitizer) Text(text string, hasAttachment bool) (string, error) {
	text = s.clean(text)
	rule := fmt.Sprintf("required,max=%d", s.limits.MaxTextLength)
	if hasAttachment {
		rule = fmt.Sprintf("max=%d", s.limits.MaxTextLength)
	}
	if err := s.check(text, "text", rule); err != nil {
		return "", err
	}
	return text, nil
}

func (s *Sanitizer) Attachment(attachment []byte) error {
	if len(attachment) > s.limits.MaxAttachmentSize {
		return &internal_errors.ValidationError{
			Message: fmt.Sprintf("attachment is %d bytes, limit is %d", len(attachment), s.limits.MaxAttachmentSize),
		}
	}
	return nil
}

// Post cleans every field of a new post.
func (s *Sanitizer) Post(owner, text string, attachment []byte) (string, string, error) {
	if err := s.Attachment(attachment); err != nil {
		return "", "", err
	}
	owner, err := s.Owner(owner)
	if err != nil {
		return "", "", err
	}
	text, err = s.Text(text, len(attachment) > 0)
	if err != nil {
		return "", "", err
	}
	return owner, text, nil
}
