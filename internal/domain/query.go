package domain

import "strings"

// MaxQueryLength is measured in bytes.
const MaxQueryLength = 1000

// QueryRequest is one question from a front-end. Mode may hold any string;
// Sanitize folds unknown values into ModeDefault.
type QueryRequest struct {
	Text string
	Mode Mode
}

// Validate measures the trimmed text.
func (q *QueryRequest) Validate() error {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return ErrEmptyQuery
	}

	if len(text) > MaxQueryLength {
		return ErrQueryTooLong
	}

	return nil
}

// Sanitize runs after Validate, so the text is already within MaxQueryLength.
func (q *QueryRequest) Sanitize() {
	q.Text = strings.TrimSpace(q.Text)
	q.Mode = ParseMode(string(q.Mode))
}
