package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kitbuilder587/orbe-search/internal/domain"
)

var (
	ErrRequestFailed = errors.New("search request failed")
)

// Client is a single-attempt source. Search never returns an error:
// transport and API problems come back as domain.Failure.
type Client interface {
	Name() string
	Search(ctx context.Context, text string) domain.SourceResult
}

type unavailable struct {
	name   string
	reason string
}

// Unavailable stands in for a source that cannot be configured, e.g. a missing API key.
func Unavailable(name, reason string) Client {
	return unavailable{name: name, reason: reason}
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Search(ctx context.Context, text string) domain.SourceResult {
	return domain.Failure{Reason: u.reason}
}

type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// DoRequest runs req and returns the body of a 2xx response.
// Any other status yields *StatusError with the body attached.
func DoRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: statusText(resp), Body: body}
	}
	return body, nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
