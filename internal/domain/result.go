package domain

// Item is one entry returned by a source. Fields a source does not provide stay empty.
type Item struct {
	Title     string
	URL       string
	Snippet   string
	Source    string
	Subtitle  string
	Authors   []string
	Published string
	Publisher string
	Subjects  []string
}

// SourceResult is a closed sum: Items, Message or Failure.
// Message means the call worked and found nothing; Failure means the call did not work.
type SourceResult interface {
	sourceResult()
}

type Items struct {
	Items []Item
}

type Message struct {
	Text string
}

type Failure struct {
	Reason string
}

func (Items) sourceResult()   {}
func (Message) sourceResult() {}
func (Failure) sourceResult() {}

// Match folds r with one function per variant, so a caller cannot forget a case.
// A nil result is treated as a failure.
func Match[T any](r SourceResult, onItems func(Items) T, onMessage func(Message) T, onFailure func(Failure) T) T {
	switch v := r.(type) {
	case Items:
		return onItems(v)
	case Message:
		return onMessage(v)
	case Failure:
		return onFailure(v)
	default:
		return onFailure(Failure{Reason: "no result from source"})
	}
}

// ItemsOf returns the items of r, or nil for Message and Failure.
func ItemsOf(r SourceResult) []Item {
	return Match(r,
		func(v Items) []Item { return v.Items },
		func(Message) []Item { return nil },
		func(Failure) []Item { return nil },
	)
}

// FileCandidate is a downloadable file found in search results.
type FileCandidate struct {
	Filename string
	ProxyURL string
}
