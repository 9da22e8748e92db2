package prompt

import (
	"fmt"
	"strings"

	"github.com/kitbuilder587/orbe-search/internal/domain"
	"github.com/kitbuilder587/orbe-search/internal/rank"
)

type Kind int

const (
	KindWeb Kind = iota
	KindNews
	KindBooks
	KindRankedWeb
	KindIssue
)

func (k Kind) Label() string {
	switch k {
	case KindNews:
		return "News Articles"
	case KindBooks:
		return "Book Search Results"
	case KindRankedWeb:
		return "Ranked Web Search Results"
	case KindIssue:
		return "Issue Report"
	default:
		return "Web Search Results"
	}
}

// BookFormat selects the layout of book entries. Each provider fills
// different Item fields.
type BookFormat int

const (
	OpenLibraryFormat BookFormat = iota
	GoogleBooksFormat
)

func (f BookFormat) heading() string {
	if f == GoogleBooksFormat {
		return "Google Books Search Results:\n\n"
	}
	return "Open Library Search Results:\n\n"
}

const (
	filesStart = "--- START POTENTIAL DOWNLOADABLE FILES ---"
	filesEnd   = "--- END POTENTIAL DOWNLOADABLE FILES ---"

	maxLinkName        = 80
	maxBookDescription = 250
)

// Context describes what the generator will see. Prompt selection reads
// Kind and Files, never the rendered Body.
type Context struct {
	Kind  Kind
	Body  string
	Files []domain.FileCandidate
}

func (c Context) WithFiles(files []domain.FileCandidate) Context {
	c.Files = files
	return c
}

func (c Context) Label() string {
	if len(c.Files) > 0 && (c.Kind == KindWeb || c.Kind == KindIssue) {
		return "Web Search Results (with Files)"
	}
	return c.Kind.Label()
}

// Render returns the body followed by the file block, if any.
func (c Context) Render() string {
	body := c.Body
	if strings.TrimSpace(body) == "" {
		body = "No context provided."
	}
	if len(c.Files) == 0 {
		return body
	}

	source := "Web"
	if c.Kind == KindNews {
		source = "News"
	}

	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString("\n\n")
	sb.WriteString(filesStart)
	fmt.Fprintf(&sb, "\n\n[Potential Downloadable %s Files Found]:\n", source)
	for _, f := range c.Files {
		fmt.Fprintf(&sb, "- [%s](%s)\n", truncate(f.Filename, maxLinkName), f.ProxyURL)
	}
	sb.WriteString(filesEnd)
	return sb.String()
}

func Issue(text string) Context {
	return Context{Kind: KindIssue, Body: text}
}

// IssueOf renders a result that carries no usable items.
func IssueOf(r domain.SourceResult) Context {
	return domain.Match(r,
		func(v domain.Items) Context { return Issue("No relevant results found.") },
		func(v domain.Message) Context { return Issue(v.Text) },
		func(v domain.Failure) Context { return Issue(v.Reason) },
	)
}

func News(r domain.SourceResult) Context {
	items := domain.ItemsOf(r)
	if len(items) == 0 {
		return IssueOf(r)
	}

	var sb strings.Builder
	sb.WriteString("Recent News Articles:\n\n")
	for i, it := range items {
		fmt.Fprintf(&sb, "[Article %d]\nTitle: %s\nSource: %s\nSummary: %s\nURL: %s\n\n",
			i+1, orNA(it.Title), orNA(it.Source), orNA(it.Snippet), orNA(it.URL))
	}
	return Context{Kind: KindNews, Body: strings.TrimSpace(sb.String())}
}

func Books(r domain.SourceResult, format BookFormat) Context {
	items := domain.ItemsOf(r)
	if len(items) == 0 {
		return IssueOf(r)
	}

	var sb strings.Builder
	sb.WriteString(format.heading())
	for i, it := range items {
		fmt.Fprintf(&sb, "[Book %d]\n", i+1)
		if format == GoogleBooksFormat {
			writeGoogleBook(&sb, it)
		} else {
			writeOpenLibraryBook(&sb, it)
		}
		fmt.Fprintf(&sb, "More Info URL: %s\n\n", orNA(it.URL))
	}
	return Context{Kind: KindBooks, Body: strings.TrimSpace(sb.String())}
}

func writeOpenLibraryBook(sb *strings.Builder, it domain.Item) {
	title := it.Title
	if it.Subtitle != "" {
		title += ": " + it.Subtitle
	}
	fmt.Fprintf(sb, "Title: %s\nAuthors: %s\nFirst Published: %s\n", title, strings.Join(it.Authors, ", "), orNA(it.Published))
	if len(it.Subjects) > 0 {
		subjects := it.Subjects
		more := ""
		if len(subjects) > 3 {
			subjects, more = subjects[:3], "..."
		}
		fmt.Fprintf(sb, "Subjects: %s%s\n", strings.Join(subjects, ", "), more)
	}
}

func writeGoogleBook(sb *strings.Builder, it domain.Item) {
	desc := it.Snippet
	if len([]rune(desc)) > maxBookDescription {
		desc = string([]rune(desc)[:maxBookDescription]) + "..."
	}
	fmt.Fprintf(sb, "Title: %s\nAuthors: %s\nDescription: %s\nPublished: %s by %s\n",
		it.Title, strings.Join(it.Authors, ", "), desc, orNA(it.Published), orNA(it.Publisher))
}

// RankedWeb renders the top-ranked snippets.
func RankedWeb(rk rank.Ranking) Context {
	if rk.Empty() {
		return Issue("Could not determine relevance from web search results.")
	}

	var sb strings.Builder
	sb.WriteString("Relevant Web Search Results (Ranked by Similarity):\n\n")
	for i, s := range rk.Results {
		writeResult(&sb, i, s.Item)
	}
	return Context{Kind: KindRankedWeb, Body: strings.TrimSpace(sb.String())}
}

func writeResult(sb *strings.Builder, i int, it domain.Item) {
	fmt.Fprintf(sb, "[Result %d]\nTitle: %s\nSnippet: %s\nURL: %s\n\n", i+1, orNA(it.Title), orNA(it.Snippet), orNA(it.URL))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
