// Package files finds downloadable files among search results and decides
// whether one of them answers the query outright.
package files

import (
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/orbe-search/internal/domain"
)

const ProxyPath = "/api/download-proxy"

var fileExtension = regexp.MustCompile(`(?i)\.(pdf|docx?|xlsx?|pptx?|zip|rar|tar\.gz|jpg|jpeg|png|gif|mp3|mp4|txt|csv|md|json|xml|yaml|sql|py|js|html|css)$`)

type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract keeps result order. Items whose URL cannot be parsed are skipped.
func (e *Extractor) Extract(items []domain.Item) []domain.FileCandidate {
	var out []domain.FileCandidate
	for _, it := range items {
		if it.URL == "" {
			continue
		}

		u, err := url.Parse(it.URL)
		if err != nil || u.Host == "" {
			e.logger.Warn("skipping file candidate with bad url", zap.String("url", it.URL))
			continue
		}
		if !fileExtension.MatchString(u.Path) {
			continue
		}

		out = append(out, domain.FileCandidate{
			Filename: filenameFor(u, it),
			ProxyURL: ProxyURL(it.URL),
		})
	}
	return out
}

func ProxyURL(raw string) string {
	return ProxyPath + "?url=" + url.QueryEscape(raw)
}

func filenameFor(u *url.URL, it domain.Item) string {
	p := u.EscapedPath()
	name := p[strings.LastIndex(p, "/")+1:]
	if name == "" {
		name = it.Title
	}
	if name == "" {
		name = it.URL
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return name
}
