package server

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultFilename = "downloaded_file"
	maxFilename     = 200

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
)

var (
	dispositionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)filename\*=UTF-8''([^;]+)`),
		regexp.MustCompile(`(?i)filename="([^"]+)"`),
		regexp.MustCompile(`(?i)filename=([^;]+)`),
	}
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
)

func (s *Server) handleDownloadProxy(c *gin.Context) {
	log := s.requestLogger(c)

	raw := c.Query("url")
	if raw == "" {
		c.String(http.StatusBadRequest, "Missing url parameter")
		return
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		log.Warn("invalid proxy url", zap.String("url", raw))
		c.String(http.StatusBadGateway, "Proxy error: Invalid external file URL provided.")
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		c.String(http.StatusBadGateway, "Proxy error: Invalid external file URL provided.")
		return
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.proxyClient.Do(req)
	if err != nil {
		log.Warn("proxy fetch failed", zap.String("url", raw), zap.Error(err))
		c.String(http.StatusBadGateway, "Proxy error: Could not connect to the external file source.")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("proxy upstream status", zap.String("url", raw), zap.Int("status", resp.StatusCode))
		c.String(resp.StatusCode, fmt.Sprintf("Failed to fetch external file. Status: %d", resp.StatusCode))
		return
	}

	name := proxyFilename(resp.Header.Get("Content-Disposition"), target)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	log.Info("streaming proxied file", zap.String("filename", name), zap.String("content_type", contentType))
	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, map[string]string{
		"Content-Disposition": contentDisposition(name),
	})
}

// proxyFilename prefers the upstream Content-Disposition, then the filename
// or file query parameter, then the last path segment.
func proxyFilename(disposition string, u *url.URL) string {
	if disposition != "" {
		for _, re := range dispositionPatterns {
			if m := re.FindStringSubmatch(disposition); m != nil {
				return sanitizeFilename(unescape(strings.TrimSpace(m[1])))
			}
		}
	}

	name := u.Query().Get("filename")
	if name == "" {
		name = u.Query().Get("file")
	}
	if name == "" {
		p := u.EscapedPath()
		name = p[strings.LastIndex(p, "/")+1:]
	}
	if name == "" {
		return defaultFilename
	}
	return sanitizeFilename(unescape(name))
}

func unescape(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}

func sanitizeFilename(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if r := []rune(name); len(r) > maxFilename {
		name = string(r[:maxFilename])
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultFilename
	}
	return name
}

func contentDisposition(name string) string {
	escaped := url.QueryEscape(name)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		escaped, strings.ReplaceAll(escaped, "+", "%20"))
}
