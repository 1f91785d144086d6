// Package extract pulls plain text out of social-media posts so it can be
// recorded as evidence content.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNotStatusURL = errors.New("url must be an x.com or twitter.com status link")

const (
	oEmbedURL      = "https://publish.twitter.com/oembed"
	syndicationURL = "https://cdn.syndication.twitter.com/widgets/tweet"

	// DefaultTimeout applies to each upstream call separately.
	DefaultTimeout = 6 * time.Second
)

var (
	statusIDPattern = regexp.MustCompile(`/status/(\d+)`)
	spaceRun        = regexp.MustCompile(`[\t ]+`)
	newlineRun      = regexp.MustCompile(`\s*\n\s*`)
)

// XClient reads post text from the public oEmbed and syndication endpoints.
type XClient struct {
	httpClient     *http.Client
	oEmbedURL      string
	syndicationURL string
	timeout        time.Duration
	logger         *zap.Logger
}

func NewXClient(logger *zap.Logger) *XClient {
	return &XClient{
		httpClient:     &http.Client{},
		oEmbedURL:      oEmbedURL,
		syndicationURL: syndicationURL,
		timeout:        DefaultTimeout,
		logger:         logger,
	}
}

// NormalizeStatusURL accepts x.com and twitter.com status links and rewrites
// the host to twitter.com, which oEmbed expects.
func NormalizeStatusURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", ErrNotStatusURL
	}
	host := strings.ToLower(u.Hostname())
	if !hostIs(host, "x.com") && !hostIs(host, "twitter.com") {
		return "", ErrNotStatusURL
	}
	if !strings.Contains(u.Path, "/status/") {
		return "", ErrNotStatusURL
	}
	u.Scheme = "https"
	u.Host = "twitter.com"
	return u.String(), nil
}

func hostIs(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Text returns the post's text. The syndication payload is preferred when
// it carries more text than the oEmbed rendering.
func (c *XClient) Text(ctx context.Context, rawURL string) (string, error) {
	normalized, err := NormalizeStatusURL(rawURL)
	if err != nil {
		return "", err
	}

	var embed struct {
		HTML string `json:"html"`
	}
	q := url.Values{"url": {normalized}, "omit_script": {"1"}}
	if err := c.getJSON(ctx, c.oEmbedURL+"?"+q.Encode(), &embed); err != nil {
		return "", fmt.Errorf("fetch oembed: %w", err)
	}
	if embed.HTML == "" {
		return "", errors.New("oembed response missing html")
	}

	text := HTMLToText(embed.HTML)
	if text == "" {
		return "", errors.New("no text in oembed html")
	}

	if m := statusIDPattern.FindStringSubmatch(normalized); m != nil {
		if longer := c.syndicationText(ctx, m[1], normalized); len(longer) > len(text) {
			text = longer
		}
	}
	return text, nil
}

// syndicationText is best-effort; any failure yields "".
func (c *XClient) syndicationText(ctx context.Context, id, normalized string) string {
	var payload struct {
		Text     string `json:"text"`
		FullText string `json:"full_text"`
		Payload  struct {
			Text string `json:"text"`
		} `json:"payload"`
	}

	targets := []string{
		c.syndicationURL + "?" + url.Values{"id": {id}}.Encode(),
		c.syndicationURL + "?" + url.Values{"url": {normalized}}.Encode(),
	}
	for _, target := range targets {
		if err := c.getJSON(ctx, target, &payload); err != nil {
			c.logger.Debug("syndication lookup failed", zap.String("target", target), zap.Error(err))
			continue
		}
		for _, t := range []string{payload.Text, payload.FullText, payload.Payload.Text} {
			if t = strings.TrimSpace(t); t != "" {
				return t
			}
		}
		return ""
	}
	return ""
}

func (c *XClient) getJSON(ctx context.Context, target string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// HTMLToText keeps text nodes (anchor text included), turns <br> into a
// newline, decodes entities and collapses whitespace.
func HTMLToText(fragment string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			out := strings.ReplaceAll(sb.String(), "\u00a0", " ")
			out = spaceRun.ReplaceAllString(out, " ")
			out = newlineRun.ReplaceAllString(out, "\n")
			return strings.TrimSpace(out)
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				sb.WriteByte('\n')
			}
		}
	}
}
