package monitor

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/domain"
)

// excludedSourceDomains are hostnames that never count as attributed
// sources: the chat platform itself and the auth providers it bounces
// through.
var excludedSourceDomains = []string{
	"chatgpt.com",
	"chat.openai.com",
	"openai.com",
	"oaiusercontent.com",
	"oaistatic.com",
	"auth0.com",
	"accounts.google.com",
	"appleid.apple.com",
	"login.microsoftonline.com",
}

// trackingParams are query parameters stripped from source URLs before
// comparison and storage.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"ref":          true,
	"ref_src":      true,
}

// isExcludedDomain reports whether host (already lowercased, no www)
// belongs to the platform or an auth provider.
func isExcludedDomain(host string) bool {
	for _, excluded := range excludedSourceDomains {
		if host == excluded || strings.HasSuffix(host, "."+excluded) {
			return true
		}
	}
	return false
}

// stripTrackingParams removes known tracking parameters and the
// fragment from a URL. Unparseable input comes back unchanged.
func stripTrackingParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for param := range q {
		if trackingParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// dedupeLinksByDomain keeps the first link seen for each hostname.
func dedupeLinksByDomain(links []domain.Link) []domain.Link {
	seen := make(map[string]bool, len(links))
	out := make([]domain.Link, 0, len(links))
	for _, l := range links {
		if l.Domain == "" || seen[l.Domain] {
			continue
		}
		seen[l.Domain] = true
		out = append(out, l)
	}
	return out
}

// dedupeLinksByURL keeps the first link seen for each full URL.
func dedupeLinksByURL(links []domain.Link) []domain.Link {
	seen := make(map[string]bool, len(links))
	out := make([]domain.Link, 0, len(links))
	for _, l := range links {
		if l.URL == "" || seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		out = append(out, l)
	}
	return out
}

// faviconTargetDomain recovers the source hostname from a favicon
// loader URL, e.g. .../favicon?domain=example.com or a Google s2
// faviconV2 URL carrying the target in its url= parameter.
func faviconTargetDomain(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	q := u.Query()
	if d := q.Get("domain"); d != "" {
		return strings.TrimPrefix(strings.ToLower(d), "www.")
	}
	if target := q.Get("url"); target != "" {
		return hostnameOf(target)
	}
	return ""
}

// citationExtractor pulls attributed sources out of a rendered answer.
// Strategies run in order; the first one that yields links wins.
type citationExtractor struct {
	page         playwright.Page
	panelTimeout time.Duration
	logger       *zap.Logger
}

func newCitationExtractor(page playwright.Page, panelTimeout time.Duration, logger *zap.Logger) *citationExtractor {
	return &citationExtractor{
		page:         page,
		panelTimeout: panelTimeout,
		logger:       logger,
	}
}

// extract runs the tiered strategies and returns normalized citations
// and links. An empty result is valid: many answers cite nothing.
func (e *citationExtractor) extract() ([]domain.Citation, []domain.Link) {
	strategies := []struct {
		name string
		fn   func() []domain.Link
	}{
		{"inline_pills", e.extractInlinePills},
		{"sources_panel", e.extractSourcesPanel},
		{"favicon_synthesis", e.extractFaviconDomains},
	}

	for _, s := range strategies {
		links := s.fn()
		if len(links) == 0 {
			continue
		}
		e.logger.Debug("citations extracted",
			zap.String("strategy", s.name),
			zap.Int("links", len(links)),
		)
		return groupCitations(links), links
	}

	return nil, nil
}

// extractInlinePills reads the citation pill anchors embedded in the
// answer body. Deduped by hostname: pills repeat the same source.
func (e *citationExtractor) extractInlinePills() []domain.Link {
	anchors := e.page.Locator(`[data-message-author-role="assistant"] a[href^="http"]`)
	count, err := anchors.Count()
	if err != nil || count == 0 {
		return nil
	}

	var links []domain.Link
	for i := 0; i < count; i++ {
		anchor := anchors.Nth(i)
		href, err := anchor.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		link, ok := normalizeSourceLink(href)
		if !ok {
			continue
		}
		if text, err := anchor.TextContent(); err == nil {
			link.Text = strings.TrimSpace(text)
		}
		links = append(links, link)
	}
	return dedupeLinksByDomain(links)
}

// extractSourcesPanel opens the sources side panel and reads every
// anchor in it. Deduped by full URL: the panel lists distinct pages.
func (e *citationExtractor) extractSourcesPanel() []domain.Link {
	trigger := e.page.Locator(`button[aria-label="Sources"], button:has-text("Sources")`).First()
	if visible, err := trigger.IsVisible(); err != nil || !visible {
		return nil
	}
	if err := trigger.Click(); err != nil {
		return nil
	}
	defer func() {
		// Close the panel so the next query starts from a clean page.
		e.page.Keyboard().Press("Escape")
	}()

	panel := e.page.Locator(`[aria-label="Sources"][role="dialog"], aside:has-text("Citations")`).First()
	deadline := time.Now().Add(e.panelTimeout)
	for {
		if visible, err := panel.IsVisible(); err == nil && visible {
			break
		}
		if time.Now().After(deadline) {
			return nil
		}
		e.page.WaitForTimeout(250)
	}

	anchors := panel.Locator(`a[href^="http"]`)
	count, err := anchors.Count()
	if err != nil || count == 0 {
		return nil
	}

	var links []domain.Link
	for i := 0; i < count; i++ {
		anchor := anchors.Nth(i)
		href, err := anchor.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		link, ok := normalizeSourceLink(href)
		if !ok {
			continue
		}
		if text, err := anchor.TextContent(); err == nil {
			link.Text = strings.TrimSpace(text)
		}
		links = append(links, link)
	}
	return dedupeLinksByURL(links)
}

// extractFaviconDomains synthesizes source links from the favicon
// loader images the answer renders next to citations. Last resort:
// yields domains without full article URLs.
func (e *citationExtractor) extractFaviconDomains() []domain.Link {
	images := e.page.Locator(`[data-message-author-role="assistant"] img[src*="favicon"], [data-message-author-role="assistant"] img[src*="faviconV2"]`)
	count, err := images.Count()
	if err != nil || count == 0 {
		return nil
	}

	var links []domain.Link
	for i := 0; i < count; i++ {
		src, err := images.Nth(i).GetAttribute("src")
		if err != nil || src == "" {
			continue
		}
		host := faviconTargetDomain(src)
		if host == "" || isExcludedDomain(host) {
			continue
		}
		links = append(links, domain.Link{
			Text:   host,
			URL:    fmt.Sprintf("https://%s", host),
			Domain: host,
		})
	}
	return dedupeLinksByDomain(links)
}

// normalizeSourceLink cleans a raw href into a Link, rejecting
// platform and auth domains.
func normalizeSourceLink(href string) (domain.Link, bool) {
	cleaned := stripTrackingParams(href)
	host := hostnameOf(cleaned)
	if host == "" || isExcludedDomain(host) {
		return domain.Link{}, false
	}
	return domain.Link{URL: cleaned, Domain: host}, true
}

// groupCitations folds links into per-domain citations, preserving
// first-seen order.
func groupCitations(links []domain.Link) []domain.Citation {
	order := make([]string, 0, len(links))
	byDomain := make(map[string][]string, len(links))
	for _, l := range links {
		if _, ok := byDomain[l.Domain]; !ok {
			order = append(order, l.Domain)
		}
		byDomain[l.Domain] = append(byDomain[l.Domain], l.URL)
	}

	citations := make([]domain.Citation, 0, len(order))
	for _, host := range order {
		citations = append(citations, domain.Citation{
			Text: host,
			URLs: byDomain[host],
		})
	}
	return citations
}
