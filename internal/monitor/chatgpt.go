package monitor

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/config"
	"github.com/geowatch/geowatch/internal/domain"
)

const (
	promptSelector    = "#prompt-textarea"
	assistantSelector = `[data-message-author-role="assistant"]`
	stopSelector      = `button[aria-label="Stop streaming"]`
	loginSelector     = `button:has-text("Log in"), a:has-text("Log in")`
	typeDelayMs       = 20
	cdpProbeTimeout   = 500 * time.Millisecond
)

// ScreenshotStore uploads evidence artifacts for interactive results.
type ScreenshotStore interface {
	UploadScreenshot(ctx context.Context, key string, data []byte) (string, error)
}

// ChatGPTProvider drives a real ChatGPT session in an already
// authenticated Chrome over the DevTools protocol. Queries are
// serialized: one conversation tab at a time.
type ChatGPTProvider struct {
	cfg     config.ChatGPTConfig
	storage ScreenshotStore
	logger  *zap.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewChatGPTProvider creates the interactive browser provider. storage
// may be nil; screenshots are skipped then.
func NewChatGPTProvider(cfg config.ChatGPTConfig, storage ScreenshotStore, logger *zap.Logger) *ChatGPTProvider {
	return &ChatGPTProvider{
		cfg:     cfg,
		storage: storage,
		logger:  logger.Named("chatgpt"),
	}
}

// Name implements Provider.
func (p *ChatGPTProvider) Name() domain.Provider {
	return domain.ProviderChatGPT
}

// Close disconnects from the browser. The CDP connection is dropped;
// the user's Chrome and its session stay alive.
func (p *ChatGPTProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		p.browser.Close()
		p.browser = nil
	}
	if p.pw != nil {
		err := p.pw.Stop()
		p.pw = nil
		return err
	}
	return nil
}

// Query implements Provider. It opens a fresh tab, submits the query,
// waits out the full answer lifecycle, and extracts the response with
// its attributed sources.
func (p *ChatGPTProvider) Query(ctx context.Context, query string) (*Answer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connect(); err != nil {
		return nil, err
	}

	page, err := p.newPage()
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	// Cleanup always runs, success or failure, so stray tabs never
	// accumulate in the user's browser.
	defer page.Close()

	if err := p.navigate(page); err != nil {
		return nil, err
	}

	if err := p.submit(page, query); err != nil {
		return nil, err
	}

	probe := &pageProbe{page: page}
	waiter := newCompletionWaiter(
		probe,
		p.cfg.AnswerTimeout,
		p.cfg.PollInterval,
		p.cfg.StableSamples,
		p.cfg.SettleDelay,
		p.logger,
	)
	if err := waiter.wait(ctx); err != nil {
		return nil, err
	}

	response, err := p.extractResponse(page)
	if err != nil {
		return nil, err
	}

	answer := &Answer{
		Provider: domain.ProviderChatGPT,
		Query:    query,
		Response: response,
	}
	if p.cfg.Screenshots && p.storage != nil {
		answer.ArtifactURL = p.captureScreenshot(ctx, page)
	}

	extractor := newCitationExtractor(page, p.cfg.PanelTimeout, p.logger)
	answer.Citations, answer.Links = extractor.extract()

	// The side panel holding full citation data can fail to render on
	// the first attempt. Retry once from a fresh CDP session against
	// the saved conversation.
	if len(answer.Links) == 0 {
		answer.Citations, answer.Links = p.retryCitations(page)
	}

	p.logger.Info("query complete",
		zap.Int("response_len", len(response)),
		zap.Int("links", len(answer.Links)),
	)

	return answer, nil
}

// connect attaches to a local Chrome over CDP, probing the candidate
// debug ports in order. Reuses a live connection across queries.
func (p *ChatGPTProvider) connect() error {
	if p.browser != nil && p.browser.IsConnected() {
		return nil
	}
	p.browser = nil

	if p.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return fmt.Errorf("starting playwright driver: %w", err)
		}
		p.pw = pw
	}

	for _, port := range p.cfg.DebugPorts {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		conn, err := net.DialTimeout("tcp", addr, cdpProbeTimeout)
		if err != nil {
			continue
		}
		conn.Close()

		browser, err := p.pw.Chromium.ConnectOverCDP(fmt.Sprintf("http://%s", addr))
		if err != nil {
			p.logger.Warn("CDP endpoint reachable but connect failed",
				zap.Int("port", port), zap.Error(err))
			continue
		}

		p.logger.Info("connected to browser", zap.Int("port", port))
		p.browser = browser
		return nil
	}

	return fmt.Errorf(
		"no Chrome debug endpoint on ports %v: start Chrome with --remote-debugging-port=%d and log in to %s first",
		p.cfg.DebugPorts, p.cfg.DebugPorts[0], p.cfg.BaseURL,
	)
}

// newPage opens a tab in the browser's default context.
func (p *ChatGPTProvider) newPage() (playwright.Page, error) {
	contexts := p.browser.Contexts()
	if len(contexts) > 0 {
		return contexts[0].NewPage()
	}
	browserCtx, err := p.browser.NewContext()
	if err != nil {
		return nil, err
	}
	return browserCtx.NewPage()
}

// navigate loads the chat UI and verifies the session is signed in.
func (p *ChatGPTProvider) navigate(page playwright.Page) error {
	_, err := page.Goto(p.cfg.BaseURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(p.cfg.NavigateTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", p.cfg.BaseURL, err)
	}

	if visible, err := page.Locator(loginSelector).First().IsVisible(); err == nil && visible {
		return fmt.Errorf("browser session is not logged in: open %s in the connected Chrome and sign in", p.cfg.BaseURL)
	}

	if err := page.Locator(promptSelector).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(p.cfg.NavigateTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("prompt input never appeared: %w", err)
	}

	return nil
}

// submit types the query with per-key delay and sends it. Paste-style
// fills trip the UI's bot heuristics.
func (p *ChatGPTProvider) submit(page playwright.Page, query string) error {
	prompt := page.Locator(promptSelector)
	if err := prompt.Click(); err != nil {
		return fmt.Errorf("focusing prompt: %w", err)
	}
	if err := prompt.PressSequentially(query, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(typeDelayMs),
	}); err != nil {
		return fmt.Errorf("typing query: %w", err)
	}
	if err := prompt.Press("Enter"); err != nil {
		return fmt.Errorf("sending query: %w", err)
	}
	return nil
}

// extractResponse reads the final assistant message, truncated to the
// configured maximum.
func (p *ChatGPTProvider) extractResponse(page playwright.Page) (string, error) {
	messages := page.Locator(assistantSelector)
	count, err := messages.Count()
	if err != nil {
		return "", fmt.Errorf("locating assistant messages: %w", err)
	}
	if count == 0 {
		return "", fmt.Errorf("no assistant message found after completion")
	}

	text, err := messages.Nth(count - 1).InnerText()
	if err != nil {
		return "", fmt.Errorf("reading assistant message: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("assistant message was empty")
	}
	if p.cfg.MaxResponseLen > 0 && len(text) > p.cfg.MaxResponseLen {
		text = text[:p.cfg.MaxResponseLen]
	}
	return text, nil
}

// retryCitations runs one full reconnection cycle: close the tab, drop
// the CDP connection, reconnect, re-locate the saved conversation by
// URL, and run extraction once more. Only conversations with a
// persistent URL qualify.
func (p *ChatGPTProvider) retryCitations(page playwright.Page) ([]domain.Citation, []domain.Link) {
	convURL := page.URL()
	if !strings.Contains(convURL, "/c/") {
		return nil, nil
	}

	p.logger.Debug("no sources found, reconnecting to retry extraction", zap.String("url", convURL))

	page.Close()
	if p.browser != nil {
		p.browser.Close()
		p.browser = nil
	}
	if err := p.connect(); err != nil {
		p.logger.Warn("reconnect for citation retry failed", zap.Error(err))
		return nil, nil
	}

	retry, err := p.newPage()
	if err != nil {
		p.logger.Warn("opening retry tab failed", zap.Error(err))
		return nil, nil
	}
	defer retry.Close()

	if _, err := retry.Goto(convURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(p.cfg.NavigateTimeout.Milliseconds())),
	}); err != nil {
		p.logger.Warn("conversation reload failed", zap.Error(err))
		return nil, nil
	}
	retry.WaitForTimeout(float64(p.cfg.SettleDelay.Milliseconds()))

	return newCitationExtractor(retry, p.cfg.PanelTimeout, p.logger).extract()
}

// captureScreenshot uploads a full-page screenshot. Failures are
// logged, never fatal: the artifact is best-effort evidence.
func (p *ChatGPTProvider) captureScreenshot(ctx context.Context, page playwright.Page) string {
	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(80),
	})
	if err != nil {
		p.logger.Warn("screenshot failed", zap.Error(err))
		return ""
	}

	key := fmt.Sprintf("answers/chatgpt/%s.jpg", uuid.NewString())
	uri, err := p.storage.UploadScreenshot(ctx, key, data)
	if err != nil {
		p.logger.Warn("screenshot upload failed", zap.Error(err))
		return ""
	}
	return uri
}

// pageProbe implements answerProbe against the live page.
type pageProbe struct {
	page playwright.Page
}

func (p *pageProbe) ResponseLength() (int, error) {
	messages := p.page.Locator(assistantSelector)
	count, err := messages.Count()
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	text, err := messages.Nth(count - 1).InnerText()
	if err != nil {
		// The node can detach mid-stream; treat as a transient zero.
		return 0, nil
	}
	return len(text), nil
}

func (p *pageProbe) IsStreaming() (bool, error) {
	visible, err := p.page.Locator(stopSelector).First().IsVisible()
	if err != nil {
		return false, nil
	}
	return visible, nil
}
