package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const telegramMaxMessageLen = 4096

// ChatIDResolver maps a username to the Telegram chat to notify. It returns
// false for users without a linked chat.
type ChatIDResolver func(username string) (string, bool)

// TelegramChannel delivers notifications through the Telegram Bot API.
type TelegramChannel struct {
	baseURL string
	client  *http.Client
	resolve ChatIDResolver
}

// TelegramOption configures a TelegramChannel.
type TelegramOption func(*TelegramChannel)

// WithTelegramBaseURL overrides the Bot API endpoint (tests, proxies).
func WithTelegramBaseURL(u string) TelegramOption {
	return func(t *TelegramChannel) {
		t.baseURL = u
	}
}

// WithTelegramHTTPClient sets a custom HTTP client.
func WithTelegramHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramChannel) {
		t.client = c
	}
}

// NewTelegramChannel creates a Telegram notification channel.
func NewTelegramChannel(token string, resolve ChatIDResolver, opts ...TelegramOption) (*TelegramChannel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required (GRC_TELEGRAM_BOT_TOKEN)")
	}
	if resolve == nil {
		return nil, fmt.Errorf("telegram chat id resolver is required")
	}
	t := &TelegramChannel{
		baseURL: "https://api.telegram.org/bot" + token,
		client:  &http.Client{Timeout: 15 * time.Second},
		resolve: resolve,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Notify sends n to the user's linked chat, if any.
func (t *TelegramChannel) Notify(ctx context.Context, n Notification) error {
	chatID, ok := t.resolve(n.User)
	if !ok {
		return nil
	}

	text := n.Title
	if n.Body != "" {
		text += "\n\n" + n.Body
	}

	for _, part := range SplitMessage(text, telegramMaxMessageLen) {
		params := url.Values{
			"chat_id": {chatID},
			"text":    {part},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/sendMessage", strings.NewReader(params.Encode()))
		if err != nil {
			return fmt.Errorf("create telegram request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending Telegram message: %w", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("telegram API error %d", resp.StatusCode)
		}
	}

	slog.Debug("telegram notification sent", "user", n.User, "kind", n.Kind)
	return nil
}

// SplitMessage splits text into chunks of at most maxLen bytes, each valid
// UTF-8 when text is.
func SplitMessage(text string, maxLen int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Prefer breaking at the last newline, then the last space.
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > 0 {
			cutAt = idx + 1
		} else if idx := strings.LastIndex(text[:maxLen], " "); idx > 0 {
			cutAt = idx + 1
		}
		// Never cut inside a multibyte character.
		for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
			cutAt--
		}
		if cutAt == 0 {
			cutAt = maxLen
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}
