package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/yungbote/chief-of-staff/internal/pkg/errors"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string, parseMode string) error
}

type client struct {
	log        *logger.Logger
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func New(log *logger.Logger) (Client, error) {
	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if token == "" {
		return nil, fmt.Errorf("missing TELEGRAM_BOT_TOKEN")
	}
	baseURL := strings.TrimSpace(os.Getenv("TELEGRAM_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &client{
		log:        log.With("client", "TelegramClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		botToken:   token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

// Telegram caps message text at 4096 characters.
const maxMessageLen = 4096

func (c *client) SendMessage(ctx context.Context, chatID int64, text string, parseMode string) error {
	if chatID == 0 {
		return pkgerrors.ErrInvalidArgument
	}
	if strings.TrimSpace(text) == "" {
		return pkgerrors.ErrInvalidArgument
	}
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen-3] + "..."
	}

	body := sendMessageRequest{ChatID: chatID, Text: text, ParseMode: parseMode}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.NewTransient("telegram", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return pkgerrors.NewTransient("telegram", fmt.Errorf("decode response: %w; raw=%s", err, string(raw)))
	}
	if !out.OK {
		err := fmt.Errorf("telegram api %d: %s", out.ErrorCode, out.Description)
		if out.ErrorCode == 401 || out.ErrorCode == 403 {
			return pkgerrors.NewPermanent("telegram", err)
		}
		return pkgerrors.NewTransient("telegram", err)
	}
	return nil
}
