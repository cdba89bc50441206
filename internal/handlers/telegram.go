package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/chief-of-staff/internal/clients/telegram"
	"github.com/yungbote/chief-of-staff/internal/data/repos/user"
	types "github.com/yungbote/chief-of-staff/internal/domain"
	"github.com/yungbote/chief-of-staff/internal/pkg/dbctx"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/services"
)

// TelegramHandler receives bot webhook updates. Feedback buttons arrive as
// callback data "feedback:<type>:<issue_id>"; any interaction also counts
// toward engagement.
type TelegramHandler struct {
	log           *logger.Logger
	userRepo      user.UserRepo
	feedbackSvc   services.FeedbackService
	engagementSvc services.EngagementService
	bot           telegram.Client
}

func NewTelegramHandler(
	log *logger.Logger,
	userRepo user.UserRepo,
	feedbackSvc services.FeedbackService,
	engagementSvc services.EngagementService,
	bot telegram.Client,
) *TelegramHandler {
	return &TelegramHandler{
		log:           log.With("handler", "TelegramHandler"),
		userRepo:      userRepo,
		feedbackSvc:   feedbackSvc,
		engagementSvc: engagementSvc,
		bot:           bot,
	}
}

// Webhook always answers 200 so Telegram does not re-deliver; failures are
// logged and the user gets a bot message where possible.
func (h *TelegramHandler) Webhook(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.Warn("Unparseable webhook payload", "error", err.Error())
		c.Status(http.StatusOK)
		return
	}

	chatID := update.ChatID()
	if chatID == 0 {
		c.Status(http.StatusOK)
		return
	}
	dbc := dbctx.New(c.Request.Context())

	u, err := h.userRepo.GetByTelegramChatID(dbc, chatID)
	if err != nil || u == nil {
		h.log.Warn("Webhook from unknown chat", "chat_id", chatID)
		c.Status(http.StatusOK)
		return
	}

	if update.CallbackQuery != nil {
		h.handleCallback(dbc, u, update.CallbackQuery.Data, chatID)
	}
	c.Status(http.StatusOK)
}

func (h *TelegramHandler) handleCallback(dbc dbctx.Context, u *types.User, data string, chatID int64) {
	feedbackType, issueID, ok := ParseFeedbackCallback(data)
	if !ok {
		h.log.Debug("Ignoring unrecognized callback", "data", data)
		return
	}

	_, err := h.feedbackSvc.RecordFeedback(dbc, u.ID, feedbackType, types.FeedbackMetadata{IssueID: issueID}, nil)
	if err != nil {
		h.log.Error("Feedback recording failed", "user_id", u.ID, "issue_id", issueID, "error", err.Error())
		h.reply(dbc, chatID, "Could not record that, try again later.")
		return
	}
	if _, err := h.engagementSvc.RecordInteraction(dbc, u.ID, issueID, "feedback"); err != nil {
		h.log.Warn("Engagement recording failed", "user_id", u.ID, "issue_id", issueID, "error", err.Error())
	}
	h.reply(dbc, chatID, "Got it, thanks for the feedback.")
}

func (h *TelegramHandler) reply(dbc dbctx.Context, chatID int64, text string) {
	if h.bot == nil {
		return
	}
	if err := h.bot.SendMessage(dbc.Ctx, chatID, text, ""); err != nil {
		h.log.Warn("Bot reply failed", "chat_id", chatID, "error", err.Error())
	}
}

// ParseFeedbackCallback decodes "feedback:<type>:<issue_id>" callback data.
func ParseFeedbackCallback(data string) (feedbackType, issueID string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 3)
	if len(parts) != 3 || parts[0] != "feedback" {
		return "", "", false
	}
	if !types.ValidFeedbackType(parts[1]) || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
