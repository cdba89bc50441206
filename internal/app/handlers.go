package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/chief-of-staff/internal/handlers"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/server"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Preference *handlers.PreferenceHandler
	Duplicate  *handlers.DuplicateHandler
	Briefing   *handlers.BriefingHandler
	Telegram   *handlers.TelegramHandler
}

func wireHandlers(log *logger.Logger, repos Repos, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     handlers.NewHealthHandler(),
		Preference: handlers.NewPreferenceHandler(log, services.Preference),
		Duplicate:  handlers.NewDuplicateHandler(log, services.Duplicate),
		Briefing:   handlers.NewBriefingHandler(log, services.Briefing, repos.User),
		Telegram:   handlers.NewTelegramHandler(log, repos.User, services.Feedback, services.Engagement, clients.Telegram),
	}
}

func wireRouter(handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		HealthHandler:     handlerset.Health,
		PreferenceHandler: handlerset.Preference,
		DuplicateHandler:  handlerset.Duplicate,
		BriefingHandler:   handlerset.Briefing,
		TelegramHandler:   handlerset.Telegram,
	})
}
