package app

import (
	"time"

	"github.com/yungbote/chief-of-staff/internal/jobs"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/services"
	"github.com/yungbote/chief-of-staff/internal/utils"
)

type Config struct {
	Addr                string
	TopicVocabularyPath string
	RedisAddr           string
	Preference          services.PreferenceConfig
	Engagement          services.EngagementConfig
	Jobs                jobs.Config
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Addr:                utils.GetEnv("HTTP_ADDR", ":8080", log),
		TopicVocabularyPath: utils.GetEnv("TOPIC_VOCABULARY_PATH", "", log),
		RedisAddr:           utils.GetEnv("REDIS_ADDR", "", log),
		Preference: services.PreferenceConfig{
			WindowDays:           utils.GetEnvAsInt("PREFERENCE_WINDOW_DAYS", 30, log),
			MinFeedbackCount:     utils.GetEnvAsInt("PREFERENCE_MIN_FEEDBACK", 3, log),
			ConfidenceSaturation: utils.GetEnvAsInt("PREFERENCE_CONFIDENCE_SATURATION", 20, log),
			PreferredThreshold:   utils.GetEnvAsFloat("PREFERENCE_PREFERRED_THRESHOLD", 0.7, log),
			DislikedThreshold:    utils.GetEnvAsFloat("PREFERENCE_DISLIKED_THRESHOLD", 0.3, log),
			MinObservations:      utils.GetEnvAsInt("PREFERENCE_MIN_OBSERVATIONS", 2, log),
		},
		Engagement: services.EngagementConfig{
			FrequencyWeight:     utils.GetEnvAsFloat("ENGAGEMENT_FREQUENCY_WEIGHT", 0.6, log),
			RecencyWeight:       utils.GetEnvAsFloat("ENGAGEMENT_RECENCY_WEIGHT", 0.4, log),
			FrequencySaturation: utils.GetEnvAsFloat("ENGAGEMENT_FREQUENCY_SATURATION", 10, log),
			RecencyHalfLife:     time.Duration(utils.GetEnvAsInt("ENGAGEMENT_HALF_LIFE_DAYS", 21, log)) * 24 * time.Hour,
			DecayFactor:         utils.GetEnvAsFloat("ENGAGEMENT_DECAY_FACTOR", 0.9, log),
			DecayWindow:         time.Duration(utils.GetEnvAsInt("ENGAGEMENT_DECAY_WINDOW_HOURS", 24, log)) * time.Hour,
			ZeroFloor:           utils.GetEnvAsFloat("ENGAGEMENT_ZERO_FLOOR", 0.01, log),
		},
		Jobs: jobs.ConfigFromEnv(log),
	}
}
