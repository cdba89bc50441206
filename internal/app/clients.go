package app

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/chief-of-staff/internal/clients/linear"
	"github.com/yungbote/chief-of-staff/internal/clients/openai"
	"github.com/yungbote/chief-of-staff/internal/clients/pinecone"
	"github.com/yungbote/chief-of-staff/internal/clients/telegram"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
	"github.com/yungbote/chief-of-staff/internal/utils"
)

type Clients struct {
	Linear      linear.Client
	OpenAI      openai.Client
	Pinecone    pinecone.Client
	VectorStore pinecone.VectorStore
	Telegram    telegram.Client
	Redis       *redis.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	linearClient, err := linear.New(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init linear client: %w", err)
	}

	openaiClient, err := openai.New(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	pineconeClient, err := pinecone.New(log, pinecone.Config{
		APIKey:  utils.GetEnv("PINECONE_API_KEY", "", log),
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init pinecone client: %w", err)
	}
	vectorStore, err := pinecone.NewVectorStore(log, pineconeClient)
	if err != nil {
		return Clients{}, fmt.Errorf("init vector store: %w", err)
	}

	// Telegram is optional; without it briefings are generated but not sent.
	var telegramClient telegram.Client
	telegramClient, err = telegram.New(log)
	if err != nil {
		log.Warn("Telegram client not configured, delivery disabled", "error", err.Error())
		telegramClient = nil
	}

	// Redis is optional; without it job leases are process-local.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	return Clients{
		Linear:      linearClient,
		OpenAI:      openaiClient,
		Pinecone:    pineconeClient,
		VectorStore: vectorStore,
		Telegram:    telegramClient,
		Redis:       rdb,
	}, nil
}
