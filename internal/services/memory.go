package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/chief-of-staff/internal/clients/openai"
	"github.com/yungbote/chief-of-staff/internal/clients/pinecone"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

const memoryNamespace = "memory"

// MemoryStore is the long-term memory surface. The preference learner writes
// human-readable summaries here; failures must never block the database path.
type MemoryStore interface {
	Add(ctx context.Context, text string, metadata map[string]any) error
	Query(ctx context.Context, query string, filter map[string]any, topK int) ([]string, error)
}

type memoryStore struct {
	log *logger.Logger
	ai  openai.Client
	vs  pinecone.VectorStore
}

func NewMemoryStore(log *logger.Logger, ai openai.Client, vs pinecone.VectorStore) (MemoryStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ai == nil || vs == nil {
		return nil, fmt.Errorf("openai client and vector store required")
	}
	return &memoryStore{
		log: log.With("service", "MemoryStore"),
		ai:  ai,
		vs:  vs,
	}, nil
}

func (m *memoryStore) Add(ctx context.Context, text string, metadata map[string]any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	embs, err := m.ai.Embed(ctx, []string{text})
	if err != nil {
		return err
	}
	if len(embs) != 1 {
		return fmt.Errorf("expected 1 embedding, got %d", len(embs))
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["text"] = text
	metadata["stored_at"] = time.Now().UTC().Format(time.RFC3339)
	return m.vs.Upsert(ctx, memoryNamespace, []pinecone.Vector{{
		ID:       uuid.NewString(),
		Values:   embs[0],
		Metadata: metadata,
	}})
}

func (m *memoryStore) Query(ctx context.Context, query string, filter map[string]any, topK int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}
	embs, err := m.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embs))
	}
	matches, err := m.vs.QuerySimilar(ctx, memoryNamespace, embs[0], topK, filter)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		if text, ok := match.Metadata["text"].(string); ok && text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}
