package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// TopicVocabulary maps a topic tag to the keywords that attribute an issue to
// it. Matching is case-insensitive substring search over title + description.
type TopicVocabulary map[string][]string

// DefaultTopicVocabulary covers the tags the briefing and preference flows
// care about out of the box. Override via TOPIC_VOCABULARY_PATH.
func DefaultTopicVocabulary() TopicVocabulary {
	return TopicVocabulary{
		"backend":        {"backend", "server", "endpoint", "service layer", "worker"},
		"frontend":       {"frontend", "front-end", "react", "component", "css", "browser"},
		"infrastructure": {"infrastructure", "deploy", "terraform", "kubernetes", "docker", "ci/cd", "pipeline"},
		"testing":        {"test", "coverage", "flaky", "regression suite"},
		"performance":    {"performance", "latency", "slow", "optimize", "profiling", "memory leak"},
		"database":       {"database", "migration", "query", "index", "postgres", "sql"},
		"api":            {"api", "rest", "graphql", "webhook", "rate limit"},
		"security":       {"security", "auth", "oauth", "vulnerability", "token", "permission"},
		"documentation":  {"documentation", "docs", "readme", "changelog"},
		"ui":             {"ui", "ux", "design", "layout", "accessibility"},
	}
}

// LoadTopicVocabulary reads a {topic: [keywords]} YAML file.
func LoadTopicVocabulary(path string) (TopicVocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topic vocabulary: %w", err)
	}
	var vocab TopicVocabulary
	if err := yaml.Unmarshal(raw, &vocab); err != nil {
		return nil, fmt.Errorf("parse topic vocabulary: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("topic vocabulary %s is empty", path)
	}
	return vocab, nil
}

// TopicDetector tags issue text against a vocabulary. Pure; safe for
// concurrent use once constructed.
type TopicDetector struct {
	vocab TopicVocabulary
}

func NewTopicDetector(vocab TopicVocabulary) *TopicDetector {
	if len(vocab) == 0 {
		vocab = DefaultTopicVocabulary()
	}
	normalized := make(TopicVocabulary, len(vocab))
	for topic, keywords := range vocab {
		kws := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic != "" && len(kws) > 0 {
			normalized[topic] = kws
		}
	}
	return &TopicDetector{vocab: normalized}
}

// Detect returns the sorted set of topics whose keywords appear in the issue
// title or description. An issue may match zero or more topics.
func (d *TopicDetector) Detect(title, description string) []string {
	text := strings.ToLower(title + "\n" + description)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for topic, keywords := range d.vocab {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				out = append(out, topic)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
