package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/yungbote/chief-of-staff/internal/pkg/errors"
	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

// Issue is the narrow tracker shape the rest of the system consumes. Query
// construction and pagination stay inside this package.
type Issue struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	State       string
	StateType   string
	Priority    int
	TeamID      string
	TeamName    string
	AssigneeID  string
	Assignee    string
	Labels      []string
}

type Client interface {
	// FetchRelevantIssues returns non-archived issues assigned to the given
	// user email.
	FetchRelevantIssues(ctx context.Context, assigneeEmail string) ([]Issue, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func New(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("LINEAR_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing LINEAR_API_KEY")
	}
	baseURL := strings.TrimSpace(os.Getenv("LINEAR_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.linear.app"
	}
	timeoutSec := 30
	if v := os.Getenv("LINEAR_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}
	return &client{
		log:        log.With("client", "LinearClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: 3,
	}, nil
}

const relevantIssuesQuery = `
query RelevantIssues($email: String!, $first: Int!) {
  issues(
    first: $first
    filter: {
      assignee: { email: { eq: $email } }
      state: { type: { nin: ["completed", "canceled"] } }
    }
  ) {
    nodes {
      id
      identifier
      title
      description
      priority
      state { name type }
      team { id name }
      assignee { id name }
      labels { nodes { name } }
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type issueNode struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	State       struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
	Team struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	Assignee struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"assignee"`
	Labels struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"labels"`
}

type relevantIssuesResponse struct {
	Data struct {
		Issues struct {
			Nodes []issueNode `json:"nodes"`
		} `json:"issues"`
	} `json:"data"`
	Errors []graphqlError `json:"errors,omitempty"`
}

func (c *client) FetchRelevantIssues(ctx context.Context, assigneeEmail string) ([]Issue, error) {
	assigneeEmail = strings.TrimSpace(assigneeEmail)
	if assigneeEmail == "" {
		return nil, pkgerrors.ErrInvalidArgument
	}

	req := graphqlRequest{
		Query: relevantIssuesQuery,
		Variables: map[string]any{
			"email": assigneeEmail,
			"first": 100,
		},
	}

	var resp relevantIssuesResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, pkgerrors.NewPermanent("linear", fmt.Errorf("graphql: %s", resp.Errors[0].Message))
	}

	out := make([]Issue, 0, len(resp.Data.Issues.Nodes))
	for _, n := range resp.Data.Issues.Nodes {
		labels := make([]string, 0, len(n.Labels.Nodes))
		for _, l := range n.Labels.Nodes {
			labels = append(labels, l.Name)
		}
		out = append(out, Issue{
			ID:          n.ID,
			Identifier:  n.Identifier,
			Title:       n.Title,
			Description: n.Description,
			State:       n.State.Name,
			StateType:   n.State.Type,
			Priority:    n.Priority,
			TeamID:      n.Team.ID,
			TeamName:    n.Team.Name,
			AssigneeID:  n.Assignee.ID,
			Assignee:    n.Assignee.Name,
			Labels:      labels,
		})
	}
	return out, nil
}

func (c *client) do(ctx context.Context, body any, out any) error {
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		status, raw, err := c.doOnce(ctx, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("linear decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}
		lastErr = err

		if status == 401 || status == 403 {
			return pkgerrors.NewPermanent("linear", err)
		}
		retryable := status == 0 || status == 429 || status >= 500
		if !retryable || attempt == c.maxRetries {
			break
		}

		c.log.Warn("Linear request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"status", status,
			"error", err.Error(),
		)
		time.Sleep(backoff)
		backoff *= 2
	}
	return pkgerrors.NewTransient("linear", lastErr)
}

func (c *client) doOnce(ctx context.Context, body any) (int, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/graphql", &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, raw, fmt.Errorf("linear http %d: %s", resp.StatusCode, string(raw))
	}
	return resp.StatusCode, raw, nil
}
