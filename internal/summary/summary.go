// Package summary turns recent reflections into a short summary, using a remote
// summarization endpoint when one is configured and a local digest otherwise.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/reflections/pkg/journal"
	"go.uber.org/zap"
)

const (
	SourceRemote = "remote"
	SourceLocal  = "local"

	DefaultRecent  = 5
	DefaultTimeout = 10 * time.Second

	maxResponseBytes  = 1 << 20
	localPreviewRunes = 80
)

var (
	ErrInvalidConfig            = errors.New("invalid summary config")
	ErrNoReflections            = errors.New("no reflections to summarize")
	ErrRemoteSummaryUnavailable = errors.New("remote summary unavailable")
)

// Reflection is one entry as sent to the summarization endpoint.
type Reflection struct {
	Text string `json:"text"`
	Date string `json:"date"`
}

// Remote summarizes reflections.
type Remote interface {
	Summarize(ctx context.Context, reflections []Reflection) (string, error)
}

type requestBody struct {
	Reflections []Reflection `json:"reflections"`
}

type responseBody struct {
	Summary string `json:"summary"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Client calls a summarization endpoint that accepts {reflections:[{text,date}]}
// and answers {summary} or {error, details}.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a Client for endpoint. apiKey is sent as a bearer token when set.
func NewClient(endpoint string, apiKey string, timeout time.Duration) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: endpoint is empty", ErrInvalidConfig)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   trimmed,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Summarize posts reflections and returns the endpoint's summary.
func (client *Client) Summarize(ctx context.Context, reflections []Reflection) (string, error) {
	payload, err := json.Marshal(requestBody{Reflections: reflections})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrRemoteSummaryUnavailable, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrRemoteSummaryUnavailable, err)
	}
	request.Header.Set("Content-Type", "application/json")
	if client.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+client.apiKey)
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteSummaryUnavailable, err)
	}
	defer response.Body.Close()

	var decoded responseBody
	if err := json.NewDecoder(io.LimitReader(response.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: status %d: decode response: %v", ErrRemoteSummaryUnavailable, response.StatusCode, err)
	}
	if response.StatusCode != http.StatusOK || decoded.Error != "" {
		return "", fmt.Errorf("%w: status %d: %s %s", ErrRemoteSummaryUnavailable, response.StatusCode, decoded.Error, decoded.Details)
	}
	summaryText := strings.TrimSpace(decoded.Summary)
	if summaryText == "" {
		return "", fmt.Errorf("%w: empty summary", ErrRemoteSummaryUnavailable)
	}
	return summaryText, nil
}

// Result is a summary and where it came from.
type Result struct {
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

// Summarizer picks the most recent reflections of a journal and summarizes them.
type Summarizer struct {
	remote Remote
	recent int
	logger *zap.Logger
}

// NewSummarizer returns a Summarizer. remote may be nil, in which case only the local digest is used.
func NewSummarizer(remote Remote, recent int, logger *zap.Logger) *Summarizer {
	if recent <= 0 {
		recent = DefaultRecent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{remote: remote, recent: recent, logger: logger}
}

// Summarize summarizes the most recent entries of state, oldest first.
// A failing remote falls back to the local digest.
func (summarizer *Summarizer) Summarize(ctx context.Context, state journal.LedgerState) (Result, error) {
	recent := journal.RecentEntries(state, summarizer.recent)
	if len(recent) == 0 {
		return Result{}, ErrNoReflections
	}
	reflections := make([]Reflection, 0, len(recent))
	for index := len(recent) - 1; index >= 0; index-- {
		reflections = append(reflections, Reflection{Text: recent[index].Text(), Date: recent[index].DisplayDate()})
	}
	if summarizer.remote != nil {
		summaryText, err := summarizer.remote.Summarize(ctx, reflections)
		if err == nil {
			return Result{Summary: summaryText, Source: SourceRemote}, nil
		}
		summarizer.logger.Warn("remote summary failed, using local digest", zap.Error(err), zap.Int("reflections", len(reflections)))
	}
	return Result{Summary: Digest(reflections), Source: SourceLocal}, nil
}

// Digest lists reflections in brief and closes with encouragement.
func Digest(reflections []Reflection) string {
	var builder strings.Builder
	if len(reflections) == 1 {
		builder.WriteString("Your latest reflection: ")
	} else {
		fmt.Fprintf(&builder, "Your last %d reflections: ", len(reflections))
	}
	for index, reflection := range reflections {
		if index > 0 {
			builder.WriteString("; ")
		}
		builder.WriteString(preview(reflection.Text))
		if reflection.Date != "" {
			fmt.Fprintf(&builder, " (%s)", reflection.Date)
		}
	}
	builder.WriteString(". Keep going, every entry adds to your jar.")
	return builder.String()
}

func preview(text string) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= localPreviewRunes {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:localPreviewRunes])) + "..."
}
