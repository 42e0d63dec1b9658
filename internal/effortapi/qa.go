package effortapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"effort-ui/internal/model"

	"github.com/tidwall/gjson"
)

var errNotJSON = errors.New("body is not JSON")

func (c *Client) Ask(ctx context.Context, question string) (model.Answer, error) {
	const op = "ask"
	question = strings.TrimSpace(question)
	if question == "" {
		return model.Answer{}, invalid("question is required")
	}
	res, err := c.sendForm(ctx, op, "/effort/ask/", url.Values{"question": {question}})
	if err != nil {
		return model.Answer{}, err
	}
	var a model.Answer
	if err := decodeInto(op, res.body, &a); err != nil {
		return model.Answer{}, err
	}
	return a, nil
}

// AskExcluding re-runs a question while skipping sources the user already
// rejected.
func (c *Client) AskExcluding(ctx context.Context, question string, excluded []string) (model.Answer, error) {
	const op = "ask again"
	question = strings.TrimSpace(question)
	if question == "" {
		return model.Answer{}, invalid("question is required")
	}
	if excluded == nil {
		excluded = []string{}
	}
	res, err := c.sendJSON(ctx, op, http.MethodPost, "/effort/ask-feedback/", map[string]any{
		"question":         question,
		"excluded_sources": excluded,
	})
	if err != nil {
		return model.Answer{}, err
	}
	var a model.Answer
	if err := decodeInto(op, res.body, &a); err != nil {
		return model.Answer{}, err
	}
	return a, nil
}

type Feedback struct {
	Question string
	Answer   string
	Sources  []model.Source
	Type     string
}

// SendFeedback stores feedback on an answer. It reports whether the backend
// confirmed the save.
func (c *Client) SendFeedback(ctx context.Context, f Feedback) (bool, error) {
	if strings.TrimSpace(f.Question) == "" || strings.TrimSpace(f.Answer) == "" {
		return false, invalid("question and answer are required")
	}
	if f.Type == "" {
		f.Type = "positive"
	}
	sources := f.Sources
	if sources == nil {
		sources = []model.Source{}
	}
	res, err := c.sendJSON(ctx, "send feedback", http.MethodPost, "/effort/feedback/", map[string]any{
		"question":      f.Question,
		"answer":        f.Answer,
		"sources":       sources,
		"feedback_type": f.Type,
	})
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(res.body, "status").String() == "success", nil
}

func (c *Client) WeeklyPositiveRatio(ctx context.Context) ([]model.WeeklyRatio, error) {
	const op = "weekly feedback ratio"
	res, err := c.getJSON(ctx, op, "/effort/feedback-statistics/weekly-positive-ratio/", nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		WeeklyTrend []model.WeeklyRatio `json:"weekly_trend"`
	}
	if err := decodeInto(op, res.body, &body); err != nil {
		return nil, err
	}
	return body.WeeklyTrend, nil
}
