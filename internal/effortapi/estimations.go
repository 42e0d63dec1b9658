package effortapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"effort-ui/internal/model"

	"github.com/tidwall/gjson"
)

type ListQuery struct {
	Page     int
	PageSize int
	Search   string
}

// Values builds the list query string. The search term is only sent when
// non-empty.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	return v
}

func (c *Client) ListEstimations(ctx context.Context, q ListQuery) (model.EstimationPage, error) {
	const op = "list estimations"
	if q.Page < 1 {
		return model.EstimationPage{}, invalid("page must be >= 1")
	}
	if q.PageSize < 1 {
		return model.EstimationPage{}, invalid("page size must be >= 1")
	}
	res, err := c.getJSON(ctx, op, "/effort/list/", q.Values())
	if err != nil {
		return model.EstimationPage{}, err
	}
	var page model.EstimationPage
	if err := decodeInto(op, res.body, &page); err != nil {
		return model.EstimationPage{}, err
	}
	if page.Estimations == nil {
		page.Estimations = []model.EstimationRecord{}
	}
	return page, nil
}

func (c *Client) UpdateRecordCategory(ctx context.Context, ticket string, p model.CategoryPath) error {
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return invalid("ticket is required")
	}
	if !p.Complete() {
		return invalid("major, minor and sub category are all required")
	}
	_, err := c.sendJSON(ctx, "update record category", http.MethodPut, "/effort/update-category/", map[string]string{
		"jira_ticket":    ticket,
		"major_category": p.Major,
		"minor_category": p.Minor,
		"sub_category":   p.Sub,
	})
	return err
}

func (c *Client) DeleteRecord(ctx context.Context, ticket string) error {
	const op = "delete record"
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return invalid("ticket is required")
	}
	res, err := c.send(ctx, op, http.MethodDelete, "/effort/delete/"+url.PathEscape(ticket), nil, nil, "")
	if err != nil {
		return err
	}
	return checkBodyError(op, res)
}

// AddEstimation stores a manually entered record and returns the backend's
// confirmation message.
func (c *Client) AddEstimation(ctx context.Context, e model.NewEstimation) (string, error) {
	e.JiraTicket = strings.TrimSpace(e.JiraTicket)
	e.Title = strings.TrimSpace(e.Title)
	if e.JiraTicket == "" || e.Title == "" || e.StoryPoints <= 0 {
		return "", invalid("ticket, title and story points are required")
	}
	form := url.Values{}
	form.Set("jira_ticket", e.JiraTicket)
	form.Set("title", e.Title)
	form.Set("story_points", strconv.FormatFloat(e.StoryPoints, 'f', -1, 64))
	form.Set("team_member", strings.TrimSpace(e.TeamMember))
	form.Set("estimation_reason", strings.TrimSpace(e.EstimationReason))
	form.Set("major_category", e.Category.Major)
	form.Set("minor_category", e.Category.Minor)
	form.Set("sub_category", e.Category.Sub)
	res, err := c.sendForm(ctx, "add estimation", "/effort/add/", form)
	if err != nil {
		return "", err
	}
	return message(res.body), nil
}

// SyncTicket imports one issue-tracker ticket, optionally pre-classified.
func (c *Client) SyncTicket(ctx context.Context, ticket string, p model.CategoryPath) (model.SyncResult, error) {
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return model.SyncResult{}, invalid("ticket key is required")
	}
	form := url.Values{}
	form.Set("ticket_key", ticket)
	form.Set("major_category", p.Major)
	form.Set("minor_category", p.Minor)
	form.Set("sub_category", p.Sub)
	res, err := c.sendForm(ctx, "sync ticket", "/effort/sync-jira/", form)
	if err != nil {
		return model.SyncResult{}, err
	}
	return model.SyncResult{Message: message(res.body)}, nil
}

func (c *Client) SyncEpic(ctx context.Context, epic string) (model.EpicSyncResult, error) {
	const op = "sync epic"
	epic = strings.TrimSpace(epic)
	if epic == "" {
		return model.EpicSyncResult{}, invalid("epic key is required")
	}
	res, err := c.sendForm(ctx, op, "/effort/sync-epic/", url.Values{"epic_key": {epic}})
	if err != nil {
		return model.EpicSyncResult{}, err
	}
	var out model.EpicSyncResult
	if err := decodeInto(op, res.body, &out); err != nil {
		return model.EpicSyncResult{}, err
	}
	return out, nil
}

func (c *Client) AutoClassify(ctx context.Context) (model.AutoClassifyResult, error) {
	const op = "auto classify"
	res, err := c.send(ctx, op, http.MethodPost, "/effort/auto-classify/", nil, nil, "")
	if err != nil {
		return model.AutoClassifyResult{}, err
	}
	if err := checkBodyError(op, res); err != nil {
		return model.AutoClassifyResult{}, err
	}
	if !gjson.ValidBytes(res.body) {
		return model.AutoClassifyResult{}, &DecodeError{Op: op, Err: errNotJSON}
	}
	r := gjson.ParseBytes(res.body)
	return model.AutoClassifyResult{
		TotalUnclassified:     int(r.Get("total_unclassified").Int()),
		HighConfidenceCount:   int(r.Get("high_confidence_count").Int()),
		MediumConfidenceCount: int(r.Get("medium_confidence_count").Int()),
		LowConfidenceCount:    int(r.Get("low_confidence_count").Int()),
		ClassifiedCount:       int(r.Get("classified_count").Int()),
		AverageConfidence:     r.Get("average_confidence").Float(),
		MediumConfidence:      suggestions(r.Get("medium_confidence")),
		LowConfidence:         suggestions(r.Get("low_confidence")),
	}, nil
}

// suggestions accepts both `{title, category, confidence}` objects and
// `[title, category, confidence]` tuples.
func suggestions(r gjson.Result) []model.ClassifySuggestion {
	if !r.IsArray() {
		return nil
	}
	var out []model.ClassifySuggestion
	for _, it := range r.Array() {
		if it.IsArray() {
			a := it.Array()
			var s model.ClassifySuggestion
			if len(a) > 0 {
				s.Title = a[0].String()
			}
			if len(a) > 1 {
				s.Category = a[1].String()
			}
			if len(a) > 2 {
				s.Confidence = a[2].Float()
			}
			out = append(out, s)
			continue
		}
		out = append(out, model.ClassifySuggestion{
			Title:      it.Get("title").String(),
			Category:   it.Get("category").String(),
			Confidence: it.Get("confidence").Float(),
		})
	}
	return out
}
