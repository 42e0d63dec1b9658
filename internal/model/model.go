package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// CategoryPath is a full major > minor > sub assignment.
type CategoryPath struct {
	Major string `json:"major"`
	Minor string `json:"minor"`
	Sub   string `json:"sub"`
}

func (p CategoryPath) Complete() bool {
	return strings.TrimSpace(p.Major) != "" && strings.TrimSpace(p.Minor) != "" && strings.TrimSpace(p.Sub) != ""
}

func (p CategoryPath) String() string {
	if !p.Complete() {
		return ""
	}
	return p.Major + " > " + p.Minor + " > " + p.Sub
}

type EstimationRecord struct {
	JiraTicket       string   `json:"jira_ticket"`
	Title            string   `json:"title"`
	StoryPoints      float64  `json:"story_points"`
	TeamMember       *string  `json:"team_member,omitempty"`
	EstimationReason *string  `json:"estimation_reason,omitempty"`
	TechStack        []string `json:"tech_stack,omitempty"`
	MajorCategory    *string  `json:"major_category,omitempty"`
	MinorCategory    *string  `json:"minor_category,omitempty"`
	SubCategory      *string  `json:"sub_category,omitempty"`
	EpicKey          *string  `json:"epic_key,omitempty"`
	EpicName         *string  `json:"epic_name,omitempty"`
	CreatedDate      string   `json:"created_date"`
	SequenceNumber   int      `json:"sequence_number"`
}

// Category returns the record's assignment; ok is false when any level is missing.
func (r EstimationRecord) Category() (CategoryPath, bool) {
	p := CategoryPath{
		Major: deref(r.MajorCategory),
		Minor: deref(r.MinorCategory),
		Sub:   deref(r.SubCategory),
	}
	return p, p.Complete()
}

func (r EstimationRecord) Member() string {
	return strings.TrimSpace(deref(r.TeamMember))
}

// CreatedAt parses the backend timestamp. The backend writes naive ISO
// timestamps, sometimes with fractional seconds.
func (r EstimationRecord) CreatedAt() (time.Time, bool) {
	s := strings.TrimSpace(r.CreatedDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	TotalCount  int  `json:"total_count"`
	TotalPages  int  `json:"total_pages"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

type EstimationPage struct {
	Estimations []EstimationRecord `json:"estimations"`
	Pagination  *Pagination        `json:"pagination,omitempty"`
	JiraURL     string             `json:"jira_url,omitempty"`
}

type NewEstimation struct {
	JiraTicket       string
	Title            string
	StoryPoints      float64
	TeamMember       string
	EstimationReason string
	Category         CategoryPath
}

// Source is one retrieval hit backing an answer. Raw keeps the backend's
// full object so feedback calls can echo it back unchanged.
type Source struct {
	Source string          `json:"source"`
	Raw    json.RawMessage `json:"-"`
}

func (s Source) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return json.Marshal(map[string]string{"source": s.Source})
}

func (s *Source) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	switch {
	case r.IsObject():
		s.Source = r.Get("source").String()
		s.Raw = append(json.RawMessage(nil), b...)
	case r.Type == gjson.String:
		s.Source = r.String()
		s.Raw = nil
	default:
		return errors.New("source: expected object or string")
	}
	return nil
}

type Answer struct {
	Answer          string   `json:"answer"`
	Sources         []Source `json:"sources"`
	SearchSessionID string   `json:"search_session_id,omitempty"`
	FeedbackEnabled bool     `json:"feedback_enabled"`
	IsFromFeedback  bool     `json:"is_from_feedback"`
}

type WeeklyRatio struct {
	Week          string  `json:"week"`
	PositiveRatio float64 `json:"positive_ratio"`
}

type RatioLevel string

const (
	RatioGood RatioLevel = "good"
	RatioFair RatioLevel = "fair"
	RatioPoor RatioLevel = "poor"
)

// Level buckets the ratio for coloring: good from 80, fair from 60.
func (w WeeklyRatio) Level() RatioLevel {
	switch {
	case w.PositiveRatio >= 80:
		return RatioGood
	case w.PositiveRatio >= 60:
		return RatioFair
	}
	return RatioPoor
}

// Width is the ratio clamped to 0..100, for bar lengths.
func (w WeeklyRatio) Width() float64 {
	return min(max(w.PositiveRatio, 0), 100)
}

type SyncResult struct {
	Message string `json:"message"`
}

type EpicSyncResult struct {
	TotalTasks   int `json:"total_tasks"`
	AddedTasks   int `json:"added_tasks"`
	UpdatedTasks int `json:"updated_tasks"`
	SkippedTasks int `json:"skipped_tasks"`
}

type ClassifySuggestion struct {
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type AutoClassifyResult struct {
	TotalUnclassified     int                  `json:"total_unclassified"`
	HighConfidenceCount   int                  `json:"high_confidence_count"`
	MediumConfidenceCount int                  `json:"medium_confidence_count"`
	LowConfidenceCount    int                  `json:"low_confidence_count"`
	ClassifiedCount       int                  `json:"classified_count"`
	AverageConfidence     float64              `json:"average_confidence"`
	MediumConfidence      []ClassifySuggestion `json:"medium_confidence,omitempty"`
	LowConfidence         []ClassifySuggestion `json:"low_confidence,omitempty"`
}

// Spreadsheet is a downloaded category export.
type Spreadsheet struct {
	Filename    string
	ContentType string
	Data        []byte
}
