package services

import (
	"context"
	"errors"
	"time"

	"github.com/dwill458/Anchor--sub003/models"

	"gorm.io/gorm"
)

type AnalyticsService struct{ db *gorm.DB }

func NewAnalyticsService(db *gorm.DB) *AnalyticsService { return &AnalyticsService{db: db} }

// ---------- Practice Summary ----------

type DayActivity struct {
	Date        string `json:"date"`
	Activations int64  `json:"activations"`
}

type TopAnchor struct {
	PublicID    string `json:"anchor_id"`
	Category    string `json:"category"`
	Activations int64  `json:"activations"`
}

type PracticeSummary struct {
	Range struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"range"`

	TotalActivations int64 `json:"total_activations"`
	ActiveDays       int   `json:"active_days"`
	CurrentStreak    int   `json:"current_streak"`
	BestStreak       int   `json:"best_streak"`

	TotalAnchors   int64 `json:"total_anchors"`
	ChargedAnchors int64 `json:"charged_anchors"`

	Days      []DayActivity `json:"days"`
	TopAnchor *TopAnchor    `json:"top_anchor,omitempty"`

	Metadata struct {
		DaysCounted int `json:"days_counted"`
	} `json:"metadata"`
}

// Summary aggregates the user's practice between from and to inclusive.
// Bucketing happens in Go so the query stays portable across DB engines.
// Streaks are computed relative to `to`: the current streak is the run of
// consecutive active days ending at `to`, with one day of grace when `to`
// itself has no activity yet.
func (s *AnalyticsService) Summary(
	ctx context.Context, userID uint, from, to time.Time,
) (*PracticeSummary, error) {

	var rows []models.Activation
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND activated_at BETWEEN ? AND ?", userID, dayStart(from), dayEnd(to)).
		Order("activated_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	perDay := map[string]int64{}
	perAnchor := map[uint]int64{}
	for _, r := range rows {
		perDay[r.ActivatedAt.Format("2006-01-02")]++
		perAnchor[r.AnchorID]++
	}

	out := &PracticeSummary{}
	out.Range.From = from.Format("2006-01-02")
	out.Range.To = to.Format("2006-01-02")
	out.TotalActivations = int64(len(rows))
	out.ActiveDays = len(perDay)

	var days []DayActivity
	counted := 0
	for d := dayStart(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		days = append(days, DayActivity{Date: key, Activations: perDay[key]})
		counted++
	}
	out.Days = days
	out.Metadata.DaysCounted = counted

	out.CurrentStreak = currentStreak(perDay, to)
	out.BestStreak = bestStreak(days)

	if err := s.db.WithContext(ctx).Model(&models.Anchor{}).
		Where("user_id = ? AND archived = ?", userID, false).
		Count(&out.TotalAnchors).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Anchor{}).
		Where("user_id = ? AND archived = ? AND is_charged = ?", userID, false, true).
		Count(&out.ChargedAnchors).Error; err != nil {
		return nil, err
	}

	if top := topAnchorID(perAnchor); top != 0 {
		var anchor models.Anchor
		if err := s.db.WithContext(ctx).First(&anchor, top).Error; err == nil {
			out.TopAnchor = &TopAnchor{
				PublicID:    anchor.PublicID,
				Category:    anchor.Category,
				Activations: perAnchor[top],
			}
		}
	}

	return out, nil
}

func currentStreak(perDay map[string]int64, to time.Time) int {
	d := dayStart(to)
	if perDay[d.Format("2006-01-02")] == 0 {
		d = d.AddDate(0, 0, -1) // grace: today not practiced yet
	}
	streak := 0
	for perDay[d.Format("2006-01-02")] > 0 {
		streak++
		d = d.AddDate(0, 0, -1)
	}
	return streak
}

func bestStreak(days []DayActivity) int {
	best, run := 0, 0
	for _, d := range days {
		if d.Activations > 0 {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 0
		}
	}
	return best
}

func topAnchorID(perAnchor map[uint]int64) uint {
	var top uint
	var topCount int64
	for id, n := range perAnchor {
		if n > topCount || (n == topCount && id < top) {
			top, topCount = id, n
		}
	}
	return top
}

// ---------- Weekly Overview ----------

type WeeklyOverviewResponse struct {
	WeekStart string `json:"week_start"`
	Mode      string `json:"mode"` // chart|detailed
	Days      any    `json:"days"`
}

type WeekDayChart struct {
	Date        string `json:"date"`
	Activations int64  `json:"activations"`
}

type WeekDayDetailed struct {
	Date            string `json:"date"`
	Activations     int64  `json:"activations"`
	DistinctAnchors int    `json:"distinct_anchors"`
	FirstActivation string `json:"first_activation,omitempty"`
	LastActivation  string `json:"last_activation,omitempty"`
}

func (s *AnalyticsService) WeeklyOverview(
	ctx context.Context, userID uint, weekStart time.Time, mode string,
) (*WeeklyOverviewResponse, error) {

	if mode != "chart" && mode != "detailed" {
		return nil, errors.New("mode must be 'chart' or 'detailed'")
	}

	from := dayStart(weekStart)
	to := from.AddDate(0, 0, 6)

	var rows []models.Activation
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND activated_at BETWEEN ? AND ?", userID, from, dayEnd(to)).
		Order("activated_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	byDay := map[string][]models.Activation{}
	for _, r := range rows {
		key := r.ActivatedAt.Format("2006-01-02")
		byDay[key] = append(byDay[key], r)
	}

	out := &WeeklyOverviewResponse{
		WeekStart: from.Format("2006-01-02"),
		Mode:      mode,
	}

	if mode == "chart" {
		var days []WeekDayChart
		for i := 0; i < 7; i++ {
			key := from.AddDate(0, 0, i).Format("2006-01-02")
			days = append(days, WeekDayChart{Date: key, Activations: int64(len(byDay[key]))})
		}
		out.Days = days
		return out, nil
	}

	var days []WeekDayDetailed
	for i := 0; i < 7; i++ {
		key := from.AddDate(0, 0, i).Format("2006-01-02")
		acts := byDay[key]
		day := WeekDayDetailed{Date: key, Activations: int64(len(acts))}
		anchors := map[uint]struct{}{}
		for _, a := range acts {
			anchors[a.AnchorID] = struct{}{}
		}
		day.DistinctAnchors = len(anchors)
		if len(acts) > 0 {
			day.FirstActivation = acts[0].ActivatedAt.Format(time.RFC3339)
			day.LastActivation = acts[len(acts)-1].ActivatedAt.Format(time.RFC3339)
		}
		days = append(days, day)
	}
	out.Days = days
	return out, nil
}

// ---------- internals ----------

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
