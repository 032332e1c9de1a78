package httpapi

import (
	"math"
	"net/http"
	"sort"
	"time"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/entity"
	"github.com/driftlabs/waitlist-api/internal/middleware"
	"github.com/driftlabs/waitlist-api/internal/ratelimit"
)

type sourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type dailyStat struct {
	Date           string  `json:"date"`
	Signups        int     `json:"signups"`
	Verified       int     `json:"verified"`
	ConversionRate float64 `json:"conversion_rate"`
}

type statsReport struct {
	TotalSignups    int           `json:"total_signups"`
	VerifiedSignups int           `json:"verified_signups"`
	Recent24h       int           `json:"recent_24h_signups"`
	ConversionRate  float64       `json:"conversion_rate"`
	TopSources      []sourceCount `json:"top_sources"`
	DailyStats      []dailyStat   `json:"daily_stats"`
}

// handleStats serves aggregate reporting. Unlike the public count this
// endpoint does not degrade: a store failure is a 500.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res := s.limiter.Check(ctx, middleware.GetClientIP(ctx), ratelimit.PolicyGeneral)
	setRateHeaders(w, res)
	if !res.Allowed {
		writeError(w, http.StatusTooManyRequests, msgTooMany)
		return
	}

	rows, err := s.rep.Waitlist().StatsBase(ctx)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't load stats rows", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writeJSON(w, http.StatusOK, buildStats(rows, time.Now().UTC()))
}

// handleStatsProbe is a liveness probe: headers only, status reflects
// store reachability.
func (s *Server) handleStatsProbe(w http.ResponseWriter, r *http.Request) {
	if err := s.rep.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// buildStats aggregates the raw projection rows in memory: totals,
// a 24h window, conversion rate, top five sources and a seven day
// daily series ending at now's date (ascending, zero-filled).
func buildStats(rows []entity.StatsRow, now time.Time) statsReport {
	report := statsReport{
		TopSources: []sourceCount{},
		DailyStats: []dailyStat{},
	}

	bySource := make(map[string]int)
	cutoff24h := now.Add(-24 * time.Hour)

	type dayAgg struct {
		signups  int
		verified int
	}
	byDay := make(map[string]*dayAgg)
	days := make([]string, 0, 7)
	for i := 6; i >= 0; i-- {
		d := now.AddDate(0, 0, -i).Format("2006-01-02")
		days = append(days, d)
		byDay[d] = &dayAgg{}
	}

	for _, row := range rows {
		report.TotalSignups++
		if row.Verified {
			report.VerifiedSignups++
		}
		if row.CreatedAt.After(cutoff24h) {
			report.Recent24h++
		}

		source := "direct"
		if row.Source.Valid && row.Source.String != "" {
			source = row.Source.String
		}
		bySource[source]++

		if agg, ok := byDay[row.CreatedAt.UTC().Format("2006-01-02")]; ok {
			agg.signups++
			if row.Verified {
				agg.verified++
			}
		}
	}

	if report.TotalSignups > 0 {
		rate := float64(report.VerifiedSignups) / float64(report.TotalSignups) * 100
		report.ConversionRate = math.Round(rate*100) / 100
	}

	for source, count := range bySource {
		report.TopSources = append(report.TopSources, sourceCount{Source: source, Count: count})
	}
	sort.Slice(report.TopSources, func(i, j int) bool {
		if report.TopSources[i].Count != report.TopSources[j].Count {
			return report.TopSources[i].Count > report.TopSources[j].Count
		}
		return report.TopSources[i].Source < report.TopSources[j].Source
	})
	if len(report.TopSources) > 5 {
		report.TopSources = report.TopSources[:5]
	}

	for _, d := range days {
		agg := byDay[d]
		ds := dailyStat{
			Date:     d,
			Signups:  agg.signups,
			Verified: agg.verified,
		}
		if agg.signups > 0 {
			ds.ConversionRate = math.Round(float64(agg.verified)/float64(agg.signups)*100*100) / 100
		}
		report.DailyStats = append(report.DailyStats, ds)
	}

	return report
}
