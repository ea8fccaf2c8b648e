package usecase

import (
	"sort"
	"time"

	"channel-insight/domain/dto"
	"channel-insight/domain/model"
)

// AggregationEngine reduces classified items into statistics and series
type AggregationEngine struct{}

func NewAggregationEngine() *AggregationEngine {
	return &AggregationEngine{}
}

// Aggregate counts comment sentiment and sums video engagement. TotalComments
// is the number of classified comments.
func (a *AggregationEngine) Aggregate(videos []model.Video, comments []model.Comment) model.AggregateStats {
	var stats model.AggregateStats
	for _, v := range videos {
		stats.TotalViews += v.ViewCount
		stats.TotalLikes += v.LikeCount
	}
	for _, c := range comments {
		switch c.Sentiment {
		case model.SentimentPositive:
			stats.Positive++
		case model.SentimentNegative:
			stats.Negative++
		default:
			stats.Neutral++
		}
	}
	stats.TotalComments = len(comments)
	return stats
}

// TimeSeries orders cycles chronologically by completion time
func (a *AggregationEngine) TimeSeries(cycles []model.SyncResult) []dto.TrendPoint {
	sorted := make([]model.SyncResult, len(cycles))
	copy(sorted, cycles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.Before(sorted[j].CompletedAt)
	})

	points := make([]dto.TrendPoint, 0, len(sorted))
	for i, c := range sorted {
		p := dto.TrendPoint{
			Date:        c.CompletedAt,
			Views:       c.Stats.TotalViews,
			Likes:       c.Stats.TotalLikes,
			Comments:    c.Stats.TotalComments,
			Positive:    c.Stats.Positive,
			Neutral:     c.Stats.Neutral,
			Negative:    c.Stats.Negative,
			Subscribers: c.Channel.SubscriberCount,
		}
		if i > 0 {
			p.SubscriberDelta = p.Subscribers - points[i-1].Subscribers
		}
		points = append(points, p)
	}
	return points
}

// TopBy returns at most n items ordered by key descending. Ties keep their
// input order.
func TopBy[T any](items []T, key func(T) int64, n int) []T {
	if n <= 0 || len(items) == 0 {
		return []T{}
	}
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func (a *AggregationEngine) TopVideosByViews(videos []model.Video, n int) []model.Video {
	return TopBy(videos, func(v model.Video) int64 { return v.ViewCount }, n)
}

func (a *AggregationEngine) TopVideosByLikes(videos []model.Video, n int) []model.Video {
	return TopBy(videos, func(v model.Video) int64 { return v.LikeCount }, n)
}

func (a *AggregationEngine) TopCommentsByLikes(comments []model.Comment, n int) []model.Comment {
	return TopBy(comments, func(c model.Comment) int64 { return c.LikeCount }, n)
}

// VideoSentiment counts comment sentiment per video
func (a *AggregationEngine) VideoSentiment(comments []model.Comment) map[string]dto.SentimentBreakdown {
	out := make(map[string]dto.SentimentBreakdown)
	for _, c := range comments {
		b := out[c.VideoID]
		switch c.Sentiment {
		case model.SentimentPositive:
			b.Positive++
		case model.SentimentNegative:
			b.Negative++
		default:
			b.Neutral++
		}
		out[c.VideoID] = b
	}
	return out
}

// MonthlyUploads counts videos per publish month (YYYY-MM), ascending
func (a *AggregationEngine) MonthlyUploads(videos []model.Video) []dto.MonthlyUpload {
	counts := make(map[string]int)
	for _, v := range videos {
		if v.PublishedAt.IsZero() {
			continue
		}
		counts[v.PublishedAt.UTC().Format("2006-01")]++
	}
	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]dto.MonthlyUpload, 0, len(months))
	for _, m := range months {
		out = append(out, dto.MonthlyUpload{Month: m, Count: counts[m]})
	}
	return out
}

// Dashboard summarises one cycle with top-n rankings
func (a *AggregationEngine) Dashboard(result *model.SyncResult, n int) dto.DashboardSummary {
	summary := dto.DashboardSummary{
		ChannelID:     result.Channel.ID,
		ChannelTitle:  result.Channel.Title,
		Subscribers:   result.Channel.SubscriberCount,
		TotalVideos:   len(result.Videos),
		TotalViews:    result.Stats.TotalViews,
		TotalLikes:    result.Stats.TotalLikes,
		TotalComments: result.Stats.TotalComments,
		Sentiment: dto.SentimentBreakdown{
			Positive: result.Stats.Positive,
			Neutral:  result.Stats.Neutral,
			Negative: result.Stats.Negative,
		},
		Monthly:        a.MonthlyUploads(result.Videos),
		VideoSentiment: a.VideoSentiment(result.Comments),
	}
	if len(result.Videos) > 0 {
		summary.AvgLikes = float64(result.Stats.TotalLikes) / float64(len(result.Videos))
	}
	for _, v := range a.TopVideosByViews(result.Videos, n) {
		summary.TopVideos = append(summary.TopVideos, dto.TopVideo{
			ID:          v.ID,
			Title:       v.Title,
			Views:       v.ViewCount,
			Likes:       v.LikeCount,
			Thumbnail:   v.ThumbnailURL,
			PublishedAt: v.PublishedAt.Format(time.RFC3339),
		})
	}
	for _, c := range a.TopCommentsByLikes(result.Comments, n) {
		summary.TopComments = append(summary.TopComments, dto.TopComment{
			ID:      c.ID,
			VideoID: c.VideoID,
			Author:  c.Author,
			Text:    c.Text,
			Likes:   c.LikeCount,
		})
	}
	return summary
}
