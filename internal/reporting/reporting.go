// Package reporting turns raw per-event aggregates into report values.
package reporting

import (
	"math"

	"github.com/shrimpsizemoose/campusevents/internal/models"
	"github.com/shrimpsizemoose/campusevents/internal/store"
)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AttendancePct is 0 for events nobody registered for.
func AttendancePct(present, registrations int64) float64 {
	if registrations <= 0 {
		return 0
	}
	return Round2(float64(present) * 100 / float64(registrations))
}

// AverageRating returns nil when there are no ratings.
func AverageRating(sum, count int64) *float64 {
	if count <= 0 {
		return nil
	}
	avg := Round2(float64(sum) / float64(count))
	return &avg
}

func Attendance(stats []store.AttendanceStat) []models.EventAttendance {
	out := make([]models.EventAttendance, 0, len(stats))
	for _, s := range stats {
		out = append(out, models.EventAttendance{
			Event:         s.Event,
			AttendancePct: AttendancePct(s.Present, s.Registrations),
		})
	}
	return out
}

func Feedback(stats []store.FeedbackStat) []models.EventFeedback {
	out := make([]models.EventFeedback, 0, len(stats))
	for _, s := range stats {
		out = append(out, models.EventFeedback{
			Event:     s.Event,
			AvgRating: AverageRating(s.RatingSum, s.Ratings),
		})
	}
	return out
}
