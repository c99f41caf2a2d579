package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shrimpsizemoose/campusevents/internal/app"
	"github.com/shrimpsizemoose/campusevents/internal/models"
)

const emptyReport = "Nothing to report yet"

func filterByCollege(events []models.EventSummary, collegeID int64) []models.EventSummary {
	filtered := make([]models.EventSummary, 0, len(events))
	for _, e := range events {
		if e.CollegeID == collegeID {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func formatEvents(events []models.EventSummary) string {
	if len(events) == 0 {
		return "No events"
	}

	var sb strings.Builder
	sb.WriteString("Events:\n")
	for _, e := range events {
		fmt.Fprintf(&sb, "#%d %s", e.ID, e.Title)
		if e.EventType != "" {
			fmt.Fprintf(&sb, " [%s]", e.EventType)
		}
		if e.Date != "" {
			fmt.Fprintf(&sb, " on %s", e.Date)
		}
		fmt.Fprintf(&sb, ", registered: %d\n", e.Registered)
	}
	return sb.String()
}

func formatRegistrations(rows []models.EventRegistrations) string {
	if len(rows) == 0 {
		return emptyReport
	}

	var sb strings.Builder
	sb.WriteString("Registrations per event:\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s: %d\n", r.Event, r.Registrations)
	}
	return sb.String()
}

func formatAttendance(rows []models.EventAttendance) string {
	if len(rows) == 0 {
		return emptyReport
	}

	var sb strings.Builder
	sb.WriteString("Attendance per event:\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s: %.2f%%\n", r.Event, r.AttendancePct)
	}
	return sb.String()
}

func formatFeedback(rows []models.EventFeedback) string {
	if len(rows) == 0 {
		return emptyReport
	}

	var sb strings.Builder
	sb.WriteString("Average rating per event:\n")
	for _, r := range rows {
		if r.AvgRating == nil {
			fmt.Fprintf(&sb, "%s: no feedback\n", r.Event)
			continue
		}
		fmt.Fprintf(&sb, "%s: %.2f\n", r.Event, *r.AvgRating)
	}
	return sb.String()
}

func formatTopActive(rows []models.StudentActivity) string {
	if len(rows) == 0 {
		return emptyReport
	}

	var sb strings.Builder
	sb.WriteString("Most active students:\n")
	for i, r := range rows {
		fmt.Fprintf(&sb, "%d. %s: %d attended\n", i+1, r.Student, r.Attended)
	}
	return sb.String()
}

func formatParticipation(result app.Result) string {
	if name, ok := result["student"]; ok {
		return fmt.Sprintf("%v attended %v events", name, result["attended_events"])
	}
	return fmt.Sprintf("Student %v attended %v events", result["student_id"], result["attended_events"])
}

func formatSubscriptions(subs map[int64]*models.ChatSubscription, timeFormat string) string {
	if len(subs) == 0 {
		return "No subscriptions"
	}

	chatIDs := make([]int64, 0, len(subs))
	for id := range subs {
		chatIDs = append(chatIDs, id)
	}
	sort.Slice(chatIDs, func(i, j int) bool { return chatIDs[i] < chatIDs[j] })

	var sb strings.Builder
	sb.WriteString("Subscriptions:\n")
	for _, id := range chatIDs {
		sub := subs[id]
		fmt.Fprintf(&sb, "chat %d -> college %d", id, sub.CollegeID)
		if sub.Title != "" {
			fmt.Fprintf(&sb, " (%s)", sub.Title)
		}
		fmt.Fprintf(&sb, ", since %s by %d\n", sub.SubscriptionTime.Format(timeFormat), sub.SubscribedBy)
	}
	return sb.String()
}
