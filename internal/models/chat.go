package models

import "time"

type ChatSubscription struct {
	CollegeID        int64     `json:"college_id"`
	Title            string    `json:"title"`
	SubscriptionTime time.Time `json:"subscription_time"`
	SubscribedBy     int64     `json:"subscribed_by"`
}
