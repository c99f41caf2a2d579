package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/campusevents/internal/models"
)

const (
	timeFormat        = "2006-01-02 15:04:05"
	chatKeyPrefix     = "chat:"
	chatCollegeKeyTpl = chatKeyPrefix + "%d" // chat:${chatID}
)

// ChatRegistry keeps which telegram chat follows which college.
type ChatRegistry struct {
	redis *redis.Client
}

func NewChatRegistry(redis *redis.Client) *ChatRegistry {
	return &ChatRegistry{redis: redis}
}

func NewChatRegistryFromURL(ctx context.Context, url string) (*ChatRegistry, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewChatRegistry(client), nil
}

func (cr *ChatRegistry) Subscribe(ctx context.Context, chatID int64, sub *models.ChatSubscription) error {
	key := fmt.Sprintf(chatCollegeKeyTpl, chatID)
	return cr.redis.HSet(ctx, key, map[string]interface{}{
		"college_id":            sub.CollegeID,
		"title":                 sub.Title,
		"subscription_dttm_utc": sub.SubscriptionTime.UTC().Format(timeFormat),
		"subscribed_by":         sub.SubscribedBy,
	}).Err()
}

func (cr *ChatRegistry) Unsubscribe(ctx context.Context, chatID int64) (bool, error) {
	key := fmt.Sprintf(chatCollegeKeyTpl, chatID)
	n, err := cr.redis.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove subscription for chat %d: %w", chatID, err)
	}
	return n > 0, nil
}

// FetchSubscription returns nil when the chat has no subscription.
func (cr *ChatRegistry) FetchSubscription(ctx context.Context, chatID int64) (*models.ChatSubscription, error) {
	key := fmt.Sprintf(chatCollegeKeyTpl, chatID)

	values, err := cr.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription for chat %d: %w", chatID, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	sub, err := parseSubscription(values)
	if err != nil {
		return nil, fmt.Errorf("bad subscription record for chat %d: %w", chatID, err)
	}
	return sub, nil
}

func (cr *ChatRegistry) FetchAllSubscriptions(ctx context.Context) (map[int64]*models.ChatSubscription, error) {
	iter := cr.redis.Scan(ctx, 0, chatKeyPrefix+"*", 0).Iterator()

	subs := make(map[int64]*models.ChatSubscription)
	for iter.Next(ctx) {
		key := iter.Val()
		chatID, err := strconv.ParseInt(strings.TrimPrefix(key, chatKeyPrefix), 10, 64)
		if err != nil {
			continue
		}

		values, err := cr.redis.HGetAll(ctx, key).Result()
		if err != nil || len(values) == 0 {
			continue
		}
		sub, err := parseSubscription(values)
		if err != nil {
			logger.Debug.Printf("Skipping subscription %s: %v", key, err)
			continue
		}
		subs[chatID] = sub
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch chat subscriptions: %w", err)
	}

	return subs, nil
}

func parseSubscription(values map[string]string) (*models.ChatSubscription, error) {
	collegeID, err := strconv.ParseInt(values["college_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("college_id: %w", err)
	}
	subscribedBy, err := strconv.ParseInt(values["subscribed_by"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("subscribed_by: %w", err)
	}
	subscribedAt, err := time.Parse(timeFormat, values["subscription_dttm_utc"])
	if err != nil {
		return nil, fmt.Errorf("subscription_dttm_utc: %w", err)
	}

	return &models.ChatSubscription{
		CollegeID:        collegeID,
		Title:            values["title"],
		SubscriptionTime: subscribedAt,
		SubscribedBy:     subscribedBy,
	}, nil
}

func (cr *ChatRegistry) Close() error {
	if cr.redis != nil {
		return cr.redis.Close()
	}
	return nil
}
