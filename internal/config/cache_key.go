package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// DashboardPrefix is the common prefix of every cached dashboard payload.
func (r *CacheKeyStruct) DashboardPrefix() string {
	return "dashboard:"
}

// DashboardKey returns the cache key for a dashboard payload of one scope on one day.
// scope is "all" for administrators or the teacher's user id.
func (r *CacheKeyStruct) DashboardKey(scope, date string) string {
	return fmt.Sprintf("dashboard:%s:%s", scope, date)
}

// SelectionKey returns the cache key holding a user's calendar range selection
func (r *CacheKeyStruct) SelectionKey(userID string) string {
	return fmt.Sprintf("selection:%s", userID)
}

// DashboardEventsChannel returns the Redis PubSub channel for summary update events
func (r *CacheKeyStruct) DashboardEventsChannel() string {
	return "dashboard:events"
}

var CacheKey = NewCacheKeyStruct()
