package cache

import (
	"fmt"
	"time"
)

// Key grammar is stable across implementations so external cache-inspection
// tooling can rely on it:
//
//	user:<id>
//	schedules:<YYYY-MM-DD>
//	user:<id>:schedules
//	user:<id>:notifications

func UserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func ScheduleBucketKey(bucket string) string {
	return fmt.Sprintf("schedules:%s", bucket)
}

func UserSchedulesKey(userID string) string {
	return fmt.Sprintf("user:%s:schedules", userID)
}

func UserNotificationsKey(userID string) string {
	return fmt.Sprintf("user:%s:notifications", userID)
}

// DateBucket groups schedules by calendar day (UTC) so invalidation can
// scope to a day without enumerating individual schedule ids.
func DateBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
