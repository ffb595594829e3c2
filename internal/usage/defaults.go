package usage

import "time"

const (
	defaultPlan  = "Starter"
	defaultLimit = 10
	period       = 7 * 24 * time.Hour
)

func defaultUsage(limit int, now time.Time) Usage {
	if limit <= 0 {
		limit = defaultLimit
	}
	return Usage{
		Plan:     defaultPlan,
		Limit:    limit,
		Used:     0,
		ResetsAt: now.Add(period),
	}
}

func expired(u Usage, now time.Time) bool {
	return !now.Before(u.ResetsAt)
}
