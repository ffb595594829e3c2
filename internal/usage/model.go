package usage

import (
	"errors"
	"time"
)

// ErrLimitReached is returned when an LLM-backed operation would exceed the
// caller's weekly quota.
var ErrLimitReached = errors.New("usage limit reached")

// Usage is one caller's quota window: how many advisor reports, chat turns
// and interview answers remain before ResetsAt.
type Usage struct {
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

func (u Usage) Remaining() int {
	return max(0, u.Limit-u.Used)
}

func (u Usage) allows(n int) bool {
	return n <= 0 || n <= u.Remaining()
}
