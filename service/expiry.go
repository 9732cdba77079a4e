package service

import (
	"math"
	"time"

	"github.com/lethabomaepa11/rocketsales-sub001/model"
)

const day = 24 * time.Hour

// Clock supplies the current time; tests inject a fixed one.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type Expiry struct {
	DaysUntilExpiry int
	IsExpiringSoon  bool
}

// DaysUntil floors (end - now) to whole days; negative once end has passed.
func DaysUntil(end, now time.Time) int {
	return int(math.Floor(float64(end.Sub(now)) / float64(day)))
}

// ComputeExpiry derives the expiry fields from stored data. Only a stored
// Active contract can be expiring soon.
func ComputeExpiry(end, now time.Time, noticeDays int, status model.ContractStatus) Expiry {
	days := DaysUntil(end, now)
	return Expiry{
		DaysUntilExpiry: days,
		IsExpiringSoon:  status == model.StatusActive && days >= 0 && days <= noticeDays,
	}
}

// EffectiveStatus is the read-time status: Active past its end date reads as Expired.
func EffectiveStatus(c *model.Contract, now time.Time) model.ContractStatus {
	if c.Status == model.StatusActive && c.EndDate.Before(now) {
		return model.StatusExpired
	}
	return c.Status
}

func viewOf(c *model.Contract, now time.Time) model.ContractView {
	exp := ComputeExpiry(c.EndDate, now, c.RenewalNoticePeriodDays, c.Status)
	return model.ContractView{
		Contract:        *c.Clone(),
		EffectiveStatus: EffectiveStatus(c, now),
		DaysUntilExpiry: exp.DaysUntilExpiry,
		IsExpiringSoon:  exp.IsExpiringSoon,
	}
}
