package model

import (
	"fmt"
	"time"
)

// Period интервал отображения графика.
type Period string

const (
	PeriodRealtime    Period = "realtime"
	PeriodOneMonth    Period = "1month"
	PeriodThreeMonths Period = "3month"
	PeriodOneYear     Period = "1year"
)

const day = 24 * time.Hour

// Window returns the lookback for the period; zero means the whole buffer.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodOneMonth:
		return 30 * day
	case PeriodThreeMonths:
		return 90 * day
	case PeriodOneYear:
		return 365 * day
	default:
		return 0
	}
}

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodRealtime, nil
	case PeriodRealtime, PeriodOneMonth, PeriodThreeMonths, PeriodOneYear:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}
