package agent

import (
	"orderwatch/lib/scrapers/portal"
)

type Config struct {
	Portal portal.Options `json:"portal"`
	Search Criteria       `json:"search"`
	Times  TimesConfig    `json:"times"`
	Smtp   SmtpConfig     `json:"smtp"`
	Email  EmailConfig    `json:"email"`
	Sleep  SleepConfig    `json:"sleep"`
}

// TimesConfig bounds when runs are allowed. Hours are local to the
// configured timezone, days off use 1 (Monday) through 7 (Sunday).
type TimesConfig struct {
	StartHour  int    `json:"start_hour"`
	FinishHour int    `json:"finish_hour"`
	DaysOff    []int  `json:"days_off"`
	Timezone   string `json:"timezone"`
}

type SleepConfig struct {
	OkSeconds    int `json:"ok_seconds"`
	ErrorSeconds int `json:"error_seconds"`
}
