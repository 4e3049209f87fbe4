package model

import "time"

type TickOutcome string

func (o TickOutcome) String() string {
	return string(o)
}

const (
	OutcomeNotified        TickOutcome = "notified"
	OutcomeNotCheapest     TickOutcome = "not_cheapest"
	OutcomeAlreadyNotified TickOutcome = "already_notified"
	OutcomeFetchFailed     TickOutcome = "fetch_failed"
	OutcomeNoData          TickOutcome = "no_data"
	OutcomeNoValidPrice    TickOutcome = "no_valid_price"
	OutcomeNotifyFailed    TickOutcome = "notify_failed"
	OutcomeInternalError   TickOutcome = "internal_error"
)

// TickResult describes how a single price check ended.
type TickResult struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Outcome    TickOutcome  `json:"outcome"`
	Home       Home         `json:"home"`
	Cheapest   *PriceRecord `json:"cheapest,omitempty"`
	Skipped    int          `json:"skipped_records"`
	Error      string       `json:"error,omitempty"`
}
