package models

import "time"

type MatchConfirmation struct {
	ID          int        `json:"id"`
	MatchID     int        `json:"match_id"`
	UserID      int        `json:"user_id"`
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
