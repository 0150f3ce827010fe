package models

import "time"

type Stats struct {
	TotalParticipants   int64     `json:"total_participants"`
	TotalPairings       int64     `json:"total_pairings"`
	TotalMessages       int64     `json:"total_messages"`
	ActiveParticipants  int       `json:"active_participants"`
	WaitingParticipants int       `json:"waiting_participants"`
	ActivePairings      int       `json:"active_pairings"`
	Timestamp           time.Time `json:"timestamp"`
}
