package model

import "time"

type DailyFact struct {
	Date      string    `json:"date"`
	Fact      string    `json:"fact"`
	CreatedAt time.Time `json:"created_at"`
}
