package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pocketcal/internal/model"
)

type DailyFactStore struct {
	db *sql.DB
}

func NewDailyFactStore(db *sql.DB) *DailyFactStore {
	return &DailyFactStore{db: db}
}

// Get returns the fact cached for date (YYYY-MM-DD), or nil.
func (s *DailyFactStore) Get(date string) (*model.DailyFact, error) {
	var f model.DailyFact
	err := s.db.QueryRow(`SELECT date, fact, created_at FROM daily_facts WHERE date = ?`, date).
		Scan(&f.Date, &f.Fact, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily fact: %w", err)
	}
	return &f, nil
}

// Upsert stores fact for date, replacing any existing one.
func (s *DailyFactStore) Upsert(date, fact string) (*model.DailyFact, error) {
	_, err := s.db.Exec(
		`INSERT INTO daily_facts (date, fact) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET fact = excluded.fact, created_at = CURRENT_TIMESTAMP`,
		date, fact,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert daily fact: %w", err)
	}
	return s.Get(date)
}
