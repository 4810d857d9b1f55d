package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pocketcal/internal/model"
)

// EntryStore persists calendar entries. Every method is scoped by the owning
// user so one user can never read or change another's entries.
type EntryStore struct {
	db *sql.DB
}

func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db}
}

func scanEntry(scanner interface{ Scan(...any) error }) (*model.CalendarEntry, error) {
	var e model.CalendarEntry
	var recurrence, typ string
	err := scanner.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &e.Date, &e.Time, &recurrence, &typ, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Recurrence, _ = model.ParseRecurrence(recurrence)
	e.Type, _ = model.ParseEntryType(typ)
	return &e, nil
}

const entryCols = `id, user_id, title, description, date, time, recurrence, type, created_at, updated_at`

func (s *EntryStore) Create(userID int64, title, description, date, timeOfDay string, recurrence model.Recurrence, typ model.EntryType) (*model.CalendarEntry, error) {
	result, err := s.db.Exec(
		`INSERT INTO calendar_entries (user_id, title, description, date, time, recurrence, type)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, title, description, date, timeOfDay, string(recurrence), string(typ),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(userID, id)
}

// GetByID returns the entry, or nil if it does not exist or belongs to another user.
func (s *EntryStore) GetByID(userID, id int64) (*model.CalendarEntry, error) {
	row := s.db.QueryRow(`SELECT `+entryCols+` FROM calendar_entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar entry: %w", err)
	}
	return e, nil
}

// ListByMonth returns the entries dated within the given month, ordered by date and time.
func (s *EntryStore) ListByMonth(userID int64, year, month int) ([]model.CalendarEntry, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	return s.list(
		`SELECT `+entryCols+` FROM calendar_entries
		 WHERE user_id = ? AND date LIKE ? || '%'
		 ORDER BY date ASC, time ASC, id ASC`,
		userID, prefix,
	)
}

// ListRecurring returns entries whose recurrence is anything other than "none".
func (s *EntryStore) ListRecurring(userID int64) ([]model.CalendarEntry, error) {
	return s.list(
		`SELECT `+entryCols+` FROM calendar_entries
		 WHERE user_id = ? AND recurrence != 'none'
		 ORDER BY date ASC, time ASC, id ASC`,
		userID,
	)
}

func (s *EntryStore) ListAll(userID int64) ([]model.CalendarEntry, error) {
	return s.list(
		`SELECT `+entryCols+` FROM calendar_entries WHERE user_id = ? ORDER BY date ASC, time ASC, id ASC`,
		userID,
	)
}

func (s *EntryStore) list(query string, args ...any) ([]model.CalendarEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar entries: %w", err)
	}
	defer rows.Close()

	var entries []model.CalendarEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Update rewrites an entry. It returns nil when no entry with that id belongs to userID.
func (s *EntryStore) Update(userID, id int64, title, description, date, timeOfDay string, recurrence model.Recurrence, typ model.EntryType) (*model.CalendarEntry, error) {
	result, err := s.db.Exec(
		`UPDATE calendar_entries
		 SET title = ?, description = ?, date = ?, time = ?, recurrence = ?, type = ?
		 WHERE id = ? AND user_id = ?`,
		title, description, date, timeOfDay, string(recurrence), string(typ), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	return s.GetByID(userID, id)
}

// Delete removes an entry and reports whether one was removed.
func (s *EntryStore) Delete(userID, id int64) (bool, error) {
	result, err := s.db.Exec("DELETE FROM calendar_entries WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("delete calendar entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
