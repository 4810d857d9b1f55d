package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pocketcal/internal/model"
)

// InteractionStore is the assistant's audit log and conversational memory.
type InteractionStore struct {
	db *sql.DB
}

func NewInteractionStore(db *sql.DB) *InteractionStore {
	return &InteractionStore{db: db}
}

func scanInteraction(scanner interface{ Scan(...any) error }) (*model.Interaction, error) {
	var in model.Interaction
	var entryID sql.NullInt64
	var processed int
	err := scanner.Scan(&in.ID, &in.UserID, &in.UserMessage, &in.OutputText, &entryID, &processed, &in.CreatedAt)
	if err != nil {
		return nil, err
	}
	in.Processed = processed != 0
	if entryID.Valid {
		in.EntryID = &entryID.Int64
	}
	return &in, nil
}

const interactionCols = `id, user_id, user_message, output_text, entry_id, processed, created_at`

// Create records an unprocessed interaction.
func (s *InteractionStore) Create(userID int64, userMessage, outputText string) (*model.Interaction, error) {
	result, err := s.db.Exec(
		`INSERT INTO interactions (user_id, user_message, output_text) VALUES (?, ?, ?)`,
		userID, userMessage, outputText,
	)
	if err != nil {
		return nil, fmt.Errorf("insert interaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(userID, id)
}

func (s *InteractionStore) GetByID(userID, id int64) (*model.Interaction, error) {
	row := s.db.QueryRow(`SELECT `+interactionCols+` FROM interactions WHERE id = ? AND user_id = ?`, id, userID)
	in, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interaction: %w", err)
	}
	return in, nil
}

// ListRecent returns up to limit interactions for the user, newest first.
func (s *InteractionStore) ListRecent(userID int64, limit int) ([]model.Interaction, error) {
	return s.list(
		`SELECT `+interactionCols+` FROM interactions
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
}

// ListPending returns the user's unprocessed interactions, oldest first.
func (s *InteractionStore) ListPending(userID int64) ([]model.Interaction, error) {
	return s.list(
		`SELECT `+interactionCols+` FROM interactions
		 WHERE user_id = ? AND processed = 0
		 ORDER BY created_at ASC, id ASC`,
		userID,
	)
}

func (s *InteractionStore) list(query string, args ...any) ([]model.Interaction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []model.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

// LinkEntry attaches the created entry to the interaction and marks it processed.
func (s *InteractionStore) LinkEntry(userID, id, entryID int64) error {
	_, err := s.db.Exec(
		`UPDATE interactions SET entry_id = ?, processed = 1 WHERE id = ? AND user_id = ?`,
		entryID, id, userID,
	)
	if err != nil {
		return fmt.Errorf("link interaction entry: %w", err)
	}
	return nil
}

// MarkProcessed flips the processed flag. Repeating the call is harmless.
// It reports whether the interaction exists for the user.
func (s *InteractionStore) MarkProcessed(userID, id int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE interactions SET processed = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("mark interaction processed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
