package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/pocketcal/internal/model"
)

type TodoStore struct {
	db *sql.DB
}

func NewTodoStore(db *sql.DB) *TodoStore {
	return &TodoStore{db: db}
}

// --- List methods ---

func scanTodoList(scanner interface{ Scan(...any) error }) (*model.TodoList, error) {
	var l model.TodoList
	err := scanner.Scan(&l.ID, &l.UserID, &l.Name, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const todoListCols = `id, user_id, name, created_at`

// CreateList inserts a list together with its initial items.
func (s *TodoStore) CreateList(userID int64, name string, items []string) (*model.TodoList, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO todo_lists (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("insert todo list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for i, text := range items {
		if _, err := tx.Exec(
			`INSERT INTO todo_items (list_id, text, position) VALUES (?, ?, ?)`,
			id, text, i,
		); err != nil {
			return nil, fmt.Errorf("insert todo item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetList(userID, id)
}

// GetList returns a list with its items, or nil if it does not belong to userID.
func (s *TodoStore) GetList(userID, id int64) (*model.TodoList, error) {
	row := s.db.QueryRow(`SELECT `+todoListCols+` FROM todo_lists WHERE id = ? AND user_id = ?`, id, userID)
	return s.loadList(row)
}

// GetListByName matches the list name exactly. When several lists share a
// name the oldest wins.
func (s *TodoStore) GetListByName(userID int64, name string) (*model.TodoList, error) {
	row := s.db.QueryRow(
		`SELECT `+todoListCols+` FROM todo_lists WHERE user_id = ? AND name = ? ORDER BY id ASC LIMIT 1`,
		userID, name,
	)
	return s.loadList(row)
}

func (s *TodoStore) loadList(row *sql.Row) (*model.TodoList, error) {
	l, err := scanTodoList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get todo list: %w", err)
	}
	items, err := s.listItems(l.ID)
	if err != nil {
		return nil, err
	}
	l.Items = items
	return l, nil
}

func (s *TodoStore) ListLists(userID int64) ([]model.TodoList, error) {
	rows, err := s.db.Query(`SELECT `+todoListCols+` FROM todo_lists WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list todo lists: %w", err)
	}
	defer rows.Close()

	var lists []model.TodoList
	for rows.Next() {
		l, err := scanTodoList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo list: %w", err)
		}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range lists {
		items, err := s.listItems(lists[i].ID)
		if err != nil {
			return nil, err
		}
		lists[i].Items = items
	}
	return lists, nil
}

func (s *TodoStore) RenameList(userID, id int64, name string) (bool, error) {
	result, err := s.db.Exec(`UPDATE todo_lists SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return false, fmt.Errorf("rename todo list: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteList removes the list; its items are removed by cascade.
func (s *TodoStore) DeleteList(userID, id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM todo_lists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete todo list: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// --- Item methods ---

func scanTodoItem(scanner interface{ Scan(...any) error }) (*model.TodoItem, error) {
	var item model.TodoItem
	var completed int
	err := scanner.Scan(&item.ID, &item.ListID, &item.Text, &completed, &item.Position, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Completed = completed != 0
	return &item, nil
}

const todoItemCols = `id, list_id, text, completed, position, created_at`

func (s *TodoStore) listItems(listID int64) ([]model.TodoItem, error) {
	rows, err := s.db.Query(
		`SELECT `+todoItemCols+` FROM todo_items WHERE list_id = ? ORDER BY position ASC, id ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list todo items: %w", err)
	}
	defer rows.Close()

	items := []model.TodoItem{}
	for rows.Next() {
		item, err := scanTodoItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// AppendItems adds texts to the end of the list. It returns nil when the list
// does not belong to userID.
func (s *TodoStore) AppendItems(userID, listID int64, texts []string) ([]model.TodoItem, error) {
	owned, err := s.owns(userID, listID)
	if err != nil || !owned {
		return nil, err
	}

	var next int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(position), -1) + 1 FROM todo_items WHERE list_id = ?`,
		listID,
	).Scan(&next); err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	added := make([]model.TodoItem, 0, len(texts))
	for i, text := range texts {
		result, err := s.db.Exec(
			`INSERT INTO todo_items (list_id, text, position) VALUES (?, ?, ?)`,
			listID, text, next+i,
		)
		if err != nil {
			return nil, fmt.Errorf("insert todo item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		item, err := scanTodoItem(s.db.QueryRow(`SELECT `+todoItemCols+` FROM todo_items WHERE id = ?`, id))
		if err != nil {
			return nil, fmt.Errorf("get todo item: %w", err)
		}
		added = append(added, *item)
	}
	return added, nil
}

// itemAt resolves a zero-based index within the list's ordering to an item.
func (s *TodoStore) itemAt(userID, listID int64, index int) (*model.TodoItem, error) {
	if index < 0 {
		return nil, nil
	}
	row := s.db.QueryRow(
		`SELECT ti.id, ti.list_id, ti.text, ti.completed, ti.position, ti.created_at
		 FROM todo_items ti JOIN todo_lists tl ON tl.id = ti.list_id
		 WHERE ti.list_id = ? AND tl.user_id = ?
		 ORDER BY ti.position ASC, ti.id ASC
		 LIMIT 1 OFFSET ?`,
		listID, userID, index,
	)
	item, err := scanTodoItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get todo item: %w", err)
	}
	return item, nil
}

// ToggleItem flips the completed flag of the item at index. It returns nil
// when there is no such item.
func (s *TodoStore) ToggleItem(userID, listID int64, index int) (*model.TodoItem, error) {
	item, err := s.itemAt(userID, listID, index)
	if err != nil || item == nil {
		return nil, err
	}
	if _, err := s.db.Exec(`UPDATE todo_items SET completed = 1 - completed WHERE id = ?`, item.ID); err != nil {
		return nil, fmt.Errorf("toggle todo item: %w", err)
	}
	item.Completed = !item.Completed
	return item, nil
}

// DeleteItem removes the item at index and reports whether one was removed.
func (s *TodoStore) DeleteItem(userID, listID int64, index int) (bool, error) {
	item, err := s.itemAt(userID, listID, index)
	if err != nil || item == nil {
		return false, err
	}
	if _, err := s.db.Exec(`DELETE FROM todo_items WHERE id = ?`, item.ID); err != nil {
		return false, fmt.Errorf("delete todo item: %w", err)
	}
	return true, nil
}

func (s *TodoStore) owns(userID, listID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM todo_lists WHERE id = ? AND user_id = ?`, listID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check todo list owner: %w", err)
	}
	return n > 0, nil
}
