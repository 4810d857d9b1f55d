package assistant

import (
	"fmt"

	"github.com/dukerupert/pocketcal/internal/model"
)

// InteractionStore persists the interaction log.
type InteractionStore interface {
	Create(userID int64, userMessage, outputText string) (*model.Interaction, error)
	ListRecent(userID int64, limit int) ([]model.Interaction, error)
	ListPending(userID int64) ([]model.Interaction, error)
	LinkEntry(userID, id, entryID int64) error
	MarkProcessed(userID, id int64) (bool, error)
}

// EntryStore persists calendar entries.
type EntryStore interface {
	Create(userID int64, title, description, date, timeOfDay string, recurrence model.Recurrence, typ model.EntryType) (*model.CalendarEntry, error)
}

// TodoStore persists to-do lists and their items.
type TodoStore interface {
	CreateList(userID int64, name string, items []string) (*model.TodoList, error)
	GetList(userID, id int64) (*model.TodoList, error)
	GetListByName(userID int64, name string) (*model.TodoList, error)
	AppendItems(userID, listID int64, texts []string) ([]model.TodoItem, error)
	RenameList(userID, id int64, name string) (bool, error)
	DeleteList(userID, id int64) (bool, error)
	ToggleItem(userID, listID int64, index int) (*model.TodoItem, error)
}

// Coordinator writes what the assistant decided. Every operation is scoped
// to one user and is a single-record write; lists are addressed by exact name.
type Coordinator struct {
	interactions InteractionStore
	entries      EntryStore
	todos        TodoStore
}

func NewCoordinator(interactions InteractionStore, entries EntryStore, todos TodoStore) *Coordinator {
	return &Coordinator{interactions: interactions, entries: entries, todos: todos}
}

func (c *Coordinator) SaveInteraction(userID int64, userMessage, outputText string) (*model.Interaction, error) {
	return c.interactions.Create(userID, userMessage, outputText)
}

func (c *Coordinator) SaveEvent(userID int64, d EventDraft) (*model.CalendarEntry, error) {
	return c.entries.Create(userID, d.Title, d.Description, d.Date, d.Time, d.Recurrence, d.Type)
}

// UpdateInteraction links the entry and marks the interaction processed.
func (c *Coordinator) UpdateInteraction(userID, interactionID, entryID int64) error {
	return c.interactions.LinkEntry(userID, interactionID, entryID)
}

// MarkProcessed is idempotent. It reports whether the interaction exists.
func (c *Coordinator) MarkProcessed(userID, interactionID int64) (bool, error) {
	return c.interactions.MarkProcessed(userID, interactionID)
}

func (c *Coordinator) CreateTodoList(userID int64, name string, items []string) (*model.TodoList, error) {
	return c.todos.CreateList(userID, name, items)
}

// AppendTodoItems adds items to the named list. It returns nil when the user
// has no list with that name.
func (c *Coordinator) AppendTodoItems(userID int64, name string, items []string) (*model.TodoList, error) {
	l, err := c.todos.GetListByName(userID, name)
	if err != nil || l == nil {
		return nil, err
	}
	if _, err := c.todos.AppendItems(userID, l.ID, items); err != nil {
		return nil, err
	}
	return c.todos.GetList(userID, l.ID)
}

// RenameTodoList returns the renamed list, or nil when there is no such list.
func (c *Coordinator) RenameTodoList(userID int64, name, newName string) (*model.TodoList, error) {
	l, err := c.todos.GetListByName(userID, name)
	if err != nil || l == nil {
		return nil, err
	}
	ok, err := c.todos.RenameList(userID, l.ID, newName)
	if err != nil || !ok {
		return nil, err
	}
	l.Name = newName
	return l, nil
}

// DeleteTodoList returns the deleted list, or nil when there is no such list.
func (c *Coordinator) DeleteTodoList(userID int64, name string) (*model.TodoList, error) {
	l, err := c.todos.GetListByName(userID, name)
	if err != nil || l == nil {
		return nil, err
	}
	ok, err := c.todos.DeleteList(userID, l.ID)
	if err != nil || !ok {
		return nil, err
	}
	return l, nil
}

// ToggleTodoItem flips the item at index in the named list. It returns nil
// when the list or the item does not exist.
func (c *Coordinator) ToggleTodoItem(userID int64, name string, index int) (*model.TodoList, *model.TodoItem, error) {
	l, err := c.todos.GetListByName(userID, name)
	if err != nil || l == nil {
		return nil, nil, err
	}
	item, err := c.todos.ToggleItem(userID, l.ID, index)
	if err != nil {
		return nil, nil, fmt.Errorf("toggle item %d of %q: %w", index, name, err)
	}
	return l, item, nil
}
