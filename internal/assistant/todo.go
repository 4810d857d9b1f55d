package assistant

import (
	"encoding/json"
	"strconv"
	"strings"
)

// TodoAction is the closed set of to-do mutations the model may request.
type TodoAction string

const (
	TodoCreate         TodoAction = "create"
	TodoAddItem        TodoAction = "add_item"
	TodoRename         TodoAction = "rename"
	TodoDelete         TodoAction = "delete"
	TodoToggleComplete TodoAction = "toggle_complete"
	TodoUnknown        TodoAction = "unknown"
)

// ParseTodoAction maps s to a TodoAction, or TodoUnknown.
func ParseTodoAction(s string) TodoAction {
	switch a := TodoAction(strings.ToLower(strings.TrimSpace(s))); a {
	case TodoCreate, TodoAddItem, TodoRename, TodoDelete, TodoToggleComplete:
		return a
	}
	return TodoUnknown
}

// TodoCommand is a decoded to-do payload.
type TodoCommand struct {
	Action   TodoAction
	ListName string
	// Items holds the split item_text for create and add_item.
	Items []string
	// Text is item_text unsplit; rename uses it as the new name.
	Text  string
	Index *int
}

func parseTodoCommand(td fields) TodoCommand {
	return TodoCommand{
		Action:   ParseTodoAction(td.str("action")),
		ListName: strings.TrimSpace(td.str("list_name")),
		Items:    splitItems(td["item_text"]),
		Text:     strings.TrimSpace(td.str("item_text")),
		Index:    parseIndex(td["item_index"]),
	}
}

// splitItems accepts a comma-separated string or a list of strings and
// drops blank entries.
func splitItems(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var parts []string
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parts = strings.Split(s, ",")
	} else if err := json.Unmarshal(raw, &parts); err != nil {
		return nil
	}

	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// parseIndex accepts a JSON number or a numeric string.
func parseIndex(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return &n
		}
	}
	return nil
}
