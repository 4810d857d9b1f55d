package assistant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTodoAction(t *testing.T) {
	tests := map[string]TodoAction{
		"create":          TodoCreate,
		"ADD_ITEM":        TodoAddItem,
		" rename ":        TodoRename,
		"delete":          TodoDelete,
		"toggle_complete": TodoToggleComplete,
		"archive":         TodoUnknown,
		"":                TodoUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseTodoAction(in), "input %q", in)
	}
}

func TestSplitItems(t *testing.T) {
	assert.Equal(t, []string{"milk", "bread", "eggs"}, splitItems(json.RawMessage(`"milk, bread,, eggs ,"`)))
	assert.Equal(t, []string{"milk", "bread"}, splitItems(json.RawMessage(`["milk", " ", "bread"]`)))
	assert.Empty(t, splitItems(json.RawMessage(`null`)))
	assert.Empty(t, splitItems(nil))
	assert.Empty(t, splitItems(json.RawMessage(`42`)))
}

func TestParseIndex(t *testing.T) {
	n := parseIndex(json.RawMessage(`2`))
	require.NotNil(t, n)
	assert.Equal(t, 2, *n)

	n = parseIndex(json.RawMessage(`"1"`))
	require.NotNil(t, n)
	assert.Equal(t, 1, *n)

	assert.Nil(t, parseIndex(json.RawMessage(`null`)))
	assert.Nil(t, parseIndex(json.RawMessage(`"first"`)))
	assert.Nil(t, parseIndex(nil))
}

func TestParseTodoCommand(t *testing.T) {
	c := Classify(`{"action":"rename","list_name":" Groceries ","item_text":"Shopping","item_index":null}`)
	require.Equal(t, KindParsed, c.Kind)
	cmd := parseTodoCommand(c.Fields)
	assert.Equal(t, TodoRename, cmd.Action)
	assert.Equal(t, "Groceries", cmd.ListName)
	assert.Equal(t, "Shopping", cmd.Text)
	assert.Nil(t, cmd.Index)
}
