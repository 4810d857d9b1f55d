package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/pocketcal/internal/completion"
	"github.com/dukerupert/pocketcal/internal/database"
	"github.com/dukerupert/pocketcal/internal/model"
	"github.com/dukerupert/pocketcal/internal/store"
)

// fakeBackend replays canned completions and records the prompts it saw.
type fakeBackend struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

func (b *fakeBackend) Complete(ctx context.Context, prompt string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, prompt)
	if len(b.replies) == 0 {
		return completion.FallbackText
	}
	r := b.replies[0]
	if len(b.replies) > 1 {
		b.replies = b.replies[1:]
	}
	return r
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prompts)
}

type recordedEvent struct {
	userID         int64
	entity, action string
	id             int64
}

type fakeNotifier struct {
	events []recordedEvent
}

func (n *fakeNotifier) Publish(userID int64, entity, action string, id int64) {
	n.events = append(n.events, recordedEvent{userID, entity, action, id})
}

type fixture struct {
	svc          *Service
	backend      *fakeBackend
	notifier     *fakeNotifier
	interactions *store.InteractionStore
	entries      *store.EntryStore
	todos        *store.TodoStore
	facts        *store.DailyFactStore
	userID       int64
	otherUserID  int64
}

// fixedNow is a Thursday morning.
var fixedNow = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	alice, err := users.Create("alice", "hash")
	require.NoError(t, err)
	bob, err := users.Create("bob", "hash")
	require.NoError(t, err)

	f := &fixture{
		backend:      &fakeBackend{replies: replies},
		notifier:     &fakeNotifier{},
		interactions: store.NewInteractionStore(db),
		entries:      store.NewEntryStore(db),
		todos:        store.NewTodoStore(db),
		facts:        store.NewDailyFactStore(db),
		userID:       alice.ID,
		otherUserID:  bob.ID,
	}
	f.svc = NewService(f.config())
	return f
}

func (f *fixture) config() Config {
	return Config{
		Backend:      f.backend,
		Interactions: f.interactions,
		Entries:      f.entries,
		Todos:        f.todos,
		Facts:        f.facts,
		Notifier:     f.notifier,
		Location:     time.UTC,
		Now:          func() time.Time { return fixedNow },
	}
}

func TestProcessMessageCreatesReminder(t *testing.T) {
	f := newFixture(t, `{"output_llm":"ok","event_data":{"title":"Call mom","date":"2026-10-16","time":"17:00","type":"reminder"}}`)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "remind me to call mom tomorrow at 5pm")

	require.NotNil(t, reply.Entry)
	assert.Equal(t, "Call mom", reply.Entry.Title)
	assert.Equal(t, model.EntryReminder, reply.Entry.Type)
	assert.Equal(t, "2026-10-16", reply.Entry.Date)
	assert.Equal(t, "17:00", reply.Entry.Time)
	assert.Equal(t, model.RecurNone, reply.Entry.Recurrence)
	assert.Equal(t,
		"I've scheduled your Reminder: 'Call mom' for Friday, October 16 at 05:00 PM. You can view it in your calendar.",
		reply.Output)

	entries, err := f.entries.ListAll(f.userID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	in, err := f.interactions.GetByID(f.userID, reply.InteractionID)
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.True(t, in.Processed)
	require.NotNil(t, in.EntryID)
	assert.Equal(t, reply.Entry.ID, *in.EntryID)
	assert.Equal(t, "remind me to call mom tomorrow at 5pm", in.UserMessage)
	assert.Equal(t, "ok", in.OutputText)

	assert.Equal(t, []recordedEvent{{f.userID, "entry", "created", reply.Entry.ID}}, f.notifier.events)
}

func TestProcessMessageBackendUnavailable(t *testing.T) {
	f := newFixture(t, completion.FallbackText)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "lunch tomorrow at noon")

	assert.Equal(t, completion.FallbackText, reply.Output)
	assert.Nil(t, reply.Entry)
	assert.Nil(t, reply.Todo)

	entries, err := f.entries.ListAll(f.userID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessMessageRawText(t *testing.T) {
	f := newFixture(t, "  Sure thing, anything else?\n")

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "hi")

	assert.Equal(t, "Sure thing, anything else?", reply.Output)
	assert.Nil(t, reply.Entry)
}

func TestProcessMessageEmptyAndNonObject(t *testing.T) {
	for _, text := range []string{"", "   ", "[1,2]", `"just a string"`} {
		f := newFixture(t, text)
		reply := f.svc.ProcessMessage(context.Background(), f.userID, "hi")
		assert.Equal(t, TroubleText, reply.Output, "completion %q", text)
		assert.Nil(t, reply.Entry)
	}
}

func TestProcessMessageMissingOutput(t *testing.T) {
	f := newFixture(t, `{"event_data":null}`)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "hi")

	assert.Equal(t, TroubleText, reply.Output)
	assert.Nil(t, reply.Entry)
}

func TestProcessMessagePlainAnswer(t *testing.T) {
	f := newFixture(t, `{"output_llm":"Hello! How can I help?","event_data":null,"todo_data":null}`)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "hello")

	assert.Equal(t, "Hello! How can I help?", reply.Output)
	assert.Nil(t, reply.Entry)
	assert.Nil(t, reply.Todo)

	pending, err := f.svc.Pending(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.False(t, pending[0].Processed)
}

func TestProcessMessagePastEventClamped(t *testing.T) {
	f := newFixture(t,
		`{"output_llm":"ok","event_data":{"title":"Standup","date":"2026-10-15","time":"09:00"}}`,
		`{"output_llm":"ok","event_data":{"title":"Review","date":"2026-10-01","time":"09:00"}}`,
	)

	r1 := f.svc.ProcessMessage(context.Background(), f.userID, "standup today at 9")
	require.NotNil(t, r1.Entry)
	assert.Equal(t, "2026-10-16", r1.Entry.Date)

	r2 := f.svc.ProcessMessage(context.Background(), f.userID, "review on the first")
	require.NotNil(t, r2.Entry)
	assert.Equal(t, "2026-10-15", r2.Entry.Date)
}

func TestProcessMessageDefaultsMissingFields(t *testing.T) {
	f := newFixture(t, `{"output_llm":"ok","event_data":{"date":"2026-11-02","time":"08:00"}}`)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "something on the 2nd")

	require.NotNil(t, reply.Entry)
	assert.Equal(t, "Untitled Event", reply.Entry.Title)
	assert.Equal(t, model.RecurNone, reply.Entry.Recurrence)
	assert.Equal(t, model.EntryEvent, reply.Entry.Type)
}

func TestProcessMessageUnparseableDateKeepsOutput(t *testing.T) {
	f := newFixture(t, `{"output_llm":"Booked it.","event_data":{"title":"Gym","date":"next week","time":"07:00"}}`)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "gym next week")

	require.NotNil(t, reply.Entry)
	assert.Equal(t, "2026-10-15", reply.Entry.Date)
	assert.Equal(t, "Booked it.", reply.Output)
}

type failingEntries struct{}

func (failingEntries) Create(int64, string, string, string, string, model.Recurrence, model.EntryType) (*model.CalendarEntry, error) {
	return nil, errors.New("disk full")
}

func TestProcessMessageEventSaveFailure(t *testing.T) {
	f := newFixture(t, `{"output_llm":"ok","event_data":{"title":"Call mom","date":"2026-10-16","time":"17:00"}}`)
	cfg := f.config()
	cfg.Entries = failingEntries{}
	svc := NewService(cfg)

	reply := svc.ProcessMessage(context.Background(), f.userID, "call mom tomorrow at 5pm")

	assert.Equal(t, EventErrorText, reply.Output)
	assert.Nil(t, reply.Entry)

	pending, err := f.interactions.ListPending(f.userID)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "interaction is still logged")
}

func TestProcessMessageCreateTodoList(t *testing.T) {
	f := newFixture(t, `{"output_llm":"Created.","todo_data":{"action":"create","list_name":"Groceries","item_text":"milk, bread, eggs","item_index":null}}`)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "make a grocery list with milk, bread and eggs")

	assert.Equal(t, "Created.", reply.Output)
	require.NotNil(t, reply.Todo)
	assert.Equal(t, TodoCreate, reply.Todo.Action)
	require.NotNil(t, reply.Todo.List)

	l, err := f.todos.GetListByName(f.userID, "Groceries")
	require.NoError(t, err)
	require.NotNil(t, l)
	var texts []string
	for _, it := range l.Items {
		texts = append(texts, it.Text)
	}
	assert.Equal(t, []string{"milk", "bread", "eggs"}, texts)
}

func TestProcessMessageAddItemToMissingList(t *testing.T) {
	f := newFixture(t, `{"output_llm":"Added milk.","todo_data":{"action":"add_item","list_name":"Nope","item_text":"milk"}}`)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "add milk to nope")

	assert.Equal(t, "Added milk.", reply.Output)
	assert.Nil(t, reply.Todo)

	lists, err := f.todos.ListLists(f.userID)
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestProcessMessageAddItemUsesOwnList(t *testing.T) {
	f := newFixture(t, `{"output_llm":"Added.","todo_data":{"action":"add_item","list_name":"Groceries","item_text":["jam","butter"]}}`)
	_, err := f.todos.CreateList(f.otherUserID, "Groceries", nil)
	require.NoError(t, err)
	mine, err := f.todos.CreateList(f.userID, "Groceries", []string{"milk"})
	require.NoError(t, err)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "add jam and butter")

	require.NotNil(t, reply.Todo)
	got, err := f.todos.GetList(f.userID, mine.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)

	theirs, err := f.todos.GetListByName(f.otherUserID, "Groceries")
	require.NoError(t, err)
	assert.Empty(t, theirs.Items)
}

func TestProcessMessageRenameDeleteToggle(t *testing.T) {
	f := newFixture(t,
		`{"output_llm":"Renamed.","todo_data":{"action":"rename","list_name":"Chores","item_text":"House"}}`,
		`{"output_llm":"Done.","todo_data":{"action":"toggle_complete","list_name":"House","item_index":1}}`,
		`{"output_llm":"Deleted.","todo_data":{"action":"delete","list_name":"House"}}`,
	)
	l, err := f.todos.CreateList(f.userID, "Chores", []string{"sweep", "mop"})
	require.NoError(t, err)
	ctx := context.Background()

	r := f.svc.ProcessMessage(ctx, f.userID, "rename chores to house")
	require.NotNil(t, r.Todo)
	assert.Equal(t, "House", r.Todo.List.Name)

	r = f.svc.ProcessMessage(ctx, f.userID, "mop is done")
	require.NotNil(t, r.Todo)
	require.NotNil(t, r.Todo.Item)
	assert.Equal(t, "mop", r.Todo.Item.Text)
	assert.True(t, r.Todo.Item.Completed)

	r = f.svc.ProcessMessage(ctx, f.userID, "delete the house list")
	require.NotNil(t, r.Todo)
	got, err := f.todos.GetList(f.userID, l.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProcessMessageUnknownTodoAction(t *testing.T) {
	f := newFixture(t, `{"output_llm":"Archived.","todo_data":{"action":"archive","list_name":"Chores"}}`)

	reply := f.svc.ProcessMessage(context.Background(), f.userID, "archive chores")

	assert.Equal(t, "Archived.", reply.Output)
	assert.Nil(t, reply.Todo)
}

type failingTodos struct{ TodoStore }

func (failingTodos) CreateList(int64, string, []string) (*model.TodoList, error) {
	return nil, errors.New("locked")
}

func TestProcessMessageTodoSaveFailure(t *testing.T) {
	f := newFixture(t, `{"output_llm":"Created.","todo_data":{"action":"create","list_name":"Groceries"}}`)
	cfg := f.config()
	cfg.Todos = failingTodos{f.todos}
	svc := NewService(cfg)

	reply := svc.ProcessMessage(context.Background(), f.userID, "new list")

	assert.Equal(t, "Created. (But there was an error saving your to-do list.)", reply.Output)
	assert.Nil(t, reply.Todo)
}

type panickingBackend struct{}

func (panickingBackend) Complete(context.Context, string) string { panic("boom") }

func TestProcessMessageInternalError(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Backend = panickingBackend{}
	svc := NewService(cfg)

	reply := svc.ProcessMessage(context.Background(), f.userID, "hi")

	assert.Equal(t, InternalText, reply.Output)
}

// transcriptTurns counts the dialogue lines in the prompt's context block.
func transcriptTurns(prompt string) int {
	block, _, _ := strings.Cut(prompt, "\n\n")
	n := 0
	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(line, "User: ") || strings.HasPrefix(line, "Assistant: ") {
			n++
		}
	}
	return n
}

func TestContextNeverExceedsThreeTurns(t *testing.T) {
	f := newFixture(t, `{"output_llm":"noted"}`)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		f.svc.ProcessMessage(ctx, f.userID, "message")
	}

	require.Equal(t, 6, f.backend.calls())
	for i, p := range f.backend.prompts {
		assert.LessOrEqual(t, transcriptTurns(p), 3, "prompt %d", i)
	}
	assert.Equal(t, 3, transcriptTurns(f.backend.prompts[5]))
}

func TestMarkProcessed(t *testing.T) {
	f := newFixture(t, `{"output_llm":"hi"}`)
	ctx := context.Background()

	reply := f.svc.ProcessMessage(ctx, f.userID, "hello")
	require.NotZero(t, reply.InteractionID)

	ok, err := f.svc.MarkProcessed(ctx, f.otherUserID, reply.InteractionID)
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 0; i < 2; i++ {
		ok, err := f.svc.MarkProcessed(ctx, f.userID, reply.InteractionID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	pending, err := f.svc.Pending(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, `{"output_llm":"first answer"}`, `{"output_llm":"second answer"}`)
	ctx := context.Background()

	f.svc.ProcessMessage(ctx, f.userID, "first")
	f.svc.ProcessMessage(ctx, f.userID, "second")

	turns, err := f.svc.History(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, []Turn{
		{Role: RoleAssistant, Content: "first answer"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "second answer"},
	}, turns)

	other, err := f.svc.History(ctx, f.otherUserID)
	require.NoError(t, err)
	assert.Empty(t, other)
}
