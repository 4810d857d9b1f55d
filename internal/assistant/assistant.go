// Package assistant turns a chat message into a reply, and possibly a
// calendar entry or to-do change, by prompting the completion backend and
// repairing what it returns.
package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/pocketcal/internal/completion"
	"github.com/dukerupert/pocketcal/internal/metrics"
	"github.com/dukerupert/pocketcal/internal/model"
)

// Notifier is told about records the assistant created or changed.
type Notifier interface {
	Publish(userID int64, entity, action string, id int64)
}

// FactStore caches one daily fact per date.
type FactStore interface {
	Get(date string) (*model.DailyFact, error)
	Upsert(date, fact string) (*model.DailyFact, error)
}

// Config wires a Service. Location defaults to time.Local, Now to time.Now
// and Logger to slog.Default(). Notifier may be nil.
type Config struct {
	Backend      completion.Backend
	Interactions InteractionStore
	Entries      EntryStore
	Todos        TodoStore
	Facts        FactStore
	Notifier     Notifier
	Location     *time.Location
	Now          func() time.Time
	Logger       *slog.Logger
}

type Service struct {
	backend      completion.Backend
	interactions InteractionStore
	coord        *Coordinator
	facts        FactStore
	notifier     Notifier
	loc          *time.Location
	now          func() time.Time
	logger       *slog.Logger
}

func NewService(cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		backend:      cfg.Backend,
		interactions: cfg.Interactions,
		coord:        NewCoordinator(cfg.Interactions, cfg.Entries, cfg.Todos),
		facts:        cfg.Facts,
		notifier:     cfg.Notifier,
		loc:          cfg.Location,
		now:          cfg.Now,
		logger:       cfg.Logger.With("component", "assistant"),
	}
}

// TodoResult describes the to-do change a reply made.
type TodoResult struct {
	Action TodoAction      `json:"action"`
	List   *model.TodoList `json:"list,omitempty"`
	Item   *model.TodoItem `json:"item,omitempty"`
}

// Reply is what the routing layer returns for one chat message.
type Reply struct {
	Output        string               `json:"output_llm"`
	Entry         *model.CalendarEntry `json:"event_data"`
	Todo          *TodoResult          `json:"todo_data,omitempty"`
	InteractionID int64                `json:"interaction_id,omitempty"`
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) publish(userID int64, entity, action string, id int64) {
	if s.notifier != nil {
		s.notifier.Publish(userID, entity, action, id)
	}
}

// ProcessMessage runs one chat message through the pipeline. It never fails:
// every problem is reported through Reply.Output.
func (s *Service) ProcessMessage(ctx context.Context, userID int64, message string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("process message panic", "user_id", userID, "panic", r)
			metrics.AssistantReplies.WithLabelValues("error").Inc()
			reply = Reply{Output: InternalText}
		}
	}()

	recent, err := s.interactions.ListRecent(userID, historyLimit)
	if err != nil {
		s.logger.Error("load conversation history", "user_id", userID, "error", err)
		metrics.AssistantReplies.WithLabelValues("error").Inc()
		return Reply{Output: InternalText}
	}
	transcript := formatTranscript(buildTurns(recent, message))

	now := s.localNow()
	prompt := AssemblePrompt(ComputeDateFacts(now), transcript, message)
	text := s.backend.Complete(ctx, prompt)

	c := Classify(text)
	switch c.Kind {
	case KindParsed:
		return s.handleParsed(userID, message, c.Fields, now)
	case KindRawText:
		kind := "raw_text"
		if completion.IsFallback(c.Text) {
			kind = "unavailable"
		}
		metrics.AssistantReplies.WithLabelValues(kind).Inc()
		return s.record(userID, message, c.Text)
	default:
		s.logger.Warn("completion was empty or not an object", "user_id", userID)
		metrics.AssistantReplies.WithLabelValues("empty").Inc()
		return s.record(userID, message, TroubleText)
	}
}

// record logs an exchange that carries no structured payload.
func (s *Service) record(userID int64, message, output string) Reply {
	reply := Reply{Output: output}
	in, err := s.coord.SaveInteraction(userID, message, output)
	if err != nil {
		s.logger.Error("save interaction", "user_id", userID, "error", err)
		return reply
	}
	reply.InteractionID = in.ID
	return reply
}

func (s *Service) handleParsed(userID int64, message string, f fields, now time.Time) Reply {
	reply := Reply{Output: TroubleText}
	if f.has("output_llm") {
		reply.Output = f.str("output_llm")
	}

	in, err := s.coord.SaveInteraction(userID, message, reply.Output)
	if err != nil {
		s.logger.Error("save interaction", "user_id", userID, "error", err)
		metrics.AssistantReplies.WithLabelValues("error").Inc()
		return Reply{Output: InternalText}
	}
	reply.InteractionID = in.ID
	kind := "parsed"

	if ev, ok := f.object("event_data"); ok {
		draft, dated := normalizeEvent(ev, now)
		if dated {
			reply.Output = confirmation(draft, now.Location())
		}
		entry, err := s.coord.SaveEvent(userID, draft)
		if err != nil {
			s.logger.Error("save event", "user_id", userID, "error", err)
			metrics.AssistantReplies.WithLabelValues("event_error").Inc()
			return Reply{Output: EventErrorText, InteractionID: in.ID}
		}
		if err := s.coord.UpdateInteraction(userID, in.ID, entry.ID); err != nil {
			s.logger.Error("link interaction to entry", "user_id", userID, "interaction_id", in.ID, "error", err)
		}
		s.logger.Info("entry created from chat", "user_id", userID, "entry_id", entry.ID, "date", entry.Date, "time", entry.Time)
		s.publish(userID, "entry", "created", entry.ID)
		reply.Entry = entry
		kind = "event"
	}

	if td, ok := f.object("todo_data"); ok {
		cmd := parseTodoCommand(td)
		result, err := s.applyTodo(userID, cmd)
		if err != nil {
			s.logger.Error("apply todo action", "user_id", userID, "action", cmd.Action, "list", cmd.ListName, "error", err)
			reply.Output += TodoErrorText
			kind = "todo_error"
		} else if result != nil {
			reply.Todo = result
			kind = "todo"
		}
	}

	metrics.AssistantReplies.WithLabelValues(kind).Inc()
	return reply
}

// applyTodo performs cmd. A nil result with a nil error means nothing
// matched and nothing was changed.
func (s *Service) applyTodo(userID int64, cmd TodoCommand) (*TodoResult, error) {
	if cmd.ListName == "" {
		s.logger.Warn("todo action without list name", "user_id", userID, "action", cmd.Action)
		return nil, nil
	}
	result := &TodoResult{Action: cmd.Action}

	switch cmd.Action {
	case TodoCreate:
		l, err := s.coord.CreateTodoList(userID, cmd.ListName, cmd.Items)
		if err != nil {
			return nil, err
		}
		result.List = l
		s.publish(userID, "todo_list", "created", l.ID)

	case TodoAddItem:
		if len(cmd.Items) == 0 {
			return nil, nil
		}
		l, err := s.coord.AppendTodoItems(userID, cmd.ListName, cmd.Items)
		if err != nil {
			return nil, err
		}
		if l == nil {
			s.logger.Info("todo list not found", "user_id", userID, "list", cmd.ListName)
			return nil, nil
		}
		result.List = l
		s.publish(userID, "todo_list", "updated", l.ID)

	case TodoRename:
		if cmd.Text == "" {
			return nil, nil
		}
		l, err := s.coord.RenameTodoList(userID, cmd.ListName, cmd.Text)
		if err != nil {
			return nil, err
		}
		if l == nil {
			s.logger.Info("todo list not found", "user_id", userID, "list", cmd.ListName)
			return nil, nil
		}
		result.List = l
		s.publish(userID, "todo_list", "updated", l.ID)

	case TodoDelete:
		l, err := s.coord.DeleteTodoList(userID, cmd.ListName)
		if err != nil {
			return nil, err
		}
		if l == nil {
			s.logger.Info("todo list not found", "user_id", userID, "list", cmd.ListName)
			return nil, nil
		}
		result.List = l
		s.publish(userID, "todo_list", "deleted", l.ID)

	case TodoToggleComplete:
		if cmd.Index == nil {
			return nil, nil
		}
		l, item, err := s.coord.ToggleTodoItem(userID, cmd.ListName, *cmd.Index)
		if err != nil {
			return nil, err
		}
		if l == nil || item == nil {
			s.logger.Info("todo item not found", "user_id", userID, "list", cmd.ListName, "index", *cmd.Index)
			return nil, nil
		}
		result.Item = item
		s.publish(userID, "todo_list", "updated", l.ID)

	default:
		s.logger.Warn("unknown todo action", "user_id", userID)
		return nil, nil
	}
	return result, nil
}

// MarkProcessed flips the processed flag of one of the user's interactions.
// It reports whether the interaction exists.
func (s *Service) MarkProcessed(ctx context.Context, userID, interactionID int64) (bool, error) {
	return s.coord.MarkProcessed(userID, interactionID)
}

// History returns the most recent turns of the user's conversation.
func (s *Service) History(ctx context.Context, userID int64) ([]Turn, error) {
	recent, err := s.interactions.ListRecent(userID, historyLimit)
	if err != nil {
		return nil, err
	}
	return lastTurns(turnsFromHistory(recent)), nil
}

// Pending lists the user's interactions that are not yet processed.
func (s *Service) Pending(ctx context.Context, userID int64) ([]model.Interaction, error) {
	return s.interactions.ListPending(userID)
}
