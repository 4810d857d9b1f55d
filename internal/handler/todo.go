package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pocketcal/internal/auth"
	"github.com/dukerupert/pocketcal/internal/model"
	"github.com/dukerupert/pocketcal/internal/store"
)

const todoEntity = "todo_list"

type TodoHandler struct {
	todoStore *store.TodoStore
	notifier  Notifier
	logger    *slog.Logger
}

func NewTodoHandler(ts *store.TodoStore, n Notifier, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todoStore: ts, notifier: notifierOrNop(n), logger: logger}
}

type todoListRequest struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

type todoItemsRequest struct {
	Items []string `json:"items"`
	Text  string   `json:"text"`
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func (h *TodoHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.todoStore.ListLists(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list todo lists", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list todo lists")
		return
	}
	if lists == nil {
		lists = []model.TodoList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *TodoHandler) GetList(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	list, err := h.todoStore.GetList(auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("get todo list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get todo list")
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "todo list not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TodoHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req todoListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := auth.UserID(r.Context())
	list, err := h.todoStore.CreateList(userID, name, cleanItems(req.Items))
	if err != nil {
		h.logger.Error("create todo list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create todo list")
		return
	}

	h.notifier.Publish(userID, todoEntity, "created", list.ID)
	writeJSON(w, http.StatusCreated, list)
}

func (h *TodoHandler) RenameList(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req todoListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := auth.UserID(r.Context())
	ok, err := h.todoStore.RenameList(userID, id, name)
	if err != nil {
		h.logger.Error("rename todo list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rename todo list")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "todo list not found")
		return
	}

	h.notifier.Publish(userID, todoEntity, "updated", id)
	h.respondWithList(w, userID, id)
}

func (h *TodoHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	ok, err := h.todoStore.DeleteList(userID, id)
	if err != nil {
		h.logger.Error("delete todo list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete todo list")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "todo list not found")
		return
	}

	h.notifier.Publish(userID, todoEntity, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// AddItems appends either "items" or a single "text" to the list.
func (h *TodoHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req todoItemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	items := cleanItems(append(req.Items, req.Text))
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	userID := auth.UserID(r.Context())
	added, err := h.todoStore.AppendItems(userID, id, items)
	if err != nil {
		h.logger.Error("append todo items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add items")
		return
	}
	if added == nil {
		writeError(w, http.StatusNotFound, "todo list not found")
		return
	}

	h.notifier.Publish(userID, todoEntity, "updated", id)
	writeJSON(w, http.StatusCreated, added)
}

func (h *TodoHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	idx, err := parseIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	userID := auth.UserID(r.Context())
	item, err := h.todoStore.ToggleItem(userID, id, idx)
	if err != nil {
		h.logger.Error("toggle todo item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.notifier.Publish(userID, todoEntity, "updated", id)
	writeJSON(w, http.StatusOK, item)
}

func (h *TodoHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	idx, err := parseIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	userID := auth.UserID(r.Context())
	ok, err := h.todoStore.DeleteItem(userID, id, idx)
	if err != nil {
		h.logger.Error("delete todo item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.notifier.Publish(userID, todoEntity, "updated", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) respondWithList(w http.ResponseWriter, userID, id int64) {
	list, err := h.todoStore.GetList(userID, id)
	if err != nil {
		h.logger.Error("reload todo list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load todo list")
		return
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "todo list not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}
