package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/pocketcal/internal/auth"
	"github.com/dukerupert/pocketcal/internal/model"
	"github.com/dukerupert/pocketcal/internal/recurrence"
	"github.com/dukerupert/pocketcal/internal/store"
)

const entryEntity = "entry"

type EntryHandler struct {
	entryStore *store.EntryStore
	notifier   Notifier
	loc        *time.Location
	logger     *slog.Logger
}

func NewEntryHandler(es *store.EntryStore, n Notifier, loc *time.Location, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{entryStore: es, notifier: notifierOrNop(n), loc: loc, logger: logger}
}

type entryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Recurrence  string `json:"recurrence"`
	Type        string `json:"type"`
}

type entryInput struct {
	title, description, date, time string
	recurrence                     model.Recurrence
	typ                            model.EntryType
}

func (h *EntryHandler) parseAndValidate(w http.ResponseWriter, r *http.Request) (entryInput, bool) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return entryInput{}, false
	}

	in := entryInput{
		title:       strings.TrimSpace(req.Title),
		description: req.Description,
		date:        strings.TrimSpace(req.Date),
		time:        strings.TrimSpace(req.Time),
	}
	if in.title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return entryInput{}, false
	}
	if _, err := time.Parse(model.DateLayout, in.date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return entryInput{}, false
	}
	if in.time == "" {
		in.time = "00:00"
	} else if _, err := time.Parse(model.TimeLayout, in.time); err != nil {
		writeError(w, http.StatusBadRequest, "time must be HH:MM")
		return entryInput{}, false
	}

	var ok bool
	if in.typ, ok = model.ParseEntryType(req.Type); !ok && req.Type != "" {
		writeError(w, http.StatusBadRequest, "type must be event, reminder or task")
		return entryInput{}, false
	}
	if in.recurrence, ok = model.ParseRecurrence(req.Recurrence); !ok && req.Recurrence != "" {
		writeError(w, http.StatusBadRequest, "unknown recurrence")
		return entryInput{}, false
	}
	return in, true
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseAndValidate(w, r)
	if !ok {
		return
	}

	userID := auth.UserID(r.Context())
	entry, err := h.entryStore.Create(userID, in.title, in.description, in.date, in.time, in.recurrence, in.typ)
	if err != nil {
		h.logger.Error("create entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}

	h.notifier.Publish(userID, entryEntity, "created", entry.ID)
	writeJSON(w, http.StatusCreated, entry)
}

type monthEntries struct {
	Year        int                     `json:"year"`
	Month       int                     `json:"month"`
	Entries     []model.CalendarEntry   `json:"entries"`
	Occurrences []recurrence.Occurrence `json:"occurrences,omitempty"`
}

// List returns the entries dated in ?year=&month=. With expand=true it also
// returns every occurrence of recurring entries that falls in the month.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year is required")
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12")
		return
	}

	userID := auth.UserID(r.Context())
	entries, err := h.entryStore.ListByMonth(userID, year, month)
	if err != nil {
		h.logger.Error("list entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	if entries == nil {
		entries = []model.CalendarEntry{}
	}
	resp := monthEntries{Year: year, Month: month, Entries: entries}

	if expand, _ := strconv.ParseBool(q.Get("expand")); expand {
		recurring, err := h.entryStore.ListRecurring(userID)
		if err != nil {
			h.logger.Error("list recurring entries", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list entries")
			return
		}
		from, to := recurrence.MonthRange(year, time.Month(month), h.loc)
		resp.Occurrences = recurrence.ExpandAll(recurring, from, to, h.loc)
		if resp.Occurrences == nil {
			resp.Occurrences = []recurrence.Occurrence{}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	entry, err := h.entryStore.GetByID(auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("get entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	in, ok := h.parseAndValidate(w, r)
	if !ok {
		return
	}

	userID := auth.UserID(r.Context())
	entry, err := h.entryStore.Update(userID, id, in.title, in.description, in.date, in.time, in.recurrence, in.typ)
	if err != nil {
		h.logger.Error("update entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	h.notifier.Publish(userID, entryEntity, "updated", entry.ID)
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	deleted, err := h.entryStore.Delete(userID, id)
	if err != nil {
		h.logger.Error("delete entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	h.notifier.Publish(userID, entryEntity, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
