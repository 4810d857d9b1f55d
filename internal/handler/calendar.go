package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/pocketcal/internal/auth"
	"github.com/dukerupert/pocketcal/internal/calendar"
	"github.com/dukerupert/pocketcal/internal/model"
	"github.com/dukerupert/pocketcal/internal/store"
)

type CalendarHandler struct {
	entryStore *store.EntryStore
	userStore  *store.UserStore
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

func NewCalendarHandler(es *store.EntryStore, us *store.UserStore, loc *time.Location, now func() time.Time, logger *slog.Logger) *CalendarHandler {
	if now == nil {
		now = time.Now
	}
	return &CalendarHandler{entryStore: es, userStore: us, loc: loc, now: now, logger: logger}
}

type monthView struct {
	calendar.Month
	Entries []model.CalendarEntry `json:"entries"`
}

// Current returns the grid for the current month.
func (h *CalendarHandler) Current(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	h.renderMonth(w, r, now.Year(), int(now.Month()))
}

// Month returns the grid for /{year}/{month}. Out-of-range months roll over
// into the adjacent year.
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}
	h.renderMonth(w, r, year, month)
}

func (h *CalendarHandler) renderMonth(w http.ResponseWriter, r *http.Request, year, month int) {
	m := calendar.BuildMonth(year, month, h.now().In(h.loc))

	entries, err := h.entryStore.ListByMonth(auth.UserID(r.Context()), m.Year, m.Month)
	if err != nil {
		h.logger.Error("list month entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load calendar")
		return
	}
	if entries == nil {
		entries = []model.CalendarEntry{}
	}

	writeJSON(w, http.StatusOK, monthView{Month: m, Entries: entries})
}

// ICS exports every entry of the user as an iCalendar file.
func (h *CalendarHandler) ICS(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	entries, err := h.entryStore.ListAll(userID)
	if err != nil {
		h.logger.Error("list entries for export", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}

	name := "pocketcal"
	if u, err := h.userStore.GetByID(userID); err == nil && u != nil {
		name = u.Username + "'s calendar"
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pocketcal.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(calendar.ExportICS(name, entries, h.loc, h.now())))
}
