package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"einkauf/internal/auth"
	"einkauf/internal/core"
	"einkauf/internal/stats"
)

func (s *Server) loadPurchases(w http.ResponseWriter, r *http.Request, session auth.Session) ([]core.Purchase, bool) {
	purchases, err := s.backend.StoreFor(session).ListPurchases(r.Context())
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return purchases, true
}

// handleSummary serves the scalar dashboard figures, cached per user.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, session auth.Session) {
	key := session.UserID + "|" + time.Now().Format("2006-01")
	if summary, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "user_id", session.UserID)
		writeJSON(w, http.StatusOK, summary)
		return
	}

	purchases, ok := s.loadPurchases(w, r, session)
	if !ok {
		return
	}
	summary := stats.Summarize(purchases, time.Now())
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request, session auth.Session) {
	purchases, ok := s.loadPurchases(w, r, session)
	if !ok {
		return
	}
	totals := stats.Daily(purchases)
	if totals == nil {
		totals = []stats.DayTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request, session auth.Session) {
	purchases, ok := s.loadPurchases(w, r, session)
	if !ok {
		return
	}
	totals := stats.MonthlyTrend(purchases)
	if totals == nil {
		totals = []stats.MonthTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

type monthResponse struct {
	Month     string           `json:"month"`
	AtCurrent bool             `json:"atCurrent"`
	Days      []stats.DayTotal `json:"days"`
}

// handleMonth serves the per-month daily view. The cursor query
// parameter carries a 2006-01 month; absent or malformed values fall
// back to the current month, and future months are clamped.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request, session auth.Session) {
	cursor := stats.NewMonthCursor()
	if v := strings.TrimSpace(r.URL.Query().Get("cursor")); v != "" {
		if t, err := time.Parse("2006-01", v); err == nil {
			cursor = stats.CursorFor(t.Year(), t.Month())
		} else {
			slog.WarnContext(r.Context(), "Invalid month cursor, using current month", "cursor", v)
		}
	}

	purchases, ok := s.loadPurchases(w, r, session)
	if !ok {
		return
	}
	days := stats.DaysOfMonth(purchases, cursor)
	if days == nil {
		days = []stats.DayTotal{}
	}
	writeJSON(w, http.StatusOK, monthResponse{
		Month:     cursor.Key(),
		AtCurrent: cursor.AtCurrent(),
		Days:      days,
	})
}

func (s *Server) handleTopItems(w http.ResponseWriter, r *http.Request, session auth.Session) {
	limit := stats.TopItemsLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= stats.TopItemsLimit {
			limit = n
		}
	}

	purchases, ok := s.loadPurchases(w, r, session)
	if !ok {
		return
	}
	totals := stats.TopItems(purchases, limit)
	if totals == nil {
		totals = []stats.ItemTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handlePriceProgression(w http.ResponseWriter, r *http.Request, session auth.Session) {
	itemID := strings.TrimSpace(r.URL.Query().Get("itemId"))
	if itemID == "" {
		writeBadRequest(w, "itemId query parameter is required")
		return
	}

	purchases, ok := s.loadPurchases(w, r, session)
	if !ok {
		return
	}
	points := stats.PriceProgression(purchases, itemID)
	if points == nil {
		points = []stats.PricePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request, session auth.Session) {
	st := s.backend.StoreFor(session)

	purchases, err := st.ListPurchases(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := st.ListItems(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	categories, err := st.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	totals := stats.CategoryBreakdown(purchases, items, categories)
	if totals == nil {
		totals = []stats.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}
