package web

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/calvinalkan/tillbook/internal/store"
	"github.com/calvinalkan/tillbook/pkg/kit"
)

type dailyReport struct {
	Date             string       `json:"date"`
	TransactionCount int          `json:"transaction_count"`
	TotalRevenue     float64      `json:"total_revenue"`
	Transactions     []store.Sale `json:"transactions"`
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	loc := s.Config.Location()
	date := time.Now().In(loc)

	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "date must be YYYY-MM-DD", map[string]any{"date": raw})
			return
		}
		date = parsed
	}

	sales, err := s.Ledger.ListForDate(date)
	if err != nil {
		s.Log.Error("daily report failed", zap.Error(err), zap.String("date", date.Format("2006-01-02")))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	report := dailyReport{
		Date:         date.Format("2006-01-02"),
		Transactions: sales,
	}
	for _, sale := range sales {
		report.TransactionCount++
		report.TotalRevenue += sale.TotalAmount
	}
	if report.Transactions == nil {
		report.Transactions = []store.Sale{}
	}

	kit.WriteJSON(w, http.StatusOK, report)
}
