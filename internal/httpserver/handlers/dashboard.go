package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
)

type dashboardView struct {
	Period       string
	Periods      []domain.Period
	Summary      *domain.DashboardSummary
	Chart        []domain.ChartPoint
	MaxVisits    int64
	RecentLinks  listview.Table[domain.Link]
	RecentEmails listview.Table[domain.Email]
	Stale        bool
}

// Dashboard renders the overview counts and the top links for a period.
func Dashboard(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := domain.ParsePeriod(r.URL.Query().Get("period"))
		p := newPage(d, r, "dashboard", "analytics", "dashboard")
		api := apiFor(d, r)

		q := listview.NewQuery(domain.KindDashboard, "period", string(period))
		res, done := loadList(d, w, r, p, screenLoad{screen: "dashboard", path: "/dashboard", tagged: true}, q,
			func(ctx context.Context) (*domain.DashboardSummary, error) {
				return api.Dashboard(ctx, period)
			})
		if done {
			return
		}

		v := dashboardView{
			Period:       string(period),
			Periods:      domain.Periods,
			Summary:      res.Rows,
			Stale:        res.Stale,
			RecentLinks:  listview.Table[domain.Link]{Kind: domain.KindLink},
			RecentEmails: listview.Table[domain.Email]{Kind: domain.KindEmail},
		}
		if res.Rows != nil {
			v.Chart = res.Rows.ChartLinks()
			v.MaxVisits = domain.MaxVisits(v.Chart)
			v.RecentLinks.Rows = res.Rows.RecentLinks
			v.RecentEmails.Rows = res.Rows.RecentEmails
		}
		p.Data = v
		render(d, w, r, http.StatusOK, "dashboard", p)
	}
}
