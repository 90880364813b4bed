package domain

// DashboardSummary is the aggregate payload of the overview screen.
type DashboardSummary struct {
	TotalUsers   int64   `json:"totalUsers"`
	TotalLinks   int64   `json:"totalLinks"`
	TotalVisits  int64   `json:"totalVisits"`
	TotalEmails  int64   `json:"totalEmails"`
	RecentLinks  []Link  `json:"recentLinks"`
	TopLinks     []Link  `json:"topLinks"`
	RecentEmails []Email `json:"recentEmails"`
}

// ChartPoint is one bar of the top links chart.
type ChartPoint struct {
	Name   string
	Visits int64
	User   string
}

// ChartLinks returns the top links that received at least one visit.
func (d DashboardSummary) ChartLinks() []ChartPoint {
	points := make([]ChartPoint, 0, len(d.TopLinks))
	for _, l := range d.TopLinks {
		if l.Visits <= 0 {
			continue
		}
		p := ChartPoint{Name: l.Slug, Visits: l.Visits}
		if l.User != nil {
			p.User = l.User.Username
		}
		points = append(points, p)
	}
	return points
}

// MaxVisits is the tallest bar, used to scale the chart.
func MaxVisits(points []ChartPoint) int64 {
	var m int64
	for _, p := range points {
		if p.Visits > m {
			m = p.Visits
		}
	}
	return m
}
