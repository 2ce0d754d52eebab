package domain

import "time"

// ItemFilter narrows an item listing. Zero values mean "no restriction".
type ItemFilter struct {
	Categories       []Category
	YearGroup        string
	Keyword          string
	ExcludeFeedback  bool
	ExcludeDonations bool
	Page             int
	PerPage          int
}

type ItemPage struct {
	Items   []BulletinItem
	Total   int
	Page    int
	PerPage int
}

func (p ItemPage) Pages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

type ItemStats struct {
	Total      int
	Recent     int
	Feedback   int
	Donation   int
	ByCategory map[Category]int
	Since      time.Time
}
