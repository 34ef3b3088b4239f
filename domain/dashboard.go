package domain

import (
	"strings"
	"time"
)

const RecentRequestsLimit = 5

type RequestRow struct {
	Request
	StatusColor string `json:"statusColor"`
	Overdue     bool   `json:"overdue"`
}

type Summary struct {
	Total      int          `json:"total"`
	Pending    int          `json:"pending"`
	InProgress int          `json:"inProgress"`
	Delivered  int          `json:"delivered"`
	Recent     []RequestRow `json:"recent"`
}

// Summarize expects requests newest first, the way the requests collection keeps them.
func Summarize(requests []Request, statuses []WorkflowStatus, today time.Time) Summary {
	s := Summary{Total: len(requests), Recent: []RequestRow{}}
	for _, r := range requests {
		switch r.Status {
		case StatusPending:
			s.Pending++
		case StatusInProgress:
			s.InProgress++
		case StatusDelivered:
			s.Delivered++
		}
	}
	for i, r := range requests {
		if i == RecentRequestsLimit {
			break
		}
		s.Recent = append(s.Recent, Row(r, statuses, today))
	}
	return s
}

func Row(r Request, statuses []WorkflowStatus, today time.Time) RequestRow {
	return RequestRow{Request: r, StatusColor: StatusColor(statuses, r.Status), Overdue: IsOverdue(r, today)}
}

// IsOverdue compares ISO dates lexically, an undelivered request is late the day after its delivery date.
func IsOverdue(r Request, today time.Time) bool {
	return r.DeliveryDate != "" && r.DeliveryDate < today.Format(DateLayout) && r.Status != StatusDelivered
}

// FormatDate renders YYYY-MM-DD as DD/MM/YYYY.
func FormatDate(date string) string {
	if date == "" {
		return "N/A"
	}
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}
