package domain

import "time"

// slaTargets is the completion time promised per priority.
var slaTargets = map[Priority]time.Duration{
	PriorityImmediate: 2 * time.Hour,
	PriorityUrgent:    6 * time.Hour,
	PriorityPriority:  24 * time.Hour,
	PriorityStandard:  72 * time.Hour,
}

// SLATarget returns the completion target for p, falling back to standard.
func SLATarget(p Priority) time.Duration {
	if d, ok := slaTargets[p]; ok {
		return d
	}
	return slaTargets[PriorityStandard]
}

// SLAMetrics aggregates fulfilment performance over a set of requests.
type SLAMetrics struct {
	TotalRequests          int     `json:"total_requests"`
	ActiveRequests         int     `json:"active_requests"`
	CompletedRequests      int     `json:"completed_requests"`
	CancelledRequests      int     `json:"cancelled_requests"`
	CompletionRate         float64 `json:"completion_rate"`
	AverageCompletionHours float64 `json:"average_completion_hours"`
	OnTimeRate             float64 `json:"on_time_rate"`
}

// ComputeSLAMetrics derives metrics from requests. Rates are fractions in [0,1].
func ComputeSLAMetrics(requests []*ServiceRequest) SLAMetrics {
	var m SLAMetrics
	var totalHours float64
	var onTime int

	for _, r := range requests {
		m.TotalRequests++
		switch r.Status {
		case StatusCompleted:
			m.CompletedRequests++
			if r.CompletedAt == nil {
				continue
			}
			elapsed := r.CompletedAt.Sub(r.CreatedAt)
			totalHours += elapsed.Hours()
			if elapsed <= SLATarget(r.Priority) {
				onTime++
			}
		case StatusCancelled:
			m.CancelledRequests++
		default:
			m.ActiveRequests++
		}
	}

	if m.TotalRequests > 0 {
		m.CompletionRate = float64(m.CompletedRequests) / float64(m.TotalRequests)
	}
	if m.CompletedRequests > 0 {
		m.AverageCompletionHours = totalHours / float64(m.CompletedRequests)
		m.OnTimeRate = float64(onTime) / float64(m.CompletedRequests)
	}
	return m
}
