package entity

// PostStatistics represents aggregated post counters for the dashboard
type PostStatistics struct {
	Total          int64                `json:"total"`
	ByStatus       map[PostStatus]int64 `json:"by_status"`
	PartiallySent  int64                `json:"partially_published"`
	Publications   int64                `json:"publications"`
	FailedDelivery int64                `json:"failed_publications"`
}

// Count returns the number of posts in the status
func (s *PostStatistics) Count(status PostStatus) int64 {
	if s == nil || s.ByStatus == nil {
		return 0
	}
	return s.ByStatus[status]
}
