package request

import (
	"errors"
	"net/http"
	"strconv"
)

// LeaderboardQuery holds the query parameters of the leaderboard endpoint
type LeaderboardQuery struct {
	SortBy string
	Limit  int
}

// ParseLeaderboardQuery reads ?sort_by=&limit=. A missing limit is zero,
// which selects the service default.
func ParseLeaderboardQuery(r *http.Request) (LeaderboardQuery, error) {
	q := r.URL.Query()
	out := LeaderboardQuery{SortBy: q.Get("sort_by")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return LeaderboardQuery{}, errors.New("limit must be a non-negative integer")
		}
		out.Limit = limit
	}
	return out, nil
}
