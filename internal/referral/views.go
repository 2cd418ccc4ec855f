package referral

import (
	"referral_system/internal/domain" // Importing domain models
	"sort"                            // Stable ranking
)

// RankUsers orders users by referral count, highest first, keeping registry order
// between ties, and truncates to topN. A non-positive topN returns every user
func RankUsers(users []domain.User, topN int) []domain.User {
	ranked := make([]domain.User, len(users))
	copy(ranked, users) // Leave the caller's slice in registry order

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ReferralCount > ranked[j].ReferralCount // Highest count first
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN] // Keep the top entries only
	}
	return ranked
}

// Summarize computes registry totals
func Summarize(users []domain.User) Stats {
	stats := Stats{TotalUsers: len(users)}
	for _, u := range users {
		stats.TotalReferrals += u.ReferralCount // Every credit counted once, on its referrer
	}
	return stats
}
