package memory

import "context"

// StaticUserTiers resolves premium status from a fixed user id list. The real
// tier lookup lives in an external user service; this stands in at its boundary.
type StaticUserTiers struct {
	premium map[string]struct{}
}

func NewStaticUserTiers(premiumUsers []string) *StaticUserTiers {
	premium := make(map[string]struct{}, len(premiumUsers))
	for _, id := range premiumUsers {
		premium[id] = struct{}{}
	}
	return &StaticUserTiers{premium: premium}
}

func (s *StaticUserTiers) IsPremium(_ context.Context, userID string) (bool, error) {
	_, ok := s.premium[userID]
	return ok, nil
}
