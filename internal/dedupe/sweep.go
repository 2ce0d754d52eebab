package dedupe

import "bulletin_scraper/internal/domain"

// FindDuplicates pairs every stored item with the oldest earlier item it
// duplicates. items must be ordered oldest first; the older item of a pair
// is kept. An item marked for deletion is neither compared again nor
// reported twice.
func FindDuplicates(items []domain.BulletinItem, threshold float64) []domain.DuplicatePair {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	normalized := make([]string, len(items))
	for i, item := range items {
		normalized[i] = Normalize(item.Content)
	}

	marked := make([]bool, len(items))
	var pairs []domain.DuplicatePair

	for i := range items {
		if marked[i] {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if marked[j] {
				continue
			}

			reason, ok := compare(normalized[i], normalized[j], threshold)
			if !ok {
				continue
			}
			if items[i].Content == items[j].Content {
				reason = ReasonExact
			}

			marked[j] = true
			pairs = append(pairs, domain.DuplicatePair{
				KeptID:       items[i].ID,
				KeptTitle:    items[i].Title,
				DeletedID:    items[j].ID,
				DeletedTitle: items[j].Title,
				Reason:       reason,
			})
		}
	}

	return pairs
}

// DeletedIDs lists the ids marked for deletion in pairs.
func DeletedIDs(pairs []domain.DuplicatePair) []int64 {
	ids := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.DeletedID)
	}
	return ids
}
