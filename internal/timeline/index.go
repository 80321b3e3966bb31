package timeline

import "context"

// AssetCount returns the total number of assets across all buckets.
func (s *Service) AssetCount() int {
	total := 0
	for _, b := range s.snapshotDirectory() {
		total += b.Count
	}
	return total
}

// ResolveByIndex maps a flat global ordinal (0 = most recent asset) to its
// renderable. The owning bucket is fetched and waited for if its assets are
// not cached yet.
func (s *Service) ResolveByIndex(ctx context.Context, index int) (RenderableAsset, error) {
	if index < 0 {
		return RenderableAsset{}, ErrOutOfRange
	}

	directory := s.snapshotDirectory()
	seen := 0
	for _, b := range directory {
		if index < seen+b.Count {
			position := index - seen
			if item, ok := s.GetAsset(b.Timestamp, position); ok {
				return item, nil
			}
			items, err := s.fetchBlocking(ctx, b.Timestamp)
			if err != nil {
				return RenderableAsset{}, err
			}
			if position >= len(items) {
				return RenderableAsset{}, ErrNotFound
			}
			return items[position], nil
		}
		seen += b.Count
	}
	return RenderableAsset{}, ErrOutOfRange
}

// LocateIndex is the best-effort inverse of ResolveByIndex: it scans cached
// buckets in descending-time order for the asset id and returns its flat
// ordinal. Buckets without cached assets are treated as not containing the
// target; callers needing guaranteed resolution must fetch them first.
func (s *Service) LocateIndex(id string) (int, bool) {
	directory := s.snapshotDirectory()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range directory {
		entry, ok := s.entries[b.Timestamp]
		if !ok || !entry.state.Loaded() {
			continue
		}
		for position, item := range entry.items {
			if item.ID == id {
				return b.CumulativeIndex + position, true
			}
		}
	}
	return 0, false
}
