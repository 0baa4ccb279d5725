package pipeline

import "sort"

// sortItems orders result items according to the requested policy and
// stamps a contiguous 1-based order onto each item. The input slice is
// sorted in place and returned.
func sortItems(items []RecognitionItem, order SortOrder) []RecognitionItem {
	switch order {
	case SortLeftToRight:
		sort.SliceStable(items, func(a, b int) bool {
			if items[a].Box.X != items[b].Box.X {
				return items[a].Box.X < items[b].Box.X
			}
			return items[a].Box.Y < items[b].Box.Y
		})
	case SortReadingOrder:
		items = readingOrder(items)
	case SortTopToBottom:
		fallthrough
	default:
		sort.SliceStable(items, func(a, b int) bool {
			if items[a].Box.Y != items[b].Box.Y {
				return items[a].Box.Y < items[b].Box.Y
			}
			return items[a].Box.X < items[b].Box.X
		})
	}

	for i := range items {
		items[i].Order = i + 1
	}
	return items
}

// readingOrder clusters items into horizontal bands and reads each band
// left to right. An item joins a band when its vertical extent overlaps
// any band member by more than half the shorter item's height.
func readingOrder(items []RecognitionItem) []RecognitionItem {
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].Box.Y != items[b].Box.Y {
			return items[a].Box.Y < items[b].Box.Y
		}
		return items[a].Box.X < items[b].Box.X
	})

	var bands [][]RecognitionItem
	for _, item := range items {
		placed := false
		for i := range bands {
			if bandContains(bands[i], item) {
				bands[i] = append(bands[i], item)
				placed = true
				break
			}
		}
		if !placed {
			bands = append(bands, []RecognitionItem{item})
		}
	}

	out := items[:0]
	for _, band := range bands {
		sort.SliceStable(band, func(a, b int) bool {
			if band[a].Box.X != band[b].Box.X {
				return band[a].Box.X < band[b].Box.X
			}
			return band[a].Box.Y < band[b].Box.Y
		})
		out = append(out, band...)
	}
	return out
}

func bandContains(band []RecognitionItem, item RecognitionItem) bool {
	for _, member := range band {
		if sameBand(member.Box, item.Box) {
			return true
		}
	}
	return false
}

// sameBand reports whether the vertical extents overlap by more than half
// the height of the shorter box.
func sameBand(a, b BoundingBox) bool {
	overlap := min(a.Bottom(), b.Bottom()) - max(a.Y, b.Y)
	if overlap <= 0 {
		return false
	}
	shorter := min(a.Height, b.Height)
	return overlap*2 > shorter
}
