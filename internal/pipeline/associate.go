package pipeline

import (
	"math"
	"sort"
	"strings"
)

// associate assigns every text fragment to its nearest barcode when the
// center-to-center distance is within tolerance (inclusive). Fragments
// beyond tolerance of every barcode are returned as standalone. Each
// fragment lands in exactly one place.
//
// Distance ties are broken in favor of the barcode whose box top-left has
// the smaller y, then the smaller x, so the assignment is deterministic
// regardless of detector output order.
func associate(barcodes []BarcodeDetection, fragments []TextFragment, tolerance float64) ([]AssociationGroup, []TextFragment) {
	groups := make([]AssociationGroup, len(barcodes))
	for i, bc := range barcodes {
		groups[i] = AssociationGroup{Barcode: bc}
	}
	if len(barcodes) == 0 {
		return groups, fragments
	}

	// Candidate order implements the tie-break: the first barcode with the
	// minimal distance wins because later candidates must be strictly closer.
	order := make([]int, len(barcodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ba, bb := barcodes[order[a]].Box, barcodes[order[b]].Box
		if ba.Y != bb.Y {
			return ba.Y < bb.Y
		}
		return ba.X < bb.X
	})

	var standalone []TextFragment
	for _, frag := range fragments {
		best := -1
		bestDist := math.Inf(1)
		for _, i := range order {
			d := centerDistance(barcodes[i].Box, frag.Box)
			if d < bestDist {
				bestDist = d
				best = i
			}
		}
		if best >= 0 && bestDist <= tolerance {
			groups[best].Fragments = append(groups[best].Fragments, frag)
		} else {
			standalone = append(standalone, frag)
		}
	}

	for i := range groups {
		sortFragments(groups[i].Fragments)
		groups[i].RelatedText = joinFragments(groups[i].Fragments)
	}
	return groups, standalone
}

func centerDistance(a, b BoundingBox) float64 {
	dx := a.CenterX() - b.CenterX()
	dy := a.CenterY() - b.CenterY()
	return math.Hypot(dx, dy)
}

// sortFragments orders fragments by their own top-to-bottom,
// left-to-right position.
func sortFragments(frags []TextFragment) {
	sort.SliceStable(frags, func(a, b int) bool {
		if frags[a].Box.Y != frags[b].Box.Y {
			return frags[a].Box.Y < frags[b].Box.Y
		}
		return frags[a].Box.X < frags[b].Box.X
	})
}

func joinFragments(frags []TextFragment) string {
	if len(frags) == 0 {
		return ""
	}
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.Text
	}
	return strings.Join(parts, " ")
}

// groupBox is the union of the barcode box and all member fragment boxes.
func groupBox(g AssociationGroup) BoundingBox {
	box := g.Barcode.Box
	for _, f := range g.Fragments {
		box = box.Union(f.Box)
	}
	return box
}
