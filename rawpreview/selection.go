package rawpreview

import (
	"sort"
	"strconv"
)

func itoaIfdIndex(n int) string {
	return strconv.Itoa(n)
}

// selectByPriorityThenTargetRange picks the highest-priority preview,
// breaking ties by preferring whichever candidate falls in the caller's
// target size range and, among those, the larger one. This is the
// CR2/NEF-family tie-break.
func selectByPriorityThenTargetRange(previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	best := previews[0]
	highest := -1
	for _, p := range previews {
		switch {
		case p.Priority > highest:
			highest = p.Priority
			best = p
		case p.Priority == highest:
			bestInRange := best.inTargetRange(previewMinSize, previewMaxSize)
			pInRange := p.inTargetRange(previewMinSize, previewMaxSize)
			if pInRange && (!bestInRange || p.Size > best.Size) {
				best = p
			}
		}
	}
	return best, true
}

// selectArwPreview mirrors selectByPriorityThenTargetRange but, when both
// the current best and the candidate fall outside the target range, breaks
// the tie by preferring whichever is closer to a 1MiB target size. This
// extra fallback is unique to ARW among this package's format selectors.
func selectArwPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	const oneMiB = 1024 * 1024
	best := previews[0]
	highest := -1
	for _, p := range previews {
		switch {
		case p.Priority > highest:
			highest = p.Priority
			best = p
		case p.Priority == highest:
			bestInRange := best.inTargetRange(previewMinSize, previewMaxSize)
			pInRange := p.inTargetRange(previewMinSize, previewMaxSize)
			switch {
			case pInRange && (!bestInRange || p.Size > best.Size):
				best = p
			case !bestInRange && !pInRange:
				bestDiff := absDiffUint32(best.Size, oneMiB)
				pDiff := absDiffUint32(p.Size, oneMiB)
				if pDiff < bestDiff {
					best = p
				}
			}
		}
	}
	return best, true
}

func absDiffUint32(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// selectByPriorityThenLargerSize picks the highest-priority preview,
// breaking ties purely by size with no target-range awareness — the
// DNG/ORF/RW2-family tie-break.
func selectByPriorityThenLargerSize(previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	best := previews[0]
	highest := -1
	for _, p := range previews {
		if p.Priority > highest || (p.Priority == highest && p.Size > best.Size) {
			highest = p.Priority
			best = p
		}
	}
	return best, true
}

// previewMapping controls medium/full selection for a format: fixed
// positional indices into the preview list returned by ExtractAllPreviews,
// or smart size-based selection when useSmart is set.
type previewMapping struct {
	fullIndex   int
	mediumIndex int
	useSmart    bool
}

// formatMediumFullMapping gives each non-NEF format's fixed full/medium
// preview position within its own ExtractPreviews output order.
var formatMediumFullMapping = map[RawFormat]previewMapping{
	FormatARW: {fullIndex: 2, mediumIndex: 0},
	FormatCR2: {fullIndex: 0, mediumIndex: 1},
	FormatCR3: {fullIndex: 2, mediumIndex: 1},
	FormatDNG: {fullIndex: 0, mediumIndex: 1},
	FormatRAF: {fullIndex: 0, mediumIndex: 1},
	FormatORF: {fullIndex: 0, mediumIndex: 1},
	FormatRW2: {fullIndex: 0, mediumIndex: 1},
}

// nikonModelMapping maps Nikon camera bodies either to the fixed-position
// mapping or, for bodies known to return previews out of their traditional
// IFD0/IFD1 order, to a smart, size-based one. Entries are matched longest-model-string-first
// (see the init below), so "Z 6II" and "Z 6III" are checked before the "Z 6"
// entry and can never be shadowed by it. See DESIGN.md.
var nikonModelMapping = []struct {
	model   string
	mapping previewMapping
}{
	{"Z 6III", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"Z 7II", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"Z 6II", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"Z fc", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"D7500", previewMapping{fullIndex: 0, mediumIndex: 1}},
	{"D7200", previewMapping{fullIndex: 0, mediumIndex: 1}},
	{"D5600", previewMapping{fullIndex: 0, mediumIndex: 1}},
	{"D3500", previewMapping{fullIndex: 0, mediumIndex: 1}},
	{"Z 9", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"Z 8", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"Z 6", previewMapping{fullIndex: 0, mediumIndex: 1}},
	{"Z 5", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"Z 30", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"D850", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"D780", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
	{"D750", previewMapping{fullIndex: 0, mediumIndex: 1}},
	{"D810", previewMapping{fullIndex: 0, mediumIndex: 1}},
	{"D610", previewMapping{fullIndex: 0, mediumIndex: 1}},
	{"D6", previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}},
}

func init() {
	sort.SliceStable(nikonModelMapping, func(i, j int) bool {
		return len(nikonModelMapping[i].model) > len(nikonModelMapping[j].model)
	})
}

func nefMapping(model string) previewMapping {
	for _, entry := range nikonModelMapping {
		if containsString(model, entry.model) {
			return entry.mapping
		}
	}
	return previewMapping{fullIndex: -1, mediumIndex: -2, useSmart: true}
}

func containsString(haystack, needle string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return len(needle) == 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func largestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	best := previews[0]
	for _, p := range previews[1:] {
		if p.Size > best.Size {
			best = p
		}
	}
	return best, true
}

func secondLargestPreview(previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	if len(previews) == 1 {
		return previews[0], true
	}
	sorted := append([]PreviewInfo(nil), previews...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Size > sorted[j].Size })
	return sorted[1], true
}

// selectMediumPreview applies formatMediumFullMapping (or, for NEF, the
// camera-model-aware nefMapping) to pick the medium-quality preview from an
// already-extracted preview list, in the order ExtractAllPreviews returned
// it.
func selectMediumPreview(format RawFormat, model string, previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	mapping, useNef := previewMappingFor(format, model)
	if useNef && mapping.useSmart {
		return secondLargestPreview(previews)
	}
	idx := mapping.mediumIndex
	if idx >= 0 && idx < len(previews) {
		return previews[idx], true
	}
	if len(previews) > 1 {
		return previews[1], true
	}
	return previews[0], true
}

// selectFullPreview is selectMediumPreview's counterpart for the
// full-resolution position.
func selectFullPreview(format RawFormat, model string, previews []PreviewInfo) (PreviewInfo, bool) {
	if len(previews) == 0 {
		return PreviewInfo{}, false
	}
	mapping, useNef := previewMappingFor(format, model)
	if useNef && mapping.useSmart {
		return largestPreview(previews)
	}
	idx := mapping.fullIndex
	if idx >= 0 && idx < len(previews) {
		return previews[idx], true
	}
	return previews[0], true
}

// refineSelection applies ExtractionOptions' target size range and preferred
// quality on top of a format parser's own SelectBestPreview pick. If the
// vendor pick already falls inside [TargetMinSize, TargetMaxSize] it's kept
// as-is; otherwise every candidate is filtered to that range (falling back
// to the full candidate list if none qualify), then sorted by preferred-
// quality match first and size second, and the top of that order wins.
func refineSelection(previews []PreviewInfo, formatBest PreviewInfo, opts ExtractionOptions) PreviewInfo {
	if formatBest.Size >= opts.TargetMinSize && formatBest.Size <= opts.TargetMaxSize {
		return formatBest
	}

	candidates := make([]PreviewInfo, 0, len(previews))
	for _, p := range previews {
		if p.Size >= opts.TargetMinSize && p.Size <= opts.TargetMaxSize {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, previews...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iMatch := candidates[i].Quality == opts.PreferredQuality
		jMatch := candidates[j].Quality == opts.PreferredQuality
		if iMatch != jMatch {
			return iMatch
		}
		return candidates[i].Size > candidates[j].Size
	})
	return candidates[0]
}

func previewMappingFor(format RawFormat, model string) (previewMapping, bool) {
	if format == FormatNEF {
		return nefMapping(model), true
	}
	if m, ok := formatMediumFullMapping[format]; ok {
		return m, false
	}
	return previewMapping{fullIndex: 0, mediumIndex: 0}, false
}
