// Package seqset implements sequence-set parsing and formatting (spec.md
// Glossary "Sequence set"): a small, pure, independent module exposed only
// as an interface per spec.md §1.
package seqset

import (
	"fmt"
	"strconv"
	"strings"
)

// Item is one comma-separated member of a sequence set: either a single
// number (IsRange == false) or a Lo:Hi range. Lo/HiStar marks "*", meaning
// the highest existing message/UID number.
type Item struct {
	Lo      uint32
	LoStar  bool
	Hi      uint32
	HiStar  bool
	IsRange bool
}

// SeqSet is an ordered sequence-set, e.g. "1:3,5,7:*".
type SeqSet []Item

func parseNum(s string) (uint32, bool, error) {
	if s == "*" {
		return 0, true, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("seqset: invalid number %q: %w", s, err)
	}
	if v == 0 {
		return 0, false, fmt.Errorf("seqset: sequence numbers are 1-based, got 0")
	}
	return uint32(v), false, nil
}

// Parse parses a sequence-set string such as "1:3,5,7:*".
func Parse(s string) (SeqSet, error) {
	if s == "" {
		return nil, fmt.Errorf("seqset: empty sequence set")
	}
	parts := strings.Split(s, ",")
	set := make(SeqSet, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("seqset: empty member in %q", s)
		}
		if idx := strings.IndexByte(p, ':'); idx >= 0 {
			lo, loStar, err := parseNum(p[:idx])
			if err != nil {
				return nil, err
			}
			hi, hiStar, err := parseNum(p[idx+1:])
			if err != nil {
				return nil, err
			}
			set = append(set, Item{Lo: lo, LoStar: loStar, Hi: hi, HiStar: hiStar, IsRange: true})
			continue
		}
		lo, loStar, err := parseNum(p)
		if err != nil {
			return nil, err
		}
		set = append(set, Item{Lo: lo, LoStar: loStar})
	}
	return set, nil
}

func formatNum(v uint32, star bool) string {
	if star {
		return "*"
	}
	return strconv.FormatUint(uint64(v), 10)
}

// Format renders a SeqSet back to its wire string form. format(parse(s)) ==
// s for any syntactically valid s (spec.md §8 testable property 3).
func Format(set SeqSet) string {
	parts := make([]string, len(set))
	for i, it := range set {
		if it.IsRange {
			parts[i] = formatNum(it.Lo, it.LoStar) + ":" + formatNum(it.Hi, it.HiStar)
		} else {
			parts[i] = formatNum(it.Lo, it.LoStar)
		}
	}
	return strings.Join(parts, ",")
}
