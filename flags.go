package imap

import "strings"

// FlagWildcard is the canonical representation of the PERMANENTFLAGS
// wildcard marker "\*", meaning the mailbox accepts arbitrary keyword flags.
const FlagWildcard = "wildcard"

// systemFlags maps the backslash-prefixed IMAP system flags (case
// insensitive) to their canonical lowercase token, per spec.md §4.2
// "Flag normalization".
var systemFlags = map[string]string{
	"answered":      "answered",
	"flagged":       "flagged",
	"deleted":       "deleted",
	"seen":          "seen",
	"draft":         "draft",
	"recent":        "recent",
	"*":             FlagWildcard,
	"noselect":      "noselect",
	"haschildren":   "haschildren",
	"hasnochildren": "hasnochildren",
	"subscribed":    "subscribed",
	"drafts":        "drafts",
	"sent":          "sent",
	"trash":         "trash",
	"junk":          "junk",
	"archive":       "archive",
	"all":           "all",
	"marked":        "marked",
	"unmarked":      "unmarked",
	"noinferiors":   "noinferiors",
	"remote":        "remote",
	"nonexistent":   "nonexistent",
}

// NormalizeFlag maps a raw flag token (e.g. `\Seen`, `\HasChildren`, a bare
// keyword) to its canonical form per spec.md §4.2. Backslash flags not in
// the known system/list-flag set are lowercased as-is; keyword flags (no
// leading backslash) pass through unchanged.
func NormalizeFlag(raw string) string {
	if !strings.HasPrefix(raw, `\`) {
		return raw
	}
	bare := strings.ToLower(raw[1:])
	if canonical, ok := systemFlags[bare]; ok {
		return canonical
	}
	return bare
}

// FlagSet is an unordered collection of normalized flag tokens.
type FlagSet map[string]bool

// NewFlagSet builds a FlagSet out of raw flag tokens, normalizing each.
func NewFlagSet(raw ...string) FlagSet {
	set := make(FlagSet, len(raw))
	for _, r := range raw {
		set[NormalizeFlag(r)] = true
	}
	return set
}

// Has reports whether the set contains the given canonical flag.
func (s FlagSet) Has(flag string) bool {
	return s[flag]
}

// Slice returns the set's members in indeterminate order.
func (s FlagSet) Slice() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	return out
}
