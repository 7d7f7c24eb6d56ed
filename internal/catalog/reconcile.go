// internal/catalog/reconcile.go
package catalog

import "strings"

// The nine physical almirahs map to a fixed category vocabulary. Order
// matters: fuzzy matching walks the list front to back and the first hit
// wins.
var almirahCategories = []struct {
	Key      string
	Category string
}{
	{"1", "FICTIONS"},
	{"2", "ISC BOOKS"},
	{"3", "MATHEMATICS"},
	{"4", "SCIENCE"},
	{"5", "ENGLISH"},
	{"6", "HINDI LITERATURE"},
	{"7", "HINDI LANGUAGE"},
	{"8", "SOCIAL SCIENCE"},
	{"9", "SPRITUAL/ PRE-PRIMARY"},
}

// Keywords that pull free-text metadata into an almirah when nothing else
// matches.
var categoryKeywords = map[string][]string{
	"1": {"fiction", "novel", "story", "tale", "fable"},
	"2": {"isc", "intermediate", "senior secondary"},
	"3": {"mathematics", "math", "algebra", "geometry", "arithmetic"},
	"4": {"science", "physics", "chemistry", "biology"},
	"5": {"english", "grammar", "literature", "language"},
	"6": {"hindi literature", "hindi sahitya", "hindi lit"},
	"7": {"hindi language", "hindi", "bhasha"},
	"8": {"social science", "history", "civics", "geography", "political science", "social studies"},
	"9": {"spiritual", "pre-primary", "moral", "value education", "religion", "ethics"},
}

// CategoryFor returns the canonical category for an almirah key, or "" when
// the key is not part of the reference map.
func CategoryFor(almirahNo string) string {
	for _, e := range almirahCategories {
		if e.Key == almirahNo {
			return e.Category
		}
	}
	return ""
}

// MatchKind records which rule resolved a reconciliation.
type MatchKind int

const (
	// MatchNone means no rule applied and the record must be left as is.
	MatchNone MatchKind = iota
	// MatchDirect means the stored almirah number is a valid key.
	MatchDirect
	// MatchSubstring means the stored category text contains a canonical name.
	MatchSubstring
	// MatchExact means the stored category text equals a canonical name.
	MatchExact
	// MatchFuzzy means a keyword hit in title/subject/description.
	MatchFuzzy
)

func (k MatchKind) String() string {
	switch k {
	case MatchDirect:
		return "direct"
	case MatchSubstring:
		return "substring"
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Resolution is the outcome of reconciling one record.
type Resolution struct {
	AlmirahNo string
	Category  string
	Kind      MatchKind
}

// Matched reports whether any rule applied.
func (r Resolution) Matched() bool { return r.Kind != MatchNone }

// Reconcile normalizes a record's shelf number and category against the
// reference map. Rules apply in strict priority order and the first hit
// wins; when nothing matches the inputs are returned untouched with
// MatchNone so callers skip the write. The function is pure and idempotent:
// feeding a resolved pair back in yields the same pair via the direct rule.
func Reconcile(almirahNo, category, title, subject, description string) Resolution {
	almirahNo = strings.TrimSpace(almirahNo)
	category = strings.TrimSpace(category)
	if category == "" {
		category = strings.TrimSpace(subject)
	}

	// 1. The stored almirah number is authoritative when it is a valid key.
	if ref := CategoryFor(almirahNo); ref != "" {
		return Resolution{AlmirahNo: almirahNo, Category: ref, Kind: MatchDirect}
	}

	lower := strings.ToLower(category)

	// 2. Category text containing a canonical name adopts it.
	for _, e := range almirahCategories {
		if lower != "" && strings.Contains(lower, strings.ToLower(e.Category)) {
			return Resolution{AlmirahNo: e.Key, Category: e.Category, Kind: MatchSubstring}
		}
	}

	// 3. Exact (case-insensitive) category name.
	for _, e := range almirahCategories {
		if lower != "" && lower == strings.ToLower(e.Category) {
			return Resolution{AlmirahNo: e.Key, Category: e.Category, Kind: MatchExact}
		}
	}

	// 4. Keyword scan over the concatenated free text, key order as tie-break.
	text := strings.ToLower(title + " " + subject + " " + description)
	for _, e := range almirahCategories {
		for _, kw := range categoryKeywords[e.Key] {
			if strings.Contains(text, kw) {
				return Resolution{AlmirahNo: e.Key, Category: e.Category, Kind: MatchFuzzy}
			}
		}
	}

	// 5. Unmatched: report the inputs back so nothing is overwritten.
	return Resolution{AlmirahNo: almirahNo, Category: category, Kind: MatchNone}
}

// ReconcileBook applies Reconcile to a book and reports whether the stored
// values need updating. Unmatched records never need updating.
func ReconcileBook(b *Book) (Resolution, bool) {
	res := Reconcile(b.AlmirahNo, b.Category, b.Title, b.Subject, b.Description)
	if !res.Matched() {
		return res, false
	}
	return res, b.AlmirahNo != res.AlmirahNo || b.Category != res.Category
}
