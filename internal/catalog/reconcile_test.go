// internal/catalog/reconcile_test.go
package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestReconcileDirectKeyWins(t *testing.T) {
	// a valid almirah number forces the canonical category regardless of
	// whatever text is stored
	res := Reconcile("3", "Old Math Stuff", "", "", "")
	assert.Equal(t, MatchDirect, res.Kind)
	assert.Equal(t, "3", res.AlmirahNo)
	assert.Equal(t, "MATHEMATICS", res.Category)
}

func TestReconcileSubstring(t *testing.T) {
	res := Reconcile("", "shelf of FICTIONS and misc", "", "", "")
	assert.Equal(t, MatchSubstring, res.Kind)
	assert.Equal(t, "1", res.AlmirahNo)
	assert.Equal(t, "FICTIONS", res.Category)
}

func TestReconcileCategoryFallsBackToSubject(t *testing.T) {
	res := Reconcile("", "", "", "hindi literature books", "")
	assert.Equal(t, MatchSubstring, res.Kind)
	assert.Equal(t, "6", res.AlmirahNo)
	assert.Equal(t, "HINDI LITERATURE", res.Category)
}

func TestReconcileFuzzyTitleKeyword(t *testing.T) {
	res := Reconcile("", "", "The Great Fable Collection", "", "")
	assert.Equal(t, MatchFuzzy, res.Kind)
	assert.Equal(t, "1", res.AlmirahNo)
	assert.Equal(t, "FICTIONS", res.Category)
}

func TestReconcileFuzzyKeyOrderTieBreak(t *testing.T) {
	// "novel" (key 1) and "physics" (key 4) both hit; key order wins
	res := Reconcile("", "", "A Novel Approach to Physics", "", "")
	assert.Equal(t, MatchFuzzy, res.Kind)
	assert.Equal(t, "1", res.AlmirahNo)
}

func TestReconcileUnmatchedLeavesInputsAlone(t *testing.T) {
	res := Reconcile("42", "Woodworking", "Birdhouse Plans", "Carpentry", "")
	assert.False(t, res.Matched())
	assert.Equal(t, "42", res.AlmirahNo)
	assert.Equal(t, "Woodworking", res.Category)

	b := &Book{AlmirahNo: "42", Category: "Woodworking", Title: "Birdhouse Plans"}
	_, needsUpdate := ReconcileBook(b)
	assert.False(t, needsUpdate)
}

func TestReconcileBookNoopWhenAlreadyCanonical(t *testing.T) {
	b := &Book{AlmirahNo: "5", Category: "ENGLISH", Title: "Wren & Martin"}
	res, needsUpdate := ReconcileBook(b)
	assert.Equal(t, MatchDirect, res.Kind)
	assert.False(t, needsUpdate)
}

func TestReconcileIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		almirah := rapid.StringMatching(`[0-9A-Za-z /-]{0,12}`).Draw(t, "almirah")
		category := rapid.StringMatching(`[0-9A-Za-z /-]{0,24}`).Draw(t, "category")
		title := rapid.StringMatching(`[0-9A-Za-z /-]{0,24}`).Draw(t, "title")
		subject := rapid.StringMatching(`[0-9A-Za-z /-]{0,24}`).Draw(t, "subject")
		desc := rapid.StringMatching(`[0-9A-Za-z /-]{0,24}`).Draw(t, "desc")

		first := Reconcile(almirah, category, title, subject, desc)
		second := Reconcile(first.AlmirahNo, first.Category, title, subject, desc)

		assert.Equal(t, first.AlmirahNo, second.AlmirahNo)
		assert.Equal(t, first.Category, second.Category)
	})
}

func TestCategoryFor(t *testing.T) {
	assert.Equal(t, "SPRITUAL/ PRE-PRIMARY", CategoryFor("9"))
	assert.Equal(t, "", CategoryFor("10"))
	assert.Equal(t, "", CategoryFor(""))
}

func TestNormalizeLegacy(t *testing.T) {
	b := &Book{LegacyCoverImage: "/covers/old.jpg", Subject: "SCIENCE"}
	b.NormalizeLegacy()
	assert.Equal(t, "/covers/old.jpg", b.CoverImage)
	assert.Equal(t, "", b.LegacyCoverImage)
	assert.Equal(t, "SCIENCE", b.Category)
	assert.Equal(t, "Good", b.BookCondition)

	// canonical field wins over the alias
	b = &Book{CoverImage: "/covers/new.jpg", LegacyCoverImage: "/covers/old.jpg"}
	b.NormalizeLegacy()
	assert.Equal(t, "/covers/new.jpg", b.CoverImage)
}
