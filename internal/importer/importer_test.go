// internal/importer/importer_test.go
package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowCols() map[string]int {
	return map[string]int{
		"Title of the book":       0,
		"Author":                  1,
		"Subject":                 2,
		"class":                   3,
		"Publication":             4,
		"Edition":                 5,
		"Price of the book in Rs": 6,
		"Book Condition":          7,
		"Almirah no":              8,
		"Reck no":                 9,
	}
}

func TestBookFromRow(t *testing.T) {
	record := []string{
		"Concepts of Physics ", "H.C. Verma", "Physics", "11",
		"Bharati Bhawan", "2019", "Rs. 495/-", "Good", "4", "2",
	}
	book, ok := BookFromRow(rowCols(), record)
	assert.True(t, ok)
	assert.Equal(t, "Concepts of Physics", book.Title)
	assert.Equal(t, "H.C. Verma", book.Author)
	assert.Equal(t, "11", book.GradeLevel)
	assert.Equal(t, 495.0, book.Price)
	// almirah 4 is a valid key, so the category is assigned directly
	assert.Equal(t, "4", book.AlmirahNo)
	assert.Equal(t, "SCIENCE", book.Category)
	assert.Equal(t, 1, book.Quantity)
	assert.Equal(t, 1, book.Available)
}

func TestBookFromRowInvalidAlmirah(t *testing.T) {
	record := []string{
		"Some Book", "", "", "", "", "", "", "", "99", "",
	}
	book, ok := BookFromRow(rowCols(), record)
	assert.True(t, ok)
	// unknown shelf numbers are dropped rather than guessed at
	assert.Equal(t, "", book.AlmirahNo)
	assert.Equal(t, "", book.Category)
}

func TestBookFromRowSkipsMissingTitle(t *testing.T) {
	record := []string{"   ", "Somebody", "", "", "", "", "", "", "", ""}
	_, ok := BookFromRow(rowCols(), record)
	assert.False(t, ok)
}

func TestBookFromRowShortRecord(t *testing.T) {
	// rows truncated by the exporter still map what they have
	record := []string{"Short Row Book", "Author X"}
	book, ok := BookFromRow(rowCols(), record)
	assert.True(t, ok)
	assert.Equal(t, "Short Row Book", book.Title)
	assert.Equal(t, "Author X", book.Author)
	assert.Equal(t, 0.0, book.Price)
}

func TestCleanPrice(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"Rs. 495/-", 495},
		{"120.50", 120.5},
		{"₹ 85", 85},
		{"n/a", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanPrice(tc.raw), "raw %q", tc.raw)
	}
}
