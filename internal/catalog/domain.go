// internal/catalog/domain.go
package catalog

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCover is applied when a book has no cover of its own.
const DefaultCover = "/assets/images/bookcover.JPG"

// Book is a catalog entry. The bson tags are the canonical field set; the
// historical collection also contains documents written with older field
// names, which are folded in by NormalizeLegacy after decode.
type Book struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	BookID          string             `bson:"bookId,omitempty" json:"bookId,omitempty"`
	Title           string             `bson:"title" json:"title"`
	Author          string             `bson:"author,omitempty" json:"author"`
	ISBN            string             `bson:"isbn,omitempty" json:"isbn"`
	Category        string             `bson:"category,omitempty" json:"category"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	Available       int                `bson:"available" json:"available"`
	SlNo            int                `bson:"slNo,omitempty" json:"slNo,omitempty"`
	GradeLevel      string             `bson:"grade_level,omitempty" json:"grade_level"`
	Subject         string             `bson:"subject,omitempty" json:"subject"`
	Description     string             `bson:"description,omitempty" json:"description"`
	PublicationYear int                `bson:"publication_year,omitempty" json:"publication_year,omitempty"`
	CoverImage      string             `bson:"cover_image,omitempty" json:"cover_image"`
	RackLocation    string             `bson:"rack_location,omitempty" json:"rack_location"`
	BookCondition   string             `bson:"book_condition,omitempty" json:"book_condition"`
	Publication     string             `bson:"publication,omitempty" json:"publication"`
	Edition         string             `bson:"edition,omitempty" json:"edition"`
	AlmirahNo       string             `bson:"almirahNo,omitempty" json:"almirahNo"`
	ReckNo          string             `bson:"reckNo,omitempty" json:"reckNo"`
	Price           float64            `bson:"price,omitempty" json:"price,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt       time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`

	// Alias still present in historical documents. Never written by this
	// code; folded into the canonical field by NormalizeLegacy.
	LegacyCoverImage string `bson:"coverImage,omitempty" json:"-"`
}

// NormalizeLegacy folds historical field aliases into the canonical field
// set. It is the single place alias handling lives; callers apply it right
// after decoding and the aliases never propagate further.
func (b *Book) NormalizeLegacy() {
	if b.CoverImage == "" {
		b.CoverImage = b.LegacyCoverImage
	}
	if b.CoverImage == "" {
		b.CoverImage = DefaultCover
	}
	b.LegacyCoverImage = ""
	if b.Category == "" {
		b.Category = b.Subject
	}
	if b.BookCondition == "" {
		b.BookCondition = "Good"
	}
}

// Category is a canonical catalog category used as a controlled vocabulary
// in the admin UI.
type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description"`
	CreatedAt   time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// BookPage is one page of catalog listing results.
type BookPage struct {
	Books       []Book
	TotalBooks  int64
	TotalPages  int
	CurrentPage int
}

// ListQuery carries the catalog listing filters.
type ListQuery struct {
	Page     int
	Limit    int
	All      bool
	Search   string
	Category string
	Grade    string
}
