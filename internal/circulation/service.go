// internal/circulation/service.go
package circulation

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// Service defines the interface for the circulation service.
type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*Transaction, error)
	Return(ctx context.Context, transactionID, returnedTo string) (*Transaction, error)
	All(ctx context.Context) ([]Transaction, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Remove(ctx context.Context, id string) error

	// Scan resolves a barcode to a book (by bookId or isbn) or a student
	// (by student_id or roll_number). A miss yields (nil, nil).
	Scan(ctx context.Context, kind, code string) (bson.M, error)
}
