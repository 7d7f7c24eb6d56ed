// internal/membership/service.go
package membership

import "context"

// Service defines the interface for the membership service.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Student, error)
	// SignIn authenticates by student_id or email and returns the student
	// together with a session token.
	SignIn(ctx context.Context, studentID, email, password string) (*Student, string, error)

	Get(ctx context.Context, id string) (*PopulatedStudent, error)
	All(ctx context.Context) ([]PopulatedStudent, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Remove(ctx context.Context, id string) error

	MoveToActive(ctx context.Context, studentID, transactionID string) error
	MoveToPrev(ctx context.Context, studentID, transactionID string) error
}
