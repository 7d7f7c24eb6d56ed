// internal/circulation/domain.go
package circulation

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction types and statuses as stored on the wire.
const (
	TypeIssue  = "Issue"
	TypeReturn = "Return"
	TypeRenew  = "Renew"

	StatusActive = "Active"
	StatusClosed = "Closed"
)

// FinePerDay is the late fee in rupees per overdue calendar day.
const FinePerDay = 2

// Transaction is one issue/return event. Created on issue, mutated exactly
// once on return; admin override is the only later mutation path.
type Transaction struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	StudentID  string             `bson:"student_id" json:"student_id"`
	BookID     string             `bson:"book_id" json:"book_id"`
	IssueDate  time.Time          `bson:"issue_date" json:"issue_date"`
	DueDate    time.Time          `bson:"due_date" json:"due_date"`
	ReturnDate *time.Time         `bson:"return_date,omitempty" json:"return_date,omitempty"`
	FineAmount int64              `bson:"fine_amount" json:"fine_amount"`
	IssuedBy   string             `bson:"issued_by,omitempty" json:"issued_by"`
	ReturnedTo string             `bson:"returned_to,omitempty" json:"returned_to"`
	Type       string             `bson:"transaction_type" json:"transaction_type"`
	Status     string             `bson:"transaction_status" json:"transaction_status"`
	CreatedAt  time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt  time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Returned reports whether the transaction has been closed by a return.
func (t *Transaction) Returned() bool { return t.ReturnDate != nil }

// LoanPolicy is the per-role borrowing allowance.
type LoanPolicy struct {
	MaxActive int
	LoanDays  int
}

// PolicyFor returns the loan policy for a borrower role. Students get the
// tight allowance; teachers and other staff get the wide one. An empty role
// means Student.
func PolicyFor(role string) LoanPolicy {
	if role == "" || role == "Student" {
		return LoanPolicy{MaxActive: 3, LoanDays: 15}
	}
	return LoanPolicy{MaxActive: 5, LoanDays: 30}
}

// CalculateFine computes the late fee for a return. Any overdue fraction of
// a day counts as a full day; on-time or early returns owe nothing.
func CalculateFine(dueDate, returnDate time.Time) int64 {
	diffDays := int64(math.Ceil(returnDate.Sub(dueDate).Hours() / 24))
	if diffDays > 0 {
		return diffDays * FinePerDay
	}
	return 0
}

// IssueRequest carries the inputs of the issue operation.
type IssueRequest struct {
	StudentID string `json:"student_id"`
	BookID    string `json:"book_id"`
	IssuedBy  string `json:"issued_by"`
	Role      string `json:"role"`
}
