// internal/membership/domain.go
package membership

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shelfdesk/internal/circulation"
)

// DefaultPhoto is the placeholder portrait for new accounts.
const DefaultPhoto = "/assets/images/student_placeholder.png"

// Student is a borrower identity. Staff accounts use the same collection,
// distinguished by IsAdmin and Class == "Teacher".
type Student struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	StudentID     string             `bson:"student_id" json:"student_id"`
	Name          string             `bson:"name" json:"name"`
	Class         string             `bson:"class" json:"class"`
	Section       string             `bson:"section,omitempty" json:"section"`
	RollNumber    string             `bson:"roll_number,omitempty" json:"roll_number"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	Password      string             `bson:"password" json:"-"`
	IsAdmin       bool               `bson:"isAdmin" json:"isAdmin"`
	Phone         string             `bson:"phone,omitempty" json:"phone"`
	ParentContact string             `bson:"parent_contact,omitempty" json:"parent_contact"`
	Address       string             `bson:"address,omitempty" json:"address"`
	Photo         string             `bson:"photo,omitempty" json:"photo"`
	DateOfJoining time.Time          `bson:"date_of_joining,omitempty" json:"date_of_joining"`
	Status        string             `bson:"status,omitempty" json:"status"`

	// A transaction reference lives in exactly one of these two lists.
	ActiveTransactions []primitive.ObjectID `bson:"activeTransactions" json:"activeTransactions"`
	PrevTransactions   []primitive.ObjectID `bson:"prevTransactions" json:"prevTransactions"`

	CreatedAt time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// PopulatedStudent is a student with the transaction references resolved to
// full records, as returned by the profile endpoints.
type PopulatedStudent struct {
	Student
	ActiveTransactions []circulation.Transaction `json:"activeTransactions"`
	PrevTransactions   []circulation.Transaction `json:"prevTransactions"`
}

// RegisterRequest carries the admin "create student" inputs.
type RegisterRequest struct {
	StudentID     string `json:"student_id"`
	Name          string `json:"name"`
	Class         string `json:"class"`
	Section       string `json:"section"`
	RollNumber    string `json:"roll_number"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	ParentContact string `json:"parent_contact"`
	Address       string `json:"address"`
	Password      string `json:"password"`
	IsAdmin       bool   `json:"isAdmin"`
}
