// tests/integration/main_test.go
package integration

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"shelfdesk/internal/apperr"
	"shelfdesk/internal/catalog"
	"shelfdesk/internal/circulation"
	"shelfdesk/internal/config"
	"shelfdesk/internal/membership"
	"shelfdesk/internal/storage"
)

// TestSuite wires the real services against a live MongoDB. Tests skip when
// SHELFDESK_TEST_MONGODB_URI is unset, so the unit suite stays runnable
// without infrastructure.
type TestSuite struct {
	store       *storage.Store
	catalog     catalog.Service
	circulation circulation.Service
	membership  membership.Service
}

func setupTestSuite(t *testing.T) *TestSuite {
	uri := os.Getenv("SHELFDESK_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("SHELFDESK_TEST_MONGODB_URI not set, skipping integration tests")
	}

	cfg := &config.Config{
		MongoURI:        config.EnsureDatabase(uri, "shelfdesk_test"),
		MongoDatabase:   "shelfdesk_test",
		ConnectTimeout:  5 * time.Second,
		QueryTimeout:    5 * time.Second,
		MaxConnectRetry: 2,
		JWTSecret:       "integration-test-secret",
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Connect(ctx, cfg, logger)
	require.NoError(t, err)

	for _, coll := range []*mongo.Collection{
		store.Books(), store.Students(), store.Transactions(), store.Categories(),
	} {
		require.NoError(t, coll.Drop(ctx))
	}

	t.Cleanup(func() {
		store.Close(context.Background())
	})

	return &TestSuite{
		store:       store,
		catalog:     catalog.NewService(store, logger),
		circulation: circulation.NewService(store, logger),
		membership:  membership.NewService(store, membership.NewTokenIssuer(cfg.JWTSecret), logger),
	}
}

func (ts *TestSuite) addBook(t *testing.T, title string, copies int) *catalog.Book {
	book, err := ts.catalog.Add(context.Background(), &catalog.Book{
		Title:     title,
		Author:    "Integration Author",
		Quantity:  copies,
		Available: copies,
	})
	require.NoError(t, err)
	return book
}

func (ts *TestSuite) registerStudent(t *testing.T, name string) *membership.Student {
	student, err := ts.membership.Register(context.Background(), membership.RegisterRequest{
		Name:     name,
		Class:    "10",
		Section:  "A",
		Password: "SecurePass123!",
	})
	require.NoError(t, err)
	return student
}

func TestIssueReturnFlow(t *testing.T) {
	ts := setupTestSuite(t)
	ctx := context.Background()

	student := ts.registerStudent(t, "Flow Student")
	book := ts.addBook(t, "Integration Testing in Practice", 2)

	txn, err := ts.circulation.Issue(ctx, circulation.IssueRequest{
		StudentID: student.StudentID,
		BookID:    book.BookID,
		IssuedBy:  "librarian",
	})
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusActive, txn.Status)
	assert.Equal(t, circulation.TypeIssue, txn.Type)
	// the Student role gets the 15-day loan window
	assert.WithinDuration(t, txn.IssueDate.AddDate(0, 0, 15), txn.DueDate, time.Second)

	got, err := ts.catalog.Get(ctx, book.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Available)

	returned, err := ts.circulation.Return(ctx, txn.ID.Hex(), "librarian")
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusClosed, returned.Status)
	assert.Equal(t, int64(0), returned.FineAmount)
	require.NotNil(t, returned.ReturnDate)

	got, err = ts.catalog.Get(ctx, book.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Available)

	// the closed loan moved from the active to the previous list
	populated, err := ts.membership.Get(ctx, student.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, populated.ActiveTransactions)
	require.Len(t, populated.PrevTransactions, 1)
	assert.Equal(t, txn.ID, populated.PrevTransactions[0].ID)

	// a second return of the same transaction is rejected
	_, err = ts.circulation.Return(ctx, txn.ID.Hex(), "librarian")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestIssueBorrowLimit(t *testing.T) {
	ts := setupTestSuite(t)
	ctx := context.Background()

	student := ts.registerStudent(t, "Heavy Reader")

	for i := 0; i < 3; i++ {
		book := ts.addBook(t, "Limit Book", 1)
		_, err := ts.circulation.Issue(ctx, circulation.IssueRequest{
			StudentID: student.StudentID,
			BookID:    book.BookID,
			IssuedBy:  "librarian",
		})
		require.NoError(t, err)
	}

	extra := ts.addBook(t, "One Too Many", 1)
	_, err := ts.circulation.Issue(ctx, circulation.IssueRequest{
		StudentID: student.StudentID,
		BookID:    extra.BookID,
		IssuedBy:  "librarian",
	})
	assert.ErrorIs(t, err, apperr.ErrLimitExceeded)

	// the rejected issue must not consume the copy
	got, err := ts.catalog.Get(ctx, extra.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Available)
}

func TestIssueLastCopy(t *testing.T) {
	ts := setupTestSuite(t)
	ctx := context.Background()

	first := ts.registerStudent(t, "First Borrower")
	second := ts.registerStudent(t, "Second Borrower")
	book := ts.addBook(t, "Single Copy Title", 1)

	_, err := ts.circulation.Issue(ctx, circulation.IssueRequest{
		StudentID: first.StudentID,
		BookID:    book.BookID,
		IssuedBy:  "librarian",
	})
	require.NoError(t, err)

	_, err = ts.circulation.Issue(ctx, circulation.IssueRequest{
		StudentID: second.StudentID,
		BookID:    book.BookID,
		IssuedBy:  "librarian",
	})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)

	got, err := ts.catalog.Get(ctx, book.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Available)
}

func TestIssueUnknownStudentAndBook(t *testing.T) {
	ts := setupTestSuite(t)
	ctx := context.Background()

	book := ts.addBook(t, "Orphan Book", 1)
	_, err := ts.circulation.Issue(ctx, circulation.IssueRequest{
		StudentID: "RMS0000000",
		BookID:    book.BookID,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	student := ts.registerStudent(t, "Hopeful Reader")
	_, err = ts.circulation.Issue(ctx, circulation.IssueRequest{
		StudentID: student.StudentID,
		BookID:    "no-such-book",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSignInFlow(t *testing.T) {
	ts := setupTestSuite(t)
	ctx := context.Background()

	student := ts.registerStudent(t, "Login Student")

	got, token, err := ts.membership.SignIn(ctx, student.StudentID, "", "SecurePass123!")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, student.StudentID, got.StudentID)

	_, _, err = ts.membership.SignIn(ctx, student.StudentID, "", "wrong-password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, _, err = ts.membership.SignIn(ctx, "RMS9999999", "", "SecurePass123!")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOverdueFineOnReturn(t *testing.T) {
	ts := setupTestSuite(t)
	ctx := context.Background()

	student := ts.registerStudent(t, "Late Returner")
	book := ts.addBook(t, "Overdue Book", 1)

	txn, err := ts.circulation.Issue(ctx, circulation.IssueRequest{
		StudentID: student.StudentID,
		BookID:    book.BookID,
	})
	require.NoError(t, err)

	// push the due date into the past via the admin override; 50 hours late
	// rounds up to a three-day fine
	overdueDue := time.Now().Add(-50 * time.Hour)
	err = ts.circulation.Update(ctx, txn.ID.Hex(), map[string]any{"due_date": overdueDue})
	require.NoError(t, err)

	returned, err := ts.circulation.Return(ctx, txn.ID.Hex(), "librarian")
	require.NoError(t, err)
	assert.Equal(t, int64(3*circulation.FinePerDay), returned.FineAmount)
}
