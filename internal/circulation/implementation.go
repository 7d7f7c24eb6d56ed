// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shelfdesk/internal/apperr"
	"shelfdesk/internal/storage"
)

// service implements the Service interface.
type service struct {
	store  *storage.Store
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates a new circulation service instance.
func NewService(store *storage.Store, logger *slog.Logger) Service {
	return &service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("shelfdesk/circulation"),
		now:    time.Now,
	}
}

// borrower is the slice of the student document the workflow needs.
type borrower struct {
	ID                 primitive.ObjectID   `bson:"_id"`
	StudentID          string               `bson:"student_id"`
	ActiveTransactions []primitive.ObjectID `bson:"activeTransactions"`
}

// Issue lends a book to a borrower. All business-rule checks run before any
// write; the availability decrement is a filtered atomic update so two
// issues racing for the last copy cannot both succeed.
func (s *service) Issue(ctx context.Context, req IssueRequest) (*Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Issue",
		trace.WithAttributes(
			attribute.String("student_id", req.StudentID),
			attribute.String("book_id", req.BookID),
		))
	defer span.End()

	if req.StudentID == "" || req.BookID == "" {
		return nil, apperr.Validationf("student_id and book_id are required")
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	var stu borrower
	err := s.store.Students().FindOne(qctx, bson.M{"student_id": req.StudentID}).Decode(&stu)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("student %s", req.StudentID)
	}
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}

	err = s.store.Books().FindOne(qctx, bson.M{"bookId": req.BookID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("book %s", req.BookID)
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}

	policy := PolicyFor(req.Role)
	if len(stu.ActiveTransactions) >= policy.MaxActive {
		return nil, fmt.Errorf("%s has %d active loans: %w",
			req.StudentID, len(stu.ActiveTransactions), apperr.ErrLimitExceeded)
	}

	// Claim a copy. The available>0 filter makes the check-and-decrement a
	// single document write, so the count never goes below zero.
	res, err := s.store.Books().UpdateOne(qctx,
		bson.M{"bookId": req.BookID, "available": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"available": -1}})
	if err != nil {
		return nil, fmt.Errorf("decrement availability: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("book %s: %w", req.BookID, apperr.ErrUnavailable)
	}

	releaseCopy := func() {
		if _, err := s.store.Books().UpdateOne(qctx,
			bson.M{"bookId": req.BookID},
			bson.M{"$inc": bson.M{"available": 1}}); err != nil {
			s.logger.Error("failed to compensate availability", "book_id", req.BookID, "error", err)
		}
	}

	issueDate := s.now()
	txn := &Transaction{
		StudentID: req.StudentID,
		BookID:    req.BookID,
		IssueDate: issueDate,
		DueDate:   issueDate.AddDate(0, 0, policy.LoanDays),
		IssuedBy:  req.IssuedBy,
		Type:      TypeIssue,
		Status:    StatusActive,
		CreatedAt: issueDate,
		UpdatedAt: issueDate,
	}

	ins, err := s.store.Transactions().InsertOne(qctx, txn)
	if err != nil {
		releaseCopy()
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	txn.ID = ins.InsertedID.(primitive.ObjectID)

	_, err = s.store.Students().UpdateOne(qctx,
		bson.M{"_id": stu.ID},
		bson.M{"$push": bson.M{"activeTransactions": txn.ID}})
	if err != nil {
		s.logger.Error("failed to record active transaction, rolling back",
			"student_id", req.StudentID, "transaction_id", txn.ID.Hex(), "error", err)
		if _, derr := s.store.Transactions().DeleteOne(qctx, bson.M{"_id": txn.ID}); derr != nil {
			s.logger.Error("failed to remove orphaned transaction", "transaction_id", txn.ID.Hex(), "error", derr)
		}
		releaseCopy()
		return nil, fmt.Errorf("update student transactions: %w", err)
	}

	s.logger.Info("book issued",
		"student_id", req.StudentID, "book_id", req.BookID,
		"due_date", txn.DueDate, "role", req.Role)
	return txn, nil
}

// Return closes a transaction and computes the fine. The transaction's own
// state change is the primary write; the availability increment and the
// borrower's list move are best-effort and never roll it back.
func (s *service) Return(ctx context.Context, transactionID, returnedTo string) (*Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Return",
		trace.WithAttributes(attribute.String("transaction_id", transactionID)))
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(transactionID)
	if err != nil {
		return nil, apperr.Validationf("invalid transaction id %q", transactionID)
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	var txn Transaction
	err = s.store.Transactions().FindOne(qctx, bson.M{"_id": oid}).Decode(&txn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("transaction %s", transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if txn.Returned() {
		return nil, fmt.Errorf("transaction %s already returned: %w", transactionID, apperr.ErrConflict)
	}

	returnDate := s.now()
	fine := CalculateFine(txn.DueDate, returnDate)

	_, err = s.store.Transactions().UpdateOne(qctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"return_date":        returnDate,
			"returned_to":        returnedTo,
			"fine_amount":        fine,
			"transaction_type":   TypeReturn,
			"transaction_status": StatusClosed,
			"updatedAt":          returnDate,
		}})
	if err != nil {
		return nil, fmt.Errorf("close transaction: %w", err)
	}

	txn.ReturnDate = &returnDate
	txn.ReturnedTo = returnedTo
	txn.FineAmount = fine
	txn.Type = TypeReturn
	txn.Status = StatusClosed
	txn.UpdatedAt = returnDate

	// A book deleted since the issue is skipped, not an error.
	res, err := s.store.Books().UpdateOne(qctx,
		bson.M{"bookId": txn.BookID},
		bson.M{"$inc": bson.M{"available": 1}})
	if err != nil || res.MatchedCount == 0 {
		s.logger.Warn("book not updated on return", "book_id", txn.BookID, "error", err)
	}

	// Likewise a borrower who has since been deleted.
	if err := s.moveToPrevious(qctx, txn.StudentID, oid); err != nil {
		s.logger.Warn("student lists not updated on return",
			"student_id", txn.StudentID, "transaction_id", transactionID, "error", err)
	}

	s.logger.Info("book returned",
		"transaction_id", transactionID, "fine_amount", fine)
	return &txn, nil
}

func (s *service) moveToPrevious(ctx context.Context, studentID string, txnID primitive.ObjectID) error {
	var stu borrower
	err := s.store.Students().FindOne(ctx, bson.M{"student_id": studentID}).Decode(&stu)
	if err != nil {
		return err
	}
	if _, err := s.store.Students().UpdateOne(ctx,
		bson.M{"_id": stu.ID},
		bson.M{"$pull": bson.M{"activeTransactions": txnID}}); err != nil {
		return err
	}
	_, err = s.store.Students().UpdateOne(ctx,
		bson.M{"_id": stu.ID},
		bson.M{"$push": bson.M{"prevTransactions": txnID}})
	return err
}

// All returns every transaction, newest first.
func (s *service) All(ctx context.Context) ([]Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.All")
	defer span.End()

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	cur, err := s.store.Transactions().Find(qctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(qctx)

	transactions := []Transaction{}
	if err := cur.All(qctx, &transactions); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return transactions, nil
}

// Update is the admin override path for closed or mistaken transactions.
func (s *service) Update(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := s.tracer.Start(ctx, "circulation.Update")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validationf("invalid transaction id %q", id)
	}
	delete(fields, "_id")
	delete(fields, "isAdmin")
	if len(fields) == 0 {
		return apperr.Validationf("no fields to update")
	}
	fields["updatedAt"] = s.now()

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	res, err := s.store.Transactions().UpdateOne(qctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("transaction %s", id)
	}
	return nil
}

// Remove deletes a transaction and best-effort drops its reference from the
// owning student's lists.
func (s *service) Remove(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "circulation.Remove")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validationf("invalid transaction id %q", id)
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	var txn Transaction
	err = s.store.Transactions().FindOneAndDelete(qctx, bson.M{"_id": oid}).Decode(&txn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("transaction %s", id)
	}
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if _, err := s.store.Students().UpdateOne(qctx,
		bson.M{"student_id": txn.StudentID},
		bson.M{"$pull": bson.M{
			"activeTransactions": oid,
			"prevTransactions":   oid,
		}}); err != nil {
		s.logger.Warn("student lists not updated on transaction delete",
			"student_id", txn.StudentID, "transaction_id", id, "error", err)
	}
	return nil
}

// Scan resolves a barcode to a raw book or student document.
func (s *service) Scan(ctx context.Context, kind, code string) (bson.M, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.Scan",
		trace.WithAttributes(attribute.String("kind", kind)))
	defer span.End()

	if code == "" {
		return nil, apperr.Validationf("code is required")
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	var coll *mongo.Collection
	var filter bson.M
	var opts *options.FindOneOptions
	if kind == "book" {
		coll = s.store.Books()
		filter = bson.M{"$or": bson.A{bson.M{"bookId": code}, bson.M{"isbn": code}}}
	} else {
		coll = s.store.Students()
		filter = bson.M{"$or": bson.A{bson.M{"student_id": code}, bson.M{"roll_number": code}}}
		opts = options.FindOne().SetProjection(bson.M{"password": 0})
	}

	var doc bson.M
	var err error
	if opts != nil {
		err = coll.FindOne(qctx, filter, opts).Decode(&doc)
	} else {
		err = coll.FindOne(qctx, filter).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan lookup: %w", err)
	}
	return doc, nil
}
