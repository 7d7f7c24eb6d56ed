// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"shelfdesk/internal/apperr"
	"shelfdesk/internal/circulation"
	"shelfdesk/internal/storage"
)

// defaultPassword is applied when an admin registers a student without one;
// the student is expected to change it on first login.
const defaultPassword = "changeme123"

// service implements the Service interface.
type service struct {
	store   *storage.Store
	tokens  *TokenIssuer
	logger  *slog.Logger
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(store *storage.Store, tokens *TokenIssuer, logger *slog.Logger) Service {
	return &service{
		store:   store,
		tokens:  tokens,
		logger:  logger,
		tracer:  otel.Tracer("shelfdesk/membership"),
		limiter: rate.NewLimiter(rate.Every(time.Minute/20), 20), // 20 auth attempts per minute
	}
}

// Register creates a new student (or staff) account.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*Student, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Register")
	defer span.End()

	if !s.limiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if req.Name == "" || req.Class == "" {
		return nil, apperr.Validationf("name and class are required")
	}

	studentID := req.StudentID
	if studentID == "" {
		studentID = generateStudentID()
	}
	password := req.Password
	if password == "" {
		password = defaultPassword
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	student := &Student{
		StudentID:          studentID,
		Name:               req.Name,
		Class:              req.Class,
		Section:            req.Section,
		RollNumber:         req.RollNumber,
		Email:              req.Email,
		Password:           hashed,
		IsAdmin:            req.IsAdmin,
		Phone:              req.Phone,
		ParentContact:      req.ParentContact,
		Address:            req.Address,
		Photo:              DefaultPhoto,
		DateOfJoining:      now,
		Status:             "active",
		ActiveTransactions: []primitive.ObjectID{},
		PrevTransactions:   []primitive.ObjectID{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	res, err := s.store.Students().InsertOne(qctx, student)
	if mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("student_id %s already registered: %w", studentID, apperr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		student.ID = oid
	}
	s.logger.Info("student registered", "student_id", studentID, "class", req.Class)
	return student, nil
}

// generateStudentID builds an identifier like RMS20261234 when the admin
// does not supply one.
func generateStudentID() string {
	return fmt.Sprintf("RMS%d%d", time.Now().Year(), rand.Intn(9000)+1000)
}

// SignIn authenticates by student_id or email.
func (s *service) SignIn(ctx context.Context, studentID, email, password string) (*Student, string, error) {
	ctx, span := s.tracer.Start(ctx, "membership.SignIn")
	defer span.End()

	if !s.limiter.Allow() {
		return nil, "", fmt.Errorf("rate limit exceeded")
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	filter := bson.M{"student_id": studentID}
	if studentID == "" {
		filter = bson.M{"email": email}
	}

	var student Student
	err := s.store.Students().FindOne(qctx, filter).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", apperr.NotFoundf("student")
	}
	if err != nil {
		return nil, "", fmt.Errorf("find student: %w", err)
	}

	ok, err := VerifyPassword(password, student.Password)
	if err != nil {
		return nil, "", fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, "", apperr.Validationf("wrong password")
	}

	token, err := s.tokens.Issue(student.StudentID, student.IsAdmin)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return &student, token, nil
}

// Get returns one student with transaction references resolved.
func (s *service) Get(ctx context.Context, id string) (*PopulatedStudent, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Get")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validationf("invalid student id %q", id)
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	var student Student
	err = s.store.Students().FindOne(qctx, bson.M{"_id": oid}).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("student %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}

	return s.populate(qctx, &student)
}

// All returns every student, newest first, with transactions resolved.
func (s *service) All(ctx context.Context) ([]PopulatedStudent, error) {
	ctx, span := s.tracer.Start(ctx, "membership.All")
	defer span.End()

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	cur, err := s.store.Students().Find(qctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find students: %w", err)
	}
	defer cur.Close(qctx)

	students := []Student{}
	if err := cur.All(qctx, &students); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}

	populated := make([]PopulatedStudent, 0, len(students))
	for i := range students {
		p, err := s.populate(qctx, &students[i])
		if err != nil {
			return nil, err
		}
		populated = append(populated, *p)
	}
	return populated, nil
}

// populate resolves the student's transaction references into records and
// buckets them back into active/previous.
func (s *service) populate(ctx context.Context, student *Student) (*PopulatedStudent, error) {
	refs := make([]primitive.ObjectID, 0, len(student.ActiveTransactions)+len(student.PrevTransactions))
	refs = append(refs, student.ActiveTransactions...)
	refs = append(refs, student.PrevTransactions...)

	p := &PopulatedStudent{
		Student:            *student,
		ActiveTransactions: []circulation.Transaction{},
		PrevTransactions:   []circulation.Transaction{},
	}
	if len(refs) == 0 {
		return p, nil
	}

	cur, err := s.store.Transactions().Find(ctx, bson.M{"_id": bson.M{"$in": refs}})
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	byID := map[primitive.ObjectID]circulation.Transaction{}
	for cur.Next(ctx) {
		var txn circulation.Transaction
		if err := cur.Decode(&txn); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		byID[txn.ID] = txn
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	for _, id := range student.ActiveTransactions {
		if txn, ok := byID[id]; ok {
			p.ActiveTransactions = append(p.ActiveTransactions, txn)
		}
	}
	for _, id := range student.PrevTransactions {
		if txn, ok := byID[id]; ok {
			p.PrevTransactions = append(p.PrevTransactions, txn)
		}
	}
	return p, nil
}

// Update applies a partial update; a password field is re-hashed before it
// is stored.
func (s *service) Update(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := s.tracer.Start(ctx, "membership.Update")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validationf("invalid student id %q", id)
	}
	delete(fields, "_id")
	delete(fields, "userId")
	delete(fields, "isAdmin")
	if pw, ok := fields["password"].(string); ok && pw != "" {
		hashed, err := HashPassword(pw)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password"] = hashed
	}
	if len(fields) == 0 {
		return apperr.Validationf("no fields to update")
	}
	fields["updatedAt"] = time.Now()

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	res, err := s.store.Students().UpdateOne(qctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("student %s", id)
	}
	return nil
}

// Remove deletes a student account.
func (s *service) Remove(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "membership.Remove")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validationf("invalid student id %q", id)
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	res, err := s.store.Students().DeleteOne(qctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundf("student %s", id)
	}
	return nil
}

// MoveToActive appends a transaction reference to the student's active list.
func (s *service) MoveToActive(ctx context.Context, studentID, transactionID string) error {
	return s.moveTransaction(ctx, studentID, transactionID, true)
}

// MoveToPrev moves a transaction reference from active to previous.
func (s *service) MoveToPrev(ctx context.Context, studentID, transactionID string) error {
	return s.moveTransaction(ctx, studentID, transactionID, false)
}

func (s *service) moveTransaction(ctx context.Context, studentID, transactionID string, toActive bool) error {
	ctx, span := s.tracer.Start(ctx, "membership.moveTransaction")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(studentID)
	if err != nil {
		return apperr.Validationf("invalid student id %q", studentID)
	}
	txnID, err := primitive.ObjectIDFromHex(transactionID)
	if err != nil {
		return apperr.Validationf("invalid transaction id %q", transactionID)
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	var update bson.M
	if toActive {
		update = bson.M{"$push": bson.M{"activeTransactions": txnID}}
	} else {
		// pull first, then push, so the reference lives in exactly one list
		res, err := s.store.Students().UpdateOne(qctx,
			bson.M{"_id": oid},
			bson.M{"$pull": bson.M{"activeTransactions": txnID}})
		if err != nil {
			return fmt.Errorf("pull active transaction: %w", err)
		}
		if res.MatchedCount == 0 {
			return apperr.NotFoundf("student %s", studentID)
		}
		update = bson.M{"$push": bson.M{"prevTransactions": txnID}}
	}

	res, err := s.store.Students().UpdateOne(qctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update student transactions: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("student %s", studentID)
	}
	return nil
}
