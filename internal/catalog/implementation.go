// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
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

// maxFetchAll caps unpaginated listings so a stray all=true cannot pull the
// whole collection into memory.
const maxFetchAll = 5000

const defaultPageSize = 20

// service implements the Service interface.
type service struct {
	store  *storage.Store
	logger *slog.Logger
	tracer trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(store *storage.Store, logger *slog.Logger) Service {
	return &service{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("shelfdesk/catalog"),
	}
}

// List returns one page of books matching the filters.
func (s *service) List(ctx context.Context, q ListQuery) (*BookPage, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.List",
		trace.WithAttributes(attribute.String("search", q.Search)))
	defer span.End()

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > 100 {
		q.Limit = 100
	}

	filter := buildListFilter(q)

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	total, err := s.store.Books().CountDocuments(qctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.All {
		opts.SetLimit(maxFetchAll)
	} else {
		opts.SetSkip(int64((q.Page - 1) * q.Limit)).SetLimit(int64(q.Limit))
	}

	cur, err := s.store.Books().Find(qctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	defer cur.Close(qctx)

	books := []Book{}
	for cur.Next(qctx) {
		var b Book
		if err := cur.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode book: %w", err)
		}
		b.NormalizeLegacy()
		books = append(books, b)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return &BookPage{
		Books:       books,
		TotalBooks:  total,
		TotalPages:  totalPages,
		CurrentPage: q.Page,
	}, nil
}

// buildListFilter translates the listing query into a Mongo filter. Search
// runs case-insensitively across the title/author/isbn fields, including the
// aliases older documents were written with; an all-digit search also
// matches the serial number.
func buildListFilter(q ListQuery) bson.M {
	filter := bson.M{}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		or := bson.A{
			bson.M{"title": pattern},
			bson.M{"name": pattern},
			bson.M{"bookTitle": pattern},
			bson.M{"book_name": pattern},
			bson.M{"author": pattern},
			bson.M{"authors": pattern},
			bson.M{"isbn": pattern},
			bson.M{"ISBN": pattern},
		}
		if n, ok := numericSearch(q.Search); ok {
			or = append(or, bson.M{"slNo": n})
		}
		filter["$or"] = or
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Grade != "" {
		filter["grade_level"] = q.Grade
	}
	return filter
}

func numericSearch(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, s != ""
}

// Get retrieves a single book by its object id.
func (s *service) Get(ctx context.Context, id string) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Get")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.Validationf("invalid book id %q", id)
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	var b Book
	err = s.store.Books().FindOne(qctx, bson.M{"_id": oid}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFoundf("book %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	b.NormalizeLegacy()
	return &b, nil
}

// Add inserts a new catalog entry.
func (s *service) Add(ctx context.Context, book *Book) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Add")
	defer span.End()

	if book.Title == "" {
		return nil, apperr.Validationf("title is required")
	}
	if book.Quantity <= 0 {
		book.Quantity = 1
	}
	if book.Available <= 0 || book.Available > book.Quantity {
		book.Available = book.Quantity
	}
	if book.BookID == "" {
		book.BookID = uuid.NewString()
	}
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	book.NormalizeLegacy()

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	res, err := s.store.Books().InsertOne(qctx, book)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		book.ID = oid
	}
	s.logger.Info("book added", "title", book.Title, "bookId", book.BookID)
	return book, nil
}

// Update applies a partial update to a book. Identifier and timestamp fields
// are never writable through this path.
func (s *service) Update(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := s.tracer.Start(ctx, "catalog.Update")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validationf("invalid book id %q", id)
	}
	delete(fields, "_id")
	delete(fields, "createdAt")
	if len(fields) == 0 {
		return apperr.Validationf("no fields to update")
	}
	fields["updatedAt"] = time.Now()

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	res, err := s.store.Books().UpdateOne(qctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("book %s", id)
	}
	return nil
}

// Remove deletes a catalog entry. Normal operation never deletes books;
// this exists for the admin UI and the maintenance tooling.
func (s *service) Remove(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.Remove")
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.Validationf("invalid book id %q", id)
	}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	res, err := s.store.Books().DeleteOne(qctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundf("book %s", id)
	}
	return nil
}

// Categories returns the controlled vocabulary.
func (s *service) Categories(ctx context.Context) ([]Category, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.Categories")
	defer span.End()

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	cur, err := s.store.Categories().Find(qctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer cur.Close(qctx)

	categories := []Category{}
	if err := cur.All(qctx, &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}

// AddCategory appends a new name to the controlled vocabulary.
func (s *service) AddCategory(ctx context.Context, name, description string) (*Category, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.AddCategory")
	defer span.End()

	if name == "" {
		return nil, apperr.Validationf("category name is required")
	}
	cat := &Category{Name: name, Description: description, CreatedAt: time.Now()}

	qctx, cancel := s.store.QueryContext(ctx)
	defer cancel()

	res, err := s.store.Categories().InsertOne(qctx, cat)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		cat.ID = oid
	}
	return cat, nil
}
