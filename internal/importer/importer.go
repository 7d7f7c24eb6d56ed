// Package importer holds the one-shot maintenance jobs: spreadsheet import,
// duplicate cleanup, category reconciliation backfill, vocabulary seeding
// and staff account provisioning. Each job runs once against the store and
// reports counts; none of them checkpoint, and all are safe to re-run.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shelfdesk/internal/catalog"
	"shelfdesk/internal/membership"
	"shelfdesk/internal/storage"
)

// Runner executes maintenance jobs against the store.
type Runner struct {
	store  *storage.Store
	logger *slog.Logger
}

func NewRunner(store *storage.Store, logger *slog.Logger) *Runner {
	return &Runner{store: store, logger: logger}
}

// ImportReport summarizes a CSV import run.
type ImportReport struct {
	Inserted int
	Skipped  int
}

// ImportCSV reads the accession-register CSV and inserts one book per row.
// Rows without a title are skipped. Categories are assigned at import time
// only on a direct almirah key match; everything else is left for the
// reconciliation job.
func (r *Runner) ImportCSV(ctx context.Context, src io.Reader) (ImportReport, error) {
	var report ImportReport

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return report, fmt.Errorf("read csv header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("read csv row: %w", err)
		}

		book, ok := BookFromRow(cols, record)
		if !ok {
			report.Skipped++
			continue
		}

		qctx, cancel := r.store.QueryContext(ctx)
		_, err = r.store.Books().InsertOne(qctx, &book)
		cancel()
		if err != nil {
			r.logger.Error("failed to insert row", "title", book.Title, "error", err)
			report.Skipped++
			continue
		}
		report.Inserted++
		if report.Inserted%100 == 0 {
			r.logger.Info("import progress", "inserted", report.Inserted)
		}
	}

	r.logger.Info("import complete", "inserted", report.Inserted, "skipped", report.Skipped)
	return report, nil
}

// BookFromRow maps one accession-register CSV row onto a Book. Returns
// false when the row has no title.
func BookFromRow(cols map[string]int, record []string) (catalog.Book, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	title := field("Title of the book")
	if title == "" {
		return catalog.Book{}, false
	}

	almirahNo := field("Almirah no")
	category := catalog.CategoryFor(almirahNo)
	if category == "" {
		almirahNo = ""
	}

	now := time.Now()
	book := catalog.Book{
		Title:         title,
		Author:        field("Author"),
		Subject:       field("Subject"),
		GradeLevel:    field("class"),
		Publication:   field("Publication"),
		Edition:       field("Edition"),
		Price:         CleanPrice(field("Price of the book in Rs")),
		BookCondition: field("Book Condition"),
		AlmirahNo:     almirahNo,
		ReckNo:        field("Reck no"),
		Category:      category,
		Quantity:      1,
		Available:     1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	book.NormalizeLegacy()
	return book, true
}

// CleanPrice strips currency symbols and other noise from a price cell.
// Unparseable cells become zero.
func CleanPrice(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// DedupeReport summarizes a duplicate-removal run.
type DedupeReport struct {
	UntitledRemoved  int64
	DuplicateRemoved int64
}

// RemoveDuplicates deletes placeholder "Untitled" books and then duplicate
// title/author pairs, keeping the first occurrence of each.
func (r *Runner) RemoveDuplicates(ctx context.Context) (DedupeReport, error) {
	var report DedupeReport

	qctx, cancel := r.store.QueryContext(ctx)
	res, err := r.store.Books().DeleteMany(qctx, bson.M{"title": "Untitled"})
	cancel()
	if err != nil {
		return report, fmt.Errorf("remove untitled books: %w", err)
	}
	report.UntitledRemoved = res.DeletedCount

	cur, err := r.store.Books().Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"title": 1, "author": 1}))
	if err != nil {
		return report, fmt.Errorf("scan books: %w", err)
	}
	defer cur.Close(ctx)

	seen := map[string]bool{}
	var duplicates []primitive.ObjectID
	for cur.Next(ctx) {
		var doc struct {
			ID     primitive.ObjectID `bson:"_id"`
			Title  string             `bson:"title"`
			Author string             `bson:"author"`
		}
		if err := cur.Decode(&doc); err != nil {
			return report, fmt.Errorf("decode book: %w", err)
		}
		key := doc.Title + "||" + doc.Author
		if seen[key] {
			duplicates = append(duplicates, doc.ID)
		} else {
			seen[key] = true
		}
	}
	if err := cur.Err(); err != nil {
		return report, fmt.Errorf("iterate books: %w", err)
	}

	if len(duplicates) > 0 {
		res, err := r.store.Books().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": duplicates}})
		if err != nil {
			return report, fmt.Errorf("remove duplicates: %w", err)
		}
		report.DuplicateRemoved = res.DeletedCount
	}

	r.logger.Info("dedupe complete",
		"untitled_removed", report.UntitledRemoved,
		"duplicates_removed", report.DuplicateRemoved)
	return report, nil
}

// ReconcileReport summarizes a category backfill run.
type ReconcileReport struct {
	Scanned   int
	Matched   int
	Updated   int
	Unmatched int
}

// ReconcileCategories walks the whole catalog and normalizes each book's
// almirah/category pair against the reference map. Unmatched records are
// left untouched; matched records are only written when the stored values
// differ. The walk is sequential and idempotent, so an interrupted run can
// simply be started again.
func (r *Runner) ReconcileCategories(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	cur, err := r.store.Books().Find(ctx, bson.M{})
	if err != nil {
		return report, fmt.Errorf("scan books: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var book catalog.Book
		if err := cur.Decode(&book); err != nil {
			return report, fmt.Errorf("decode book: %w", err)
		}
		report.Scanned++

		res, needsUpdate := catalog.ReconcileBook(&book)
		if !res.Matched() {
			report.Unmatched++
			continue
		}
		report.Matched++
		if !needsUpdate {
			continue
		}

		_, err := r.store.Books().UpdateOne(ctx,
			bson.M{"_id": book.ID},
			bson.M{"$set": bson.M{
				"almirahNo": res.AlmirahNo,
				"category":  res.Category,
				"updatedAt": time.Now(),
			}})
		if err != nil {
			return report, fmt.Errorf("update book %s: %w", book.ID.Hex(), err)
		}
		report.Updated++
	}
	if err := cur.Err(); err != nil {
		return report, fmt.Errorf("iterate books: %w", err)
	}

	r.logger.Info("reconcile complete",
		"scanned", report.Scanned, "matched", report.Matched,
		"updated", report.Updated, "unmatched", report.Unmatched)
	return report, nil
}

// seedCategories is the default controlled vocabulary for a fresh install.
var seedCategories = []string{
	"Academic Books",
	"Reference Books",
	"Fiction",
	"Science",
	"Mathematics",
	"History",
	"Geography",
	"Literature",
	"Competitive Exams",
	"Magazines",
}

// Seed creates the default category vocabulary and a sample book when they
// do not exist yet.
func (r *Runner) Seed(ctx context.Context) error {
	for _, name := range seedCategories {
		qctx, cancel := r.store.QueryContext(ctx)
		err := r.store.Categories().FindOne(qctx, bson.M{"name": name}).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			_, err = r.store.Categories().InsertOne(qctx,
				&catalog.Category{Name: name, CreatedAt: time.Now()})
			if err == nil {
				r.logger.Info("created category", "name", name)
			}
		}
		cancel()
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	qctx, cancel := r.store.QueryContext(ctx)
	defer cancel()
	err := r.store.Books().FindOne(qctx, bson.M{"title": "Sample RMS Book"}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		now := time.Now()
		sample := &catalog.Book{
			BookID:     "RMS-BOOK-000",
			Title:      "Sample RMS Book",
			Author:     "RMS Library",
			ISBN:       "RMS000",
			Quantity:   1,
			Available:  1,
			GradeLevel: "General",
			Subject:    "General",
			CoverImage: catalog.DefaultCover,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := r.store.Books().InsertOne(qctx, sample); err != nil {
			return fmt.Errorf("seed sample book: %w", err)
		}
		r.logger.Info("created sample book")
	} else if err != nil {
		return fmt.Errorf("check sample book: %w", err)
	}

	r.logger.Info("database initialization complete")
	return nil
}

// UpsertStaff creates or refreshes an admin staff account.
func (r *Runner) UpsertStaff(ctx context.Context, studentID, name, password string) error {
	if studentID == "" || password == "" {
		return fmt.Errorf("staff id and password are required")
	}
	if name == "" {
		name = "Staff Member"
	}

	hashed, err := membership.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	qctx, cancel := r.store.QueryContext(ctx)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"student_id": studentID,
			"name":       name,
			"class":      "Teacher",
			"section":    "Staff",
			"email":      studentID + "@example.com",
			"password":   hashed,
			"isAdmin":    true,
			"status":     "active",
			"updatedAt":  time.Now(),
		},
		"$setOnInsert": bson.M{
			"activeTransactions": []primitive.ObjectID{},
			"prevTransactions":   []primitive.ObjectID{},
			"createdAt":          time.Now(),
		},
	}
	_, err = r.store.Students().UpdateOne(qctx,
		bson.M{"student_id": studentID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert staff account: %w", err)
	}

	r.logger.Info("staff account upserted", "student_id", studentID)
	return nil
}
