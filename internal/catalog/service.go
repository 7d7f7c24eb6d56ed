// internal/catalog/service.go
package catalog

import "context"

// Service defines the interface for the catalog service.
type Service interface {
	List(ctx context.Context, q ListQuery) (*BookPage, error)
	Get(ctx context.Context, id string) (*Book, error)
	Add(ctx context.Context, book *Book) (*Book, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Remove(ctx context.Context, id string) error

	Categories(ctx context.Context) ([]Category, error)
	AddCategory(ctx context.Context, name, description string) (*Category, error)
}
