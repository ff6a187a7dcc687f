package collection

import (
	"fmt"
	"regexp"
	"time"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ClearOutcome reports what a best-effort clear actually did.
type ClearOutcome string

const (
	// Cleared means existing contents were removed.
	Cleared ClearOutcome = "cleared"
	// NotFound means there was nothing to remove, the expected first-run state.
	NotFound ClearOutcome = "not_found"
)

// Collection is the handle to one named vector collection (immutable value object).
type Collection struct {
	name        string
	description string
	version     string
	assetClass  string
	vectorDim   int
	createdAt   int64
}

// Option sets optional collection metadata.
type Option func(*Collection)

// WithDescription sets the human-readable description.
func WithDescription(d string) Option { return func(c *Collection) { c.description = d } }

// WithVersion sets the dataset version the collection was created for.
func WithVersion(v string) Option { return func(c *Collection) { c.version = v } }

// WithAssetClass sets the PCAF asset class.
func WithAssetClass(a string) Option { return func(c *Collection) { c.assetClass = a } }

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// New validates and creates a Collection.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. VectorDim: > 0.
func New(name string, vectorDim int, opts ...Option) (Collection, error) {
	if err := validateName(name); err != nil {
		return Collection{}, err
	}
	if vectorDim <= 0 {
		return Collection{}, fmt.Errorf("vector dimension must be positive")
	}
	c := Collection{
		name:      name,
		vectorDim: vectorDim,
		createdAt: time.Now().UnixMilli(),
	}
	for _, o := range opts {
		o(&c)
	}
	return c, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name, description, version, assetClass string, vectorDim int, createdAt int64) Collection {
	return Collection{
		name:        name,
		description: description,
		version:     version,
		assetClass:  assetClass,
		vectorDim:   vectorDim,
		createdAt:   createdAt,
	}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Description returns the collection description.
func (c Collection) Description() string { return c.description }

// Version returns the dataset version recorded at creation.
func (c Collection) Version() string { return c.version }

// AssetClass returns the asset class recorded at creation.
func (c Collection) AssetClass() string { return c.assetClass }

// VectorDim returns the vector dimension.
func (c Collection) VectorDim() int { return c.vectorDim }

// CreatedAt returns the creation timestamp in Unix milliseconds.
func (c Collection) CreatedAt() int64 { return c.createdAt }
