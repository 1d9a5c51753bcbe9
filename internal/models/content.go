package models

import "time"

type ContentKind string

const (
	ContentKindBlog     ContentKind = "BLOG"
	ContentKindResource ContentKind = "RESOURCE"
)

type AccessType string

const (
	AccessFree         AccessType = "FREE"
	AccessPaid         AccessType = "PAID"
	AccessSubscription AccessType = "SUBSCRIPTION"
)

// ContentItem is a blog or a resource. Both share the same entitlement rules.
type ContentItem struct {
	ID         string
	Kind       ContentKind
	Title      string
	Slug       string
	Category   string
	Excerpt    string
	Body       string
	AccessType AccessType
	Price      *int64
	Currency   string
	FileKey    *string
	Published  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Purchase struct {
	ID        string
	AccountID string
	ContentID string
	PaymentID string
	CreatedAt time.Time
}
