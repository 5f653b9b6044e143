// Package storage persists complaints. The SQL implementation in this
// package is shared by the sqlite and postgres adapters, which register
// themselves with the default registry on import.
package storage

import (
	"context"
	"time"
)

// Complaint statuses
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentUnknown  = "unknown"
)

// Category labels
const (
	CategoryTechnical = "technical"
	CategoryPayment   = "payment"
	CategoryOther     = "other"
)

// Column limits
const (
	MaxTextLength = 1000
	MaxGeoLength  = 50
	MaxIPLength   = 15
)

// Complaint is one stored complaint row
type Complaint struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Sentiment  string    `json:"sentiment"`
	Category   string    `json:"category"`
	IPAddress  *string   `json:"ip_address"`
	GeoCountry *string   `json:"geo_country"`
	GeoCity    *string   `json:"geo_city"`
}

// HasGeo reports whether both geo columns are populated
func (c *Complaint) HasGeo() bool {
	return c.GeoCountry != nil && c.GeoCity != nil
}

// NewComplaint holds the caller-supplied columns of an insert. Empty
// Category and IPAddress take the column defaults.
type NewComplaint struct {
	Text      string
	Category  string
	IPAddress string
}

// ComplaintUpdate lists the columns to change; nil fields are left alone.
type ComplaintUpdate struct {
	Text       *string
	Status     *string
	Sentiment  *string
	Category   *string
	GeoCountry *string
	GeoCity    *string
}

// IsEmpty reports whether the update changes nothing
func (u ComplaintUpdate) IsEmpty() bool {
	return u.Text == nil && u.Status == nil && u.Sentiment == nil &&
		u.Category == nil && u.GeoCountry == nil && u.GeoCity == nil
}

// ComplaintFilters narrows ListComplaints. Zero values mean "any".
type ComplaintFilters struct {
	Category  string
	Status    string
	Sentiment string
	// StartDate and EndDate bound the timestamp inclusively
	StartDate *time.Time
	EndDate   *time.Time
	Offset    int
	Limit     int
}

type Storage interface {
	Close() error
	Health() error

	CreateComplaint(ctx context.Context, complaint NewComplaint) (*Complaint, error)
	// GetComplaint returns a not_found AppError for unknown ids
	GetComplaint(ctx context.Context, id int64) (*Complaint, error)
	// ListComplaints returns matching complaints, newest first
	ListComplaints(ctx context.Context, filters ComplaintFilters) ([]*Complaint, error)
	// UpdateComplaint returns a not_found AppError for unknown ids
	UpdateComplaint(ctx context.Context, id int64, update ComplaintUpdate) error
	// FindResolvedGeoByIP returns another complaint from ip whose geo
	// columns are both set, or nil when there is none.
	FindResolvedGeoByIP(ctx context.Context, ip string, excludeID int64) (*Complaint, error)
}

type StorageConfig interface {
	Validate() error
	GetType() string
	GetConnectionString() string
}

type StorageFactory interface {
	Create(config StorageConfig) (Storage, error)
	GetType() string
}
