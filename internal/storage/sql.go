package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"complaint-service/internal/common/errors"
	"complaint-service/internal/common/utils"
)

// Dialect captures what differs between the SQL backends
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter
	Placeholder func(n int) string
	// BindTime converts a timestamp filter into a driver argument
	BindTime func(t time.Time) interface{}
	// Migrations run in order on open; each must be idempotent
	Migrations []string
}

// QuestionPlaceholder renders "?" parameters
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$n" parameters
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

const complaintColumns = `id, text, status, "timestamp", sentiment, category, ip_address, geo_country, geo_city`

// SQLStore implements Storage on database/sql
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore runs the dialect's migrations against db
func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if dialect.Placeholder == nil {
		dialect.Placeholder = QuestionPlaceholder
	}
	if dialect.BindTime == nil {
		dialect.BindTime = func(t time.Time) interface{} { return t }
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate %s database: %w", dialect.Name, err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, query := range s.dialect.Migrations {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying pool
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) Health() error {
	return s.db.Ping()
}

// CreateComplaint inserts a complaint and returns the stored row
func (s *SQLStore) CreateComplaint(ctx context.Context, complaint NewComplaint) (*Complaint, error) {
	category := complaint.Category
	if category == "" {
		category = CategoryOther
	}
	ip := utils.StringOrNil(complaint.IPAddress)

	query := fmt.Sprintf(`INSERT INTO complaints (text, category, ip_address) VALUES (%s, %s, %s) RETURNING id`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3))

	var id int64
	if err := s.db.QueryRowContext(ctx, query, complaint.Text, category, ip).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to insert complaint: %w", err)
	}

	return s.GetComplaint(ctx, id)
}

func (s *SQLStore) GetComplaint(ctx context.Context, id int64) (*Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id = %s`, complaintColumns, s.dialect.Placeholder(1))

	complaint, err := scanComplaint(s.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundError("complaint").WithContext("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint %d: %w", id, err)
	}
	return complaint, nil
}

func (s *SQLStore) ListComplaints(ctx context.Context, filters ComplaintFilters) ([]*Complaint, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, s.dialect.Placeholder(len(args))))
	}

	if filters.Category != "" {
		add("category = %s", filters.Category)
	}
	if filters.Status != "" {
		add("status = %s", filters.Status)
	}
	if filters.Sentiment != "" {
		add("sentiment = %s", filters.Sentiment)
	}
	if filters.StartDate != nil {
		add(`"timestamp" >= %s`, s.dialect.BindTime(*filters.StartDate))
	}
	if filters.EndDate != nil {
		add(`"timestamp" <= %s`, s.dialect.BindTime(*filters.EndDate))
	}

	query := fmt.Sprintf(`SELECT %s FROM complaints`, complaintColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY "timestamp" DESC, id DESC`

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += " LIMIT " + s.dialect.Placeholder(len(args))
		args = append(args, filters.Offset)
		query += " OFFSET " + s.dialect.Placeholder(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	defer rows.Close()

	complaints := []*Complaint{}
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, complaint)
	}
	return complaints, rows.Err()
}

func (s *SQLStore) UpdateComplaint(ctx context.Context, id int64, update ComplaintUpdate) error {
	if update.IsEmpty() {
		_, err := s.GetComplaint(ctx, id)
		return err
	}

	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = %s", column, s.dialect.Placeholder(len(args))))
	}

	set("text", update.Text)
	set("status", update.Status)
	set("sentiment", update.Sentiment)
	set("category", update.Category)
	set("geo_country", clip(update.GeoCountry, MaxGeoLength))
	set("geo_city", clip(update.GeoCity, MaxGeoLength))

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE complaints SET %s WHERE id = %s`,
		strings.Join(sets, ", "), s.dialect.Placeholder(len(args)))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update complaint %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update complaint %d: %w", id, err)
	}
	if affected == 0 {
		return errors.NotFoundError("complaint").WithContext("id", id)
	}
	return nil
}

func (s *SQLStore) FindResolvedGeoByIP(ctx context.Context, ip string, excludeID int64) (*Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints
		WHERE ip_address = %s AND id <> %s AND geo_country IS NOT NULL AND geo_city IS NOT NULL
		ORDER BY id DESC LIMIT 1`,
		complaintColumns, s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	complaint, err := scanComplaint(s.db.QueryRowContext(ctx, query, ip, excludeID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up geo for %s: %w", ip, err)
	}
	return complaint, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComplaint(row rowScanner) (*Complaint, error) {
	var (
		c                 Complaint
		ip, country, city sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Text, &c.Status, &c.Timestamp, &c.Sentiment, &c.Category, &ip, &country, &city); err != nil {
		return nil, err
	}
	c.Timestamp = c.Timestamp.UTC()
	c.IPAddress = nullable(ip)
	c.GeoCountry = nullable(country)
	c.GeoCity = nullable(city)
	return &c, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func clip(value *string, limit int) *string {
	if value == nil || utf8.RuneCountInString(*value) <= limit {
		return value
	}
	clipped := string([]rune(*value)[:limit])
	return &clipped
}
