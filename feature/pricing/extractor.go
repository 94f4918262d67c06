package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"commerce-reconciler/core/reconcile"
	"commerce-reconciler/core/utils"

	"gorm.io/gorm"
)

// ErrMalformedRow marks a source row that cannot be turned into a price.
var ErrMalformedRow = errors.New("malformed source row")

// Extractor reads ExternalProductRow values from the legacy database in keyset
// pages ordered by external id. Reading is lazy and restartable: Each reports
// the cursor of the last delivered row and accepts it to resume after it.
type Extractor struct {
	db       *gorm.DB
	profile  SourceProfile
	pageSize int

	// Retry wraps every page query. Nil runs each query once.
	Retry func(ctx context.Context, op func(ctx context.Context) error) error

	// OnMalformed receives rows that were skipped. Returning an error stops Each.
	OnMalformed func(id string, err error) error
}

// NewExtractor creates an extractor over db using profile.
func NewExtractor(db *gorm.DB, profile SourceProfile, pageSize int) *Extractor {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Extractor{db: db, profile: profile, pageSize: pageSize}
}

// Ping checks that the source can be reached.
func (e *Extractor) Ping(ctx context.Context) error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", reconcile.ErrSourceUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", reconcile.ErrSourceUnavailable, err)
	}
	return nil
}

// Cursor is the position after the last delivered row. The zero value starts at the beginning.
type Cursor struct {
	after any
}

// Started reports whether the cursor points past at least one row.
func (c Cursor) Started() bool { return c.after != nil }

// Page holds one keyset page.
type Page struct {
	Rows      []ExternalProductRow
	Malformed []MalformedRow
	Next      Cursor
	// Last is true when no further page exists.
	Last bool

	// entries keeps rows and malformed rows in source order with their cursors.
	entries []pageEntry
}

type pageEntry struct {
	row *ExternalProductRow
	bad *MalformedRow
	at  Cursor
}

// MalformedRow is a source row that failed validation.
type MalformedRow struct {
	ID  string
	Err error
}

// Key identifies the row in logs and reports.
func (m MalformedRow) Key() string { return m.ID }

// Page fetches the page following after.
func (e *Extractor) Page(ctx context.Context, after Cursor) (*Page, error) {
	idCol := e.profile.Column(ColID)
	priceCol := e.profile.Column(ColPrice)
	if e.profile.Table == "" || idCol == "" || priceCol == "" {
		return nil, fmt.Errorf("source profile needs a table, an id column and a price column")
	}

	cols := []string{idCol, priceCol, nullable(e.profile.Column(ColDiscount)), nullable(e.profile.Column(ColCurrency))}
	query := e.db.WithContext(ctx).
		Table(e.profile.Table).
		Select(strings.Join(cols, ", ")).
		Order(idCol).
		Limit(e.pageSize)
	if after.Started() {
		query = query.Where(idCol+" > ?", after.after)
	}

	rows, err := query.Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", e.profile.Table, err)
	}
	defer rows.Close()

	page := &Page{Next: after}
	n := 0
	for rows.Next() {
		var rawID, price, discount, currency any
		if err := rows.Scan(&rawID, &price, &discount, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", e.profile.Table, err)
		}
		n++

		// Byte slices are reused by the driver between rows.
		if b, ok := rawID.([]byte); ok {
			rawID = string(b)
		}
		at := Cursor{after: rawID}
		page.Next = at

		row, err := parseRow(rawID, price, discount, currency)
		if err != nil {
			bad := MalformedRow{ID: row.ExternalProductID, Err: err}
			page.Malformed = append(page.Malformed, bad)
			page.entries = append(page.entries, pageEntry{bad: &bad, at: at})
			continue
		}
		page.Rows = append(page.Rows, row)
		page.entries = append(page.entries, pageEntry{row: &row, at: at})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.profile.Table, err)
	}

	page.Last = n < e.pageSize
	return page, nil
}

// Each calls fn for every well-formed row after from, page by page, and returns
// the cursor after the last row handed out. Passing that cursor back resumes
// the sequence.
func (e *Extractor) Each(ctx context.Context, from Cursor, fn func(ExternalProductRow) error) (Cursor, error) {
	cursor := from
	for {
		var page *Page
		fetch := func(ctx context.Context) error {
			var err error
			page, err = e.Page(ctx, cursor)
			return err
		}

		var err error
		if e.Retry != nil {
			err = e.Retry(ctx, fetch)
		} else {
			err = fetch(ctx)
		}
		if err != nil {
			return cursor, err
		}

		for _, entry := range page.entries {
			switch {
			case entry.bad != nil && e.OnMalformed != nil:
				err = e.OnMalformed(entry.bad.ID, entry.bad.Err)
			case entry.row != nil:
				err = fn(*entry.row)
			}
			if err != nil {
				return cursor, err
			}
			cursor = entry.at
		}
		cursor = page.Next

		if page.Last {
			return cursor, nil
		}
	}
}

func nullable(col string) string {
	if col == "" {
		return "NULL"
	}
	return col
}

func parseRow(rawID, price, discount, currency any) (ExternalProductRow, error) {
	row := ExternalProductRow{ExternalProductID: utils.ToString(rawID)}
	if row.ExternalProductID == "" {
		return row, fmt.Errorf("%w: empty id", ErrMalformedRow)
	}

	p, ok, err := utils.ToDecimal(price)
	if err != nil {
		return row, fmt.Errorf("%w: price: %v", ErrMalformedRow, err)
	}
	if !ok {
		return row, fmt.Errorf("%w: null price", ErrMalformedRow)
	}
	if p.IsNegative() {
		return row, fmt.Errorf("%w: negative price %s", ErrMalformedRow, p)
	}
	row.Price = p

	d, ok, err := utils.ToDecimal(discount)
	if err != nil {
		return row, fmt.Errorf("%w: discount price: %v", ErrMalformedRow, err)
	}
	if ok {
		if d.IsNegative() {
			return row, fmt.Errorf("%w: negative discount price %s", ErrMalformedRow, d)
		}
		row.DiscountPrice = &d
	}

	row.Currency = utils.ToString(currency)
	return row, nil
}
