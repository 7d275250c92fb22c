// Package check samples rows from a live database and validates each one
// against the schema derived for its table.
package check

import (
	"context"
	"errors"

	"github.com/koustreak/rowmodel/internal/catalog"
	"github.com/koustreak/rowmodel/internal/database"
	"github.com/koustreak/rowmodel/internal/logger"
	"github.com/koustreak/rowmodel/internal/validation"
)

// DefaultLimit is the number of rows sampled per table when none is given.
const DefaultLimit = 100

// Options selects the window of rows sampled from each table.
type Options struct {
	// Limit defaults to DefaultLimit when not positive.
	Limit int

	// Offset skips that many rows in primary key order.
	Offset int
}

// Failure is one sampled row that did not validate. Row counts from the
// start of the table, offset included.
type Failure struct {
	Row   int                         `json:"row"`
	Error *validation.ValidationError `json:"error"`
}

// Report summarizes the sample of one model.
type Report struct {
	Model    string    `json:"model"`
	Table    string    `json:"table"`
	Rows     int       `json:"rows"`
	Valid    int       `json:"valid"`
	Failures []Failure `json:"failures,omitempty"`
}

// OK reports whether every sampled row validated.
func (r Report) OK() bool { return r.Valid == r.Rows }

// Run samples a window of rows of every model in c, in dependency order.
// Query errors abort the run; validation failures are collected.
func Run(ctx context.Context, db database.DB, c *catalog.Catalog, opts Options) ([]Report, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	log := logger.FromContext(ctx)

	reports := make([]Report, 0, c.Len())
	err := c.Each(func(e catalog.Entry) error {
		r, err := sample(ctx, db, e, opts)
		if err != nil {
			return err
		}
		log.InfoWith("sampled table", map[string]any{
			"model": r.Model, "table": r.Table, "offset": opts.Offset, "rows": r.Rows, "valid": r.Valid,
		})
		reports = append(reports, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func sample(ctx context.Context, db database.DB, e catalog.Entry, opts Options) (Report, error) {
	fields := e.Schema.Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	b := database.Select(e.Model.TableName(), db.Dialect()).Columns(columns...).Limit(opts.Limit)
	if opts.Offset != 0 {
		b.Offset(opts.Offset)
	}
	if table, err := e.Model.Metadata().Table(e.Model.TableName()); err == nil {
		for _, pk := range table.PrimaryKey() {
			b.OrderBy(pk, database.Asc)
		}
	}
	query, args, err := b.Build()
	if err != nil {
		return Report{}, err
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return Report{}, err
	}
	records, err := database.ScanRows(rows)
	if err != nil {
		return Report{}, err
	}

	r := Report{Model: e.Schema.Name(), Table: e.Model.TableName(), Rows: len(records)}
	for i, rec := range records {
		if _, err := e.Schema.Validate(rec); err != nil {
			var verr *validation.ValidationError
			if !errors.As(err, &verr) {
				return Report{}, err
			}
			r.Failures = append(r.Failures, Failure{Row: opts.Offset + i, Error: verr})
			continue
		}
		r.Valid++
	}
	return r, nil
}
