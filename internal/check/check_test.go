package check

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/rowmodel/internal/catalog"
	"github.com/koustreak/rowmodel/internal/database/mysql"
	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/orm"
	"github.com/koustreak/rowmodel/internal/validation"
)

func customerCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	base := orm.NewBase()
	base.MustDefine("Customer", orm.MustTable("customers",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("email", orm.String{Length: 255}, orm.NotNull()),
		orm.NewColumn("nickname", orm.String{Length: 50}),
	))
	c, err := catalog.Build(base, validation.ORMConfig, nil)
	require.NoError(t, err)
	return c
}

const customerQuery = "SELECT `id`, `email`, `nickname` FROM `customers` ORDER BY `id` ASC LIMIT ?"

func TestRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(customerQuery)).
		WithArgs(5).
		WillReturnRows(mock.NewRows([]string{"id", "email", "nickname"}).
			AddRow(int64(1), "ada@example.com", nil).
			AddRow(int64(2), nil, "bob").
			AddRow(int64(3), "cy@example.com", "cy"))

	reports, err := Run(context.Background(), mysql.NewWithDB(db), customerCatalog(t), Options{Limit: 5})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, "Customer", r.Model)
	assert.Equal(t, "customers", r.Table)
	assert.Equal(t, 3, r.Rows)
	assert.Equal(t, 2, r.Valid)
	assert.False(t, r.OK())

	require.Len(t, r.Failures, 1)
	assert.Equal(t, 1, r.Failures[0].Row)
	require.NotEmpty(t, r.Failures[0].Error.Errors)
	assert.Equal(t, []any{"email"}, r.Failures[0].Error.Errors[0].Loc)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_DefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(customerQuery)).
		WithArgs(DefaultLimit).
		WillReturnRows(mock.NewRows([]string{"id", "email", "nickname"}))

	reports, err := Run(context.Background(), mysql.NewWithDB(db), customerCatalog(t), Options{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].OK())
	assert.Zero(t, reports[0].Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(customerQuery)).
		WillReturnError(errors.New("boom"))

	_, err = Run(context.Background(), mysql.NewWithDB(db), customerCatalog(t), Options{Limit: 5})
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestRun_Offset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(customerQuery + " OFFSET ?")).
		WithArgs(2, 40).
		WillReturnRows(mock.NewRows([]string{"id", "email", "nickname"}).
			AddRow(int64(41), "di@example.com", nil).
			AddRow(int64(42), nil, nil))

	reports, err := Run(context.Background(), mysql.NewWithDB(db), customerCatalog(t), Options{Limit: 2, Offset: 40})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].Rows)
	assert.Equal(t, 1, reports[0].Valid)
	require.Len(t, reports[0].Failures, 1)
	assert.Equal(t, 41, reports[0].Failures[0].Row)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_NegativeOffset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = Run(context.Background(), mysql.NewWithDB(db), customerCatalog(t), Options{Offset: -1})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
