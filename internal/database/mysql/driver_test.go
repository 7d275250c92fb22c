package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/rowmodel/internal/database"
	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func columnRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{
		"column_name", "data_type", "column_type", "is_nullable",
		"column_default", "character_maximum_length", "column_key",
	})
}

func TestDriver_InspectTable(t *testing.T) {
	d, mock := newMock(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("addresses").
		WillReturnRows(columnRows(mock).
			AddRow("id", "int", "int", false, nil, nil, "PRI").
			AddRow("email_address", "varchar", "varchar(255)", false, nil, int64(255), "UNI").
			AddRow("user_id", "int", "int", true, nil, nil, "MUL"))

	mock.ExpectQuery("FROM information_schema.key_column_usage").
		WithArgs("addresses").
		WillReturnRows(mock.NewRows([]string{"column_name", "referenced_table_name", "referenced_column_name"}).
			AddRow("user_id", "users", "id"))

	info, err := d.InspectTable(context.Background(), "addresses")
	require.NoError(t, err)

	assert.Equal(t, "addresses", info.Name)
	assert.Equal(t, []string{"id"}, info.PrimaryKey)
	require.Len(t, info.Columns, 3)

	email := info.Columns[1]
	assert.Equal(t, "email_address", email.Name)
	assert.Equal(t, "varchar(255)", email.ColumnType)
	assert.False(t, email.Nullable)
	assert.True(t, email.IsUnique)
	require.NotNil(t, email.MaxLength)
	assert.Equal(t, 255, *email.MaxLength)

	assert.True(t, info.Columns[2].Nullable)
	assert.Equal(t, []*database.ForeignKey{{Column: "user_id", RefTable: "users", RefColumn: "id"}}, info.ForeignKeys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_InspectTable_Missing(t *testing.T) {
	d, mock := newMock(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("ghost").
		WillReturnRows(columnRows(mock))

	_, err := d.InspectTable(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestDriver_InspectSchema(t *testing.T) {
	d, mock := newMock(t)

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(mock.NewRows([]string{"table_name"}).AddRow("users"))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("users").
		WillReturnRows(columnRows(mock).AddRow("id", "int", "int", false, nil, nil, "PRI"))
	mock.ExpectQuery("FROM information_schema.key_column_usage").
		WithArgs("users").
		WillReturnRows(mock.NewRows([]string{"column_name", "referenced_table_name", "referenced_column_name"}))

	schema, err := d.InspectSchema(context.Background())
	require.NoError(t, err)
	require.Contains(t, schema.Tables, "users")
	assert.True(t, schema.Tables["users"].Columns[0].IsPrimary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_TableExists(t *testing.T) {
	d, mock := newMock(t)

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("users").
		WillReturnRows(mock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	ok, err := d.TableExists(context.Background(), "users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.TableExists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDriver_QueryMapsErrors(t *testing.T) {
	d, mock := newMock(t)

	mock.ExpectQuery("SELECT").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'app.ghost' doesn't exist"})

	_, err := d.Query(context.Background(), "SELECT * FROM `ghost`")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestClassifyMySQLCode(t *testing.T) {
	assert.Equal(t, errs.ErrKindPermissionDenied, classifyMySQLCode(1045))
	assert.Equal(t, errs.ErrKindConnectionFailed, classifyMySQLCode(1049))
	assert.Equal(t, errs.ErrKindQueryFailed, classifyMySQLCode(1064))
}

func TestMapError_Fallthrough(t *testing.T) {
	err := mapError(errors.New("driver: bad connection"), "ping failed")
	assert.True(t, errs.IsConnectionFailed(err))
	assert.True(t, errs.IsTimeout(mapError(context.DeadlineExceeded, "ping failed")))
}
