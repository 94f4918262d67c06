package checks

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID    string `gorm:"column:id;primaryKey"`
	Name  string `gorm:"column:name;size:64"`
	Notes string `gorm:"column:notes;type:text"`
}

func (widget) TableName() string { return "widgets" }

type untabled struct {
	ID string `gorm:"column:id"`
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func showColumns() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"})
}

func TestCheckModels_NilDB(t *testing.T) {
	report, err := CheckModels(nil, "target", widget{})
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckModels_NoTableName(t *testing.T) {
	db, _ := setupMockDB(t)
	_, err := CheckModels(db, "target", untabled{})
	assert.Error(t, err)
}

func TestCheckModels_Matched(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SHOW COLUMNS FROM `widgets`").WillReturnRows(showColumns().
		AddRow("id", "varchar(191)", "NO", "PRI", nil, "").
		AddRow("name", "varchar(64)", "YES", "", nil, "").
		AddRow("notes", "TEXT", "YES", "", nil, ""))

	report, err := CheckModels(db, "target", &widget{})
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Equal(t, "ok", report.Tables["widgets"].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckModels_MissingAndMismatch(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SHOW COLUMNS FROM `widgets`").WillReturnRows(showColumns().
		AddRow("id", "varchar(191)", "NO", "PRI", nil, "").
		AddRow("notes", "varchar(10)", "YES", "", nil, ""))

	report, err := CheckModels(db, "target", widget{})
	require.NoError(t, err)
	assert.False(t, report.Matched)

	tbl := report.Tables["widgets"]
	assert.Equal(t, "error", tbl.Status)
	assert.Equal(t, []string{"name"}, tbl.MissingColumns)
	assert.Equal(t, []string{"notes: expected text, got varchar(10)"}, tbl.TypeMismatches)
}

func TestCheckModels_MissingTable(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SHOW COLUMNS FROM `widgets`").WillReturnRows(showColumns())

	report, err := CheckModels(db, "target", widget{})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Equal(t, []string{"Table widgets does not exist"}, report.Errors)
	assert.Empty(t, report.TableNames())
}

func TestCheckColumns_SQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:check_columns?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Exec("CREATE TABLE oc_product (product_id INTEGER PRIMARY KEY, price TEXT)").Error)

	report, err := CheckColumns(db, "source", "oc_product", []string{"product_id", "price", "discount_price"})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Equal(t, []string{"oc_product"}, report.TableNames())
	assert.Equal(t, []string{"discount_price"}, report.Tables["oc_product"].MissingColumns)
}

func TestParseGormTags(t *testing.T) {
	assert.Equal(t, "id", parseGormColumn("column:id;primaryKey"))
	assert.Equal(t, "item_name", parseGormColumn("primaryKey;column:item_name;type:varchar(100)"))
	assert.Equal(t, "text", parseGormType("column:last_error;type:text"))
	assert.Equal(t, "", parseGormType("column:id"))
}
