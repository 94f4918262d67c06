package checks

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"commerce-reconciler/core/database"

	"gorm.io/gorm"
)

// SchemaReport is the result of comparing a store's tables with what the engine reads and writes.
type SchemaReport struct {
	Store   string                 `json:"store"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	TypeMismatches []string `json:"type_mismatches"`
	Status         string   `json:"status"` // "ok", "error"
}

// TableNames returns the inspected table names, sorted.
func (r *SchemaReport) TableNames() []string {
	names := make([]string, 0, len(r.Tables))
	for name := range r.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckModels verifies that every table behind models exists with the columns
// their gorm tags name. Types are only compared when a tag declares one.
func CheckModels(db *gorm.DB, store string, models ...any) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := newReport(store)
	for _, model := range models {
		typ := reflect.TypeOf(model)
		if typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		tabler, ok := reflect.New(typ).Interface().(interface{ TableName() string })
		if !ok {
			return nil, fmt.Errorf("model %s does not implement TableName", typ.Name())
		}
		tableName := tabler.TableName()

		expected := make(map[string]string)
		var order []string
		for i := 0; i < typ.NumField(); i++ {
			tag := typ.Field(i).Tag.Get("gorm")
			col := parseGormColumn(tag)
			if col == "" {
				continue
			}
			expected[col] = strings.ToLower(parseGormType(tag))
			order = append(order, col)
		}
		report.inspect(db, tableName, order, expected)
	}
	return report, nil
}

// CheckColumns verifies that table exists with columns. It is used for legacy
// schemas, which have no model of their own.
func CheckColumns(db *gorm.DB, store, table string, columns []string) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	report := newReport(store)
	report.inspect(db, table, columns, nil)
	return report, nil
}

func newReport(store string) *SchemaReport {
	return &SchemaReport{
		Store:   store,
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}
}

func (r *SchemaReport) inspect(db *gorm.DB, table string, columns []string, types map[string]string) {
	tbl := TableReport{
		MissingColumns: []string{},
		TypeMismatches: []string{},
		Status:         "ok",
	}

	actualCols, err := database.GetTableColumns(db, table)
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("Failed to inspect table %s: %v", table, err))
		r.Matched = false
		return
	}
	if len(actualCols) == 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("Table %s does not exist", table))
		r.Matched = false
		return
	}

	actual := make(map[string]database.ColumnInfo, len(actualCols))
	for _, col := range actualCols {
		actual[col.Field] = col
	}

	for _, col := range columns {
		col = strings.ToLower(col)
		act, ok := actual[col]
		if !ok {
			tbl.MissingColumns = append(tbl.MissingColumns, col)
			tbl.Status = "error"
			r.Matched = false
			continue
		}
		expType := types[col]
		if expType != "" && !strings.Contains(act.Type, expType) {
			tbl.TypeMismatches = append(tbl.TypeMismatches, fmt.Sprintf("%s: expected %s, got %s", col, expType, act.Type))
			tbl.Status = "error"
			r.Matched = false
		}
	}

	r.Tables[table] = tbl
}

// Helpers to parse simple GORM tags
func parseGormColumn(tag string) string {
	for _, p := range strings.Split(tag, ";") {
		if strings.HasPrefix(p, "column:") {
			return strings.TrimPrefix(p, "column:")
		}
	}
	return ""
}

func parseGormType(tag string) string {
	for _, p := range strings.Split(tag, ";") {
		if strings.HasPrefix(p, "type:") {
			return strings.TrimPrefix(p, "type:")
		}
	}
	return ""
}
