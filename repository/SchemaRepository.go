package repository

import (
	"context"
	"strings"

	"github.com/Netcracker/qubership-data-exporter/db"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/go-pg/pg/v10"
	"github.com/pkg/errors"
)

// SchemaRepository introspects the shop database. Table names are passed without prefix.
type SchemaRepository interface {
	TableExists(ctx context.Context, table string) (bool, error)
	GetColumnNames(ctx context.Context, table string) ([]string, error)
	// GetPrimaryKey returns "" unless the table has a single integer primary key column.
	GetPrimaryKey(ctx context.Context, table string) (string, error)
	// FindTablesWithColumn lists unprefixed names of prefixed tables having the column.
	FindTablesWithColumn(ctx context.Context, column string) ([]string, error)
}

func NewSchemaRepository(cp db.ConnectionProvider, tablePrefix string) SchemaRepository {
	return &schemaRepositoryImpl{cp: cp, tablePrefix: tablePrefix}
}

type schemaRepositoryImpl struct {
	cp          db.ConnectionProvider
	tablePrefix string
}

type columnRow struct {
	TableName  string
	ColumnName string
}

type keyColumnRow struct {
	ColumnName string
	DataType   string
}

var integerTypes = []string{"smallint", "integer", "bigint"}

func (s schemaRepositoryImpl) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	_, err := s.cp.GetConnection().QueryOneContext(ctx, pg.Scan(&exists),
		`select exists (select 1 from information_schema.tables
			where table_schema = current_schema() and table_name = ?)`, s.tablePrefix+table)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check table %s", table)
	}
	return exists, nil
}

func (s schemaRepositoryImpl) GetColumnNames(ctx context.Context, table string) ([]string, error) {
	var rows []columnRow
	_, err := s.cp.GetConnection().QueryContext(ctx, &rows,
		`select table_name, column_name from information_schema.columns
			where table_schema = current_schema() and table_name = ?
			order by ordinal_position`, s.tablePrefix+table)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read columns of %s", table)
	}
	result := make([]string, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.ColumnName)
	}
	return result, nil
}

func (s schemaRepositoryImpl) GetPrimaryKey(ctx context.Context, table string) (string, error) {
	var rows []keyColumnRow
	_, err := s.cp.GetConnection().QueryContext(ctx, &rows,
		`select kcu.column_name, c.data_type
			from information_schema.table_constraints tc
			join information_schema.key_column_usage kcu
				on tc.constraint_name = kcu.constraint_name and tc.table_schema = kcu.table_schema
			join information_schema.columns c
				on c.table_schema = kcu.table_schema and c.table_name = kcu.table_name and c.column_name = kcu.column_name
			where tc.constraint_type = 'PRIMARY KEY'
				and tc.table_schema = current_schema() and tc.table_name = ?`, s.tablePrefix+table)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read primary key of %s", table)
	}
	if len(rows) != 1 || !utils.SliceContains(integerTypes, rows[0].DataType) {
		return "", nil
	}
	return rows[0].ColumnName, nil
}

func (s schemaRepositoryImpl) FindTablesWithColumn(ctx context.Context, column string) ([]string, error) {
	var rows []columnRow
	_, err := s.cp.GetConnection().QueryContext(ctx, &rows,
		`select table_name, column_name from information_schema.columns
			where table_schema = current_schema() and column_name = ? and table_name like ?
			order by table_name`, column, utils.LikeEscaped(s.tablePrefix)+"%")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find tables with column %s", column)
	}
	result := make([]string, 0, len(rows))
	for _, r := range rows {
		result = append(result, strings.TrimPrefix(r.TableName, s.tablePrefix))
	}
	return result, nil
}
