package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/Netcracker/qubership-data-exporter/db"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/go-pg/pg/v10"
	"github.com/iancoleman/orderedmap"
	"github.com/pkg/errors"
)

// SourceRepository pages rows of the shop database. Entity names are unprefixed table names.
type SourceRepository interface {
	// GetPage returns up to pageSize rows of a root entity matching filters with primary key greater than cursor.
	GetPage(ctx context.Context, ent view.PlanEntity, filters view.ExportFilters, cursor int64, pageSize int) ([]*orderedmap.OrderedMap, error)
	// GetChildPage returns rows whose foreign key is in parentKeys, after cursor.
	// For entities without a primary key the cursor is the number of rows already read.
	GetChildPage(ctx context.Context, ent view.PlanEntity, parentKeys []string, cursor int64, pageSize int) ([]*orderedmap.OrderedMap, error)
	CountRows(ctx context.Context, ent view.PlanEntity, filters view.ExportFilters) (int64, error)
}

func NewSourceRepository(cp db.ConnectionProvider, tablePrefix string) SourceRepository {
	return &sourceRepositoryImpl{cp: cp, tablePrefix: tablePrefix}
}

type sourceRepositoryImpl struct {
	cp          db.ConnectionProvider
	tablePrefix string
}

func (s sourceRepositoryImpl) GetPage(ctx context.Context, ent view.PlanEntity, filters view.ExportFilters, cursor int64, pageSize int) ([]*orderedmap.OrderedMap, error) {
	if !ent.HasPrimaryKey() {
		return nil, errors.Errorf("root entity %s has no primary key", ent.Name)
	}
	where, params := compileRootFilters(ent, filters)
	query := "SELECT * FROM ? WHERE ? > ?" + where + " ORDER BY ? ASC LIMIT ?"
	args := []interface{}{pg.Ident(s.tablePrefix + ent.Name), pg.Ident(ent.PrimaryKey), cursor}
	args = append(args, params...)
	args = append(args, pg.Ident(ent.PrimaryKey), pageSize)

	var rows []map[string]interface{}
	if _, err := s.cp.GetConnection().QueryContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to read page of %s after %d", ent.Name, cursor)
	}
	return toOrderedRows(rows, ent.Columns), nil
}

func (s sourceRepositoryImpl) GetChildPage(ctx context.Context, ent view.PlanEntity, parentKeys []string, cursor int64, pageSize int) ([]*orderedmap.OrderedMap, error) {
	if len(parentKeys) == 0 {
		return nil, nil
	}
	table := pg.Ident(s.tablePrefix + ent.Name)
	fk := pg.Ident(ent.ForeignKey)
	var query string
	var args []interface{}
	if ent.HasPrimaryKey() {
		pk := pg.Ident(ent.PrimaryKey)
		query = "SELECT * FROM ? WHERE ? IN (?) AND ? > ? ORDER BY ? ASC LIMIT ?"
		args = []interface{}{table, fk, pg.In(parentKeys), pk, cursor, pk, pageSize}
	} else {
		query = "SELECT * FROM ? WHERE ? IN (?) ORDER BY ? LIMIT ? OFFSET ?"
		args = []interface{}{table, fk, pg.In(parentKeys), stableOrder(ent), pageSize, cursor}
	}

	var rows []map[string]interface{}
	if _, err := s.cp.GetConnection().QueryContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to read page of %s after %d", ent.Name, cursor)
	}
	return toOrderedRows(rows, ent.Columns), nil
}

func (s sourceRepositoryImpl) CountRows(ctx context.Context, ent view.PlanEntity, filters view.ExportFilters) (int64, error) {
	where, params := compileRootFilters(ent, filters)
	args := append([]interface{}{pg.Ident(s.tablePrefix + ent.Name)}, params...)
	var count int64
	_, err := s.cp.GetConnection().QueryOneContext(ctx, pg.Scan(&count), "SELECT count(*) FROM ? WHERE true"+where, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count rows of %s", ent.Name)
	}
	return count, nil
}

// compileRootFilters only uses columns present in the entity snapshot.
func compileRootFilters(ent view.PlanEntity, f view.ExportFilters) (string, []interface{}) {
	var b strings.Builder
	params := make([]interface{}, 0)
	has := func(column string) bool {
		return utils.SliceContains(ent.Columns, column)
	}
	add := func(clause string, args ...interface{}) {
		b.WriteString(" AND ")
		b.WriteString(clause)
		params = append(params, args...)
	}

	if f.DateFrom != "" && has("date_add") {
		add("date_add >= ?", f.DateFrom+" 00:00:00")
	}
	if f.DateTo != "" && has("date_add") {
		add("date_add <= ?", f.DateTo+" 23:59:59")
	}
	if len(f.ShopIds) > 0 && has("id_shop") {
		add("id_shop IN (?)", pg.In(f.ShopIds))
	}
	if ent.HasPrimaryKey() {
		if f.MinId > 0 {
			add("? >= ?", pg.Ident(ent.PrimaryKey), f.MinId)
		}
		if f.MaxId > 0 {
			add("? <= ?", pg.Ident(ent.PrimaryKey), f.MaxId)
		}
	}
	if f.CustomerActive != nil && has("active") && ent.Family == view.ExportFamilyCustomers {
		add("active = ?", *f.CustomerActive)
	}
	if len(f.OrderStates) > 0 && has("current_state") {
		add("current_state IN (?)", pg.In(f.OrderStates))
	}
	return b.String(), params
}

func stableOrder(ent view.PlanEntity) pg.Safe {
	columns := []string{ent.ForeignKey}
	for _, c := range ent.Columns {
		if c != ent.ForeignKey {
			columns = append(columns, c)
		}
	}
	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		quoted = append(quoted, `"`+strings.ReplaceAll(c, `"`, `""`)+`"`)
	}
	return pg.Safe(strings.Join(quoted, ", "))
}

func toOrderedRows(rows []map[string]interface{}, columns []string) []*orderedmap.OrderedMap {
	result := make([]*orderedmap.OrderedMap, 0, len(rows))
	for _, row := range rows {
		keys := columns
		if len(keys) == 0 {
			keys = make([]string, 0, len(row))
			for k := range row {
				keys = append(keys, k)
			}
			sort.Strings(keys)
		}
		om := orderedmap.New()
		for _, k := range keys {
			om.Set(k, row[k])
		}
		result = append(result, om)
	}
	return result
}
