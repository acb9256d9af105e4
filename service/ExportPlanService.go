package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Netcracker/qubership-data-exporter/repository"
	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultChildMultiplier = 2
	detailChildMultiplier  = 3
	historyChildMultiplier = 5
	maxConcurrentCounts    = 4
)

type ExportPlanService interface {
	// BuildPlan resolves the entities of a family and level against the live schema.
	// Entities whose table is missing are left out together with everything depending on them.
	BuildPlan(ctx context.Context, family view.ExportFamily, level view.DetailLevel) (*view.ExportPlan, error)
	EstimateTotalRecords(ctx context.Context, plan *view.ExportPlan, filters view.ExportFilters) (int64, error)
}

func NewExportPlanService(schemaRepo repository.SchemaRepository, sourceRepo repository.SourceRepository, includeCustomTables bool) ExportPlanService {
	return &exportPlanServiceImpl{
		schemaRepo:          schemaRepo,
		sourceRepo:          sourceRepo,
		includeCustomTables: includeCustomTables,
	}
}

type exportPlanServiceImpl struct {
	schemaRepo          repository.SchemaRepository
	sourceRepo          repository.SourceRepository
	includeCustomTables bool
}

func (p exportPlanServiceImpl) BuildPlan(ctx context.Context, family view.ExportFamily, level view.DetailLevel) (*view.ExportPlan, error) {
	families := familiesOf(family)
	if len(families) == 0 {
		return nil, fmt.Errorf("unknown export family '%s'", family)
	}
	candidates := make([]view.PlanEntity, 0)
	customSeen := make(map[string]bool)
	for _, f := range families {
		for _, def := range definitionsFor(f, level) {
			candidates = append(candidates, def.toPlanEntity(f))
		}
		if p.includeCustomTables {
			custom, err := p.customEntities(ctx, f, customSeen)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, custom...)
		}
	}
	if err := assignDepths(candidates); err != nil {
		return nil, err
	}
	sortPlanEntities(candidates)

	included := make(map[string]bool, len(candidates))
	entities := make([]view.PlanEntity, 0, len(candidates))
	for _, ent := range candidates {
		if !ent.Root && !included[ent.Parent] {
			log.Debugf("Entity %s is excluded from the plan since its parent %s is not exported", ent.Name, ent.Parent)
			continue
		}
		exists, err := p.schemaRepo.TableExists(ctx, ent.Name)
		if err != nil {
			return nil, err
		}
		if !exists {
			log.Debugf("Table %s does not exist, entity is excluded from the plan", ent.Name)
			continue
		}
		columns, err := p.schemaRepo.GetColumnNames(ctx, ent.Name)
		if err != nil {
			return nil, err
		}
		ent.Columns = columns
		included[ent.Name] = true
		entities = append(entities, ent)
	}
	return &view.ExportPlan{ExportFamily: family, DetailLevel: level, Entities: entities}, nil
}

// customEntities attaches non-core tables carrying the family key to the family root.
// A table carrying keys of several families stays with the first family it was found for.
func (p exportPlanServiceImpl) customEntities(ctx context.Context, family view.ExportFamily, seen map[string]bool) ([]view.PlanEntity, error) {
	fk := customFamilyColumns[family]
	tables, err := p.schemaRepo.FindTablesWithColumn(ctx, fk)
	if err != nil {
		return nil, err
	}
	result := make([]view.PlanEntity, 0)
	for _, table := range tables {
		if isCoreTable(table) || seen[table] {
			continue
		}
		seen[table] = true
		pk, err := p.schemaRepo.GetPrimaryKey(ctx, table)
		if err != nil {
			return nil, err
		}
		result = append(result, view.PlanEntity{
			Name:       table,
			PrimaryKey: pk,
			ForeignKey: fk,
			Parent:     familyRoots[family],
			Family:     family,
			Custom:     true,
		})
	}
	return result, nil
}

func (p exportPlanServiceImpl) EstimateTotalRecords(ctx context.Context, plan *view.ExportPlan, filters view.ExportFilters) (int64, error) {
	rootCounts := make(map[string]int64)
	mutex := sync.Mutex{}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentCounts)
	for _, ent := range plan.Entities {
		if !ent.Root {
			continue
		}
		eg.Go(func() error {
			count, err := p.sourceRepo.CountRows(egCtx, ent, filters)
			if err != nil {
				return err
			}
			mutex.Lock()
			rootCounts[ent.Name] = count
			mutex.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, ent := range plan.Entities {
		if ent.Root {
			total += rootCounts[ent.Name]
			continue
		}
		total += rootCounts[familyRoots[ent.Family]] * childMultiplier(ent.Name)
	}
	return total, nil
}

func childMultiplier(name string) int64 {
	switch {
	case strings.Contains(name, "history"):
		return historyChildMultiplier
	case strings.Contains(name, "detail"):
		return detailChildMultiplier
	}
	return defaultChildMultiplier
}

// ExportOrder returns plan entities parents first: by depth, then by name.
func ExportOrder(plan *view.ExportPlan) []view.PlanEntity {
	order := make([]view.PlanEntity, len(plan.Entities))
	copy(order, plan.Entities)
	sortPlanEntities(order)
	return order
}

func sortPlanEntities(entities []view.PlanEntity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Depth != entities[j].Depth {
			return entities[i].Depth < entities[j].Depth
		}
		return entities[i].Name < entities[j].Name
	})
}

// assignDepths validates the declared dependency edges and sets the depth of every entity.
func assignDepths(entities []view.PlanEntity) error {
	byName := make(map[string]int, len(entities))
	for i, ent := range entities {
		if _, exists := byName[ent.Name]; exists {
			return fmt.Errorf("entity %s is declared twice", ent.Name)
		}
		byName[ent.Name] = i
	}
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]int, len(entities))
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle detected at entity %s", entities[i].Name)
		}
		state[i] = visiting
		ent := &entities[i]
		if ent.Root {
			if ent.Parent != "" {
				return fmt.Errorf("root entity %s cannot have a parent", ent.Name)
			}
			ent.Depth = 0
		} else {
			parentIdx, exists := byName[ent.Parent]
			if !exists {
				return fmt.Errorf("entity %s depends on undeclared entity '%s'", ent.Name, ent.Parent)
			}
			if err := visit(parentIdx); err != nil {
				return err
			}
			ent.Depth = entities[parentIdx].Depth + 1
		}
		state[i] = visited
		return nil
	}
	for i := range entities {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// PlanHash fingerprints a plan snapshot.
func PlanHash(plan *view.ExportPlan) (string, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return "", err
	}
	return utils.GetEncodedXXHash128(data), nil
}

func (d entityDefinition) toPlanEntity(family view.ExportFamily) view.PlanEntity {
	parent := d.parent
	if parent == "" && !d.root {
		parent = familyRoots[family]
	}
	return view.PlanEntity{
		Name:       d.name,
		PrimaryKey: d.primaryKey,
		ForeignKey: d.foreignKey,
		Parent:     parent,
		ParentKey:  d.parentKey,
		Root:       d.root,
		Family:     family,
	}
}
