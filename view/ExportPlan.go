package view

// PlanEntity describes one exported table inside a plan snapshot.
type PlanEntity struct {
	Name string `json:"name"`
	// PrimaryKey is empty for link tables without a single integer key.
	PrimaryKey string `json:"primaryKey,omitempty"`
	ForeignKey string `json:"foreignKey,omitempty"`
	Parent     string `json:"parent,omitempty"`
	// ParentKey is the column of the parent's file whose values ForeignKey references.
	ParentKey string       `json:"parentKey,omitempty"`
	Root      bool         `json:"root"`
	Family    ExportFamily `json:"family"`
	Depth     int          `json:"depth"`
	Columns   []string     `json:"columns"`
	Custom    bool         `json:"custom,omitempty"`
}

func (e PlanEntity) HasPrimaryKey() bool {
	return e.PrimaryKey != ""
}

type ExportPlan struct {
	ExportFamily ExportFamily `json:"exportFamily"`
	DetailLevel  DetailLevel  `json:"detailLevel"`
	Entities     []PlanEntity `json:"entities"`
}

func (p *ExportPlan) Entity(name string) *PlanEntity {
	for i := range p.Entities {
		if p.Entities[i].Name == name {
			return &p.Entities[i]
		}
	}
	return nil
}

func (p *ExportPlan) EntityNames() []string {
	names := make([]string, 0, len(p.Entities))
	for _, e := range p.Entities {
		names = append(names, e.Name)
	}
	return names
}

// FileCheckpoint is the persisted state of a partially written entity file.
type FileCheckpoint struct {
	Offset int64 `json:"offset"`
	Rows   int64 `json:"rows"`
}
