package bigquery

import (
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/JakeFAU/transit-ingest/internal/transit"
)

var (
	validDataset = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	validTable   = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\p{Pc}\p{Pd}\p{Zs}]+$`)
)

// TableRef names a BigQuery table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

func (r TableRef) String() string {
	return fmt.Sprintf("%s:%s.%s", r.Project, r.Dataset, r.Table)
}

// ParseTableSpec accepts project:dataset.table, project.dataset.table or
// dataset.table; the last form uses defaultProject.
func ParseTableSpec(spec, defaultProject string) (TableRef, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return TableRef{}, fmt.Errorf("output table is required")
	}

	var ref TableRef
	if project, rest, ok := strings.Cut(spec, ":"); ok {
		dataset, table, ok := strings.Cut(rest, ".")
		if !ok {
			return TableRef{}, fmt.Errorf("table spec %q: want project:dataset.table", spec)
		}
		ref = TableRef{Project: project, Dataset: dataset, Table: table}
	} else {
		parts := strings.Split(spec, ".")
		switch len(parts) {
		case 2:
			ref = TableRef{Project: defaultProject, Dataset: parts[0], Table: parts[1]}
		case 3:
			ref = TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}
		default:
			return TableRef{}, fmt.Errorf("table spec %q: want [project.]dataset.table", spec)
		}
	}

	if ref.Project == "" {
		return TableRef{}, fmt.Errorf("table spec %q: no project given and no default project configured", spec)
	}
	if !validDataset.MatchString(ref.Dataset) {
		return TableRef{}, fmt.Errorf("table spec %q: invalid dataset %q", spec, ref.Dataset)
	}
	if !validTable.MatchString(ref.Table) {
		return TableRef{}, fmt.Errorf("table spec %q: invalid table %q", spec, ref.Table)
	}
	return ref, nil
}

// Schema is the flat route table schema; every field is nullable.
func Schema() bigquery.Schema {
	schema := make(bigquery.Schema, len(transit.Columns))
	for i, col := range transit.Columns {
		schema[i] = &bigquery.FieldSchema{
			Name: col.Name,
			Type: fieldType(col.Type),
		}
	}
	return schema
}

func fieldType(t transit.ColumnType) bigquery.FieldType {
	switch t {
	case transit.TypeInteger:
		return bigquery.IntegerFieldType
	case transit.TypeFloat:
		return bigquery.FloatFieldType
	case transit.TypeBoolean:
		return bigquery.BooleanFieldType
	case transit.TypeTimestamp:
		return bigquery.TimestampFieldType
	default:
		return bigquery.StringFieldType
	}
}
