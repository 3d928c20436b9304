package transit

// ColumnType is the primitive type of a warehouse column.
type ColumnType string

// Column types used by the flat route table.
const (
	TypeInteger   ColumnType = "INTEGER"
	TypeString    ColumnType = "STRING"
	TypeFloat     ColumnType = "FLOAT"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeTimestamp ColumnType = "TIMESTAMP"
)

// Column describes one field of the flat route table. Every column is nullable.
type Column struct {
	Name string
	Type ColumnType
}

// Columns is the fixed schema of the flat route table, in FlatRow.Values order.
var Columns = []Column{
	{Name: "id", Type: TypeInteger},
	{Name: "tipoDia", Type: TypeString},
	{Name: "inicio", Type: TypeString},
	{Name: "fin", Type: TypeString},
	{Name: "paradero_id", Type: TypeInteger},
	{Name: "paradero_cod", Type: TypeString},
	{Name: "paradero_num", Type: TypeInteger},
	{Name: "paradero_name", Type: TypeString},
	{Name: "paradero_comuna", Type: TypeString},
	{Name: "paradero_latitud", Type: TypeFloat},
	{Name: "paradero_longitud", Type: TypeFloat},
	{Name: "servicio_id", Type: TypeInteger},
	{Name: "servicio_cod", Type: TypeString},
	{Name: "servicio_destino", Type: TypeString},
	{Name: "servicio_orden", Type: TypeInteger},
	{Name: "servicio_color", Type: TypeString},
	{Name: "empresa_nombre", Type: TypeString},
	{Name: "empresa_color", Type: TypeString},
	{Name: "recorrido_destino", Type: TypeString},
	{Name: "itinerario", Type: TypeBoolean},
	{Name: "codigo_servicio", Type: TypeString},
	{Name: "timestamp", Type: TypeTimestamp},
}

// ColumnNames returns the column names in schema order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, col := range Columns {
		names[i] = col.Name
	}
	return names
}
