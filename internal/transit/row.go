package transit

import (
	"time"
)

// FlatRow is one denormalized (schedule window, stop, service) combination of a
// route record. Nil pointers are NULL in the warehouse.
type FlatRow struct {
	ID               *int64    `json:"id"`
	TipoDia          *string   `json:"tipoDia"`
	Inicio           *string   `json:"inicio"`
	Fin              *string   `json:"fin"`
	ParaderoID       *int64    `json:"paradero_id"`
	ParaderoCod      *string   `json:"paradero_cod"`
	ParaderoNum      *int64    `json:"paradero_num"`
	ParaderoName     *string   `json:"paradero_name"`
	ParaderoComuna   *string   `json:"paradero_comuna"`
	ParaderoLatitud  *float64  `json:"paradero_latitud"`
	ParaderoLongitud *float64  `json:"paradero_longitud"`
	ServicioID       *int64    `json:"servicio_id"`
	ServicioCod      *string   `json:"servicio_cod"`
	ServicioDestino  *string   `json:"servicio_destino"`
	ServicioOrden    *int64    `json:"servicio_orden"`
	ServicioColor    *string   `json:"servicio_color"`
	EmpresaNombre    *string   `json:"empresa_nombre"`
	EmpresaColor     *string   `json:"empresa_color"`
	RecorridoDestino *string   `json:"recorrido_destino"`
	Itinerario       *bool     `json:"itinerario"`
	CodigoServicio   *string   `json:"codigo_servicio"`
	Timestamp        time.Time `json:"timestamp"`
}

// Values returns the row's column values in Columns order, with NULLs as nil.
func (r FlatRow) Values() []any {
	return []any{
		deref(r.ID),
		deref(r.TipoDia),
		deref(r.Inicio),
		deref(r.Fin),
		deref(r.ParaderoID),
		deref(r.ParaderoCod),
		deref(r.ParaderoNum),
		deref(r.ParaderoName),
		deref(r.ParaderoComuna),
		deref(r.ParaderoLatitud),
		deref(r.ParaderoLongitud),
		deref(r.ServicioID),
		deref(r.ServicioCod),
		deref(r.ServicioDestino),
		deref(r.ServicioOrden),
		deref(r.ServicioColor),
		deref(r.EmpresaNombre),
		deref(r.EmpresaColor),
		deref(r.RecorridoDestino),
		deref(r.Itinerario),
		deref(r.CodigoServicio),
		r.Timestamp,
	}
}

// Map returns the row keyed by column name.
func (r FlatRow) Map() map[string]any {
	values := r.Values()
	out := make(map[string]any, len(Columns))
	for i, col := range Columns {
		out[col.Name] = values[i]
	}
	return out
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
