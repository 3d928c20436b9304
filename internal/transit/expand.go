package transit

import (
	"fmt"
	"iter"
	"time"
)

// Expand lazily flattens a decoded route record into one row per
// (schedule window, stop, service). Every row carries ingestedAt.
//
// When the record has an unexpected shape the sequence ends with a single
// (zero row, *ExpansionError) pair; rows yielded before that point stand.
func Expand(record any, ingestedAt time.Time) iter.Seq2[FlatRow, error] {
	return func(yield func(FlatRow, error) bool) {
		fail := func(err *ExpansionError) {
			yield(FlatRow{}, err)
		}

		root, ok := record.(map[string]any)
		if !ok {
			fail(shapeError("$", "object", record))
			return
		}
		ida, err := objectField(root, "ida", "ida")
		if err != nil {
			fail(err)
			return
		}
		windows, err := arrayField(ida, "horarios", "ida.horarios")
		if err != nil {
			fail(err)
			return
		}
		stops, err := arrayField(ida, "paraderos", "ida.paraderos")
		if err != nil {
			fail(err)
			return
		}
		routeID := Int(GetPath(ida, []string{"id"}, nil))

		for wi, w := range windows {
			window, ok := w.(map[string]any)
			if !ok {
				fail(shapeError(fmt.Sprintf("ida.horarios[%d]", wi), "object", w))
				return
			}
			base := FlatRow{
				ID:        routeID,
				TipoDia:   String(GetPath(window, []string{"tipoDia"}, nil)),
				Inicio:    String(GetPath(window, []string{"inicio"}, nil)),
				Fin:       String(GetPath(window, []string{"fin"}, nil)),
				Timestamp: ingestedAt,
			}
			for si, s := range stops {
				stopPath := fmt.Sprintf("ida.paraderos[%d]", si)
				stop, ok := s.(map[string]any)
				if !ok {
					fail(shapeError(stopPath, "object", s))
					return
				}
				lat, lon, err := position(stop, stopPath+".pos")
				if err != nil {
					fail(err)
					return
				}
				services, err := arrayField(stop, "servicios", stopPath+".servicios")
				if err != nil {
					fail(err)
					return
				}

				stopRow := base
				stopRow.ParaderoID = Int(GetPath(stop, []string{"id"}, nil))
				stopRow.ParaderoCod = String(GetPath(stop, []string{"cod"}, nil))
				stopRow.ParaderoNum = Int(GetPath(stop, []string{"num"}, nil))
				stopRow.ParaderoName = String(GetPath(stop, []string{"name"}, nil))
				stopRow.ParaderoComuna = String(GetPath(stop, []string{"comuna"}, nil))
				stopRow.ParaderoLatitud = lat
				stopRow.ParaderoLongitud = lon

				for vi, v := range services {
					row, err := serviceRow(stopRow, v, fmt.Sprintf("%s.servicios[%d]", stopPath, vi))
					if err != nil {
						fail(err)
						return
					}
					if !yield(row, nil) {
						return
					}
				}
			}
		}
	}
}

func serviceRow(row FlatRow, v any, path string) (FlatRow, *ExpansionError) {
	svc, ok := v.(map[string]any)
	if !ok {
		return FlatRow{}, shapeError(path, "object", v)
	}
	operator, err := objectField(svc, "negocio", path+".negocio")
	if err != nil {
		return FlatRow{}, err
	}
	route, err := objectField(svc, "recorrido", path+".recorrido")
	if err != nil {
		return FlatRow{}, err
	}

	row.ServicioID = Int(GetPath(svc, []string{"id"}, nil))
	row.ServicioCod = String(GetPath(svc, []string{"cod"}, nil))
	row.ServicioDestino = String(GetPath(svc, []string{"destino"}, nil))
	row.ServicioOrden = Int(GetPath(svc, []string{"orden"}, nil))
	row.ServicioColor = String(GetPath(svc, []string{"color"}, nil))
	row.EmpresaNombre = String(GetPath(operator, []string{"nombre"}, nil))
	row.EmpresaColor = String(GetPath(operator, []string{"color"}, nil))
	row.RecorridoDestino = String(GetPath(route, []string{"destino"}, nil))
	row.Itinerario = Bool(GetPath(svc, []string{"itinerario"}, nil))
	row.CodigoServicio = String(GetPath(svc, []string{"codigo"}, nil))
	return row, nil
}

// objectField returns obj[key] as an object; absent or null is an empty object.
func objectField(obj map[string]any, key, path string) (map[string]any, *ExpansionError) {
	v, ok := obj[key]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	child, ok := v.(map[string]any)
	if !ok {
		return nil, shapeError(path, "object", v)
	}
	return child, nil
}

// arrayField returns obj[key] as an array; absent or null is an empty array.
func arrayField(obj map[string]any, key, path string) ([]any, *ExpansionError) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, shapeError(path, "array", v)
	}
	return items, nil
}

// position reads the [lat, lon] pair of a stop. An absent pair gives two nils.
func position(stop map[string]any, path string) (*float64, *float64, *ExpansionError) {
	v, ok := stop["pos"]
	if !ok || v == nil {
		return nil, nil, nil
	}
	pair, ok := v.([]any)
	if !ok {
		return nil, nil, shapeError(path, "array", v)
	}
	if len(pair) < 2 {
		return nil, nil, &ExpansionError{Path: path, Want: "[lat, lon]", Got: fmt.Sprintf("array of %d", len(pair))}
	}
	return Float(pair[0]), Float(pair[1]), nil
}
