package domain

import (
	"fmt"
	"time"
)

// FechaFormat es el formato ISO con el que se serializan las fechas.
const FechaFormat = "2006-01-02"

// Fecha representa un día calendario, sin hora ni zona horaria.
// El ledger trabaja exclusivamente a granularidad de día: cada fecha
// tiene a lo sumo un cierre de stock y una fila de capital.
type Fecha struct {
	y int
	m time.Month
	d int
}

// NewFecha construye una Fecha normalizada para el año, mes y día dados.
func NewFecha(year int, month time.Month, day int) Fecha {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Fecha{y, m, d}
}

// ParseFecha parsea una fecha ISO YYYY-MM-DD.
func ParseFecha(s string) (Fecha, error) {
	t, err := time.Parse(FechaFormat, s)
	if err != nil {
		return Fecha{}, fmt.Errorf("domain.ParseFecha: %q: %w", s, err)
	}
	y, m, d := t.Date()
	return Fecha{y, m, d}, nil
}

// FechaDe devuelve la Fecha del instante dado en la zona horaria del instante.
func FechaDe(t time.Time) Fecha {
	y, m, d := t.Date()
	return Fecha{y, m, d}
}

// Hoy devuelve la fecha actual en hora local.
func Hoy() Fecha { return FechaDe(time.Now()) }

// String devuelve la fecha en formato ISO YYYY-MM-DD.
func (f Fecha) String() string { return f.time().Format(FechaFormat) }

// IsZero indica si la fecha es el valor cero.
func (f Fecha) IsZero() bool { return f.y == 0 && f.m == 0 && f.d == 0 }

// Anterior devuelve el día anterior.
func (f Fecha) Anterior() Fecha { return f.add(-1) }

// Siguiente devuelve el día siguiente.
func (f Fecha) Siguiente() Fecha { return f.add(1) }

// Before indica si f es estrictamente anterior a x.
func (f Fecha) Before(x Fecha) bool { return f.time().Before(x.time()) }

// After indica si f es estrictamente posterior a x.
func (f Fecha) After(x Fecha) bool { return f.time().After(x.time()) }

// Rango devuelve los límites [inicio, fin) del día en UTC, para
// particionar registros con timestamp (create_time de trades).
func (f Fecha) Rango() (inicio, fin time.Time) {
	inicio = f.time()
	return inicio, inicio.Add(24 * time.Hour)
}

func (f Fecha) add(days int) Fecha {
	y, m, d := f.time().AddDate(0, 0, days).Date()
	return Fecha{y, m, d}
}

// time es la representación canónica del día: medianoche UTC.
func (f Fecha) time() time.Time {
	return time.Date(f.y, f.m, f.d, 0, 0, 0, 0, time.UTC)
}
