package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/sergius2002/brsledger/internal/ledger"
)

// printReport imprime una línea por fecha y el saldo final de la corrida.
func printReport(w io.Writer, report ledger.RunReport) {
	table := tablewriter.NewWriter(w)
	table.Header("Fecha", "Estado", "Capital final", "Warnings")

	for _, o := range report.Outcomes {
		estado := "OK"
		capital := o.CapitalFinal
		if o.Err != nil {
			estado = "FALLIDA"
			capital = "-"
		}
		warnings := ""
		if o.Warnings > 0 {
			warnings = fmt.Sprintf("%d", o.Warnings)
		}
		table.Append(o.Fecha.String(), estado, capital, warnings)
	}
	table.Render()

	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "  %s: %v\n", o.Fecha, o.Err)
		}
	}

	fmt.Fprintf(w, "run %s: %d ok, %d fallidas, %s\n",
		report.RunID, report.OK, report.Failed,
		report.Elapsed.Round(time.Millisecond))
}
