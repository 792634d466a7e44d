package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

func renderTable(headers table.Row, rows []table.Row) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(headers)
	tw.AppendRows(rows)
	return tw.Render()
}
