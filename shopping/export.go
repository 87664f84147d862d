package shopping

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	ListSheet      = "Shopping List"
	InventorySheet = "Current Inventory"
)

// Export writes the report as an xlsx workbook with one sheet per view
func Export(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ListSheet); err != nil {
		return err
	}
	rows := [][]any{{"Name", "Quantity", "Category", "Priority"}}
	for _, e := range r.ShoppingList.Items {
		rows = append(rows, []any{e.Name, e.Quantity, e.Category, string(e.Priority)})
	}
	if err := writeRows(f, ListSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(InventorySheet); err != nil {
		return err
	}
	rows = [][]any{{"Name", "Quantity", "Max", "Category", "Percentage"}}
	for _, e := range r.CurrentInventory.Items {
		rows = append(rows, []any{e.Name, e.Quantity, e.Max, e.Category, e.Percentage})
	}
	if err := writeRows(f, InventorySheet, rows); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, idx+1, err)
		}
	}
	return nil
}
