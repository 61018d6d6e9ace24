package service

import (
	"fmt"
	"io"
	"time"

	"github.com/imobgestao/locacoes/backend/model"
	"github.com/xuri/excelize/v2"
)

// ExportSheet is the worksheet name of contract exports
const ExportSheet = "Contratos"

var exportHeaders = []string{
	"Código", "Início", "Término", "Próximo reajuste", "Índice",
	"Aluguel", "Dia de pagamento", "Status", "Situação", "Dias até o término", "Dias até o reajuste",
}

// ExportContracts writes an xlsx workbook listing the contracts with their
// status derived as of now
func ExportContracts(w io.Writer, contracts []model.Contract, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return err
	}

	for i, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(ExportSheet, cell, h); err != nil {
			return err
		}
	}

	for i, c := range contracts {
		row := i + 2
		view := model.NewContractView(c, now)

		readjust := ""
		if c.NextReadjustmentDate != nil {
			readjust = *c.NextReadjustmentDate
		}
		status, label := "", view.Error
		var leaseDays, readjustDays any
		if view.Derived != nil {
			status = string(view.Derived.Status)
			label = view.Label
			leaseDays = view.Derived.DaysUntilLeaseEnd
			if view.Derived.DaysUntilReadjustment != nil {
				readjustDays = *view.Derived.DaysUntilReadjustment
			}
		}

		values := []any{
			c.Code, c.StartDate, c.EndDate, readjust, c.ReadjustmentIndex,
			c.RentAmount.Round(2).InexactFloat64(), c.PaymentDay, status, label, leaseDays, readjustDays,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	return f.Write(w)
}
