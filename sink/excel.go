package sink

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/cloudtally/cloudtally/telemetry"
)

// maxSheetNameLen is the spreadsheet format's hard sheet name limit.
const maxSheetNameLen = 31

// ExcelSink writes each partition as a worksheet in a single workbook.
type ExcelSink struct {
	path   string
	logger *telemetry.Logger
}

// NewExcelSink creates a sink writing the workbook at path.
func NewExcelSink(path string) *ExcelSink {
	return &ExcelSink{
		path:   path,
		logger: telemetry.NewLogger("sink"),
	}
}

// Write saves one worksheet per partition, header row first, rows in
// partition order.
func (s *ExcelSink) Write(ctx context.Context, partitions []Partition) error {
	if len(partitions) == 0 {
		return fmt.Errorf("no partitions to write")
	}

	book := excelize.NewFile()
	defer func() {
		if err := book.Close(); err != nil {
			s.logger.WithContext(ctx).Warn().Err(err).Msg("closing workbook")
		}
	}()

	namer := newSheetNamer()
	for i, partition := range partitions {
		name := namer.name(partition.Name)
		if i == 0 {
			if err := book.SetSheetName(book.GetSheetName(0), name); err != nil {
				return fmt.Errorf("renaming sheet %q: %w", name, err)
			}
		} else {
			if _, err := book.NewSheet(name); err != nil {
				return fmt.Errorf("adding sheet %q: %w", name, err)
			}
		}
		if err := writeSheet(book, name, partition); err != nil {
			return err
		}
		s.logger.WithContext(ctx).Debug().
			Str("sheet", name).
			Int("rows", len(partition.Rows)).
			Msg("sheet written")
	}

	if err := book.SaveAs(s.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", s.path, err)
	}
	s.logger.WithContext(ctx).Info().
		Str("path", s.path).
		Int("sheets", len(partitions)).
		Msg("workbook saved")
	return nil
}

func writeSheet(book *excelize.File, name string, partition Partition) error {
	header := make([]interface{}, len(partition.Columns))
	for i, col := range partition.Columns {
		header[i] = col
	}
	if err := setRow(book, name, 1, header); err != nil {
		return err
	}

	for i, row := range partition.Rows {
		cells := make([]interface{}, len(partition.Columns))
		for j, col := range partition.Columns {
			cells[j] = row[col]
		}
		if err := setRow(book, name, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(book *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("addressing row %d: %w", row, err)
	}
	if err := book.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing sheet %q row %d: %w", sheet, row, err)
	}
	return nil
}

// sheetNamer assigns workbook-unique sheet names within the length limit.
// Truncation can collapse distinct partition names; collisions get a
// numeric suffix so no partition's rows land on another's sheet.
type sheetNamer struct {
	used map[string]bool
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{used: make(map[string]bool)}
}

func (n *sheetNamer) name(base string) string {
	candidate := base
	if len(candidate) > maxSheetNameLen {
		candidate = candidate[:maxSheetNameLen]
	}
	for i := 2; n.used[candidate]; i++ {
		suffix := fmt.Sprintf("-%d", i)
		trimmed := base
		if len(trimmed)+len(suffix) > maxSheetNameLen {
			trimmed = trimmed[:maxSheetNameLen-len(suffix)]
		}
		candidate = trimmed + suffix
	}
	n.used[candidate] = true
	return candidate
}
