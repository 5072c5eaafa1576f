package tournamentservice

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	"github.com/xuri/excelize/v2"
)

const recordsSheet = "Records"

var recordColumns = []string{"Tournament", "Name", "Type", "Winner", "Rounds", "Participants", "Started", "Completed"}

// RecordsWorkbook lays the archive out as a single-sheet workbook.
func RecordsWorkbook(records []*tournamentdb.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, title := range recordColumns {
		if err := setCell(f, col+1, 1, title); err != nil {
			f.Close()
			return nil, err
		}
	}

	for i, r := range records {
		winner := ""
		if r.WinnerID != nil {
			winner = *r.WinnerID
		}
		row := []any{
			r.TournamentID,
			r.Name,
			string(r.Type),
			winner,
			r.Rounds,
			strings.Join(r.Participants, ", "),
			r.StartedAt.UTC().Format(time.RFC3339),
			r.CompletedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range row {
			if err := setCell(f, col+1, i+2, v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	return f, nil
}

func setCell(f *excelize.File, col, row int, v any) error {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell %d,%d: %w", col, row, err)
	}
	return f.SetCellValue(recordsSheet, axis, v)
}

func (s *TournamentService) ExportRecords(ctx context.Context) ([]byte, error) {
	records, err := s.repo.ListRecords(ctx, nil, 1000)
	if err != nil {
		return nil, fmt.Errorf("ExportRecords: %w", err)
	}
	f, err := RecordsWorkbook(records)
	if err != nil {
		return nil, fmt.Errorf("ExportRecords: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("ExportRecords: %w", err)
	}
	return buf.Bytes(), nil
}
