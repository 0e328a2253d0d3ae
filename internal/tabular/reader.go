package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/crmkit/deal-consolidator/constants"
)

// ReadFile reads a tabular file into header-keyed rows. The first row is the
// header; short rows are padded with empty cells.
func ReadFile(path, ext string) ([]map[string]string, error) {
	switch constants.NormalizeExt(ext) {
	case "csv":
		return readCSV(path)
	case "xlsx":
		return readXLSX(path)
	case "xls":
		return readXLS(path)
	default:
		return nil, fmt.Errorf("not a tabular format: %q", ext)
	}
}

func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, zipRow(header, rec))
	}
	return rows, nil
}

func readXLSX(path string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	header := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		rows = append(rows, zipRow(header, rec))
	}
	return rows, nil
}

func readXLS(path string) ([]map[string]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("xls has no sheets")
	}

	hdrRow := sheet.Row(0)
	if hdrRow == nil {
		return nil, nil
	}
	// LastCol is an exclusive bound
	var header []string
	for j := hdrRow.FirstCol(); j < hdrRow.LastCol(); j++ {
		header = append(header, hdrRow.Col(j))
	}

	var rows []map[string]string
	for i := 1; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		rec := make([]string, len(header))
		for j := range header {
			rec[j] = row.Col(hdrRow.FirstCol() + j)
		}
		rows = append(rows, zipRow(header, rec))
	}
	return rows, nil
}

// zipRow pairs header names with cell values, skipping unnamed columns.
func zipRow(header, rec []string) map[string]string {
	m := make(map[string]string, len(header))
	for j, h := range header {
		if h == "" {
			continue
		}
		if j < len(rec) {
			m[h] = rec[j]
		} else {
			m[h] = ""
		}
	}
	return m
}
