package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tealeg/xlsx/v2"

	"github.com/Nehilsa2/linkedin_scraper/failure"
)

// RoleColumn is the required header in the input workbook
const RoleColumn = "role"

// SampleRole is written into a freshly created input workbook
const SampleRole = "Software Engineer"

// ErrSampleWritten is wrapped when a missing workbook was replaced by a sample
var ErrSampleWritten = errors.New("input workbook not found, a sample was written; set the role and run again")

// ReadRole returns the role on the first data row of the workbook's first
// sheet. A missing workbook is replaced by a sample and reported as a
// configuration error.
func ReadRole(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if werr := WriteSampleInput(path); werr != nil {
			return "", failure.Configuration("write sample input", werr)
		}
		return "", failure.Configuration("read input workbook", ErrSampleWritten)
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", failure.Configuration("open input workbook", err)
	}
	if len(f.Sheets) == 0 {
		return "", failure.Newf(failure.KindConfiguration, "read input workbook", "%s has no sheets", path)
	}

	rows := f.Sheets[0].Rows
	if len(rows) == 0 {
		return "", failure.Newf(failure.KindConfiguration, "read input workbook", "%s is empty", path)
	}

	col := -1
	for i, cell := range rows[0].Cells {
		if strings.EqualFold(strings.TrimSpace(cell.String()), RoleColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return "", failure.Newf(failure.KindConfiguration, "read input workbook", "workbook must contain a %q column", RoleColumn)
	}

	if len(rows) < 2 || col >= len(rows[1].Cells) {
		return "", failure.Newf(failure.KindConfiguration, "read input workbook", "no role on the first data row")
	}
	role := strings.TrimSpace(rows[1].Cells[col].String())
	if role == "" {
		return "", failure.Newf(failure.KindConfiguration, "read input workbook", "role on the first data row is empty")
	}
	return role, nil
}

// WriteSampleInput creates a workbook with a role column and one example row.
func WriteSampleInput(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	if err != nil {
		return err
	}
	sheet.AddRow().AddCell().SetString(RoleColumn)
	sheet.AddRow().AddCell().SetString(SampleRole)

	return f.Save(path)
}
