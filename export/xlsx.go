// Package export writes run results to a spreadsheet.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/Nehilsa2/linkedin_scraper/profile"
)

// DirName is the results folder created next to the input workbook
const DirName = "linkedin_results"

// Columns is the header row of every export
var Columns = []string{"name", "profile_url", "linkedin_scraping_dog_info"}

const timestampLayout = "2006-01-02_15-04-05"

// CleanRole makes a role usable in a file name: characters other than
// letters, digits, space and underscore become underscores, then spaces do.
func CleanRole(role string) string {
	var b strings.Builder
	for _, r := range role {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.ReplaceAll(b.String(), " ", "_")
}

// FileName builds linkedin_<role>_<timestamp>.xlsx
func FileName(role string, at time.Time) string {
	return fmt.Sprintf("linkedin_%s_%s.xlsx", CleanRole(role), at.Format(timestampLayout))
}

// Writer saves records into dir, creating it when missing
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter returns a Writer using the wall clock.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// Write stores the records in a new workbook and returns its path.
func (w *Writer) Write(role string, records []profile.Record) (string, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return WriteWorkbook(w.Dir, role, now(), records)
}

// WriteWorkbook writes one sheet with a header row and one row per record.
func WriteWorkbook(dir, role string, at time.Time, records []profile.Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: create %s", dir)
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	if err != nil {
		return "", eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.ProfileURL)
		row.AddCell().SetString(r.Enrichment.String())
	}

	path := filepath.Join(dir, FileName(role, at))
	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("results exported", zap.String("path", path), zap.Int("rows", len(records)))
	return path, nil
}
