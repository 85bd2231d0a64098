package export

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/Nehilsa2/linkedin_scraper/enrich"
	"github.com/Nehilsa2/linkedin_scraper/profile"
)

func TestCleanRole(t *testing.T) {
	cases := map[string]string{
		"Data Analyst":          "Data_Analyst",
		"C++ / Go dev":          "C_____Go_dev",
		"Sr. Engineer (Remote)": "Sr__Engineer__Remote_",
		"already_clean":         "already_clean",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanRole(in), in)
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "linkedin_Data_Analyst_2024-03-09_14-05-07.xlsx", FileName("Data Analyst", at))
}

func TestWriteWorkbook(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DirName)
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	records := []profile.Record{
		{Name: "Jane Doe", ProfileURL: "https://www.linkedin.com/in/jane-doe",
			Enrichment: enrich.Result{StatusCode: 200, Payload: json.RawMessage(`{"fullName":"Jane Doe"}`)}},
		{Name: "John Smith", ProfileURL: "https://www.linkedin.com/in/john-smith",
			Enrichment: enrich.Result{StatusCode: 403, Failure: "Request failed with status code: 403"}},
	}

	path, err := WriteWorkbook(dir, "Data Analyst", at, records)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "linkedin_Data_Analyst_2024-03-09_14-05-07.xlsx"), path)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	rows := f.Sheets[0].Rows
	require.Len(t, rows, 3)

	var got [][]string
	for _, row := range rows {
		var vals []string
		for _, c := range row.Cells {
			vals = append(vals, c.String())
		}
		got = append(got, vals)
	}
	assert.Equal(t, Columns, got[0])
	assert.Equal(t, []string{"Jane Doe", "https://www.linkedin.com/in/jane-doe", `{"fullName":"Jane Doe"}`}, got[1])
	assert.Equal(t, []string{"John Smith", "https://www.linkedin.com/in/john-smith", "Request failed with status code: 403"}, got[2])
}

func TestWriter_UsesClock(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	w := &Writer{Dir: t.TempDir(), Now: func() time.Time { return at }}

	path, err := w.Write("QA", nil)
	require.NoError(t, err)
	assert.Equal(t, "linkedin_QA_2025-01-02_03-04-05.xlsx", filepath.Base(path))
}
