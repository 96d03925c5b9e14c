package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/stats"
)

func sampleReport() stats.Report {
	raw := []model.RawEvent{
		{"id": "1", "storageDate": "2024-01-10T12:00:00Z", "contact": map[string]any{"identity": "a@wa"}},
		{"id": "2", "storageDate": "2024-01-10T23:00:00Z", "contact": map[string]any{"identity": "b@wa"}, "extras": map[string]any{"n": 1.0}},
		{"id": "3", "storageDate": "2024-01-10T13:00:00Z", "contact": map[string]any{"identity": "a@wa"}},
	}
	cfg := model.ReportConfig{Location: time.FixedZone("BRT", -3*60*60), StartHour: 9, EndHour: 18, Locale: "pt"}
	return stats.BuildReport(raw, cfg)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteAll(dir, sampleReport())
	require.NoError(t, err)
	require.Len(t, paths, 6)

	summary := readCSV(t, filepath.Join(dir, SummaryFile))
	want := [][]string{
		{"Horário", "Usuários únicos", "Percentual (%)"},
		{"Dentro", "1", "50.00%"},
		{"Fora", "1", "50.00%"},
	}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("unexpected summary.csv (-want +got):\n%s", diff)
	}

	weekday := readCSV(t, filepath.Join(dir, WeekdayFile))
	assert.Len(t, weekday, 8)
	assert.Equal(t, []string{"Dia", "Dentro", "Fora", "Total"}, weekday[0])
	assert.Equal(t, []string{"Quarta-feira", "1", "1", "2"}, weekday[3])

	hourly := readCSV(t, filepath.Join(dir, HourlyFile))
	assert.Len(t, hourly, 25)

	weekly := readCSV(t, filepath.Join(dir, WeeklyFile))
	assert.Equal(t, [][]string{{"Semana", "Dentro", "Fora", "Total"}, {"2024-W02", "1", "1", "2"}}, weekly)

	events := readCSV(t, filepath.Join(dir, EventsFile))
	assert.Len(t, events, 4)
	first := readCSV(t, filepath.Join(dir, FirstContactsFile))
	assert.Len(t, first, 3)
}

func TestWriteEventsColumns(t *testing.T) {
	r := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, WriteEvents(&buf, r.FirstContacts))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	wantHeader := []string{"datetime_utc", "datetime_local", "hour", "user_id", "bucket", "contact", "extras", "id", "storageDate"}
	assert.Equal(t, wantHeader, records[0])
	assert.Equal(t, []string{
		"2024-01-10T12:00:00Z",
		"2024-01-10T09:00:00-03:00",
		"9",
		"a@wa",
		"Inside",
		`{"identity":"a@wa"}`,
		"",
		"1",
		"2024-01-10T12:00:00Z",
	}, records[1])
	assert.Equal(t, `{"n":1}`, records[2][6])
}

func TestWriteEventsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEvents(&buf, nil))
	assert.Equal(t, "datetime_utc,datetime_local,hour,user_id,bucket\n", buf.String())
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, "", CellValue(nil))
	assert.Equal(t, "x", CellValue("x"))
	assert.Equal(t, "true", CellValue(true))
	assert.Equal(t, "1.5", CellValue(1.5))
	assert.Equal(t, "12", CellValue(12.0))
	assert.Equal(t, "12345678901234567890", CellValue(json.Number("12345678901234567890")))
	assert.Equal(t, `["a","<b>"]`, CellValue([]any{"a", "<b>"}))
}
