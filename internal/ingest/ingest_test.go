package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"etlinspector/internal/dataset"
	"etlinspector/internal/detector"
	"etlinspector/pkg/contracts/domain"
)

func cells(ds *dataset.Dataset, col int) []string {
	c := ds.Column(col)
	out := make([]string, c.Len())
	for i, v := range c.Values {
		out[i] = v.String()
	}
	return out
}

func writeWorkbook(t *testing.T, path string, data map[string][][]any, order ...string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if name != "Sheet1" {
				require.NoError(t, f.SetSheetName("Sheet1", name))
			}
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range data[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestBuild(t *testing.T) {
	rows := [][]string{
		{"", ""},
		{"name", "name", "", "age"},
		{"Ann", "A", "", "30"},
		{"", " ", ""},
		{"Bob", "B", "x", "NA", "extra"},
	}

	ds, err := Build("people", rows, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "name.1", "Unnamed: 2", "age", "Unnamed: 4"}, ds.ColumnNames())
	assert.Equal(t, 2, ds.NumRows())
	assert.Equal(t, []string{"30", ""}, cells(ds, 3))
	assert.True(t, ds.Column(3).Values[1].Null)
}

func TestBuild_MaxRowsAndErrors(t *testing.T) {
	rows := [][]string{{"a"}, {"1"}, {"2"}, {"3"}}
	ds, err := Build("x", rows, Options{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.NumRows())

	_, err = Build("x", nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Build("x", [][]string{{""}, {" "}}, Options{})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestDedupeHeader(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{in: []string{"a", "b"}, want: []string{"a", "b"}},
		{in: []string{"a", "a", "a"}, want: []string{"a", "a.1", "a.2"}},
		{in: []string{"a.1", "a", "a"}, want: []string{"a.1", "a", "a.2"}},
		{in: []string{" a ", "a", ""}, want: []string{"a", "a.1", ""}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DedupeHeader(tt.in), "%v", tt.in)
	}
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{line: "a,b,c", want: ','},
		{line: "a;b;c", want: ';'},
		{line: "a\tb\tc", want: '\t'},
		{line: `"x;y;z",b`, want: ','},
		{line: "single", want: ','},
		{line: "a,b;c", want: ','},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectDelimiter(tt.line), tt.line)
	}
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCols  []string
		wantFirst []string
	}{
		{
			name:      "comma",
			input:     "name,email\nAnn,a@b.com\nBob,\n",
			wantCols:  []string{"name", "email"},
			wantFirst: []string{"Ann", "Bob"},
		},
		{
			name:      "semicolon with bom",
			input:     "\xEF\xBB\xBFnome;valor\nJoão;1,5\nMaria;2\n",
			wantCols:  []string{"nome", "valor"},
			wantFirst: []string{"João", "Maria"},
		},
		{
			name:      "lazy quotes and ragged rows",
			input:     "a,b\nx\"y,1\nz\n",
			wantCols:  []string{"a", "b"},
			wantFirst: []string{`x"y`, "z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := ReadCSV(context.Background(), strings.NewReader(tt.input), "in.csv", Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, ds.ColumnNames())
			assert.Equal(t, tt.wantFirst, cells(ds, 0))
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""), "empty.csv", Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ReadCSV(context.Background(), strings.NewReader(",,\n,,\n"), "blank.csv", Options{})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadCSV_MaxRowsStopsEarly(t *testing.T) {
	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 5000; i++ {
		b.WriteString("1\n")
	}
	ds, err := ReadCSV(context.Background(), strings.NewReader(b.String()), "big.csv", Options{MaxRows: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, ds.NumRows())
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadCSV(ctx, strings.NewReader("a\n1\n"), "x.csv", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.xlsx")
	writeWorkbook(t, path, map[string][][]any{
		"Clients": {
			{"Client Name!!", "amount"},
			{"Ann", 10},
			{"Bob ", 20.5},
		},
		"Other": {
			{"code"},
			{"X1"},
		},
	}, "Clients", "Other")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := ReadXLSX(context.Background(), f, "clients.xlsx", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Client Name!!", "amount"}, ds.ColumnNames())
	assert.Equal(t, []string{"Ann", "Bob "}, cells(ds, 0))
	assert.Equal(t, []string{"10", "20.5"}, cells(ds, 1))
	assert.Equal(t, dataset.KindNumeric, ds.Column(1).Kind())

	ds, err = Open(context.Background(), path, Options{Sheet: "Other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, ds.ColumnNames())

	_, err = Open(context.Background(), path, Options{Sheet: "Missing"})
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestReadXLSX_NumberFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	wb := excelize.NewFile()
	rows := [][]any{
		{"amount", "price", "booked"},
		{12, 0.5, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{1234.5, 19.99, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{98765, 7, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{5, 1250, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", cell, &row))
	}
	thousands, err := wb.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	isoDate := "yyyy-mm-dd"
	dated, err := wb.NewStyle(&excelize.Style{CustomNumFmt: &isoDate})
	require.NoError(t, err)
	currency := `"$"#,##0.00`
	money, err := wb.NewStyle(&excelize.Style{CustomNumFmt: &currency})
	require.NoError(t, err)
	require.NoError(t, wb.SetCellStyle("Sheet1", "A2", "A5", thousands))
	require.NoError(t, wb.SetCellStyle("Sheet1", "B2", "B5", money))
	require.NoError(t, wb.SetCellStyle("Sheet1", "C2", "C5", dated))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	ds, err := Open(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"12", "1234.5", "98765", "5"}, cells(ds, 0))
	assert.Equal(t, dataset.KindNumeric, ds.Column(0).Kind())
	assert.Equal(t, dataset.KindNumeric, ds.Column(1).Kind())
	assert.Equal(t, []string{"2024-01-15", "2024-02-01", "2024-03-09", "2024-04-30"}, cells(ds, 2))

	report, err := detector.NewEngine().Detect(context.Background(), ds, detector.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, report.IssuesFor(domain.CategoryTypeConsistency))
}

func TestIsDateNumFmt(t *testing.T) {
	custom := func(s string) *string { return &s }

	tests := []struct {
		name   string
		id     int
		custom *string
		want   bool
	}{
		{"general", 0, nil, false},
		{"thousands", 4, nil, false},
		{"percent", 10, nil, false},
		{"builtin date", 14, nil, true},
		{"builtin time", 21, nil, true},
		{"builtin datetime", 22, nil, true},
		{"iso date", 164, custom("yyyy-mm-dd"), true},
		{"time", 164, custom("hh:mm"), true},
		{"currency", 164, custom(`[$€-407]#,##0.00`), false},
		{"quoted unit", 164, custom(`0.0 "days"`), false},
		{"escaped unit", 164, custom(`0\ \h`), false},
		{"date in second section", 164, custom(`0.00;yyyy`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDateNumFmt(tt.id, tt.custom))
		})
	}
}

func TestReadXLSX_EmptySheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	writeWorkbook(t, path, map[string][][]any{"Sheet1": nil}, "Sheet1")

	_, err := Open(context.Background(), path, Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	writeWorkbook(t, path, map[string][][]any{"A": {{"x"}}, "B": {{"y"}}}, "A", "B")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	names, err := Sheets(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestOpen_DispatchesByExtension(t *testing.T) {
	dir := t.TempDir()

	tsv := filepath.Join(dir, "data.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte("a,b\tc\n1,2\t3\n"), 0644))
	ds, err := Open(context.Background(), tsv, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b", "c"}, ds.ColumnNames())

	txt := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(txt, []byte("a;b\n1;2\n"), 0644))
	ds, err = Open(context.Background(), txt, Options{})
	require.NoError(t, err)
	assert.Equal(t, "data.txt", ds.Name())
	assert.Equal(t, []string{"a", "b"}, ds.ColumnNames())

	_, err = Open(context.Background(), filepath.Join(dir, "legacy.xls"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Open(context.Background(), filepath.Join(dir, "notes.pdf"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Open(context.Background(), "sheets://abc/Sheet1", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseSheetsURI(t *testing.T) {
	id, rng, err := ParseSheetsURI("sheets://abc123/Clients!A1:D")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "Clients!A1:D", rng)

	id, rng, err = ParseSheetsURI("sheets://abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "A:ZZ", rng)

	_, _, err = ParseSheetsURI("sheets://")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestValuesToRows(t *testing.T) {
	values := [][]interface{}{
		{"name", "qty"},
		{"Ann", float64(3)},
		{nil, true},
		{"Cid"},
	}

	assert.Equal(t, [][]string{
		{"name", "qty"},
		{"Ann", "3"},
		{"", "true"},
		{"Cid"},
	}, ValuesToRows(values, 0))
	assert.Len(t, ValuesToRows(values, 1), 2)
	assert.Empty(t, ValuesToRows(nil, 5))
}

func TestSheetsReader_Read(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v4/spreadsheets/sheet-id/values/")
		assert.Equal(t, "FORMATTED_VALUE", r.URL.Query().Get("valueRenderOption"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "Clients!A1:B3",
			"majorDimension": "ROWS",
			"values": [][]any{
				{"name", "email"},
				{"Ann", "a@b.com"},
				{"Bob"},
			},
		})
	}))
	defer srv.Close()

	service, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	reader := NewSheetsReaderWithService(service)
	ds, err := Open(context.Background(), "sheets://sheet-id/Clients!A1:B3", Options{Sheets: reader})
	require.NoError(t, err)

	assert.Equal(t, "Clients", ds.Name())
	assert.Equal(t, []string{"name", "email"}, ds.ColumnNames())
	assert.Equal(t, []string{"a@b.com", ""}, cells(ds, 1))
	assert.True(t, ds.Column(1).Values[1].Null)
}
