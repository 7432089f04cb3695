package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlinspector/internal/dataset"
	"etlinspector/pkg/contracts/domain"
)

func column(name string, raw ...string) dataset.Column {
	return dataset.NewColumn(name, dataset.Values(raw...))
}

func details(issue domain.Issue, key string) []string {
	var out []string
	for _, d := range issue.Details {
		if d.Key == key {
			out = append(out, d.Value)
		}
	}
	return out
}

func TestThresholds_SeverityForRatio(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		ratio float64
		want  domain.Severity
	}{
		{ratio: 0.0, want: domain.SeverityLow},
		{ratio: 0.10, want: domain.SeverityLow},
		{ratio: 0.11, want: domain.SeverityMedium},
		{ratio: 0.50, want: domain.SeverityMedium},
		{ratio: 0.51, want: domain.SeverityHigh},
		{ratio: 1.0, want: domain.SeverityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.SeverityForRatio(tt.ratio), "ratio %.2f", tt.ratio)
	}

	assert.Equal(t, domain.SeverityMedium, Thresholds{}.SeverityForRatio(0.2), "zero thresholds use defaults")
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{MediumRatio: 0.6, HighRatio: 0.5}.Validate())
	assert.Error(t, Thresholds{MediumRatio: 0.1, HighRatio: 1.5}.Validate())
}

func TestNullCheck(t *testing.T) {
	c := NewNullCheck()
	tests := []struct {
		name      string
		values    []string
		wantOK    bool
		wantCount int
		wantSev   domain.Severity
	}{
		{name: "no nulls", values: []string{"a", "b"}, wantOK: false},
		{name: "one of twenty", values: append(make([]string, 0), strings.Split("a,b,c,d,e,f,g,h,i,j,k,l,m,n,o,p,q,r,s,", ",")...), wantOK: true, wantCount: 1, wantSev: domain.SeverityLow},
		{name: "blank counts", values: []string{"a", "   ", "b", "c"}, wantOK: true, wantCount: 1, wantSev: domain.SeverityMedium},
		{name: "mostly null", values: []string{"", "NA", "x"}, wantOK: true, wantCount: 2, wantSev: domain.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := column("c", tt.values...)
			issue, ok, err := c.InspectColumn(col, col.Len(), DefaultThresholds())
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantCount, issue.Count)
			assert.Equal(t, tt.wantSev, issue.Severity)
			assert.Equal(t, "c", issue.Column)
		})
	}
}

func TestNullCheck_SplitsNullAndBlank(t *testing.T) {
	col := column("c", "", " ", "x", "NULL")
	issue, ok, err := NewNullCheck().InspectColumn(col, 4, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"2"}, details(issue, "null"))
	assert.Equal(t, []string{"1"}, details(issue, "blank"))
	assert.Equal(t, []string{"75.00"}, details(issue, "percent"))
}

func TestTypeConsistencyCheck(t *testing.T) {
	c := NewTypeConsistencyCheck()

	_, ok, err := c.InspectColumn(column("n", "1", "2", "3"), 3, DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.InspectColumn(column("n", "1", "", "NA"), 3, DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, ok, "nulls do not count as a kind")

	issue, ok, err := c.InspectColumn(column("mixed", "1", "2", "true", "2024-01-01", "abc"), 5, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, issue.Count)
	assert.Equal(t, domain.SeverityHigh, issue.Severity)
	assert.Equal(t, []string{"numeric"}, details(issue, "majority"))
	assert.Equal(t, []string{"2"}, details(issue, "kind.numeric"))
	assert.Contains(t, issue.Description, "numeric: 2, date: 1, boolean: 1, text: 1")
}

func TestDuplicateCheck(t *testing.T) {
	c := NewDuplicateCheck()

	ds := dataset.New("d", []string{"a", "b"}, [][]string{
		{"1", "x"}, {"1", "x"}, {"1", ""}, {"1", ""}, {"2", "y"},
	})
	issue, ok, err := c.InspectDataset(ds, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, issue.Count)
	assert.True(t, issue.DatasetScoped())
	assert.Equal(t, domain.SeverityMedium, issue.Severity)
	assert.Equal(t, []string{"3"}, details(issue, "column.a"))
	assert.Equal(t, []string{"2"}, details(issue, "column.b"))

	mostly := dataset.New("d", []string{"a"}, [][]string{{"1"}, {"1"}, {"1"}, {"1"}})
	issue, ok, err = c.InspectDataset(mostly, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.SeverityHigh, issue.Severity)
}

func TestDuplicateCheck_CellBoundaries(t *testing.T) {
	ds := dataset.New("d", []string{"a", "b"}, [][]string{{"ab", "c"}, {"a", "bc"}})
	_, ok, err := NewDuplicateCheck().InspectDataset(ds, DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSpecialCharCheck(t *testing.T) {
	c := NewSpecialCharCheck()

	_, ok, err := c.InspectColumn(column("ok", "João", "a@b.com", "x-y_z", "1,5"), 4, DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, ok)

	issue, ok, err := c.InspectColumn(column("bad", "a#b", "fine", "50%", "c#d", "e#f"), 5, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, issue.Count)
	assert.Equal(t, domain.SeverityHigh, issue.Severity)
	assert.Equal(t, []string{"a#b", "50%", "c#d"}, details(issue, "example"))
	assert.Equal(t, []string{`'#' '%'`}, details(issue, "characters"))

	_, _, err = c.InspectColumn(column("n", "1", "2"), 2, DefaultThresholds())
	assert.ErrorIs(t, err, ErrSkipColumn)
}

func TestSpecialCharCheck_TruncatesExamples(t *testing.T) {
	long := strings.Repeat("x", 80) + "#"
	issue, ok, err := NewSpecialCharCheck().InspectColumn(column("c", long), 1, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{strings.Repeat("x", 50)}, details(issue, "example"))
}

func TestWhitespaceCheck(t *testing.T) {
	c := NewWhitespaceCheck()

	issue, ok, err := c.InspectColumn(column("name", " Ann", "Bob  Smith", "Carl", "Dee "), 4, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, issue.Count)
	assert.Equal(t, []string{"2"}, details(issue, "leading_trailing"))
	assert.Equal(t, []string{"1"}, details(issue, "repeated_spaces"))
	assert.Equal(t, domain.SeverityMedium, issue.Severity)

	values := make([]string, 20)
	for i := range values {
		values[i] = "clean"
	}
	values[0] = "dirty "
	issue, ok, err = c.InspectColumn(column("name", values...), 20, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.SeverityLow, issue.Severity)

	_, ok, err = c.InspectColumn(column("name", "a", "b c"), 2, DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = c.InspectColumn(column("n", " 1", "2"), 2, DefaultThresholds())
	assert.ErrorIs(t, err, ErrSkipColumn)
}

func TestDateFormatCheck(t *testing.T) {
	c := NewDateFormatCheck()

	issue, ok, err := c.InspectColumn(column("when", "2024-01-15", "2024-02-01", "15/01/2024", "2024-03-01"), 4, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, issue.Count)
	assert.Equal(t, domain.SeverityMedium, issue.Severity)
	assert.Equal(t, []string{"YYYY-MM-DD"}, details(issue, "dominant"))
	assert.Equal(t, []string{"3"}, details(issue, "format.YYYY-MM-DD"))
	assert.Equal(t, []string{"1"}, details(issue, "format.DD/MM/YYYY"))

	_, ok, err = c.InspectColumn(column("when", "2024-01-15", "2024-02-01"), 2, DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = c.InspectColumn(column("text", "a", "b", "2024-01-01"), 3, DefaultThresholds())
	assert.ErrorIs(t, err, ErrSkipColumn)
}

func TestColumnNameCheck(t *testing.T) {
	c := NewColumnNameCheck()
	tests := []struct {
		name       string
		wantFaults []string
	}{
		{name: "client_id", wantFaults: nil},
		{name: "Código", wantFaults: nil},
		{name: "Client Name!!", wantFaults: []string{FaultSpaces, FaultSpecialChars}},
		{name: "1st_place", wantFaults: []string{FaultLeadingDigit}},
		{name: "price($)", wantFaults: []string{FaultSpecialChars}},
		{name: strings.Repeat("a", 51), wantFaults: []string{FaultTooLong}},
		{name: strings.Repeat("a", 50), wantFaults: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue, ok, err := c.InspectColumn(column(tt.name, "x"), 1, DefaultThresholds())
			require.NoError(t, err)
			assert.Equal(t, len(tt.wantFaults) > 0, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantFaults, details(issue, "fault"))
			assert.Equal(t, tt.name, issue.Column)
			assert.Equal(t, len(tt.wantFaults), issue.Count)
		})
	}
}

func TestColumnNameCheck_BlankHeaderIsRenamedFirst(t *testing.T) {
	ds := dataset.New("blank", []string{"  ", "id"}, [][]string{{"a", "1"}})
	col := ds.Column(0)
	require.Equal(t, dataset.UnnamedColumn(0), col.Name)

	issue, ok, err := NewColumnNameCheck().InspectColumn(col, ds.NumRows(), DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Unnamed: 0", issue.Column)
	assert.Equal(t, domain.SeverityMedium, issue.Severity)
}

func TestColumnNameCheck_SuggestsCleanName(t *testing.T) {
	issue, ok, err := NewColumnNameCheck().InspectColumn(column("Client Name!!", "x"), 1, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"client_name"}, details(issue, "suggested_name"))
}

func TestRegistry_Select(t *testing.T) {
	r := DefaultRegistry()

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(CheckNames))

	some, err := r.Select([]string{DateFormatCheckName, NullCheckName, NullCheckName})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, NullCheckName, some[0].Name())
	assert.Equal(t, DateFormatCheckName, some[1].Name())

	_, err = r.Select([]string{"missing"})
	assert.ErrorIs(t, err, ErrUnknownCheck)
}
