package suggestions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlinspector/pkg/contracts/domain"
)

func TestCleanColumnName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Client Name!!", want: "client_name"},
		{in: "Ação Própria", want: "acao_propria"},
		{in: "1st Place", want: "col_1st_place"},
		{in: "__already_clean__", want: "already_clean"},
		{in: "E-mail / Phone", want: "e_mail_phone"},
		{in: "!!!", want: "column"},
		{in: "", want: "column"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanColumnName(tt.in))
		})
	}
}

func TestRenameMap_DisambiguatesCollisions(t *testing.T) {
	got := RenameMap([]string{"Client Name", "client_name", "Client-Name", "id"})

	assert.Equal(t, "client_name", got["Client Name"])
	assert.Equal(t, "client_name_2", got["client_name"])
	assert.Equal(t, "client_name_3", got["Client-Name"])
	assert.Equal(t, "id", got["id"])
}

func TestNew_CompilesEveryCategory(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, domain.AllCategories, c.Categories())
}

func TestCatalogue_Suggestion(t *testing.T) {
	c := Default()

	for _, cat := range domain.AllCategories {
		t.Run(string(cat), func(t *testing.T) {
			s, err := c.Suggestion(cat, []string{"Client Name!!", "email"})
			require.NoError(t, err)

			assert.Equal(t, cat, s.Category)
			assert.NotEmpty(t, s.Problem)
			assert.NotEmpty(t, s.Processors)
			assert.NotEmpty(t, s.Flow)
			assert.NotEmpty(t, s.Remedies)
			assert.Contains(t, s.Script, "session.transfer(flowFile, REL_SUCCESS)")
			assert.NotContains(t, s.Script, "{{")
			for _, p := range s.Processors {
				assert.NotEmpty(t, p.Name)
				for _, prop := range p.Properties {
					assert.NotContains(t, prop.Key, "{{")
					assert.NotContains(t, prop.Value, "{{")
				}
			}
		})
	}
}

func TestCatalogue_SuggestionRendersColumns(t *testing.T) {
	c := Default()

	s, err := c.Suggestion(domain.CategoryColumnNames, []string{"Client Name!!"})
	require.NoError(t, err)
	assert.Contains(t, s.Script, `('Client Name!!'): 'client_name'`)

	var jolt string
	for _, p := range s.Processors {
		for _, prop := range p.Properties {
			if prop.Key == "Jolt Specification" {
				jolt = prop.Value
			}
		}
	}
	assert.Equal(t, `{ "Client Name!!": "client_name", "*": "&" }`, jolt)

	s, err = c.Suggestion(domain.CategoryColumnNames, nil)
	require.NoError(t, err)
	assert.Contains(t, s.Script, "def renames = [:]")
}

func TestCatalogue_SuggestionQuotesGroovy(t *testing.T) {
	s, err := Default().Suggestion(domain.CategoryWhitespace, []string{`it's`})
	require.NoError(t, err)
	assert.Contains(t, s.Script, `['it\'s'] as Set`)
}

func TestCatalogue_SuggestionUnknownCategory(t *testing.T) {
	_, err := Default().Suggestion(domain.Category("bogus"), nil)
	assert.Error(t, err)
}

func TestCatalogue_ToolConfig(t *testing.T) {
	c := Default()

	cfg := c.ToolConfig(domain.CategoryNulls, "email")
	assert.Contains(t, cfg, "NiFi UpdateRecord:")
	assert.Contains(t, cfg, "/email=coalesce(/email, 'UNKNOWN')")
	assert.Contains(t, cfg, `"email" IS NOT NULL`)
	assert.NotContains(t, cfg, "Record Reader")
	assert.True(t, strings.HasSuffix(cfg, "Flow: GetFile -> ConvertExcelToCSVProcessor -> ValidateRecord -> UpdateRecord -> PutFile"))

	dup := c.ToolConfig(domain.CategoryDuplicates, "")
	assert.Contains(t, dup, "SELECT DISTINCT * FROM FLOWFILE")

	assert.Empty(t, c.ToolConfig(domain.Category("bogus"), "x"))
}

func TestCatalogue_ForReport(t *testing.T) {
	report := domain.Report{Issues: []domain.Issue{
		{Category: domain.CategoryColumnNames, Column: "Client Name!!"},
		{Category: domain.CategoryNulls, Column: "email"},
		{Category: domain.CategoryDuplicates},
		{Category: domain.CategoryNulls, Column: "phone"},
	}}

	got := Default().ForReport(report)
	require.Len(t, got, 3)
	assert.Equal(t, domain.CategoryNulls, got[0].Category)
	assert.Equal(t, []string{"email", "phone"}, got[0].Columns)
	assert.Equal(t, domain.CategoryDuplicates, got[1].Category)
	assert.Empty(t, got[1].Columns)
	assert.Equal(t, domain.CategoryColumnNames, got[2].Category)
}
