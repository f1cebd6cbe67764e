package profiler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/oratio/internal/models"
)

func testSpeech(id int64, date time.Time, text string) *models.Speech {
	return &models.Speech{
		ID:           id,
		AgendaItemID: 101,
		EventType:    models.EventTypeSpeech,
		Date:         date,
		Speaker:      "Mari Maasikas",
		Text:         text,
	}
}

func TestBuildSpeechesXML(t *testing.T) {
	speeches := []*models.Speech{
		testSpeech(1, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), `Toetan <b>eelnõu</b> & muudatusi.`),
		testSpeech(2, time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC), "Teine sõnavõtt."),
	}

	xml := BuildSpeechesXML(speeches)

	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, `<speech date="2024-03-05">Toetan &lt;b&gt;eelnõu&lt;/b&gt; &amp; muudatusi.</speech>`)
	assert.Contains(t, xml, `<speech date="2024-03-07">Teine sõnavõtt.</speech>`)
	assert.True(t, strings.HasSuffix(xml, "</speeches>"))
}

func TestBuildSpeechesXMLSkipsUnusable(t *testing.T) {
	complete := testSpeech(1, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), "Sisuga kõne.")
	incomplete := testSpeech(2, time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), "Stenogramm koostamisel.")
	incomplete.IsIncomplete = true
	empty := testSpeech(3, time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC), "   ")

	xml := BuildSpeechesXML([]*models.Speech{complete, incomplete, empty})

	assert.Equal(t, 1, strings.Count(xml, "<speech "))
	assert.NotContains(t, xml, "Stenogramm koostamisel.")
}

func TestBuildScopePrompt(t *testing.T) {
	categories := []models.ProfileCategory{
		models.CategoryPoliticalPosition,
		models.CategoryRhetoricalStyle,
	}
	xml := BuildSpeechesXML([]*models.Speech{
		testSpeech(1, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), "Kõne tekst."),
	})

	prompt := BuildScopePrompt(categories, xml, models.PeriodMonth, "Month 03.2024")

	assert.Contains(t, prompt, "Write in Estonian language")
	assert.Contains(t, prompt, "PERIOD: MONTH - Month 03.2024")
	assert.Contains(t, prompt, "ONLY the following 2 categories: POLITICAL_POSITION, RHETORICAL_STYLE")
	assert.Contains(t, prompt, `<speech date="2024-03-05">Kõne tekst.</speech>`)

	// Only the requested definitions ride along.
	assert.Contains(t, prompt, "### POLITICAL_POSITION")
	assert.Contains(t, prompt, "### RHETORICAL_STYLE")
	assert.NotContains(t, prompt, "### ECONOMIC_VIEWS")

	// Response shape the parser expects.
	assert.Contains(t, prompt, "<profiles>")
	assert.Contains(t, prompt, `<profile type="POLITICAL_POSITION">`)
	assert.Contains(t, prompt, `<profile type="RHETORICAL_STYLE">`)
}

func TestCategoryDefinitionsCoverAllCategories(t *testing.T) {
	for _, category := range models.AllCategories() {
		definition, ok := categoryDefinitions[category]
		require.True(t, ok, "missing definition for %s", category)
		assert.Contains(t, definition, "### "+string(category))
	}
}

func TestBuildAggregationPrompt(t *testing.T) {
	march := "03.2024"
	april := "04.2024"
	parts := []*models.ProfilePart{
		{Category: models.CategoryTopicExpertise, PeriodType: models.PeriodMonth, Month: &march, Analysis: "Märtsis keskendus energeetikale.",
			Metrics: models.ProfileMetrics{SpeechesCount: 4, DateRangeStart: "2024-03-05", DateRangeEnd: "2024-03-28"}},
		{Category: models.CategoryTopicExpertise, PeriodType: models.PeriodMonth, Month: &april, Analysis: "Aprillis haridusteemad.",
			Metrics: models.ProfileMetrics{SpeechesCount: 2}},
	}

	prompt := BuildAggregationPrompt(models.CategoryTopicExpertise, parts)

	assert.Contains(t, prompt, "CATEGORY: TOPIC_EXPERTISE")
	assert.Contains(t, prompt, "MONTHLY PROFILES:")
	assert.Contains(t, prompt, "**03.2024:** Märtsis keskendus energeetikale.")
	assert.Contains(t, prompt, "**04.2024:** Aprillis haridusteemad.")
	assert.Contains(t, prompt, "SPEECH VOLUMES:")
	assert.Contains(t, prompt, "speeches: 4")
	assert.Contains(t, prompt, "2024-03-05")
	assert.Contains(t, prompt, "### TOPIC_EXPERTISE")
	assert.Contains(t, prompt, "<analysis>")
}
