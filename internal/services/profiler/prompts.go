package profiler

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/oratio/internal/models"
)

// categoryDefinitions are the per-category analysis instructions
// embedded in generation prompts. Keys cover every models.ProfileCategory.
var categoryDefinitions = map[models.ProfileCategory]string{
	models.CategoryPoliticalPosition: `### POLITICAL_POSITION
* Identify the most salient issues.
* State direction and strength of stance (support/oppose, strong/moderate).
* Mention shifts compared to earlier periods.
* Note if framing is policy-driven, value-driven, or performance-driven.`,

	models.CategoryTopicExpertise: `### TOPIC_EXPERTISE
* Highlight topics where the speaker shows knowledge and authority.
* Mention use of data, technical terms, or statistics.
* Call out consistent explanations or reliance on expertise.`,

	models.CategoryRhetoricalStyle: `### RHETORICAL_STYLE
* Describe overall tone (conciliatory, combative, optimistic, urgent).
* Point out the balance between emotional and logical appeals.
* Mention formality, complexity, and use of storytelling vs data.`,

	models.CategoryActivityPatterns: `### ACTIVITY_PATTERNS
* Summarize frequency and rhythm of speeches or public appearances.
* Include references to events, meetings, or travel mentioned.
* Highlight recurring communication patterns (e.g., weekly updates).`,

	models.CategoryOppositionStance: `### OPPOSITION_STANCE
* Identify main opponents or groups criticized.
* Clarify if critiques are policy-based, procedural, or personal.
* Note the intensity of attacks and whether compromise was ruled out.`,

	models.CategoryCollaborationStyle: `### COLLABORATION_STYLE
* Mention cooperation with colleagues, co-sponsorships, or coalitions.
* Describe openness to compromise or mediation.
* Highlight references to bipartisan or cross-party collaboration.`,

	models.CategoryRegionalFocus: `### REGIONAL_FOCUS
* Point out attention to local/district vs national vs international issues.
* Mention specific regional industries, projects, or communities.`,

	models.CategoryEconomicViews: `### ECONOMIC_VIEWS
* Summarize positions on taxes, spending, regulation, trade, and labor.
* Note attitudes toward redistribution, growth, or fiscal discipline.
* Mention affinity toward business interests vs labor concerns.`,

	models.CategorySocialIssues: `### SOCIAL_ISSUES
* State positions on abortion, LGBTQ+, immigration, guns, education, policing.
* Clarify balance between civil liberties and security.
* Mention religious or moral framing when used.`,

	models.CategoryLegislativeFocus: `### LEGISLATIVE_FOCUS
* Identify legislative priorities (topics of bills, amendments, hearings).
* Describe whether the speaker is an initiator, supporter, or opponent.
* Note claimed progress or achievements.`,
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// BuildSpeechesXML renders a scope's speeches as the XML document
// embedded in generation prompts. Incomplete and empty speeches are
// left out; their text is still changing or carries nothing to analyze.
func BuildSpeechesXML(speeches []*models.Speech) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<speeches>\n")

	for _, speech := range speeches {
		if speech.IsIncomplete || !speech.HasText() {
			continue
		}
		fmt.Fprintf(&b, "  <speech date=%q>%s</speech>\n",
			speech.Date.Format("2006-01-02"), xmlEscaper.Replace(speech.Text))
	}

	b.WriteString("</speeches>")
	return b.String()
}

// BuildScopePrompt assembles the phase-1 generation prompt for one
// scope, requesting profiles for exactly the given categories.
func BuildScopePrompt(categories []models.ProfileCategory, xmlContent string, periodType models.PeriodType, periodLabel string) string {
	names := make([]string, len(categories))
	definitions := make([]string, 0, len(categories))
	examples := make([]string, len(categories))
	for i, category := range categories {
		names[i] = string(category)
		if def, ok := categoryDefinitions[category]; ok {
			definitions = append(definitions, def)
		}
		examples[i] = fmt.Sprintf(`<profile type="%s">Analysis for %s</profile>`,
			category, strings.ToLower(strings.ReplaceAll(string(category), "_", " ")))
	}

	categoriesStr := strings.Join(names, ", ")

	return fmt.Sprintf(`Analyze the following speeches to create politician profile parts for a specific time period. Write in Estonian language, speak like native Estonian.

PERIOD: %s - %s

%s

You are analyzing speeches from a specific time period.
Your task is to produce structured **summaries** for ONLY the following %d categories: %s

**IMPORTANT: Generate profiles ONLY for the %d categories listed above. Do not generate any other profile types.**

For each profile type:
* Write **1–4 sentences**, if there is not enough information, write "Not enough data" in Estonian, don't guess or overthink.
* Summaries must be **concise, evidence-based, and neutral**.
* Every claim must be **grounded in the speeches** (no speculation).
* When mentioning an issue, include **who/what was emphasized, the stance taken, and intensity of support or opposition**.

## Profile Type Definitions

%s

## General Rules
* Be concise and neutral.
* Do not speculate beyond speech evidence.
* Focus on **issues, stances, tone, and patterns** that are explicitly present in the speeches.
* Generate profiles for EXACTLY %d categories: %s

Response format:
<profiles>
%s
</profiles>

Each profile description should be in Estonian language, like you are a native Estonian speaker, analytical and specific.`,
		periodType, periodLabel,
		xmlContent,
		len(categories), categoriesStr,
		len(categories),
		strings.Join(definitions, "\n\n"),
		len(categories), categoriesStr,
		strings.Join(examples, "\n"))
}

// monthContext is one row of the quantitative YAML block appended to
// aggregation prompts.
type monthContext struct {
	Month    string `yaml:"month"`
	Speeches int    `yaml:"speeches"`
	From     string `yaml:"from,omitempty"`
	To       string `yaml:"to,omitempty"`
}

// buildMetricsContext renders the monthly parts' stored metrics as a
// YAML document, giving the model the speech volumes behind each
// monthly analysis.
func buildMetricsContext(monthlyParts []*models.ProfilePart) string {
	rows := make([]monthContext, 0, len(monthlyParts))
	for _, part := range monthlyParts {
		rows = append(rows, monthContext{
			Month:    derefMonth(part.Month),
			Speeches: part.Metrics.SpeechesCount,
			From:     part.Metrics.DateRangeStart,
			To:       part.Metrics.DateRangeEnd,
		})
	}
	out, err := yaml.Marshal(rows)
	if err != nil {
		return ""
	}
	return string(out)
}

// BuildAggregationPrompt assembles the phase-2 prompt that synthesizes
// one category's ALL profile from its monthly analyses.
func BuildAggregationPrompt(category models.ProfileCategory, monthlyParts []*models.ProfilePart) string {
	var monthly strings.Builder
	for _, part := range monthlyParts {
		month := ""
		if part.Month != nil {
			month = *part.Month
		}
		fmt.Fprintf(&monthly, "\n**%s:** %s\n", month, part.Analysis)
	}

	categoryLower := strings.ToLower(strings.ReplaceAll(string(category), "_", " "))

	return fmt.Sprintf(`Analyze the following monthly profile summaries for a politician and create a comprehensive ALL-period profile. Write in Estonian language, speak like native Estonian.

CATEGORY: %s

MONTHLY PROFILES:
%s

SPEECH VOLUMES:
%s
Your task is to create a comprehensive %s profile that synthesizes insights from all monthly periods.

**IMPORTANT INSTRUCTIONS:**
* Write **1–4 sentences** that capture the overall patterns and trends across all months
* Identify recurring themes, evolution over time, and key characteristics
* Be **concise, evidence-based, and neutral**
* Focus on **overall patterns** rather than repeating monthly details
* If there's insufficient data across months, write "Not enough data" in Estonian

## Profile Type Definition

%s

## General Rules
* Synthesize insights from all monthly periods
* Identify patterns, trends, and evolution over time
* Be concise and analytical
* Focus on overall characteristics rather than monthly specifics

Response format:
<analysis>
Your comprehensive analysis here
</analysis>

The analysis should be in Estonian language, analytical and specific, capturing the overall %s patterns across all time periods.`,
		category,
		monthly.String(),
		buildMetricsContext(monthlyParts),
		category,
		categoryDefinitions[category],
		categoryLower)
}
