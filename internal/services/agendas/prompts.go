package agendas

import (
	"fmt"
	"strings"

	"github.com/ternarybob/oratio/internal/models"
	"github.com/ternarybob/oratio/internal/services/pseudonym"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// BuildAgendaXML renders one agenda item's speeches as the XML document
// embedded in the report prompt. Entity ids are replaced with codec
// tokens; the pid is empty for speeches without an attributed speaker.
func BuildAgendaXML(codec *pseudonym.Codec, item *models.AgendaItem, speeches []*models.Speech) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, "<agenda id=%q>\n", codec.AgendaToken(item.ID))

	for _, speech := range speeches {
		if speech.IsIncomplete || !speech.HasText() {
			continue
		}
		pid := ""
		if speech.PoliticianID != nil {
			pid = codec.PoliticianToken(*speech.PoliticianID)
		}
		fmt.Fprintf(&b, "  <speech pid=%q>%s</speech>\n", pid, xmlEscaper.Replace(speech.Text))
	}

	b.WriteString("</agenda>")
	return b.String()
}

// BuildAgendaPrompt wraps the agenda XML in the structured-report
// instruction. The response contract is strict: summary, at least one
// decision, and an activity record, all inside the agenda tag, with
// fixed fallback texts when the discussion produced nothing.
func BuildAgendaPrompt(xmlContent string) string {
	return fmt.Sprintf(`Please write a detailed report of the following agenda in Estonian language, speak like native estonian. Provide response in the EXACT structured XML format shown below.

INPUT DATA:
%s

CRITICAL REQUIREMENTS:
1. ALL tags (summary, decisions, activity) MUST be INSIDE the <agenda> tag
2. You MUST include at least one <decision> tag (even if no decisions were made)
3. If no decisions were made, write: <decision pid="">Otsuseid ei tehtud</decision>
4. You MUST include an <activity> tag (even if no one was particularly active)
5. If no politician was particularly active, write: <activity pid="">Ei olnud eriti aktiivset kõnelejat</activity>
6. The response must be valid XML with proper nesting
7. Do NOT output <speech> tags - only output <agenda>, <summary>, <decisions>, <decision>, and <activity> tags

REQUIRED RESPONSE FORMAT (copy this structure EXACTLY):
<agenda id="{agenda_id}">
<summary>{Write a detailed summary of the agenda in Estonian, couple paragraphs max}</summary>
<decisions>
<decision pid="{politician_id or empty string}">{Describe what decisions were made. If no decisions, write "Otsuseid ei tehtud" with empty pid}</decision>
</decisions>
<activity pid="{politician_id or empty string}">{Describe the most active speaker and their position (vasak, parem or muu). If no one was particularly active, write "Ei olnud eriti aktiivset kõnelejat" with empty pid}</activity>
</agenda>

IMPORTANT: The closing </agenda> tag must come AFTER all other tags (summary, decisions, activity).`, xmlContent)
}
