package maintain

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanHTML strips markup from text and collapses whitespace runs into
// single spaces. Text without markup passes through unchanged apart
// from whitespace normalization.
func CleanHTML(text string) string {
	if text == "" {
		return text
	}
	cleaned := text
	if strings.ContainsAny(text, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			cleaned = doc.Text()
		}
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))
}

// HTMLReport tallies one markup cleanup pass.
type HTMLReport struct {
	SessionsUpdated int
	AgendasUpdated  int
	SpeechesUpdated int
	DryRun          bool
}

// HTMLCleaner removes leftover markup from session titles, agenda
// titles and speech content. Imported data occasionally carries tags
// from upstream stenogram pages.
type HTMLCleaner struct {
	sessions interfaces.SessionStorage
	speeches interfaces.SpeechStorage
	logger   arbor.ILogger
}

func NewHTMLCleaner(sessions interfaces.SessionStorage, speeches interfaces.SpeechStorage, logger arbor.ILogger) *HTMLCleaner {
	return &HTMLCleaner{sessions: sessions, speeches: speeches, logger: logger}
}

// Run cleans every stored title and speech, writing only changed rows.
// Title updates clear stale translations as a side effect, the same as
// any other title edit.
func (c *HTMLCleaner) Run(ctx context.Context, dryRun bool) (*HTMLReport, error) {
	report := &HTMLReport{DryRun: dryRun}

	sessions, err := c.sessions.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	for _, session := range sessions {
		cleaned := CleanHTML(session.Title)
		if cleaned == session.Title {
			continue
		}
		report.SessionsUpdated++
		if dryRun {
			continue
		}
		if err := c.sessions.UpdateSessionTitle(ctx, session.ID, cleaned); err != nil {
			return report, fmt.Errorf("updating session %d title: %w", session.ID, err)
		}
	}

	agendas, err := c.sessions.ListAgendaItems(ctx)
	if err != nil {
		return report, fmt.Errorf("listing agenda items: %w", err)
	}
	for _, agenda := range agendas {
		cleaned := CleanHTML(agenda.Title)
		if cleaned == agenda.Title {
			continue
		}
		report.AgendasUpdated++
		if dryRun {
			continue
		}
		if err := c.sessions.UpdateAgendaTitle(ctx, agenda.ID, cleaned); err != nil {
			return report, fmt.Errorf("updating agenda %d title: %w", agenda.ID, err)
		}
	}

	speeches, err := c.speeches.ListSpeeches(ctx, interfaces.SpeechFilter{})
	if err != nil {
		return report, fmt.Errorf("listing speeches: %w", err)
	}
	for _, speech := range speeches {
		speaker := CleanHTML(speech.Speaker)
		text := CleanHTML(speech.Text)
		if speaker == speech.Speaker && text == speech.Text {
			continue
		}
		report.SpeechesUpdated++
		if dryRun {
			continue
		}
		if err := c.speeches.UpdateSpeechText(ctx, speech.ID, speaker, text); err != nil {
			return report, fmt.Errorf("updating speech %d: %w", speech.ID, err)
		}
	}

	c.logger.Info().
		Int("sessions", report.SessionsUpdated).
		Int("agendas", report.AgendasUpdated).
		Int("speeches", report.SpeechesUpdated).
		Bool("dry_run", dryRun).
		Msg("HTML cleanup finished")

	return report, nil
}
