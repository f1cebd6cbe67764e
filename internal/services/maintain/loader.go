package maintain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/models"
)

// Seed file names the loader looks for inside a data directory.
const (
	PoliticiansFile = "politicians.json"
	SessionsFile    = "sessions.json"
	AgendaItemsFile = "agenda_items.json"
	SpeechesFile    = "speeches.json"
)

// LoadReport counts rows written per entity kind.
type LoadReport struct {
	Politicians int
	Sessions    int
	AgendaItems int
	Speeches    int
	DryRun      bool
}

type politicianRecord struct {
	ID       int64  `json:"id" validate:"required"`
	UUID     string `json:"uuid" validate:"required,uuid4"`
	FullName string `json:"full_name" validate:"required"`
	Active   bool   `json:"active"`
}

type sessionRecord struct {
	ID            int64     `json:"id" validate:"required"`
	Membership    int       `json:"membership" validate:"required"`
	SessionNumber int       `json:"session_number" validate:"required"`
	Date          time.Time `json:"date" validate:"required"`
	Title         string    `json:"title" validate:"required"`
}

type agendaItemRecord struct {
	ID               int64     `json:"id" validate:"required"`
	UUID             string    `json:"uuid" validate:"required,uuid4"`
	PlenarySessionID int64     `json:"plenary_session_id" validate:"required"`
	Date             time.Time `json:"date" validate:"required"`
	Title            string    `json:"title" validate:"required"`
}

type speechRecord struct {
	ID           int64      `json:"id" validate:"required"`
	UUID         string     `json:"uuid" validate:"required,uuid4"`
	AgendaItemID int64      `json:"agenda_item_id" validate:"required"`
	PoliticianID *int64     `json:"politician_id"`
	EventType    string     `json:"event_type" validate:"required,oneof=SPEECH VOTING_RESULT PRESENCE_CHECK SESSION_END"`
	Date         time.Time  `json:"date" validate:"required"`
	Speaker      string     `json:"speaker"`
	Text         string     `json:"text"`
	Link         *string    `json:"link"`
	ParsedAt     *time.Time `json:"parsed_at"`
}

// Loader seeds the store from local JSON files. Rows are validated and
// upserted by id, so reloading the same files is safe.
type Loader struct {
	storage  interfaces.StorageManager
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewLoader(storage interfaces.StorageManager, logger arbor.ILogger) *Loader {
	return &Loader{
		storage:  storage,
		validate: validator.New(),
		logger:   logger,
	}
}

// LoadDir loads every recognized seed file present in dir, parents
// before children so foreign keys resolve. Missing files are skipped;
// an empty directory is an error.
func (l *Loader) LoadDir(ctx context.Context, dir string, dryRun bool) (*LoadReport, error) {
	report := &LoadReport{DryRun: dryRun}
	loaded := 0

	steps := []struct {
		file string
		load func(ctx context.Context, path string, dryRun bool, report *LoadReport) error
	}{
		{PoliticiansFile, l.loadPoliticians},
		{SessionsFile, l.loadSessions},
		{AgendaItemsFile, l.loadAgendaItems},
		{SpeechesFile, l.loadSpeeches},
	}

	for _, step := range steps {
		path := filepath.Join(dir, step.file)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := step.load(ctx, path, dryRun, report); err != nil {
			return report, fmt.Errorf("loading %s: %w", step.file, err)
		}
		loaded++
	}

	if loaded == 0 {
		return report, fmt.Errorf("no seed files found in %s", dir)
	}

	l.logger.Info().
		Int("politicians", report.Politicians).
		Int("sessions", report.Sessions).
		Int("agenda_items", report.AgendaItems).
		Int("speeches", report.Speeches).
		Bool("dry_run", dryRun).
		Msg("Seed load finished")

	return report, nil
}

func (l *Loader) loadPoliticians(ctx context.Context, path string, dryRun bool, report *LoadReport) error {
	var records []politicianRecord
	if err := l.decode(path, &records); err != nil {
		return err
	}
	for i, record := range records {
		if err := l.validate.Struct(record); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		report.Politicians++
		if dryRun {
			continue
		}
		politician := &models.Politician{
			ID:       record.ID,
			UUID:     record.UUID,
			FullName: record.FullName,
			Active:   record.Active,
		}
		if err := l.storage.Politicians().SavePolitician(ctx, politician); err != nil {
			return fmt.Errorf("politician %d: %w", record.ID, err)
		}
	}
	return nil
}

func (l *Loader) loadSessions(ctx context.Context, path string, dryRun bool, report *LoadReport) error {
	var records []sessionRecord
	if err := l.decode(path, &records); err != nil {
		return err
	}
	for i, record := range records {
		if err := l.validate.Struct(record); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		report.Sessions++
		if dryRun {
			continue
		}
		session := &models.PlenarySession{
			ID:            record.ID,
			Membership:    record.Membership,
			SessionNumber: record.SessionNumber,
			Date:          record.Date,
			Title:         CleanHTML(record.Title),
		}
		if err := l.storage.Sessions().SaveSession(ctx, session); err != nil {
			return fmt.Errorf("session %d: %w", record.ID, err)
		}
	}
	return nil
}

func (l *Loader) loadAgendaItems(ctx context.Context, path string, dryRun bool, report *LoadReport) error {
	var records []agendaItemRecord
	if err := l.decode(path, &records); err != nil {
		return err
	}
	for i, record := range records {
		if err := l.validate.Struct(record); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		report.AgendaItems++
		if dryRun {
			continue
		}
		item := &models.AgendaItem{
			ID:               record.ID,
			UUID:             record.UUID,
			PlenarySessionID: record.PlenarySessionID,
			Date:             record.Date,
			Title:            CleanHTML(record.Title),
		}
		if err := l.storage.Sessions().SaveAgendaItem(ctx, item); err != nil {
			return fmt.Errorf("agenda item %d: %w", record.ID, err)
		}
	}
	return nil
}

func (l *Loader) loadSpeeches(ctx context.Context, path string, dryRun bool, report *LoadReport) error {
	var records []speechRecord
	if err := l.decode(path, &records); err != nil {
		return err
	}

	speeches := make([]*models.Speech, 0, len(records))
	for i, record := range records {
		if err := l.validate.Struct(record); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		speech := &models.Speech{
			ID:           record.ID,
			UUID:         record.UUID,
			AgendaItemID: record.AgendaItemID,
			PoliticianID: record.PoliticianID,
			EventType:    record.EventType,
			Date:         record.Date,
			Speaker:      CleanHTML(record.Speaker),
			Text:         CleanHTML(record.Text),
			Link:         record.Link,
			ParsedAt:     record.ParsedAt,
		}
		speech.IsIncomplete = speechIncomplete(speech)
		speeches = append(speeches, speech)
	}

	report.Speeches = len(speeches)
	if dryRun || len(speeches) == 0 {
		return nil
	}

	saved, err := l.storage.Speeches().SaveSpeeches(ctx, speeches)
	if err != nil {
		return err
	}
	report.Speeches = saved
	return nil
}

func (l *Loader) decode(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
