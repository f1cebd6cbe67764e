package periods

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/ternarybob/oratio/internal/models"
)

func speechOn(id, agendaID int64, date time.Time) *models.Speech {
	parsed := date
	return &models.Speech{
		ID:           id,
		UUID:         fmt.Sprintf("speech-%d", id),
		AgendaItemID: agendaID,
		EventType:    models.EventTypeSpeech,
		Date:         date,
		Text:         "Lugupeetud istungi juhataja!",
		ParsedAt:     &parsed,
	}
}

func TestPartitionSingleAgendaSessionMonth(t *testing.T) {
	march := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	speeches := []*models.Speech{
		speechOn(1, 101, march),
		speechOn(2, 101, march.Add(time.Hour)),
		speechOn(3, 101, march.Add(2*time.Hour)),
	}
	sessions := map[int64]int64{101: 11}

	set := Partition(speeches, sessions)

	if !reflect.DeepEqual(set.Agendas, []int64{101}) {
		t.Errorf("Agendas = %v, want [101]", set.Agendas)
	}
	if !reflect.DeepEqual(set.Sessions, []int64{11}) {
		t.Errorf("Sessions = %v, want [11]", set.Sessions)
	}
	if !reflect.DeepEqual(set.Months, []string{"03.2024"}) {
		t.Errorf("Months = %v, want [03.2024]", set.Months)
	}
	if !reflect.DeepEqual(set.Years, []int{2024}) {
		t.Errorf("Years = %v, want [2024]", set.Years)
	}

	// One scope of each kind
	if got := set.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
	if got := len(set.NonAllScopes()); got != 4 {
		t.Errorf("NonAllScopes() returned %d scopes, want 4", got)
	}
}

func TestPartitionDeduplicatesAndSorts(t *testing.T) {
	speeches := []*models.Speech{
		speechOn(1, 300, time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC)),
		speechOn(2, 100, time.Date(2023, 2, 1, 10, 0, 0, 0, time.UTC)),
		speechOn(3, 300, time.Date(2024, 11, 6, 10, 0, 0, 0, time.UTC)),
		speechOn(4, 200, time.Date(2023, 2, 10, 10, 0, 0, 0, time.UTC)),
	}
	sessions := map[int64]int64{100: 20, 200: 20, 300: 10}

	set := Partition(speeches, sessions)

	if !reflect.DeepEqual(set.Agendas, []int64{100, 200, 300}) {
		t.Errorf("Agendas = %v, want [100 200 300]", set.Agendas)
	}
	if !reflect.DeepEqual(set.Sessions, []int64{10, 20}) {
		t.Errorf("Sessions = %v, want [10 20]", set.Sessions)
	}
	if !reflect.DeepEqual(set.Months, []string{"02.2023", "11.2024"}) {
		t.Errorf("Months = %v, want [02.2023 11.2024]", set.Months)
	}
	if !reflect.DeepEqual(set.Years, []int{2023, 2024}) {
		t.Errorf("Years = %v, want [2023 2024]", set.Years)
	}
}

func TestPartitionEmptyCollection(t *testing.T) {
	set := Partition(nil, nil)

	if !set.IsEmpty() {
		t.Error("empty speech collection should produce an empty scope set")
	}
	if scopes := set.NonAllScopes(); len(scopes) != 0 {
		t.Errorf("NonAllScopes() = %v, want empty", scopes)
	}
}

func TestPartitionUnmappedAgendaContributesNoSession(t *testing.T) {
	speeches := []*models.Speech{
		speechOn(1, 101, time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)),
	}

	set := Partition(speeches, map[int64]int64{})

	if len(set.Sessions) != 0 {
		t.Errorf("Sessions = %v, want empty for unmapped agenda", set.Sessions)
	}
	if !reflect.DeepEqual(set.Agendas, []int64{101}) {
		t.Errorf("Agendas = %v, want [101]", set.Agendas)
	}
}

// Every speech must land in exactly one scope per kind, and the union of
// each kind's scope subsets must equal the original collection.
func TestPartitionCoversEverySpeech(t *testing.T) {
	speeches := []*models.Speech{
		speechOn(1, 100, time.Date(2023, 2, 1, 10, 0, 0, 0, time.UTC)),
		speechOn(2, 100, time.Date(2023, 2, 15, 10, 0, 0, 0, time.UTC)),
		speechOn(3, 200, time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)),
		speechOn(4, 300, time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC)),
		speechOn(5, 300, time.Date(2024, 12, 24, 10, 0, 0, 0, time.UTC)),
	}
	sessions := map[int64]int64{100: 10, 200: 10, 300: 20}

	set := Partition(speeches, sessions)

	kinds := map[string][]models.Scope{}
	for _, id := range set.Agendas {
		kinds["agenda"] = append(kinds["agenda"], models.AgendaScope(id))
	}
	for _, id := range set.Sessions {
		kinds["session"] = append(kinds["session"], models.SessionScope(id))
	}
	for _, key := range set.Months {
		kinds["month"] = append(kinds["month"], models.MonthScope(key))
	}
	for _, year := range set.Years {
		kinds["year"] = append(kinds["year"], models.YearScope(year))
	}

	for kind, scopes := range kinds {
		counts := make(map[int64]int)
		for _, scope := range scopes {
			for _, speech := range FilterByScope(speeches, scope, sessions) {
				counts[speech.ID]++
			}
		}
		for _, speech := range speeches {
			if counts[speech.ID] != 1 {
				t.Errorf("%s scopes matched speech %d %d times, want exactly once",
					kind, speech.ID, counts[speech.ID])
			}
		}
	}

	// The ALL scope matches everything
	if got := len(FilterByScope(speeches, models.AllScope(), sessions)); got != len(speeches) {
		t.Errorf("ALL scope matched %d speeches, want %d", got, len(speeches))
	}
}

func TestSortMonthKeysCrossesYearBoundaries(t *testing.T) {
	keys := []string{"01.2025", "11.2024", "02.2024", "12.2023"}
	SortMonthKeys(keys)

	want := []string{"12.2023", "02.2024", "11.2024", "01.2025"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("SortMonthKeys = %v, want %v", keys, want)
	}
}

func TestParseMonthKey(t *testing.T) {
	year, month, ok := ParseMonthKey("03.2024")
	if !ok || year != 2024 || month != 3 {
		t.Errorf("ParseMonthKey(03.2024) = (%d, %d, %v), want (2024, 3, true)", year, month, ok)
	}

	for _, bad := range []string{"", "2024-03", "13.2024", "mars.2024"} {
		if _, _, ok := ParseMonthKey(bad); ok {
			t.Errorf("ParseMonthKey(%q) accepted an invalid key", bad)
		}
	}
}
