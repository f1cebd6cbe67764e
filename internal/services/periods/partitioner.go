package periods

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/oratio/internal/models"
)

// ScopeSet holds the distinct generation scopes touched by one
// politician's speeches. Slices are sorted so runs over identical
// speech collections produce identical work orders.
type ScopeSet struct {
	Agendas  []int64
	Sessions []int64
	Months   []string
	Years    []int
}

// Partition derives the scope sets from a speech collection in a single
// pass. Sessions are resolved through the agenda→session mapping since
// speeches reference only their agenda item. Speeches under an agenda
// missing from the mapping contribute no session scope.
func Partition(speeches []*models.Speech, sessionByAgenda map[int64]int64) ScopeSet {
	agendas := make(map[int64]struct{})
	sessions := make(map[int64]struct{})
	months := make(map[string]struct{})
	years := make(map[int]struct{})

	for _, speech := range speeches {
		agendas[speech.AgendaItemID] = struct{}{}
		if sessionID, ok := sessionByAgenda[speech.AgendaItemID]; ok {
			sessions[sessionID] = struct{}{}
		}
		months[speech.MonthKey()] = struct{}{}
		years[speech.Date.Year()] = struct{}{}
	}

	set := ScopeSet{
		Agendas:  make([]int64, 0, len(agendas)),
		Sessions: make([]int64, 0, len(sessions)),
		Months:   make([]string, 0, len(months)),
		Years:    make([]int, 0, len(years)),
	}
	for id := range agendas {
		set.Agendas = append(set.Agendas, id)
	}
	for id := range sessions {
		set.Sessions = append(set.Sessions, id)
	}
	for key := range months {
		set.Months = append(set.Months, key)
	}
	for year := range years {
		set.Years = append(set.Years, year)
	}

	sort.Slice(set.Agendas, func(i, j int) bool { return set.Agendas[i] < set.Agendas[j] })
	sort.Slice(set.Sessions, func(i, j int) bool { return set.Sessions[i] < set.Sessions[j] })
	SortMonthKeys(set.Months)
	sort.Ints(set.Years)

	return set
}

// ParseMonthKey splits an MM.YYYY key into its year and month.
func ParseMonthKey(key string) (year, month int, ok bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	month, errMonth := strconv.Atoi(parts[0])
	year, errYear := strconv.Atoi(parts[1])
	if errMonth != nil || errYear != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

// SortMonthKeys orders MM.YYYY keys chronologically in place. A plain
// string sort would put 01.2025 before 02.2024. Keys that fail to parse
// sort after valid ones, keeping their relative order.
func SortMonthKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		yearI, monthI, okI := ParseMonthKey(keys[i])
		yearJ, monthJ, okJ := ParseMonthKey(keys[j])
		if okI != okJ {
			return okI
		}
		if yearI != yearJ {
			return yearI < yearJ
		}
		return monthI < monthJ
	})
}

// IsEmpty reports whether no speeches contributed any scope.
func (s ScopeSet) IsEmpty() bool {
	return len(s.Agendas) == 0 && len(s.Sessions) == 0 && len(s.Months) == 0 && len(s.Years) == 0
}

// NonAllScopes materializes the phase-1 scopes in generation order:
// agendas, sessions, months, years.
func (s ScopeSet) NonAllScopes() []models.Scope {
	scopes := make([]models.Scope, 0, s.Count())
	for _, id := range s.Agendas {
		scopes = append(scopes, models.AgendaScope(id))
	}
	for _, id := range s.Sessions {
		scopes = append(scopes, models.SessionScope(id))
	}
	for _, key := range s.Months {
		scopes = append(scopes, models.MonthScope(key))
	}
	for _, year := range s.Years {
		scopes = append(scopes, models.YearScope(year))
	}
	return scopes
}

// Count returns the number of phase-1 scopes.
func (s ScopeSet) Count() int {
	return len(s.Agendas) + len(s.Sessions) + len(s.Months) + len(s.Years)
}

// FilterByScope returns the speeches that contribute to a scope. The
// ALL scope matches everything.
func FilterByScope(speeches []*models.Speech, scope models.Scope, sessionByAgenda map[int64]int64) []*models.Speech {
	var matched []*models.Speech
	for _, speech := range speeches {
		if speechInScope(speech, scope, sessionByAgenda) {
			matched = append(matched, speech)
		}
	}
	return matched
}

func speechInScope(speech *models.Speech, scope models.Scope, sessionByAgenda map[int64]int64) bool {
	switch scope.Type {
	case models.PeriodAgenda:
		return scope.AgendaID != nil && speech.AgendaItemID == *scope.AgendaID
	case models.PeriodPlenarySession:
		if scope.SessionID == nil {
			return false
		}
		sessionID, ok := sessionByAgenda[speech.AgendaItemID]
		return ok && sessionID == *scope.SessionID
	case models.PeriodMonth:
		return scope.Month != nil && speech.MonthKey() == *scope.Month
	case models.PeriodYear:
		return scope.Year != nil && speech.Date.Year() == *scope.Year
	case models.PeriodAll:
		return true
	default:
		return false
	}
}
