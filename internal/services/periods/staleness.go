package periods

import (
	"fmt"

	"github.com/ternarybob/oratio/internal/models"
)

// StalenessResult contains the result of a staleness check.
type StalenessResult struct {
	// IsStale indicates whether the stored part needs regeneration.
	IsStale bool
	// Reason provides a human-readable explanation for the decision.
	Reason string
}

// CheckPartStaleness decides whether a stored profile part is stale
// relative to the speeches currently contributing to its scope.
//
// A part is stale when:
//  1. any contributing speech was parsed after the part was generated
//     and no contributing speech is currently incomplete, or
//  2. the part's stored incompleteness flag no longer matches the live
//     incompleteness of its contributing speeches.
func CheckPartStaleness(part *models.ProfilePart, contributing []*models.Speech) StalenessResult {
	liveIncomplete := false
	for _, speech := range contributing {
		if speech.IsIncomplete {
			liveIncomplete = true
			break
		}
	}

	// Incomplete stenograms suppress regeneration entirely; the text
	// will change again, so burning a generation now is wasted work.
	if liveIncomplete {
		return StalenessResult{
			IsStale: false,
			Reason:  "contributing speeches still incomplete, waiting for final stenogram",
		}
	}

	// Speeches completed since the part was generated from pending text.
	if part.IsIncomplete {
		return StalenessResult{
			IsStale: true,
			Reason:  "incompleteness flag changed: stored=true live=false",
		}
	}

	for _, speech := range contributing {
		if speech.ParsedAt == nil {
			continue
		}
		if part.GeneratedAt == nil || speech.ParsedAt.After(*part.GeneratedAt) {
			return StalenessResult{
				IsStale: true,
				Reason: fmt.Sprintf("speech %d parsed at %s, after part generation",
					speech.ID, speech.ParsedAt.Format("2006-01-02 15:04:05")),
			}
		}
	}

	return StalenessResult{
		IsStale: false,
		Reason:  "no contributing speech parsed after part generation",
	}
}
