package memory

import (
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
)

const seedDivisionID = 12

// SeedMatches returns a small schedule for running the API without a
// database or an upstream league provider.
func SeedMatches() []match.Match {
	winner := int64(301)
	maps1 := 2
	maps2 := 1

	return []match.Match{
		{
			ExternalID:    9001,
			Team1:         match.Team{ID: 301, Name: "Night Owls"},
			Team2:         match.Team{ID: 302, Name: "Iron Wolves"},
			StartTime:     time.Now().UTC().Add(-48 * time.Hour),
			DivisionID:    seedDivisionID,
			State:         match.StateFinished,
			WinnerID:      &winner,
			Team1MapScore: &maps1,
			Team2MapScore: &maps2,
			BestOf:        3,
			Round:         "Week 1",
		},
		{
			ExternalID: 9002,
			Team1:      match.Team{ID: 303, Name: "Crimson Foxes"},
			Team2:      match.Team{ID: 304, Name: "Static Five"},
			StartTime:  time.Now().UTC().Add(24 * time.Hour),
			DivisionID: seedDivisionID,
			State:      match.StateScheduled,
			BestOf:     3,
			Round:      "Week 2",
		},
		{
			ExternalID: 9003,
			Team1:      match.Team{ID: 301, Name: "Night Owls"},
			Team2:      match.Team{ID: 303, Name: "Crimson Foxes"},
			StartTime:  time.Now().UTC().Add(72 * time.Hour),
			DivisionID: seedDivisionID,
			State:      match.StateScheduled,
			BestOf:     5,
			Round:      "Week 2",
		},
	}
}
