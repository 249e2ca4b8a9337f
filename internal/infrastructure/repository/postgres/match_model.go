package postgres

import (
	"database/sql"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
)

type matchTableModel struct {
	ID            int64          `db:"id"`
	ExternalID    int64          `db:"external_id"`
	Team1ID       int64          `db:"team1_id"`
	Team1Name     string         `db:"team1_name"`
	Team1LogoURL  string         `db:"team1_logo_url"`
	Team2ID       int64          `db:"team2_id"`
	Team2Name     string         `db:"team2_name"`
	Team2LogoURL  string         `db:"team2_logo_url"`
	StartTime     time.Time      `db:"start_time"`
	DivisionID    int64          `db:"division_id"`
	State         string         `db:"state"`
	WinnerID      sql.NullInt64  `db:"winner_id"`
	Team1MapScore sql.NullInt64  `db:"team1_map_score"`
	Team2MapScore sql.NullInt64  `db:"team2_map_score"`
	BestOf        int            `db:"best_of"`
	Round         string         `db:"round"`
	StreamLink    string         `db:"stream_link"`
	SyncedAt      time.Time      `db:"synced_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

type matchInsertModel struct {
	ExternalID    int64         `db:"external_id"`
	Team1ID       int64         `db:"team1_id"`
	Team1Name     string        `db:"team1_name"`
	Team1LogoURL  string        `db:"team1_logo_url"`
	Team2ID       int64         `db:"team2_id"`
	Team2Name     string        `db:"team2_name"`
	Team2LogoURL  string        `db:"team2_logo_url"`
	StartTime     time.Time     `db:"start_time"`
	DivisionID    int64         `db:"division_id"`
	State         string        `db:"state"`
	WinnerID      sql.NullInt64 `db:"winner_id"`
	Team1MapScore sql.NullInt64 `db:"team1_map_score"`
	Team2MapScore sql.NullInt64 `db:"team2_map_score"`
	BestOf        int           `db:"best_of"`
	Round         string        `db:"round"`
	StreamLink    string        `db:"stream_link"`
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:         row.ID,
		ExternalID: row.ExternalID,
		Team1: match.Team{
			ID:      row.Team1ID,
			Name:    row.Team1Name,
			LogoURL: row.Team1LogoURL,
		},
		Team2: match.Team{
			ID:      row.Team2ID,
			Name:    row.Team2Name,
			LogoURL: row.Team2LogoURL,
		},
		StartTime:     row.StartTime,
		DivisionID:    row.DivisionID,
		State:         match.State(row.State),
		WinnerID:      nullInt64ToPtr(row.WinnerID),
		Team1MapScore: nullInt64ToIntPtr(row.Team1MapScore),
		Team2MapScore: nullInt64ToIntPtr(row.Team2MapScore),
		BestOf:        row.BestOf,
		Round:         row.Round,
		StreamLink:    row.StreamLink,
		SyncedAt:      row.SyncedAt,
	}
}

func matchToInsertModel(item match.Match) matchInsertModel {
	return matchInsertModel{
		ExternalID:    item.ExternalID,
		Team1ID:       item.Team1.ID,
		Team1Name:     item.Team1.Name,
		Team1LogoURL:  item.Team1.LogoURL,
		Team2ID:       item.Team2.ID,
		Team2Name:     item.Team2.Name,
		Team2LogoURL:  item.Team2.LogoURL,
		StartTime:     item.StartTime.UTC(),
		DivisionID:    item.DivisionID,
		State:         string(item.State),
		WinnerID:      ptrToNullInt64(item.WinnerID),
		Team1MapScore: intPtrToNullInt64(item.Team1MapScore),
		Team2MapScore: intPtrToNullInt64(item.Team2MapScore),
		BestOf:        item.BestOf,
		Round:         item.Round,
		StreamLink:    item.StreamLink,
	}
}
