package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	t.Parallel()

	query, args, err := Select("id", "external_id").
		From("matches").
		Where(Eq("state", "finished"), IsNull("winner_id")).
		OrderBy("start_time ASC").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, external_id FROM matches WHERE state = $1 AND winner_id IS NULL ORDER BY start_time ASC LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "finished" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderEmptyIn(t *testing.T) {
	t.Parallel()

	query, args, err := Select("id").
		From("matches").
		Where(In("external_id", nil)).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id FROM matches WHERE 1=0"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	t.Parallel()

	query, args, err := InsertInto("sync_logs").
		Columns("matches_synced", "synced_by").
		Values(12, "cron").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO sync_logs (matches_synced, synced_by) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != 12 || args[1] != "cron" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModelsMultiRow(t *testing.T) {
	t.Parallel()

	type row struct {
		ExternalID int64  `db:"external_id"`
		State      string `db:"state"`
	}

	query, args, err := InsertModels("matches", []row{
		{ExternalID: 1, State: "scheduled"},
		{ExternalID: 2, State: "finished"},
	}, "ON CONFLICT (external_id) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO matches (external_id, state) VALUES ($1, $2), ($3, $4) ON CONFLICT (external_id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != int64(1) || args[3] != "finished" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	t.Parallel()

	query, args, err := Update("picks").
		Set("points_awarded", 3).
		SetExpr("updated_at", "NOW()").
		Where(Eq("id", int64(7)), IsNull("points_awarded")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE picks SET points_awarded = $1, updated_at = NOW() WHERE id = $2 AND points_awarded IS NULL"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != 3 || args[1] != int64(7) {
		t.Fatalf("unexpected args: %+v", args)
	}
}
