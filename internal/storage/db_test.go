package storage

import (
	"path/filepath"
	"reflect"
	"testing"

	"gradlist/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpdateNamelistCreatesAndUpdates(t *testing.T) {
	db := openTestDB(t)

	err := db.UpdateNamelist("甲大學", "資工系", func(current *string) (string, error) {
		if current != nil {
			t.Fatalf("expected no prior value, got %q", *current)
		}
		return `{"碩士班":{"names":"王小明","hasNames":true}}`, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = db.UpdateNamelist("甲大學", "資工系", func(current *string) (string, error) {
		if current == nil {
			t.Fatal("expected prior value on second update")
		}
		return *current + " ", nil
	})
	if err != nil {
		t.Fatal(err)
	}

	stored, err := db.GetNamelist("甲大學", "資工系")
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil || *stored != `{"碩士班":{"names":"王小明","hasNames":true}} ` {
		t.Fatalf("stored=%v", stored)
	}
}

func TestCatalogListing(t *testing.T) {
	db := openTestDB(t)

	degrees := "碩士班,博士班"
	if err := db.UpsertDepartment("甲大學", "資工系", &degrees); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertDepartment("乙大學", "電機系", nil); err != nil {
		t.Fatal(err)
	}

	schools, err := db.ListSchools()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(schools, []string{"乙大學", "甲大學"}) {
		t.Fatalf("schools=%v", schools)
	}

	deps, err := db.ListDepartments("甲大學")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(deps, []string{"資工系"}) {
		t.Fatalf("deps=%v", deps)
	}

	tracks, err := db.ListDegrees("甲大學", "資工系")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tracks, []string{"碩士班", "博士班"}) {
		t.Fatalf("tracks=%v", tracks)
	}

	all, err := db.ListAllDegrees()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all=%v", all)
	}
}

func TestReplaceUserChoices(t *testing.T) {
	db := openTestDB(t)

	first := []internal.UserChoice{
		{School: "甲大學", Department: "資工系", Degree: "碩士班"},
		{School: "乙大學", Department: "電機系", Degree: "碩士班"},
	}
	if err := db.ReplaceUserChoices(7, first); err != nil {
		t.Fatal(err)
	}

	second := []internal.UserChoice{
		{School: "乙大學", Department: "電機系", Degree: "碩士班"},
	}
	if err := db.ReplaceUserChoices(7, second); err != nil {
		t.Fatal(err)
	}

	choices, err := db.ListUserChoices(7)
	if err != nil {
		t.Fatal(err)
	}
	if len(choices) != 1 || choices[0].Rank != 1 || choices[0].School != "乙大學" {
		t.Fatalf("choices=%+v", choices)
	}
}

func TestChoiceStats(t *testing.T) {
	db := openTestDB(t)

	target := internal.UserChoice{School: "甲大學", Department: "資工系", Degree: "碩士班"}
	other := internal.UserChoice{School: "乙大學", Department: "電機系", Degree: "碩士班"}

	if err := db.ReplaceUserChoices(1, []internal.UserChoice{target, other}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceUserChoices(2, []internal.UserChoice{other, other, other, other, target}); err != nil {
		t.Fatal(err)
	}

	stats, err := db.ChoiceStats(1, target.School, target.Department, target.Degree)
	if err != nil {
		t.Fatal(err)
	}
	if stats.UserRank == nil || *stats.UserRank != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if stats.TotalChoices != 2 || stats.FirstChoice != 1 || stats.FifthAndAfter != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestVerificationFlow(t *testing.T) {
	db := openTestDB(t)

	if row, err := db.GetVerification("a@example.com"); err != nil || row != nil {
		t.Fatalf("row=%v err=%v", row, err)
	}

	if err := db.UpsertVerification("a@example.com", "123456", "2026-09-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertVerification("a@example.com", "654321", "2026-09-02T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	row, err := db.GetVerification("a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if row == nil || row.Code != "654321" || row.Used {
		t.Fatalf("row=%+v", row)
	}

	if err := db.MarkVerificationUsed(row.ID); err != nil {
		t.Fatal(err)
	}
	row, err = db.GetVerification("a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if row == nil || !row.Used {
		t.Fatalf("row=%+v", row)
	}

	if err := db.MarkVerificationUsed(99999); err == nil {
		t.Fatal("expected error for unknown id")
	}
}
