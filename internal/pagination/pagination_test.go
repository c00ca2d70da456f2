package pagination

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sidpg123/filemate-be/internal/db"
	"github.com/sidpg123/filemate-be/internal/models"
)

func TestClampLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", DefaultLimit},
		{"abc", DefaultLimit},
		{"0", DefaultLimit},
		{"-3", DefaultLimit},
		{"7", 7},
		{"50", 50},
		{"500", MaxLimit},
	}
	for _, tc := range cases {
		if got := ClampLimit(tc.raw); got != tc.want {
			t.Fatalf("ClampLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestFromQuery(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cur := FromQuery(at.Format(time.RFC3339Nano), "42")
	if cur == nil {
		t.Fatalf("expected cursor, got nil")
	}
	if !cur.At.Equal(at) || cur.ID != 42 {
		t.Fatalf("unexpected cursor %+v", cur)
	}

	if FromQuery("", "42") != nil {
		t.Fatalf("partial cursor should be treated as absent")
	}
	if FromQuery(at.Format(time.RFC3339Nano), "") != nil {
		t.Fatalf("partial cursor should be treated as absent")
	}
	if FromQuery("not-a-time", "42") != nil {
		t.Fatalf("malformed timestamp should be treated as absent")
	}
	if FromQuery(at.Format(time.RFC3339Nano), "not-a-number") != nil {
		t.Fatalf("malformed id should be treated as absent")
	}
}

func TestPaginate_FullTraversal(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "pagination-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	ca := models.User{Name: "CA", Email: "ca@example.com", Password: "x"}
	if errCreate := conn.Create(&ca).Error; errCreate != nil {
		t.Fatalf("create ca: %v", errCreate)
	}

	// Three clients share one created_at so the id tie-break must kick in.
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	stamps := []time.Time{
		base.Add(4 * time.Hour),
		base.Add(2 * time.Hour),
		base.Add(2 * time.Hour),
		base.Add(2 * time.Hour),
		base,
	}
	for i, at := range stamps {
		client := models.Client{
			CAID:  ca.ID,
			Name:  "Client " + string(rune('A'+i)),
			Email: "client" + string(rune('a'+i)) + "@example.com",
		}
		if errCreate := conn.Create(&client).Error; errCreate != nil {
			t.Fatalf("create client %d: %v", i, errCreate)
		}
		if errUpdate := conn.Model(&models.Client{}).Where("id = ?", client.ID).
			Update("created_at", at).Error; errUpdate != nil {
			t.Fatalf("backdate client %d: %v", i, errUpdate)
		}
	}

	sort := Sort{Column: "created_at", Desc: true}
	key := func(c *models.Client) Cursor { return Cursor{At: c.CreatedAt, ID: c.ID} }

	var seen []uint64
	var cur *Cursor
	pages := 0
	for {
		page, errPage := Paginate(
			conn.Model(&models.Client{}).Where("ca_id = ?", ca.ID),
			sort, cur, 2, key,
		)
		if errPage != nil {
			t.Fatalf("paginate page %d: %v", pages, errPage)
		}
		pages++
		for _, row := range page.Data {
			seen = append(seen, row.ID)
		}
		if !page.HasMore {
			if page.NextCursor != nil {
				t.Fatalf("last page should not carry a cursor")
			}
			break
		}
		if page.NextCursor == nil {
			t.Fatalf("page %d has more but no cursor", pages)
		}
		cur = page.NextCursor
	}

	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}
	if len(seen) != len(stamps) {
		t.Fatalf("expected %d rows total, got %d", len(stamps), len(seen))
	}
	unique := map[uint64]bool{}
	for _, id := range seen {
		if unique[id] {
			t.Fatalf("row %d returned twice", id)
		}
		unique[id] = true
	}

	// Ties on created_at must come back in descending id order.
	var prev *models.Client
	for _, id := range seen {
		var row models.Client
		if errFind := conn.First(&row, id).Error; errFind != nil {
			t.Fatalf("reload client %d: %v", id, errFind)
		}
		if prev != nil {
			if row.CreatedAt.After(prev.CreatedAt) {
				t.Fatalf("rows out of order: %d before %d", prev.ID, row.ID)
			}
			if row.CreatedAt.Equal(prev.CreatedAt) && row.ID > prev.ID {
				t.Fatalf("tie-break violated: %d before %d", prev.ID, row.ID)
			}
		}
		rowCopy := row
		prev = &rowCopy
	}
}

func TestPaginate_ResumesAfterCursorRowDeleted(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "pagination-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	ca := models.User{Name: "CA", Email: "ca2@example.com", Password: "x"}
	if errCreate := conn.Create(&ca).Error; errCreate != nil {
		t.Fatalf("create ca: %v", errCreate)
	}
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []uint64
	for i := 0; i < 4; i++ {
		client := models.Client{CAID: ca.ID, Name: "C", Email: "dup" + string(rune('a'+i)) + "@example.com"}
		if errCreate := conn.Create(&client).Error; errCreate != nil {
			t.Fatalf("create client: %v", errCreate)
		}
		if errUpdate := conn.Model(&models.Client{}).Where("id = ?", client.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error; errUpdate != nil {
			t.Fatalf("backdate client: %v", errUpdate)
		}
		ids = append(ids, client.ID)
	}

	sort := Sort{Column: "created_at", Desc: true}
	key := func(c *models.Client) Cursor { return Cursor{At: c.CreatedAt, ID: c.ID} }

	page, errPage := Paginate(conn.Model(&models.Client{}), sort, nil, 2, key)
	if errPage != nil {
		t.Fatalf("first page: %v", errPage)
	}
	if len(page.Data) != 2 || !page.HasMore {
		t.Fatalf("unexpected first page: %d rows, hasMore=%v", len(page.Data), page.HasMore)
	}

	// Deleting the cursor row must not break resumption.
	lastID := page.Data[len(page.Data)-1].ID
	if errDelete := conn.Delete(&models.Client{}, lastID).Error; errDelete != nil {
		t.Fatalf("delete cursor row: %v", errDelete)
	}

	second, errSecond := Paginate(conn.Model(&models.Client{}), sort, page.NextCursor, 2, key)
	if errSecond != nil {
		t.Fatalf("second page: %v", errSecond)
	}
	if len(second.Data) != 2 {
		t.Fatalf("expected 2 remaining rows, got %d", len(second.Data))
	}
	for _, row := range second.Data {
		if row.ID == ids[2] || row.ID == ids[3] {
			continue
		}
		t.Fatalf("unexpected row %d on second page", row.ID)
	}
}
