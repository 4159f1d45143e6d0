package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	tc := []struct {
		label string
		want  Status
	}{
		{"Active", StatusActive},
		{"active", StatusActive},
		{"Inactive", StatusInactive},
		{"aktiv", StatusActive},
		{"Aktiv", StatusActive},
		{"qeyri-aktiv", StatusInactive},
		{"deaktiv", StatusInactive},
		{"pending", StatusUnknown},
		{"  ", StatusUnknown},
	}

	for _, tt := range tc {
		t.Run(tt.label, func(t *testing.T) {
			if got := ParseStatus(tt.label); got != tt.want {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	t.Run("DecodeRecord", func(t *testing.T) {
		t.Run("numeric id and isActive flag", func(t *testing.T) {
			r := DecodeRecord(map[string]any{"id": float64(42), "isActive": false, "name": "Ann"})

			if r.ID != "42" {
				t.Errorf("expected id 42, got %q", r.ID)
			}
			if r.Status != StatusInactive {
				t.Errorf("expected inactive status, got %v", r.Status)
			}
			if r.Text("name") != "Ann" {
				t.Errorf("expected name Ann, got %q", r.Text("name"))
			}
		})

		t.Run("underscore id and status label", func(t *testing.T) {
			r := DecodeRecord(map[string]any{"_id": "abc", "status": "Qeyri-aktiv"})

			if r.ID != "abc" {
				t.Errorf("expected id abc, got %q", r.ID)
			}
			if r.Status != StatusInactive {
				t.Errorf("expected inactive status, got %v", r.Status)
			}
			if r.Value("status") != "Qeyri-aktiv" {
				t.Errorf("expected raw label to be kept, got %v", r.Value("status"))
			}
		})

		t.Run("creation time", func(t *testing.T) {
			r := DecodeRecord(map[string]any{"id": "1", "created_at": "2024-03-01T10:00:00Z"})

			want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
			if !r.CreatedAt.Equal(want) {
				t.Errorf("expected %v, got %v", want, r.CreatedAt)
			}
			if v, ok := r.Value("createdAt").(time.Time); !ok || !v.Equal(want) {
				t.Errorf("expected createdAt value %v, got %v", want, r.Value("createdAt"))
			}
		})

		t.Run("nested field", func(t *testing.T) {
			r := DecodeRecord(map[string]any{"id": "1", "room": map[string]any{"number": "204"}})

			if r.Text("room.number") != "204" {
				t.Errorf("expected nested value 204, got %q", r.Text("room.number"))
			}
			if r.Value("room.floor") != nil {
				t.Errorf("expected missing nested value to be nil")
			}
		})
	})

	t.Run("UnmarshalJSON", func(t *testing.T) {
		var r Record
		if err := json.Unmarshal([]byte(`{"id": 7, "isActive": true, "email": "a@b.c"}`), &r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if r.ID != "7" || r.Status != StatusActive {
			t.Errorf("unexpected record: %+v", r)
		}
	})

	t.Run("MarshalJSON", func(t *testing.T) {
		r := DecodeRecord(map[string]any{"_id": "x1", "name": "Bob"})
		r.Status = StatusActive

		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out["id"] != "x1" {
			t.Errorf("expected id x1, got %v", out["id"])
		}
		if _, ok := out["_id"]; ok {
			t.Error("expected _id to be replaced by id")
		}
		if out["isActive"] != true {
			t.Errorf("expected isActive true, got %v", out["isActive"])
		}
	})

	t.Run("Merge", func(t *testing.T) {
		t.Run("overlays fields and keeps id", func(t *testing.T) {
			old := DecodeRecord(map[string]any{"id": "2", "name": "B", "phone": "555"})
			upd := DecodeRecord(map[string]any{"id": "2", "name": "C"})

			got := old.Merge(upd)
			if got.ID != "2" || got.Text("name") != "C" || got.Text("phone") != "555" {
				t.Errorf("unexpected merge result: %+v", got.Fields)
			}
			if old.Text("name") != "B" {
				t.Error("merge must not mutate the original record")
			}
		})

		t.Run("partial status update replaces stale label", func(t *testing.T) {
			old := DecodeRecord(map[string]any{"id": "5", "status": "active"})
			upd := DecodeRecord(map[string]any{"id": "5", "isActive": false})

			got := old.Merge(upd)
			if got.Status != StatusInactive {
				t.Errorf("expected inactive, got %v", got.Status)
			}
			if got.Value("status") != "inactive" {
				t.Errorf("expected derived label inactive, got %v", got.Value("status"))
			}
		})

		t.Run("keeps creation time when update omits it", func(t *testing.T) {
			created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			old := Record{ID: "1", CreatedAt: created, Fields: map[string]any{"id": "1"}}

			got := old.Merge(DecodeRecord(map[string]any{"id": "1", "name": "x"}))
			if !got.CreatedAt.Equal(created) {
				t.Errorf("expected creation time to survive, got %v", got.CreatedAt)
			}
		})
	})
}

func TestQueryState(t *testing.T) {
	t.Run("changes reset the page", func(t *testing.T) {
		q := NewQueryState(20).WithPage(4)

		if got := q.WithSearch("ann").Page; got != 1 {
			t.Errorf("search: expected page 1, got %d", got)
		}
		if got := q.WithFilter("role", "admin").Page; got != 1 {
			t.Errorf("filter: expected page 1, got %d", got)
		}
		if got := q.WithSort("name", Descending).Page; got != 1 {
			t.Errorf("sort: expected page 1, got %d", got)
		}
		if got := q.WithDateRange(&DateRange{Start: time.Now()}).Page; got != 1 {
			t.Errorf("date range: expected page 1, got %d", got)
		}
		if got := q.WithPageSize(50).Page; got != 1 {
			t.Errorf("page size: expected page 1, got %d", got)
		}
		if got := q.WithPage(5).Page; got != 5 {
			t.Errorf("navigation: expected page 5, got %d", got)
		}
	})

	t.Run("WithFilter does not alias the previous state", func(t *testing.T) {
		a := NewQueryState(10).WithFilter("status", "active")
		b := a.WithFilter("status", "inactive")

		if a.Filters["status"] != "active" {
			t.Errorf("expected original filter to be unchanged, got %q", a.Filters["status"])
		}
		if b.Filters["status"] != "inactive" {
			t.Errorf("expected new filter value, got %q", b.Filters["status"])
		}
		if c := b.WithFilter("status", ""); c.Filters != nil {
			t.Errorf("expected empty filters after removal, got %v", c.Filters)
		}
	})

	t.Run("Equal", func(t *testing.T) {
		a := NewQueryState(10).WithSearch("x").WithSort("name", Ascending)
		b := NewQueryState(10).WithSearch("x").WithSort("name", Ascending)

		if !a.Equal(b) {
			t.Error("expected equal snapshots")
		}
		if a.Equal(b.WithSort("name", Descending)) {
			t.Error("expected different sort direction to differ")
		}
		if a.Equal(b.WithPage(2)) {
			t.Error("expected different page to differ")
		}
	})

	t.Run("Values and ParseQueryState agree", func(t *testing.T) {
		d, err := ParseDateRange("2024-01-01", "2024-01-31")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		q := NewQueryState(25).
			WithSearch("wifi").
			WithFilter("status", "Active").
			WithDateRange(d).
			WithSort("createdAt", Descending).
			WithPage(3)

		v := q.Values()
		if v.Get("limit") != "25" || v.Get("page") != "3" || v.Get("sortOrder") != "desc" {
			t.Errorf("unexpected encoding: %s", v.Encode())
		}

		parsed, err := ParseQueryState(v, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !parsed.Equal(q) {
			t.Errorf("expected %s, got %s", q.Key(), parsed.Key())
		}
	})

	t.Run("ParseQueryState rejects bad paging", func(t *testing.T) {
		if _, err := ParseQueryState(map[string][]string{"page": {"x"}}, 10); err == nil {
			t.Error("expected error for non-numeric page")
		}
		if _, err := ParseQueryState(map[string][]string{"limit": {"0"}}, 10); err == nil {
			t.Error("expected error for zero limit")
		}
	})
}

func TestDateRange(t *testing.T) {
	d, err := ParseDateRange("2024-05-01", "2024-05-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tc := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start bound inclusive", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"last moment of end day", time.Date(2024, 5, 2, 23, 59, 59, 0, time.UTC), true},
		{"before start", time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC), false},
		{"after end", time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), false},
		{"missing date", time.Time{}, false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Contains(tt.at); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	if r, err := ParseDateRange("", ""); r != nil || err != nil {
		t.Errorf("expected nil range for empty bounds, got %v, %v", r, err)
	}
	if _, err := ParseDateRange("yesterday", ""); err == nil {
		t.Error("expected error for unparseable bound")
	}
}

func TestPageResult(t *testing.T) {
	items := []Record{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	t.Run("Normalize truncates and derives metadata", func(t *testing.T) {
		p := NewPageResult(items, 7, 2, 2)

		if len(p.Items) != 2 {
			t.Errorf("expected 2 items, got %d", len(p.Items))
		}
		if p.TotalPages != 4 || !p.HasNext || !p.HasPrev {
			t.Errorf("unexpected metadata: %+v", p)
		}
	})

	t.Run("Total never below item count", func(t *testing.T) {
		p := NewPageResult(items, 1, 1, 10)
		if p.Total != 3 {
			t.Errorf("expected total 3, got %d", p.Total)
		}
	})

	t.Run("SameIDs ignores order", func(t *testing.T) {
		a := NewPageResult(items, 3, 1, 10)
		b := NewPageResult([]Record{{ID: "3"}, {ID: "1"}, {ID: "2"}}, 3, 1, 10)
		c := NewPageResult([]Record{{ID: "3"}, {ID: "1"}, {ID: "4"}}, 3, 1, 10)

		if !a.SameIDs(b) {
			t.Error("expected same ids")
		}
		if a.SameIDs(c) {
			t.Error("expected different ids")
		}
	})
}

func TestResource(t *testing.T) {
	r := Resource{
		Name:         "customers",
		SearchFields: []string{"name", "phone"},
		TextFilters:  []string{"room"},
		Events:       map[string]string{"customer-update": "updated", "new-customer": "created"},
	}

	if r.APIPath() != "/customers" {
		t.Errorf("expected default path, got %s", r.APIPath())
	}
	if (Resource{Name: "x", Path: "api/v1/x"}).APIPath() != "/api/v1/x" {
		t.Error("expected configured path with leading slash")
	}
	if !r.IsTextFilter("room") || r.IsTextFilter("status") {
		t.Error("unexpected text filter classification")
	}

	kinds, err := r.EventKinds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kinds["customer-update"] != Updated || kinds["new-customer"] != Created {
		t.Errorf("unexpected kinds: %v", kinds)
	}

	r.Events["bad"] = "deleted"
	if _, err := r.EventKinds(); err == nil {
		t.Error("expected error for unknown kind")
	}

	if cols := r.DisplayColumns(); len(cols) != 4 || cols[0] != "id" || cols[3] != "status" {
		t.Errorf("unexpected columns: %v", cols)
	}
}
