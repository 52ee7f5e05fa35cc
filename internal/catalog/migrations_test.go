package catalog

import "testing"

func TestParseMigrationName(t *testing.T) {
	cases := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{name: "001_media_items.sql", want: 1},
		{name: "012_add_device.sql", want: 12},
		{name: "media_items.sql", wantErr: true},
		{name: "000_zero.sql", wantErr: true},
		{name: "abc_x.sql", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseMigrationName(tc.name)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got %d", tc.name, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%s: got %d, %v want %d", tc.name, got, err, tc.want)
		}
	}
}

func TestCheckSequenceRejectsGaps(t *testing.T) {
	if err := checkSequence([]migration{{number: 1, name: "001_a.sql"}, {number: 2, name: "002_b.sql"}}); err != nil {
		t.Fatalf("contiguous sequence: %v", err)
	}
	if err := checkSequence([]migration{{number: 1, name: "001_a.sql"}, {number: 3, name: "003_c.sql"}}); err == nil {
		t.Fatalf("expected gap to be rejected")
	}
	if err := checkSequence([]migration{{number: 1, name: "001_a.sql"}, {number: 1, name: "001_b.sql"}}); err == nil {
		t.Fatalf("expected duplicate number to be rejected")
	}
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) == 0 || migrations[0].number != 1 {
		t.Fatalf("unexpected migrations %#v", migrations)
	}
}
