package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	for name, fsys := range map[string]fs.FS{"auth": Auth(), "catalog": Catalog()} {
		entries, err := fs.ReadDir(fsys, ".")
		if err != nil {
			t.Fatalf("%s: ReadDir() error = %v", name, err)
		}
		if len(entries) == 0 {
			t.Fatalf("%s: no migrations embedded", name)
		}

		ups, downs := map[string]bool{}, map[string]bool{}
		for _, e := range entries {
			switch {
			case strings.HasSuffix(e.Name(), ".up.sql"):
				ups[strings.TrimSuffix(e.Name(), ".up.sql")] = true
			case strings.HasSuffix(e.Name(), ".down.sql"):
				downs[strings.TrimSuffix(e.Name(), ".down.sql")] = true
			default:
				t.Errorf("%s: unexpected file %s", name, e.Name())
			}
		}
		for base := range ups {
			if !downs[base] {
				t.Errorf("%s: %s has no down migration", name, base)
			}
		}
		for base := range downs {
			if !ups[base] {
				t.Errorf("%s: %s has no up migration", name, base)
			}
		}
	}
}
