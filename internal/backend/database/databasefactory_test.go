package database

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewDatabase(t *testing.T) {
	server := miniredis.RunT(t)

	tests := []struct {
		name             string
		databaseType     string
		connectionString string
		wantErr          bool
	}{
		{name: "sqlite in memory", databaseType: "sqlite", connectionString: ":memory:"},
		{name: "redis", databaseType: "redis", connectionString: "redis://" + server.Addr() + "/0"},
		{name: "unknown driver", databaseType: "postgres", connectionString: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := NewDatabase(tt.databaseType, tt.connectionString)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDatabase error: %v", err)
			}
			_ = db.Close()
		})
	}
}
