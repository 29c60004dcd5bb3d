package pagequery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Direction_Valid(t *testing.T) {
	tests := []struct {
		name  string
		in    Direction
		valid bool
	}{
		{"ASC valid", DirectionASC, true},
		{"DESC valid", DirectionDESC, true},
		{"lower case invalid", "asc", false},
		{"empty invalid", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, tt.in.Valid())
		})
	}
}

func Test_Orderings_validate(t *testing.T) {
	tests := []struct {
		name string
		ord  Orderings
		ok   bool
	}{
		{"empty is valid", Orderings{}, true},
		{"invalid direction", Orderings{{Column: "id", Direction: "bad"}}, false},
		{"forbidden symbols", Orderings{{Column: "id;--", Direction: DirectionASC}}, false},
		{"valid list", Orderings{Asc("m.id"), Desc("t.name")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ord.validate()
			require.Equal(t, tt.ok, err == nil, "err=%v", err)
		})
	}
}

func Test_Orderings_Then(t *testing.T) {
	base := Orderings{Asc("m.age"), Asc("m.id")}

	got := base.Then(Desc("m.age"), Asc("t.name"))

	require.Equal(t, Orderings{Asc("m.id"), Desc("m.age"), Asc("t.name")}, got)
	require.Equal(t, Orderings{Asc("m.age"), Asc("m.id")}, base, "receiver must not change")
}

func Test_Orderings_WithTieBreaker(t *testing.T) {
	tests := []struct {
		name string
		in   Orderings
		key  Column
		want Orderings
	}{
		{"empty gets key", nil, "m.id", Orderings{Asc("m.id")}},
		{"key appended last", Orderings{Desc("m.age")}, "m.id", Orderings{Desc("m.age"), Asc("m.id")}},
		{"key kept with its direction", Orderings{Desc("m.id"), Asc("m.age")}, "m.id", Orderings{Desc("m.id"), Asc("m.age")}},
		{"no key", Orderings{Asc("m.age")}, "", Orderings{Asc("m.age")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.in.WithTieBreaker(tt.key))
		})
	}
}

func Test_Orderings_ToSQL(t *testing.T) {
	require.Equal(t, "", Orderings{}.ToSQL())
	require.Equal(t, "m.age DESC, m.id ASC", Orderings{Desc("m.age"), Asc("m.id")}.ToSQL())
	require.Equal(t, []string{"t.name ASC"}, Orderings{Asc("t.name")}.ToSQLSlice())
}

func Test_Orderings_Apply(t *testing.T) {
	db, err := newGORMDryRun()
	require.NoError(t, err)

	stmt := Orderings{Desc("m.age"), Asc("m.id")}.Apply(db.Table("members AS m")).Find(&[]map[string]any{}).Statement
	require.Contains(t, stmt.SQL.String(), "ORDER BY m.age DESC, m.id ASC")

	stmt = Orderings{}.Apply(db.Table("members AS m")).Find(&[]map[string]any{}).Statement
	require.NotContains(t, stmt.SQL.String(), "ORDER BY")
}

func Test_ParseSort(t *testing.T) {
	mapping := ColumnMapping{
		"id":       "m.id",
		"username": "m.username",
		"age":      "m.age",
		"teamName": "t.name",
	}

	tests := []struct {
		name    string
		in      []string
		want    Orderings
		wantErr string
	}{
		{"empty", nil, Orderings{}, ""},
		{"direction defaults to asc", []string{"id"}, Orderings{Asc("m.id")}, ""},
		{"space separated", []string{"age desc"}, Orderings{Desc("m.age")}, ""},
		{"comma separated", []string{"teamName,DESC"}, Orderings{Desc("t.name")}, ""},
		{"duplicates collapse to last", []string{"age asc", "id", "age,desc"}, Orderings{Asc("m.id"), Desc("m.age")}, ""},
		{"unknown alias", []string{"agee asc"}, nil, "closest: 'age'"},
		{"invalid direction", []string{"age sideways"}, nil, "invalid ordering direction"},
		{"too many parts", []string{"age asc nulls"}, nil, "invalid ordering string format"},
		{"blank", []string{" "}, nil, "invalid ordering string format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSort(tt.in, mapping)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func Test_closestAlias(t *testing.T) {
	aliases := []ColumnAlias{"created_at", "id", "name"}
	tests := []struct {
		name string
		in   ColumnAlias
		out  ColumnAlias
	}{
		{"closest to id", "idx", "id"},
		{"closest to name", "nme", "name"},
		{"closest to created_at", "createdat", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.out, closestAlias(tt.in, aliases))
		})
	}
}
