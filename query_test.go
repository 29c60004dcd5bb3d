package pagequery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newMemberTeamQuery() Query {
	return NewQuery(NewTable("members", "m"), "m.id").
		WithProjection(
			Select("m.id", "member_id"),
			Select("m.username", ""),
			Select("m.age", ""),
			Select("t.id", "team_id"),
			Select("t.name", "team_name"),
		).
		WithJoins(LeftJoinOne(NewTable("teams", "t"), "m.team_id", "t.id"))
}

func Test_Table(t *testing.T) {
	require.Equal(t, "members AS m", NewTable("members", "m").ToSQL())
	require.Equal(t, "m", NewTable("members", "m").Ref())
	require.Equal(t, "members", NewTable("members", "").ToSQL())
	require.Equal(t, "members", NewTable("members", "").Ref())
}

func Test_Selection(t *testing.T) {
	require.Equal(t, "member_id", Select("m.id", "member_id").Name())
	require.Equal(t, "username", Select("m.username", "").Name())
	require.Equal(t, "m.id AS member_id", Select("m.id", "member_id").ToSQL())
	require.Equal(t, "m.username", Select("m.username", "").ToSQL())
}

func Test_Query_String(t *testing.T) {
	q := newMemberTeamQuery().
		WithWhere(AllOf(Compare("t.name", OperatorEq, "teamA"), Compare("m.age", OperatorGoe, 20))).
		WithOrder(Desc("m.age")).
		WithRange(20, 10)

	require.Equal(t,
		"SELECT m.id AS member_id, m.username, m.age, t.id AS team_id, t.name AS team_name "+
			"FROM members AS m LEFT JOIN teams AS t ON m.team_id = t.id "+
			"WHERE (t.name = ? AND m.age >= ?) ORDER BY m.age DESC LIMIT 10 OFFSET 20",
		q.String(),
	)
	require.Equal(t,
		"SELECT * FROM members AS m LEFT JOIN teams AS t ON m.team_id = t.id WHERE (t.name = ? AND m.age >= ?)",
		q.ForCount().String(),
	)
}

func Test_Query_WithWhere_Accumulates(t *testing.T) {
	q := NewQuery(NewTable("members", "m"), "m.id").
		WithWhere(Compare("m.age", OperatorGoe, 10)).
		WithWhere(Always{}).
		WithWhere(Compare("m.age", OperatorLoe, 20))

	require.Equal(t, Conjunction{
		Left:  Comparison{Field: "m.age", Operator: OperatorGoe, Value: 10},
		Right: Comparison{Field: "m.age", Operator: OperatorLoe, Value: 20},
	}, q.Where)
}

func Test_Query_ForCount(t *testing.T) {
	q := newMemberTeamQuery().WithOrder(Asc("m.age")).WithRange(30, 10)

	counted := q.ForCount()

	require.Empty(t, counted.Projection)
	require.Empty(t, counted.Order)
	require.Zero(t, counted.Offset)
	require.Zero(t, counted.Limit)
	require.Equal(t, q.Joins, counted.Joins)
	require.Len(t, q.Projection, 5, "receiver must not change")
}

func Test_PruneJoins(t *testing.T) {
	teams := NewTable("teams", "t")
	leagues := NewTable("leagues", "l")

	tests := []struct {
		name      string
		query     Query
		wantJoins []Join
	}{
		{
			name:      "unreferenced to-one left join is dropped",
			query:     NewQuery(NewTable("members", "m"), "m.id").WithJoins(LeftJoinOne(teams, "m.team_id", "t.id")).WithWhere(Compare("m.age", OperatorGoe, 10)),
			wantJoins: []Join{},
		},
		{
			name:      "join referenced by the filter is kept",
			query:     NewQuery(NewTable("members", "m"), "m.id").WithJoins(LeftJoinOne(teams, "m.team_id", "t.id")).WithWhere(Compare("t.name", OperatorEq, "teamA")),
			wantJoins: []Join{LeftJoinOne(teams, "m.team_id", "t.id")},
		},
		{
			name:      "inner join is kept",
			query:     NewQuery(NewTable("members", "m"), "m.id").WithJoins(InnerJoin(teams, "m.team_id", "t.id")),
			wantJoins: []Join{InnerJoin(teams, "m.team_id", "t.id")},
		},
		{
			name:      "to-many left join is kept",
			query:     NewQuery(NewTable("members", "m"), "m.id").WithJoins(Join{Kind: JoinLeft, Table: teams, Left: "m.team_id", Right: "t.id"}),
			wantJoins: []Join{{Kind: JoinLeft, Table: teams, Left: "m.team_id", Right: "t.id"}},
		},
		{
			name: "join needed by a kept join is kept",
			query: NewQuery(NewTable("members", "m"), "m.id").
				WithJoins(
					LeftJoinOne(teams, "m.team_id", "t.id"),
					LeftJoinOne(leagues, "t.league_id", "l.id"),
				).
				WithWhere(Compare("l.name", OperatorEq, "north")),
			wantJoins: []Join{
				LeftJoinOne(teams, "m.team_id", "t.id"),
				LeftJoinOne(leagues, "t.league_id", "l.id"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PruneJoins(tt.query)
			require.Equal(t, tt.wantJoins, got.Joins)
			require.Equal(t, tt.query.Where, got.Where)
		})
	}
}

func Test_Query_validateShape(t *testing.T) {
	tests := []struct {
		name              string
		query             Query
		requireProjection bool
		wantErr           error
	}{
		{
			name:              "valid",
			query:             newMemberTeamQuery().WithWhere(Compare("t.name", OperatorEq, "teamA")).WithOrder(Asc("m.age")),
			requireProjection: true,
		},
		{
			name:              "empty projection",
			query:             NewQuery(NewTable("members", "m"), "m.id"),
			requireProjection: true,
			wantErr:           ErrProjectionMismatch,
		},
		{
			name:              "empty projection allowed for counts",
			query:             NewQuery(NewTable("members", "m"), "m.id"),
			requireProjection: false,
		},
		{
			name:              "projected column from an unjoined table",
			query:             NewQuery(NewTable("members", "m"), "m.id").WithProjection(Select("t.name", "")),
			requireProjection: true,
			wantErr:           ErrProjectionMismatch,
		},
		{
			name:    "filter on an unjoined table",
			query:   NewQuery(NewTable("members", "m"), "m.id").WithWhere(Compare("t.name", OperatorEq, "teamA")),
			wantErr: ErrProjectionMismatch,
		},
		{
			name:    "ordering by an unjoined table",
			query:   NewQuery(NewTable("members", "m"), "m.id").WithOrder(Asc("x.age")),
			wantErr: ErrProjectionMismatch,
		},
		{
			name:    "join right column of another table",
			query:   NewQuery(NewTable("members", "m"), "m.id").WithJoins(LeftJoinOne(NewTable("teams", "t"), "m.team_id", "m.id")),
			wantErr: ErrProjectionMismatch,
		},
		{
			name:    "unknown operator",
			query:   NewQuery(NewTable("members", "m"), "m.id").WithWhere(Compare("m.age", Operator("LIKE"), 1)),
			wantErr: ErrInvalidQuery,
		},
		{
			name:    "forbidden table name",
			query:   NewQuery(NewTable("members;", "m"), "m.id"),
			wantErr: ErrInvalidQuery,
		},
		{
			name:    "forbidden projection alias",
			query:   NewQuery(NewTable("members", "m"), "m.id").WithProjection(Select("m.id", "id id")),
			wantErr: ErrInvalidQuery,
		},
		{
			name:    "unsupported join kind",
			query:   NewQuery(NewTable("members", "m"), "m.id").WithJoins(Join{Kind: "CROSS JOIN", Table: NewTable("teams", "t"), Left: "m.team_id", Right: "t.id"}),
			wantErr: ErrInvalidQuery,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.validateShape(tt.requireProjection)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
