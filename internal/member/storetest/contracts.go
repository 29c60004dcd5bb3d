// Package storetest holds the behaviour every member.Store must share. Each
// store package runs RunStore against its own factory.
package storetest

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/Alp4ka/pagequery"
	"github.com/Alp4ka/pagequery/internal/member"
)

// CleanupFunc releases the resources of a store created by a factory.
type CleanupFunc func()

// StoreFactory returns an empty store.
type StoreFactory func(t *testing.T) (member.Store, CleanupFunc)

// RunStore runs the store contract against stores produced by newStore. Every
// subtest receives a fresh store.
func RunStore(t *testing.T, newStore StoreFactory) {
	t.Helper()

	open := func(t *testing.T) member.Store {
		store, cleanup := newStore(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}
		return store
	}

	t.Run("members", func(t *testing.T) {
		runMembers(t, open(t))
	})
	t.Run("search", func(t *testing.T) {
		runSearch(t, open(t))
	})
	t.Run("bulk", func(t *testing.T) {
		runBulk(t, open(t))
	})
}

func runMembers(t *testing.T, store member.Store) {
	ctx := context.Background()

	team := &member.Team{Name: "teamA"}
	require.NoError(t, store.SaveTeam(ctx, team))
	require.NotZero(t, team.ID)

	alice := &member.Member{Username: "alice", Age: 30, TeamID: lo.ToPtr(team.ID)}
	require.NoError(t, store.SaveMember(ctx, alice))
	require.NotZero(t, alice.ID)

	loner := &member.Member{Username: "loner", Age: 41}
	require.NoError(t, store.SaveMember(ctx, loner))
	require.NotEqual(t, alice.ID, loner.ID)

	got, err := store.FindMemberByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, alice, got)

	got, err = store.FindMemberByID(ctx, loner.ID)
	require.NoError(t, err)
	require.Nil(t, got.TeamID)

	_, err = store.FindMemberByID(ctx, loner.ID+100)
	require.ErrorIs(t, err, member.ErrNotFound)

	alice.Age = 31
	require.NoError(t, store.SaveMember(ctx, alice))

	byName, err := store.FindMembersByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	require.Equal(t, 31, byName[0].Age)

	all, err := store.FindMembers(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "loner"}, lo.Map(all, func(m member.Member, _ int) string { return m.Username }))

	var rows []member.MemberTeam
	err = store.View(ctx, func(ctx context.Context, src pagequery.DataSource[member.MemberTeam]) error {
		var err error
		rows, err = pagequery.NewExecutor[member.MemberTeam]().FetchAll(ctx, src, member.MemberTeamQuery())
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []member.MemberTeam{
		{MemberID: alice.ID, Username: "alice", Age: 31, TeamID: lo.ToPtr(team.ID), TeamName: lo.ToPtr("teamA")},
		{MemberID: loner.ID, Username: "loner", Age: 41},
	}, rows)
}

func runSearch(t *testing.T, store member.Store) {
	ctx := context.Background()
	svc := member.NewService(store)
	require.NoError(t, svc.Seed(ctx))

	byAgeDesc := pagequery.Desc(member.ColumnAge)

	tests := []struct {
		name      string
		criteria  member.SearchCriteria
		req       pagequery.PageRequest
		policy    pagequery.Policy
		wantAges  []int
		wantTotal *int64
	}{
		{
			name:      "simple first page",
			req:       pagequery.NewPageRequest(0, 10, byAgeDesc),
			policy:    pagequery.PolicySimple,
			wantAges:  []int{99, 98, 97, 96, 95, 94, 93, 92, 91, 90},
			wantTotal: lo.ToPtr(int64(100)),
		},
		{
			name:      "team and minimum age",
			criteria:  member.SearchCriteria{TeamName: lo.ToPtr(member.SeedTeamA), AgeGoe: lo.ToPtr(50)},
			req:       pagequery.NewPageRequest(20, 10, byAgeDesc),
			policy:    pagequery.PolicySimple,
			wantAges:  []int{58, 56, 54, 52, 50},
			wantTotal: lo.ToPtr(int64(25)),
		},
		{
			name:      "decoupled count agrees with simple",
			criteria:  member.SearchCriteria{AgeLoe: lo.ToPtr(4)},
			req:       pagequery.NewPageRequest(0, 3),
			policy:    pagequery.PolicyDecoupledCount,
			wantAges:  []int{0, 1, 2},
			wantTotal: lo.ToPtr(int64(5)),
		},
		{
			name:      "optimistic last page infers total",
			req:       pagequery.NewPageRequest(95, 10),
			policy:    pagequery.PolicyOptimisticSkip,
			wantAges:  []int{95, 96, 97, 98, 99},
			wantTotal: lo.ToPtr(int64(100)),
		},
		{
			name:     "optimistic full page has no total",
			req:      pagequery.NewPageRequest(0, 3),
			policy:   pagequery.PolicyOptimisticSkip,
			wantAges: []int{0, 1, 2},
		},
		{
			name:      "inverted age range",
			criteria:  member.SearchCriteria{AgeGoe: lo.ToPtr(60), AgeLoe: lo.ToPtr(40)},
			req:       pagequery.NewPageRequest(0, 10),
			policy:    pagequery.PolicySimple,
			wantAges:  []int{},
			wantTotal: lo.ToPtr(int64(0)),
		},
		{
			name:      "blank criteria are ignored",
			criteria:  member.SearchCriteria{Username: lo.ToPtr(" "), TeamName: lo.ToPtr("")},
			req:       pagequery.NewPageRequest(0, 1),
			policy:    pagequery.PolicyDecoupledCount,
			wantAges:  []int{0},
			wantTotal: lo.ToPtr(int64(100)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.SearchPage(ctx, tt.criteria, tt.req, tt.policy)
			require.NoError(t, err)
			require.Equal(t, tt.wantAges, lo.Map(page.Content, func(row member.MemberTeam, _ int) int { return row.Age }))
			require.Equal(t, tt.wantTotal, page.Total)
		})
	}

	t.Run("unpaged search by username", func(t *testing.T) {
		rows, err := svc.Search(ctx, member.SearchCriteria{Username: lo.ToPtr("member 7")})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, 7, rows[0].Age)
		require.Equal(t, member.SeedTeamB, lo.FromPtr(rows[0].TeamName))
	})

	t.Run("members without a team are listed", func(t *testing.T) {
		require.NoError(t, store.SaveMember(ctx, &member.Member{Username: "loner", Age: 7}))

		rows, err := svc.Search(ctx, member.SearchCriteria{AgeGoe: lo.ToPtr(7), AgeLoe: lo.ToPtr(7)})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Nil(t, rows[1].TeamID)
		require.Nil(t, rows[1].TeamName)

		rows, err = svc.Search(ctx, member.SearchCriteria{AgeGoe: lo.ToPtr(7), AgeLoe: lo.ToPtr(7), TeamName: lo.ToPtr(member.SeedTeamB)})
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})
}

func runBulk(t *testing.T, store member.Store) {
	ctx := context.Background()
	svc := member.NewService(store)
	require.NoError(t, svc.Seed(ctx))

	renamed, err := svc.RenameMembersYoungerThan(ctx, 20, "junior")
	require.NoError(t, err)
	require.EqualValues(t, 20, renamed)

	juniors, err := svc.FindMembersByUsername(ctx, "junior")
	require.NoError(t, err)
	require.Len(t, juniors, 20)

	aged, err := svc.AddMemberAge(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 100, aged)

	deleted, err := svc.DeleteMembersOlderThan(ctx, 50)
	require.NoError(t, err)
	require.EqualValues(t, 50, deleted)

	rest, err := svc.FindMembers(ctx)
	require.NoError(t, err)
	require.Len(t, rest, 50)
	require.Equal(t, 1, rest[0].Age)
	require.Equal(t, 50, rest[49].Age)
}
