// Package memstore keeps members and teams in memory. Reads run against a
// snapshot of the tables taken when View starts.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/Alp4ka/pagequery"
	"github.com/Alp4ka/pagequery/internal/member"
	"github.com/Alp4ka/pagequery/memsource"
)

const (
	columnID       = "id"
	columnUsername = "username"
	columnAge      = "age"
	columnTeamID   = "team_id"
	columnName     = "name"
)

// Store is an in-memory member.Store. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	tables *memsource.Store
	lastID map[string]int64
}

func New() *Store {
	return &Store{
		tables: memsource.NewStore(),
		lastID: make(map[string]int64),
	}
}

// Tables returns the underlying tables.
func (s *Store) Tables() *memsource.Store {
	return s.tables
}

func (s *Store) View(ctx context.Context, fn member.ViewFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(ctx, memsource.New(s.tables.Snapshot(), scanMemberTeam))
}

func (s *Store) SaveTeam(ctx context.Context, team *member.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if team.ID == 0 {
		team.ID = s.nextID(member.TableTeams)
		s.tables.Insert(member.TableTeams, teamRecord(team))
		return nil
	}

	if s.tables.Update(member.TableTeams, byID(team.ID), func(memsource.Record) memsource.Record { return teamRecord(team) }) == 0 {
		return fmt.Errorf("save team %d: %w", team.ID, member.ErrNotFound)
	}

	return nil
}

func (s *Store) SaveMember(ctx context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == 0 {
		m.ID = s.nextID(member.TableMembers)
		s.tables.Insert(member.TableMembers, memberRecord(m))
		return nil
	}

	if s.tables.Update(member.TableMembers, byID(m.ID), func(memsource.Record) memsource.Record { return memberRecord(m) }) == 0 {
		return fmt.Errorf("save member %d: %w", m.ID, member.ErrNotFound)
	}

	return nil
}

func (s *Store) FindMemberByID(ctx context.Context, id int64) (*member.Member, error) {
	rows := lo.Filter(s.tables.Rows(member.TableMembers), func(r memsource.Record, _ int) bool { return byID(id)(r) })
	if len(rows) == 0 {
		return nil, member.ErrNotFound
	}

	ret := toMember(rows[0])
	return &ret, nil
}

func (s *Store) FindMembers(ctx context.Context) ([]member.Member, error) {
	return s.findMembers(func(memsource.Record) bool { return true }), nil
}

func (s *Store) FindMembersByUsername(ctx context.Context, username string) ([]member.Member, error) {
	return s.findMembers(func(r memsource.Record) bool { return r[columnUsername] == username }), nil
}

func (s *Store) RenameMembersYoungerThan(ctx context.Context, age int, username string) (int64, error) {
	affected := s.tables.Update(member.TableMembers, ageBelow(age), func(r memsource.Record) memsource.Record {
		r[columnUsername] = username
		return r
	})

	return int64(affected), nil
}

func (s *Store) AddMemberAge(ctx context.Context, delta int) (int64, error) {
	affected := s.tables.Update(member.TableMembers, func(memsource.Record) bool { return true }, func(r memsource.Record) memsource.Record {
		r[columnAge] = r[columnAge].(int) + delta
		return r
	})

	return int64(affected), nil
}

func (s *Store) DeleteMembersOlderThan(ctx context.Context, age int) (int64, error) {
	affected := s.tables.Delete(member.TableMembers, func(r memsource.Record) bool {
		return r[columnAge].(int) > age
	})

	return int64(affected), nil
}

func (s *Store) findMembers(match func(memsource.Record) bool) []member.Member {
	ret := lo.FilterMap(s.tables.Rows(member.TableMembers), func(r memsource.Record, _ int) (member.Member, bool) {
		if !match(r) {
			return member.Member{}, false
		}
		return toMember(r), true
	})
	slices.SortFunc(ret, func(a, b member.Member) int { return cmp.Compare(a.ID, b.ID) })

	return ret
}

func (s *Store) nextID(table string) int64 {
	s.lastID[table]++
	return s.lastID[table]
}

func byID(id int64) func(memsource.Record) bool {
	return func(r memsource.Record) bool {
		return r[columnID] == id
	}
}

func ageBelow(age int) func(memsource.Record) bool {
	return func(r memsource.Record) bool {
		return r[columnAge].(int) < age
	}
}

func teamRecord(t *member.Team) memsource.Record {
	return memsource.Record{
		columnID:   t.ID,
		columnName: t.Name,
	}
}

func memberRecord(m *member.Member) memsource.Record {
	var teamID any
	if m.TeamID != nil {
		teamID = *m.TeamID
	}

	return memsource.Record{
		columnID:       m.ID,
		columnUsername: m.Username,
		columnAge:      m.Age,
		columnTeamID:   teamID,
	}
}

func toMember(r memsource.Record) member.Member {
	ret := member.Member{
		ID:       r[columnID].(int64),
		Username: r[columnUsername].(string),
		Age:      r[columnAge].(int),
	}
	if teamID, ok := r[columnTeamID].(int64); ok {
		ret.TeamID = &teamID
	}

	return ret
}

func scanMemberTeam(r memsource.Record) (member.MemberTeam, error) {
	memberID, ok := r[member.FieldMemberID].(int64)
	if !ok {
		return member.MemberTeam{}, fmt.Errorf("unexpected %s %v", member.FieldMemberID, r[member.FieldMemberID])
	}

	ret := member.MemberTeam{
		MemberID: memberID,
		Username: r[member.FieldUsername].(string),
		Age:      r[member.FieldAge].(int),
	}
	if teamID, ok := r[member.FieldTeamID].(int64); ok {
		ret.TeamID = &teamID
	}
	if teamName, ok := r[member.FieldTeamName].(string); ok {
		ret.TeamName = &teamName
	}

	return ret, nil
}

var (
	_ member.Store                            = (*Store)(nil)
	_ pagequery.DataSource[member.MemberTeam] = (*memsource.Source[member.MemberTeam])(nil)
)
