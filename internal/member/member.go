// Package member is the member/team search domain: entities, search
// criteria, the member-team query and the service paging through it.
package member

import (
	"errors"

	"github.com/Alp4ka/pagequery"
)

var (
	// ErrNotFound indicates the requested member or team does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidMember indicates a member that cannot be stored.
	ErrInvalidMember = errors.New("invalid member")
)

type (
	Team struct {
		ID   int64
		Name string
	}

	// Member belongs to at most one team. TeamID is nil for members without
	// a team.
	Member struct {
		ID       int64
		Username string
		Age      int
		TeamID   *int64
	}

	// MemberTeam is a member joined with its team. TeamID and TeamName are
	// nil for members without a team.
	MemberTeam struct {
		MemberID int64   `json:"memberId"`
		Username string  `json:"username"`
		Age      int     `json:"age"`
		TeamID   *int64  `json:"teamId"`
		TeamName *string `json:"teamName"`
	}
)

func (m *Member) validate() error {
	if m == nil {
		return ErrInvalidMember
	}

	if m.Username == "" {
		return errors.Join(ErrInvalidMember, errors.New("username is required"))
	}

	if m.Age < 0 {
		return errors.Join(ErrInvalidMember, errors.New("age must not be negative"))
	}

	return nil
}

// Table and column names shared by every store.
const (
	TableMembers = "members"
	TableTeams   = "teams"

	ColumnMemberID pagequery.Column = "m.id"
	ColumnUsername pagequery.Column = "m.username"
	ColumnAge      pagequery.Column = "m.age"
	ColumnTeamID   pagequery.Column = "m.team_id"
	ColumnTeamKey  pagequery.Column = "t.id"
	ColumnTeamName pagequery.Column = "t.name"
)

// Names of the MemberTeamQuery selections.
const (
	FieldMemberID = "member_id"
	FieldUsername = "username"
	FieldAge      = "age"
	FieldTeamID   = "team_id"
	FieldTeamName = "team_name"
)

// SortMapping maps public sort field names to query columns.
var SortMapping = pagequery.ColumnMapping{
	"id":       ColumnMemberID,
	"memberId": ColumnMemberID,
	"username": ColumnUsername,
	"age":      ColumnAge,
	"teamId":   ColumnTeamKey,
	"teamName": ColumnTeamName,
}

// MemberTeamQuery returns the query listing members left-joined with their
// teams, keyed by member id. Members without a team are kept.
func MemberTeamQuery() pagequery.Query {
	return pagequery.NewQuery(pagequery.NewTable(TableMembers, "m"), ColumnMemberID).
		WithProjection(
			pagequery.Select(ColumnMemberID, FieldMemberID),
			pagequery.Select(ColumnUsername, FieldUsername),
			pagequery.Select(ColumnAge, FieldAge),
			pagequery.Select(ColumnTeamKey, FieldTeamID),
			pagequery.Select(ColumnTeamName, FieldTeamName),
		).
		WithJoins(pagequery.LeftJoinOne(pagequery.NewTable(TableTeams, "t"), ColumnTeamID, ColumnTeamKey))
}
