package member

import (
	"context"

	"github.com/Alp4ka/pagequery"
)

// ViewFunc reads through src within one consistent snapshot.
type ViewFunc func(ctx context.Context, src pagequery.DataSource[MemberTeam]) error

// Store persists members and teams and exposes member-team rows to queries.
type Store interface {
	// View runs fn with a data source scoped to a single read transaction,
	// so a page and its count observe the same rows.
	View(ctx context.Context, fn ViewFunc) error

	SaveTeam(ctx context.Context, team *Team) error
	// SaveMember inserts a member when its ID is zero and updates it
	// otherwise. The assigned ID is written back.
	SaveMember(ctx context.Context, member *Member) error
	// FindMemberByID returns ErrNotFound when no member has id.
	FindMemberByID(ctx context.Context, id int64) (*Member, error)
	// FindMembers returns every member ordered by ID.
	FindMembers(ctx context.Context) ([]Member, error)
	FindMembersByUsername(ctx context.Context, username string) ([]Member, error)

	// RenameMembersYoungerThan sets the username of every member younger
	// than age. Returns the number of affected members.
	RenameMembersYoungerThan(ctx context.Context, age int, username string) (int64, error)
	// AddMemberAge adds delta to the age of every member.
	AddMemberAge(ctx context.Context, delta int) (int64, error)
	// DeleteMembersOlderThan removes every member older than age.
	DeleteMembersOlderThan(ctx context.Context, age int) (int64, error)
}
