// Package bunstore persists members and teams with bun.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/uptrace/bun"

	"github.com/Alp4ka/pagequery/bunsource"
	"github.com/Alp4ka/pagequery/internal/member"
)

type teamRecord struct {
	bun.BaseModel `bun:"table:teams"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type memberRecord struct {
	bun.BaseModel `bun:"table:members"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,notnull"`
	Age      int    `bun:"age,notnull"`
	TeamID   *int64 `bun:"team_id"`
}

func (r memberRecord) toMember() member.Member {
	return member.Member{
		ID:       r.ID,
		Username: r.Username,
		Age:      r.Age,
		TeamID:   r.TeamID,
	}
}

// Store is a member.Store over a bun database.
type Store struct {
	db bun.IDB
}

func New(db bun.IDB) *Store {
	return &Store{
		db: db,
	}
}

// Migrate creates the members and teams tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, model := range []any{(*teamRecord)(nil), (*memberRecord)(nil)} {
		_, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

// View runs fn inside a transaction.
func (s *Store) View(ctx context.Context, fn member.ViewFunc) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, bunsource.New[member.MemberTeam](tx))
	})
}

func (s *Store) SaveTeam(ctx context.Context, team *member.Team) error {
	record := &teamRecord{ID: team.ID, Name: team.Name}

	err := s.save(ctx, record, record.ID)
	if err != nil {
		return fmt.Errorf("save team: %w", err)
	}
	team.ID = record.ID

	return nil
}

func (s *Store) SaveMember(ctx context.Context, m *member.Member) error {
	record := &memberRecord{ID: m.ID, Username: m.Username, Age: m.Age, TeamID: m.TeamID}

	err := s.save(ctx, record, record.ID)
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	m.ID = record.ID

	return nil
}

// save inserts model when id is zero and replaces the stored row otherwise.
func (s *Store) save(ctx context.Context, model any, id int64) error {
	if id == 0 {
		_, err := s.db.NewInsert().Model(model).Exec(ctx)
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model(model).WherePK().Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return member.ErrNotFound
		}

		_, err = tx.NewUpdate().Model(model).WherePK().Exec(ctx)
		return err
	})
}

func (s *Store) FindMemberByID(ctx context.Context, id int64) (*member.Member, error) {
	record := new(memberRecord)

	err := s.db.NewSelect().Model(record).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, member.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("find member %d: %w", id, err)
	}

	ret := record.toMember()
	return &ret, nil
}

func (s *Store) FindMembers(ctx context.Context) ([]member.Member, error) {
	return s.findMembers(ctx, s.db.NewSelect())
}

func (s *Store) FindMembersByUsername(ctx context.Context, username string) ([]member.Member, error) {
	return s.findMembers(ctx, s.db.NewSelect().Where("username = ?", username))
}

func (s *Store) findMembers(ctx context.Context, query *bun.SelectQuery) ([]member.Member, error) {
	var records []memberRecord

	err := query.Model(&records).Order("id").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}

	return lo.Map(records, func(r memberRecord, _ int) member.Member { return r.toMember() }), nil
}

func (s *Store) RenameMembersYoungerThan(ctx context.Context, age int, username string) (int64, error) {
	return rowsAffected(s.db.NewUpdate().
		Model((*memberRecord)(nil)).
		Set("username = ?", username).
		Where("age < ?", age).
		Exec(ctx))
}

func (s *Store) AddMemberAge(ctx context.Context, delta int) (int64, error) {
	return rowsAffected(s.db.NewUpdate().
		Model((*memberRecord)(nil)).
		Set("age = age + ?", delta).
		Where("1 = 1").
		Exec(ctx))
}

func (s *Store) DeleteMembersOlderThan(ctx context.Context, age int) (int64, error) {
	return rowsAffected(s.db.NewDelete().
		Model((*memberRecord)(nil)).
		Where("age > ?", age).
		Exec(ctx))
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

var _ member.Store = (*Store)(nil)
