// Package gormstore persists members and teams with gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/Alp4ka/pagequery/gormsource"
	"github.com/Alp4ka/pagequery/internal/member"
)

type teamRecord struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

func (teamRecord) TableName() string {
	return member.TableTeams
}

type memberRecord struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"not null;index"`
	Age      int    `gorm:"not null"`
	TeamID   *int64 `gorm:"index"`
}

func (memberRecord) TableName() string {
	return member.TableMembers
}

func (r memberRecord) toMember() member.Member {
	return member.Member{
		ID:       r.ID,
		Username: r.Username,
		Age:      r.Age,
		TeamID:   r.TeamID,
	}
}

// Store is a member.Store over a gorm database.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{
		db: db,
	}
}

// Migrate creates or updates the members and teams tables.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(&teamRecord{}, &memberRecord{})
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// View runs fn inside a transaction.
func (s *Store) View(ctx context.Context, fn member.ViewFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, gormsource.New[member.MemberTeam](tx))
	})
}

func (s *Store) SaveTeam(ctx context.Context, team *member.Team) error {
	record := teamRecord{ID: team.ID, Name: team.Name}

	err := s.save(ctx, &record, record.ID)
	if err != nil {
		return fmt.Errorf("save team: %w", err)
	}
	team.ID = record.ID

	return nil
}

func (s *Store) SaveMember(ctx context.Context, m *member.Member) error {
	record := memberRecord{ID: m.ID, Username: m.Username, Age: m.Age, TeamID: m.TeamID}

	err := s.save(ctx, &record, record.ID)
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	m.ID = record.ID

	return nil
}

// save inserts record when id is zero and replaces the stored row otherwise.
func (s *Store) save(ctx context.Context, record any, id int64) error {
	if id == 0 {
		return s.db.WithContext(ctx).Create(record).Error
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		err := tx.Model(record).Where("id = ?", id).Count(&found).Error
		if err != nil {
			return err
		}
		if found == 0 {
			return member.ErrNotFound
		}

		return tx.Save(record).Error
	})
}

func (s *Store) FindMemberByID(ctx context.Context, id int64) (*member.Member, error) {
	var record memberRecord

	err := s.db.WithContext(ctx).First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, member.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("find member %d: %w", id, err)
	}

	ret := record.toMember()
	return &ret, nil
}

func (s *Store) FindMembers(ctx context.Context) ([]member.Member, error) {
	return s.findMembers(s.db.WithContext(ctx))
}

func (s *Store) FindMembersByUsername(ctx context.Context, username string) ([]member.Member, error) {
	return s.findMembers(s.db.WithContext(ctx).Where("username = ?", username))
}

func (s *Store) findMembers(tx *gorm.DB) ([]member.Member, error) {
	var records []memberRecord

	err := tx.Order("id").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}

	return lo.Map(records, func(r memberRecord, _ int) member.Member { return r.toMember() }), nil
}

func (s *Store) RenameMembersYoungerThan(ctx context.Context, age int, username string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&memberRecord{}).Where("age < ?", age).Update("username", username)
	if res.Error != nil {
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

func (s *Store) AddMemberAge(ctx context.Context, delta int) (int64, error) {
	res := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&memberRecord{}).
		Update("age", gorm.Expr("age + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

func (s *Store) DeleteMembersOlderThan(ctx context.Context, age int) (int64, error) {
	res := s.db.WithContext(ctx).Where("age > ?", age).Delete(&memberRecord{})
	if res.Error != nil {
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

var _ member.Store = (*Store)(nil)
