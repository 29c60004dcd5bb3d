package member

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Alp4ka/pagequery"
	"github.com/Alp4ka/pagequery/internal/logger"
)

// SourceDecorator wraps the data source of every read, e.g. to record
// metrics.
type SourceDecorator func(pagequery.DataSource[MemberTeam]) pagequery.DataSource[MemberTeam]

type Option func(*Service)

// WithPolicy sets the policy used by SearchPage when the caller does not
// pick one.
func WithPolicy(policy pagequery.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

func WithSourceDecorator(decorate SourceDecorator) Option {
	return func(s *Service) {
		s.decorate = decorate
	}
}

// Service searches and maintains members.
type Service struct {
	store    Store
	policy   pagequery.Policy
	decorate SourceDecorator
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: pagequery.PolicySimple,
		decorate: func(src pagequery.DataSource[MemberTeam]) pagequery.DataSource[MemberTeam] {
			return src
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// DefaultPolicy returns the policy SearchPage uses when none is given.
func (s *Service) DefaultPolicy() pagequery.Policy {
	return s.policy
}

// Search returns every member matching criteria ordered by member ID.
func (s *Service) Search(ctx context.Context, criteria SearchCriteria) ([]MemberTeam, error) {
	q := MemberTeamQuery().WithWhere(BuildCondition(criteria))

	var ret []MemberTeam
	err := s.store.View(ctx, func(ctx context.Context, src pagequery.DataSource[MemberTeam]) error {
		var err error
		ret, err = pagequery.NewExecutor[MemberTeam]().FetchAll(ctx, s.decorate(src), q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}

	return ret, nil
}

// SearchPage returns the page req of the members matching criteria. An
// empty policy selects the service default.
func (s *Service) SearchPage(
	ctx context.Context,
	criteria SearchCriteria,
	req pagequery.PageRequest,
	policy pagequery.Policy,
) (*pagequery.Page[MemberTeam], error) {
	if policy == "" {
		policy = s.policy
	}

	started := time.Now()
	paginator := pagequery.NewPaginator[MemberTeam]().WithPolicy(policy)

	var page *pagequery.Page[MemberTeam]
	err := s.store.View(ctx, func(ctx context.Context, src pagequery.DataSource[MemberTeam]) error {
		var err error
		page, err = paginator.Paginate(ctx, s.decorate(src), MemberTeamQuery(), BuildCondition(criteria), req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search members page: %w", err)
	}

	logger.FromContext(ctx).Debug("member page fetched",
		zap.String("policy", string(policy)),
		zap.Int("offset", page.Offset),
		zap.Int("limit", page.Limit),
		zap.Int("rows", len(page.Content)),
		zap.Bool("counted", page.HasTotal()),
		zap.Duration("elapsed", time.Since(started)),
	)

	return page, nil
}

func (s *Service) SaveTeam(ctx context.Context, team *Team) error {
	if team == nil || team.Name == "" {
		return fmt.Errorf("save team: %w", ErrInvalidMember)
	}

	return s.store.SaveTeam(ctx, team)
}

func (s *Service) SaveMember(ctx context.Context, member *Member) error {
	err := member.validate()
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}

	return s.store.SaveMember(ctx, member)
}

func (s *Service) FindMemberByID(ctx context.Context, id int64) (*Member, error) {
	return s.store.FindMemberByID(ctx, id)
}

func (s *Service) FindMembers(ctx context.Context) ([]Member, error) {
	return s.store.FindMembers(ctx)
}

func (s *Service) FindMembersByUsername(ctx context.Context, username string) ([]Member, error) {
	return s.store.FindMembersByUsername(ctx, username)
}

func (s *Service) RenameMembersYoungerThan(ctx context.Context, age int, username string) (int64, error) {
	affected, err := s.store.RenameMembersYoungerThan(ctx, age, username)
	if err != nil {
		return 0, fmt.Errorf("rename members: %w", err)
	}

	logger.FromContext(ctx).Info("members renamed", zap.Int("younger_than", age), zap.Int64("affected", affected))

	return affected, nil
}

func (s *Service) AddMemberAge(ctx context.Context, delta int) (int64, error) {
	affected, err := s.store.AddMemberAge(ctx, delta)
	if err != nil {
		return 0, fmt.Errorf("add member age: %w", err)
	}

	logger.FromContext(ctx).Info("member ages changed", zap.Int("delta", delta), zap.Int64("affected", affected))

	return affected, nil
}

func (s *Service) DeleteMembersOlderThan(ctx context.Context, age int) (int64, error) {
	affected, err := s.store.DeleteMembersOlderThan(ctx, age)
	if err != nil {
		return 0, fmt.Errorf("delete members: %w", err)
	}

	logger.FromContext(ctx).Info("members deleted", zap.Int("older_than", age), zap.Int64("affected", affected))

	return affected, nil
}

// Demo dataset.
const (
	SeedTeamA   = "teamA"
	SeedTeamB   = "teamB"
	SeedMembers = 100
)

// Seed inserts teamA, teamB and members "member 0".."member 99" where member
// i is i years old and belongs to teamA for even i and teamB otherwise.
func (s *Service) Seed(ctx context.Context) error {
	teamA := &Team{Name: SeedTeamA}
	teamB := &Team{Name: SeedTeamB}
	for _, team := range []*Team{teamA, teamB} {
		if err := s.SaveTeam(ctx, team); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	for i := 0; i < SeedMembers; i++ {
		team := teamB
		if i%2 == 0 {
			team = teamA
		}

		err := s.SaveMember(ctx, &Member{
			Username: "member " + strconv.Itoa(i),
			Age:      i,
			TeamID:   &team.ID,
		})
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	logger.FromContext(ctx).Info("members seeded", zap.Int("members", SeedMembers))

	return nil
}
