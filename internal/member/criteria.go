package member

import (
	"github.com/Alp4ka/pagequery"
)

// SearchCriteria is a sparse member filter. Nil and blank fields are
// ignored; an inverted age range is not an error and simply matches nothing.
type SearchCriteria struct {
	Username *string
	TeamName *string
	AgeGoe   *int
	AgeLoe   *int
}

// BuildCondition converts criteria into a condition over MemberTeamQuery,
// comparing username, team name, minimum age and maximum age in that order.
func BuildCondition(criteria SearchCriteria) pagequery.Condition {
	return pagequery.AllOf(
		pagequery.EqText(ColumnUsername, criteria.Username),
		pagequery.EqText(ColumnTeamName, criteria.TeamName),
		pagequery.Goe(ColumnAge, criteria.AgeGoe),
		pagequery.Loe(ColumnAge, criteria.AgeLoe),
	)
}
