package httpapi

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/Alp4ka/pagequery"
	"github.com/Alp4ka/pagequery/internal/member"
)

// errBadRequest marks malformed query parameters.
var errBadRequest = errors.New("bad request")

const (
	paramUsername   = "username"
	paramTeamName   = "teamName"
	paramAgeGoe     = "ageGoe"
	paramAgeLoe     = "ageLoe"
	paramOffset     = "offset"
	paramLimit      = "limit"
	paramPage       = "page"
	paramSize       = "size"
	paramStartToken = "startToken"
	paramSort       = "sort"
)

func badParam(name string, err error) error {
	return fmt.Errorf("%w: parameter '%s': %w", errBadRequest, name, err)
}

// parseCriteria reads the search criteria. Absent parameters stay nil.
func parseCriteria(values url.Values) (member.SearchCriteria, error) {
	var (
		ret member.SearchCriteria
		err error
	)

	ret.Username = optionalString(values, paramUsername)
	ret.TeamName = optionalString(values, paramTeamName)

	ret.AgeGoe, err = optionalInt(values, paramAgeGoe)
	if err != nil {
		return member.SearchCriteria{}, err
	}

	ret.AgeLoe, err = optionalInt(values, paramAgeLoe)
	if err != nil {
		return member.SearchCriteria{}, err
	}

	return ret, nil
}

// parsePageRequest reads the requested page. A startToken takes precedence
// over page and size, which take precedence over offset and limit. Absent
// sizes fall back to the default limit and oversized ones are clamped;
// explicit non-positive sizes are kept so the range check rejects them.
func parsePageRequest(values url.Values, limits pagequery.Limits) (pagequery.PageRequest, error) {
	sort, err := pagequery.ParseSort(splitSort(values[paramSort]), member.SortMapping)
	if err != nil {
		return pagequery.PageRequest{}, badParam(paramSort, err)
	}

	offset, err := optionalInt(values, paramOffset)
	if err != nil {
		return pagequery.PageRequest{}, err
	}

	limit, err := optionalInt(values, paramLimit)
	if err != nil {
		return pagequery.PageRequest{}, err
	}

	page, err := optionalInt(values, paramPage)
	if err != nil {
		return pagequery.PageRequest{}, err
	}

	size, err := optionalInt(values, paramSize)
	if err != nil {
		return pagequery.PageRequest{}, err
	}

	if size != nil {
		limit = size
	}
	resolvedLimit := resolveLimit(limit, limits)

	if token := values.Get(paramStartToken); token != "" {
		decoded, err := pagequery.DecodePageToken(token)
		if err != nil {
			return pagequery.PageRequest{}, badParam(paramStartToken, err)
		}

		return decoded.PageRequest(resolvedLimit, sort...), nil
	}

	if page != nil {
		req, err := pagequery.PageOf(*page, resolvedLimit, sort...)
		if err != nil {
			return pagequery.PageRequest{}, badParam(paramPage, err)
		}

		return req, nil
	}

	if offset == nil {
		offset = new(int)
	}

	return pagequery.NewPageRequest(*offset, resolvedLimit, sort...), nil
}

func resolveLimit(limit *int, limits pagequery.Limits) int {
	if limit != nil && *limit <= 0 {
		return *limit
	}

	resolved, _ := limits.Normalize(lo.FromPtr(limit))
	return resolved
}

// splitSort accepts both repeated parameters and "a,asc;b,desc" lists.
func splitSort(values []string) []string {
	ret := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ";") {
			if part = strings.TrimSpace(part); part != "" {
				ret = append(ret, part)
			}
		}
	}

	return ret
}

func optionalString(values url.Values, name string) *string {
	if !values.Has(name) {
		return nil
	}

	value := values.Get(name)
	return &value
}

func optionalInt(values url.Values, name string) (*int, error) {
	if !values.Has(name) || values.Get(name) == "" {
		return nil, nil
	}

	value, err := strconv.Atoi(values.Get(name))
	if err != nil {
		return nil, badParam(name, errors.New("not an integer"))
	}

	return &value, nil
}
