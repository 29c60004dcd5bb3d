package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Alp4ka/pagequery"
	"github.com/Alp4ka/pagequery/internal/member"
	"github.com/Alp4ka/pagequery/internal/member/memstore"
)

// pageBody mirrors PageResponse with a pointer total so null decodes to nil.
type pageBody struct {
	Content       []member.MemberTeam `json:"content"`
	TotalElements *int64              `json:"totalElements"`
	Offset        int                 `json:"offset"`
	Limit         int                 `json:"limit"`
	NextToken     string              `json:"nextToken"`
}

func newTestRouter(t *testing.T, opts ...member.Option) http.Handler {
	t.Helper()

	svc := member.NewService(memstore.New(), opts...)
	require.NoError(t, svc.Seed(context.Background()))

	return NewRouter(NewServer(svc, pagequery.Limits{Default: 10, Max: 100}), zap.NewNop(), 0)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, http.NoBody))

	return rr
}

func ages(rows []member.MemberTeam) []int {
	return lo.Map(rows, func(row member.MemberTeam, _ int) int { return row.Age })
}

func TestServer_Pages(t *testing.T) {
	h := newTestRouter(t, member.WithPolicy(pagequery.PolicyOptimisticSkip))

	tests := []struct {
		name       string
		target     string
		wantAges   []int
		wantTotal  *int64
		wantOffset int
		wantLimit  int
		wantNext   string
	}{
		{
			name:      "simple first page",
			target:    "/members/v2?sort=age,desc",
			wantAges:  []int{99, 98, 97, 96, 95, 94, 93, 92, 91, 90},
			wantTotal: lo.ToPtr(int64(100)),
			wantLimit: 10,
			wantNext:  pagequery.NewPageToken(10).String(),
		},
		{
			name:       "filtered last page",
			target:     "/members/v2?teamName=teamA&ageGoe=50&offset=20&sort=age%20desc",
			wantAges:   []int{58, 56, 54, 52, 50},
			wantTotal:  lo.ToPtr(int64(25)),
			wantOffset: 20,
			wantLimit:  10,
		},
		{
			name:      "decoupled count",
			target:    "/members/v3?ageLoe=2",
			wantAges:  []int{0, 1, 2},
			wantTotal: lo.ToPtr(int64(3)),
			wantLimit: 10,
		},
		{
			name:       "optimistic last page",
			target:     "/members/v4?offset=95",
			wantAges:   []int{95, 96, 97, 98, 99},
			wantTotal:  lo.ToPtr(int64(100)),
			wantOffset: 95,
			wantLimit:  10,
		},
		{
			name:      "optimistic full page",
			target:    "/members/v4?limit=2",
			wantAges:  []int{0, 1},
			wantLimit: 2,
			wantNext:  pagequery.NewPageToken(2).String(),
		},
		{
			name:      "configured default policy",
			target:    "/members/v5?size=3",
			wantAges:  []int{0, 1, 2},
			wantLimit: 3,
			wantNext:  pagequery.NewPageToken(3).String(),
		},
		{
			name:       "page and size",
			target:     "/members/v2?page=2&size=5",
			wantAges:   []int{10, 11, 12, 13, 14},
			wantTotal:  lo.ToPtr(int64(100)),
			wantOffset: 10,
			wantLimit:  5,
			wantNext:   pagequery.NewPageToken(15).String(),
		},
		{
			name:       "start token",
			target:     "/members/v2?limit=2&offset=50&startToken=" + pagequery.NewPageToken(40).String(),
			wantAges:   []int{40, 41},
			wantTotal:  lo.ToPtr(int64(100)),
			wantOffset: 40,
			wantLimit:  2,
			wantNext:   pagequery.NewPageToken(42).String(),
		},
		{
			name:       "oversized limit is clamped",
			target:     "/members/v2?limit=1000&offset=90",
			wantAges:   []int{90, 91, 92, 93, 94, 95, 96, 97, 98, 99},
			wantTotal:  lo.ToPtr(int64(100)),
			wantOffset: 90,
			wantLimit:  100,
		},
		{
			name:      "blank criteria are ignored",
			target:    "/members/v2?username=&teamName=%20&limit=1",
			wantAges:  []int{0},
			wantTotal: lo.ToPtr(int64(100)),
			wantLimit: 1,
			wantNext:  pagequery.NewPageToken(1).String(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body pageBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, tt.wantAges, ages(body.Content))
			require.Equal(t, tt.wantTotal, body.TotalElements)
			require.Equal(t, tt.wantOffset, body.Offset)
			require.Equal(t, tt.wantLimit, body.Limit)
			require.Equal(t, tt.wantNext, body.NextToken)
		})
	}
}

func TestServer_TotalElementsIsNullWhenSkipped(t *testing.T) {
	rr := get(t, newTestRouter(t), "/members/v4")
	require.Equal(t, http.StatusOK, rr.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.Equal(t, "null", string(raw["totalElements"]))
}

func TestServer_ListMembers(t *testing.T) {
	h := newTestRouter(t)

	rr := get(t, h, "/members/v1?username=member%207")
	require.Equal(t, http.StatusOK, rr.Code)

	var rows []member.MemberTeam
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "member 7", rows[0].Username)
	require.Equal(t, member.SeedTeamB, lo.FromPtr(rows[0].TeamName))

	rr = get(t, h, "/members/v1?ageGoe=60&ageLoe=40")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, "[]", rr.Body.String())
}

func TestServer_GetMember(t *testing.T) {
	h := newTestRouter(t)

	rr := get(t, h, "/members/3")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"id":3,"username":"member 2","age":2,"teamId":1}`, rr.Body.String())
}

func TestServer_Errors(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   string
	}{
		{"malformed age", "/members/v2?ageGoe=old", http.StatusBadRequest, codeBadRequest},
		{"fractional age", "/members/v1?ageLoe=1.5", http.StatusBadRequest, codeBadRequest},
		{"zero limit", "/members/v2?limit=0", http.StatusBadRequest, codeInvalidRange},
		{"negative offset", "/members/v3?offset=-1", http.StatusBadRequest, codeInvalidRange},
		{"unknown sort field", "/members/v2?sort=agee,desc", http.StatusBadRequest, codeBadRequest},
		{"unknown sort direction", "/members/v2?sort=age,sideways", http.StatusBadRequest, codeBadRequest},
		{"malformed token", "/members/v2?startToken=***", http.StatusBadRequest, codeBadRequest},
		{"unknown member", "/members/1000", http.StatusNotFound, codeNotFound},
		{"malformed member id", "/members/abc", http.StatusBadRequest, codeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, h, tt.target)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestServer_DataSourceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, codeTimeout},
		{"failure", errors.New("connection reset"), http.StatusInternalServerError, codeDataSourceError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, member.WithSourceDecorator(func(pagequery.DataSource[member.MemberTeam]) pagequery.DataSource[member.MemberTeam] {
				return pagequery.DataSourceFunc[member.MemberTeam]{
					FindFunc: func(context.Context, pagequery.Query) ([]member.MemberTeam, error) {
						return nil, tt.err
					},
				}
			}))

			rr := get(t, h, "/members/v2")
			require.Equal(t, tt.wantStatus, rr.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			require.Equal(t, tt.wantCode, body.Code)
			require.NotContains(t, body.Message, "connection reset")
		})
	}
}

func TestServer_RequestDeadline(t *testing.T) {
	svc := member.NewService(memstore.New(), member.WithSourceDecorator(func(src pagequery.DataSource[member.MemberTeam]) pagequery.DataSource[member.MemberTeam] {
		return pagequery.DataSourceFunc[member.MemberTeam]{
			FindFunc: func(ctx context.Context, q pagequery.Query) ([]member.MemberTeam, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
	}))
	h := NewRouter(NewServer(svc, pagequery.Limits{}), zap.NewNop(), 10*time.Millisecond)

	rr := get(t, h, "/members/v2")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// viewFailingStore fails every read transaction before a data source is
// handed out.
type viewFailingStore struct {
	member.Store
	err error
}

func (s viewFailingStore) View(context.Context, member.ViewFunc) error {
	return s.err
}

func TestServer_StoreViewErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"deadline at begin", context.DeadlineExceeded, http.StatusServiceUnavailable, codeTimeout},
		{"wrapped deadline at commit", fmt.Errorf("commit: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, codeTimeout},
		{"other failure", errors.New("tx begin failed"), http.StatusInternalServerError, codeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := member.NewService(viewFailingStore{Store: memstore.New(), err: tt.err})
			h := NewRouter(NewServer(svc, pagequery.Limits{}), zap.NewNop(), 0)

			for _, target := range []string{"/members/v1", "/members/v2"} {
				rr := get(t, h, target)
				require.Equal(t, tt.wantStatus, rr.Code, target)

				var body ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				require.Equal(t, tt.wantCode, body.Code, target)
			}
		})
	}
}

func TestServer_RecoversPanics(t *testing.T) {
	h := newTestRouter(t, member.WithSourceDecorator(func(pagequery.DataSource[member.MemberTeam]) pagequery.DataSource[member.MemberTeam] {
		panic("boom")
	}))

	rr := get(t, h, "/members/v2")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"code":"internal_error","message":"internal error"}`, rr.Body.String())
}

func TestServer_Infrastructure(t *testing.T) {
	h := newTestRouter(t)

	rr := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	get(t, h, "/members/v2")

	rr = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), "pagequery_http_requests_total"))
	require.True(t, strings.Contains(rr.Body.String(), "pagequery_pages_total"))
}
