package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/m-ahsan-nazer/cacophony-api/dto"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
	"github.com/m-ahsan-nazer/cacophony-api/filter"
	"github.com/m-ahsan-nazer/cacophony-api/repository"
)

// queryColumns maps API filter field names onto recording columns. Anything
// outside this map is rejected before a predicate is built.
var queryColumns = map[string]string{
	"type":              "type",
	"deviceId":          "device_id",
	"groupId":           "group_id",
	"public":            "public",
	"duration":          "duration",
	"recordingDateTime": "recording_date_time",
	"processingState":   "processing_state",
}

// queryOps are the comparison operators accepted in nested filter values,
// e.g. {"duration": {"gte": 10}}.
var queryOps = map[string]string{
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
	"ne":  "!=",
}

// QueryService composes the user filter, the access predicate and the tag
// predicate into one query plan, runs it, and redacts locations on the way
// out per the principal's precision floor.
type QueryService struct {
	store        repository.RecordingStore
	tagModes     *TagModeCompiler
	access       *AccessResolver
	defaultLimit int
	maxLimit     int
}

func NewQueryService(store repository.RecordingStore, tagModes *TagModeCompiler, access *AccessResolver, defaultLimit, maxLimit int) *QueryService {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit <= 0 {
		maxLimit = 1000
	}
	return &QueryService{
		store:        store,
		tagModes:     tagModes,
		access:       access,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (s *QueryService) Query(ctx context.Context, user *entities.User, q dto.RecordingQuery) (*dto.QueryResult, error) {
	// Filter compilation happens before any store work so a bad filter is
	// rejected without executing a query.
	tagExpr, err := s.tagModes.Compile(q.TagMode, q.TagNames)
	if err != nil {
		return nil, err
	}
	userExpr, err := buildWhere(q.Where)
	if err != nil {
		return nil, err
	}

	scope, err := s.access.ScopeFor(ctx, user)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	plan := &repository.QueryPlan{
		Where:       filter.And{userExpr, scope.Predicate(), tagExpr},
		OldestFirst: q.OldestFirst,
		Limit:       limit,
		Offset:      offset,
	}

	rows, total, err := s.store.Search(ctx, plan)
	if err != nil {
		return nil, err
	}

	precision := EffectivePrecision(user, q.PrecisionMeters)
	for _, rec := range rows {
		if loc := rec.Location(); loc != nil {
			rec.SetLocation(RedactLocation(*loc, precision))
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("rows", len(rows)).
		Int64("total", total).
		Str("tag_mode", string(q.TagMode)).
		Msg("recording query executed")
	return &dto.QueryResult{Rows: rows, Count: total}, nil
}

func buildWhere(where map[string]any) (filter.Expr, error) {
	if len(where) == 0 {
		return filter.True{}, nil
	}
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts filter.And
	for _, key := range keys {
		column, ok := queryColumns[key]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported filter field %q", entities.ErrInvalidFilter, key)
		}
		switch value := where[key].(type) {
		case map[string]any:
			ops := make([]string, 0, len(value))
			for op := range value {
				ops = append(ops, op)
			}
			sort.Strings(ops)
			for _, op := range ops {
				sqlOp, ok := queryOps[op]
				if !ok {
					return nil, fmt.Errorf("%w: unsupported operator %q on %q", entities.ErrInvalidFilter, op, key)
				}
				parts = append(parts, filter.Cond{Column: column, Op: sqlOp, Value: value[op]})
			}
		default:
			parts = append(parts, filter.Eq(column, value))
		}
	}
	return parts, nil
}
