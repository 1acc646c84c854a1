package repository

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/m-ahsan-nazer/cacophony-api/filter"
)

// Column whitelists per scope. Rendering rejects anything else, so a filter
// tree can never smuggle raw SQL into the query text.
var recordingColumns = map[string]bool{
	"type":                true,
	"device_id":           true,
	"group_id":            true,
	"public":              true,
	"duration":            true,
	"recording_date_time": true,
	"processing_state":    true,
}

var tagColumns = map[string]bool{
	"what":      true,
	"detail":    true,
	"automatic": true,
}

var condOps = map[string]bool{
	"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

// RenderExpr renders a predicate tree to a parameterized SQL fragment scoped
// to the recordings table. Values are always bound, never interpolated.
func RenderExpr(e filter.Expr) (string, []any, error) {
	var args []any
	sqlText, err := render(e, "recordings", &args)
	if err != nil {
		return "", nil, err
	}
	return sqlText, args, nil
}

func render(e filter.Expr, table string, args *[]any) (string, error) {
	switch v := e.(type) {
	case filter.True:
		return "TRUE", nil

	case filter.Not:
		inner, err := render(v.Expr, table, args)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil

	case filter.And:
		return renderJunction([]filter.Expr(v), " AND ", "TRUE", table, args)

	case filter.Or:
		return renderJunction([]filter.Expr(v), " OR ", "FALSE", table, args)

	case filter.Null:
		col, err := qualify(table, v.Column)
		if err != nil {
			return "", err
		}
		if v.Negate {
			return col + " IS NOT NULL", nil
		}
		return col + " IS NULL", nil

	case filter.Cond:
		return renderCond(v, table, args)

	case filter.TagExists:
		if v.Track {
			inner, err := render(v.Where, "track_tags", args)
			if err != nil {
				return "", err
			}
			return "EXISTS (SELECT 1 FROM track_tags" +
				" JOIN tracks ON tracks.id = track_tags.track_id" +
				" WHERE tracks.recording_id = recordings.id" +
				" AND tracks.archived_at IS NULL AND (" + inner + "))", nil
		}
		inner, err := render(v.Where, "tags", args)
		if err != nil {
			return "", err
		}
		return "EXISTS (SELECT 1 FROM tags" +
			" WHERE tags.recording_id = recordings.id AND (" + inner + "))", nil

	default:
		return "", fmt.Errorf("unsupported filter expression %T", e)
	}
}

func renderJunction(exprs []filter.Expr, sep, empty, table string, args *[]any) (string, error) {
	if len(exprs) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		part, err := render(e, table, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+part+")")
	}
	return strings.Join(parts, sep), nil
}

func renderCond(c filter.Cond, table string, args *[]any) (string, error) {
	col, err := qualify(table, c.Column)
	if err != nil {
		return "", err
	}
	if c.Op == "IN" {
		rv := reflect.ValueOf(c.Value)
		if rv.Kind() != reflect.Slice {
			return "", fmt.Errorf("IN condition on %s requires a slice value", c.Column)
		}
		if rv.Len() == 0 {
			return "FALSE", nil
		}
		*args = append(*args, c.Value)
		return col + " IN ?", nil
	}
	if !condOps[c.Op] {
		return "", fmt.Errorf("unsupported condition operator %q", c.Op)
	}
	*args = append(*args, c.Value)
	return col + " " + c.Op + " ?", nil
}

func qualify(table, column string) (string, error) {
	allowed := recordingColumns
	if table == "tags" || table == "track_tags" {
		allowed = tagColumns
	}
	if !allowed[column] {
		return "", fmt.Errorf("column %q not allowed in %s predicate", column, table)
	}
	return table + "." + column, nil
}
