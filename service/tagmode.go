package service

import (
	"fmt"

	"github.com/m-ahsan-nazer/cacophony-api/constant"
	"github.com/m-ahsan-nazer/cacophony-api/entities"
	"github.com/m-ahsan-nazer/cacophony-api/filter"
)

// TagModeCompiler turns a tag mode plus optional tag-name filters into a
// predicate tree over the two tag sources: recording-level tags and tags on
// active tracks. The set of recognized named modes is fixed at construction.
type TagModeCompiler struct {
	named map[constant.TagMode]bool
}

func NewTagModeCompiler(namedModes []string) *TagModeCompiler {
	named := make(map[constant.TagMode]bool, len(namedModes))
	for _, mode := range namedModes {
		named[constant.TagMode(mode)] = true
	}
	return &TagModeCompiler{named: named}
}

// Compile builds the predicate for a mode and name list. An empty mode
// defaults to "tagged" when names are given, else "any". Unknown modes fail
// with ErrInvalidFilter before any query runs.
func (c *TagModeCompiler) Compile(mode constant.TagMode, names []string) (filter.Expr, error) {
	if mode == "" {
		if len(names) > 0 {
			mode = constant.TagModeTagged
		} else {
			mode = constant.TagModeAny
		}
	}

	automatic := func(v bool) *bool { return &v }

	switch mode {
	case constant.TagModeAny:
		return filter.True{}, nil

	case constant.TagModeTagged:
		return tagged(nil, names), nil

	case constant.TagModeUntagged:
		return untagged(nil, names), nil

	case constant.TagModeHumanTagged:
		return tagged(automatic(false), names), nil

	case constant.TagModeAutomaticTagged:
		return tagged(automatic(true), names), nil

	case constant.TagModeBothTagged, constant.TagModeAutomaticHuman:
		return filter.And{
			tagged(automatic(false), names),
			tagged(automatic(true), names),
		}, nil

	case constant.TagModeNoHuman:
		return untagged(automatic(false), names), nil

	case constant.TagModeAutomaticOnly:
		return filter.And{
			tagged(automatic(true), names),
			filter.Not{Expr: tagged(automatic(false), names)},
		}, nil

	case constant.TagModeHumanOnly:
		return filter.And{
			tagged(automatic(false), names),
			filter.Not{Expr: tagged(automatic(true), names)},
		}, nil
	}

	if c.named[mode] {
		expr := filter.Expr(filter.TagExists{
			Where: filter.Eq("what", string(mode)),
		})
		if len(names) > 0 {
			expr = filter.And{expr, tagged(nil, names)}
		}
		return expr, nil
	}

	return nil, fmt.Errorf("%w: unknown tag mode %q", entities.ErrInvalidFilter, mode)
}

// tagged is "a matching tag exists on the recording or on an active track".
func tagged(automatic *bool, names []string) filter.Expr {
	return filter.Or{
		tagExists(false, automatic, names),
		tagExists(true, automatic, names),
	}
}

// untagged is the negation of tagged under the same restrictions.
func untagged(automatic *bool, names []string) filter.Expr {
	return filter.And{
		filter.Not{Expr: tagExists(false, automatic, names)},
		filter.Not{Expr: tagExists(true, automatic, names)},
	}
}

func tagExists(track bool, automatic *bool, names []string) filter.Expr {
	var where filter.And
	if automatic != nil {
		where = append(where, filter.Eq("automatic", *automatic))
	}
	if len(names) > 0 {
		where = append(where, nameFilter(names, track))
	}
	return filter.TagExists{Track: track, Where: where}
}

// nameFilter matches any of the requested names. The synthetic name
// "interesting" matches anything except bird tags (and, on recording-level
// tags, false positives). Plain names match what, and detail as well on
// recording-level tags, since a tag may carry its label in either field.
func nameFilter(names []string, track bool) filter.Expr {
	alts := make(filter.Or, 0, len(names))
	for _, name := range names {
		if name == constant.TagNameInteresting {
			cond := filter.And{filter.Ne("what", "bird")}
			if !track {
				cond = append(cond, filter.Ne("detail", "false positive"))
			}
			alts = append(alts, cond)
			continue
		}
		if track {
			alts = append(alts, filter.Eq("what", name))
			continue
		}
		alts = append(alts, filter.Or{
			filter.Eq("what", name),
			filter.Eq("detail", name),
		})
	}
	return alts
}
