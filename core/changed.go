package core

import (
	"github.com/huangsam/buildwatch/schema"
)

// ChangedRepos returns the repositories where at least one tracked tag took
// more than one distinct value across the log. Results are ordered by repository.
func ChangedRepos(series schema.SeriesMap) []schema.ChangedRepo {
	changed := []schema.ChangedRepo{}
	for _, repo := range series.Repos() {
		rs := series[repo]
		var tags []schema.Tag
		for _, tag := range schema.TrackedTags {
			if !allEqual(rs.Values(tag)) {
				tags = append(tags, tag)
			}
		}
		if len(tags) > 0 {
			changed = append(changed, schema.ChangedRepo{Repo: repo, ChangedTags: tags, Series: rs})
		}
	}
	return changed
}

// FilterChanged keeps only the changed repositories of a series map.
func FilterChanged(series schema.SeriesMap) schema.SeriesMap {
	out := make(schema.SeriesMap)
	for _, cr := range ChangedRepos(series) {
		out[cr.Repo] = cr.Series
	}
	return out
}

func allEqual(values []int) bool {
	for i := 1; i < len(values); i++ {
		if values[i] != values[0] {
			return false
		}
	}
	return true
}
