package core

import (
	"fmt"
	"math/rand/v2"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
)

// NewSampleRand returns the deterministic source used for drawing samples.
func NewSampleRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// FailingRepos returns the repositories whose latest run left at least one
// Makefile without a full success, in sorted order.
func FailingRepos(series schema.SeriesMap) []string {
	var repos []string
	for _, repo := range series.Repos() {
		rs := series[repo]
		partial, okP := rs.Latest(schema.TagPartial)
		total, okT := rs.Latest(schema.TagTotal)
		if okP && okT && partial.Value < total.Value {
			repos = append(repos, repo)
		}
	}
	return repos
}

// SampleFailures draws size failing repositories uniformly without
// replacement, then drops the ones whose latest Makefile count exceeds
// maxMakefiles. The draw only depends on rng and the input series.
func SampleFailures(series schema.SeriesMap, size, maxMakefiles int, rng *rand.Rand) (schema.SampleResult, error) {
	if size <= 0 {
		return schema.SampleResult{}, fmt.Errorf("sample size must be greater than 0 (received %d)", size)
	}
	population := FailingRepos(series)
	result := schema.SampleResult{
		Population: len(population),
		Requested:  size,
	}
	if size > len(population) {
		return result, fmt.Errorf("%w: requested %d, only %d failing repositories", contract.ErrPopulationTooSmall, size, len(population))
	}

	result.Drawn = drawWithoutReplacement(population, size, rng)
	result.Kept = make([]string, 0, len(result.Drawn))
	for _, repo := range result.Drawn {
		total, _ := series[repo].Latest(schema.TagTotal)
		if total.Value > maxMakefiles {
			result.Skipped = append(result.Skipped, schema.SkippedRepo{Repo: repo, NumMakefiles: total.Value})
			continue
		}
		result.Kept = append(result.Kept, repo)
	}
	return result, nil
}

// drawWithoutReplacement runs the first k steps of a Fisher-Yates shuffle on a copy.
func drawWithoutReplacement(population []string, k int, rng *rand.Rand) []string {
	pool := make([]string, len(population))
	copy(pool, population)
	for i := range k {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
