package eval

import "sort"

// Summary aggregates a run: outcome counts, latency percentiles, and
// average rubric scores over passing items.
type Summary struct {
	Total        int
	CleanPass    int
	SalvagedPass int
	Failed       int
	Retried      int

	AvgLatencyMS float64
	P50LatencyMS float64
	P95LatencyMS float64

	AvgQuality      float64
	AvgCompleteness float64
	AvgFormat       float64
	AvgFactuality   float64
	AvgCoherence    float64

	BySchema []SchemaStats
}

// SchemaStats is the per-schema breakdown.
type SchemaStats struct {
	Schema       string
	Total        int
	CleanPass    int
	SalvagedPass int
	Failed       int
	AvgLatencyMS float64
	P95LatencyMS float64
}

// Summarize computes aggregate statistics over item results.
func Summarize(results []ItemResult) Summary {
	s := Summary{Total: len(results)}
	var latencies []float64
	var qSum, cSum, fSum, factSum, cohSum, qCount float64
	perSchema := make(map[string]*schemaAcc)

	for _, res := range results {
		out := res.Outcome
		acc, ok := perSchema[res.Item.Schema]
		if !ok {
			acc = &schemaAcc{}
			perSchema[res.Item.Schema] = acc
		}
		acc.total++
		acc.latencies = append(acc.latencies, out.LatencyMS)
		latencies = append(latencies, out.LatencyMS)

		if out.Retried {
			s.Retried++
		}
		switch {
		case out.Pass && out.Verdict.Clean():
			s.CleanPass++
			acc.clean++
		case out.Pass:
			s.SalvagedPass++
			acc.salvaged++
		default:
			s.Failed++
			acc.failed++
		}
		if out.Pass {
			q := res.Quality
			qSum += float64(q.Overall)
			cSum += float64(q.Completeness)
			fSum += float64(q.Format)
			factSum += float64(q.Factuality)
			cohSum += float64(q.Coherence)
			qCount++
		}
	}

	s.AvgLatencyMS = mean(latencies)
	s.P50LatencyMS = percentile(latencies, 50)
	s.P95LatencyMS = percentile(latencies, 95)

	if qCount > 0 {
		s.AvgQuality = qSum / qCount
		s.AvgCompleteness = cSum / qCount
		s.AvgFormat = fSum / qCount
		s.AvgFactuality = factSum / qCount
		s.AvgCoherence = cohSum / qCount
	}

	names := make([]string, 0, len(perSchema))
	for name := range perSchema {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		acc := perSchema[name]
		s.BySchema = append(s.BySchema, SchemaStats{
			Schema:       name,
			Total:        acc.total,
			CleanPass:    acc.clean,
			SalvagedPass: acc.salvaged,
			Failed:       acc.failed,
			AvgLatencyMS: mean(acc.latencies),
			P95LatencyMS: percentile(acc.latencies, 95),
		})
	}
	return s
}

type schemaAcc struct {
	total, clean, salvaged, failed int
	latencies                      []float64
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// percentile returns the value at the p-th percentile using the
// nearest-rank index over a sorted copy.
func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	idx := int(p / 100 * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
