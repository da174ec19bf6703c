package eval

import "testing"

func TestScoreResponse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Quality
	}{
		{
			name: "empty scores zero",
			text: "",
			want: Quality{},
		},
		{
			name: "short fragment",
			text: "ok",
			// completeness 30, format 50 (no punctuation, no caps),
			// factuality 100, coherence 80 (one fragment)
			want: Quality{Overall: 65, Completeness: 30, Format: 50, Factuality: 100, Coherence: 80},
		},
		{
			name: "confident full answer",
			text: "Indexes speed up lookups by maintaining a sorted structure over the keyed columns. " +
				"They trade write throughput and storage for read latency. " +
				"Composite indexes help queries that filter on the leading columns of the index definition.",
			want: Quality{Overall: 95, Completeness: 85, Format: 100, Factuality: 100, Coherence: 100},
		},
		{
			name: "hedged answer loses factuality",
			text: "I think it is probably a deadlock. Maybe the lock ordering differs between the two transactions involved here.",
			// markers: "i think", "probably", "maybe" -> 100-45=55
			want: Quality{Overall: 74, Completeness: 60, Format: 100, Factuality: 55, Coherence: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreResponse(tt.text); got != tt.want {
				t.Errorf("ScoreResponse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScoreResponse_CoherenceFloor(t *testing.T) {
	// Five short fragments would cost 100 points; the floor holds at 50.
	got := ScoreResponse("a b. c d. e f. g h. i j.")
	if got.Coherence != 50 {
		t.Errorf("Coherence = %d, want floor 50", got.Coherence)
	}
}
