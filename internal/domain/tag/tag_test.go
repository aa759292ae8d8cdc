package tag

import (
	"testing"

	"github.com/kailas-cloud/imagedex/internal/domain"
)

func TestFromPredictions_FlattensInOrder(t *testing.T) {
	preds := [][]domain.Prediction{
		{
			{Label: "cat", Confidence: 0.97},
			{Label: "pet", Confidence: 0.61},
		},
		{
			{Label: "whiskers", Confidence: 0.42},
		},
	}

	set := FromPredictions(preds)

	wantLabels := []string{"cat", "pet", "whiskers"}
	if len(set) != len(wantLabels) {
		t.Fatalf("got %d tags, want %d", len(set), len(wantLabels))
	}
	for i, label := range wantLabels {
		if set[i].Label != label {
			t.Errorf("tag %d: got %q, want %q", i, set[i].Label, label)
		}
	}
}

func TestFromPredictions_KeepsDuplicates(t *testing.T) {
	preds := [][]domain.Prediction{
		{
			{Label: "cat", Confidence: 0.9},
			{Label: "cat", Confidence: 0.8},
		},
	}

	set := FromPredictions(preds)
	if len(set) != 2 {
		t.Fatalf("duplicates must be preserved, got %d tags", len(set))
	}
}

func TestFromPredictions_Empty(t *testing.T) {
	if set := FromPredictions(nil); len(set) != 0 {
		t.Errorf("expected empty set, got %v", set)
	}
	if set := FromPredictions([][]domain.Prediction{{}}); len(set) != 0 {
		t.Errorf("expected empty set for empty inner list, got %v", set)
	}
}

func TestTopConfidence(t *testing.T) {
	set := Set{
		{Label: "pet", Confidence: 0.61},
		{Label: "cat", Confidence: 0.97},
		{Label: "whiskers", Confidence: 0.42},
	}
	if got := set.TopConfidence(); got != 0.97 {
		t.Errorf("got %v, want 0.97", got)
	}

	if got := (Set{}).TopConfidence(); got != 0 {
		t.Errorf("empty set: got %v, want 0", got)
	}
}

func TestMarshalParse_RoundTrip(t *testing.T) {
	set := Set{
		{Label: "cat", Confidence: 0.97},
		{Label: "cat", Confidence: 0.8},
	}

	data, err := set.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	parsed, err := ParseSet(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed) != 2 || parsed[0] != set[0] || parsed[1] != set[1] {
		t.Errorf("round trip mismatch: %v", parsed)
	}
}

func TestParseSet_Empty(t *testing.T) {
	set, err := ParseSet(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set != nil {
		t.Errorf("expected nil set, got %v", set)
	}
}

func TestParseSet_BadJSON(t *testing.T) {
	if _, err := ParseSet([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestJoinLabels(t *testing.T) {
	set := Set{
		{Label: "cat", Confidence: 0.97},
		{Label: "pet", Confidence: 0.61},
	}
	if got := set.JoinLabels(","); got != "cat,pet" {
		t.Errorf("got %q, want %q", got, "cat,pet")
	}
	if got := (Set{}).JoinLabels(","); got != "" {
		t.Errorf("empty set: got %q, want empty", got)
	}
}
