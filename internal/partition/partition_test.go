package partition

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestAssignScanOrderScenario(t *testing.T) {
	items := []Item{
		{Name: "doc1", Size: 100},
		{Name: "doc2", Size: 150},
		{Name: "doc3", Size: 900},
	}
	parts, err := Assign(items, 0, Limits{ByteCeiling: 1000, DocumentCeiling: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Fatalf("partitions: got %d, want 2", len(parts))
	}
	if got := parts[0].Documents; len(got) != 2 || got[0] != "doc1" || got[1] != "doc2" {
		t.Fatalf("partition 1: %v", got)
	}
	if parts[0].Size != 250 {
		t.Fatalf("partition 1 size: %d", parts[0].Size)
	}
	if got := parts[1].Documents; len(got) != 1 || got[0] != "doc3" {
		t.Fatalf("partition 2: %v", got)
	}
	if parts[0].Ordinal != 1 || parts[1].Ordinal != 2 {
		t.Fatalf("ordinals: %d, %d", parts[0].Ordinal, parts[1].Ordinal)
	}
}

func TestAssignCountCeilingOfOne(t *testing.T) {
	items := []Item{
		{Name: "a", Size: 1},
		{Name: "b", Size: 1},
		{Name: "c", Size: 1},
	}
	parts, err := Assign(items, 0, Limits{ByteCeiling: 1 << 40, DocumentCeiling: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 3 {
		t.Fatalf("partitions: got %d, want 3", len(parts))
	}
	for i, part := range parts {
		if len(part.Documents) != 1 {
			t.Fatalf("partition %d holds %d documents", i+1, len(part.Documents))
		}
	}
}

func TestAssignOversizedDocumentGetsOwnPartition(t *testing.T) {
	items := []Item{{Name: "huge", Size: 5000}}
	parts, err := Assign(items, 100, Limits{ByteCeiling: 1000, DocumentCeiling: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 {
		t.Fatalf("partitions: got %d, want 1", len(parts))
	}
	if len(parts[0].Documents) != 1 || parts[0].Documents[0] != "huge" {
		t.Fatalf("partition 1: %v", parts[0].Documents)
	}
	if parts[0].Size != 5100 {
		t.Fatalf("partition 1 size: %d", parts[0].Size)
	}
}

func TestAssignOversizedDocumentMidScan(t *testing.T) {
	items := []Item{
		{Name: "small1", Size: 10},
		{Name: "huge", Size: 5000},
		{Name: "small2", Size: 10},
	}
	parts, err := Assign(items, 0, Limits{ByteCeiling: 1000, DocumentCeiling: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 3 {
		t.Fatalf("partitions: got %d, want 3: %v", len(parts), parts)
	}
	if parts[1].Documents[0] != "huge" || len(parts[1].Documents) != 1 {
		t.Fatalf("oversized document not isolated: %v", parts[1].Documents)
	}
	if parts[2].Documents[0] != "small2" {
		t.Fatalf("partition 3: %v", parts[2].Documents)
	}
}

func TestAssignEmptyInventoryEmitsSinglePartition(t *testing.T) {
	parts, err := Assign(nil, 42, Limits{ByteCeiling: 1000, DocumentCeiling: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 1 {
		t.Fatalf("partitions: got %d, want 1", len(parts))
	}
	if len(parts[0].Documents) != 0 || parts[0].Size != 42 {
		t.Fatalf("unexpected partition: %+v", parts[0])
	}
}

func TestAssignOverheadCountsAgainstEveryPartition(t *testing.T) {
	items := []Item{
		{Name: "a", Size: 400},
		{Name: "b", Size: 400},
	}
	// overhead 300: 300+400=700 fits, 700+400=1100 does not.
	parts, err := Assign(items, 300, Limits{ByteCeiling: 1000, DocumentCeiling: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Fatalf("partitions: got %d, want 2", len(parts))
	}
	if parts[1].Size != 700 {
		t.Fatalf("partition 2 should restart at overhead+size, got %d", parts[1].Size)
	}
}

func TestAssignRejectsInvalidLimits(t *testing.T) {
	if _, err := Assign(nil, 0, Limits{ByteCeiling: 0, DocumentCeiling: 1}); err == nil {
		t.Fatal("expected error for zero byte ceiling")
	}
	if _, err := Assign(nil, 0, Limits{ByteCeiling: 1, DocumentCeiling: 0}); err == nil {
		t.Fatal("expected error for zero document ceiling")
	}
}

func TestAssignProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		count := rng.Intn(60)
		items := make([]Item, count)
		for i := range items {
			items[i] = Item{
				Name: fmt.Sprintf("doc%03d", i),
				Size: int64(rng.Intn(2000)),
			}
		}
		overhead := int64(rng.Intn(100))
		limits := Limits{
			ByteCeiling:     int64(rng.Intn(3000) + 1),
			DocumentCeiling: rng.Intn(10) + 1,
		}

		parts, err := Assign(items, overhead, limits)
		if err != nil {
			t.Fatal(err)
		}

		seen := make(map[string]int)
		for _, part := range parts {
			if len(part.Documents) > limits.DocumentCeiling {
				t.Fatalf("trial %d: partition %d exceeds document ceiling: %d > %d",
					trial, part.Ordinal, len(part.Documents), limits.DocumentCeiling)
			}
			if part.Size >= limits.ByteCeiling && len(part.Documents) > 1 {
				t.Fatalf("trial %d: partition %d exceeds byte ceiling with %d documents (size %d)",
					trial, part.Ordinal, len(part.Documents), part.Size)
			}
			var sum int64
			for _, name := range part.Documents {
				seen[name]++
				for _, item := range items {
					if item.Name == name {
						sum += item.Size
					}
				}
			}
			if part.Size != overhead+sum {
				t.Fatalf("trial %d: partition %d size accumulator drifted: %d != %d+%d",
					trial, part.Ordinal, part.Size, overhead, sum)
			}
		}
		for _, item := range items {
			if seen[item.Name] != 1 {
				t.Fatalf("trial %d: document %s assigned %d times", trial, item.Name, seen[item.Name])
			}
		}

		// Deterministic: same input yields the same assignment.
		again, err := Assign(items, overhead, limits)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(parts) {
			t.Fatalf("trial %d: repeat run produced %d partitions, first run %d", trial, len(again), len(parts))
		}
		for i := range parts {
			if len(again[i].Documents) != len(parts[i].Documents) {
				t.Fatalf("trial %d: partition %d membership differs between runs", trial, i+1)
			}
		}
	}
}
