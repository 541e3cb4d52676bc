package reconciler

import (
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name    string
		desired []string
		actual  []string
		add     []string
		del     []string
		update  []string
	}{
		{
			name:    "empty actual creates everything",
			desired: []string{"a", "b"},
			actual:  nil,
			add:     []string{"a", "b"},
		},
		{
			name:    "empty desired deletes everything",
			desired: nil,
			actual:  []string{"a", "b"},
			del:     []string{"a", "b"},
		},
		{
			name:    "overlap updates",
			desired: []string{"a", "b", "c"},
			actual:  []string{"b", "c", "d"},
			add:     []string{"a"},
			del:     []string{"d"},
			update:  []string{"b", "c"},
		},
		{
			name:    "identical sets update everything",
			desired: []string{"a", "b"},
			actual:  []string{"a", "b"},
			update:  []string{"a", "b"},
		},
		{
			name: "both empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := Diff(tt.desired, tt.actual)
			if !reflect.DeepEqual(changes.ToAdd, tt.add) {
				t.Errorf("Expected add %v, got %v", tt.add, changes.ToAdd)
			}
			if !reflect.DeepEqual(changes.ToDelete, tt.del) {
				t.Errorf("Expected delete %v, got %v", tt.del, changes.ToDelete)
			}
			if !reflect.DeepEqual(changes.ToUpdate, tt.update) {
				t.Errorf("Expected update %v, got %v", tt.update, changes.ToUpdate)
			}
		})
	}
}

func TestDiffPreservesOperandOrder(t *testing.T) {
	// Deletions follow actual's order, additions and updates desired's.
	changes := Diff([]string{"z", "m", "a"}, []string{"q", "m", "b"})

	if !reflect.DeepEqual(changes.ToDelete, []string{"q", "b"}) {
		t.Errorf("Expected deletions in actual order, got %v", changes.ToDelete)
	}
	if !reflect.DeepEqual(changes.ToAdd, []string{"z", "a"}) {
		t.Errorf("Expected additions in desired order, got %v", changes.ToAdd)
	}
	if !reflect.DeepEqual(changes.ToUpdate, []string{"m"}) {
		t.Errorf("Expected updates in desired order, got %v", changes.ToUpdate)
	}
}

func TestDiffSetsAreDisjoint(t *testing.T) {
	changes := Diff([]string{"a", "b", "c", "d"}, []string{"c", "d", "e", "f"})

	seen := make(map[string]string)
	for _, name := range changes.ToAdd {
		seen[name] = "add"
	}
	for _, name := range changes.ToDelete {
		if prev, ok := seen[name]; ok {
			t.Errorf("Name %s in both %s and delete", name, prev)
		}
		seen[name] = "delete"
	}
	for _, name := range changes.ToUpdate {
		if prev, ok := seen[name]; ok {
			t.Errorf("Name %s in both %s and update", name, prev)
		}
	}
}
