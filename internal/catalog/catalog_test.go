package catalog

import (
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		signs   []Sign
		wantLen int
		wantErr bool
	}{
		{
			name:    "empty catalog",
			signs:   nil,
			wantLen: 0,
		},
		{
			name: "two signs",
			signs: []Sign{
				{ID: 3, Name: "Please"},
				{ID: 1, Name: "I Love You"},
			},
			wantLen: 2,
		},
		{
			name: "duplicate id",
			signs: []Sign{
				{ID: 1, Name: "A"},
				{ID: 1, Name: "B"},
			},
			wantErr: true,
		},
		{
			name:    "missing name",
			signs:   []Sign{{ID: 7}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.signs)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if c.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", c.Len(), tt.wantLen)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	c := Default()

	if c.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", c.Len())
	}

	wantNames := map[int]string{
		0: "Hello",
		1: "I Love You",
		2: "No",
		3: "Please",
		4: "Thanks",
		5: "Yes",
	}
	for id, name := range wantNames {
		if got := c.Name(id); got != name {
			t.Errorf("Name(%d) = %q, want %q", id, got, name)
		}
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := Default()

	t.Run("known id", func(t *testing.T) {
		s, ok := c.Lookup(4)
		if !ok {
			t.Fatal("expected sign 4 to exist")
		}
		if s.Name != "Thanks" {
			t.Errorf("Name = %q, want Thanks", s.Name)
		}
		if s.Tip == "" || s.Instruction == "" {
			t.Error("expected instruction and tip to be populated")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, ok := c.Lookup(42); ok {
			t.Error("expected sign 42 to be absent")
		}
		if c.Contains(42) {
			t.Error("Contains(42) should be false")
		}
		if got := c.Name(42); got != UnknownName {
			t.Errorf("Name(42) = %q, want %q", got, UnknownName)
		}
	})
}

func TestCatalog_IDsSortedAndCopied(t *testing.T) {
	c, err := New([]Sign{
		{ID: 9, Name: "Nine"},
		{ID: 2, Name: "Two"},
		{ID: 5, Name: "Five"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ids := c.IDs()
	want := []int{2, 5, 9}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", ids, want)
		}
	}

	// Mutating the returned slice must not leak into the catalog
	ids[0] = 100
	if c.IDs()[0] != 2 {
		t.Error("IDs() returned a slice aliasing catalog state")
	}

	signs := c.Signs()
	if signs[0].Name != "Two" || signs[2].Name != "Nine" {
		t.Errorf("Signs() not ordered by id: %+v", signs)
	}
}

func TestDefaultSigns_ReturnsCopy(t *testing.T) {
	a := DefaultSigns()
	a[0].Name = "changed"

	if DefaultSigns()[0].Name != "Hello" {
		t.Error("DefaultSigns() should return a fresh copy")
	}
}
