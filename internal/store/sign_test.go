package store

import (
	"errors"
	"testing"

	"github.com/ayusman/mudra/internal/catalog"
)

func testSign(id int, name string) catalog.Sign {
	return catalog.Sign{ID: id, Name: name, Instruction: "Do " + name, Tip: "Slowly"}
}

func TestSignRepository_CRUD(t *testing.T) {
	repo := newTestStore(t).Signs()

	sign := &Sign{Sign: testSign(7, "Water")}
	if err := repo.Create(sign); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sign.CreatedAt.IsZero() || sign.UpdatedAt.IsZero() {
		t.Error("timestamps should be set after create")
	}

	got, err := repo.Get(7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Sign != sign.Sign {
		t.Errorf("Get() = %+v, want %+v", got.Sign, sign.Sign)
	}

	got.Name = "Drink"
	got.Tip = "Tilt the hand"
	if err := repo.Update(got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, _ := repo.Get(7)
	if updated.Name != "Drink" || updated.Tip != "Tilt the hand" {
		t.Errorf("after update = %+v", updated.Sign)
	}

	if err := repo.Delete(7); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(7); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestSignRepository_Errors(t *testing.T) {
	repo := newTestStore(t).Signs()
	if err := repo.Create(&Sign{Sign: testSign(1, "Hello")}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"duplicate id", func() error { return repo.Create(&Sign{Sign: testSign(1, "Other")}) }, ErrConflict},
		{"duplicate name", func() error { return repo.Create(&Sign{Sign: testSign(2, "Hello")}) }, ErrConflict},
		{"update missing", func() error { return repo.Update(&Sign{Sign: testSign(9, "Nine")}) }, ErrNotFound},
		{"delete missing", func() error { return repo.Delete(9) }, ErrNotFound},
		{"get missing", func() error { _, err := repo.Get(9); return err }, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("empty name", func(t *testing.T) {
		if err := repo.Create(&Sign{Sign: catalog.Sign{ID: 3, Name: "  "}}); err == nil {
			t.Error("expected error for empty name")
		}
	})
}

func TestSignRepository_SeedAndCatalog(t *testing.T) {
	repo := newTestStore(t).Signs()

	seeded, err := repo.Seed(catalog.DefaultSigns())
	if err != nil || !seeded {
		t.Fatalf("Seed() = %v, %v", seeded, err)
	}
	seeded, err = repo.Seed([]catalog.Sign{testSign(42, "Again")})
	if err != nil || seeded {
		t.Errorf("second Seed() = %v, %v; want no-op", seeded, err)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 6 || list[0].ID != 0 || list[5].ID != 5 {
		t.Errorf("List() returned %d signs", len(list))
	}

	cat, err := repo.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if cat.Len() != 6 || cat.Name(1) != "I Love You" {
		t.Errorf("catalog = %v", cat.Signs())
	}
}
