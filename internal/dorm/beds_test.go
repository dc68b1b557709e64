package dorm

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"dormtrack/internal/db"
	"dormtrack/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func seedRoomWithBeds(t *testing.T, gdb *gorm.DB, beds int) []models.Bed {
	t.Helper()
	b := models.Building{Name: "A1"}
	if err := gdb.Create(&b).Error; err != nil {
		t.Fatalf("create building: %v", err)
	}
	room := models.Room{BuildingID: b.ID, RoomNumber: "A1201"}
	if err := gdb.Create(&room).Error; err != nil {
		t.Fatalf("create room: %v", err)
	}
	out := make([]models.Bed, 0, beds)
	for i := 0; i < beds; i++ {
		bed := models.Bed{RoomID: room.ID, BedNumber: string(rune('1' + i)), Status: models.BedAvailable}
		if err := gdb.Create(&bed).Error; err != nil {
			t.Fatalf("create bed: %v", err)
		}
		out = append(out, bed)
	}
	return out
}

func seedStudent(t *testing.T, gdb *gorm.DB, number, name string) models.Student {
	t.Helper()
	s := models.Student{StudentNumber: number, FullName: name}
	if err := gdb.Create(&s).Error; err != nil {
		t.Fatalf("create student: %v", err)
	}
	return s
}

func TestAssignBed(t *testing.T) {
	gdb := setupDB(t)
	beds := seedRoomWithBeds(t, gdb, 1)
	s1 := seedStudent(t, gdb, "S001", "Alice Chen")

	got, err := AssignBed(gdb, s1.ID, &beds[0].ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.BedID == nil || *got.BedID != beds[0].ID {
		t.Fatalf("student not linked to bed")
	}
	if got.Bed == nil || got.Bed.Status != models.BedOccupied {
		t.Fatalf("bed not marked occupied: %+v", got.Bed)
	}
	if got.Bed.Room == nil || got.Bed.Room.ID != beds[0].RoomID {
		t.Fatal("room not preloaded through bed")
	}
}

func TestAssignBedConflictNamesOccupant(t *testing.T) {
	gdb := setupDB(t)
	beds := seedRoomWithBeds(t, gdb, 1)
	s1 := seedStudent(t, gdb, "S001", "Alice Chen")
	s2 := seedStudent(t, gdb, "S002", "Bob Lin")

	if _, err := AssignBed(gdb, s1.ID, &beds[0].ID); err != nil {
		t.Fatalf("first assign: %v", err)
	}

	_, err := AssignBed(gdb, s2.ID, &beds[0].ID)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Occupant != "Alice Chen" {
		t.Fatalf("conflict must name the occupant, got %q", conflict.Occupant)
	}

	// s1 still holds the bed and s2 got nothing.
	var check models.Student
	if err := gdb.First(&check, "id = ?", s2.ID).Error; err != nil {
		t.Fatal(err)
	}
	if check.BedID != nil {
		t.Fatal("failed assignment must not link the bed")
	}
	first, _ := GetStudent(gdb, s1.ID)
	if first.BedID == nil || *first.BedID != beds[0].ID {
		t.Fatal("occupant lost the bed on a failed reassignment")
	}
}

func TestAssignBedReleaseThenReassign(t *testing.T) {
	gdb := setupDB(t)
	beds := seedRoomWithBeds(t, gdb, 1)
	s1 := seedStudent(t, gdb, "S001", "Alice Chen")
	s2 := seedStudent(t, gdb, "S002", "Bob Lin")

	if _, err := AssignBed(gdb, s1.ID, &beds[0].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := AssignBed(gdb, s1.ID, nil); err != nil {
		t.Fatalf("unassign: %v", err)
	}

	var bed models.Bed
	if err := gdb.First(&bed, "id = ?", beds[0].ID).Error; err != nil {
		t.Fatal(err)
	}
	if bed.Status != models.BedAvailable {
		t.Fatalf("released bed must be available, got %s", bed.Status)
	}

	if _, err := AssignBed(gdb, s2.ID, &beds[0].ID); err != nil {
		t.Fatalf("reassign after release: %v", err)
	}
}

func TestAssignBedMoveFreesOldBed(t *testing.T) {
	gdb := setupDB(t)
	beds := seedRoomWithBeds(t, gdb, 2)
	s1 := seedStudent(t, gdb, "S001", "Alice Chen")

	if _, err := AssignBed(gdb, s1.ID, &beds[0].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := AssignBed(gdb, s1.ID, &beds[1].ID); err != nil {
		t.Fatal(err)
	}

	var old models.Bed
	gdb.First(&old, "id = ?", beds[0].ID)
	if old.Status != models.BedAvailable {
		t.Fatalf("old bed must be freed on move, got %s", old.Status)
	}
}

func TestAssignBedUnknownTargets(t *testing.T) {
	gdb := setupDB(t)
	beds := seedRoomWithBeds(t, gdb, 1)
	s1 := seedStudent(t, gdb, "S001", "Alice Chen")

	if _, err := AssignBed(gdb, "missing-id", &beds[0].ID); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	nine := 999
	if _, err := AssignBed(gdb, s1.ID, &nine); !errors.Is(err, ErrBedNotFound) {
		t.Fatalf("expected ErrBedNotFound, got %v", err)
	}
}
