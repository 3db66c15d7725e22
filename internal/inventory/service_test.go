package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/yarnscape/backend/internal/patterns"
	"gorm.io/gorm"
)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

func newTestService(t *testing.T, ids []string) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:yarnscape_inventory_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Yarn{}, &Tool{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Unix(1700000000, 0) },
		IDProvider: &staticIDGenerator{ids: ids},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func mustUserID(t *testing.T, value string) patterns.UserID {
	t.Helper()
	userID, err := patterns.NewUserID(value)
	if err != nil {
		t.Fatalf("failed to build user id: %v", err)
	}
	return userID
}

func TestAddYarnStoresTrimmedEntry(t *testing.T) {
	service := newTestService(t, []string{"yarn-1"})
	userID := mustUserID(t, "user-1")

	record, err := service.AddYarn(context.Background(), YarnDraft{
		UserID:    userID,
		Name:      "  Merino DK  ",
		FiberType: "wool",
		Colour:    "teal",
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.YarnID != "yarn-1" || record.Name != "Merino DK" || record.Quantity != 3 {
		t.Fatalf("unexpected record: %#v", record)
	}
}

func TestAddYarnRejectsBlankName(t *testing.T) {
	service := newTestService(t, []string{"yarn-1"})
	_, err := service.AddYarn(context.Background(), YarnDraft{
		UserID:   mustUserID(t, "user-1"),
		Quantity: 1,
	})
	if err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestAddYarnRejectsNegativeQuantity(t *testing.T) {
	service := newTestService(t, []string{"yarn-1"})
	_, err := service.AddYarn(context.Background(), YarnDraft{
		UserID:   mustUserID(t, "user-1"),
		Name:     "Merino DK",
		Quantity: -1,
	})
	if err == nil {
		t.Fatalf("expected error for negative quantity")
	}
}

func TestAdjustYarnQuantityAppliesDelta(t *testing.T) {
	service := newTestService(t, []string{"yarn-1"})
	userID := mustUserID(t, "user-1")

	record, err := service.AddYarn(context.Background(), YarnDraft{UserID: userID, Name: "Merino DK", Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adjusted, err := service.AdjustYarnQuantity(context.Background(), userID, record.YarnID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adjusted.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", adjusted.Quantity)
	}

	adjusted, err = service.AdjustYarnQuantity(context.Background(), userID, record.YarnID, -3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adjusted.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", adjusted.Quantity)
	}
}

func TestAdjustYarnQuantityRefusesToGoNegative(t *testing.T) {
	service := newTestService(t, []string{"yarn-1"})
	userID := mustUserID(t, "user-1")

	record, err := service.AddYarn(context.Background(), YarnDraft{UserID: userID, Name: "Merino DK", Quantity: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = service.AdjustYarnQuantity(context.Background(), userID, record.YarnID, -1)
	if !errors.Is(err, ErrQuantityBelowZero) {
		t.Fatalf("expected below-zero rejection, got %v", err)
	}

	listed, err := service.ListYarn(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 1 || listed[0].Quantity != 0 {
		t.Fatalf("expected stored quantity unchanged at 0, got %#v", listed)
	}
}

func TestAdjustYarnQuantityRejectsForeignItem(t *testing.T) {
	service := newTestService(t, []string{"yarn-1"})
	owner := mustUserID(t, "user-1")
	other := mustUserID(t, "user-2")

	record, err := service.AddYarn(context.Background(), YarnDraft{UserID: owner, Name: "Merino DK", Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = service.AdjustYarnQuantity(context.Background(), other, record.YarnID, 1)
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected not found for foreign item, got %v", err)
	}
}

func TestAddToolAndAdjustQuantity(t *testing.T) {
	service := newTestService(t, []string{"tool-1"})
	userID := mustUserID(t, "user-1")

	record, err := service.AddTool(context.Background(), ToolDraft{
		UserID:   userID,
		Name:     "5mm hook",
		ToolType: "crochet hook",
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adjusted, err := service.AdjustToolQuantity(context.Background(), userID, record.ToolID, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adjusted.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", adjusted.Quantity)
	}

	_, err = service.AdjustToolQuantity(context.Background(), userID, record.ToolID, -1)
	if !errors.Is(err, ErrQuantityBelowZero) {
		t.Fatalf("expected below-zero rejection, got %v", err)
	}
}
