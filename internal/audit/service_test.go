package audit

import (
	"testing"

	"wms-backend/internal/models"
	"wms-backend/internal/testutil"

	"github.com/google/uuid"
)

func TestDiffMasksSensitiveKeys(t *testing.T) {
	before := map[string]any{"apiToken": "old-secret", "appName": "WMS", "maxBinsPerRack": 10}
	after := map[string]any{"apiToken": "new-secret", "appName": "WMS", "maxBinsPerRack": 12}

	changes := Diff(before, after)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %v", changes)
	}
	tok := changes["apiToken"]
	if tok.Before != MaskedValue || tok.After != MaskedValue {
		t.Errorf("apiToken not masked: %+v", tok)
	}
	if _, ok := changes["appName"]; ok {
		t.Error("unchanged field reported")
	}
	if c := changes["maxBinsPerRack"]; c.Before != 10 || c.After != 12 {
		t.Errorf("maxBinsPerRack = %+v", c)
	}
}

func TestDiffRemovedKey(t *testing.T) {
	changes := Diff(map[string]any{"passwordPolicy": "strict"}, map[string]any{})
	c, ok := changes["passwordPolicy"]
	if !ok {
		t.Fatal("removed key not reported")
	}
	if c.Before != MaskedValue || c.After != nil {
		t.Errorf("got %+v", c)
	}
}

func TestCreatedHasNilBefore(t *testing.T) {
	changes := Created(map[string]any{"shortCode": "ABC"})
	if c := changes["shortCode"]; c.Before != nil || c.After != "ABC" {
		t.Errorf("got %+v", c)
	}
}

func TestWriteAndListLogs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	actor := uuid.New()
	whID := uuid.New().String()

	err := WriteLog(db, LogOptions{
		ActorID:    &actor,
		EntityType: "warehouse_config",
		EntityID:   whID,
		Action:     models.AuditActionUpdate,
		Changes:    Diff(map[string]any{"apiToken": "a"}, map[string]any{"apiToken": "b"}),
	})
	if err != nil {
		t.Fatalf("WriteLog: %v", err)
	}
	if err := WriteLog(db, LogOptions{EntityType: "rack", EntityID: "x", Action: models.AuditActionCreate}); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}

	logs, err := List(db, Filter{EntityType: "warehouse_config"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].ActorUserID == nil || *logs[0].ActorUserID != actor {
		t.Errorf("actor = %v", logs[0].ActorUserID)
	}
	changes, err := DecodeChanges(logs[0])
	if err != nil {
		t.Fatalf("DecodeChanges: %v", err)
	}
	if changes["apiToken"].After != MaskedValue {
		t.Errorf("stored token not masked: %+v", changes["apiToken"])
	}

	byActor, err := List(db, Filter{ActorID: &actor})
	if err != nil || len(byActor) != 1 {
		t.Fatalf("List by actor = %d, %v", len(byActor), err)
	}
}
