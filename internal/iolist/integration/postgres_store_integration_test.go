package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"dp-manager/internal/iolist/application"
	iolist "dp-manager/internal/iolist/domain"
	iolistrepo "dp-manager/internal/iolist/infrastructure/postgres"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := iolistrepo.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	hullNo := "H9999"
	_, _ = db.ExecContext(ctx, "DELETE FROM iolist_headers WHERE hull_no = $1", hullNo)

	store, err := iolistrepo.NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	header := &iolist.Header{
		UUID:     uuid.NewString(),
		HullNo:   hullNo,
		IMO:      "9999999",
		DateKey:  "20260130_120000",
		FileName: "H9999_IOList_IMO9999999.xlsx",
	}
	items := []*iolist.Item{
		integrationItem("1001", "ME1/S/CFW_TEMP", "/hs4sd_v1/Engine/Cyl1/Temp"),
		integrationItem("1002", "ME1/S/LO_PRESS", "/hs4sd_v1/Engine/Cyl1/Press"),
	}
	devices := []*iolist.Device{
		{Name: "ME1", Protocol: iolist.ProtocolMQTT},
	}
	if err := store.CreateHeader(ctx, header, items, devices); err != nil {
		t.Fatalf("create header: %v", err)
	}
	if header.ID == 0 {
		t.Fatal("expected assigned header id")
	}

	loaded, err := store.GetHeader(ctx, header.ID)
	if err != nil {
		t.Fatalf("get header: %v", err)
	}
	if loaded == nil || loaded.ItemCount != 2 {
		t.Fatalf("unexpected header load: %+v", loaded)
	}

	headers, err := store.ListHeaders(ctx, application.HeaderFilter{HullNo: hullNo})
	if err != nil {
		t.Fatalf("list headers: %v", err)
	}
	if len(headers) != 1 {
		t.Fatalf("expected one header for %s, got %d", hullNo, len(headers))
	}

	// Insert a duplicate description under the per-header lock and
	// confirm all siblings come back flagged.
	err = store.MutateItems(ctx, header.ID, func(ctx context.Context, tx application.HeaderTx) error {
		dup := integrationItem("1003", "ME1/S/CFW_TEMP", "/hs4sd_v1/Engine/Cyl2/Temp")
		dup.HeaderID = header.ID
		if err := tx.InsertItem(ctx, dup); err != nil {
			return err
		}
		all, err := tx.Items(ctx)
		if err != nil {
			return err
		}
		iolist.Analyze(all)
		return tx.SaveFlags(ctx, all)
	})
	if err != nil {
		t.Fatalf("mutate items: %v", err)
	}

	stored, err := store.ListItems(ctx, header.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 items, got %d", len(stored))
	}
	flagged := 0
	for _, item := range stored {
		if item.IsDuplicateDescription {
			flagged++
		}
	}
	if flagged != 2 {
		t.Fatalf("expected 2 duplicate-description flags, got %d", flagged)
	}

	err = store.MutateItems(ctx, header.ID+100000, func(ctx context.Context, tx application.HeaderTx) error { return nil })
	if !errors.Is(err, iolist.ErrHeaderNotFound) {
		t.Fatalf("expected ErrHeaderNotFound, got %v", err)
	}

	err = store.CreateDevice(ctx, &iolist.Device{HeaderID: header.ID, Name: "ME1", Protocol: iolist.ProtocolNMEA})
	if !errors.Is(err, iolist.ErrDeviceExists) {
		t.Fatalf("expected ErrDeviceExists, got %v", err)
	}

	values, err := store.FilterValues(ctx)
	if err != nil {
		t.Fatalf("filter values: %v", err)
	}
	if !contains(values.HullNos, hullNo) {
		t.Fatalf("expected %s in hull filter values: %v", hullNo, values.HullNos)
	}

	if err := store.DeleteHeader(ctx, header.ID); err != nil {
		t.Fatalf("delete header: %v", err)
	}
	remaining, err := store.ListItems(ctx, header.ID)
	if err != nil {
		t.Fatalf("list items after delete: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected cascade delete, %d items remain", len(remaining))
	}
}

func integrationItem(ioNo, tag, channelID string) *iolist.Item {
	row := iolist.NewRowData()
	row.Set("IO No", ioNo)
	row.Set("IO Name", tag)
	row.Set("Description", tag)
	row.Set("MQTT Tag", tag)
	row.Set("Resource", "ME1")
	row.Set("Data type", "FLOAT")
	row.Set("RuleNaming", "hs4sd_v1")
	row.Set("Level 1", "Engine")
	row.Set("Measure", "Temp")
	return &iolist.Item{
		Raw:           row,
		IONo:          ioNo,
		IOName:        tag,
		Description:   tag,
		DataChannelID: channelID,
	}
}

func contains(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
