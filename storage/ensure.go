package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

// schemaVersion is the record layout this build reads and writes. Older rows
// are decoded with additive defaults and never rewritten.
const schemaVersion = 1

const schemaRowKey = "schema"

type schemaEntity struct {
	aztables.Entity
	Version int `json:"Version"`
}

// Ensure provisions the backing table and verifies the schema marker. First
// run creates both; later runs are no-ops unless the marker names a version
// newer than this build understands.
func (s *Storage) Ensure(ctx context.Context) error {
	if _, err := s.table.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return fmt.Errorf("create table: %w", err)
		}
	}

	resp, err := s.table.GetEntity(ctx, metaPartition, schemaRowKey, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return s.writeSchemaMarker(ctx)
		}
		return fmt.Errorf("read schema marker: %w", err)
	}

	version, err := decodeSchemaEntity(resp.Value)
	if err != nil {
		return err
	}
	if version > schemaVersion {
		return fmt.Errorf("store schema version %d is newer than supported version %d", version, schemaVersion)
	}
	return nil
}

func (s *Storage) writeSchemaMarker(ctx context.Context) error {
	marker := schemaEntity{
		Entity:  aztables.Entity{PartitionKey: metaPartition, RowKey: schemaRowKey},
		Version: schemaVersion,
	}
	payload, err := json.Marshal(marker)
	if err != nil {
		return err
	}
	if _, err := s.table.AddEntity(ctx, payload, nil); err != nil {
		var respErr *azcore.ResponseError
		// A concurrent first run already wrote the marker.
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("write schema marker: %w", err)
	}
	return nil
}

func decodeSchemaEntity(data []byte) (int, error) {
	var ent schemaEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return 0, fmt.Errorf("decode schema marker: %w", err)
	}
	return ent.Version, nil
}
