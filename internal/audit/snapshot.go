package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Snapshot serializes a typed entity state for audit storage.
func Snapshot(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("audit: snapshot: %w", err)
	}
	return data, nil
}

// DiffFields reduces two field maps to the keys whose values differ and
// returns the old and new snapshots of just those keys. Keeping full entity
// dumps out of the trail bounds its growth.
func DiffFields(oldFields, newFields map[string]any) (json.RawMessage, json.RawMessage, error) {
	changedOld := make(map[string]any)
	changedNew := make(map[string]any)
	for key, newVal := range newFields {
		oldVal, ok := oldFields[key]
		if !ok || !reflect.DeepEqual(oldVal, newVal) {
			if ok {
				changedOld[key] = oldVal
			}
			changedNew[key] = newVal
		}
	}
	for key, oldVal := range oldFields {
		if _, ok := newFields[key]; !ok {
			changedOld[key] = oldVal
		}
	}
	oldJSON, err := json.Marshal(changedOld)
	if err != nil {
		return nil, nil, fmt.Errorf("audit: diff old values: %w", err)
	}
	newJSON, err := json.Marshal(changedNew)
	if err != nil {
		return nil, nil, fmt.Errorf("audit: diff new values: %w", err)
	}
	return oldJSON, newJSON, nil
}
