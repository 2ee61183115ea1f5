// internal/types/models_test.go
package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestIncidentJSONFieldNames(t *testing.T) {
	inc := Incident{
		ID:           7,
		Date:         "01.01.2030",
		KmPk:         "PK100",
		IncidentType: "Derailment",
		CreatedAt:    time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(inc)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{`"km_pk":"PK100"`, `"incident_type":"Derailment"`, `"id":7`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}
