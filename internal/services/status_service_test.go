package services

import (
	"encoding/json"
	"testing"
	"time"

	"betaportal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusService_Current(t *testing.T) {
	fixed := time.Date(2026, 5, 4, 10, 30, 0, 0, time.FixedZone("PDT", -7*3600))
	svc := &StatusService{now: func() time.Time { return fixed }}

	st := svc.Current()
	assert.Equal(t, "0.9.2-beta", st.Version)
	assert.Equal(t, "operational", st.Status)
	assert.Equal(t, models.ModulesStatus, st.Modules)
	assert.Equal(t, fixed.UTC(), st.UpdatedAt)

	raw, err := json.Marshal(st)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, map[string]interface{}{
		"prismaModels": float64(145),
		"apiEndpoints": float64(309),
		"pages":        float64(57),
	}, body["stats"])
	assert.Equal(t, "2026-05-04T17:30:00Z", body["updatedAt"])
	assert.Len(t, body["modules"], len(models.ModulesStatus))
}
