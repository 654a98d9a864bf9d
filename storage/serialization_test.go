package storage

import (
	"testing"
	"time"

	"github.com/poiesic/bidgrid/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	id := core.NewID()
	data := MarshalID(id)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalID(data)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestMarshalUnmarshalRFP_FreeFormSpecs(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	qty := 50.0
	rfp := &core.RFP{
		Id:       core.NewID(),
		Title:    "Laptops",
		Quantity: &qty,
		Specs: map[string]any{
			"ram":     "16GB",
			"screens": []any{"13in", "15in"},
		},
		Status:    core.RFPStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := Marshal(rfp)
	require.NoError(t, err)

	decoded, err := Unmarshal[core.RFP](data)
	require.NoError(t, err)
	assert.Equal(t, rfp.Id, decoded.Id)
	assert.Equal(t, "16GB", decoded.Specs["ram"])
	assert.Equal(t, []any{"13in", "15in"}, decoded.Specs["screens"])
	assert.Equal(t, 50.0, *decoded.Quantity)
	assert.True(t, now.Equal(decoded.CreatedAt))
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal[core.Vendor]([]byte{})
	assert.ErrorIs(t, err, ErrTruncatedData)

	_, err = Unmarshal[core.Vendor]([]byte("{not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
