package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfin/be-wf-engine/internal/repository"
)

func TestDocumentRoundTripPreservesUnknownFields(t *testing.T) {
	in := []byte(`{
		"wfStatus": "REQUEST_IS_AT_CHECKERS",
		"wfStatusMaint": null,
		"pickedBy": "user-1",
		"workflowComplete": null,
		"customerName": "AHSAN SHAH",
		"address": {"city": "Karachi"}
	}`)

	var doc Document
	require.NoError(t, json.Unmarshal(in, &doc))

	require.NotNil(t, doc.WfStatus)
	assert.Equal(t, "REQUEST_IS_AT_CHECKERS", *doc.WfStatus)
	assert.Nil(t, doc.WfStatusMaint)
	require.NotNil(t, doc.PickedBy)
	assert.Equal(t, "user-1", *doc.PickedBy)

	out, err := json.Marshal(&doc)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "AHSAN SHAH", got["customerName"])
	assert.Equal(t, map[string]any{"city": "Karachi"}, got["address"])
	assert.Equal(t, "REQUEST_IS_AT_CHECKERS", got["wfStatus"])
}

func TestDocumentMarshalEmitsExplicitNulls(t *testing.T) {
	doc := &Document{}

	out, err := json.Marshal(doc)
	require.NoError(t, err)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &got))

	for _, key := range []string{"wfStatus", "wfStatusMaint", "pickedBy", "workflowComplete"} {
		raw, ok := got[key]
		require.True(t, ok, key)
		assert.Equal(t, "null", string(raw), key)
	}

	// Permanence flags stay absent until set.
	_, ok := got["isCifNoPermanent"]
	assert.False(t, ok)
	_, ok = got["accNumber"]
	assert.False(t, ok)
}

func TestDocumentStatusByPurpose(t *testing.T) {
	doc := &Document{}

	assert.False(t, doc.HasStatus(repository.PurposeOnboarding))

	doc.SetStatus(repository.PurposeOnboarding, strp("REQUEST_IS_AT_CHECKERS"))
	assert.True(t, doc.HasStatus(repository.PurposeOnboarding))
	assert.False(t, doc.HasStatus(repository.PurposeMaintenance))

	doc.SetStatus(repository.PurposeMaintenance, strp("REQUEST_IS_AT_MANAGERS"))
	assert.Equal(t, "REQUEST_IS_AT_MANAGERS", *doc.Status(repository.PurposeMaintenance))
	assert.Equal(t, "REQUEST_IS_AT_CHECKERS", *doc.Status(repository.PurposeOnboarding))

	doc.SetStatus(repository.PurposeOnboarding, nil)
	assert.False(t, doc.HasStatus(repository.PurposeOnboarding))
}

func TestDocumentPurposeFromPermanence(t *testing.T) {
	doc := &Document{}
	assert.Equal(t, repository.PurposeOnboarding, doc.Purpose(PermanenceCIF))

	doc.SetPermanent(PermanenceCIF, true)
	assert.Equal(t, repository.PurposeMaintenance, doc.Purpose(PermanenceCIF))
	assert.Equal(t, repository.PurposeOnboarding, doc.Purpose(PermanenceAccount))

	doc.SetPermanent(PermanenceDeposit, true)
	assert.True(t, doc.IsPermanent(PermanenceDeposit))
	assert.Equal(t, repository.PurposeMaintenance, doc.Purpose(PermanenceDeposit))
}
