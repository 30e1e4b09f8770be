package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfin/be-wf-engine/internal/client"
	"github.com/sparkfin/be-wf-engine/internal/repository"
)

func TestDescriptorForCoversEveryEntityType(t *testing.T) {
	entities := []repository.EntityType{
		repository.EntityAccount,
		repository.EntityCIF,
		repository.EntityDepositAccount,
		repository.EntityRecurringDeposit,
		repository.EntityCIFAndAccount,
		repository.EntityCIFMaintAccountOpen,
		repository.EntityRemoteAccount,
		repository.EntityRemoteCIF,
		repository.EntityRemoteCIFAndAccount,
	}

	for _, entity := range entities {
		desc, err := DescriptorFor(entity)
		require.NoError(t, err, entity)
		assert.Equal(t, entity, desc.Type)
		assert.NotEmpty(t, desc.FetchPath("doc-1"), entity)
		assert.NotEmpty(t, desc.UpdatePath("doc-1"), entity)
		assert.NotNil(t, desc.Extract, entity)
		assert.NotNil(t, desc.TerminalPush, entity)
	}
}

func TestDescriptorForUnknownEntity(t *testing.T) {
	_, err := DescriptorFor(repository.EntityType("LOAN"))
	assert.Error(t, err)
}

func TestDescriptorPaths(t *testing.T) {
	tests := []struct {
		entity repository.EntityType
		fetch  string
		update string
		clear  string
	}{
		{repository.EntityAccount, "/acc-open/d1", "/acc-open/update-wf-status/d1", ""},
		{repository.EntityCIF, "/cif-open/d1", "/cif-open/update-wf-status/d1", ""},
		{repository.EntityDepositAccount, "/d1", "/update-wf-status/d1", "/cif-acc/remove/picked-by/d1"},
		{repository.EntityRecurringDeposit, "/rda/d1", "/rda/update-wf-status/d1", "/cif-acc/remove/picked-by/d1"},
		{repository.EntityRemoteAccount, "/eacc-open/d1", "/eacc-open/update-wf-status/d1", ""},
		{repository.EntityRemoteCIF, "/ecif-open/d1", "/ecif-open/update-wf-status/d1", ""},
	}

	for _, tt := range tests {
		desc, err := DescriptorFor(tt.entity)
		require.NoError(t, err)
		assert.Equal(t, tt.fetch, desc.FetchPath("d1"), tt.entity)
		assert.Equal(t, tt.update, desc.UpdatePath("d1"), tt.entity)
		assert.Equal(t, tt.clear, desc.ClearPickedPath("d1"), tt.entity)
	}
}

func TestExtractUnwrapsEnvelope(t *testing.T) {
	raw := json.RawMessage(`{
		"data": {
			"data": {
				"accountInfo": {
					"wfStatus": "REQUEST_IS_AT_CHECKERS",
					"wfStatusMaint": null,
					"pickedBy": null,
					"workflowComplete": null,
					"accountTitle": "Savings"
				}
			}
		}
	}`)

	desc, err := DescriptorFor(repository.EntityAccount)
	require.NoError(t, err)

	doc, err := desc.Extract(raw)
	require.NoError(t, err)
	require.NotNil(t, doc.WfStatus)
	assert.Equal(t, "REQUEST_IS_AT_CHECKERS", *doc.WfStatus)
}

func TestExtractMissingEnvelopeKey(t *testing.T) {
	desc, err := DescriptorFor(repository.EntityCIF)
	require.NoError(t, err)

	_, err = desc.Extract(json.RawMessage(`{"data": {}}`))
	assert.Error(t, err)

	_, err = desc.Extract(json.RawMessage(`not-json`))
	assert.Error(t, err)
}

type fakeCoreBanking struct {
	accountPushes int
	cifPushes     int
	provisioned   int
	accountNo     string
	err           error
}

func (f *fakeCoreBanking) PushAccount(context.Context, *client.HostPushPayload) error {
	f.accountPushes++
	return f.err
}

func (f *fakeCoreBanking) PushCIF(context.Context, *client.HostPushPayload) error {
	f.cifPushes++
	return f.err
}

func (f *fakeCoreBanking) GenerateProvisionalAccountNumber(context.Context, *client.ProvisionalAccountRequest) (string, error) {
	f.provisioned++
	return f.accountNo, f.err
}

func TestTerminalPushByEntity(t *testing.T) {
	host := &fakeCoreBanking{accountNo: "0786123456"}
	c := &Collaborators{CoreBanking: host}

	accDesc, err := DescriptorFor(repository.EntityAccount)
	require.NoError(t, err)
	require.NoError(t, accDesc.TerminalPush(context.Background(), c, &Document{}))
	assert.Equal(t, 1, host.accountPushes)

	cifDesc, err := DescriptorFor(repository.EntityRemoteCIF)
	require.NoError(t, err)
	require.NoError(t, cifDesc.TerminalPush(context.Background(), c, &Document{}))
	assert.Equal(t, 1, host.cifPushes)

	depDesc, err := DescriptorFor(repository.EntityDepositAccount)
	require.NoError(t, err)
	doc := &Document{}
	require.NoError(t, depDesc.TerminalPush(context.Background(), c, doc))
	assert.Equal(t, 1, host.provisioned)
	require.NotNil(t, doc.AccNumber)
	assert.Equal(t, "0786123456", *doc.AccNumber)
}
