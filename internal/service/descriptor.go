package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sparkfin/be-wf-engine/internal/apperrors"
	"github.com/sparkfin/be-wf-engine/internal/client"
	"github.com/sparkfin/be-wf-engine/internal/repository"
)

// DocumentAPI is the slice of the document client the orchestrator needs.
type DocumentAPI interface {
	Fetch(ctx context.Context, path string) (json.RawMessage, error)
	UpdateStatus(ctx context.Context, path string, doc any) error
	ClearPickedBy(ctx context.Context, path string) error
}

// CoreBankingAPI is the terminal-push surface of the exchange service.
type CoreBankingAPI interface {
	PushAccount(ctx context.Context, payload *client.HostPushPayload) error
	PushCIF(ctx context.Context, payload *client.HostPushPayload) error
	GenerateProvisionalAccountNumber(ctx context.Context, req *client.ProvisionalAccountRequest) (string, error)
}

// HistoryAPI records audit events.
type HistoryAPI interface {
	Record(ctx context.Context, event *client.HistoryEvent) error
}

// CommentAPI forwards reviewer comments and discrepancies.
type CommentAPI interface {
	Append(ctx context.Context, documentID string, req *client.CommentRequest) error
}

// Collaborators bundles every external service the orchestrator talks to.
type Collaborators struct {
	Accounts    DocumentAPI
	Deposits    DocumentAPI
	Remote      DocumentAPI
	Directory   DirectoryAPI
	CoreBanking CoreBankingAPI
	History     HistoryAPI
	Comments    CommentAPI
	Notifier    *client.NotificationPublisher
}

// EntityDescriptor captures everything that differs between the nine
// document-type entry points: which service holds the document, how its
// snapshot is nested, which permanence flag it uses, and what the terminal
// completion push sends. The orchestrator itself is entity-agnostic.
type EntityDescriptor struct {
	Type repository.EntityType

	// Source selects the system-of-record client for this entity.
	Source func(c *Collaborators) DocumentAPI
	// FetchPath and UpdatePath address the document on that service.
	FetchPath  func(id string) string
	UpdatePath func(id string) string
	// ClearPickedPath, when non-empty, is a dedicated release endpoint on
	// the account service called after the status update.
	ClearPickedPath func(id string) string

	// Extract unwraps the service's response envelope into the snapshot.
	Extract func(raw json.RawMessage) (*Document, error)

	// Permanence selects which flag on the snapshot marks the document as
	// already activated (and therefore under maintenance).
	Permanence PermanenceFlag

	// HistoryType labels audit events for this entity.
	HistoryType string

	// TerminalPush runs the one-time completion effect when the chain is
	// fully traversed. It may assign host-issued values onto the document.
	TerminalPush func(ctx context.Context, c *Collaborators, doc *Document) error
}

// descriptors is the entry-point table, keyed by entity type.
var descriptors = map[repository.EntityType]*EntityDescriptor{
	repository.EntityAccount: {
		Type:            repository.EntityAccount,
		Source:          func(c *Collaborators) DocumentAPI { return c.Accounts },
		FetchPath:       func(id string) string { return "/acc-open/" + id },
		UpdatePath:      func(id string) string { return "/acc-open/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "" },
		Extract:         extractAt("data", "data", "accountInfo"),
		Permanence:      PermanenceAccount,
		HistoryType:     "ACCOUNT",
		TerminalPush:    pushAccountToHost,
	},
	repository.EntityCIF: {
		Type:            repository.EntityCIF,
		Source:          func(c *Collaborators) DocumentAPI { return c.Accounts },
		FetchPath:       func(id string) string { return "/cif-open/" + id },
		UpdatePath:      func(id string) string { return "/cif-open/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "" },
		Extract:         extractAt("data", "personalInfo"),
		Permanence:      PermanenceCIF,
		HistoryType:     "CIF",
		TerminalPush:    pushCIFToHost,
	},
	repository.EntityCIFAndAccount: {
		Type:            repository.EntityCIFAndAccount,
		Source:          func(c *Collaborators) DocumentAPI { return c.Accounts },
		FetchPath:       func(id string) string { return "/acc-open/" + id },
		UpdatePath:      func(id string) string { return "/acc-open/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "" },
		Extract:         extractAt("data", "data", "accountInfo"),
		Permanence:      PermanenceAccount,
		HistoryType:     "CIF_AND_ACCOUNT",
		TerminalPush:    pushAccountToHost,
	},
	repository.EntityCIFMaintAccountOpen: {
		Type:            repository.EntityCIFMaintAccountOpen,
		Source:          func(c *Collaborators) DocumentAPI { return c.Accounts },
		FetchPath:       func(id string) string { return "/acc-open/" + id },
		UpdatePath:      func(id string) string { return "/acc-open/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "" },
		Extract:         extractAt("data", "data", "accountInfo"),
		Permanence:      PermanenceAccount,
		HistoryType:     "CIF_MAINT_AND_ACCOUNT_OPEN",
		TerminalPush:    pushAccountToHost,
	},
	repository.EntityDepositAccount: {
		Type:            repository.EntityDepositAccount,
		Source:          func(c *Collaborators) DocumentAPI { return c.Deposits },
		FetchPath:       func(id string) string { return "/" + id },
		UpdatePath:      func(id string) string { return "/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "/cif-acc/remove/picked-by/" + id },
		Extract:         extractAt("data", "trackingInfo"),
		Permanence:      PermanenceDeposit,
		HistoryType:     "DEPOSIT_ACCOUNT",
		TerminalPush:    reserveAccountNumber,
	},
	repository.EntityRecurringDeposit: {
		Type:            repository.EntityRecurringDeposit,
		Source:          func(c *Collaborators) DocumentAPI { return c.Deposits },
		FetchPath:       func(id string) string { return "/rda/" + id },
		UpdatePath:      func(id string) string { return "/rda/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "/cif-acc/remove/picked-by/" + id },
		Extract:         extractAt("data", "trackingInfo"),
		Permanence:      PermanenceDeposit,
		HistoryType:     "RECURRING_DEPOSIT",
		TerminalPush:    reserveAccountNumber,
	},
	repository.EntityRemoteAccount: {
		Type:            repository.EntityRemoteAccount,
		Source:          func(c *Collaborators) DocumentAPI { return c.Remote },
		FetchPath:       func(id string) string { return "/eacc-open/" + id },
		UpdatePath:      func(id string) string { return "/eacc-open/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "" },
		Extract:         extractAt("data", "eAccPersonalInfo"),
		Permanence:      PermanenceAccount,
		HistoryType:     "REMOTE_ACCOUNT",
		TerminalPush:    pushAccountToHost,
	},
	repository.EntityRemoteCIF: {
		Type:            repository.EntityRemoteCIF,
		Source:          func(c *Collaborators) DocumentAPI { return c.Remote },
		FetchPath:       func(id string) string { return "/ecif-open/" + id },
		UpdatePath:      func(id string) string { return "/ecif-open/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "" },
		Extract:         extractAt("data", "ecifCompanyInfo"),
		Permanence:      PermanenceCIF,
		HistoryType:     "REMOTE_CIF",
		TerminalPush:    pushCIFToHost,
	},
	repository.EntityRemoteCIFAndAccount: {
		Type:            repository.EntityRemoteCIFAndAccount,
		Source:          func(c *Collaborators) DocumentAPI { return c.Remote },
		FetchPath:       func(id string) string { return "/eacc-open/" + id },
		UpdatePath:      func(id string) string { return "/eacc-open/update-wf-status/" + id },
		ClearPickedPath: func(id string) string { return "" },
		Extract:         extractAt("data", "eAccPersonalInfo"),
		Permanence:      PermanenceAccount,
		HistoryType:     "REMOTE_CIF_AND_ACCOUNT",
		TerminalPush:    pushAccountToHost,
	},
}

// DescriptorFor returns the entry-point descriptor for an entity type.
func DescriptorFor(entity repository.EntityType) (*EntityDescriptor, error) {
	desc, ok := descriptors[entity]
	if !ok {
		return nil, apperrors.InvalidInput("workflowType", fmt.Sprintf("unknown entity type %q", entity))
	}
	return desc, nil
}

// extractAt returns an extractor that digs through the given envelope keys
// and decodes the remaining object as the document snapshot.
func extractAt(path ...string) func(raw json.RawMessage) (*Document, error) {
	return func(raw json.RawMessage) (*Document, error) {
		current := raw
		for _, key := range path {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(current, &obj); err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "malformed document envelope")
			}
			next, ok := obj[key]
			if !ok || string(next) == "null" {
				return nil, apperrors.New(apperrors.CodeNotFound, "document envelope missing "+key)
			}
			current = next
		}

		doc := &Document{}
		if err := json.Unmarshal(current, doc); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "malformed document snapshot")
		}
		return doc, nil
	}
}

// ── terminal effects ──────────────────────────────────────────────────────────

func pushAccountToHost(ctx context.Context, c *Collaborators, _ *Document) error {
	return c.CoreBanking.PushAccount(ctx, accountHostPayload())
}

func pushCIFToHost(ctx context.Context, c *Collaborators, _ *Document) error {
	return c.CoreBanking.PushCIF(ctx, cifHostPayload())
}

// reserveAccountNumber asks the host for a provisional account number and
// assigns it onto the document.
func reserveAccountNumber(ctx context.Context, c *Collaborators, doc *Document) error {
	accNo, err := c.CoreBanking.GenerateProvisionalAccountNumber(ctx, provisionalAccountRequest())
	if err != nil {
		return err
	}
	doc.AccNumber = &accNo
	return nil
}

// The host payloads are fixed teller-channel shapes agreed with the exchange
// service; they are not derived from the document.

func accountHostPayload() *client.HostPushPayload {
	return &client.HostPushPayload{
		Header: client.HostRecordHeader{
			EnteredBy:    "@15074201A",
			EntryDate:    1230921,
			RequestTime:  111229,
			DataStatus:   "A",
			RecordType:   "2",
			BranchCode:   "0786",
			MakerID:      "L001",
			CheckerID:    "L006",
			CustomerName: "A A",
			ShortName:    "A",
			Country:      "PK",
			Residence:    "PK",
			Sector:       "00D",
			RiskGrade:    "L",
		},
		Compliance: client.HostComplianceBlock{
			EnteredBy:     "@15074201A",
			CustomerRate:  "L",
			WatchScore:    20,
			WatchAlerts:   0,
			PurposeOfCIF:  "02",
			AddressType:   "01",
			ScreeningFlag: "N",
		},
	}
}

func cifHostPayload() *client.HostPushPayload {
	return &client.HostPushPayload{
		Header: client.HostRecordHeader{
			EnteredBy:    "@10054815C",
			EntryDate:    1211026,
			RequestTime:  52452,
			DataStatus:   "A",
			RecordType:   "1",
			BranchCode:   "0786",
			MakerID:      "L001",
			CheckerID:    "L006",
			CustomerName: "AHSAN SHAH",
			ShortName:    "AHSAN",
			Country:      "PK",
			Residence:    "PK",
			Sector:       "00D",
			RiskGrade:    "L",
		},
		Compliance: client.HostComplianceBlock{
			EnteredBy:     "@10054815C",
			CustomerRate:  "L",
			WatchScore:    20,
			WatchAlerts:   0,
			PurposeOfCIF:  "02",
			AddressType:   "01",
			ScreeningFlag: "N",
		},
	}
}

func provisionalAccountRequest() *client.ProvisionalAccountRequest {
	return &client.ProvisionalAccountRequest{
		AccountName:  "FullName",
		AccountType:  "saving",
		BranchCode:   "123",
		ChannelDate:  "12-05-2024",
		ChannelID:    "web",
		ChannelSrlNo: "1234",
		ChannelTime:  "12:12:12",
		CIFNumber:    "123123",
		CNIC:         "123",
		Remark:       "1221",
		ServiceName:  "2132",
		TellerID:     "data.createdBy",
	}
}
