package client

import (
	"context"
	"fmt"
)

// CoreBankingClient talks to the exchange service that fronts the core
// banking system. The push payloads are fixed teller-channel shapes expected
// by the host, built from configured channel constants rather than from the
// document itself.
type CoreBankingClient struct {
	client *HTTPClient
}

// NewCoreBankingClient creates a core banking client rooted at the exchange
// service URL.
func NewCoreBankingClient(client *HTTPClient) *CoreBankingClient {
	return &CoreBankingClient{client: client}
}

// HostRecordHeader is the IZNAF01 maker/checker block shared by account and
// CIF pushes.
type HostRecordHeader struct {
	EnteredBy    string `json:"F01BY"`
	EntryDate    int    `json:"F01DT1"`
	RequestTime  int    `json:"RQTM"`
	DataStatus   string `json:"DTAST"`
	RecordType   string `json:"F01TYP"`
	BranchCode   string `json:"F01BRN"`
	MakerID      string `json:"F01MAK"`
	CheckerID    string `json:"F01CHK"`
	CustomerName string `json:"ANCF03"`
	ShortName    string `json:"ANCF04"`
	Country      string `json:"ANCF05"`
	Residence    string `json:"ANCF06"`
	Sector       string `json:"ANCF07"`
	RiskGrade    string `json:"FRISK"`
}

// HostComplianceBlock is the IZNAF36 screening/rating block.
type HostComplianceBlock struct {
	EnteredBy     string `json:"F36BY"`
	CustomerRate  string `json:"CUSRATF36"`
	WatchScore    int    `json:"CUSWHTF36"`
	WatchAlerts   int    `json:"CUSWHAL36"`
	PurposeOfCIF  string `json:"F36PURCIF"`
	AddressType   string `json:"F36ADDTYP"`
	ScreeningFlag string `json:"OFJ108"`
}

// HostPushPayload is the fixed-shape body the exchange service forwards to
// the core banking host.
type HostPushPayload struct {
	Header     HostRecordHeader    `json:"IZNAF01"`
	Compliance HostComplianceBlock `json:"IZNAF36"`
}

// PushAccount submits the account activation payload to the host.
func (c *CoreBankingClient) PushAccount(ctx context.Context, payload *HostPushPayload) error {
	if err := c.client.Post(ctx, "/push-account-to-cbs", payload, nil); err != nil {
		return fmt.Errorf("failed to push account to core banking: %w", err)
	}
	return nil
}

// PushCIF submits the customer-information payload to the host.
func (c *CoreBankingClient) PushCIF(ctx context.Context, payload *HostPushPayload) error {
	if err := c.client.Post(ctx, "/push-cif-to-cbs", payload, nil); err != nil {
		return fmt.Errorf("failed to push CIF to core banking: %w", err)
	}
	return nil
}

// ProvisionalAccountRequest carries the teller-channel attributes the host
// expects as request headers when reserving an account number.
type ProvisionalAccountRequest struct {
	AccountName  string
	AccountType  string
	BranchCode   string
	ChannelDate  string
	ChannelID    string
	ChannelSrlNo string
	ChannelTime  string
	CIFNumber    string
	CNIC         string
	Remark       string
	ServiceName  string
	TellerID     string
}

type provisionalAccountEnvelope struct {
	Data struct {
		AccountNo string `json:"ACCOUNTNO"`
	} `json:"data"`
}

// GenerateProvisionalAccountNumber reserves an account number on the host for
// a fully-approved deposit account and returns it.
func (c *CoreBankingClient) GenerateProvisionalAccountNumber(ctx context.Context, req *ProvisionalAccountRequest) (string, error) {
	headers := map[string]string{
		"accountname":  req.AccountName,
		"accounttype":  req.AccountType,
		"branchcode":   req.BranchCode,
		"channeldate":  req.ChannelDate,
		"channelid":    req.ChannelID,
		"channelsrlno": req.ChannelSrlNo,
		"channeltime":  req.ChannelTime,
		"cifnumber":    req.CIFNumber,
		"scnic":        req.CNIC,
		"remark":       req.Remark,
		"servicename":  req.ServiceName,
		"tellerid":     req.TellerID,
	}

	var resp provisionalAccountEnvelope
	if err := c.client.PostWithHeaders(ctx, "/misys-provisional-account-number", headers, struct{}{}, &resp); err != nil {
		return "", fmt.Errorf("failed to generate provisional account number: %w", err)
	}
	return resp.Data.AccountNo, nil
}
