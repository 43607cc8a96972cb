package domain

import (
	"encoding/json"
	"fmt"
)

type BillerName string

const (
	BillerRocketgate BillerName = "rocketgate"
	BillerNetbilling BillerName = "netbilling"
	BillerEpoch      BillerName = "epoch"
)

func ParseBillerName(s string) (BillerName, error) {
	switch BillerName(s) {
	case BillerRocketgate, BillerNetbilling, BillerEpoch:
		return BillerName(s), nil
	}
	return "", NewInvalidInformationError("billerName", fmt.Sprintf("unknown biller %q", s))
}

// BillerChargeSettings is the closed set of per-biller merchant settings.
// Behaviour that depends on the biller switches on the concrete variant.
type BillerChargeSettings interface {
	Biller() BillerName
	isBillerChargeSettings()
}

type RocketgateChargeSettings struct {
	MerchantID         string `json:"merchantId" validate:"required"`
	MerchantPassword   string `json:"merchantPassword" validate:"required"`
	MerchantCustomerID string `json:"merchantCustomerId,omitempty"`
	MerchantInvoiceID  string `json:"merchantInvoiceId,omitempty"`
	MerchantAccount    string `json:"merchantAccount,omitempty"`
	MerchantSiteID     string `json:"merchantSiteId,omitempty"`
	SharedSecret       string `json:"sharedSecret,omitempty"`
	SimplifiedThreeD   bool   `json:"simplified3DS"`
	IPAddress          string `json:"ipAddress,omitempty" validate:"omitempty,ip"`
}

type NetbillingChargeSettings struct {
	SiteTag          string `json:"siteTag" validate:"required"`
	AccountID        string `json:"accountId" validate:"required"`
	MerchantPassword string `json:"merchantPassword" validate:"required"`
	InitialDays      int    `json:"initialDays,omitempty" validate:"min=0"`
	BinRouting       string `json:"binRouting,omitempty"`
	IPAddress        string `json:"ipAddress,omitempty" validate:"omitempty,ip"`
}

type EpochChargeSettings struct {
	ClientID              string `json:"clientId" validate:"required"`
	ClientKey             string `json:"clientKey" validate:"required"`
	ClientVerificationKey string `json:"clientVerificationKey" validate:"required"`
	RedirectURL           string `json:"redirectUrl" validate:"required,url"`
	NotificationURL       string `json:"notificationUrl,omitempty" validate:"omitempty,url"`
	InvoiceID             string `json:"invoiceId,omitempty"`
}

func (RocketgateChargeSettings) Biller() BillerName { return BillerRocketgate }
func (NetbillingChargeSettings) Biller() BillerName { return BillerNetbilling }
func (EpochChargeSettings) Biller() BillerName { return BillerEpoch }

func (RocketgateChargeSettings) isBillerChargeSettings() {}
func (NetbillingChargeSettings) isBillerChargeSettings() {}
func (EpochChargeSettings) isBillerChargeSettings()      {}

// SimplifiedThreeD reports whether the biller is configured to retry stored-card
// charges with 3DS when the biller asks for it.
func SimplifiedThreeD(s BillerChargeSettings) bool {
	v, _ := billerSettingsValue(s)
	rocketgate, ok := v.(RocketgateChargeSettings)
	return ok && rocketgate.SimplifiedThreeD
}

// validateBillerSettings returns the value variant of s, so pointer variants
// never reach the aggregate.
func validateBillerSettings(s BillerChargeSettings) (BillerChargeSettings, error) {
	v, ok := billerSettingsValue(s)
	if !ok {
		return nil, NewMissingInformationError("billerChargeSettings")
	}
	if err := validateStruct(v); err != nil {
		return nil, err
	}
	return v, nil
}

func billerSettingsValue(s BillerChargeSettings) (BillerChargeSettings, bool) {
	switch v := s.(type) {
	case RocketgateChargeSettings, NetbillingChargeSettings, EpochChargeSettings:
		return v, true
	case *RocketgateChargeSettings:
		if v != nil {
			return *v, true
		}
	case *NetbillingChargeSettings:
		if v != nil {
			return *v, true
		}
	case *EpochChargeSettings:
		if v != nil {
			return *v, true
		}
	}
	return nil, false
}

// MarshalBillerSettings encodes settings together with the biller tag.
func MarshalBillerSettings(s BillerChargeSettings) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal biller settings: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("marshal biller settings: %w", err)
	}
	out["biller"] = string(s.Biller())
	return out, nil
}

// UnmarshalBillerSettings rebuilds the variant named by the biller tag.
func UnmarshalBillerSettings(m map[string]any) (BillerChargeSettings, error) {
	name, _ := m["biller"].(string)
	biller, err := ParseBillerName(name)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("unmarshal biller settings: %w", err)
	}

	switch biller {
	case BillerRocketgate:
		var s RocketgateChargeSettings
		err = json.Unmarshal(raw, &s)
		return s, err
	case BillerNetbilling:
		var s NetbillingChargeSettings
		err = json.Unmarshal(raw, &s)
		return s, err
	case BillerEpoch:
		var s EpochChargeSettings
		err = json.Unmarshal(raw, &s)
		return s, err
	default:
		panic(fmt.Sprintf("unhandled biller %s", biller))
	}
}
