package domain

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/shopspring/decimal"
)

// ObfuscatedMarker replaces sensitive card fields before they leave the aggregate.
const ObfuscatedMarker = "*******"

const PaymentTypeCreditCard = "cc"

type PaymentInformationKind string

const (
	PaymentNewCard        PaymentInformationKind = "newCard"
	PaymentStoredTemplate PaymentInformationKind = "cardTemplate"
)

// PaymentInformation is either a new card or a stored card template, never both.
type PaymentInformation interface {
	Kind() PaymentInformationKind
	// Obfuscated returns a copy safe to publish or persist.
	Obfuscated() PaymentInformation
	isPaymentInformation()
}

type CardHolder struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	ZipCode   string `json:"zipCode,omitempty"`
	Country   string `json:"country,omitempty"`
}

type CreditCardInformation struct {
	Number          string     `json:"ccNumber" validate:"required,numeric,min=12,max=19"`
	CVV             string     `json:"cvv" validate:"required,numeric,min=3,max=4"`
	ExpirationMonth int        `json:"cardExpirationMonth" validate:"required,min=1,max=12"`
	ExpirationYear  int        `json:"cardExpirationYear" validate:"required,min=2000"`
	FirstSix        string     `json:"first6,omitempty"`
	LastFour        string     `json:"last4,omitempty"`
	Holder          CardHolder `json:"holder"`
}

// NewCreditCardInformation validates the card and derives its first six and last four digits.
func NewCreditCardInformation(number, cvv string, expMonth, expYear int, holder CardHolder) (CreditCardInformation, error) {
	c := CreditCardInformation{
		Number:          number,
		CVV:             cvv,
		ExpirationMonth: expMonth,
		ExpirationYear:  expYear,
		Holder:          holder,
	}
	if err := validateStruct(c); err != nil {
		return CreditCardInformation{}, err
	}
	c.FirstSix = number[:6]
	c.LastFour = number[len(number)-4:]
	return c, nil
}

func (CreditCardInformation) Kind() PaymentInformationKind { return PaymentNewCard }
func (CreditCardInformation) isPaymentInformation()        {}

func (c CreditCardInformation) Obfuscated() PaymentInformation {
	if c.Number != "" {
		c.Number = ObfuscatedMarker
	}
	if c.CVV != "" {
		c.CVV = ObfuscatedMarker
	}
	return c
}

// CardHash fingerprints the card number so stored records never carry the PAN.
func (c CreditCardInformation) CardHash() string {
	if c.Number == "" || c.Number == ObfuscatedMarker {
		return ""
	}
	sum := sha256.Sum256([]byte(c.Number))
	return hex.EncodeToString(sum[:])
}

// RequireClearCard fails when p is a new card whose number or cvv was
// obfuscated, as it is on every transaction read back from storage.
func RequireClearCard(p PaymentInformation) error {
	c, ok := p.(CreditCardInformation)
	if !ok {
		return nil
	}
	if c.Number == ObfuscatedMarker {
		return NewInvalidInformationError("ccNumber", "card number is obfuscated")
	}
	if c.CVV == ObfuscatedMarker {
		return NewInvalidInformationError("cvv", "card cvv is obfuscated")
	}
	return nil
}

type CardTemplateInformation struct {
	CardHash string `json:"cardHash" validate:"required"`
	FirstSix string `json:"first6,omitempty"`
	LastFour string `json:"last4,omitempty"`
}

func (CardTemplateInformation) Kind() PaymentInformationKind { return PaymentStoredTemplate }
func (CardTemplateInformation) isPaymentInformation()        {}
func (t CardTemplateInformation) Obfuscated() PaymentInformation {
	return t
}

// Rebill describes a recurring schedule attached to a charge.
type Rebill struct {
	Amount    decimal.Decimal `json:"amount"`
	Frequency int             `json:"frequency"`
	Start     int             `json:"start"`
}

type ChargeInformation struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Rebill   *Rebill         `json:"rebill,omitempty"`
}

func NewChargeInformation(amount decimal.Decimal, currency string, rebill *Rebill) (ChargeInformation, error) {
	if currency == "" {
		return ChargeInformation{}, NewMissingInformationError("currency")
	}
	if len(currency) != 3 {
		return ChargeInformation{}, NewInvalidInformationError("currency", "expected ISO 4217 code")
	}
	if amount.IsZero() {
		return ChargeInformation{}, NewMissingInformationError("amount")
	}
	if amount.IsNegative() {
		return ChargeInformation{}, NewInvalidInformationError("amount", "must be positive")
	}
	if rebill != nil {
		if !rebill.Amount.IsPositive() {
			return ChargeInformation{}, NewInvalidInformationError("rebill.amount", "must be positive")
		}
		if rebill.Frequency <= 0 {
			return ChargeInformation{}, NewInvalidInformationError("rebill.frequency", "must be positive")
		}
		if rebill.Start < 0 {
			return ChargeInformation{}, NewInvalidInformationError("rebill.start", "cannot be negative")
		}
		r := *rebill
		rebill = &r
	}
	return ChargeInformation{Amount: amount, Currency: currency, Rebill: rebill}, nil
}

func (c ChargeInformation) clone() ChargeInformation {
	if c.Rebill != nil {
		r := *c.Rebill
		c.Rebill = &r
	}
	return c
}
