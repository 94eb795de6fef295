// Package invoice models the validation report the backend produces for an
// uploaded vendor invoice, and renders it for operators.
package invoice

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Report is the backend's analysis of one invoice against a rate card
// version.
type Report struct {
	Header    Header   `json:"header"`
	MainTable []Record `json:"main_table"`
	Summary   Summary  `json:"summary"`
}

// Field is one key/value pair of an ordered JSON object.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Header is the invoice header in the order the backend sent it.
type Header []Field

// Get returns the raw value for key.
func (h Header) Get(key string) (json.RawMessage, bool) {
	for _, f := range h {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (h Header) MarshalJSON() ([]byte, error) {
	return encodeOrdered(len(h), func(i int) (string, any) { return h[i].Key, h[i].Value })
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var out Header
	err := decodeOrdered(data, func(key string, raw json.RawMessage) error {
		out = append(out, Field{Key: key, Value: raw})
		return nil
	})
	if err != nil {
		return eris.Wrap(err, "invoice: decode header")
	}
	*h = out
	return nil
}

// Record is one shipment line of the invoice.
type Record struct {
	Date            string           `json:"date"`
	OrderNo         string           `json:"order_no"`
	ServiceType     string           `json:"service_type"`
	PickupDetails   Pickup           `json:"pickup_details"`
	DeliveryDetails Delivery         `json:"delivery_details"`
	Charges         Charges          `json:"charges"`
	Total           *decimal.Decimal `json:"total"`
	Note            string           `json:"note,omitempty"`
	Flags           Flags            `json:"flags"`
}

// Pickup describes where a shipment was collected.
type Pickup struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	CityStateZip    string `json:"city_state_zip"`
	Caller          string `json:"caller"`
	CallTime        string `json:"call_time"`
	ReferenceNumber string `json:"reference_number"`
	PickupTime      string `json:"pickup_time"`
}

// Delivery describes where a shipment was dropped off.
type Delivery struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	CityStateZip string `json:"city_state_zip"`
}

// Charge is one billed component of a record. Amount is nil when the
// invoice does not bill that component.
type Charge struct {
	Key    string
	Amount *decimal.Decimal
}

// Charges lists a record's charge components in invoice order.
type Charges []Charge

func (c Charges) MarshalJSON() ([]byte, error) {
	return encodeOrdered(len(c), func(i int) (string, any) { return c[i].Key, c[i].Amount })
}

func (c *Charges) UnmarshalJSON(data []byte) error {
	var out Charges
	err := decodeOrdered(data, func(key string, raw json.RawMessage) error {
		ch := Charge{Key: key}
		if !isNull(raw) {
			var d decimal.Decimal
			if err := json.Unmarshal(raw, &d); err != nil {
				return eris.Wrapf(err, "charge %s", key)
			}
			ch.Amount = &d
		}
		out = append(out, ch)
		return nil
	})
	if err != nil {
		return eris.Wrap(err, "invoice: decode charges")
	}
	*c = out
	return nil
}

// RiskLevel grades how suspicious a record is.
type RiskLevel string

// Risk levels, most severe first.
const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
)

// Flags are the per-record verdicts.
type Flags struct {
	Fraud     bool      `json:"fraud"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// Summary aggregates the whole invoice.
type Summary struct {
	TotalRecords            int              `json:"total_records"`
	CalculatedTotal         *decimal.Decimal `json:"calculated_total"`
	HeaderTotal             *decimal.Decimal `json:"header_total"`
	TotalDiscrepancy        *decimal.Decimal `json:"total_discrepancy"`
	FraudDetected           bool             `json:"fraud_detected"`
	TotalFraudDiscrepancies int              `json:"total_fraud_discrepancies"`
	TotalFraudulentAmount   *decimal.Decimal `json:"total_fraudulent_amount"`
	BaseCharges             *BaseCharges     `json:"base_charges,omitempty"`
	WkdHolOT                *WkdHolOT        `json:"wkd_hol_ot,omitempty"`
	ServiceTypes            ServiceTypes     `json:"service_types,omitempty"`
	ExtraCharges            *ExtraCharges    `json:"extra_charges,omitempty"`
}

// BaseCharges compares billed base charges with the rate card.
type BaseCharges struct {
	UnderCharged       int              `json:"under_charged"`
	UnderChargedAmount *decimal.Decimal `json:"under_charged_amount"`
	OverCharged        int              `json:"over_charged"`
	OverChargedAmount  *decimal.Decimal `json:"over_charged_amount"`
	TotalItems         int              `json:"total_items"`
}

// WkdHolOT checks weekend, holiday and overtime surcharges.
type WkdHolOT struct {
	Valid         int              `json:"valid"`
	ValidAmount   *decimal.Decimal `json:"valid_amount"`
	Invalid       int              `json:"invalid"`
	InvalidAmount *decimal.Decimal `json:"invalid_amount"`
	TotalItems    int              `json:"total_items"`
}

// CountAmount is a counter with its total.
type CountAmount struct {
	Count       int              `json:"count"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
}

// ServiceType is the shipment count and billed total of one service code.
type ServiceType struct {
	Type string
	CountAmount
}

// ServiceTypes is the per-service breakdown in backend order.
type ServiceTypes []ServiceType

func (s ServiceTypes) MarshalJSON() ([]byte, error) {
	return encodeOrdered(len(s), func(i int) (string, any) { return s[i].Type, s[i].CountAmount })
}

func (s *ServiceTypes) UnmarshalJSON(data []byte) error {
	var out ServiceTypes
	err := decodeOrdered(data, func(key string, raw json.RawMessage) error {
		st := ServiceType{Type: key}
		if err := json.Unmarshal(raw, &st.CountAmount); err != nil {
			return eris.Wrapf(err, "service type %s", key)
		}
		out = append(out, st)
		return nil
	})
	if err != nil {
		return eris.Wrap(err, "invoice: decode service_types")
	}
	*s = out
	return nil
}

// ExtraCharges totals charges billed beyond the base rate.
type ExtraCharges struct {
	FuelSurcharge     *CountAmount     `json:"fuel_surcharge,omitempty"`
	VehicleCharge     *CountAmount     `json:"vehicle_charge,omitempty"`
	AdditionalCharge  *CountAmount     `json:"additional_charge,omitempty"`
	TotalExtraCharges *decimal.Decimal `json:"total_extra_charges"`
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeOrdered walks a JSON object calling fn for every member in order.
// A JSON null decodes as an empty object.
func decodeOrdered(data []byte, fn func(key string, raw json.RawMessage) error) error {
	if isNull(data) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("expected an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func encodeOrdered(n int, member func(i int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, v := member(i)
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
