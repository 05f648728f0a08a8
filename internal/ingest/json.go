package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"thp/internal"
)

// flexFloat tolerates the numeric sloppiness of published MRF files:
// numbers, "24,945.00", "$150", empty strings, or null.
type flexFloat struct {
	Value *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.Value = &num
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		parsed, ok := parseAmount(str)
		if !ok {
			f.Value = nil
			return nil
		}
		f.Value = &parsed
		return nil
	}
	f.Value = nil
	return nil
}

type codeInformation struct {
	Code string `json:"code"`
	Type string `json:"type"`
}

type standardCharge struct {
	GrossCharge    flexFloat `json:"gross_charge"`
	GrossCharges   flexFloat `json:"gross_charges"` // V2 files pluralize
	DiscountedCash flexFloat `json:"discounted_cash"`
	Setting        string    `json:"setting"`
}

type chargeInformation struct {
	Description     string            `json:"description"`
	CodeInformation []codeInformation `json:"code_information"`
	StandardCharges []standardCharge  `json:"standard_charges"`
}

// ReadJSON streams the standard_charge_information array of a CMS MRF
// file. Items are decoded one at a time so multi-gigabyte files never
// need to fit in memory alongside their records.
func ReadJSON(r io.Reader) ([]internal.Record, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read opening token: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not a standard-charges object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, _ := keyTok.(string)

		if key != "standard_charge_information" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("skip %q: %w", key, err)
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read array open: %w", err)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			return nil, errors.New("standard_charge_information is not an array")
		}

		var out []internal.Record
		for dec.More() {
			var item chargeInformation
			if err := dec.Decode(&item); err != nil {
				return nil, fmt.Errorf("item %d: %w", len(out), err)
			}
			out = append(out, jsonItemToRecord(item))
		}
		return out, nil
	}

	return nil, errors.New("no standard_charge_information section")
}

func jsonItemToRecord(item chargeInformation) internal.Record {
	r := internal.Record{Description: strings.TrimSpace(item.Description)}

	for _, ci := range item.CodeInformation {
		value := strings.TrimSpace(ci.Code)
		if value == "" || strings.TrimSpace(ci.Type) == "" {
			continue
		}
		r.Codes = append(r.Codes, internal.CodeEntry{
			Value: value,
			Type:  internal.ParseCodeType(ci.Type),
		})
	}

	for _, charge := range item.StandardCharges {
		gross := charge.GrossCharge.Value
		if gross == nil {
			gross = charge.GrossCharges.Value
		}
		if gross != nil {
			r.Prices = append(r.Prices, internal.PriceEntry{
				Amount:  *gross,
				Setting: charge.Setting,
			})
		}
		if charge.DiscountedCash.Value != nil {
			r.Prices = append(r.Prices, internal.PriceEntry{
				Amount:  *charge.DiscountedCash.Value,
				Setting: charge.Setting,
				IsCash:  true,
			})
		}
	}

	return r
}
