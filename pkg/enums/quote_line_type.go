package enums

import "fmt"

// QuoteLineType identifies what a quote line (and the order item it becomes)
// is charging for.
type QuoteLineType string

const (
	QuoteLineTypeSeatTime      QuoteLineType = "seat_time"
	QuoteLineTypeRoomSurcharge QuoteLineType = "room_surcharge"
	QuoteLineTypeNominationFee QuoteLineType = "nomination_fee"
	QuoteLineTypeInhouseFee    QuoteLineType = "inhouse_fee"
	QuoteLineTypeHouseFee      QuoteLineType = "house_fee"
	QuoteLineTypeSingleCharge  QuoteLineType = "single_charge"
	QuoteLineTypeDrink         QuoteLineType = "drink"
)

var validQuoteLineTypes = []QuoteLineType{
	QuoteLineTypeSeatTime,
	QuoteLineTypeRoomSurcharge,
	QuoteLineTypeNominationFee,
	QuoteLineTypeInhouseFee,
	QuoteLineTypeHouseFee,
	QuoteLineTypeSingleCharge,
	QuoteLineTypeDrink,
}

// String implements fmt.Stringer.
func (q QuoteLineType) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteLineType.
func (q QuoteLineType) IsValid() bool {
	for _, candidate := range validQuoteLineTypes {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuoteLineType converts raw input into a QuoteLineType.
func ParseQuoteLineType(value string) (QuoteLineType, error) {
	for _, candidate := range validQuoteLineTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote line type %q", value)
}
