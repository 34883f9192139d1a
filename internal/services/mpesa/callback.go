package mpesa

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// Callback is the flattened body Daraja posts to the STK callback URL.
type Callback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string

	Receipt         string
	Amount          float64
	Phone           string
	TransactionDate string
}

type callbackEnvelope struct {
	Body struct {
		StkCallback *struct {
			MerchantRequestID string      `json:"MerchantRequestID"`
			CheckoutRequestID string      `json:"CheckoutRequestID"`
			ResultCode        json.Number `json:"ResultCode"`
			ResultDesc        string      `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes Body.stkCallback and its metadata items.
func ParseCallback(body []byte) (*Callback, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var env callbackEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, errors.Wrap(err, "decode stk callback")
	}
	cb := env.Body.StkCallback
	if cb == nil {
		return nil, errors.New("missing Body.stkCallback")
	}
	if cb.CheckoutRequestID == "" {
		return nil, errors.New("missing CheckoutRequestID")
	}
	code, err := strconv.Atoi(cb.ResultCode.String())
	if err != nil {
		return nil, errors.Wrap(err, "invalid ResultCode")
	}

	out := &Callback{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        code,
		ResultDesc:        cb.ResultDesc,
	}
	for _, it := range cb.CallbackMetadata.Item {
		v := valueString(it.Value)
		switch it.Name {
		case "MpesaReceiptNumber":
			out.Receipt = v
		case "Amount":
			out.Amount, _ = strconv.ParseFloat(v, 64)
		case "PhoneNumber":
			out.Phone = v
		case "TransactionDate":
			out.TransactionDate = v
		}
	}
	return out, nil
}

func valueString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
