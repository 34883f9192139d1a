package mpesa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successCallback = `{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_191220191020363925","ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":20.00},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},{"Name":"Balance"},{"Name":"TransactionDate","Value":20191219102115},{"Name":"PhoneNumber","Value":254708374149}]}}}}`

const cancelledCallback = `{"Body":{"stkCallback":{"MerchantRequestID":"8555-67195-1","CheckoutRequestID":"ws_CO_27072017151044001","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`

func TestParseCallback_Success(t *testing.T) {
	cb, err := ParseCallback([]byte(successCallback))
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
	assert.Equal(t, 0, cb.ResultCode)
	assert.Equal(t, "NLJ7RT61SV", cb.Receipt)
	assert.Equal(t, 20.0, cb.Amount)
	assert.Equal(t, "254708374149", cb.Phone)
	assert.Equal(t, "20191219102115", cb.TransactionDate)
}

func TestParseCallback_Cancelled(t *testing.T) {
	cb, err := ParseCallback([]byte(cancelledCallback))
	require.NoError(t, err)
	assert.Equal(t, 1032, cb.ResultCode)
	assert.Equal(t, "Request cancelled by user", cb.ResultDesc)
	assert.Empty(t, cb.Receipt)
}

func TestParseCallback_Malformed(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"Body":{"stkCallback":{"ResultCode":0}}}`} {
		_, err := ParseCallback([]byte(body))
		assert.Error(t, err, body)
	}
}
