package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketCode(t *testing.T) {
	assert.Equal(t, "TKT-00000001", TicketCode(1))
	assert.Equal(t, "TKT-00012345", TicketCode(12345))
	assert.Equal(t, "TKT-99999999", TicketCode(99999999))

	// Numbers past eight digits widen rather than truncate.
	assert.Equal(t, "TKT-100000000", TicketCode(100000000))
}

func TestQRPayload(t *testing.T) {
	payload := QRPayload("abc-123", 42)
	assert.Equal(t, "tixgate://ticket/abc-123?code=TKT-00000042", payload)
}
